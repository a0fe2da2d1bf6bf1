// Package core defines the shared primitives of the orchestration engine:
// the closed Role set with its immutable catalog, conversation messages and
// tool calls in provider-neutral form, and the session-owned call counter.
// Everything here is dependency-free so every other package can import it.
package core
