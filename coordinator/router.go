// Package coordinator ties the building blocks into a collaboration session:
// it routes requests to one of three workflows (quick response, sequential
// maintenance, parallel creation) and exposes a read-only status surface.
package coordinator

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/internal/jsonx"
	"github.com/hupe1980/agenthive/logging"
)

// Complexity is the router's coarse difficulty verdict.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityComplex Complexity = "complex"
)

// RoutingResult selects one of the three workflows.
type RoutingResult struct {
	Complexity Complexity `json:"complexity"`
	Domain     string     `json:"domain"` // coding, content, general
	Intent     string     `json:"intent"` // new, modify, qa
	Reason     string     `json:"reason"`
}

// defaultRouting is the deterministic fallback for malformed or missing
// classifier output.
func defaultRouting(reason string) RoutingResult {
	return RoutingResult{
		Complexity: ComplexitySimple,
		Domain:     "coding",
		Intent:     "new",
		Reason:     reason,
	}
}

const routingTemplate = `Classify the following request.

Request: %s

Dimensions:
- complexity: "simple" (one answer or a small change) or "complex" (needs decomposition)
- domain: "coding", "content" or "general"
- intent: "new" (create something), "modify" (change something existing) or "qa" (question)

Answer with exactly one JSON object:
{"complexity": "simple/complex", "domain": "coding/content/general", "intent": "new/modify/qa", "reason": "short reason"}`

// Router classifies requests with one short call to the fast agent. It never
// fails: malformed output, a missing agent or a backend error all degrade to
// the fixed default.
type Router struct {
	agents *agent.Registry
	logger logging.Logger
}

// NewRouter creates a router on top of an agent registry.
func NewRouter(agents *agent.Registry, logger logging.Logger) *Router {
	return &Router{agents: agents, logger: logging.OrDefault(logger)}
}

// Classify analyzes one request.
func (r *Router) Classify(ctx context.Context, request string) RoutingResult {
	binding, ok := r.agents.FirstAvailable(core.RoleFast)
	if !ok {
		return defaultRouting("no agent available for routing")
	}

	response := r.agents.Call(ctx, binding.Role, []core.Message{
		core.UserMessage(fmt.Sprintf(routingTemplate, request)),
	})

	var result RoutingResult
	if err := jsonx.DecodeFirstObject(response, &result); err != nil {
		r.logger.Warn("router.parse_failed", "error", err.Error())
		return defaultRouting("classification failed")
	}

	if result.Complexity != ComplexitySimple && result.Complexity != ComplexityComplex {
		result.Complexity = ComplexitySimple
	}
	if result.Domain == "" {
		result.Domain = "coding"
	}
	if result.Intent == "" {
		result.Intent = "new"
	}

	r.logger.Debug("router.classified",
		"complexity", string(result.Complexity),
		"domain", result.Domain,
		"intent", result.Intent,
	)
	return result
}
