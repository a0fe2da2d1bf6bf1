// Package engine implements the two execution strategies of a collaboration
// session: the parallel creation engine (batched concurrent module loops with
// escalation, repair and integration) and the sequential maintenance engine
// (one planned checklist executed by a single strong agent).
package engine

// Iteration budgets per workflow stage. These are tuning constants, not
// architectural invariants; each loop has its own cap because the stages do
// different amounts of tool work.
const (
	// QuickLoopIterations bounds the single-agent quick response loop.
	QuickLoopIterations = 10
	// ModuleIterations bounds one module's tool-use loop in the parallel engine.
	ModuleIterations = 15
	// RepairIterations bounds the single repair attempt at a failed module.
	RepairIterations = 10
	// SequentialTurns bounds the maintenance engine's execution loop.
	SequentialTurns = 15
	// IntegrationIterations bounds the final integration pass.
	IntegrationIterations = 30
)

// sequentialNoToolCutoff is the turn index after which a response without
// tool calls ends the maintenance loop even without a completion keyword.
const sequentialNoToolCutoff = 5

// manifestExcerptLen caps the per-module output excerpt in the integration
// manifest.
const manifestExcerptLen = 500

// summaryExcerptLen caps the integration transcript fed to the summary call.
const summaryExcerptLen = 3000
