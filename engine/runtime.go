package engine

import "github.com/hupe1980/agenthive/core"

// RuntimeStatus is the lifecycle of a module at execution time.
type RuntimeStatus string

const (
	StatusPending    RuntimeStatus = "pending"
	StatusInProgress RuntimeStatus = "in_progress"
	StatusCompleted  RuntimeStatus = "completed"
	StatusFailed     RuntimeStatus = "failed"
	StatusNeedsHelp  RuntimeStatus = "needs_help"
)

// issueMaxIterations is the issue text recorded when a module exhausts its
// loop budget.
const issueMaxIterations = "max iterations exceeded"

// RuntimeTask tracks one module through the parallel engine. Exactly one
// worker goroutine owns a task for the duration of its batch, so the struct
// carries no lock; cross-worker coordination goes through collab.State.
type RuntimeTask struct {
	Module    string
	Role      core.Role
	Status    RuntimeStatus
	Output    string
	Issues    []string
	ToolCalls int
	Repaired  bool
}

// Terminal reports whether the task reached a final state.
func (t *RuntimeTask) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// fail marks the task failed with an issue.
func (t *RuntimeTask) fail(issue string) {
	t.Status = StatusFailed
	t.Issues = append(t.Issues, issue)
}
