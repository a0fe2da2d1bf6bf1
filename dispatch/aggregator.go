package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agenthive/core"
)

// ToolCallRecord captures one executed tool call for the final output.
type ToolCallRecord struct {
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args,omitempty"`
	Success bool           `json:"success"`
	Output  string         `json:"output,omitempty"`
}

// RoleResult is the outcome of one role's subtask.
type RoleResult struct {
	Role      core.Role
	Success   bool
	Content   string
	ToolCalls []ToolCallRecord
	Err       string
	Duration  time.Duration
}

// AggregatedResult is the merged outcome of a dispatch session.
type AggregatedResult struct {
	Success     bool
	Content     string
	RoleResults map[core.Role]RoleResult
	ToolCalls   []ToolCallRecord
	Summary     string
}

// Aggregator merges per-role results into one ordered output. Successful
// content is emitted in a fixed role-precedence order, strongest first, so
// the merged text is independent of completion order.
type Aggregator struct{}

// NewAggregator creates an aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Aggregate merges results. Empty input and all-failed input both produce a
// failed result; otherwise failed roles are dropped from the content and the
// successful ones are rendered as role-labeled sections.
func (a *Aggregator) Aggregate(results []RoleResult) AggregatedResult {
	if len(results) == 0 {
		return AggregatedResult{
			Success: false,
			Content: "no results available",
			Summary: "execution failed: no results",
		}
	}

	roleResults := make(map[core.Role]RoleResult, len(results))
	var successful []RoleResult
	for _, r := range results {
		roleResults[r.Role] = r
		if r.Success {
			successful = append(successful, r)
		}
	}

	if len(successful) == 0 {
		var errors []string
		for _, r := range results {
			if r.Err != "" {
				errors = append(errors, fmt.Sprintf("%s: %s", core.Definition(r.Role).Name, r.Err))
			}
		}
		content := strings.Join(errors, "\n")
		if content == "" {
			content = "all agents failed"
		}
		return AggregatedResult{
			Success:     false,
			Content:     content,
			RoleResults: roleResults,
			Summary:     "execution failed",
		}
	}

	var toolCalls []ToolCallRecord
	for _, r := range successful {
		toolCalls = append(toolCalls, r.ToolCalls...)
	}

	var parts []string
	for _, role := range core.EscalationOrder() {
		r, ok := roleResults[role]
		if !ok || !r.Success || strings.TrimSpace(r.Content) == "" {
			continue
		}
		def := core.Definition(role)
		parts = append(parts, fmt.Sprintf("\n### %s (%s)\n", def.Name, def.Description), r.Content)
	}
	if len(parts) == 0 {
		for _, r := range successful {
			if r.Content != "" {
				parts = append(parts, r.Content)
			}
		}
	}

	return AggregatedResult{
		Success:     true,
		Content:     strings.Join(parts, "\n"),
		RoleResults: roleResults,
		ToolCalls:   toolCalls,
		Summary:     summarize(successful),
	}
}

func summarize(results []RoleResult) string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = core.Definition(r.Role).Name
	}
	return fmt.Sprintf("collaboration complete - participating roles: %s", strings.Join(names, ", "))
}

// FormatForDisplay renders an aggregated result for terminal output.
func FormatForDisplay(result AggregatedResult) string {
	var b strings.Builder
	if result.Summary != "" {
		fmt.Fprintf(&b, "[summary] %s\n", result.Summary)
	}
	if len(result.RoleResults) > 0 {
		b.WriteString("\n[participants]\n")
		for _, role := range core.EscalationOrder() {
			r, ok := result.RoleResults[role]
			if !ok {
				continue
			}
			mark := "ok"
			if !r.Success {
				mark = "failed"
			}
			def := core.Definition(role)
			fmt.Fprintf(&b, "  [%s] %s: %s\n", mark, def.Name, def.Description)
		}
	}
	b.WriteString("\n[output]\n")
	b.WriteString(result.Content)
	return b.String()
}
