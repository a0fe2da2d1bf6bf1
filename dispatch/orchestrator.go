package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/logging"
	"github.com/hupe1980/agenthive/tool"
)

// contextExcerptLen caps each prior result fed into a dependent subtask.
const contextExcerptLen = 500

// OrchestratorOptions configures the dispatch orchestrator.
type OrchestratorOptions struct {
	Logger     logging.Logger
	WorkingDir string
}

// Orchestrator runs the classify-and-dispatch path: independent subtasks fan
// out concurrently, dependent subtasks run afterwards with an excerpt bundle
// of prior successful outputs, and all results are merged by the aggregator.
type Orchestrator struct {
	agents     *agent.Registry
	tools      *tool.Registry
	dispatcher *TaskDispatcher
	aggregator *Aggregator
	logger     logging.Logger
	workingDir string
}

// NewOrchestrator wires the dispatch path to its registries.
func NewOrchestrator(agents *agent.Registry, tools *tool.Registry, optFns ...func(o *OrchestratorOptions)) *Orchestrator {
	opts := OrchestratorOptions{WorkingDir: "."}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		agents:     agents,
		tools:      tools,
		dispatcher: NewTaskDispatcher(),
		aggregator: NewAggregator(),
		logger:     logging.OrDefault(opts.Logger),
		workingDir: opts.WorkingDir,
	}
}

// Process analyzes the request and executes the resulting subtasks.
func (o *Orchestrator) Process(ctx context.Context, input string) AggregatedResult {
	analysis := o.dispatcher.Analyze(input)
	o.logger.Info("dispatch.analyzed", "type", string(analysis.Type), "subtasks", len(analysis.SubTasks))

	if analysis.Type == TaskSimple {
		return o.handleSimple(ctx, input)
	}
	return o.handleComplex(ctx, analysis)
}

// handleSimple answers directly with the fast role, or whatever is available.
func (o *Orchestrator) handleSimple(ctx context.Context, input string) AggregatedResult {
	binding, ok := o.agents.FirstAvailable(core.RoleFast)
	if !ok {
		return o.aggregator.Aggregate(nil)
	}
	result := o.executeRole(ctx, binding.Role, input, "")
	return AggregatedResult{
		Success:     result.Success,
		Content:     result.Content,
		RoleResults: map[core.Role]RoleResult{result.Role: result},
		ToolCalls:   result.ToolCalls,
		Summary:     "simple task handled directly",
	}
}

// handleComplex fans out independent subtasks concurrently, then runs
// dependent subtasks with the accumulated context. A panic-free contract:
// every failure becomes a failed RoleResult, siblings keep running.
func (o *Orchestrator) handleComplex(ctx context.Context, analysis TaskAnalysis) AggregatedResult {
	var independent, dependent []SubTask
	for _, st := range analysis.SubTasks {
		if len(st.Dependencies) > 0 {
			dependent = append(dependent, st)
			continue
		}
		independent = append(independent, st)
	}

	results := make([]RoleResult, len(independent))
	var wg sync.WaitGroup
	for i, st := range independent {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.executeRole(ctx, st.Role, st.Task, "")
		}()
	}
	wg.Wait()

	for _, st := range dependent {
		contextText := buildContext(results)
		results = append(results, o.executeRole(ctx, st.Role, st.Task, contextText))
	}

	return o.aggregator.Aggregate(results)
}

// executeRole performs one subtask call including tool execution. Backend
// failures are contained in the returned RoleResult.
func (o *Orchestrator) executeRole(ctx context.Context, role core.Role, task, contextText string) RoleResult {
	if !o.agents.Has(role) {
		return RoleResult{
			Role: role,
			Err:  fmt.Sprintf("agent %s is not available", role),
		}
	}

	def := core.Definition(role)
	messages := []core.Message{
		core.SystemMessage(fmt.Sprintf("%s\n%s", def.PromptSuffix, def.Description)),
		core.UserMessage(task),
	}
	if contextText != "" {
		messages = append(messages, core.UserMessage(fmt.Sprintf("Previous results:\n%s", contextText)))
	}

	start := time.Now()
	resp, err := o.agents.TryCallWithTools(ctx, role, messages, o.tools.Definitions())
	duration := time.Since(start)

	if err != nil {
		return RoleResult{
			Role:     role,
			Err:      err.Error(),
			Duration: duration,
		}
	}

	var records []ToolCallRecord
	for _, call := range resp.ToolCalls {
		result := o.tools.Execute(ctx, call.Name, call.Arguments, o.workingDir)
		records = append(records, ToolCallRecord{
			Tool:    call.Name,
			Args:    call.Arguments,
			Success: result.Success,
			Output:  result.Text(),
		})
	}

	return RoleResult{
		Role:      role,
		Success:   true,
		Content:   resp.Content,
		ToolCalls: records,
		Duration:  duration,
	}
}

// buildContext bundles prior successful outputs, each truncated to a fixed
// excerpt length.
func buildContext(results []RoleResult) string {
	var parts []string
	for _, r := range results {
		if !r.Success || r.Content == "" {
			continue
		}
		excerpt := r.Content
		if len(excerpt) > contextExcerptLen {
			excerpt = excerpt[:contextExcerptLen]
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", core.Definition(r.Role).Name, excerpt))
	}
	return strings.Join(parts, "\n")
}
