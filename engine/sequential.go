package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/logging"
	"github.com/hupe1980/agenthive/plan"
	"github.com/hupe1980/agenthive/tool"
)

// SequentialOptions configures the maintenance engine.
type SequentialOptions struct {
	Logger     logging.Logger
	WorkingDir string
}

// SequentialEngine handles maintenance work on an existing code base: one
// planning call produces a TODO checklist, then a single strong agent works
// through the plan in one bounded tool-use loop.
type SequentialEngine struct {
	agents     *agent.Registry
	tools      *tool.Registry
	logger     logging.Logger
	workingDir string

	checklist *plan.Checklist
}

// NewSequentialEngine wires the maintenance engine to its registries.
func NewSequentialEngine(agents *agent.Registry, tools *tool.Registry, optFns ...func(o *SequentialOptions)) *SequentialEngine {
	opts := SequentialOptions{WorkingDir: "."}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SequentialEngine{
		agents:     agents,
		tools:      tools,
		logger:     logging.OrDefault(opts.Logger),
		workingDir: opts.WorkingDir,
		checklist:  plan.NewChecklist("Maintenance Plan"),
	}
}

// Checklist returns the checklist extracted from the last planning call.
func (e *SequentialEngine) Checklist() *plan.Checklist { return e.checklist }

// Run plans and executes a maintenance request, returning the final response
// text.
func (e *SequentialEngine) Run(ctx context.Context, request, contextText string) (string, error) {
	planner, ok := e.agents.FirstAvailable(core.RoleReasoning, core.RoleStrongest)
	if !ok {
		return "", fmt.Errorf("no agent available for maintenance work")
	}

	planText := e.makePlan(ctx, planner.Role, request, contextText)
	e.checklist = plan.ParseChecklist(planText)
	e.logger.Info("engine.sequential.planned", "steps", e.checklist.Len())

	return e.executePlan(ctx, planner.Role, planText, request, contextText), nil
}

// makePlan asks for an analysis plus an explicit TODO list. The checklist is
// extracted best-effort; prose around the markers is kept as plan context.
func (e *SequentialEngine) makePlan(ctx context.Context, role core.Role, request, contextText string) string {
	prompt := fmt.Sprintf(
		"Analyze the following maintenance request and produce a plan.\n\nRequest: %s\n\nContext:\n%s\n\nOutput format (the TODO list is mandatory):\n1. Analysis of the problem\n2. Affected files\n3. Steps:\n   TODO: step 1\n   TODO: step 2\n   ...",
		request, contextText,
	)
	return e.agents.Call(ctx, role, []core.Message{
		core.SystemMessage("You plan maintenance changes to an existing code base. Be specific about files and steps."),
		core.UserMessage(prompt),
	})
}

// executePlan runs the bounded execution loop. The loop stops early when a
// response without tool calls signals completion in its prose, or when the
// agent keeps talking without using tools past the early turns.
func (e *SequentialEngine) executePlan(ctx context.Context, role core.Role, planText, request, contextText string) string {
	systemPrompt := fmt.Sprintf(
		"You execute a maintenance plan against an existing code base.\n\nUser request: %s\n\nPlan:\n%s\n\nYou have full filesystem access through the tools.\n1. Read the files you need to understand the context.\n2. Apply the changes with edit_file or write_file.\n3. Verify your changes where possible.\n\nContext:\n%s\n\nWork through the plan step by step and say \"done\" when finished.",
		request, planText, contextText,
	)

	messages := []core.Message{
		core.SystemMessage(systemPrompt),
		core.UserMessage("Start executing the plan."),
	}
	toolDefs := e.tools.Definitions()

	finalResponse := ""
	for i := 0; i < SequentialTurns; i++ {
		resp := e.agents.CallWithTools(ctx, role, messages, toolDefs)
		messages = append(messages, resp)

		if resp.Content != "" {
			finalResponse = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			lower := strings.ToLower(resp.Content)
			if strings.Contains(lower, "done") || strings.Contains(lower, "completed") {
				e.logger.Info("engine.sequential.done", "turns", i+1)
				break
			}
			if i > sequentialNoToolCutoff {
				e.logger.Info("engine.sequential.stalled", "turns", i+1)
				break
			}
			continue
		}

		for _, call := range resp.ToolCalls {
			result := e.tools.Execute(ctx, call.Name, call.Arguments, e.workingDir)
			e.logger.Debug("engine.tool", "tool", call.Name, "ok", result.Success)
			messages = append(messages, core.ToolMessage(call.ID, result.Text()))
		}
	}
	return finalResponse
}
