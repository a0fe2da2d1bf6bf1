package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/collab"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/logging"
	"github.com/hupe1980/agenthive/plan"
	"github.com/hupe1980/agenthive/tool"
)

// ParallelOptions configures the parallel creation engine.
type ParallelOptions struct {
	Logger     logging.Logger
	WorkingDir string
	// State is the shared coordination hub; a fresh one is created when nil.
	State *collab.State
	// Checklist mirrors module progress for the caller; optional.
	Checklist *plan.Checklist
}

// ParallelEngine executes a plan's modules in dependency-ordered batches.
// Modules within a batch run concurrently, each as a bounded tool-use loop;
// batches are separated by a hard rendezvous barrier. Failed modules get one
// repair attempt before a final integration pass reconciles all artifacts.
type ParallelEngine struct {
	agents     *agent.Registry
	tools      *tool.Registry
	state      *collab.State
	checklist  *plan.Checklist
	logger     logging.Logger
	workingDir string
}

// NewParallelEngine wires the creation engine to its agent and tool registries.
func NewParallelEngine(agents *agent.Registry, tools *tool.Registry, optFns ...func(o *ParallelOptions)) *ParallelEngine {
	opts := ParallelOptions{WorkingDir: "."}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.State == nil {
		opts.State = collab.NewState(0)
	}
	return &ParallelEngine{
		agents:     agents,
		tools:      tools,
		state:      opts.State,
		checklist:  opts.Checklist,
		logger:     logging.OrDefault(opts.Logger),
		workingDir: opts.WorkingDir,
	}
}

// State exposes the coordination hub used by this engine.
func (e *ParallelEngine) State() *collab.State { return e.state }

// Run executes the plan and returns the final integration summary plus the
// per-module runtime tasks. A module failing permanently does not abort the
// session; its failed status is reflected in the summary. The only hard error
// is a plan that fails validation.
func (e *ParallelEngine) Run(ctx context.Context, p *plan.Plan, request, contextText string) (string, map[string]*RuntimeTask, error) {
	if err := p.Validate(); err != nil {
		return "", nil, fmt.Errorf("rejecting plan: %w", err)
	}

	tasks := make(map[string]*RuntimeTask, len(p.Modules))
	for _, m := range p.Modules {
		tasks[m.Name] = &RuntimeTask{Module: m.Name, Role: m.Role, Status: StatusPending}
		e.state.CreateTask(m.Name, m.Role)
	}

	for i, batch := range p.ExecutionOrder {
		e.logger.Info("engine.batch.start", "batch", i+1, "modules", strings.Join(batch, ","))

		// Rendezvous barrier: every worker in the batch reaches a terminal
		// state before the next batch launches. Workers never return errors;
		// failures are recorded on their own task.
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range batch {
			module, _ := p.Module(name)
			task := tasks[name]
			g.Go(func() error {
				e.executeModule(gctx, task, module, p, request, contextText)
				return nil
			})
		}
		_ = g.Wait()

		e.logger.Info("engine.batch.done", "batch", i+1)
	}

	for _, m := range p.Modules {
		task := tasks[m.Name]
		if task.Status != StatusCompleted {
			e.repairModule(ctx, task, m, request, contextText)
		}
	}

	summary := e.integrate(ctx, p, tasks, request, contextText)
	e.state.MarkComplete(summary)
	return summary, tasks, nil
}

// executeModule runs one module's bounded tool-use loop. The worker is the
// sole writer of its RuntimeTask.
func (e *ParallelEngine) executeModule(ctx context.Context, task *RuntimeTask, module plan.ModuleSpec, p *plan.Plan, request, contextText string) {
	if !e.agents.Has(module.Role) {
		task.fail(fmt.Sprintf("no agent configured for role %q", module.Role))
		e.syncProgress(task, 0)
		return
	}

	task.Status = StatusInProgress
	e.syncProgress(task, 10)

	messages := e.moduleMessages(module, p, request, contextText)
	toolDefs := e.tools.Definitions()

	for i := 0; i < ModuleIterations; i++ {
		resp := e.agents.CallWithTools(ctx, module.Role, messages, toolDefs)
		messages = append(messages, resp)

		if len(resp.ToolCalls) == 0 {
			if collab.ContainsHelpMarker(resp.Content) {
				task.Status = StatusNeedsHelp
				e.syncProgress(task, 50)
				advice := e.handleHelpRequest(ctx, task, resp.Content, contextText)
				messages = append(messages, core.UserMessage(fmt.Sprintf("Help result: %s", advice)))
				task.Status = StatusInProgress
				continue
			}

			task.Output = resp.Content
			task.Status = StatusCompleted
			e.syncProgress(task, 100)
			e.state.AddTaskResult(task.Module, resp.Content)
			e.logger.Info("engine.module.completed", "module", task.Module, "tool_calls", task.ToolCalls)
			return
		}

		messages = append(messages, e.runToolCalls(ctx, task, resp.ToolCalls)...)
	}

	task.fail(issueMaxIterations)
	e.state.AddTaskIssue(task.Module, issueMaxIterations)
	e.syncProgress(task, 0)
	e.logger.Warn("engine.module.failed", "module", task.Module, "issue", issueMaxIterations)
}

// runToolCalls executes each requested tool and converts results, including
// failures, into tool messages for the running conversation.
func (e *ParallelEngine) runToolCalls(ctx context.Context, task *RuntimeTask, calls []core.ToolCall) []core.Message {
	out := make([]core.Message, 0, len(calls))
	for _, call := range calls {
		task.ToolCalls++
		result := e.tools.Execute(ctx, call.Name, call.Arguments, e.workingDir)
		e.logger.Debug("engine.tool",
			"module", task.Module, "tool", call.Name, "ok", result.Success)
		out = append(out, core.ToolMessage(call.ID, result.Text()))
	}
	return out
}

// handleHelpRequest resolves an in-band escalation marker with one side-call
// to the requested role. The exchange is mirrored on the message bus so other
// workers can observe it.
func (e *ParallelEngine) handleHelpRequest(ctx context.Context, task *RuntimeTask, content, contextText string) string {
	helper, payload, ok := collab.ParseHelpMarker(content)
	if !ok {
		return "help request could not be parsed, continue on your own"
	}
	if !e.agents.Has(helper) {
		return fmt.Sprintf("the requested %s agent is not available, continue on your own", helper)
	}

	req := collab.NewHelpRequest(task.Role, helper, payload)
	e.state.Broadcast(req)

	e.logger.Info("engine.help_request", "from", string(task.Role), "to", string(helper))

	advice := e.agents.Call(ctx, helper, []core.Message{
		core.SystemMessage(fmt.Sprintf("You are the %s agent helping a colleague who is stuck on a module.", helper)),
		core.UserMessage(fmt.Sprintf(
			"A colleague needs help with this problem:\n%s\n\nContext:\n%s\n\nGive a concrete solution or code suggestion.",
			payload, contextText,
		)),
	})

	e.state.RespondTo(req.ID, collab.NewMessage(helper, task.Role, collab.MessageFeedback, advice))
	return advice
}

// repairModule makes exactly one repair attempt at a failed module using the
// strongest available agent. The result is Completed or permanently Failed.
func (e *ParallelEngine) repairModule(ctx context.Context, task *RuntimeTask, module plan.ModuleSpec, request, contextText string) {
	if task.Repaired {
		return
	}
	task.Repaired = true

	strongest, ok := e.agents.Strongest()
	if !ok {
		return
	}

	e.logger.Info("engine.repair.start", "module", task.Module, "role", string(strongest.Role))

	issues := strings.Join(task.Issues, "\n")
	if issues == "" {
		issues = issueMaxIterations
	}

	messages := []core.Message{
		core.SystemMessage("You are an expert fixing a failed module. Use the tools to create the files directly, no commentary."),
		core.UserMessage(fmt.Sprintf(
			"Fix the following failed module.\n\nUser request: %s\nModule: %s\nDescription: %s\nInterface: %s\n\nPrevious issues:\n%s\n\nContext:\n%s\n\nCreate every file this module needs. Write code, do not explain.",
			request, module.Name, module.Description, module.Interface, issues, contextText,
		)),
	}
	toolDefs := e.tools.Definitions()

	for i := 0; i < RepairIterations; i++ {
		resp := e.agents.CallWithTools(ctx, strongest.Role, messages, toolDefs)
		messages = append(messages, resp)

		if len(resp.ToolCalls) == 0 {
			task.Output = resp.Content
			task.Status = StatusCompleted
			e.syncProgress(task, 100)
			e.logger.Info("engine.repair.succeeded", "module", task.Module)
			return
		}
		messages = append(messages, e.runToolCalls(ctx, task, resp.ToolCalls)...)
	}

	e.logger.Warn("engine.repair.failed", "module", task.Module)
}

// integrate reconciles all module artifacts with one larger bounded tool loop
// run by the strongest agent, then asks it for a short completion report.
func (e *ParallelEngine) integrate(ctx context.Context, p *plan.Plan, tasks map[string]*RuntimeTask, request, contextText string) string {
	strongest, ok := e.agents.Strongest()
	if !ok {
		return "no agent available for integration"
	}

	manifest := e.buildManifest(p, tasks)
	prompt := integrationPrompt(p, manifest, request)
	messages := []core.Message{
		core.SystemMessage(fmt.Sprintf("You integrate the work of a team of agents into one deliverable. Domain: %s", p.Domain)),
		core.UserMessage(prompt),
	}
	toolDefs := e.tools.Definitions()

	var transcript strings.Builder
	for i := 0; i < IntegrationIterations; i++ {
		resp := e.agents.CallWithTools(ctx, strongest.Role, messages, toolDefs)
		messages = append(messages, resp)

		if resp.Content != "" {
			transcript.WriteString(resp.Content)
		}
		if len(resp.ToolCalls) == 0 {
			break
		}
		for _, call := range resp.ToolCalls {
			result := e.tools.Execute(ctx, call.Name, call.Arguments, e.workingDir)
			messages = append(messages, core.ToolMessage(call.ID, result.Text()))
		}
	}

	excerpt := transcript.String()
	if len(excerpt) > summaryExcerptLen {
		excerpt = excerpt[:summaryExcerptLen]
	}

	summary := e.agents.Call(ctx, strongest.Role, []core.Message{
		core.UserMessage(fmt.Sprintf(
			"Based on the following integration transcript, write a concise completion report:\n\n%s\n\nInclude:\n1. What was built\n2. The main files that were created\n3. How to use the result\nReflect any failed modules honestly.",
			excerpt,
		)),
	})
	return summary
}

// buildManifest renders per-module status and an output excerpt for the
// integration prompt.
func (e *ParallelEngine) buildManifest(p *plan.Plan, tasks map[string]*RuntimeTask) string {
	var b strings.Builder
	for _, m := range p.Modules {
		task := tasks[m.Name]
		mark := "FAILED"
		if task.Status == StatusCompleted {
			mark = "OK"
		}
		excerpt := task.Output
		if len(excerpt) > manifestExcerptLen {
			excerpt = excerpt[:manifestExcerptLen] + "..."
		}
		if excerpt == "" {
			excerpt = "(no output)"
		}
		fmt.Fprintf(&b, "=== %s [%s] ===\nDescription: %s\nInterface: %s\nStatus: %s\nOutput excerpt:\n%s\n\n",
			m.Name, mark, m.Description, m.Interface, task.Status, excerpt)
	}
	return b.String()
}

func integrationPrompt(p *plan.Plan, manifest, request string) string {
	stack := ""
	if p.TechStack != "" {
		stack = fmt.Sprintf("\nUnified tech stack / style: %s", p.TechStack)
	}
	if p.Domain == "content" {
		return fmt.Sprintf(
			"Assemble all sections into one final document.\n\nUser request: %s%s\n\nSection summaries:\n%s\nSteps:\n1. Read every section file\n2. Merge them into one document with transitions, a table of contents and an introduction\n3. Keep the style uniform\n4. Delete the temporary section files\n\nProduce the final document.",
			request, stack, manifest,
		)
	}
	return fmt.Sprintf(
		"Integrate all modules into one working deliverable.\n\nUser request: %s%s\n\nModule summaries:\n%s\nSteps:\n1. Check which files each module created (list_directory, read_file)\n2. Validate existing files and adjust them for interface compatibility\n3. Create any missing files from the excerpts and interface contracts\n4. Fix conflicts and delete stray files that do not match the tech stack\n5. Write usage instructions\n\nEvery required file must exist with correct content.",
		request, stack, manifest,
	)
}

// syncProgress mirrors a task's runtime status onto the shared progress board
// and the user-visible checklist.
func (e *ParallelEngine) syncProgress(task *RuntimeTask, progress int) {
	e.state.UpdateTask(task.Module, collabStatus(task.Status), progress)
	if e.checklist != nil {
		e.checklist.Update(task.Module, checklistStatus(task.Status))
	}
}

func collabStatus(s RuntimeStatus) collab.TaskStatus {
	switch s {
	case StatusInProgress:
		return collab.TaskInProgress
	case StatusCompleted:
		return collab.TaskCompleted
	case StatusFailed:
		return collab.TaskFailed
	case StatusNeedsHelp:
		return collab.TaskNeedsHelp
	default:
		return collab.TaskPending
	}
}

func checklistStatus(s RuntimeStatus) plan.ItemStatus {
	switch s {
	case StatusInProgress, StatusNeedsHelp:
		return plan.ItemInProgress
	case StatusCompleted:
		return plan.ItemCompleted
	case StatusFailed:
		return plan.ItemFailed
	default:
		return plan.ItemPending
	}
}

// moduleMessages builds the opening conversation for one module worker.
func (e *ParallelEngine) moduleMessages(module plan.ModuleSpec, p *plan.Plan, request, contextText string) []core.Message {
	stack := ""
	if p.TechStack != "" {
		stack = fmt.Sprintf("Unified tech stack / style: %s\nFollow it strictly.\n", p.TechStack)
	}

	if p.Domain == "content" {
		prompt := fmt.Sprintf(
			"Write the following section.\n\nUser request: %s\nYour task: %s\nSection: %s\nKey points: %s\n%s\nContext:\n%s\n\nRequirements:\n1. Keep the style consistent with the baseline\n2. Follow the outline structure\n3. Save the section with write_file as %s.md\n\nUse the tools to produce the section.",
			request, module.Description, module.Name, module.Interface, stack, contextText, module.Name,
		)
		return []core.Message{
			core.SystemMessage(fmt.Sprintf("You are a professional writer acting as the %s agent, responsible for the %s section.", module.Role, module.Name)),
			core.UserMessage(prompt),
		}
	}

	prompt := fmt.Sprintf(
		"Implement the following module.\n\nUser request: %s\nYour task: %s\nModule: %s\nInterface contract: %s\n%s\nDependent interfaces:\n%s\n\nContext:\n%s\n\nRequirements:\n1. Implement the complete code\n2. Honor the interface contract\n3. Use the tools to read and write files\n4. If you get stuck you may request help with [REQUEST_HELP: role] problem description\n\nUse the tools to finish the implementation.",
		request, module.Description, module.Name, module.Interface, stack, interfaceInfo(p, module), contextText,
	)
	return []core.Message{
		core.SystemMessage(fmt.Sprintf("You are the %s agent implementing the %s module. All tools are available to you.", module.Role, module.Name)),
		core.UserMessage(prompt),
	}
}

// interfaceInfo lists the other modules' interface contracts so a worker can
// build against them without seeing their code.
func interfaceInfo(p *plan.Plan, self plan.ModuleSpec) string {
	var b strings.Builder
	for _, m := range p.Modules {
		if m.Name == self.Name || m.Interface == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", m.Name, m.Interface)
	}
	if b.Len() == 0 {
		return "(none)"
	}
	return b.String()
}
