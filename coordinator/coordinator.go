package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/collab"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/engine"
	"github.com/hupe1980/agenthive/logging"
	"github.com/hupe1980/agenthive/plan"
	"github.com/hupe1980/agenthive/tool"
	"github.com/hupe1980/agenthive/workspace"
)

// Phase names the workflow stage a session is in.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseRouting     Phase = "routing"
	PhaseQuick       Phase = "quick_response"
	PhasePlanning    Phase = "planning"
	PhaseExecuting   Phase = "executing"
	PhaseMaintenance Phase = "maintenance"
	PhaseDone        Phase = "done"
)

// workspaceScanLimit truncates the fallback directory listing injected as
// session context when the smart scan fails.
const workspaceScanLimit = 2000

// planningContextBytes caps the rendered context handed to the planner and
// the execution engines.
const planningContextBytes = 60000

// ForceMode overrides routing for a whole session.
type ForceMode string

const (
	ForceNone    ForceMode = ""
	ForceSimple  ForceMode = "simple"
	ForceComplex ForceMode = "complex"
)

// AgentStatus is one agent's entry in a status snapshot.
type AgentStatus struct {
	Role  core.Role `json:"role"`
	Model string    `json:"model"`
	Busy  bool      `json:"busy"`
}

// Status is a read-only snapshot of a running session. Producing it has no
// side effects.
type Status struct {
	Phase     Phase         `json:"phase"`
	Elapsed   time.Duration `json:"elapsed"`
	PlanDone  int           `json:"plan_done"`
	PlanTotal int           `json:"plan_total"`
	Agents    []AgentStatus `json:"agents"`
}

// Options configures a Coordinator.
type Options struct {
	Logger     logging.Logger
	WorkingDir string
	// TimeBudget is the advisory wall-clock budget. It is checked between
	// phases only; in-flight calls are never interrupted by it.
	TimeBudget time.Duration
}

// Coordinator owns one collaboration session end to end: workspace scan,
// routing, and the chosen workflow. Per-session call counters are owned here
// and reset at session start.
type Coordinator struct {
	agents     *agent.Registry
	tools      *tool.Registry
	router     *Router
	planner    *plan.Planner
	logger     logging.Logger
	workingDir string
	timeBudget time.Duration
	history    *workspace.History

	mu        sync.Mutex
	phase     Phase
	startTime time.Time
	checklist *plan.Checklist
	forceMode ForceMode
}

// New creates a coordinator over the given agent and tool registries.
func New(agents *agent.Registry, tools *tool.Registry, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		WorkingDir: ".",
		TimeBudget: 10 * time.Minute,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrDefault(opts.Logger)
	history := workspace.NewHistory()
	tools.SetObserver(func(name string, args map[string]any, _ tool.Result) {
		history.RecordTool(name, args)
	})
	return &Coordinator{
		agents:     agents,
		tools:      tools,
		router:     NewRouter(agents, logger),
		planner:    plan.NewPlanner(agents, func(o *plan.PlannerOptions) { o.Logger = logger }),
		logger:     logger,
		workingDir: opts.WorkingDir,
		timeBudget: opts.TimeBudget,
		history:    history,
		phase:      PhaseIdle,
	}
}

// SetForceMode overrides routing for subsequent requests. ForceNone restores
// normal classification.
func (c *Coordinator) SetForceMode(mode ForceMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forceMode = mode
}

// Collaborate processes one user request through the appropriate workflow and
// returns the final text.
func (c *Coordinator) Collaborate(ctx context.Context, request string) (string, error) {
	c.agents.Stats().Reset()
	c.mu.Lock()
	c.startTime = time.Now()
	c.checklist = nil
	force := c.forceMode
	c.mu.Unlock()
	c.setPhase(PhaseRouting)
	defer c.setPhase(PhaseDone)

	workspaceSummary := c.scanWorkspace(ctx)

	// A forced mode skips classification entirely.
	switch force {
	case ForceSimple:
		return c.quickResponse(ctx, request, workspaceSummary)
	case ForceComplex:
		return c.fullWorkflow(ctx, request, workspaceSummary, "coding")
	}

	routing := c.router.Classify(ctx, request)
	c.logger.Info("coordinator.routed",
		"complexity", string(routing.Complexity),
		"domain", routing.Domain,
		"intent", routing.Intent,
		"reason", routing.Reason,
	)

	if routing.Complexity == ComplexitySimple {
		return c.quickResponse(ctx, request, workspaceSummary)
	}

	// The budget is advisory and only consulted between phases; a session
	// already over budget answers directly instead of planning.
	if c.overBudget() {
		c.logger.Warn("coordinator.over_budget", "budget", c.timeBudget.String())
		return c.quickResponse(ctx, request, workspaceSummary)
	}

	if routing.Intent == "modify" {
		return c.maintenance(ctx, request, workspaceSummary)
	}
	return c.fullWorkflow(ctx, request, workspaceSummary, routing.Domain)
}

// Status returns a snapshot of the session.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	phase := c.phase
	start := c.startTime
	checklist := c.checklist
	c.mu.Unlock()

	var elapsed time.Duration
	if !start.IsZero() {
		elapsed = time.Since(start)
	}

	status := Status{Phase: phase, Elapsed: elapsed}
	if checklist != nil {
		status.PlanDone, status.PlanTotal = checklist.Progress()
	}
	for _, role := range c.agents.Roles() {
		b, _ := c.agents.Get(role)
		status.Agents = append(status.Agents, AgentStatus{
			Role:  role,
			Model: b.ModelName,
			Busy:  b.Busy(),
		})
	}
	return status
}

// Stats returns the session call counter summary.
func (c *Coordinator) Stats() core.StatsSnapshot {
	return c.agents.Stats().Snapshot()
}

// quickResponse answers simple requests with one agent and a short tool loop.
func (c *Coordinator) quickResponse(ctx context.Context, question, workspaceSummary string) (string, error) {
	c.setPhase(PhaseQuick)

	binding, ok := c.agents.FirstAvailable(core.RoleStrongest, core.RoleFast)
	if !ok {
		return "", fmt.Errorf("no agent available to answer")
	}

	systemPrompt := fmt.Sprintf(
		"You are an AI assistant for software engineering tasks with full tool access (files, shell commands, web).\n\nWorking directory: %s\n\n%s",
		c.workingDir, workspaceSummary,
	)
	messages := []core.Message{
		core.SystemMessage(systemPrompt),
		core.UserMessage(question),
	}
	toolDefs := c.tools.Definitions()

	var lastText string
	for i := 0; i < engine.QuickLoopIterations; i++ {
		resp := c.agents.CallWithTools(ctx, binding.Role, messages, toolDefs)
		messages = append(messages, resp)
		if resp.Content != "" {
			lastText = resp.Content
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}
		for _, call := range resp.ToolCalls {
			result := c.tools.Execute(ctx, call.Name, call.Arguments, c.workingDir)
			messages = append(messages, core.ToolMessage(call.ID, result.Text()))
		}
	}

	// Exhausting the loop degrades the answer instead of failing the session.
	c.logger.Warn("coordinator.quick.max_iterations", "cap", engine.QuickLoopIterations)
	note := "Reached the maximum number of iterations before finishing."
	if lastText != "" {
		return lastText + "\n\n" + note, nil
	}
	return note, nil
}

// fullWorkflow runs the parallel creation strategy: plan, execute in batches,
// repair, integrate.
func (c *Coordinator) fullWorkflow(ctx context.Context, request, workspaceSummary, domain string) (string, error) {
	c.setPhase(PhasePlanning)

	projectCtx := c.projectContext(workspaceSummary)
	p := c.planner.Plan(ctx, request, projectCtx, domain)
	checklist := plan.FromPlan(p)
	c.mu.Lock()
	c.checklist = checklist
	c.mu.Unlock()

	c.setPhase(PhaseExecuting)

	eng := engine.NewParallelEngine(c.agents, c.tools, func(o *engine.ParallelOptions) {
		o.Logger = c.logger
		o.WorkingDir = c.workingDir
		o.Checklist = checklist
		o.State = collab.NewState(0)
	})

	summary, _, err := eng.Run(ctx, p, request, projectCtx)
	if err != nil {
		return "", err
	}
	return summary, nil
}

// maintenance runs the sequential strategy for modify-intent requests.
func (c *Coordinator) maintenance(ctx context.Context, request, workspaceSummary string) (string, error) {
	c.setPhase(PhaseMaintenance)

	eng := engine.NewSequentialEngine(c.agents, c.tools, func(o *engine.SequentialOptions) {
		o.Logger = c.logger
		o.WorkingDir = c.workingDir
	})
	out, err := eng.Run(ctx, request, c.projectContext(workspaceSummary))
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.checklist = eng.Checklist()
	c.mu.Unlock()
	return out, nil
}

// scanWorkspace builds the lightweight workspace summary injected into
// routing and quick-answer prompts. When the smart scan fails it degrades to
// a truncated directory listing.
func (c *Coordinator) scanWorkspace(ctx context.Context) string {
	scan, err := workspace.Scan(c.workingDir, c.history)
	if err == nil {
		return scan.Lightweight()
	}
	c.logger.Debug("coordinator.scan.fallback", "error", err.Error())

	result := c.tools.Execute(ctx, "list_directory", map[string]any{"path": "."}, c.workingDir)
	if !result.Success {
		return ""
	}
	out := result.Output
	if len(out) > workspaceScanLimit {
		out = out[:workspaceScanLimit]
	}
	return fmt.Sprintf("Workspace contents:\n%s", out)
}

// projectContext builds the richer context handed to the planner and the
// execution engines, embedding the most relevant file contents. The scan is
// redone here so files written earlier in the session are picked up.
func (c *Coordinator) projectContext(fallback string) string {
	scan, err := workspace.Scan(c.workingDir, c.history)
	if err != nil {
		return fallback
	}
	return scan.Full(planningContextBytes)
}

func (c *Coordinator) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.logger.Debug("coordinator.phase", "phase", string(p))
}

func (c *Coordinator) overBudget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timeBudget <= 0 || c.startTime.IsZero() {
		return false
	}
	return time.Since(c.startTime) > c.timeBudget
}
