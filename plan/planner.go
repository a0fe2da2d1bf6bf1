package plan

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/internal/jsonx"
	"github.com/hupe1980/agenthive/logging"
)

const codingPlanTemplate = `You are the lead architect of a team of AI agents.
Decompose the following request into 3 to 6 implementation modules.

Request: %s
%s
Rules:
- Pick ONE unifying tech stack for all modules and state it.
- Every module is owned by exactly one role: fast, balanced, reasoning, or strongest.
- Define a clear interface contract per module so modules can be built independently.
- Propose an execution order as batches; modules in the same batch run in parallel,
  batches run strictly in sequence. Put integration work in the last batch.

Respond with a single JSON object:
{
  "tech_stack": "...",
  "modules": [
    {"name": "...", "description": "...", "interface": "...", "role": "..."}
  ],
  "execution_order": [["module-a", "module-b"], ["module-c"]]
}`

const contentPlanTemplate = `You are the lead editor of a team of AI agents.
Decompose the following writing request into 3 to 6 sections.

Request: %s
%s
Rules:
- Pick ONE unifying style and audience baseline for all sections and state it.
- Every section is owned by exactly one role: fast, balanced, reasoning, or strongest.
- Define per section what it must cover and how it connects to its neighbors.
- Propose an execution order as batches; sections in the same batch are written in
  parallel, batches run strictly in sequence. Put the final assembly in the last batch.

Respond with a single JSON object:
{
  "tech_stack": "style baseline",
  "modules": [
    {"name": "...", "description": "...", "interface": "...", "role": "..."}
  ],
  "execution_order": [["section-a", "section-b"], ["assembly"]]
}`

// planPayload is the JSON shape expected from the planning call.
type planPayload struct {
	TechStack      string          `json:"tech_stack"`
	Modules        []modulePayload `json:"modules"`
	ExecutionOrder [][]string      `json:"execution_order"`
}

type modulePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Interface   string `json:"interface"`
	Role        string `json:"role"`
}

// PlannerOptions configures a Planner.
type PlannerOptions struct {
	Logger logging.Logger
}

// Planner turns a user request into an execution plan with one agent call.
// Malformed planner output never aborts a session; it degrades to a fixed
// default plan.
type Planner struct {
	agents *agent.Registry
	logger logging.Logger
}

// NewPlanner creates a planner on top of an agent registry.
func NewPlanner(agents *agent.Registry, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{
		agents: agents,
		logger: logging.OrDefault(opts.Logger),
	}
}

// Plan asks the strongest available agent for a decomposition of request.
// The first balanced JSON object in the response is decoded; unknown role
// names fall back to the balanced role. Any parse or validation failure
// yields the default plan so the workflow can always proceed.
func (p *Planner) Plan(ctx context.Context, request, contextText, domain string) *Plan {
	binding, ok := p.agents.FirstAvailable(core.RoleStrongest, core.RoleReasoning)
	if !ok {
		p.logger.Warn("planner.no_agents")
		return DefaultPlan(domain)
	}

	template := codingPlanTemplate
	if domain == "content" {
		template = contentPlanTemplate
	}
	extra := ""
	if contextText != "" {
		extra = fmt.Sprintf("Context:\n%s\n", contextText)
	}

	response := p.agents.Call(ctx, binding.Role, []core.Message{
		core.SystemMessage("You plan work for a team of specialized AI agents. Respond with valid JSON."),
		core.UserMessage(fmt.Sprintf(template, request, extra)),
	})

	var payload planPayload
	if err := jsonx.DecodeFirstObject(response, &payload); err != nil {
		p.logger.Warn("planner.parse_failed", "error", err.Error())
		return DefaultPlan(domain)
	}

	result := &Plan{
		TechStack:      payload.TechStack,
		Domain:         domain,
		Interfaces:     map[string]string{},
		ExecutionOrder: payload.ExecutionOrder,
	}
	for _, m := range payload.Modules {
		role, ok := core.RoleByName(m.Role)
		if !ok {
			role = core.RoleBalanced
		}
		result.Modules = append(result.Modules, ModuleSpec{
			Name:        m.Name,
			Description: m.Description,
			Interface:   m.Interface,
			Role:        role,
		})
		if m.Interface != "" {
			result.Interfaces[m.Name] = m.Interface
		}
	}

	if err := result.Validate(); err != nil {
		p.logger.Warn("planner.invalid_plan", "error", err.Error())
		return DefaultPlan(domain)
	}

	p.logger.Info("planner.plan_ready",
		"modules", len(result.Modules),
		"batches", len(result.ExecutionOrder),
	)
	return result
}

// DefaultPlan is the hard-coded fallback used when planning output cannot be
// parsed: core and ui built in parallel, then an integration pass.
func DefaultPlan(domain string) *Plan {
	return &Plan{
		Domain: domain,
		Modules: []ModuleSpec{
			{
				Name:        "core",
				Description: "Core functionality and data handling",
				Interface:   "Exposes the primary operations of the deliverable",
				Role:        core.RoleBalanced,
			},
			{
				Name:        "ui",
				Description: "User-facing surface and presentation",
				Interface:   "Consumes the core module's operations",
				Role:        core.RoleFast,
			},
			{
				Name:        "integration",
				Description: "Wire the modules together and validate the result",
				Interface:   "Produces the final assembled deliverable",
				Role:        core.RoleStrongest,
			},
		},
		Interfaces: map[string]string{
			"core": "Exposes the primary operations of the deliverable",
			"ui":   "Consumes the core module's operations",
		},
		ExecutionOrder: [][]string{{"core", "ui"}, {"integration"}},
	}
}
