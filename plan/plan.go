// Package plan holds the execution plan model for the parallel creation
// workflow: module specs, a batch schedule, and the planner that produces
// them from an agent call.
package plan

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"
	"github.com/hupe1980/agenthive/core"
)

// ModuleSpec describes one unit of a creation plan, owned by exactly one role.
type ModuleSpec struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Interface   string    `json:"interface"`
	Role        core.Role `json:"role"`
}

// Plan is the full output of a planning call: the modules, their interface
// contracts, and a batch schedule. Batches in ExecutionOrder run
// concurrently; batches execute strictly in sequence.
type Plan struct {
	Modules        []ModuleSpec      `json:"modules"`
	Interfaces     map[string]string `json:"interfaces,omitempty"`
	ExecutionOrder [][]string        `json:"execution_order"`
	TechStack      string            `json:"tech_stack,omitempty"`
	Domain         string            `json:"domain,omitempty"`
}

// Module returns the spec for a named module.
func (p *Plan) Module(name string) (ModuleSpec, bool) {
	for _, m := range p.Modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleSpec{}, false
}

// ModuleNames returns the module names in declaration order.
func (p *Plan) ModuleNames() []string {
	names := make([]string, len(p.Modules))
	for i, m := range p.Modules {
		names[i] = m.Name
	}
	return names
}

// Validate checks the plan before execution: every module name referenced in
// the batch schedule must exist, no module may be scheduled twice, every
// module must be scheduled, and the implied batch ordering must be acyclic.
// A malformed plan is an explicit error, never a silent skip.
func (p *Plan) Validate() error {
	if len(p.Modules) == 0 {
		return fmt.Errorf("plan has no modules")
	}
	if len(p.ExecutionOrder) == 0 {
		return fmt.Errorf("plan has no execution order")
	}

	known := map[string]bool{}
	for _, m := range p.Modules {
		if m.Name == "" {
			return fmt.Errorf("plan contains a module without a name")
		}
		if known[m.Name] {
			return fmt.Errorf("duplicate module %q in plan", m.Name)
		}
		known[m.Name] = true
	}

	scheduled := map[string]bool{}
	var edges []toposort.Edge
	var prevBatch []string
	for i, batch := range p.ExecutionOrder {
		if len(batch) == 0 {
			return fmt.Errorf("execution order batch %d is empty", i+1)
		}
		for _, name := range batch {
			if !known[name] {
				return fmt.Errorf("execution order references unknown module %q", name)
			}
			if scheduled[name] {
				return fmt.Errorf("module %q scheduled more than once", name)
			}
			scheduled[name] = true

			if len(prevBatch) == 0 {
				edges = append(edges, toposort.Edge{nil, name})
				continue
			}
			// Batch ordering implies every module of the previous batch
			// precedes every module of this one.
			for _, dep := range prevBatch {
				edges = append(edges, toposort.Edge{dep, name})
			}
		}
		prevBatch = batch
	}

	for name := range known {
		if !scheduled[name] {
			return fmt.Errorf("module %q is not scheduled in the execution order", name)
		}
	}

	if _, err := toposort.Toposort(edges); err != nil {
		return fmt.Errorf("execution order contains a cycle: %w", err)
	}
	return nil
}

// Describe renders the plan as a compact human-readable listing.
func (p *Plan) Describe() string {
	var b strings.Builder
	if p.TechStack != "" {
		fmt.Fprintf(&b, "Tech stack: %s\n", p.TechStack)
	}
	for _, m := range p.Modules {
		fmt.Fprintf(&b, "- %s (%s): %s\n", m.Name, m.Role, m.Description)
	}
	for i, batch := range p.ExecutionOrder {
		fmt.Fprintf(&b, "Batch %d: %s\n", i+1, strings.Join(batch, ", "))
	}
	return b.String()
}
