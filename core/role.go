package core

import "strings"

// Role identifies a capability class an agent can be bound to. The set is
// closed: capability lookups key on Role everywhere, and absent roles are
// tolerated by substituting another configured role.
type Role string

const (
	// RoleFast handles request classification, dispatch and quick answers.
	RoleFast Role = "fast"
	// RoleBalanced handles planning, core implementation work and long-context analysis.
	RoleBalanced Role = "balanced"
	// RoleReasoning handles deep debugging, algorithmic work and complex logic.
	RoleReasoning Role = "reasoning"
	// RoleStrongest handles tool-heavy execution, validation and repair of
	// work the other roles could not finish.
	RoleStrongest Role = "strongest"
)

// Roles returns all roles in their canonical order (weakest first).
func Roles() []Role {
	return []Role{RoleFast, RoleBalanced, RoleReasoning, RoleStrongest}
}

// EscalationOrder returns the roles strongest-first. Used when substituting
// for an unavailable role and for result aggregation precedence.
func EscalationOrder() []Role {
	return []Role{RoleStrongest, RoleReasoning, RoleBalanced, RoleFast}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFast, RoleBalanced, RoleReasoning, RoleStrongest:
		return true
	}
	return false
}

// RoleDefinition describes a role's purpose and the prompt suffix appended to
// the system prompt of any agent bound to it.
type RoleDefinition struct {
	Role             Role
	Name             string
	Description      string
	Responsibilities []string
	Triggers         []string
	PromptSuffix     string
}

var roleDefinitions = map[Role]RoleDefinition{
	RoleFast: {
		Role:        RoleFast,
		Name:        "Fast",
		Description: "quick responses, task classification and dispatch",
		Responsibilities: []string{
			"classify user intent quickly",
			"answer simple questions directly",
			"break complex tasks into subtask lists",
			"monitor overall task progress",
		},
		Triggers: []string{
			"first entry point for every request",
			"simple queries",
			"anything needing a near-instant response",
		},
		PromptSuffix: `You are the fast agent. You analyze user intent quickly,
answer simple questions directly, and break complex tasks into subtasks
assigned to the most suitable specialist. Keep answers short and concrete.`,
	},
	RoleBalanced: {
		Role:        RoleBalanced,
		Name:        "Balanced",
		Description: "project planning and core implementation",
		Responsibilities: []string{
			"design overall project plans",
			"write core business code",
			"analyze long documents and large contexts",
			"consolidate output from other agents",
		},
		Triggers: []string{
			"full-stack development work",
			"long-text analysis",
			"tasks spanning multiple files",
		},
		PromptSuffix: `You are the balanced agent. You design project structure,
write core implementation code and consolidate the work of other agents.
Produce well-structured, high quality code and documents.`,
	},
	RoleReasoning: {
		Role:        RoleReasoning,
		Name:        "Reasoning",
		Description: "deep reasoning and problem solving",
		Responsibilities: []string{
			"solve hard algorithmic and mathematical problems",
			"diagnose and fix deep bugs",
			"optimize complex logic",
			"perform detailed technical analysis",
		},
		Triggers: []string{
			"logical dead ends",
			"mathematical work",
			"anything requiring careful step-by-step reasoning",
		},
		PromptSuffix: `You are the reasoning agent. You solve hard algorithmic
problems, diagnose subtle bugs and optimize complex logic. Show your
reasoning and the resulting fix explicitly.`,
	},
	RoleStrongest: {
		Role:        RoleStrongest,
		Name:        "Strongest",
		Description: "tool execution, validation and repair",
		Responsibilities: []string{
			"execute complex local tool operations",
			"validate the output of other agents",
			"repair failed work",
			"produce final reports and summaries",
		},
		Triggers: []string{
			"external tool usage",
			"complicated multi-step operations",
			"final validation passes",
		},
		PromptSuffix: `You are the strongest agent. You execute tool-heavy
operations precisely, validate the output of other agents and repair
anything they could not finish. Make sure every operation actually
succeeded before reporting completion.`,
	},
}

// Definition returns the immutable definition for a role. The zero
// RoleDefinition is returned for unknown roles.
func Definition(r Role) RoleDefinition {
	return roleDefinitions[r]
}

// RoleByName resolves a role from a free-form string (value or display name,
// case-insensitive). Returns false when the string names no known role.
func RoleByName(name string) (Role, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for r, def := range roleDefinitions {
		if string(r) == lower || strings.ToLower(def.Name) == lower {
			return r, true
		}
	}
	return "", false
}
