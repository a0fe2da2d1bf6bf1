// Package agenthive provides a high-level façade over the multi-agent
// collaboration engine. Most applications interact with this package by:
//  1. Creating an AgentHive via New() (agents from the user config file, or
//     an explicit registry for tests and embedding)
//  2. Calling Collaborate() for the full routed workflow, or Dispatch() for
//     the lightweight classify-and-fan-out path
//  3. Polling Status() for progress while a session runs
//
// The façade delegates routing and execution to the coordinator package while
// keeping setup ergonomics concise. Defaults are safe for local use; the only
// required input is at least one configured model backend.
package agenthive

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/config"
	"github.com/hupe1980/agenthive/coordinator"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/dispatch"
	"github.com/hupe1980/agenthive/logging"
	"github.com/hupe1980/agenthive/tool"
)

// Options configures the AgentHive instance.
type Options struct {
	// ConfigPath points at the YAML config file. Defaults to ~/.agenthive.yaml.
	// Ignored when Agents is set.
	ConfigPath string

	// Agents overrides config-file loading with a prebuilt registry.
	Agents *agent.Registry

	// Tools defaults to the full builtin registry.
	Tools *tool.Registry

	// WorkingDir is the root for all file and command tools.
	WorkingDir string

	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// AgentHive is the high-level façade aggregating the coordinator and the
// dispatch orchestrator over one shared agent registry.
type AgentHive struct {
	agents      *agent.Registry
	tools       *tool.Registry
	coordinator *coordinator.Coordinator
	dispatcher  *dispatch.Orchestrator
}

// New creates a new AgentHive instance with optional overrides. Without an
// explicit registry the user config file supplies the agent bindings.
func New(optFns ...func(o *Options)) (*AgentHive, error) {
	opts := Options{
		ConfigPath: config.Path(),
		WorkingDir: ".",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrDefault(opts.Logger)

	agents := opts.Agents
	if agents == nil {
		cfg, err := config.LoadFromPath(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		agents, err = config.BuildRegistry(cfg, func(o *agent.RegistryOptions) {
			o.Logger = logger
		})
		if err != nil {
			return nil, err
		}
		if cfg.WorkingDir != "" && opts.WorkingDir == "." {
			opts.WorkingDir = cfg.WorkingDir
		}
	}
	if len(agents.Roles()) == 0 {
		return nil, fmt.Errorf("no agents configured; run init to create %s", opts.ConfigPath)
	}

	tools := opts.Tools
	if tools == nil {
		tools = tool.DefaultRegistry()
	}

	return &AgentHive{
		agents: agents,
		tools:  tools,
		coordinator: coordinator.New(agents, tools, func(o *coordinator.Options) {
			o.Logger = logger
			o.WorkingDir = opts.WorkingDir
		}),
		dispatcher: dispatch.NewOrchestrator(agents, tools, func(o *dispatch.OrchestratorOptions) {
			o.Logger = logger
			o.WorkingDir = opts.WorkingDir
		}),
	}, nil
}

// Collaborate routes one request through the full workflow (quick response,
// sequential maintenance or parallel creation) and returns the final text.
func (h *AgentHive) Collaborate(ctx context.Context, request string) (string, error) {
	return h.coordinator.Collaborate(ctx, request)
}

// Dispatch runs the lightweight keyword-scored fan-out path and returns the
// merged result.
func (h *AgentHive) Dispatch(ctx context.Context, request string) dispatch.AggregatedResult {
	return h.dispatcher.Process(ctx, request)
}

// Status returns a read-only snapshot of the running session.
func (h *AgentHive) Status() coordinator.Status {
	return h.coordinator.Status()
}

// Stats returns the session call counters.
func (h *AgentHive) Stats() core.StatsSnapshot {
	return h.coordinator.Stats()
}

// SetForceMode pins routing to one workflow. coordinator.ForceNone restores
// normal classification.
func (h *AgentHive) SetForceMode(mode coordinator.ForceMode) {
	h.coordinator.SetForceMode(mode)
}

// Agents exposes the underlying registry.
func (h *AgentHive) Agents() *agent.Registry { return h.agents }

// Tools exposes the underlying tool registry.
func (h *AgentHive) Tools() *tool.Registry { return h.tools }
