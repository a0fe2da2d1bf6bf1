// Package agent binds capability roles to model backends and provides the
// call surface the workflow engines use. Failures are converted into
// error-shaped content so a slow or broken backend degrades a conversation
// instead of crashing a session.
package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/logging"
	"github.com/hupe1980/agenthive/model"
)

// defaultCallTimeout bounds a single backend call when no override is set.
const defaultCallTimeout = 5 * time.Minute

// Binding pairs one role with a configured model backend.
type Binding struct {
	Role        core.Role
	Model       model.Model
	ModelName   string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration

	busy atomic.Bool
}

// Busy reports whether the binding currently has a call in flight.
func (b *Binding) Busy() bool { return b.busy.Load() }

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
	Stats  *core.CallStats
}

// Registry holds the agent bindings for one session, keyed by role. Lookups
// tolerate absent roles; capability selection walks the escalation order.
type Registry struct {
	bindings map[core.Role]*Binding
	logger   logging.Logger
	stats    *core.CallStats
}

// NewRegistry creates an empty registry. A nil stats counter is replaced with
// a fresh session-owned one.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Stats == nil {
		opts.Stats = core.NewCallStats()
	}
	return &Registry{
		bindings: map[core.Role]*Binding{},
		logger:   logging.OrDefault(opts.Logger),
		stats:    opts.Stats,
	}
}

// Add registers a binding, replacing any previous binding for the same role.
func (r *Registry) Add(b *Binding) {
	if b.Timeout <= 0 {
		b.Timeout = defaultCallTimeout
	}
	r.bindings[b.Role] = b
}

// Get returns the binding for a role.
func (r *Registry) Get(role core.Role) (*Binding, bool) {
	b, ok := r.bindings[role]
	return b, ok
}

// Has reports whether a role is configured.
func (r *Registry) Has(role core.Role) bool {
	_, ok := r.bindings[role]
	return ok
}

// Roles returns the configured roles in escalation order, strongest first.
func (r *Registry) Roles() []core.Role {
	var roles []core.Role
	for _, role := range core.EscalationOrder() {
		if r.Has(role) {
			roles = append(roles, role)
		}
	}
	return roles
}

// FirstAvailable returns the binding for the first configured role among the
// preferred list, falling back to the escalation order when none match.
func (r *Registry) FirstAvailable(preferred ...core.Role) (*Binding, bool) {
	for _, role := range preferred {
		if b, ok := r.bindings[role]; ok {
			return b, true
		}
	}
	for _, role := range core.EscalationOrder() {
		if b, ok := r.bindings[role]; ok {
			return b, true
		}
	}
	return nil, false
}

// Strongest returns the strongest configured binding.
func (r *Registry) Strongest() (*Binding, bool) {
	return r.FirstAvailable()
}

// Stats exposes the session call counters.
func (r *Registry) Stats() *core.CallStats { return r.stats }

// BusyRoles returns the busy flag per configured role.
func (r *Registry) BusyRoles() map[core.Role]bool {
	out := map[core.Role]bool{}
	for role, b := range r.bindings {
		out[role] = b.Busy()
	}
	return out
}

// Call sends a plain conversation to the role's backend and returns the final
// text. Backend errors come back as error-shaped text, not as a Go error, so
// callers can inject them into a running conversation.
func (r *Registry) Call(ctx context.Context, role core.Role, messages []core.Message) string {
	msg, err := r.generate(ctx, role, model.Request{Messages: messages})
	if err != nil {
		r.logger.Error("agent.call.failed", "role", string(role), "error", err.Error())
		return fmt.Sprintf("Error: %s", err)
	}
	return msg.Content
}

// CallWithTools sends a conversation plus a tool catalogue and returns the
// full assistant message including any tool calls. Backend errors produce an
// error-shaped assistant message.
func (r *Registry) CallWithTools(ctx context.Context, role core.Role, messages []core.Message, tools []model.ToolDefinition) core.Message {
	msg, err := r.TryCallWithTools(ctx, role, messages, tools)
	if err != nil {
		return core.AssistantMessage(fmt.Sprintf("Error: %s", err))
	}
	return msg
}

// TryCallWithTools is CallWithTools with the backend failure surfaced as a Go
// error. Call sites that track success explicitly use this instead of
// inspecting the message content.
func (r *Registry) TryCallWithTools(ctx context.Context, role core.Role, messages []core.Message, tools []model.ToolDefinition) (core.Message, error) {
	msg, err := r.generate(ctx, role, model.Request{Messages: messages, Tools: tools})
	if err != nil {
		r.logger.Error("agent.call.failed", "role", string(role), "error", err.Error())
		return core.Message{}, err
	}
	return msg, nil
}

func (r *Registry) generate(ctx context.Context, role core.Role, req model.Request) (core.Message, error) {
	b, ok := r.bindings[role]
	if !ok {
		return core.Message{}, fmt.Errorf("no agent configured for role %q", role)
	}

	if b.MaxTokens > 0 {
		req.MaxTokens = b.MaxTokens
	}
	if b.Temperature > 0 {
		req.Temperature = b.Temperature
	}

	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	b.busy.Store(true)
	defer b.busy.Store(false)

	start := time.Now()
	r.logger.Debug("agent.call.start", "role", string(role), "model", b.ModelName)

	respCh, errCh := b.Model.Generate(ctx, req)
	msg, err := model.Collect(ctx, respCh, errCh)
	if err != nil {
		return core.Message{}, err
	}

	r.stats.Record(role, estimateTokens(req, msg))
	r.logger.Debug("agent.call.done",
		"role", string(role),
		"duration_ms", time.Since(start).Milliseconds(),
		"tool_calls", len(msg.ToolCalls),
	)
	return msg, nil
}

// estimateTokens approximates token usage from message lengths when the
// backend reports none. Rough chars/4 heuristic, good enough for the session
// summary.
func estimateTokens(req model.Request, resp core.Message) int {
	chars := len(resp.Content)
	for _, m := range req.Messages {
		chars += len(m.Content)
	}
	return chars / 4
}
