package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/collab"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/model"
	"github.com/hupe1980/agenthive/plan"
	"github.com/hupe1980/agenthive/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubModel is a programmable backend that records call timing for barrier
// assertions.
type stubModel struct {
	mu      sync.Mutex
	calls   int
	starts  []time.Time
	ends    []time.Time
	delay   time.Duration
	respond func(call int) core.Message
}

func (m *stubModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.calls++
	call := m.calls
	m.starts = append(m.starts, time.Now())
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		msg := core.AssistantMessage("ok")
		if m.respond != nil {
			msg = m.respond(call)
		}
		m.mu.Lock()
		m.ends = append(m.ends, time.Now())
		m.mu.Unlock()
		respCh <- model.Response{Message: msg, FinishReason: "stop"}
	}()
	return respCh, errCh
}

func (m *stubModel) Info() model.Info {
	return model.Info{Name: "stub", Provider: "test", SupportsTools: true}
}

func (m *stubModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func plainText(text string) func(int) core.Message {
	return func(int) core.Message { return core.AssistantMessage(text) }
}

func alwaysToolCall() func(int) core.Message {
	return func(call int) core.Message {
		return core.Message{
			Role: core.ChatRoleAssistant,
			ToolCalls: []core.ToolCall{{
				ID:        fmt.Sprintf("call_%d", call),
				Name:      "list_directory",
				Arguments: map[string]any{},
			}},
		}
	}
}

func registryWith(bindings map[core.Role]model.Model) *agent.Registry {
	r := agent.NewRegistry()
	for role, m := range bindings {
		r.Add(&agent.Binding{Role: role, Model: m, ModelName: "stub"})
	}
	return r
}

func singleModulePlan(role core.Role) *plan.Plan {
	return &plan.Plan{
		Domain: "coding",
		Modules: []plan.ModuleSpec{
			{Name: "core", Description: "core logic", Interface: "the API", Role: role},
		},
		ExecutionOrder: [][]string{{"core"}},
	}
}

func TestParallel_InvalidPlanRejected(t *testing.T) {
	agents := registryWith(map[core.Role]model.Model{core.RoleBalanced: &stubModel{}})
	e := NewParallelEngine(agents, tool.NewRegistry())

	p := singleModulePlan(core.RoleBalanced)
	p.ExecutionOrder = [][]string{{"core", "ghost"}}

	_, _, err := e.Run(context.Background(), p, "req", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestParallel_OneCallCompletion(t *testing.T) {
	// A module whose agent answers with plain text on turn 1 completes with
	// exactly one module call and zero tool calls. The remaining calls are
	// the integration pass and its summary.
	m := &stubModel{respond: plainText("module implemented")}
	agents := registryWith(map[core.Role]model.Model{core.RoleBalanced: m})
	e := NewParallelEngine(agents, tool.NewRegistry())

	_, tasks, err := e.Run(context.Background(), singleModulePlan(core.RoleBalanced), "req", "")
	require.NoError(t, err)

	task := tasks["core"]
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "module implemented", task.Output)
	assert.Zero(t, task.ToolCalls)
	assert.Equal(t, 3, m.callCount(), "module + integration + summary")
}

func TestParallel_BatchBarrier(t *testing.T) {
	// m3 must not start before both m1 and m2 have reached a terminal state.
	m1 := &stubModel{delay: 30 * time.Millisecond, respond: plainText("done")}
	m2 := &stubModel{delay: 60 * time.Millisecond, respond: plainText("done")}
	m3 := &stubModel{respond: plainText("done")}

	agents := registryWith(map[core.Role]model.Model{
		core.RoleFast:      m1,
		core.RoleBalanced:  m2,
		core.RoleReasoning: m3,
	})
	e := NewParallelEngine(agents, tool.NewRegistry())

	p := &plan.Plan{
		Domain: "coding",
		Modules: []plan.ModuleSpec{
			{Name: "m1", Role: core.RoleFast},
			{Name: "m2", Role: core.RoleBalanced},
			{Name: "m3", Role: core.RoleReasoning},
		},
		ExecutionOrder: [][]string{{"m1", "m2"}, {"m3"}},
	}

	_, tasks, err := e.Run(context.Background(), p, "req", "")
	require.NoError(t, err)
	for _, name := range []string{"m1", "m2", "m3"} {
		assert.Equal(t, StatusCompleted, tasks[name].Status)
	}

	require.NotEmpty(t, m3.starts)
	m3Start := m3.starts[0]
	assert.False(t, m3Start.Before(m1.ends[0]), "m3 started before m1 finished")
	assert.False(t, m3Start.Before(m2.ends[0]), "m3 started before m2 finished")
}

func TestParallel_MaxIterationsThenSingleRepair(t *testing.T) {
	// The module agent requests tools every turn until the budget is gone;
	// the strongest agent then repairs it with one plain response.
	worker := &stubModel{respond: alwaysToolCall()}
	strongest := &stubModel{respond: plainText("repaired module")}

	agents := registryWith(map[core.Role]model.Model{
		core.RoleBalanced:  worker,
		core.RoleStrongest: strongest,
	})
	e := NewParallelEngine(agents, tool.NewRegistry(), func(o *ParallelOptions) {
		o.WorkingDir = t.TempDir()
	})
	// list_directory must exist so tool calls come back as results, not
	// unknown-tool errors ending the loop.
	e.tools.Register(&tool.ListDirectoryTool{})

	_, tasks, err := e.Run(context.Background(), singleModulePlan(core.RoleBalanced), "req", "")
	require.NoError(t, err)

	task := tasks["core"]
	assert.Equal(t, ModuleIterations, worker.callCount())
	assert.Contains(t, task.Issues, "max iterations exceeded")
	assert.True(t, task.Repaired)
	assert.Equal(t, StatusCompleted, task.Status)
	// Exactly one repair call; the other two are integration + summary.
	assert.Equal(t, 3, strongest.callCount())
}

func TestParallel_RepairFailureIsPermanent(t *testing.T) {
	worker := &stubModel{respond: alwaysToolCall()}
	// The repair attempt burns its whole budget on tool calls; the later
	// integration and summary calls still produce text.
	strongest := &stubModel{respond: func(call int) core.Message {
		if call <= RepairIterations {
			return alwaysToolCall()(call)
		}
		return core.AssistantMessage("integration report")
	}}

	agents := registryWith(map[core.Role]model.Model{
		core.RoleBalanced:  worker,
		core.RoleStrongest: strongest,
	})
	e := NewParallelEngine(agents, tool.NewRegistry(), func(o *ParallelOptions) {
		o.WorkingDir = t.TempDir()
	})
	e.tools.Register(&tool.ListDirectoryTool{})

	summary, tasks, err := e.Run(context.Background(), singleModulePlan(core.RoleBalanced), "req", "")
	require.NoError(t, err)

	task := tasks["core"]
	assert.Equal(t, StatusFailed, task.Status)
	assert.True(t, task.Repaired)
	assert.NotEmpty(t, summary, "session still produces a summary")
}

func TestParallel_HelpMarkerEscalation(t *testing.T) {
	call := 0
	worker := &stubModel{respond: func(int) core.Message {
		call++
		if call == 1 {
			return core.AssistantMessage("[REQUEST_HELP: fast] how do I parse the config")
		}
		return core.AssistantMessage("module finished with the advice")
	}}
	helper := &stubModel{respond: plainText("use the yaml loader")}

	agents := registryWith(map[core.Role]model.Model{
		core.RoleBalanced: worker,
		core.RoleFast:     helper,
	})
	e := NewParallelEngine(agents, tool.NewRegistry())

	_, tasks, err := e.Run(context.Background(), singleModulePlan(core.RoleBalanced), "req", "")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, tasks["core"].Status)
	assert.Equal(t, 1, helper.callCount())

	// The exchange is mirrored on the bus: the request was answered and the
	// feedback is addressed to the asking role.
	assert.Zero(t, e.State().PendingCount())
	msgs := e.State().MessagesFor(core.RoleBalanced)
	require.NotEmpty(t, msgs)
	assert.Equal(t, collab.MessageFeedback, msgs[len(msgs)-1].Type)
	assert.Equal(t, "use the yaml loader", msgs[len(msgs)-1].Content)
}

func TestParallel_ChecklistMirrorsStatus(t *testing.T) {
	m := &stubModel{respond: plainText("done")}
	agents := registryWith(map[core.Role]model.Model{core.RoleBalanced: m})

	p := singleModulePlan(core.RoleBalanced)
	checklist := plan.FromPlan(p)
	e := NewParallelEngine(agents, tool.NewRegistry(), func(o *ParallelOptions) {
		o.Checklist = checklist
	})

	_, _, err := e.Run(context.Background(), p, "req", "")
	require.NoError(t, err)

	items := checklist.Items()
	require.Len(t, items, 1)
	assert.Equal(t, plan.ItemCompleted, items[0].Status)
}

// -------------------- Sequential Engine Tests --------------------

func TestSequential_NoAgents(t *testing.T) {
	e := NewSequentialEngine(agent.NewRegistry(), tool.NewRegistry())
	_, err := e.Run(context.Background(), "fix the bug", "")
	assert.Error(t, err)
}

func TestSequential_PlanParsedAndKeywordStops(t *testing.T) {
	call := 0
	m := &stubModel{respond: func(int) core.Message {
		call++
		if call == 1 {
			return core.AssistantMessage("Analysis here.\nTODO: read the config loader\nTODO: fix the default value")
		}
		return core.AssistantMessage("Both steps are completed.")
	}}
	agents := registryWith(map[core.Role]model.Model{core.RoleReasoning: m})
	e := NewSequentialEngine(agents, tool.NewRegistry())

	out, err := e.Run(context.Background(), "fix the default", "")
	require.NoError(t, err)
	assert.Equal(t, "Both steps are completed.", out)
	assert.Equal(t, 2, e.Checklist().Len())
	// One planning call plus one execution turn.
	assert.Equal(t, 2, m.callCount())
}

func TestSequential_ExecutesToolCalls(t *testing.T) {
	dir := t.TempDir()
	call := 0
	m := &stubModel{respond: func(int) core.Message {
		call++
		switch call {
		case 1:
			return core.AssistantMessage("TODO: write the file")
		case 2:
			return core.Message{
				Role: core.ChatRoleAssistant,
				ToolCalls: []core.ToolCall{{
					ID:   "call_1",
					Name: "write_file",
					Arguments: map[string]any{
						"path":    "out.txt",
						"content": "patched",
					},
				}},
			}
		default:
			return core.AssistantMessage("The change is done.")
		}
	}}
	agents := registryWith(map[core.Role]model.Model{core.RoleStrongest: m})
	e := NewSequentialEngine(agents, tool.NewRegistry(), func(o *SequentialOptions) {
		o.WorkingDir = dir
	})
	e.tools.Register(&tool.WriteFileTool{})

	out, err := e.Run(context.Background(), "patch the file", "")
	require.NoError(t, err)
	assert.Equal(t, "The change is done.", out)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "patched", string(data))
}
