package agent

import (
	"context"
	"testing"

	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(roles ...core.Role) (*Registry, map[core.Role]*model.MockModel) {
	r := NewRegistry()
	mocks := map[core.Role]*model.MockModel{}
	for _, role := range roles {
		m := model.NewMockModel("mock-"+string(role), "mock")
		mocks[role] = m
		r.Add(&Binding{Role: role, Model: m, ModelName: "mock-" + string(role)})
	}
	return r, mocks
}

func TestCall_ReturnsText(t *testing.T) {
	r, mocks := newTestRegistry(core.RoleBalanced)
	mocks[core.RoleBalanced].Script(core.AssistantMessage("hello from balanced"))

	out := r.Call(context.Background(), core.RoleBalanced, []core.Message{
		core.UserMessage("hi"),
	})
	assert.Equal(t, "hello from balanced", out)
}

func TestCall_MissingRoleIsErrorText(t *testing.T) {
	r, _ := newTestRegistry(core.RoleFast)

	out := r.Call(context.Background(), core.RoleStrongest, []core.Message{
		core.UserMessage("hi"),
	})
	assert.Contains(t, out, "Error:")
	assert.Contains(t, out, "strongest")
}

func TestCallWithTools_PreservesToolCalls(t *testing.T) {
	r, mocks := newTestRegistry(core.RoleStrongest)
	mocks[core.RoleStrongest].Script(core.Message{
		Role: core.ChatRoleAssistant,
		ToolCalls: []core.ToolCall{
			{ID: "call_1", Name: "write_file", Arguments: map[string]any{"path": "a.txt"}},
		},
	})

	msg := r.CallWithTools(context.Background(), core.RoleStrongest,
		[]core.Message{core.UserMessage("create a.txt")}, nil)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "write_file", msg.ToolCalls[0].Name)
}

func TestTryCallWithTools_SurfacesFailures(t *testing.T) {
	r, mocks := newTestRegistry(core.RoleFast)
	mocks[core.RoleFast].Script(core.AssistantMessage("all good"))

	msg, err := r.TryCallWithTools(context.Background(), core.RoleFast,
		[]core.Message{core.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "all good", msg.Content)

	_, err = r.TryCallWithTools(context.Background(), core.RoleStrongest,
		[]core.Message{core.UserMessage("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strongest")
}

func TestFirstAvailable_EscalationOrder(t *testing.T) {
	r, _ := newTestRegistry(core.RoleFast, core.RoleReasoning)

	// Preferred role wins when configured.
	b, ok := r.FirstAvailable(core.RoleReasoning)
	require.True(t, ok)
	assert.Equal(t, core.RoleReasoning, b.Role)

	// Unconfigured preference falls back to the strongest configured role.
	b, ok = r.FirstAvailable(core.RoleStrongest)
	require.True(t, ok)
	assert.Equal(t, core.RoleReasoning, b.Role)

	b, ok = r.Strongest()
	require.True(t, ok)
	assert.Equal(t, core.RoleReasoning, b.Role)
}

func TestFirstAvailable_EmptyRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.FirstAvailable(core.RoleFast)
	assert.False(t, ok)
}

func TestStatsRecorded(t *testing.T) {
	r, mocks := newTestRegistry(core.RoleFast)
	mocks[core.RoleFast].Script(core.AssistantMessage("quick answer"))

	r.Call(context.Background(), core.RoleFast, []core.Message{core.UserMessage("q")})

	snap := r.Stats().Snapshot()
	assert.Equal(t, 1, snap.TotalCalls)
	assert.Equal(t, 1, snap.CallsByRole[core.RoleFast])
}

func TestBusyFlagClearedAfterCall(t *testing.T) {
	r, mocks := newTestRegistry(core.RoleFast)
	mocks[core.RoleFast].Script(core.AssistantMessage("done"))

	r.Call(context.Background(), core.RoleFast, []core.Message{core.UserMessage("q")})

	b, _ := r.Get(core.RoleFast)
	assert.False(t, b.Busy())
}
