package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Role Tests --------------------

func TestRoleByName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Role
		ok   bool
	}{
		{"value", "fast", RoleFast, true},
		{"display name", "Reasoning", RoleReasoning, true},
		{"uppercase", "STRONGEST", RoleStrongest, true},
		{"padded", "  balanced  ", RoleBalanced, true},
		{"unknown", "turbo", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RoleByName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEscalationOrder(t *testing.T) {
	order := EscalationOrder()
	require.Len(t, order, len(Roles()))
	assert.Equal(t, RoleStrongest, order[0])
	assert.Equal(t, RoleFast, order[len(order)-1])
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, r.Valid())
	}
	assert.False(t, Role("turbo").Valid())
	assert.False(t, Role("").Valid())
}

func TestDefinition(t *testing.T) {
	def := Definition(RoleStrongest)
	assert.Equal(t, "Strongest", def.Name)
	assert.NotEmpty(t, def.PromptSuffix)
	assert.NotEmpty(t, def.Responsibilities)

	assert.Empty(t, Definition(Role("turbo")).Name)
}

// -------------------- Message Tests --------------------

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("rules")
	assert.Equal(t, ChatRoleSystem, sys.Role)

	user := UserMessage("hi")
	assert.Equal(t, ChatRoleUser, user.Role)
	assert.False(t, user.HasToolCalls())

	toolMsg := ToolMessage("call_1", "42 files")
	assert.Equal(t, ChatRoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "42 files", toolMsg.Content)

	withCalls := Message{
		Role:      ChatRoleAssistant,
		ToolCalls: []ToolCall{{ID: "c1", Name: "read_file"}},
	}
	assert.True(t, withCalls.HasToolCalls())
}

// -------------------- Stats Tests --------------------

func TestCallStats_RecordAndSnapshot(t *testing.T) {
	stats := NewCallStats()
	stats.Record(RoleFast, 100)
	stats.Record(RoleFast, 50)
	stats.Record(RoleStrongest, 200)

	snap := stats.Snapshot()
	assert.Equal(t, 3, snap.TotalCalls)
	assert.Equal(t, 2, snap.CallsByRole[RoleFast])
	assert.Equal(t, 1, snap.CallsByRole[RoleStrongest])
	assert.Equal(t, 350, snap.TokensEstimate)
}

func TestCallStats_SnapshotIsACopy(t *testing.T) {
	stats := NewCallStats()
	stats.Record(RoleFast, 0)

	snap := stats.Snapshot()
	snap.CallsByRole[RoleFast] = 99

	assert.Equal(t, 1, stats.Snapshot().CallsByRole[RoleFast])
}

func TestCallStats_Reset(t *testing.T) {
	stats := NewCallStats()
	stats.Record(RoleBalanced, 500)
	stats.Reset()

	snap := stats.Snapshot()
	assert.Zero(t, snap.TotalCalls)
	assert.Zero(t, snap.TokensEstimate)
	assert.Empty(t, snap.CallsByRole)
}

func TestCallStats_ConcurrentRecord(t *testing.T) {
	stats := NewCallStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.Record(RoleBalanced, 1)
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, 800, snap.TotalCalls)
	assert.Equal(t, 800, snap.TokensEstimate)
}

func TestCallStats_Summary(t *testing.T) {
	stats := NewCallStats()
	stats.Record(RoleFast, 120)
	stats.Record(RoleStrongest, 80)

	summary := stats.Summary()
	assert.Contains(t, summary, "backend calls: 2")
	assert.Contains(t, summary, "fast: 1")
	assert.Contains(t, summary, "~200")
}
