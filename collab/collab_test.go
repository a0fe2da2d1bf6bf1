package collab

import (
	"testing"

	"github.com/hupe1980/agenthive/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DirectedResponseRequired(t *testing.T) {
	s := NewState(0)

	req := NewHelpRequest(core.RoleBalanced, core.RoleStrongest, "stuck on auth flow")
	s.Broadcast(req)

	// Delivered to the target and held pending until answered.
	msgs := s.MessagesFor(core.RoleStrongest)
	require.Len(t, msgs, 1)
	assert.Equal(t, req.ID, msgs[0].ID)
	assert.True(t, s.PendingRequest(req.ID))

	// Not redelivered.
	assert.Empty(t, s.MessagesFor(core.RoleStrongest))

	ok := s.RespondTo(req.ID, NewMessage(core.RoleStrongest, "", MessageFeedback, "use the session token"))
	assert.True(t, ok)
	assert.False(t, s.PendingRequest(req.ID))

	// The response is routed back to the requester.
	replies := s.MessagesFor(core.RoleBalanced)
	require.Len(t, replies, 1)
	assert.Equal(t, req.ID, replies[0].ResponseTo)
	assert.Equal(t, core.RoleBalanced, replies[0].To)
}

func TestBus_BroadcastReachesEveryRoleOnce(t *testing.T) {
	s := NewState(0)
	s.Broadcast(NewDiscovery(core.RoleFast, "the config file moved"))

	for _, role := range core.Roles() {
		msgs := s.MessagesFor(role)
		require.Len(t, msgs, 1, "role %s should receive the broadcast", role)
		assert.Equal(t, "the config file moved", msgs[0].Content)
		assert.Empty(t, s.MessagesFor(role), "no redelivery for %s", role)
	}
	assert.Zero(t, s.PendingCount())
}

func TestBus_RespondToUnknownID(t *testing.T) {
	s := NewState(0)
	assert.False(t, s.RespondTo("nope", NewMessage(core.RoleFast, "", MessageFeedback, "x")))
}

func TestBus_DirectedWithoutResponseConsumed(t *testing.T) {
	s := NewState(0)
	s.Broadcast(NewTaskDelegation(core.RoleStrongest, core.RoleFast, "summarize logs", nil))

	assert.Empty(t, s.MessagesFor(core.RoleBalanced))
	require.Len(t, s.MessagesFor(core.RoleFast), 1)
	assert.Empty(t, s.MessagesFor(core.RoleFast))
	assert.Zero(t, s.PendingCount())
}

func TestTaskProgressBoard(t *testing.T) {
	s := NewState(0)
	s.CreateTask("core", core.RoleBalanced)
	s.CreateTask("ui", core.RoleFast)

	s.UpdateTask("core", TaskInProgress, 40)
	s.AddTaskIssue("core", "missing interface")
	s.AddTaskResult("core", "partial draft")
	s.UpdateTask("ui", TaskCompleted, 100)

	task, ok := s.Task("core")
	require.True(t, ok)
	assert.Equal(t, TaskInProgress, task.Status)
	assert.Equal(t, 40, task.Progress)
	assert.Equal(t, []string{"missing interface"}, task.Issues)
	assert.Equal(t, []string{"partial draft"}, task.SubResults)

	assert.Equal(t, []string{"core"}, s.ActiveTasks())

	// Updates to unknown tasks are ignored.
	s.UpdateTask("ghost", TaskCompleted, 100)
	assert.Len(t, s.Tasks(), 2)
}

func TestIterationCap(t *testing.T) {
	s := NewState(2)
	assert.True(t, s.IncrementIteration())
	assert.True(t, s.IncrementIteration())
	assert.False(t, s.IncrementIteration())
	assert.Equal(t, 3, s.Iterations())

	uncapped := NewState(0)
	for i := 0; i < 100; i++ {
		assert.True(t, uncapped.IncrementIteration())
	}
}

func TestMarkComplete(t *testing.T) {
	s := NewState(0)
	done, _ := s.Completed()
	assert.False(t, done)

	s.MarkComplete("all modules written")
	done, result := s.Completed()
	assert.True(t, done)
	assert.Equal(t, "all modules written", result)
}

func TestSummary(t *testing.T) {
	s := NewState(0)
	s.CreateTask("core", core.RoleBalanced)
	s.UpdateTask("core", TaskFailed, 10)
	s.AddTaskIssue("core", "max iterations exceeded")

	summary := s.Summary()
	assert.Contains(t, summary, "core [failed] 10%")
	assert.Contains(t, summary, "max iterations exceeded")
}

func TestParseHelpMarker(t *testing.T) {
	role, payload, ok := ParseHelpMarker("some output [REQUEST_HELP: strongest] need schema advice")
	require.True(t, ok)
	assert.Equal(t, core.RoleStrongest, role)
	assert.Equal(t, "need schema advice", payload)
}

func TestParseHelpMarker_StopsAtNextTag(t *testing.T) {
	role, payload, ok := ParseHelpMarker("[REQUEST_HELP: reasoning] check the loop [OTHER_TAG] trailing")
	require.True(t, ok)
	assert.Equal(t, core.RoleReasoning, role)
	assert.Equal(t, "check the loop", payload)
}

func TestParseHelpMarker_UnknownRole(t *testing.T) {
	_, _, ok := ParseHelpMarker("[REQUEST_HELP: quantum] anything")
	assert.False(t, ok)
}

func TestParseHelpMarker_NoMarker(t *testing.T) {
	_, _, ok := ParseHelpMarker("plain response with brackets [like this]")
	assert.False(t, ok)
	assert.False(t, ContainsHelpMarker("plain response"))
	assert.True(t, ContainsHelpMarker("x [REQUEST_HELP: fast] y"))
}
