package collab

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agenthive/core"
)

// TaskStatus tracks one named task on the shared progress board.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskNeedsHelp  TaskStatus = "needs_help"
)

// TaskProgress is the shared progress record for one named task.
type TaskProgress struct {
	Name       string     `json:"name"`
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"` // 0-100
	Owner      core.Role  `json:"owner,omitempty"`
	SubResults []string   `json:"sub_results,omitempty"`
	Issues     []string   `json:"issues,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// queuedMessage wraps a bus entry with per-role delivery tracking so a
// broadcast reaches each role exactly once.
type queuedMessage struct {
	msg         ModelMessage
	deliveredTo map[core.Role]bool
}

// State is the session-scoped coordination hub shared by concurrent workers.
// The message bus and pending map are guarded by a mutex because multiple
// workers enqueue and drain concurrently; task records are keyed so each
// worker writes only its own entry, but access still goes through the lock
// for read consistency.
type State struct {
	mu sync.Mutex

	queue   []*queuedMessage
	pending map[string]ModelMessage

	tasks     map[string]*TaskProgress
	taskOrder []string

	shared map[string]any

	iterations   int
	iterationCap int
	completed    bool
	finalResult  string
	sessionStart time.Time
}

// NewState creates a fresh coordination state with the given global iteration
// cap (<=0 disables the cap).
func NewState(iterationCap int) *State {
	return &State{
		pending:      map[string]ModelMessage{},
		tasks:        map[string]*TaskProgress{},
		shared:       map[string]any{},
		iterationCap: iterationCap,
		sessionStart: time.Now(),
	}
}

// Broadcast appends a message to the bus. Directed messages that require a
// response are also indexed as pending until RespondTo resolves them by id.
func (s *State) Broadcast(msg ModelMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, &queuedMessage{
		msg:         msg,
		deliveredTo: map[core.Role]bool{},
	})
	if msg.RequiresResponse && msg.To != "" {
		s.pending[msg.ID] = msg
	}
}

// MessagesFor returns every undelivered message addressed to role or to
// nobody. Directed messages are consumed on delivery; broadcasts stay queued
// so other roles still receive them, but never reach the same role twice.
// A directed message that requires a response stays pending until RespondTo
// is called with its id.
func (s *State) MessagesFor(role core.Role) []ModelMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ModelMessage
	remaining := s.queue[:0]
	for _, qm := range s.queue {
		switch {
		case qm.msg.To == role:
			out = append(out, qm.msg)
		case qm.msg.To == "":
			if !qm.deliveredTo[role] {
				qm.deliveredTo[role] = true
				out = append(out, qm.msg)
			}
			remaining = append(remaining, qm)
		default:
			remaining = append(remaining, qm)
		}
	}
	s.queue = remaining
	return out
}

// RespondTo resolves a pending request by id and enqueues the response. It
// reports false when no pending request with that id exists.
func (s *State) RespondTo(id string, response ModelMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)

	response.ResponseTo = id
	if response.To == "" {
		response.To = original.From
	}
	s.queue = append(s.queue, &queuedMessage{
		msg:         response,
		deliveredTo: map[core.Role]bool{},
	})
	return true
}

// PendingRequest reports whether a message id is still awaiting a response.
func (s *State) PendingRequest(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[id]
	return ok
}

// PendingCount returns the number of unresolved response-required messages.
func (s *State) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// CreateTask registers a named task on the progress board. Re-creating an
// existing name resets it.
func (s *State) CreateTask(name string, owner core.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; !exists {
		s.taskOrder = append(s.taskOrder, name)
	}
	s.tasks[name] = &TaskProgress{
		Name:      name,
		Status:    TaskPending,
		Owner:     owner,
		UpdatedAt: time.Now(),
	}
}

// UpdateTask sets status and progress for a named task. Unknown names are
// ignored so a worker's late update cannot corrupt the board.
func (s *State) UpdateTask(name string, status TaskStatus, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[name]
	if !ok {
		return
	}
	task.Status = status
	if progress >= 0 && progress <= 100 {
		task.Progress = progress
	}
	task.UpdatedAt = time.Now()
}

// AddTaskResult appends an intermediate result to a task's record.
func (s *State) AddTaskResult(name, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[name]; ok {
		task.SubResults = append(task.SubResults, result)
		task.UpdatedAt = time.Now()
	}
}

// AddTaskIssue records a problem against a named task.
func (s *State) AddTaskIssue(name, issue string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[name]; ok {
		task.Issues = append(task.Issues, issue)
		task.UpdatedAt = time.Now()
	}
}

// Task returns a copy of one task record.
func (s *State) Task(name string) (TaskProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[name]
	if !ok {
		return TaskProgress{}, false
	}
	return *task, true
}

// Tasks returns copies of all task records in creation order.
func (s *State) Tasks() []TaskProgress {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskProgress, 0, len(s.taskOrder))
	for _, name := range s.taskOrder {
		out = append(out, *s.tasks[name])
	}
	return out
}

// ActiveTasks returns the names of tasks not yet terminal.
func (s *State) ActiveTasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for _, name := range s.taskOrder {
		switch s.tasks[name].Status {
		case TaskCompleted, TaskFailed:
		default:
			names = append(names, name)
		}
	}
	return names
}

// SetShared stores a value in the session-wide shared context.
func (s *State) SetShared(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared[key] = value
}

// Shared retrieves a value from the session-wide shared context.
func (s *State) Shared(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.shared[key]
	return v, ok
}

// IncrementIteration bumps the global iteration counter and reports whether
// the session is still under its cap.
func (s *State) IncrementIteration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.iterations++
	if s.iterationCap <= 0 {
		return true
	}
	return s.iterations <= s.iterationCap
}

// Iterations returns the iteration count so far.
func (s *State) Iterations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

// MarkComplete records the final session result.
func (s *State) MarkComplete(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.finalResult = result
}

// Completed reports the completion flag and final result.
func (s *State) Completed() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.finalResult
}

// Elapsed returns the wall-clock time since the session started.
func (s *State) Elapsed() time.Duration {
	return time.Since(s.sessionStart)
}

// Summary renders a human-readable snapshot of the progress board.
func (s *State) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Tasks: %d, iterations: %d, pending requests: %d\n",
		len(s.tasks), s.iterations, len(s.pending))

	counts := map[TaskStatus]int{}
	for _, task := range s.tasks {
		counts[task.Status]++
	}
	statuses := make([]string, 0, len(counts))
	for status, n := range counts {
		statuses = append(statuses, fmt.Sprintf("%s=%d", status, n))
	}
	sort.Strings(statuses)
	if len(statuses) > 0 {
		fmt.Fprintf(&b, "Status: %s\n", strings.Join(statuses, " "))
	}

	for _, name := range s.taskOrder {
		task := s.tasks[name]
		fmt.Fprintf(&b, "- %s [%s] %d%%", task.Name, task.Status, task.Progress)
		if len(task.Issues) > 0 {
			fmt.Fprintf(&b, " issues: %s", strings.Join(task.Issues, "; "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
