// Package collab provides the session-scoped coordination structures shared by
// concurrent agent workers: a message bus, per-task progress records, shared
// context, and iteration budgeting.
package collab

import (
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agenthive/core"
)

// MessageType classifies inter-agent messages on the bus.
type MessageType string

const (
	MessageRequestHelp      MessageType = "request_help"
	MessageShareDiscovery   MessageType = "share_discovery"
	MessageDelegateTask     MessageType = "delegate_task"
	MessageReportProgress   MessageType = "report_progress"
	MessageAskClarification MessageType = "ask_clarification"
	MessageValidateResult   MessageType = "validate_result"
	MessageFeedback         MessageType = "feedback"
	MessageHandoff          MessageType = "handoff"
)

// Priority orders messages for consumers that drain selectively.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// ModelMessage is one entry on the coordination bus. To is empty for
// broadcasts. RequiresResponse marks directed messages that stay pending
// until answered by id.
type ModelMessage struct {
	ID               string         `json:"id"`
	From             core.Role      `json:"from"`
	To               core.Role      `json:"to,omitempty"`
	Type             MessageType    `json:"type"`
	Content          string         `json:"content"`
	Context          map[string]any `json:"context,omitempty"`
	Priority         Priority       `json:"priority"`
	RequiresResponse bool           `json:"requires_response"`
	ResponseTo       string         `json:"response_to,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// NewMessage builds a bus message with a fresh id and timestamp.
func NewMessage(from core.Role, to core.Role, msgType MessageType, content string) ModelMessage {
	return ModelMessage{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Type:      msgType,
		Content:   content,
		Priority:  PriorityNormal,
		Timestamp: time.Now(),
	}
}

// NewHelpRequest builds a directed, response-required help request.
func NewHelpRequest(from, to core.Role, problem string) ModelMessage {
	msg := NewMessage(from, to, MessageRequestHelp, problem)
	msg.Priority = PriorityHigh
	msg.RequiresResponse = true
	return msg
}

// NewDiscovery broadcasts a finding to every role.
func NewDiscovery(from core.Role, finding string) ModelMessage {
	return NewMessage(from, "", MessageShareDiscovery, finding)
}

// NewTaskDelegation hands a named piece of work to another role.
func NewTaskDelegation(from, to core.Role, task string, context map[string]any) ModelMessage {
	msg := NewMessage(from, to, MessageDelegateTask, task)
	msg.Context = context
	msg.Priority = PriorityHigh
	return msg
}

// NewValidationResult reports a validation verdict back to the requesting role.
func NewValidationResult(from, to core.Role, verdict string, passed bool) ModelMessage {
	msg := NewMessage(from, to, MessageValidateResult, verdict)
	msg.Context = map[string]any{"passed": passed}
	return msg
}

// NewHandoff transfers ownership of remaining work to another role.
func NewHandoff(from, to core.Role, summary string, context map[string]any) ModelMessage {
	msg := NewMessage(from, to, MessageHandoff, summary)
	msg.Context = context
	msg.Priority = PriorityUrgent
	return msg
}
