package core

// ChatRole designates the author of a conversation turn.
type ChatRole string

const (
	// ChatRoleSystem marks instruction turns.
	ChatRoleSystem ChatRole = "system"
	// ChatRoleUser marks user (or engine-injected) turns.
	ChatRoleUser ChatRole = "user"
	// ChatRoleAssistant marks model output turns.
	ChatRoleAssistant ChatRole = "assistant"
	// ChatRoleTool marks tool result turns (paired with a tool call id).
	ChatRoleTool ChatRole = "tool"
)

// ToolCall is a structured action request surfaced by a model. Arguments are
// decoded into a generic map so downstream logic needs no per-provider
// branching.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one turn in a conversation with a model backend. Content may be
// empty on assistant turns carrying only tool calls. Reasoning holds optional
// provider "thinking" text and is never sent back to the model.
type Message struct {
	Role       ChatRole   `json:"role"`
	Content    string     `json:"content,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message {
	return Message{Role: ChatRoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: ChatRoleUser, Content: content}
}

// AssistantMessage builds an assistant turn with plain text content.
func AssistantMessage(content string) Message {
	return Message{Role: ChatRoleAssistant, Content: content}
}

// ToolMessage builds a tool result turn answering the given tool call id.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: ChatRoleTool, Content: content, ToolCallID: toolCallID}
}

// HasToolCalls reports whether the message carries structured action requests.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }
