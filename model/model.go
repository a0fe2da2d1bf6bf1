// Package model defines the backend boundary of the engine: a normalized
// request/response shape and the Model interface every provider adapter
// implements. Streaming is expressed as a channel of partial Response chunks
// (text, reasoning and tool-argument deltas) followed by one final chunk
// carrying the complete assistant message.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agenthive/core"
)

// ToolDefinition declaratively exposes a callable action to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the engine.
type Request struct {
	Messages    []core.Message   `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int64            `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolArgDelta is an incremental chunk of structured-action arguments keyed
// by the action name, emitted while a model streams a tool call.
type ToolArgDelta struct {
	Name  string `json:"name"`
	Chunk string `json:"chunk"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry at most one of the delta fields; the final chunk carries the full
// assistant Message and a finish reason.
type Response struct {
	Partial        bool          `json:"partial"`
	TextDelta      string        `json:"text_delta,omitempty"`
	ReasoningDelta string        `json:"reasoning_delta,omitempty"`
	ToolArgDelta   *ToolArgDelta `json:"tool_arg_delta,omitempty"`
	Message        core.Message  `json:"message"`
	FinishReason   string        `json:"finish_reason,omitempty"`
	Usage          *TokenUsage   `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Adapters must
// tolerate request fields they do not support (e.g. ignore Tools when the
// backend has no function calling).
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains the channels returned by Generate and returns the final
// assistant message. Partial chunks are accumulated so callers still get a
// usable message when a backend closes the stream without a final chunk.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error) (core.Message, error) {
	var (
		text      string
		reasoning string
		final     *core.Message
	)
	for {
		select {
		case <-ctx.Done():
			return core.Message{}, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				if final != nil {
					return *final, nil
				}
				select {
				case err := <-errCh:
					if err != nil {
						return core.Message{}, err
					}
				default:
				}
				return core.AssistantMessage(text), nil
			}
			if resp.Partial {
				text += resp.TextDelta
				reasoning += resp.ReasoningDelta
				continue
			}
			msg := resp.Message
			if msg.Content == "" && text != "" && len(msg.ToolCalls) == 0 {
				msg.Content = text
			}
			if msg.Reasoning == "" {
				msg.Reasoning = reasoning
			}
			final = &msg
		case err := <-errCh:
			if err != nil {
				return core.Message{}, err
			}
		}
	}
}

// MockModel is a lightweight in-memory Model useful for tests and examples.
// It matches the last user turn against registered prompts and replies with
// the canned message, or echoes the prompt when nothing matches. Scripted
// messages, when queued, take precedence and are returned in FIFO order.
type MockModel struct {
	info      Info
	responses map[string]core.Message

	// Parallel engine workers may share one mock, so the script queue is
	// locked.
	mu       sync.Mutex
	scripted []core.Message
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: make(map[string]core.Message),
	}
}

// AddResponse registers a deterministic canned text completion for a prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.responses[prompt] = core.AssistantMessage(response)
}

// Script queues messages returned in order regardless of input. Useful for
// driving multi-turn tool loops in tests.
func (m *MockModel) Script(msgs ...core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted = append(m.scripted, msgs...)
}

// nextScripted pops the head of the script queue.
func (m *MockModel) nextScripted() (core.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scripted) == 0 {
		return core.Message{}, false
	}
	msg := m.scripted[0]
	m.scripted = m.scripted[1:]
	return msg, true
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if msg, ok := m.nextScripted(); ok {
			respCh <- Response{Message: msg, FinishReason: "stop"}
			return
		}
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		var input string
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == core.ChatRoleUser {
				input = req.Messages[i].Content
				break
			}
		}
		msg, ok := m.responses[input]
		if !ok {
			msg = core.AssistantMessage(fmt.Sprintf("Mock response to: %s", input))
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Message: msg, FinishReason: "stop"}:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
