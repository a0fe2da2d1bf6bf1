package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/agenthive/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_FinalChunk(t *testing.T) {
	respCh := make(chan Response, 2)
	errCh := make(chan error)
	respCh <- Response{Message: core.AssistantMessage("done"), FinishReason: "stop"}
	close(respCh)
	close(errCh)

	msg, err := Collect(context.Background(), respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, "done", msg.Content)
}

func TestCollect_AccumulatesPartials(t *testing.T) {
	respCh := make(chan Response, 4)
	errCh := make(chan error)
	respCh <- Response{Partial: true, TextDelta: "Hello, "}
	respCh <- Response{Partial: true, TextDelta: "world"}
	respCh <- Response{Message: core.Message{Role: core.ChatRoleAssistant}, FinishReason: "stop"}
	close(respCh)
	close(errCh)

	msg, err := Collect(context.Background(), respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", msg.Content)
}

func TestCollect_StreamClosedWithoutFinal(t *testing.T) {
	respCh := make(chan Response, 2)
	errCh := make(chan error, 1)
	respCh <- Response{Partial: true, TextDelta: "partial answer"}
	close(respCh)
	close(errCh)

	msg, err := Collect(context.Background(), respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, core.ChatRoleAssistant, msg.Role)
	assert.Equal(t, "partial answer", msg.Content)
}

func TestCollect_BackendError(t *testing.T) {
	respCh := make(chan Response)
	errCh := make(chan error, 1)
	errCh <- errors.New("rate limited")

	_, err := Collect(context.Background(), respCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestCollect_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, make(chan Response), make(chan error))
	assert.ErrorIs(t, err, context.Canceled)
}

func generate(t *testing.T, m Model, req Request) core.Message {
	t.Helper()
	respCh, errCh := m.Generate(context.Background(), req)
	msg, err := Collect(context.Background(), respCh, errCh)
	require.NoError(t, err)
	return msg
}

func TestMockModel_PromptMatching(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("ping", "pong")

	msg := generate(t, m, Request{Messages: []core.Message{core.UserMessage("ping")}})
	assert.Equal(t, "pong", msg.Content)

	msg = generate(t, m, Request{Messages: []core.Message{core.UserMessage("unregistered")}})
	assert.Contains(t, msg.Content, "Mock response to: unregistered")
}

func TestMockModel_ScriptTakesPrecedence(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("ping", "pong")
	m.Script(core.AssistantMessage("first"), core.AssistantMessage("second"))

	req := Request{Messages: []core.Message{core.UserMessage("ping")}}

	assert.Equal(t, "first", generate(t, m, req).Content)
	assert.Equal(t, "second", generate(t, m, req).Content)

	// Script exhausted, prompt matching resumes.
	assert.Equal(t, "pong", generate(t, m, req).Content)
}
