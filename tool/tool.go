// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (file access, shell commands, web fetches) with
// consistent error handling and rich metadata for LLM guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agenthive/model"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools can be registered with agents to enable function calling, allowing
// agents to perform actions beyond text generation such as filesystem edits,
// shell commands, web requests, or any other programmatic operations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Report failures through Result rather than panicking
//   - Be thread-safe if used concurrently
//   - Resolve relative paths against the provided working directory
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for LLM function calling.
	Parameters() map[string]any

	// Execute runs the tool with structured arguments inside workingDir.
	// Failures are reported through the Result, never as a Go error, so the
	// calling agent can relay them back to the model verbatim.
	Execute(ctx context.Context, args map[string]any, workingDir string) Result
}

// Result is the uniform outcome of a tool execution. Output carries the
// payload shown to the model on success; Error carries the failure text.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Text renders the result as the string fed back to the model.
func (r Result) Text() string {
	if r.Success {
		return r.Output
	}
	return fmt.Sprintf("Error: %s", r.Error)
}

// Ok builds a successful result.
func Ok(output string) Result { return Result{Success: true, Output: output} }

// Fail builds a failed result.
func Fail(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Observer is notified after every successful tool execution. It runs on the
// executing goroutine, so implementations must be safe for concurrent use.
type Observer func(name string, args map[string]any, result Result)

// Registry holds the set of tools exposed to agents, preserving registration
// order so tool definitions are presented to models deterministically.
type Registry struct {
	order    []string
	tools    map[string]Tool
	observer Observer
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

// DefaultRegistry returns a registry populated with the builtin filesystem,
// command, and web tools rooted conceptually at the session working directory.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(
		&ReadFileTool{},
		&WriteFileTool{},
		&EditFileTool{},
		&ListDirectoryTool{},
		&SearchFilesTool{},
		&SearchCodeTool{},
		&DeleteFileTool{},
		&CreateDirectoryTool{},
		&MoveFileTool{},
		&CopyFileTool{},
		&FileInfoTool{},
		&RunCommandTool{},
		&FetchURLTool{},
	)
	return r
}

// Register adds tools to the registry. Re-registering a name replaces the
// previous tool while keeping its original position.
func (r *Registry) Register(tools ...Tool) {
	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; !exists {
			r.order = append(r.order, t.Name())
		}
		r.tools[t.Name()] = t
	}
}

// SetObserver installs an observer invoked after each successful execution.
// Set it before handing the registry to agents; it is not guarded by a lock.
func (r *Registry) SetObserver(fn Observer) {
	r.observer = fn
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions converts the registered tools into model tool definitions, in
// registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute dispatches a call to the named tool. Unknown tool names fail like
// any other tool error so the model can correct itself on the next turn.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, workingDir string) Result {
	t, ok := r.tools[name]
	if !ok {
		return Fail("unknown tool %q", name)
	}
	result := t.Execute(ctx, args, workingDir)
	if r.observer != nil && result.Success {
		r.observer(name, args, result)
	}
	return result
}

// stringArg extracts a string argument, tolerating absent keys.
func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument, accepting the float64 shape JSON
// decoding produces.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
