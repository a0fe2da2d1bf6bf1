package tool

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// defaultCommandTimeout bounds shell commands that give no explicit timeout.
	defaultCommandTimeout = 60 * time.Second
	// maxCommandOutput truncates runaway command output before it reaches the model.
	maxCommandOutput = 20000
)

// RunCommandTool executes a shell command inside the working directory with a
// hard timeout. Stdout and stderr are combined; a non-zero exit code is
// reported as a failure with the captured output attached.
type RunCommandTool struct{}

func (t *RunCommandTool) Name() string { return "run_command" }

func (t *RunCommandTool) Description() string {
	return "Run a shell command in the working directory and return its combined output."
}

func (t *RunCommandTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "Shell command to execute"},
			"timeout": map[string]any{"type": "integer", "description": "Timeout in seconds (default 60)"},
		},
		"required": []string{"command"},
	}
}

func (t *RunCommandTool) Execute(ctx context.Context, args map[string]any, workingDir string) Result {
	command := stringArg(args, "command")
	if strings.TrimSpace(command) == "" {
		return Fail("command must not be empty")
	}

	timeout := defaultCommandTimeout
	if secs := intArg(args, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workingDir

	output, err := cmd.CombinedOutput()
	text := string(output)
	if len(text) > maxCommandOutput {
		text = text[:maxCommandOutput] + "\n... (output truncated)"
	}

	if ctx.Err() == context.DeadlineExceeded {
		return Fail("command timed out after %s: %s", timeout, command)
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Fail("exit code %d\n%s", exitErr.ExitCode(), text)
		}
		return Fail("command failed: %v", err)
	}
	if text == "" {
		text = "(no output)"
	}
	return Ok(fmt.Sprintf("exit code 0\n%s", text))
}
