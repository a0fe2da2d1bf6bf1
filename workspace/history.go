package workspace

import (
	"fmt"
	"strings"
	"sync"
)

// History records what a session has done to the workspace so later prompts
// can reference it. Tool executions report in from worker goroutines while
// context renderers read concurrently, so all access goes through the mutex.
type History struct {
	mu       sync.Mutex
	created  []string
	modified []string
	commands []string
}

// NewHistory creates an empty session history.
func NewHistory() *History {
	return &History{}
}

// FileCreated records a newly written file. Duplicates are ignored.
func (h *History) FileCreated(path string) {
	if path == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.created = appendUnique(h.created, path)
}

// FileModified records an edit to an existing file. Duplicates are ignored.
func (h *History) FileModified(path string) {
	if path == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.modified = appendUnique(h.modified, path)
}

// CommandRun records a shell command execution.
func (h *History) CommandRun(cmd string) {
	if cmd == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

// RecordTool translates a successful tool execution into history entries.
// It matches the tool.Observer signature's name and argument shape.
func (h *History) RecordTool(name string, args map[string]any) {
	path, _ := args["path"].(string)
	switch name {
	case "write_file":
		h.FileCreated(path)
	case "edit_file":
		h.FileModified(path)
	case "run_command":
		cmd, _ := args["command"].(string)
		h.CommandRun(cmd)
	}
}

// RecentFiles returns up to n touched files, most recent first, with files
// that were modified after creation listed once.
func (h *History) RecentFiles(n int) []string {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []string
	seen := map[string]bool{}
	add := func(paths []string) {
		for i := len(paths) - 1; i >= 0; i-- {
			if len(out) >= n {
				return
			}
			if !seen[paths[i]] {
				out = append(out, paths[i])
				seen[paths[i]] = true
			}
		}
	}
	add(h.modified)
	add(h.created)
	return out
}

// Summary renders the session activity block for prompts. An untouched
// session renders as the empty string.
func (h *History) Summary() string {
	if h == nil {
		return ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.created) == 0 && len(h.modified) == 0 && len(h.commands) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Session activity\n")
	if len(h.created) > 0 {
		fmt.Fprintf(&b, "Files created: %s\n", strings.Join(h.created, ", "))
	}
	if len(h.modified) > 0 {
		fmt.Fprintf(&b, "Files modified: %s\n", strings.Join(h.modified, ", "))
	}
	if len(h.commands) > 0 {
		fmt.Fprintf(&b, "Commands run: %d\n", len(h.commands))
	}
	return b.String()
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
