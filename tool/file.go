package tool

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// maxReadLines caps how many lines a single read_file call returns.
	maxReadLines = 2000
	// maxLineLength truncates pathological single lines before numbering.
	maxLineLength = 2000
)

// resolvePath resolves a possibly relative path against the working directory.
func resolvePath(workingDir, path string) string {
	if path == "" {
		return workingDir
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(workingDir, path)
}

// ReadFileTool reads a file and returns its content with line numbers,
// supporting offset/limit windows for large files.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a file and return its content with line numbers. Use offset and limit to window large files."
}

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":   map[string]any{"type": "string", "description": "Path of the file to read"},
			"offset": map[string]any{"type": "integer", "description": "1-based line number to start from"},
			"limit":  map[string]any{"type": "integer", "description": "Maximum number of lines to return"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	data, err := os.ReadFile(path)
	if err != nil {
		return Fail("cannot read %s: %v", path, err)
	}

	lines := strings.Split(string(data), "\n")
	offset := intArg(args, "offset", 1)
	if offset < 1 {
		offset = 1
	}
	limit := intArg(args, "limit", maxReadLines)
	if limit < 1 || limit > maxReadLines {
		limit = maxReadLines
	}
	if offset > len(lines) {
		return Fail("offset %d is past the end of %s (%d lines)", offset, path, len(lines))
	}

	end := offset - 1 + limit
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	for i := offset - 1; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "..."
		}
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, line)
	}
	if end < len(lines) {
		fmt.Fprintf(&b, "... (%d more lines)\n", len(lines)-end)
	}
	return Ok(b.String())
}

// WriteFileTool creates or overwrites a file, creating parent directories as
// needed.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Create or overwrite a file with the given content. Parent directories are created automatically."
}

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path of the file to write"},
			"content": map[string]any{"type": "string", "description": "Full content to write"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	content := stringArg(args, "content")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Fail("cannot create parent directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return Fail("cannot write %s: %v", path, err)
	}
	return Ok(fmt.Sprintf("Wrote %d bytes to %s", len(content), path))
}

// EditFileTool replaces an exact literal substring in a file. A missing
// old_string is reported as a failure so the model can re-read and retry.
type EditFileTool struct{}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Replace an exact text fragment in a file. The old text must match the file content literally."
}

func (t *EditFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":       map[string]any{"type": "string", "description": "Path of the file to edit"},
			"old_string": map[string]any{"type": "string", "description": "Exact text to replace"},
			"new_string": map[string]any{"type": "string", "description": "Replacement text"},
		},
		"required": []string{"path", "old_string", "new_string"},
	}
}

func (t *EditFileTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	oldString := stringArg(args, "old_string")
	newString := stringArg(args, "new_string")

	if oldString == "" {
		return Fail("old_string must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Fail("cannot read %s: %v", path, err)
	}
	content := string(data)
	if !strings.Contains(content, oldString) {
		return Fail("old_string not found in %s; re-read the file and retry with the exact text", path)
	}

	updated := strings.Replace(content, oldString, newString, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return Fail("cannot write %s: %v", path, err)
	}
	return Ok(fmt.Sprintf("Edited %s", path))
}

// ListDirectoryTool lists directory entries, directories first.
type ListDirectoryTool struct{}

func (t *ListDirectoryTool) Name() string { return "list_directory" }

func (t *ListDirectoryTool) Description() string {
	return "List the entries of a directory. Directories are suffixed with a slash."
}

func (t *ListDirectoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory to list (defaults to the working directory)"},
		},
	}
}

func (t *ListDirectoryTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	entries, err := os.ReadDir(path)
	if err != nil {
		return Fail("cannot list %s: %v", path, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&b, "%s/\n", e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			fmt.Fprintf(&b, "%s\n", e.Name())
			continue
		}
		fmt.Fprintf(&b, "%s (%d bytes)\n", e.Name(), info.Size())
	}
	if b.Len() == 0 {
		return Ok(fmt.Sprintf("%s is empty", path))
	}
	return Ok(b.String())
}

// SearchFilesTool finds files matching a glob pattern under a directory tree.
type SearchFilesTool struct{}

func (t *SearchFilesTool) Name() string { return "search_files" }

func (t *SearchFilesTool) Description() string {
	return "Find files whose name matches a glob pattern, searching recursively."
}

func (t *SearchFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Glob pattern matched against file names, e.g. *.go"},
			"path":    map[string]any{"type": "string", "description": "Directory to search (defaults to the working directory)"},
		},
		"required": []string{"pattern"},
	}
}

func (t *SearchFilesTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return Fail("pattern must not be empty")
	}
	root := resolvePath(workingDir, stringArg(args, "path"))

	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return Fail("search failed under %s: %v", root, err)
	}
	if len(matches) == 0 {
		return Ok(fmt.Sprintf("No files matching %q under %s", pattern, root))
	}
	sort.Strings(matches)
	return Ok(strings.Join(matches, "\n"))
}

// DeleteFileTool removes a single file.
type DeleteFileTool struct{}

func (t *DeleteFileTool) Name() string { return "delete_file" }

func (t *DeleteFileTool) Description() string {
	return "Delete a file. Directories cannot be deleted with this tool."
}

func (t *DeleteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the file to delete"},
		},
		"required": []string{"path"},
	}
}

func (t *DeleteFileTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	info, err := os.Stat(path)
	if err != nil {
		return Fail("cannot delete %s: %v", path, err)
	}
	if info.IsDir() {
		return Fail("%s is a directory", path)
	}
	if err := os.Remove(path); err != nil {
		return Fail("cannot delete %s: %v", path, err)
	}
	return Ok(fmt.Sprintf("Deleted %s", path))
}

// CreateDirectoryTool creates a directory tree.
type CreateDirectoryTool struct{}

func (t *CreateDirectoryTool) Name() string { return "create_directory" }

func (t *CreateDirectoryTool) Description() string {
	return "Create a directory, including any missing parents."
}

func (t *CreateDirectoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Directory path to create"},
		},
		"required": []string{"path"},
	}
}

func (t *CreateDirectoryTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Fail("cannot create %s: %v", path, err)
	}
	return Ok(fmt.Sprintf("Created %s", path))
}

// MoveFileTool renames or moves a file.
type MoveFileTool struct{}

func (t *MoveFileTool) Name() string { return "move_file" }

func (t *MoveFileTool) Description() string {
	return "Move or rename a file. Parent directories of the destination are created automatically."
}

func (t *MoveFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":      map[string]any{"type": "string", "description": "Current path"},
			"destination": map[string]any{"type": "string", "description": "New path"},
		},
		"required": []string{"source", "destination"},
	}
}

func (t *MoveFileTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	src := resolvePath(workingDir, stringArg(args, "source"))
	dst := resolvePath(workingDir, stringArg(args, "destination"))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Fail("cannot create parent directory for %s: %v", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return Fail("cannot move %s to %s: %v", src, dst, err)
	}
	return Ok(fmt.Sprintf("Moved %s to %s", src, dst))
}

// CopyFileTool copies a single file.
type CopyFileTool struct{}

func (t *CopyFileTool) Name() string { return "copy_file" }

func (t *CopyFileTool) Description() string {
	return "Copy a file to a new location. Parent directories of the destination are created automatically."
}

func (t *CopyFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source":      map[string]any{"type": "string", "description": "File to copy"},
			"destination": map[string]any{"type": "string", "description": "Destination path"},
		},
		"required": []string{"source", "destination"},
	}
}

func (t *CopyFileTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	src := resolvePath(workingDir, stringArg(args, "source"))
	dst := resolvePath(workingDir, stringArg(args, "destination"))

	in, err := os.Open(src)
	if err != nil {
		return Fail("cannot open %s: %v", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Fail("cannot create parent directory for %s: %v", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return Fail("cannot create %s: %v", dst, err)
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return Fail("copy from %s to %s failed: %v", src, dst, err)
	}
	return Ok(fmt.Sprintf("Copied %d bytes from %s to %s", n, src, dst))
}

// FileInfoTool reports metadata about a file or directory.
type FileInfoTool struct{}

func (t *FileInfoTool) Name() string { return "file_info" }

func (t *FileInfoTool) Description() string {
	return "Show size, type, permissions and modification time of a file or directory."
}

func (t *FileInfoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{"type": "string", "description": "Path to inspect"},
		},
		"required": []string{"path"},
	}
}

func (t *FileInfoTool) Execute(_ context.Context, args map[string]any, workingDir string) Result {
	path := resolvePath(workingDir, stringArg(args, "path"))
	info, err := os.Stat(path)
	if err != nil {
		return Fail("cannot stat %s: %v", path, err)
	}
	kind := "file"
	if info.IsDir() {
		kind = "directory"
	}
	return Ok(fmt.Sprintf(
		"%s\ntype: %s\nsize: %d bytes\nmode: %s\nmodified: %s",
		path, kind, info.Size(), info.Mode(), info.ModTime().Format("2006-01-02 15:04:05"),
	))
}

// skipDir reports whether a directory should be excluded from recursive scans.
func skipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", "__pycache__", ".venv", "dist", "build", ".idea", ".vscode":
		return true
	}
	return false
}
