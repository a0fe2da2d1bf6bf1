package tool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Registry Tests --------------------

func TestRegistry_OrderAndDefinitions(t *testing.T) {
	r := NewRegistry()
	r.Register(&WriteFileTool{}, &ReadFileTool{}, &EditFileTool{})

	assert.Equal(t, []string{"write_file", "read_file", "edit_file"}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "write_file", defs[0].Name)
	assert.Equal(t, "read_file", defs[1].Name)
	assert.NotEmpty(t, defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "nonexistent", nil, t.TempDir())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
}

func TestRegistry_ObserverSeesSuccessfulCallsOnly(t *testing.T) {
	r := NewRegistry()
	r.Register(&WriteFileTool{}, &ReadFileTool{})

	var observed []string
	r.SetObserver(func(name string, args map[string]any, result Result) {
		observed = append(observed, name)
		assert.True(t, result.Success)
	})

	dir := t.TempDir()
	res := r.Execute(context.Background(), "write_file", map[string]any{"path": "a.txt", "content": "hi"}, dir)
	require.True(t, res.Success)

	res = r.Execute(context.Background(), "read_file", map[string]any{"path": "missing.txt"}, dir)
	require.False(t, res.Success)

	res = r.Execute(context.Background(), "nonexistent", nil, dir)
	require.False(t, res.Success)

	assert.Equal(t, []string{"write_file"}, observed)
}

func TestDefaultRegistry_ContainsBuiltins(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{"read_file", "write_file", "edit_file", "run_command", "fetch_url", "search_code"} {
		_, ok := r.Get(name)
		assert.True(t, ok, "missing builtin %s", name)
	}
}

// -------------------- File Tool Tests --------------------

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()

	res := (&WriteFileTool{}).Execute(context.Background(), map[string]any{
		"path":    "nested/hello.txt",
		"content": "line one\nline two\nline three",
	}, dir)
	require.True(t, res.Success, res.Error)

	res = (&ReadFileTool{}).Execute(context.Background(), map[string]any{
		"path": "nested/hello.txt",
	}, dir)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "1\tline one")
	assert.Contains(t, res.Output, "3\tline three")
}

func TestReadFile_OffsetLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("a\nb\nc\nd\ne"), 0o644))

	res := (&ReadFileTool{}).Execute(context.Background(), map[string]any{
		"path":   "f.txt",
		"offset": float64(2),
		"limit":  float64(2),
	}, dir)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "2\tb")
	assert.Contains(t, res.Output, "3\tc")
	assert.NotContains(t, res.Output, "4\td")
	assert.Contains(t, res.Output, "more lines")
}

func TestReadFile_Missing(t *testing.T) {
	res := (&ReadFileTool{}).Execute(context.Background(), map[string]any{
		"path": "missing.txt",
	}, t.TempDir())
	assert.False(t, res.Success)
}

func TestEditFile_ReplacesExactFragment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "code.go")
	require.NoError(t, os.WriteFile(path, []byte("func old() {}\nfunc old2() {}"), 0o644))

	res := (&EditFileTool{}).Execute(context.Background(), map[string]any{
		"path":       "code.go",
		"old_string": "func old() {}",
		"new_string": "func renamed() {}",
	}, dir)
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "func renamed() {}\nfunc old2() {}", string(data))
}

func TestEditFile_NotFoundFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code.go"), []byte("content"), 0o644))

	res := (&EditFileTool{}).Execute(context.Background(), map[string]any{
		"path":       "code.go",
		"old_string": "no such text",
		"new_string": "replacement",
	}, dir)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
}

func TestListDirectory_DirectoriesFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "zdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "afile.txt"), []byte("x"), 0o644))

	res := (&ListDirectoryTool{}).Execute(context.Background(), map[string]any{}, dir)
	require.True(t, res.Success, res.Error)
	assert.Less(t,
		strings.Index(res.Output, "zdir/"),
		strings.Index(res.Output, "afile.txt"),
	)
}

func TestSearchFiles_GlobAndSkipDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "dep.go"), []byte("package dep"), 0o644))

	res := (&SearchFilesTool{}).Execute(context.Background(), map[string]any{
		"pattern": "*.go",
	}, dir)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, filepath.Join("src", "main.go"))
	assert.NotContains(t, res.Output, "node_modules")
}

func TestMoveAndCopyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("payload"), 0o644))

	res := (&CopyFileTool{}).Execute(context.Background(), map[string]any{
		"source":      "a.txt",
		"destination": "copies/b.txt",
	}, dir)
	require.True(t, res.Success, res.Error)

	res = (&MoveFileTool{}).Execute(context.Background(), map[string]any{
		"source":      "a.txt",
		"destination": "moved/c.txt",
	}, dir)
	require.True(t, res.Success, res.Error)

	_, err := os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(dir, "copies", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDeleteFile_RefusesDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	res := (&DeleteFileTool{}).Execute(context.Background(), map[string]any{"path": "sub"}, dir)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "directory")
}

// -------------------- Command Tool Tests --------------------

func TestRunCommand_Success(t *testing.T) {
	res := (&RunCommandTool{}).Execute(context.Background(), map[string]any{
		"command": "echo hello",
	}, t.TempDir())
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "exit code 0")
	assert.Contains(t, res.Output, "hello")
}

func TestRunCommand_NonZeroExit(t *testing.T) {
	res := (&RunCommandTool{}).Execute(context.Background(), map[string]any{
		"command": "exit 3",
	}, t.TempDir())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "exit code 3")
}

// -------------------- Search Code Tests --------------------

func TestSearchCode_MatchWithContext(t *testing.T) {
	dir := t.TempDir()
	content := "alpha\nbeta\ntarget line\ndelta\nepsilon"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte(content), 0o644))

	res := (&SearchCodeTool{}).Execute(context.Background(), map[string]any{
		"pattern": "target",
	}, dir)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "f.txt:3")
	assert.Contains(t, res.Output, "beta")
	assert.Contains(t, res.Output, "delta")
	assert.NotContains(t, res.Output, "epsilon")
}

func TestSearchCode_InvalidRegex(t *testing.T) {
	res := (&SearchCodeTool{}).Execute(context.Background(), map[string]any{
		"pattern": "([",
	}, t.TempDir())
	assert.False(t, res.Success)
}

// -------------------- Result Tests --------------------

func TestResultText(t *testing.T) {
	assert.Equal(t, "fine", Ok("fine").Text())
	assert.Equal(t, "Error: broken: 42", Fail("broken: %d", 42).Text())
}
