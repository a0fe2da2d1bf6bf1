package tool

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// maxCodeMatches caps search results so a broad pattern stays readable.
	maxCodeMatches = 50
	// codeContextLines is how many lines of context surround each match.
	codeContextLines = 2
)

// SearchCodeTool greps the working tree with a regular expression, returning
// matches with surrounding context lines.
type SearchCodeTool struct{}

func (t *SearchCodeTool) Name() string { return "search_code" }

func (t *SearchCodeTool) Description() string {
	return "Search file contents with a regular expression and return matching lines with context."
}

func (t *SearchCodeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern":      map[string]any{"type": "string", "description": "Regular expression to search for"},
			"path":         map[string]any{"type": "string", "description": "Directory to search (defaults to the working directory)"},
			"file_pattern": map[string]any{"type": "string", "description": "Glob limiting which file names are searched, e.g. *.go"},
		},
		"required": []string{"pattern"},
	}
}

func (t *SearchCodeTool) Execute(ctx context.Context, args map[string]any, workingDir string) Result {
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return Fail("pattern must not be empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Fail("invalid regular expression %q: %v", pattern, err)
	}
	root := resolvePath(workingDir, stringArg(args, "path"))
	filePattern := stringArg(args, "file_pattern")

	var b strings.Builder
	matches := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if filePattern != "" {
			if ok, _ := filepath.Match(filePattern, d.Name()); !ok {
				return nil
			}
		}
		if matches >= maxCodeMatches {
			return filepath.SkipAll
		}

		data, err := os.ReadFile(path)
		if err != nil || !isTextContent(data) {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			writeMatch(&b, rel, lines, i)
			matches++
			if matches >= maxCodeMatches {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return Fail("search failed under %s: %v", root, walkErr)
	}

	if matches == 0 {
		return Ok(fmt.Sprintf("No matches for %q under %s", pattern, root))
	}
	out := b.String()
	if matches >= maxCodeMatches {
		out += fmt.Sprintf("... (stopped after %d matches)\n", maxCodeMatches)
	}
	return Ok(out)
}

// writeMatch renders a single match with its context window.
func writeMatch(b *strings.Builder, rel string, lines []string, idx int) {
	start := idx - codeContextLines
	if start < 0 {
		start = 0
	}
	end := idx + codeContextLines
	if end >= len(lines) {
		end = len(lines) - 1
	}
	fmt.Fprintf(b, "%s:%d\n", rel, idx+1)
	for i := start; i <= end; i++ {
		marker := " "
		if i == idx {
			marker = ">"
		}
		fmt.Fprintf(b, "%s %4d | %s\n", marker, i+1, lines[i])
	}
	b.WriteString("\n")
}

// isTextContent filters out binary files by scanning for NUL bytes in the
// first kilobyte.
func isTextContent(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	for _, c := range data[:n] {
		if c == 0 {
			return false
		}
	}
	return true
}
