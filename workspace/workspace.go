// Package workspace builds the project context injected into model prompts: a
// prioritized inventory of the source files under the working directory plus a
// session history of what the agents created, changed, and ran. File bodies
// are only read when a renderer embeds them, so scanning stays cheap even on
// large trees.
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// maxScanFiles caps how many files a scan keeps after prioritization.
	maxScanFiles = 200
	// maxFileBytes caps the content embedded for a single file.
	maxFileBytes = 30000
	// MaxContextBytes caps a fully rendered context.
	MaxContextBytes = 80000
	// listedFiles caps the inventory shown in the lightweight summary.
	listedFiles = 30
	// embeddedFiles caps how many file bodies a full context includes.
	embeddedFiles = 10
)

// languageByExt maps file extensions to the language label shown to models.
var languageByExt = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".rb":    "Ruby",
	".rs":    "Rust",
	".java":  "Java",
	".kt":    "Kotlin",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".swift": "Swift",
	".sh":    "Shell",
	".sql":   "SQL",
	".html":  "HTML",
	".css":   "CSS",
	".scss":  "CSS",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".toml":  "TOML",
	".md":    "Markdown",
	".txt":   "Text",
}

// priorityByExt orders the inventory so source code outranks config, which
// outranks docs. Unlisted extensions sort last.
var priorityByExt = map[string]int{
	".go":   1,
	".py":   1,
	".rs":   1,
	".js":   2,
	".ts":   2,
	".tsx":  2,
	".jsx":  2,
	".json": 3,
	".yaml": 3,
	".yml":  3,
	".toml": 3,
	".md":   4,
	".html": 5,
	".css":  5,
}

// ignoredDirs are never descended into during a scan.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"coverage":     true,
	"__pycache__":  true,
	"venv":         true,
}

// FileInfo describes one scanned file, with Path relative to the scan root.
type FileInfo struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Size     int64  `json:"size"`
}

// Context is the result of scanning a working directory. It is immutable once
// built; rescan to pick up filesystem changes.
type Context struct {
	root    string
	files   []FileInfo
	history *History
}

// Scan walks root and builds a prioritized file inventory. Hidden and ignored
// directories are skipped, and only files with a recognized extension are
// kept. history may be nil.
func Scan(root string, history *History) (*Context, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}

	var files []FileInfo
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees degrade the inventory, not the scan.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if ignoredDirs[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		lang, ok := languageByExt[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:     filepath.ToSlash(rel),
			Language: lang,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan workspace: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		pi, pj := priority(files[i].Path), priority(files[j].Path)
		if pi != pj {
			return pi < pj
		}
		if files[i].Size != files[j].Size {
			return files[i].Size > files[j].Size
		}
		return files[i].Path < files[j].Path
	})
	if len(files) > maxScanFiles {
		files = files[:maxScanFiles]
	}

	return &Context{root: root, files: files, history: history}, nil
}

func priority(path string) int {
	if p, ok := priorityByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return p
	}
	return 6
}

// Files returns the scanned inventory in priority order.
func (c *Context) Files() []FileInfo {
	out := make([]FileInfo, len(c.files))
	copy(out, c.files)
	return out
}

// Lightweight renders the inventory summary used for routing and quick
// answers: a capped file listing plus the session activity summary.
func (c *Context) Lightweight() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Workspace: %s\n", filepath.Base(absOrSelf(c.root)))
	if len(c.files) == 0 {
		b.WriteString("No recognized source files.\n")
	} else {
		fmt.Fprintf(&b, "%d source files\n\n", len(c.files))
		for i, f := range c.files {
			if i == listedFiles {
				fmt.Fprintf(&b, "... and %d more files\n", len(c.files)-listedFiles)
				break
			}
			fmt.Fprintf(&b, "- %s (%s, %s)\n", f.Path, f.Language, formatSize(f.Size))
		}
	}
	if summary := c.history.Summary(); summary != "" {
		b.WriteString("\n")
		b.WriteString(summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Full renders the planning context: the lightweight summary followed by the
// contents of the most relevant files. Files the session already touched come
// first, then the top of the priority order, until maxBytes is spent.
func (c *Context) Full(maxBytes int) string {
	if maxBytes <= 0 || maxBytes > MaxContextBytes {
		maxBytes = MaxContextBytes
	}

	var b strings.Builder
	b.WriteString(c.Lightweight())

	selected := c.selectForEmbedding()
	if len(selected) == 0 {
		return b.String()
	}

	b.WriteString("\n\n## Key file contents\n")
	embedded := 0
	for _, f := range selected {
		content, ok := c.readCapped(f.Path)
		if !ok {
			continue
		}
		block := fmt.Sprintf("\n### %s\n```%s\n%s\n```\n", f.Path, strings.ToLower(f.Language), content)
		if b.Len()+len(block) > maxBytes {
			break
		}
		b.WriteString(block)
		embedded++
	}
	if skipped := len(selected) - embedded; skipped > 0 {
		fmt.Fprintf(&b, "\n(%d more files not shown)\n", skipped)
	}
	return strings.TrimRight(b.String(), "\n")
}

// selectForEmbedding picks session-touched files first, then fills up with the
// highest-priority inventory entries.
func (c *Context) selectForEmbedding() []FileInfo {
	byPath := make(map[string]FileInfo, len(c.files))
	for _, f := range c.files {
		byPath[f.Path] = f
	}

	var selected []FileInfo
	seen := map[string]bool{}
	for _, path := range c.history.RecentFiles(embeddedFiles) {
		if f, ok := byPath[filepath.ToSlash(path)]; ok && !seen[f.Path] {
			selected = append(selected, f)
			seen[f.Path] = true
		}
	}
	for _, f := range c.files {
		if len(selected) >= embeddedFiles {
			break
		}
		if !seen[f.Path] {
			selected = append(selected, f)
			seen[f.Path] = true
		}
	}
	return selected
}

// readCapped reads a scanned file's content, truncated to maxFileBytes.
func (c *Context) readCapped(rel string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", false
	}
	if len(data) > maxFileBytes {
		return string(data[:maxFileBytes]) + "\n... (truncated)", true
	}
	return string(data), true
}

func formatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%dB", n)
	}
	return fmt.Sprintf("%.1fKB", float64(n)/1024)
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
