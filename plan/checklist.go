package plan

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ItemStatus is the lifecycle of one checklist entry.
type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemInProgress ItemStatus = "in_progress"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
	ItemSkipped    ItemStatus = "skipped"
)

// ChecklistItem is one user-visible progress marker. It mirrors a module's or
// a sequential step's status and holds no authority of its own.
type ChecklistItem struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  ItemStatus `json:"status"`
}

// Checklist is the ordered set of progress items for one session. Engine
// workers update items while a status poller reads progress, so all access
// goes through the mutex.
type Checklist struct {
	Title string

	mu    sync.Mutex
	items []ChecklistItem
}

// NewChecklist creates an empty checklist.
func NewChecklist(title string) *Checklist {
	return &Checklist{Title: title}
}

// FromPlan builds a checklist with exactly one item per plan module, keyed by
// the module name.
func FromPlan(p *Plan) *Checklist {
	c := NewChecklist("Execution Plan")
	for _, m := range p.Modules {
		c.Add(m.Name)
	}
	return c
}

// Add appends a pending item and returns its id.
func (c *Checklist) Add(content string) string {
	item := ChecklistItem{
		ID:      uuid.NewString(),
		Content: content,
		Status:  ItemPending,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	return item.ID
}

// Update sets the status of the first item whose content matches. Repeated
// updates with the same status are harmless.
func (c *Checklist) Update(content string, status ItemStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Content == content {
			c.items[i].Status = status
			return true
		}
	}
	return false
}

// Clear removes all items.
func (c *Checklist) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the current items.
func (c *Checklist) Items() []ChecklistItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChecklistItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the item count.
func (c *Checklist) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Progress returns completed and total counts. Skipped items count as done
// for display purposes.
func (c *Checklist) Progress() (done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.Status == ItemCompleted || item.Status == ItemSkipped {
			done++
		}
	}
	return done, len(c.items)
}

// Render formats the checklist for terminal display.
func (c *Checklist) Render() string {
	var b strings.Builder
	if c.Title != "" {
		fmt.Fprintf(&b, "%s\n", c.Title)
	}
	for _, item := range c.Items() {
		mark := " "
		switch item.Status {
		case ItemCompleted:
			mark = "x"
		case ItemInProgress:
			mark = ">"
		case ItemFailed:
			mark = "!"
		case ItemSkipped:
			mark = "-"
		}
		fmt.Fprintf(&b, "[%s] %s\n", mark, item.Content)
	}
	return b.String()
}

// ParseChecklist extracts checklist items from free plan text. Lines starting
// with "TODO:" or "- TODO:" (after trimming) become items; everything else is
// ignored, so extraction is lossy and callers must tolerate an empty result.
func ParseChecklist(text string) *Checklist {
	c := NewChecklist("Maintenance Plan")
	for _, line := range strings.Split(text, "\n") {
		clean := strings.TrimSpace(line)
		clean = strings.TrimPrefix(clean, "- ")
		if !strings.HasPrefix(clean, "TODO:") {
			continue
		}
		content := strings.TrimSpace(strings.TrimPrefix(clean, "TODO:"))
		if content != "" {
			c.Add(content)
		}
	}
	return c
}
