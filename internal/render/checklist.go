// Package render turns session payloads into the text the caller sees:
// markdown checklists, box-drawing trees, sample statistics and exports.
// Every function here is pure. The same input always yields the same bytes.
package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Item is one node of a hierarchical checklist such as a WBS.
type Item struct {
	ID           string
	ParentID     string
	Title        string
	Description  string
	Priority     string
	Level        int
	Order        int
	Dependencies []string
	Done         bool
}

// ChecklistOptions tweaks checklist output.
type ChecklistOptions struct {
	// Empty is printed when there are no items.
	Empty string
	// Compact drops the ID/Description/Dependencies sub-bullets.
	Compact bool
}

// Checklist renders items grouped under their parents. Siblings are
// ordered by Order, then ID. An item whose parent is absent is treated
// as a root. Each item is indented two spaces per nesting depth.
func Checklist(items []Item, opts ChecklistOptions) string {
	if len(items) == 0 {
		return opts.Empty
	}

	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}
	children := make(map[string][]Item)
	var roots []Item
	for _, it := range items {
		if it.ParentID == "" || !known[it.ParentID] || it.ParentID == it.ID {
			roots = append(roots, it)
			continue
		}
		children[it.ParentID] = append(children[it.ParentID], it)
	}

	var b strings.Builder
	visited := make(map[string]bool, len(items))
	var walk func(it Item, depth int)
	walk = func(it Item, depth int) {
		if visited[it.ID] {
			return
		}
		visited[it.ID] = true
		writeItem(&b, it, depth, opts.Compact)
		kids := children[it.ID]
		sortSiblings(kids)
		for _, k := range kids {
			walk(k, depth+1)
		}
	}
	sortSiblings(roots)
	for _, r := range roots {
		walk(r, 0)
	}
	return strings.TrimRight(b.String(), "\n")
}

func sortSiblings(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func writeItem(b *strings.Builder, it Item, depth int, compact bool) {
	indent := strings.Repeat("  ", depth)
	mark := " "
	if it.Done {
		mark = "x"
	}
	fmt.Fprintf(b, "%s- [%s] **%s**", indent, mark, it.Title)
	if it.Priority != "" {
		fmt.Fprintf(b, " (Priority: %s)", it.Priority)
	}
	b.WriteByte('\n')
	if compact {
		return
	}
	fmt.Fprintf(b, "%s  - ID: %s\n", indent, it.ID)
	fmt.Fprintf(b, "%s  - Description: %s\n", indent, it.Description)
	if len(it.Dependencies) > 0 {
		fmt.Fprintf(b, "%s  - Dependencies: %s\n", indent, strings.Join(it.Dependencies, ", "))
	}
	b.WriteByte('\n')
}
