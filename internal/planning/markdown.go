package planning

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
)

const noItems = "*No WBS items yet*"

// Document is the exportable view of a plan. Its JSON form carries every
// field the markdown needs, so markdown rendered from a decoded Document
// matches markdown rendered from the live session.
type Document struct {
	SessionID string        `json:"session_id"`
	Status    session.Phase `json:"status"`
	Payload
}

func newDocument(sess *session.Session[*Payload]) Document {
	return Document{SessionID: sess.ID, Status: sess.Phase, Payload: *sess.Payload}
}

// Markdown renders the WBS file.
func (d Document) Markdown() string {
	items := make([]render.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = render.Item{
			ID:           it.ID,
			ParentID:     it.ParentID,
			Title:        it.Title,
			Description:  it.Description,
			Priority:     string(it.Priority),
			Level:        it.Level,
			Order:        it.Order,
			Dependencies: it.Dependencies,
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Project: %s\n\n", d.ProjectName)
	fmt.Fprintf(&b, "## Problem Statement\n%s\n\n", d.ProblemStatement)
	b.WriteString("## Work Breakdown Structure\n\n")
	b.WriteString(render.Checklist(items, render.ChecklistOptions{Empty: noItems}))
	b.WriteString("\n\n## Planning Summary\n\n")
	fmt.Fprintf(&b, "- **Steps**: %d\n", len(d.Steps))
	fmt.Fprintf(&b, "- **WBS Items**: %d\n", len(d.Items))
	fmt.Fprintf(&b, "- **Status**: %s\n", d.Status)
	return b.String()
}

// PlainText renders a compact outline without the per-item details.
func (d Document) PlainText() string {
	items := make([]render.Item, len(d.Items))
	for i, it := range d.Items {
		items[i] = render.Item{ID: it.ID, ParentID: it.ParentID, Title: it.Title, Order: it.Order}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s (%s)\n", d.ProjectName, d.Status)
	fmt.Fprintf(&b, "Problem: %s\n\n", d.ProblemStatement)
	b.WriteString(render.Checklist(items, render.ChecklistOptions{Empty: "(no items)", Compact: true}))
	b.WriteByte('\n')
	return b.String()
}
