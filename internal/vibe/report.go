package vibe

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// Document is the exportable view of a refinement session.
type Document struct {
	SessionID string        `json:"session_id"`
	Status    session.Phase `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Payload
}

func newDocument(sess *session.Session[*Payload]) Document {
	return Document{
		SessionID: sess.ID,
		Status:    sess.Phase,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Payload:   *sess.Payload,
	}
}

func (d Document) statusLine() string {
	if d.Status == PhaseCompleted {
		return "WBS-Ready Specification"
	}
	return fmt.Sprintf("In Progress (%d/%d decisions)", d.completed(), d.Assessment.TotalSteps)
}

// Markdown renders the specification report: the product decisions of the
// idea stage followed by the technical decisions of the system stage.
func (d Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# 🎯 Project Specification Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", d.UpdatedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "**Session ID:** %s\n", d.SessionID)
	fmt.Fprintf(&b, "**Status:** %s\n\n", d.statusLine())

	a := d.Assessment
	b.WriteString("## 📋 Executive Summary\n\n")
	fmt.Fprintf(&b, "**Original Request:** %s\n\n", d.InitialPrompt)
	fmt.Fprintf(&b, "**Specificity Assessment:** %d/100 (%s)\n", a.Score, a.Interpretation)
	fmt.Fprintf(&b, "**Refinement Process:** %d steps\n", a.TotalSteps)
	fmt.Fprintf(&b, "- Idea Refinement: %d steps\n", a.IdeaSteps)
	fmt.Fprintf(&b, "- Technical Refinement: %d steps\n\n", a.SystemSteps)

	idea := d.decisions(StageIdea)
	system := d.decisions(StageSystem)

	b.WriteString("---\n\n## 💡 PART 1: Product & Feature Specifications\n\n")
	b.WriteString("This section defines WHAT will be built from a user and product perspective.\n\n")
	writeDecisions(&b, idea, "Decision", "📝 Description")

	b.WriteString("## 🏗️ PART 2: Technical Architecture & Implementation\n\n")
	b.WriteString("This section defines HOW it will be built from a technical perspective.\n\n")
	writeDecisions(&b, system, "Technical Decision", "🔧 Technical Approach")

	b.WriteString("## 🚀 Recommended Next Steps\n\n")
	b.WriteString("1. **Create a WBS** with planning_initialize, one work package per decision above\n")
	b.WriteString("2. **Track execution** with wbs_execution_start once the plan is finalized\n\n")

	b.WriteString("---\n\n### 📊 Report Metadata\n\n")
	fmt.Fprintf(&b, "- **Total Refinement Steps:** %d\n", len(d.Steps))
	fmt.Fprintf(&b, "- **Idea Decisions:** %d\n", len(idea))
	fmt.Fprintf(&b, "- **Technical Decisions:** %d\n", len(system))
	fmt.Fprintf(&b, "- **Initial Specificity:** %d/100\n", a.Score)
	fmt.Fprintf(&b, "- **Session Duration:** %s to %s\n",
		d.CreatedAt.Format(time.RFC3339), d.UpdatedAt.Format(time.RFC3339))
	return b.String()
}

func writeDecisions(b *strings.Builder, steps []Step, label, heading string) {
	if len(steps) == 0 {
		b.WriteString("*No decisions yet*\n\n")
		return
	}
	for i, st := range steps {
		sel := st.Selection
		fmt.Fprintf(b, "### %d. %s\n\n", i+1, st.Question)
		marker := ""
		if sel.IsRecommended {
			marker = " ⭐ *Recommended*"
		}
		fmt.Fprintf(b, "**%s: %s**%s\n\n", label, sel.Title, marker)
		fmt.Fprintf(b, "#### %s\n%s\n\n", heading, sel.Description)
		if alts := alternatives(st); len(alts) > 0 {
			b.WriteString("#### Alternatives considered\n")
			for _, alt := range alts {
				fmt.Fprintf(b, "- %s\n", alt)
			}
			b.WriteByte('\n')
		}
		b.WriteString("---\n\n")
	}
}

func alternatives(st Step) []string {
	var out []string
	for _, sg := range st.Suggestions {
		if sg.ID != st.Selection.ID {
			out = append(out, sg.Title)
		}
	}
	return out
}

// PlainText lists the decisions one per line.
func (d Document) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vibe Refinement Session: %s\n", d.SessionID)
	fmt.Fprintf(&b, "Prompt: %s\n", d.InitialPrompt)
	fmt.Fprintf(&b, "Specificity: %d/100\n\n", d.Assessment.Score)
	for _, st := range d.Steps {
		if st.Selection == nil {
			continue
		}
		fmt.Fprintf(&b, "%d. [%s] %s -> %s\n", st.Number, st.Stage, st.Question, st.Selection.Title)
	}
	return b.String()
}
