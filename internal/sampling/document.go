package sampling

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
)

// Document is the exportable view of a sampling session.
type Document struct {
	SessionID  string              `json:"session_id"`
	Status     session.Phase       `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	Statistics *render.SampleStats `json:"statistics,omitempty"`
	Payload
}

func newDocument(sess *session.Session[*Payload]) Document {
	return Document{
		SessionID:  sess.ID,
		Status:     sess.Phase,
		CreatedAt:  sess.CreatedAt,
		Statistics: statistics(sess.Payload.Samples),
		Payload:    *sess.Payload,
	}
}

// Markdown renders the session report.
func (d Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# Verbalized Sampling Session Report\n\n")
	b.WriteString("## Session Information\n")
	fmt.Fprintf(&b, "- **Session ID:** %s\n", d.SessionID)
	fmt.Fprintf(&b, "- **Mode:** %s\n", d.Mode)
	fmt.Fprintf(&b, "- **Status:** %s\n", d.Status)
	fmt.Fprintf(&b, "- **Created:** %s\n\n", d.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "## Query\n%s\n\n", d.Query)
	b.WriteString("## Generated Samples\n")
	for i, smp := range d.Samples {
		marker := ""
		if d.Selected != nil && d.Selected.Index == i {
			marker = " ⭐ **SELECTED**"
		}
		fmt.Fprintf(&b, "\n### Sample %d%s\n", i+1, marker)
		fmt.Fprintf(&b, "**Probability:** %s\n\n", formatProb(smp.Probability))
		fmt.Fprintf(&b, "%s\n", smp.Text)
	}
	if st := d.Statistics; st != nil {
		b.WriteString("\n## Statistics\n")
		fmt.Fprintf(&b, "- **Number of Samples:** %d\n", st.Count)
		fmt.Fprintf(&b, "- **Probability Range:** %.3f - %.3f\n", st.Probability.Min, st.Probability.Max)
		fmt.Fprintf(&b, "- **Mean Probability:** %.3f\n", st.Probability.Mean)
		fmt.Fprintf(&b, "- **Creativity Index:** %.2f\n", st.CreativityIndex)
	}
	return b.String()
}

// PlainText renders the query and the selected sample.
func (d Document) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verbalized Sampling Session: %s\n", d.SessionID)
	fmt.Fprintf(&b, "Query: %s\n\n", d.Query)
	if d.Selected != nil {
		fmt.Fprintf(&b, "Selected Sample (%s):\n", d.Selected.Strategy)
		fmt.Fprintf(&b, "%s\n", d.Selected.Text)
		fmt.Fprintf(&b, "(Probability: %s)\n", formatProb(d.Selected.Probability))
	}
	return b.String()
}
