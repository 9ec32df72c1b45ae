package counterfactual

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// Document is the exportable view of a counterfactual session. The report
// file is rendered from it on every change.
type Document struct {
	SessionID string        `json:"session_id"`
	Status    session.Phase `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	Payload
}

func newDocument(sess *session.Session[*Payload]) Document {
	return Document{
		SessionID: sess.ID,
		Status:    sess.Phase,
		CreatedAt: sess.CreatedAt,
		Payload:   *sess.Payload,
	}
}

func checkbox(done bool) string {
	if done {
		return "- [x] "
	}
	return "- [ ] "
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "- None"
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + it)
	}
	return b.String()
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		value = "N/A"
	}
	fmt.Fprintf(b, "**%s:**\n%s\n\n", label, value)
}

func listField(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "**%s:**\n%s\n\n", label, bullets(items))
}

// Markdown renders the progressive analysis report.
func (d Document) Markdown() string {
	var b strings.Builder
	b.WriteString("# Counterfactual Reasoning Analysis\n\n")
	fmt.Fprintf(&b, "**Session ID:** %s\n", d.SessionID)
	fmt.Fprintf(&b, "**Created:** %s\n", d.CreatedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "**Status:** %s\n\n---\n\n", d.Status)

	fmt.Fprintf(&b, "## Problem Statement\n\n%s\n\n", d.Problem)
	if d.Context != "" {
		fmt.Fprintf(&b, "**Context:**\n%s\n\n", d.Context)
	}
	b.WriteString("---\n\n")

	started := slices.ContainsFunc(d.sortedAnalyses(), func(a *Analysis) bool { return a.Step > 0 })
	b.WriteString("## Analysis Progress\n\n")
	b.WriteString(checkbox(d.ActualState != nil) + "Phase 1: Actual State Analysis\n")
	b.WriteString(checkbox(d.Scenarios != nil) + "Phase 2: Counterfactual Scenario Generation\n")
	b.WriteString(checkbox(started) + "Phase 3: Deep Reasoning Analysis\n")
	b.WriteString(checkbox(len(d.Analyzed) > 0) + "Phase 4: Comparative Analysis\n\n")
	fmt.Fprintf(&b, "Scenario types analyzed: %d/%d\n\n---\n\n", len(d.Analyzed), len(ScenarioTypes))

	if a := d.ActualState; a != nil {
		b.WriteString("## Phase 1: Actual State Analysis\n\n")
		b.WriteString("### Current State\n\n")
		field(&b, "What Happened", a.CurrentState.WhatHappened)
		listField(&b, "Existing Conditions", a.CurrentState.ExistingConditions)
		listField(&b, "Outcomes", a.CurrentState.Outcomes)
		b.WriteString("### Causal Chain\n\n")
		listField(&b, "Root Causes", a.CausalChain.RootCauses)
		listField(&b, "Intermediate Processes", a.CausalChain.IntermediateProcesses)
		listField(&b, "Final Results", a.CausalChain.FinalResults)
		b.WriteString("---\n\n")
	}

	if d.Scenarios != nil {
		b.WriteString("## Phase 2: Counterfactual Scenario Generation\n\n")
		for _, t := range ScenarioTypes {
			d.writeScenario(&b, t)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (d Document) marker(t ScenarioType) string {
	switch {
	case slices.Contains(d.Analyzed, t):
		return "✓"
	case t == d.SelectedType:
		return "→"
	default:
		return " "
	}
}

func (d Document) writeScenario(b *strings.Builder, t ScenarioType) {
	sc := d.Scenarios.Get(t)
	fmt.Fprintf(b, "### [%s] %s\n\n", d.marker(t), t.DisplayName())
	field(b, "Changed Condition", sc.ChangedCondition)
	field(b, "Counterfactual Scenario", sc.CounterfactualScenario)
	field(b, "Logical Consistency", sc.LogicalConsistency)

	if a := d.Analyses[t]; a != nil && a.Step > 0 {
		writePhase3(b, a)
	}
	if a := d.Analyses[t]; a != nil && a.Comparative != nil {
		writePhase4(b, a.Comparative)
	}
	b.WriteString("---\n\n")
}

func writePhase3(b *strings.Builder, a *Analysis) {
	b.WriteString("#### Phase 3: Deep Reasoning Analysis\n\n")
	if p := a.Principles; p != nil {
		b.WriteString("**Step 1: Core Principles Application**\n\n")
		field(b, "Minimal Change", p.MinimalChange)
		field(b, "Causal Consistency", p.CausalConsistency)
		field(b, "Proximity", p.Proximity)
	}
	if a.Step >= 2 {
		fmt.Fprintf(b, "**Step 2: Direct Impact Analysis (Level 1)**\n\n%s\n\n", a.Level1Direct)
	}
	if a.Step >= 3 {
		fmt.Fprintf(b, "**Step 3: Ripple Effects Analysis (Level 2)**\n\n%s\n\n", a.Level2Ripple)
	}
	if l := a.Level3; l != nil {
		b.WriteString("**Step 4: Multidimensional Analysis (Level 3)**\n\n")
		field(b, "Technical Dimension", l.Technical)
		field(b, "Organizational Dimension", l.Organizational)
		field(b, "Cultural Dimension", l.Cultural)
		field(b, "External Dimension", l.External)
	}
	if l := a.Level4; l != nil {
		b.WriteString("**Step 5: Long-term Evolution & Outcome Scenarios (Level 4)**\n\n")
		field(b, "Timeline", l.Timeline)
		field(b, "Sustained Benefits", l.SustainedBenefits)
		field(b, "New Challenges", l.NewChallenges)
		field(b, "Evolution", l.Evolution)
	}
	if o := a.Outcomes; o != nil {
		b.WriteString("**Outcome Scenarios:**\n\n")
		fmt.Fprintf(b, "- **Best Case:** %s\n", o.BestCase)
		fmt.Fprintf(b, "- **Worst Case:** %s\n", o.WorstCase)
		fmt.Fprintf(b, "- **Most Likely:** %s\n\n", o.MostLikely)
	}
}

func writePhase4(b *strings.Builder, c *Comparative) {
	b.WriteString("#### Phase 4: Comparative Analysis\n\n")
	b.WriteString("**Actual vs Counterfactual Comparison**\n\n")
	field(b, "What Differs", c.ActualVsCounterfactual.WhatDiffers)
	field(b, "Why It Differs", c.ActualVsCounterfactual.WhyDiffers)
	field(b, "Magnitude & Importance", c.ActualVsCounterfactual.MagnitudeImportance)

	b.WriteString("**Key Insights**\n\n")
	listField(b, "Critical Findings", c.KeyInsights.CriticalFindings)
	listField(b, "Causal Factors", c.KeyInsights.CausalFactors)
	listField(b, "Improvement Opportunities", c.KeyInsights.ImprovementOpportunities)

	b.WriteString("**Action Recommendations**\n\n")
	listField(b, "Immediate Actions (0-1 month)", c.ActionRecommendations.ImmediateActions)
	listField(b, "Short-term Plans (1-3 months)", c.ActionRecommendations.ShortTermPlans)
	listField(b, "Long-term Initiatives (3-12 months)", c.ActionRecommendations.LongTermInitiatives)
	listField(b, "Monitoring Metrics", c.ActionRecommendations.MonitoringMetrics)

	b.WriteString("**Final Summary**\n\n")
	field(b, "Key Takeaway", c.FinalSummary.KeyTakeaway)
	field(b, "Expected Impact", c.FinalSummary.ExpectedImpact)
	field(b, "Implementation Timeline", c.FinalSummary.ImplementationTimeline)
	listField(b, "Next Steps", c.FinalSummary.NextSteps)
}

// PlainText renders the problem and the key takeaway of every analysed
// scenario.
func (d Document) PlainText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Counterfactual Reasoning Session: %s\n", d.SessionID)
	fmt.Fprintf(&b, "Problem: %s\n", d.Problem)
	fmt.Fprintf(&b, "Status: %s\n", d.Status)
	fmt.Fprintf(&b, "Analyzed: %d/%d\n", len(d.Analyzed), len(ScenarioTypes))
	for _, t := range d.Analyzed {
		a := d.Analyses[t]
		if a == nil || a.Comparative == nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", t.Name(), a.Comparative.FinalSummary.KeyTakeaway)
	}
	return b.String()
}
