// Package planning builds a work breakdown structure step by step and keeps
// it as a markdown checklist on disk.
package planning

import (
	"fmt"
	"slices"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// --- Phases ---

const (
	PhaseActive    session.Phase = "active"
	PhaseCompleted session.Phase = "completed"
)

// Machine is the planning state machine.
var Machine = workflow.NewMachine("planning_", []workflow.Transition{
	{From: PhaseActive, Action: "add_step", To: PhaseActive},
	{From: PhaseActive, Action: "finalize", To: PhaseCompleted},
}, PhaseCompleted)

// --- Priority enum ---

// Priority is a WBS item priority.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

var validPriorities = map[Priority]bool{
	PriorityHigh:   true,
	PriorityMedium: true,
	PriorityLow:    true,
}

// ValidatePriority returns an error if the priority is not recognized.
func ValidatePriority(p Priority) error {
	if !validPriorities[p] {
		return fmt.Errorf("invalid priority %q: must be one of: High, Medium, Low", p)
	}
	return nil
}

// Item is one WBS entry. Parent links are by id only.
type Item struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Level        int      `json:"level"`
	Priority     Priority `json:"priority"`
	Dependencies []string `json:"dependencies"`
	Order        int      `json:"order"`
	ParentID     string   `json:"parent_id,omitempty"`
}

// Step is one recorded planning step.
type Step struct {
	Number     int       `json:"step_number"`
	Analysis   string    `json:"planning_analysis"`
	ItemsAdded int       `json:"wbs_items_added"`
	Timestamp  time.Time `json:"timestamp"`
}

// Payload is the planning session data.
type Payload struct {
	ProblemStatement string `json:"problem_statement"`
	ProjectName      string `json:"project_name"`
	OutputPath       string `json:"output_path"`
	// WBSFile is OutputPath relative to the output directory.
	WBSFile string `json:"-"`
	Steps   []Step `json:"planning_history"`
	Items   []Item `json:"wbs_items"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Steps = slices.Clone(p.Steps)
	c.Items = make([]Item, len(p.Items))
	for i, it := range p.Items {
		it.Dependencies = slices.Clone(it.Dependencies)
		c.Items[i] = it
	}
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	return map[string]int{
		"steps":     len(p.Steps),
		"wbs_items": len(p.Items),
	}
}

// CurrentStep is the number of the most recent step, or 0.
func (p *Payload) CurrentStep() int {
	if len(p.Steps) == 0 {
		return 0
	}
	return p.Steps[len(p.Steps)-1].Number
}

// Find returns the item with id.
func (p *Payload) Find(id string) (Item, bool) {
	for _, it := range p.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
