// Package wbsexec drives a finished plan to done, one unblocked task at a
// time, keeping a progress checklist next to the WBS file.
package wbsexec

import (
	"slices"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

const (
	PhaseReady      session.Phase = "ready"
	PhaseInProgress session.Phase = "in_progress"
	PhaseCompleted  session.Phase = "completed"
)

// Machine is the execution state machine. complete_task stays in
// in_progress until the last task is done.
var Machine = workflow.NewMachine("wbs_execution_", []workflow.Transition{
	{From: PhaseReady, Action: "next", To: PhaseInProgress},
	{From: PhaseReady, Action: "complete_task", To: PhaseInProgress},
	{From: PhaseReady, Action: "complete_task", To: PhaseCompleted},
	{From: PhaseInProgress, Action: "complete_task", To: PhaseInProgress},
	{From: PhaseInProgress, Action: "complete_task", To: PhaseCompleted},
	{From: PhaseInProgress, Action: "next", To: PhaseInProgress},
}, PhaseCompleted)

// Task is one WBS item being executed.
type Task struct {
	ID           string     `json:"id"`
	ParentID     string     `json:"parent_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Level        int        `json:"level"`
	Order        int        `json:"order"`
	Dependencies []string   `json:"dependencies"`
	Done         bool       `json:"done"`
	Notes        string     `json:"notes,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Payload is the execution session data.
type Payload struct {
	PlanningSessionID string `json:"planning_session_id"`
	ProjectName       string `json:"project_name"`
	OutputPath        string `json:"output_path"`
	Tasks             []Task `json:"tasks"`
	Current           string `json:"current_task,omitempty"`
	ProgressFile      string `json:"-"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Tasks = make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		t.Dependencies = slices.Clone(t.Dependencies)
		if t.CompletedAt != nil {
			at := *t.CompletedAt
			t.CompletedAt = &at
		}
		c.Tasks[i] = t
	}
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	return map[string]int{
		"tasks":     len(p.Tasks),
		"completed": p.doneCount(),
	}
}

func (p *Payload) doneCount() int {
	n := 0
	for _, t := range p.Tasks {
		if t.Done {
			n++
		}
	}
	return n
}

func (p *Payload) index(id string) int {
	return slices.IndexFunc(p.Tasks, func(t Task) bool { return t.ID == id })
}
