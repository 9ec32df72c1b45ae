package vibe

import (
	"slices"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

const (
	PhaseActive              session.Phase = "active"
	PhaseAwaitingSuggestions session.Phase = "awaiting_suggestions"
	PhaseAwaitingSelection   session.Phase = "awaiting_selection"
	PhaseCompleted           session.Phase = "completed"
)

// Machine is the vibe refinement state machine. submit returns to active
// for the next step or completes after the last one.
var Machine = workflow.NewMachine("vibe_refinement_", []workflow.Transition{
	{From: PhaseActive, Action: "get_next", To: PhaseAwaitingSuggestions},
	{From: PhaseAwaitingSuggestions, Action: "suggest", To: PhaseAwaitingSelection},
	{From: PhaseAwaitingSelection, Action: "submit", To: PhaseActive},
	{From: PhaseAwaitingSelection, Action: "submit", To: PhaseCompleted},
	{From: PhaseAwaitingSelection, Action: "suggest", To: PhaseAwaitingSelection},
}, PhaseCompleted)

// Stage is the refinement stage of a step.
type Stage string

const (
	StageIdea   Stage = "idea"
	StageSystem Stage = "system"
)

// SuggestionCount is the number of suggestions every step requires.
const SuggestionCount = 5

// Suggestion is one option generated by the calling model.
type Suggestion struct {
	ID            string `json:"id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description" validate:"required"`
	IsRecommended bool   `json:"is_recommended"`
}

// Step is one refinement question and its outcome.
type Step struct {
	Number      int          `json:"step_number"`
	Stage       Stage        `json:"stage"`
	Question    string       `json:"question"`
	FocusArea   string       `json:"focus_area"`
	Suggestions []Suggestion `json:"suggestions_generated,omitempty"`
	Selection   *Suggestion  `json:"user_selection,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Payload is the vibe refinement session data.
type Payload struct {
	InitialPrompt string     `json:"initial_prompt"`
	Assessment    Assessment `json:"analysis"`
	CurrentStep   int        `json:"current_step"`
	Steps         []Step     `json:"refinement_history"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Assessment.Factors = slices.Clone(p.Assessment.Factors)
	c.Steps = make([]Step, len(p.Steps))
	for i, st := range p.Steps {
		st.Suggestions = slices.Clone(st.Suggestions)
		if st.Selection != nil {
			sel := *st.Selection
			st.Selection = &sel
		}
		c.Steps[i] = st
	}
	if p.Steps == nil {
		c.Steps = nil
	}
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	return map[string]int{
		"current_step": p.CurrentStep,
		"total_steps":  p.Assessment.TotalSteps,
		"decisions":    len(p.decisions(StageIdea)) + len(p.decisions(StageSystem)),
	}
}

// stageOf returns the stage of step n (1-based).
func (p *Payload) stageOf(n int) Stage {
	if n <= p.Assessment.IdeaSteps {
		return StageIdea
	}
	return StageSystem
}

// current returns the step being worked on, or nil before the first get_next.
func (p *Payload) current() *Step {
	if len(p.Steps) == 0 {
		return nil
	}
	return &p.Steps[len(p.Steps)-1]
}

// decisions returns the steps of stage that have a selection.
func (p *Payload) decisions(stage Stage) []Step {
	var out []Step
	for _, st := range p.Steps {
		if st.Stage == stage && st.Selection != nil {
			out = append(out, st)
		}
	}
	return out
}

var (
	ideaQuestions = []string{
		"What is the core value proposition of your project?",
		"What key features should be included?",
		"How should users interact with the system?",
		"What makes your project unique and innovative?",
	}
	ideaFocus = []string{
		"Core concept and unique value proposition",
		"Key features and functionality",
		"User experience and interaction design",
		"Innovation and differentiation factors",
	}
	systemQuestions = []string{
		"What technology stack would best fit your project?",
		"What development tools and frameworks should be used?",
		"How should the system be deployed and scaled?",
	}
	systemFocus = []string{
		"Technology stack and architecture pattern",
		"Development tools, frameworks, and libraries",
		"Deployment strategy and infrastructure",
	}
)

// pick returns list[i], repeating the last entry once i runs past the end.
func pick(list []string, i int) string {
	return list[min(max(i, 0), len(list)-1)]
}

// question returns the question and focus area for step n.
func (p *Payload) question(n int) (string, string) {
	if p.stageOf(n) == StageIdea {
		return pick(ideaQuestions, n-1), pick(ideaFocus, n-1)
	}
	i := n - p.Assessment.IdeaSteps - 1
	return pick(systemQuestions, i), pick(systemFocus, i)
}
