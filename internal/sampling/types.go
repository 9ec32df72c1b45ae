// Package sampling implements verbalized sampling: the calling model
// verbalizes several low-probability answers with their probabilities and
// one of them is picked by a selection strategy.
package sampling

import (
	"slices"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

const (
	PhaseInitialized session.Phase = "initialized"
	PhaseSampled     session.Phase = "sampled"
	PhaseCompleted   session.Phase = "completed"
)

// Machine is the verbalized sampling state machine. Resubmitting before
// finalize and resample are the supported retries.
var Machine = workflow.NewMachine("vs_", []workflow.Transition{
	{From: PhaseInitialized, Action: "submit_samples", To: PhaseSampled},
	{From: PhaseSampled, Action: "finalize", To: PhaseCompleted},
	{From: PhaseSampled, Action: "resample", To: PhaseInitialized},
	{From: PhaseSampled, Action: "submit_samples", To: PhaseSampled},
}, PhaseCompleted)

// Sample is one verbalized answer.
type Sample struct {
	Text        string  `json:"text"`
	Probability float64 `json:"probability"`
}

// Selection is the sample picked by a strategy.
type Selection struct {
	Index       int       `json:"index"`
	Text        string    `json:"text"`
	Probability float64   `json:"probability"`
	Strategy    Strategy  `json:"selection_strategy"`
	SelectedAt  time.Time `json:"selected_at"`
}

// Round is a discarded set of samples kept by resample.
type Round struct {
	Samples  []Sample   `json:"samples"`
	Selected *Selection `json:"selected_sample,omitempty"`
}

// Payload is the verbalized sampling session data.
type Payload struct {
	Query          string     `json:"query"`
	Mode           Mode       `json:"mode"`
	InputContent   string     `json:"input_content,omitempty"`
	NumSamples     int        `json:"num_samples"`
	MaxProbability float64    `json:"max_probability"`
	Samples        []Sample   `json:"samples"`
	Selected       *Selection `json:"selected_sample,omitempty"`
	Strategy       Strategy   `json:"selection_strategy,omitempty"`
	PreviousRounds []Round    `json:"previous_rounds,omitempty"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Samples = slices.Clone(p.Samples)
	c.Selected = cloneSelection(p.Selected)
	c.PreviousRounds = make([]Round, len(p.PreviousRounds))
	for i, r := range p.PreviousRounds {
		c.PreviousRounds[i] = Round{Samples: slices.Clone(r.Samples), Selected: cloneSelection(r.Selected)}
	}
	if p.PreviousRounds == nil {
		c.PreviousRounds = nil
	}
	return &c
}

func cloneSelection(s *Selection) *Selection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	return map[string]int{
		"samples":         len(p.Samples),
		"previous_rounds": len(p.PreviousRounds),
	}
}
