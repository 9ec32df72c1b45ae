// Package recursive improves an answer over repeated cycles. Each cycle
// refines a latent reasoning state a fixed number of times and then rewrites
// the answer from that state, until the caller marks an answer final or the
// cycle budget runs out.
package recursive

import (
	"slices"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

const (
	PhaseLatent    session.Phase = "latent_reasoning"
	PhaseAnswer    session.Phase = "answer_update"
	PhaseCompleted session.Phase = "completed"
)

// Machine is the recursive thinking state machine.
var Machine = workflow.NewMachine("recursive_thinking_", []workflow.Transition{
	{From: PhaseLatent, Action: "update_latent", To: PhaseLatent},
	{From: PhaseLatent, Action: "update_latent", To: PhaseAnswer},
	{From: PhaseAnswer, Action: "update_answer", To: PhaseLatent},
	{From: PhaseAnswer, Action: "update_answer", To: PhaseCompleted},
}, PhaseCompleted)

const (
	DefaultLatentSteps = 6
	DefaultMaxCycles   = 5
)

// StopReason says why a session completed.
type StopReason string

const (
	StopFinal     StopReason = "final_answer"
	StopMaxCycles StopReason = "max_cycles"
)

// Cycle is one latent-then-answer round.
type Cycle struct {
	Number     int      `json:"cycle"`
	Latent     []string `json:"latent_updates"`
	Answer     string   `json:"answer,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// Payload is the recursive thinking session data.
type Payload struct {
	Question      string     `json:"question"`
	InitialAnswer string     `json:"initial_answer,omitempty"`
	Answer        string     `json:"current_answer,omitempty"`
	Latent        string     `json:"current_latent,omitempty"`
	LatentSteps   int        `json:"latent_steps"`
	MaxCycles     int        `json:"max_cycles"`
	Cycles        []Cycle    `json:"cycles"`
	StopReason    StopReason `json:"stop_reason,omitempty"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Cycles = make([]Cycle, len(p.Cycles))
	for i, cy := range p.Cycles {
		cy.Latent = slices.Clone(cy.Latent)
		c.Cycles[i] = cy
	}
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	updates := 0
	for _, cy := range p.Cycles {
		updates += len(cy.Latent)
	}
	return map[string]int{
		"cycles":         len(p.Cycles),
		"max_cycles":     p.MaxCycles,
		"latent_updates": updates,
	}
}

// current is the open cycle. Sessions always hold at least one.
func (p *Payload) current() *Cycle {
	return &p.Cycles[len(p.Cycles)-1]
}
