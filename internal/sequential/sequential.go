// Package sequential records a numbered chain of thoughts that may revise
// earlier thoughts or branch from them.
package sequential

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// timeNow is swapped in tests.
var timeNow = time.Now

const (
	PhaseThinking  session.Phase = "thinking"
	PhaseCompleted session.Phase = "completed"
)

const actionThought = "sequential_thinking"

// Machine is the sequential thinking state machine. Every call is the same
// action; next_thought_needed=false ends the chain.
var Machine = workflow.NewMachine("", []workflow.Transition{
	{From: PhaseThinking, Action: actionThought, To: PhaseThinking},
	{From: PhaseThinking, Action: actionThought, To: PhaseCompleted},
}, PhaseCompleted)

// Thought is one step of the chain.
type Thought struct {
	Number            int       `json:"thought_number"`
	Text              string    `json:"thought"`
	IsRevision        bool      `json:"is_revision,omitempty"`
	RevisesThought    int       `json:"revises_thought,omitempty"`
	BranchFromThought int       `json:"branch_from_thought,omitempty"`
	BranchID          string    `json:"branch_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Payload is the sequential thinking session data.
type Payload struct {
	TotalThoughts int       `json:"total_thoughts"`
	Thoughts      []Thought `json:"thoughts"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.Thoughts = slices.Clone(p.Thoughts)
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	revisions := 0
	for _, t := range p.Thoughts {
		if t.IsRevision {
			revisions++
		}
	}
	return map[string]int{
		"thoughts":       len(p.Thoughts),
		"total_thoughts": p.TotalThoughts,
		"revisions":      revisions,
		"branches":       len(p.branches()),
	}
}

func (p *Payload) has(number int) bool {
	return slices.ContainsFunc(p.Thoughts, func(t Thought) bool { return t.Number == number })
}

func (p *Payload) branches() []string {
	set := make(map[string]bool)
	for _, t := range p.Thoughts {
		if t.BranchID != "" {
			set[t.BranchID] = true
		}
	}
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Store is the session store used by the sequential thinking family.
type Store = session.Store[*Payload]

// NewStore creates an empty sequential thinking store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindSequential)
}

// Service implements sequential thinking.
type Service struct {
	store *Store
}

// NewService creates a sequential thinking service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// ThoughtInput is one call of the sequential_thinking tool. An empty
// SessionID starts a new chain.
type ThoughtInput struct {
	SessionID         string `json:"session_id"`
	Thought           string `json:"thought" validate:"required"`
	ThoughtNumber     int    `json:"thought_number" validate:"gte=1"`
	TotalThoughts     int    `json:"total_thoughts" validate:"gte=1"`
	NextThoughtNeeded bool   `json:"next_thought_needed"`
	IsRevision        bool   `json:"is_revision"`
	RevisesThought    int    `json:"revises_thought" validate:"required_if=IsRevision true,gte=0"`
	BranchFromThought int    `json:"branch_from_thought" validate:"gte=0"`
	BranchID          string `json:"branch_id" validate:"required_with=BranchFromThought"`
}

// Result is returned after each thought and by GetResult.
type Result struct {
	SessionID         string        `json:"session_id"`
	Phase             session.Phase `json:"phase"`
	ThoughtNumber     int           `json:"thought_number,omitempty"`
	TotalThoughts     int           `json:"total_thoughts"`
	NextThoughtNeeded bool          `json:"next_thought_needed"`
	Branches          []string      `json:"branches"`
	HistoryLength     int           `json:"thought_history_length"`
	Thoughts          []Thought     `json:"thoughts,omitempty"`
	NextAction        string        `json:"next_action"`
}

func result(sess *session.Session[*Payload]) *Result {
	return &Result{
		SessionID:         sess.ID,
		Phase:             sess.Phase,
		TotalThoughts:     sess.Payload.TotalThoughts,
		NextThoughtNeeded: sess.Phase != PhaseCompleted,
		Branches:          sess.Payload.branches(),
		HistoryLength:     len(sess.Payload.Thoughts),
		NextAction:        Machine.Hint(sess.Phase),
	}
}

// Think appends a thought, creating the session first when needed.
func (s *Service) Think(in ThoughtInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Thought = strings.TrimSpace(in.Thought)
	in.BranchID = strings.TrimSpace(in.BranchID)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	id := in.SessionID
	if id == "" {
		// The new session has no thoughts, so a revision or branch can
		// only be checked once it exists; the update below does that and
		// the empty session is removed again on failure.
		id = s.store.Create(PhaseThinking, &Payload{TotalThoughts: in.TotalThoughts}, fmt.Sprintf("%d thoughts planned", in.TotalThoughts)).ID
	}

	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, actionThought); err != nil {
			return err
		}
		p := sess.Payload
		if in.IsRevision && !p.has(in.RevisesThought) {
			return workflow.FieldError("revises_thought", "thought %d does not exist", in.RevisesThought)
		}
		if in.BranchFromThought > 0 && !p.has(in.BranchFromThought) {
			return workflow.FieldError("branch_from_thought", "thought %d does not exist", in.BranchFromThought)
		}
		p.TotalThoughts = max(in.TotalThoughts, in.ThoughtNumber)
		p.Thoughts = append(p.Thoughts, Thought{
			Number:            in.ThoughtNumber,
			Text:              in.Thought,
			IsRevision:        in.IsRevision,
			RevisesThought:    in.RevisesThought,
			BranchFromThought: in.BranchFromThought,
			BranchID:          in.BranchID,
			Timestamp:         timeNow().UTC(),
		})
		to := PhaseThinking
		if !in.NextThoughtNeeded {
			to = PhaseCompleted
		}
		return workflow.ApplyTo(sess, Machine, actionThought, to, fmt.Sprintf("thought %d/%d", in.ThoughtNumber, p.TotalThoughts))
	})
	if err != nil {
		if in.SessionID == "" {
			s.store.Delete(id)
		}
		return nil, err
	}
	res := result(sess)
	res.ThoughtNumber = in.ThoughtNumber
	return res, nil
}

// GetResult returns the full chain.
func (s *Service) GetResult(id string) (*Result, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	res := result(sess)
	res.Thoughts = sess.Payload.Thoughts
	return res, nil
}
