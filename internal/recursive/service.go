package recursive

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// Store is the session store used by the recursive thinking family.
type Store = session.Store[*Payload]

// NewStore creates an empty recursive thinking store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindRecursive)
}

// Service implements recursive thinking.
type Service struct {
	store *Store
}

// NewService creates a recursive thinking service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Result is returned by the mutating operations.
type Result struct {
	SessionID     string        `json:"session_id"`
	Phase         session.Phase `json:"phase"`
	Cycle         int           `json:"cycle"`
	MaxCycles     int           `json:"max_cycles"`
	LatentStep    int           `json:"latent_step"`
	LatentSteps   int           `json:"latent_steps"`
	CurrentAnswer string        `json:"current_answer,omitempty"`
	StopReason    StopReason    `json:"stop_reason,omitempty"`
	Message       string        `json:"message"`
	NextAction    string        `json:"next_action"`
	Expected      []string      `json:"expected_actions,omitempty"`
}

func result(sess *session.Session[*Payload], msg string) *Result {
	p := sess.Payload
	return &Result{
		SessionID:     sess.ID,
		Phase:         sess.Phase,
		Cycle:         p.current().Number,
		MaxCycles:     p.MaxCycles,
		LatentStep:    len(p.current().Latent),
		LatentSteps:   p.LatentSteps,
		CurrentAnswer: p.Answer,
		StopReason:    p.StopReason,
		Message:       msg,
		NextAction:    Machine.Hint(sess.Phase),
		Expected:      Machine.Expected(sess.Phase),
	}
}

// InitializeInput starts a session.
type InitializeInput struct {
	Question      string `json:"question" validate:"required"`
	InitialAnswer string `json:"initial_answer"`
	LatentSteps   int    `json:"latent_steps" validate:"gte=0,lte=20"`
	MaxCycles     int    `json:"max_cycles" validate:"gte=0,lte=50"`
}

// Initialize starts a session with the first cycle open. Zero limits take
// the defaults.
func (s *Service) Initialize(in InitializeInput) (*Result, error) {
	in.Question = strings.TrimSpace(in.Question)
	in.InitialAnswer = strings.TrimSpace(in.InitialAnswer)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if in.LatentSteps == 0 {
		in.LatentSteps = DefaultLatentSteps
	}
	if in.MaxCycles == 0 {
		in.MaxCycles = DefaultMaxCycles
	}
	sess := s.store.Create(PhaseLatent, &Payload{
		Question:      in.Question,
		InitialAnswer: in.InitialAnswer,
		Answer:        in.InitialAnswer,
		LatentSteps:   in.LatentSteps,
		MaxCycles:     in.MaxCycles,
		Cycles:        []Cycle{{Number: 1}},
	}, in.Question)
	return result(sess, fmt.Sprintf(
		"Session initialized. Refine your reasoning about the question and current answer %d times with recursive_thinking_update_latent.",
		in.LatentSteps)), nil
}

// LatentInput is one refinement of the latent reasoning state.
type LatentInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Reasoning string `json:"latent_reasoning" validate:"required"`
}

// UpdateLatent records a latent update. The last update of a cycle moves
// the session to the answer update.
func (s *Service) UpdateLatent(in LatentInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Reasoning = strings.TrimSpace(in.Reasoning)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "update_latent"); err != nil {
			return err
		}
		p := sess.Payload
		cy := p.current()
		cy.Latent = append(cy.Latent, in.Reasoning)
		p.Latent = in.Reasoning
		to := PhaseLatent
		if len(cy.Latent) >= p.LatentSteps {
			to = PhaseAnswer
		}
		return workflow.ApplyTo(sess, Machine, "update_latent", to,
			fmt.Sprintf("cycle %d latent %d/%d", cy.Number, len(cy.Latent), p.LatentSteps))
	})
	if err != nil {
		return nil, err
	}
	cy := sess.Payload.current()
	msg := fmt.Sprintf("Latent update %d/%d of cycle %d recorded.", len(cy.Latent), sess.Payload.LatentSteps, cy.Number)
	if sess.Phase == PhaseAnswer {
		msg += " Now rewrite the answer from the refined reasoning."
	}
	return result(sess, msg), nil
}

// AnswerInput closes the current cycle with an improved answer.
type AnswerInput struct {
	SessionID  string  `json:"session_id" validate:"required"`
	Answer     string  `json:"answer" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Final      bool    `json:"is_final"`
}

// UpdateAnswer records the cycle's answer. The session completes when the
// answer is final or the cycle budget is spent; otherwise the next cycle
// opens.
func (s *Service) UpdateAnswer(in AnswerInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Answer = strings.TrimSpace(in.Answer)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "update_answer"); err != nil {
			return err
		}
		p := sess.Payload
		cy := p.current()
		cy.Answer = in.Answer
		cy.Confidence = in.Confidence
		p.Answer = in.Answer
		summary := fmt.Sprintf("cycle %d answer", cy.Number)

		switch {
		case in.Final:
			p.StopReason = StopFinal
		case len(p.Cycles) >= p.MaxCycles:
			p.StopReason = StopMaxCycles
		default:
			p.Cycles = append(p.Cycles, Cycle{Number: cy.Number + 1})
			return workflow.ApplyTo(sess, Machine, "update_answer", PhaseLatent, summary)
		}
		return workflow.ApplyTo(sess, Machine, "update_answer", PhaseCompleted, summary+", "+string(p.StopReason))
	})
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	switch p.StopReason {
	case StopFinal:
		return result(sess, fmt.Sprintf("Final answer recorded after %d cycles.", len(p.Cycles))), nil
	case StopMaxCycles:
		return result(sess, fmt.Sprintf("Cycle budget of %d reached. The last answer is the result.", p.MaxCycles)), nil
	}
	return result(sess, fmt.Sprintf("Answer updated. Cycle %d of %d started.", p.current().Number, p.MaxCycles)), nil
}

// Outcome is the read-only view of a session.
type Outcome struct {
	SessionID     string        `json:"session_id"`
	Phase         session.Phase `json:"phase"`
	Question      string        `json:"question"`
	InitialAnswer string        `json:"initial_answer,omitempty"`
	Answer        string        `json:"current_answer,omitempty"`
	Latent        string        `json:"current_latent,omitempty"`
	Cycles        []Cycle       `json:"cycles"`
	StopReason    StopReason    `json:"stop_reason,omitempty"`
	NextAction    string        `json:"next_action"`
}

// GetResult returns the question, every cycle and the current answer.
func (s *Service) GetResult(id string) (*Outcome, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	return &Outcome{
		SessionID:     sess.ID,
		Phase:         sess.Phase,
		Question:      p.Question,
		InitialAnswer: p.InitialAnswer,
		Answer:        p.Answer,
		Latent:        p.Latent,
		Cycles:        p.Cycles,
		StopReason:    p.StopReason,
		NextAction:    Machine.Hint(sess.Phase),
	}, nil
}

// List returns the recursive thinking sessions.
func (s *Service) List() []session.Summary {
	return s.store.List()
}

// Reset removes a session.
func (s *Service) Reset(id string) bool {
	return s.store.Delete(id)
}
