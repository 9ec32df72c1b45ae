package sampling

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Limits bound what a session accepts.
type Limits struct {
	MinSamples    int
	MaxSamples    int
	MinTextLength int
	MaxTextLength int
}

// DefaultLimits are used when the configuration leaves them unset.
var DefaultLimits = Limits{MinSamples: 3, MaxSamples: 10, MinTextLength: 10, MaxTextLength: 5000}

const defaultNumSamples = 5

// Store is the session store used by the sampling family.
type Store = session.Store[*Payload]

// NewStore creates an empty sampling store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindSampling)
}

// Service implements the verbalized sampling operations.
type Service struct {
	store  *Store
	limits Limits

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Service.
type Option func(*Service)

// WithLimits overrides the sample limits.
func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

// WithRand makes uniform and weighted selection reproducible.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// NewService creates a sampling service.
func NewService(store *Store, opts ...Option) *Service {
	s := &Service{store: store, limits: DefaultLimits}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

func (s *Service) intN(n int) int {
	if s.rng == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Service) float64() float64 {
	if s.rng == nil {
		return rand.Float64()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// InitializeInput starts a sampling session.
type InitializeInput struct {
	Query          string  `json:"query" validate:"required"`
	Mode           Mode    `json:"mode" validate:"required,oneof=generate improve explore balanced"`
	InputContent   string  `json:"input_content" validate:"required_if=Mode improve"`
	NumSamples     int     `json:"num_samples" validate:"gte=0"`
	MaxProbability float64 `json:"max_probability" validate:"gte=0,lte=1"`
}

// InitResult carries the instructions for the calling model.
type InitResult struct {
	SessionID      string        `json:"session_id"`
	Phase          session.Phase `json:"phase"`
	Mode           Mode          `json:"mode"`
	NumSamples     int           `json:"num_samples"`
	MaxProbability float64       `json:"max_probability"`
	Instructions   string        `json:"llm_instructions"`
	Message        string        `json:"message"`
	NextAction     string        `json:"next_action"`
}

func initResult(sess *session.Session[*Payload], msg string) *InitResult {
	return &InitResult{
		SessionID:      sess.ID,
		Phase:          sess.Phase,
		Mode:           sess.Payload.Mode,
		NumSamples:     sess.Payload.NumSamples,
		MaxProbability: sess.Payload.MaxProbability,
		Instructions:   instructions(sess.Payload),
		Message:        msg,
		NextAction:     Machine.Hint(sess.Phase),
	}
}

// Initialize starts a session. The ceiling is the smaller of the requested
// max_probability and the mode's own ceiling.
func (s *Service) Initialize(in InitializeInput) (*InitResult, error) {
	in.Query = strings.TrimSpace(in.Query)
	in.InputContent = strings.TrimSpace(in.InputContent)
	in.Mode = Mode(strings.ToLower(strings.TrimSpace(string(in.Mode))))
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if in.NumSamples == 0 {
		in.NumSamples = defaultNumSamples
	}
	if in.NumSamples < s.limits.MinSamples || in.NumSamples > s.limits.MaxSamples {
		return nil, workflow.FieldError("num_samples", "num_samples must be between %d and %d", s.limits.MinSamples, s.limits.MaxSamples)
	}
	maxProb := in.Mode.MaxProbability()
	if in.MaxProbability > 0 {
		maxProb = min(in.MaxProbability, maxProb)
	}

	sess := s.store.Create(PhaseInitialized, &Payload{
		Query:          in.Query,
		Mode:           in.Mode,
		InputContent:   in.InputContent,
		NumSamples:     in.NumSamples,
		MaxProbability: maxProb,
	}, fmt.Sprintf("%s, %d samples", in.Mode, in.NumSamples))
	return initResult(sess, fmt.Sprintf("Session initialized. Please generate %d diverse responses.", in.NumSamples)), nil
}

// SubmitInput carries one round of samples.
type SubmitInput struct {
	SessionID string   `json:"session_id" validate:"required"`
	Samples   []Sample `json:"samples" validate:"required,dive"`
	Strategy  Strategy `json:"selection_strategy" validate:"required,oneof=uniform weighted lowest highest"`
}

// Result is returned by submit and by get_all_samples.
type Result struct {
	SessionID  string              `json:"session_id"`
	Phase      session.Phase       `json:"phase"`
	Query      string              `json:"query,omitempty"`
	Mode       Mode                `json:"mode,omitempty"`
	Samples    []Sample            `json:"samples,omitempty"`
	Selected   *Selection          `json:"selected_sample,omitempty"`
	Statistics *render.SampleStats `json:"statistics,omitempty"`
	Message    string              `json:"message"`
	NextAction string              `json:"next_action"`
	Expected   []string            `json:"expected_actions,omitempty"`
}

func statistics(samples []Sample) *render.SampleStats {
	if len(samples) == 0 {
		return nil
	}
	probs := make([]float64, len(samples))
	lengths := make([]int, len(samples))
	for i, smp := range samples {
		probs[i] = smp.Probability
		lengths[i] = len([]rune(smp.Text))
	}
	st := render.Stats(probs, lengths)
	return &st
}

// checkSamples applies the per-session bounds the struct tags cannot know.
func (s *Service) checkSamples(samples []Sample, maxProb float64) error {
	n := len(samples)
	if n < s.limits.MinSamples || n > s.limits.MaxSamples {
		return workflow.FieldError("samples", "expected between %d and %d samples, got %d", s.limits.MinSamples, s.limits.MaxSamples, n)
	}
	for i, smp := range samples {
		l := len([]rune(smp.Text))
		if l < s.limits.MinTextLength || l > s.limits.MaxTextLength {
			return workflow.FieldError(fmt.Sprintf("samples[%d].text", i), "sample %d text length %d is outside %d..%d", i+1, l, s.limits.MinTextLength, s.limits.MaxTextLength)
		}
		if smp.Probability <= 0 || smp.Probability > maxProb {
			return workflow.FieldError(fmt.Sprintf("samples[%d].probability", i), "sample %d probability %s must be in (0, %s]", i+1, formatProb(smp.Probability), formatProb(maxProb))
		}
	}
	return nil
}

func (s *Service) pick(samples []Sample, strategy Strategy) int {
	switch strategy {
	case StrategyLowest:
		best := 0
		for i, smp := range samples {
			if smp.Probability < samples[best].Probability {
				best = i
			}
		}
		return best
	case StrategyHighest:
		best := 0
		for i, smp := range samples {
			if smp.Probability > samples[best].Probability {
				best = i
			}
		}
		return best
	case StrategyWeighted:
		// Weight 1/p favours the rarer answers.
		var total float64
		for _, smp := range samples {
			total += 1 / smp.Probability
		}
		r := s.float64() * total
		for i, smp := range samples {
			r -= 1 / smp.Probability
			if r < 0 {
				return i
			}
		}
		return len(samples) - 1
	default:
		return s.intN(len(samples))
	}
}

// SubmitSamples validates a round of samples and picks one. Submitting
// again before finalizing replaces the round; the replaced one is kept in
// previous_rounds as vs_resample would keep it.
func (s *Service) SubmitSamples(in SubmitInput) (*Result, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	in.Strategy = Strategy(strings.ToLower(strings.TrimSpace(string(in.Strategy))))
	if in.Strategy == "" {
		in.Strategy = StrategyUniform
	}
	for i := range in.Samples {
		in.Samples[i].Text = strings.TrimSpace(in.Samples[i].Text)
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}

	replaced := false
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "submit_samples"); err != nil {
			return err
		}
		p := sess.Payload
		if err := s.checkSamples(in.Samples, p.MaxProbability); err != nil {
			return err
		}
		if len(p.Samples) > 0 {
			p.PreviousRounds = append(p.PreviousRounds, Round{Samples: p.Samples, Selected: p.Selected})
			replaced = true
		}
		idx := s.pick(in.Samples, in.Strategy)
		p.Samples = slices.Clone(in.Samples)
		p.Strategy = in.Strategy
		p.Selected = &Selection{
			Index:       idx,
			Text:        in.Samples[idx].Text,
			Probability: in.Samples[idx].Probability,
			Strategy:    in.Strategy,
			SelectedAt:  timeNow().UTC(),
		}
		return workflow.Apply(sess, Machine, "submit_samples",
			fmt.Sprintf("%d samples, %s picked #%d", len(in.Samples), in.Strategy, idx+1))
	})
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Sample selected using '%s' strategy", in.Strategy)
	if replaced {
		msg += fmt.Sprintf(". The earlier round was replaced and kept as previous round %d", len(sess.Payload.PreviousRounds))
	}
	return &Result{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Selected:   sess.Payload.Selected,
		Statistics: statistics(sess.Payload.Samples),
		Message:    msg,
		NextAction: Machine.Hint(sess.Phase),
		Expected:   Machine.Expected(sess.Phase),
	}, nil
}

// GetAllSamples returns every sample of the current round.
func (s *Service) GetAllSamples(id string) (*Result, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	res := &Result{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Query:      p.Query,
		Mode:       p.Mode,
		Samples:    p.Samples,
		Selected:   p.Selected,
		Statistics: statistics(p.Samples),
		NextAction: Machine.Hint(sess.Phase),
	}
	if len(p.Samples) == 0 {
		res.Message = "No samples submitted yet"
	}
	return res, nil
}

// Resample discards the current round, keeping it in previous_rounds, and
// returns fresh instructions.
func (s *Service) Resample(id string) (*InitResult, error) {
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "resample"); err != nil {
			return err
		}
		p := sess.Payload
		p.PreviousRounds = append(p.PreviousRounds, Round{Samples: p.Samples, Selected: p.Selected})
		p.Samples = nil
		p.Selected = nil
		p.Strategy = ""
		return workflow.Apply(sess, Machine, "resample", fmt.Sprintf("round %d discarded", len(p.PreviousRounds)))
	})
	if err != nil {
		return nil, err
	}
	return initResult(sess, fmt.Sprintf("Ready for resampling. Generate %d new diverse responses.", sess.Payload.NumSamples)), nil
}

// Finalize accepts the current selection and completes the session.
func (s *Service) Finalize(id string) (*Result, error) {
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		return workflow.Apply(sess, Machine, "finalize", "")
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Selected:   sess.Payload.Selected,
		Statistics: statistics(sess.Payload.Samples),
		Message:    "Selection finalized.",
		NextAction: Machine.Hint(sess.Phase),
	}, nil
}

// Status is the read-only view of a session.
type Status struct {
	SessionID        string        `json:"session_id"`
	Phase            session.Phase `json:"phase"`
	Mode             Mode          `json:"mode"`
	Query            string        `json:"query"`
	NumSamples       int           `json:"num_samples"`
	MaxProbability   float64       `json:"max_probability"`
	SamplesSubmitted bool          `json:"samples_submitted"`
	HasSelection     bool          `json:"has_selection"`
	Strategy         Strategy      `json:"selection_strategy,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	HistoryLength    int           `json:"history_length"`
	NextAction       string        `json:"next_action"`
}

// Status returns the state of a session.
func (s *Service) Status(id string) (*Status, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	return &Status{
		SessionID:        sess.ID,
		Phase:            sess.Phase,
		Mode:             p.Mode,
		Query:            p.Query,
		NumSamples:       p.NumSamples,
		MaxProbability:   p.MaxProbability,
		SamplesSubmitted: len(p.Samples) > 0,
		HasSelection:     p.Selected != nil,
		Strategy:         p.Strategy,
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
		HistoryLength:    len(sess.History),
		NextAction:       Machine.Hint(sess.Phase),
	}, nil
}

// ListEntry is one row of List.
type ListEntry struct {
	SessionID    string        `json:"session_id"`
	Query        string        `json:"query"`
	Mode         Mode          `json:"mode"`
	Phase        session.Phase `json:"phase"`
	NumSamples   int           `json:"num_samples"`
	CreatedAt    time.Time     `json:"created_at"`
	HasSelection bool          `json:"has_selection"`
}

// List returns every session in creation order.
func (s *Service) List() []ListEntry {
	sessions := s.store.Sessions()
	out := make([]ListEntry, len(sessions))
	for i, sess := range sessions {
		q := []rune(sess.Payload.Query)
		query := string(q)
		if len(q) > 50 {
			query = string(q[:50]) + "..."
		}
		out[i] = ListEntry{
			SessionID:    sess.ID,
			Query:        query,
			Mode:         sess.Payload.Mode,
			Phase:        sess.Phase,
			NumSamples:   sess.Payload.NumSamples,
			CreatedAt:    sess.CreatedAt,
			HasSelection: sess.Payload.Selected != nil,
		}
	}
	return out
}

// Export renders a session in format.
func (s *Service) Export(id string, format render.Format) (string, error) {
	if err := render.ValidateFormat(format); err != nil {
		return "", workflow.FieldError("format", "%s", err.Error())
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	return render.Export(format, newDocument(sess))
}

// Delete removes a session.
func (s *Service) Delete(id string) bool {
	return s.store.Delete(id)
}
