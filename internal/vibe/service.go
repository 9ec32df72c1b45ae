package vibe

import (
	"fmt"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// Store is the session store used by the vibe family.
type Store = session.Store[*Payload]

// NewStore creates an empty vibe store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindVibe)
}

// Service implements the vibe refinement operations.
type Service struct {
	store *Store
}

// NewService creates a vibe refinement service.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Progress is the step counter shown to the caller.
type Progress struct {
	CurrentStep int   `json:"current_step"`
	TotalSteps  int   `json:"total_steps"`
	Stage       Stage `json:"stage"`
	Percentage  int   `json:"percentage"`
}

func progress(p *Payload) Progress {
	pr := Progress{CurrentStep: p.CurrentStep, TotalSteps: p.Assessment.TotalSteps}
	if p.CurrentStep > 0 {
		pr.Stage = p.stageOf(p.CurrentStep)
	}
	if pr.TotalSteps > 0 {
		pr.Percentage = p.completed() * 100 / pr.TotalSteps
	}
	return pr
}

// completed counts the steps that have a selection.
func (p *Payload) completed() int {
	n := 0
	for _, st := range p.Steps {
		if st.Selection != nil {
			n++
		}
	}
	return n
}

// Result is returned by the mutating operations.
type Result struct {
	SessionID  string        `json:"session_id"`
	Phase      session.Phase `json:"phase"`
	Analysis   *Assessment   `json:"analysis,omitempty"`
	Progress   Progress      `json:"progress"`
	Selection  *Suggestion   `json:"selected_suggestion,omitempty"`
	Message    string        `json:"message"`
	NextAction string        `json:"next_action"`
	Expected   []string      `json:"expected_actions,omitempty"`
}

func result(sess *session.Session[*Payload], msg string) *Result {
	return &Result{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Progress:   progress(sess.Payload),
		Message:    msg,
		NextAction: Machine.Hint(sess.Phase),
		Expected:   Machine.Expected(sess.Phase),
	}
}

// InitializeInput starts a refinement session.
type InitializeInput struct {
	InitialPrompt string `json:"initial_prompt" validate:"required"`
}

// Initialize scores the prompt and starts a session.
func (s *Service) Initialize(in InitializeInput) (*Result, error) {
	in.InitialPrompt = strings.TrimSpace(in.InitialPrompt)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	a := Assess(in.InitialPrompt)
	sess := s.store.Create(PhaseActive, &Payload{InitialPrompt: in.InitialPrompt, Assessment: a},
		fmt.Sprintf("score %d, %d+%d steps", a.Score, a.IdeaSteps, a.SystemSteps))
	res := result(sess, fmt.Sprintf("Session initialized. Specificity %d/100 (%s); %d refinement steps.", a.Score, a.Interpretation, a.TotalSteps))
	res.Analysis = &sess.Payload.Assessment
	return res, nil
}

// Instructions tell the calling model what to generate for a step.
type Instructions struct {
	Task                string   `json:"task"`
	FocusArea           string   `json:"focus_area"`
	InitialPrompt       string   `json:"initial_prompt"`
	DecisionsSoFar      []string `json:"decisions_so_far"`
	NumberOfSuggestions int      `json:"number_of_suggestions"`
	Requirements        []string `json:"requirements"`
}

// StepResult is returned by GetNext.
type StepResult struct {
	SessionID    string        `json:"session_id"`
	Phase        session.Phase `json:"phase"`
	Progress     Progress      `json:"progress"`
	Question     string        `json:"question"`
	Instructions Instructions  `json:"llm_instructions"`
	NextAction   string        `json:"next_action"`
}

func decisionsSoFar(p *Payload) []string {
	out := []string{}
	for _, st := range p.Steps {
		if st.Selection != nil {
			out = append(out, fmt.Sprintf("Step %d (%s): %s", st.Number, st.Stage, st.Selection.Title))
		}
	}
	return out
}

func instructions(p *Payload, st *Step) Instructions {
	task := fmt.Sprintf("Generate %d creative ideas for refining: '%s'", SuggestionCount, p.InitialPrompt)
	if st.Stage == StageSystem {
		task = fmt.Sprintf("Generate %d technical approaches for implementing the project", SuggestionCount)
	}
	return Instructions{
		Task:                task,
		FocusArea:           st.FocusArea,
		InitialPrompt:       p.InitialPrompt,
		DecisionsSoFar:      decisionsSoFar(p),
		NumberOfSuggestions: SuggestionCount,
		Requirements: []string{
			"Each suggestion has an id, a concise title and a 150-250 word description",
			"Mark exactly one suggestion as recommended",
			"Present all five options in full before the recommendation",
			"Build on the decisions made so far",
		},
	}
}

// GetNext opens the next step and returns its question.
func (s *Service) GetNext(id string) (*StepResult, error) {
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "get_next"); err != nil {
			return err
		}
		p := sess.Payload
		n := p.CurrentStep + 1
		q, focus := p.question(n)
		p.CurrentStep = n
		p.Steps = append(p.Steps, Step{
			Number:    n,
			Stage:     p.stageOf(n),
			Question:  q,
			FocusArea: focus,
			Timestamp: timeNow().UTC(),
		})
		return workflow.Apply(sess, Machine, "get_next", fmt.Sprintf("step %d/%d", n, p.Assessment.TotalSteps))
	})
	if err != nil {
		return nil, err
	}
	st := sess.Payload.current()
	return &StepResult{
		SessionID:    sess.ID,
		Phase:        sess.Phase,
		Progress:     progress(sess.Payload),
		Question:     st.Question,
		Instructions: instructions(sess.Payload, st),
		NextAction:   Machine.Hint(sess.Phase),
	}, nil
}

// SuggestInput carries the five generated suggestions.
type SuggestInput struct {
	SessionID   string       `json:"session_id" validate:"required"`
	Suggestions []Suggestion `json:"suggestions" validate:"required,len=5,dive"`
}

func checkSuggestions(in []Suggestion) error {
	seen := make(map[string]bool, len(in))
	recommended := 0
	for i, sg := range in {
		key := strings.ToLower(sg.ID)
		if seen[key] {
			return workflow.FieldError(fmt.Sprintf("suggestions[%d].id", i), "duplicate suggestion id %q", sg.ID)
		}
		seen[key] = true
		if sg.IsRecommended {
			recommended++
		}
	}
	if recommended != 1 {
		return workflow.FieldError("suggestions", "exactly one suggestion must be recommended, got %d", recommended)
	}
	return nil
}

// Suggest stores the suggestions for the current step. Calling it again
// before submit replaces them.
func (s *Service) Suggest(in SuggestInput) (*Result, error) {
	for i := range in.Suggestions {
		sg := &in.Suggestions[i]
		sg.ID = strings.TrimSpace(sg.ID)
		sg.Title = strings.TrimSpace(sg.Title)
		sg.Description = strings.TrimSpace(sg.Description)
	}
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	if err := checkSuggestions(in.Suggestions); err != nil {
		return nil, err
	}
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "suggest"); err != nil {
			return err
		}
		st := sess.Payload.current()
		st.Suggestions = append([]Suggestion(nil), in.Suggestions...)
		return workflow.Apply(sess, Machine, "suggest", fmt.Sprintf("step %d, %d suggestions", st.Number, len(in.Suggestions)))
	})
	if err != nil {
		return nil, err
	}
	return result(sess, "Suggestions recorded. Present all five to the user and submit their choice."), nil
}

func candidates(suggestions []Suggestion) []workflow.Candidate {
	out := make([]workflow.Candidate, len(suggestions))
	for i, sg := range suggestions {
		c := workflow.Candidate{ID: sg.ID, Name: sg.Title, Title: sg.Title}
		if sg.IsRecommended {
			c.Synonyms = []string{"recommended", "recommendation", "your recommendation"}
		}
		out[i] = c
	}
	return out
}

// SubmitInput is the user's free-text choice.
type SubmitInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Selection string `json:"selection" validate:"required"`
}

// Submit resolves the selection among the current suggestions. The
// session returns to active, or completes after the last step.
func (s *Service) Submit(in SubmitInput) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess, err := s.store.Update(in.SessionID, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, "submit"); err != nil {
			return err
		}
		p := sess.Payload
		st := p.current()
		idx, err := workflow.Resolve(in.Selection, candidates(st.Suggestions))
		if err != nil {
			return err
		}
		sel := st.Suggestions[idx]
		st.Selection = &sel
		to := PhaseActive
		if p.CurrentStep >= p.Assessment.TotalSteps {
			to = PhaseCompleted
		}
		return workflow.ApplyTo(sess, Machine, "submit", to, fmt.Sprintf("step %d: %s", st.Number, sel.Title))
	})
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	msg := fmt.Sprintf("Selection recorded for step %d/%d.", p.CurrentStep, p.Assessment.TotalSteps)
	if sess.Phase == PhaseCompleted {
		msg = "Final selection recorded. All steps completed; the report is ready."
	}
	res := result(sess, msg)
	res.Selection = p.current().Selection
	return res, nil
}

// Status is the read-only view of a session.
type Status struct {
	SessionID     string        `json:"session_id"`
	Phase         session.Phase `json:"phase"`
	InitialPrompt string        `json:"initial_prompt"`
	Score         int           `json:"specificity_score"`
	IdeaSteps     int           `json:"idea_steps"`
	SystemSteps   int           `json:"system_steps"`
	Progress      Progress      `json:"progress"`
	Decisions     []string      `json:"decisions"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	NextAction    string        `json:"next_action"`
}

// Status returns the state of a session.
func (s *Service) Status(id string) (*Status, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	return &Status{
		SessionID:     sess.ID,
		Phase:         sess.Phase,
		InitialPrompt: p.InitialPrompt,
		Score:         p.Assessment.Score,
		IdeaSteps:     p.Assessment.IdeaSteps,
		SystemSteps:   p.Assessment.SystemSteps,
		Progress:      progress(p),
		Decisions:     decisionsSoFar(p),
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
		NextAction:    Machine.Hint(sess.Phase),
	}, nil
}

// Report renders the decisions of a session in format. It is allowed in
// any phase and does not change the session.
func (s *Service) Report(id string, format render.Format) (string, error) {
	if format == "" {
		format = render.FormatMarkdown
	}
	if err := render.ValidateFormat(format); err != nil {
		return "", workflow.FieldError("format", "%s", err.Error())
	}
	sess, err := s.store.Get(id)
	if err != nil {
		return "", err
	}
	return render.Export(format, newDocument(sess))
}

// ListEntry is one row of List.
type ListEntry struct {
	SessionID     string        `json:"session_id"`
	InitialPrompt string        `json:"initial_prompt"`
	Phase         session.Phase `json:"phase"`
	CurrentStep   int           `json:"current_step"`
	TotalSteps    int           `json:"total_steps"`
	CreatedAt     time.Time     `json:"created_at"`
}

// List returns every session in creation order.
func (s *Service) List() []ListEntry {
	sessions := s.store.Sessions()
	out := make([]ListEntry, len(sessions))
	for i, sess := range sessions {
		prompt := []rune(sess.Payload.InitialPrompt)
		text := string(prompt)
		if len(prompt) > 50 {
			text = string(prompt[:50]) + "..."
		}
		out[i] = ListEntry{
			SessionID:     sess.ID,
			InitialPrompt: text,
			Phase:         sess.Phase,
			CurrentStep:   sess.Payload.CurrentStep,
			TotalSteps:    sess.Payload.Assessment.TotalSteps,
			CreatedAt:     sess.CreatedAt,
		}
	}
	return out
}

// Delete removes a session.
func (s *Service) Delete(id string) bool {
	return s.store.Delete(id)
}
