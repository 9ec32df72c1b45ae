package counterfactual

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/HendryAvila/reasonkit/internal/artifacts"
	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// totalSteps is the number of Phase 3 steps.
const totalSteps = 5

// Store is the session store used by the counterfactual family.
type Store = session.Store[*Payload]

// NewStore creates an empty counterfactual store.
func NewStore() *Store {
	return session.NewStore[*Payload](session.KindCounterfactual)
}

// Service implements the counterfactual reasoning operations.
type Service struct {
	store *Store
	files *artifacts.Writer
}

// NewService creates a counterfactual service that writes reports through files.
func NewService(store *Store, files *artifacts.Writer) *Service {
	return &Service{store: store, files: files}
}

// Store returns the underlying session store.
func (s *Service) Store() *Store { return s.store }

// Result is returned by every mutating operation.
type Result struct {
	SessionID     string         `json:"session_id"`
	Phase         session.Phase  `json:"phase"`
	SelectedType  ScenarioType   `json:"selected_type,omitempty"`
	AnalyzedTypes []ScenarioType `json:"analyzed_types"`
	Remaining     []ScenarioType `json:"remaining_types,omitempty"`
	Stale         []ScenarioType `json:"stale_analyses,omitempty"`
	CurrentStep   int            `json:"current_step,omitempty"`
	TotalSteps    int            `json:"total_steps,omitempty"`
	OutputPath    string         `json:"md_file"`
	Message       string         `json:"message"`
	NextAction    string         `json:"next_action"`
	Expected      []string       `json:"expected_actions,omitempty"`
}

func result(sess *session.Session[*Payload], msg string) *Result {
	p := sess.Payload
	res := &Result{
		SessionID:     sess.ID,
		Phase:         sess.Phase,
		SelectedType:  p.SelectedType,
		AnalyzedTypes: slices.Clone(p.Analyzed),
		Stale:         slices.Clone(p.Stale),
		OutputPath:    p.OutputPath,
		Message:       msg,
		NextAction:    Machine.Hint(sess.Phase),
		Expected:      Machine.Expected(sess.Phase),
	}
	if res.AnalyzedTypes == nil {
		res.AnalyzedTypes = []ScenarioType{}
	}
	if sess.Phase == PhaseAwaitingSelection {
		res.Remaining = p.Remaining()
	}
	if a := p.current(); a != nil && a.Step > 0 && a.Comparative == nil {
		res.CurrentStep = a.Step
		res.TotalSteps = totalSteps
	}
	return res
}

func joinTypes(ts []ScenarioType) string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return strings.Join(out, ", ")
}

func reportFile(id string) string {
	return filepath.Join("counterfactual", id+".md")
}

func (s *Service) writeReport(sess *session.Session[*Payload]) error {
	_, err := s.files.Write(reportFile(sess.ID), newDocument(sess).Markdown())
	return err
}

// step runs fn under the session lock after checking that action is legal
// in the current phase. fn returns the target phase, or "" to take the
// single declared one, plus the history summary. The report is rewritten
// before the change is committed.
func (s *Service) step(id, action string, fn func(p *Payload) (session.Phase, string, error)) (*session.Session[*Payload], error) {
	return s.store.Update(id, func(sess *session.Session[*Payload]) error {
		if err := Machine.Check(sess.Phase, action); err != nil {
			return err
		}
		to, summary, err := fn(sess.Payload)
		if err != nil {
			return err
		}
		if to == "" {
			err = workflow.Apply(sess, Machine, action, summary)
		} else {
			err = workflow.ApplyTo(sess, Machine, action, to, summary)
		}
		if err != nil {
			return err
		}
		return s.writeReport(sess)
	})
}

// InitializeInput starts a session.
type InitializeInput struct {
	Problem string `json:"problem" validate:"required"`
	Context string `json:"context"`
}

// Initialize starts a session and writes the empty report.
func (s *Service) Initialize(in InitializeInput) (*Result, error) {
	in.Problem = strings.TrimSpace(in.Problem)
	in.Context = strings.TrimSpace(in.Context)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess := s.store.Create(PhaseInitialized, &Payload{Problem: in.Problem, Context: in.Context}, truncate(in.Problem, 80))
	id := sess.ID
	sess, err := s.store.Update(id, func(sess *session.Session[*Payload]) error {
		sess.Payload.OutputPath = s.files.Path(reportFile(sess.ID))
		return s.writeReport(sess)
	})
	if err != nil {
		s.store.Delete(id)
		return nil, err
	}
	return result(sess, "Session initialized. Next: analyse the actual state (current_state, causal_chain)."), nil
}

// Phase1Input is the actual-state analysis.
type Phase1Input struct {
	SessionID    string       `json:"session_id" validate:"required"`
	CurrentState CurrentState `json:"current_state" validate:"required"`
	CausalChain  CausalChain  `json:"causal_chain" validate:"required"`
}

// Phase1 records the actual state and its causal chain.
func (s *Service) Phase1(in Phase1Input) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess, err := s.step(in.SessionID, "phase1", func(p *Payload) (session.Phase, string, error) {
		p.ActualState = &ActualState{CurrentState: in.CurrentState, CausalChain: in.CausalChain}
		return "", fmt.Sprintf("%d root causes", len(in.CausalChain.RootCauses)), nil
	})
	if err != nil {
		return nil, err
	}
	return result(sess, "Phase 1 complete. Next: generate the four counterfactual scenarios."), nil
}

// Phase2Input carries the four scenarios and an optional type to analyse.
type Phase2Input struct {
	SessionID    string       `json:"session_id" validate:"required"`
	Scenarios    Scenarios    `json:"scenarios" validate:"required"`
	SelectedType ScenarioType `json:"selected_type" validate:"omitempty,oneof=diagnostic predictive preventive optimization"`
}

// Phase2 stores the scenarios. Without selected_type the session waits for
// cf_submit_selection; with one it goes straight to Phase 3.
//
// Phase2 may be replayed while waiting for a selection. The new scenarios
// replace the old ones, finished analyses are kept, and their types are
// reported in stale_analyses.
func (s *Service) Phase2(in Phase2Input) (*Result, error) {
	in.SelectedType = ScenarioType(strings.ToLower(strings.TrimSpace(string(in.SelectedType))))
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess, err := s.step(in.SessionID, "phase2", func(p *Payload) (session.Phase, string, error) {
		if in.SelectedType != "" && slices.Contains(p.Analyzed, in.SelectedType) {
			return "", "", workflow.FieldError("selected_type", "scenario type %s has already been analyzed", in.SelectedType)
		}
		if p.Scenarios != nil {
			for _, t := range p.Analyzed {
				if !slices.Contains(p.Stale, t) {
					p.Stale = append(p.Stale, t)
				}
			}
		}
		sc := in.Scenarios
		p.Scenarios = &sc
		if in.SelectedType == "" {
			p.SelectedType = ""
			return PhaseAwaitingSelection, "4 scenarios", nil
		}
		p.startAnalysis(in.SelectedType)
		return PhaseTypeSelected, "4 scenarios, selected " + string(in.SelectedType), nil
	})
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Phase 2 complete. Selected: %s. Next: apply the core principles.", sess.Payload.SelectedType)
	if sess.Phase == PhaseAwaitingSelection {
		msg = "Phase 2 complete. Choose the scenario type to analyse next."
	}
	if stale := sess.Payload.Stale; len(stale) > 0 {
		msg += fmt.Sprintf(" Scenarios replaced; earlier analyses of %s were built on the previous scenarios (see stale_analyses).", joinTypes(stale))
	}
	return result(sess, msg), nil
}

// startAnalysis starts a fresh analysis of t.
func (p *Payload) startAnalysis(t ScenarioType) {
	p.SelectedType = t
	if p.Analyses == nil {
		p.Analyses = make(map[ScenarioType]*Analysis)
	}
	p.Analyses[t] = &Analysis{Type: t}
}

// SelectionInput is free text naming the next scenario type.
type SelectionInput struct {
	SessionID string `json:"session_id" validate:"required"`
	Selection string `json:"selection" validate:"required"`
}

// SubmitSelection resolves free text among the types not yet analysed.
func (s *Service) SubmitSelection(in SelectionInput) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	sess, err := s.step(in.SessionID, "submit_selection", func(p *Payload) (session.Phase, string, error) {
		remaining := p.Remaining()
		cands := make([]workflow.Candidate, len(remaining))
		for i, t := range remaining {
			cands[i] = t.candidate()
		}
		idx, err := workflow.Resolve(in.Selection, cands)
		if err != nil {
			return "", "", err
		}
		p.startAnalysis(remaining[idx])
		return "", fmt.Sprintf("%q -> %s", in.Selection, remaining[idx]), nil
	})
	if err != nil {
		return nil, err
	}
	return result(sess, fmt.Sprintf("Selected: %s. Next: apply the core principles.", sess.Payload.SelectedType.DisplayName())), nil
}

// Step1Input applies the three core principles.
type Step1Input struct {
	SessionID  string     `json:"session_id" validate:"required"`
	Principles Principles `json:"principles_applied" validate:"required"`
}

// Phase3Step1 applies minimal change, causal consistency and proximity.
func (s *Service) Phase3Step1(in Step1Input) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	return s.phase3(in.SessionID, "phase3_step1", func(a *Analysis) {
		pr := in.Principles
		a.Principles = &pr
	})
}

// Step2Input is the level 1 direct impact.
type Step2Input struct {
	SessionID    string `json:"session_id" validate:"required"`
	Level1Direct string `json:"level1_direct" validate:"required"`
}

// Phase3Step2 records the direct impact.
func (s *Service) Phase3Step2(in Step2Input) (*Result, error) {
	in.Level1Direct = strings.TrimSpace(in.Level1Direct)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	return s.phase3(in.SessionID, "phase3_step2", func(a *Analysis) { a.Level1Direct = in.Level1Direct })
}

// Step3Input is the level 2 ripple effects.
type Step3Input struct {
	SessionID    string `json:"session_id" validate:"required"`
	Level2Ripple string `json:"level2_ripple" validate:"required"`
}

// Phase3Step3 records the ripple effects.
func (s *Service) Phase3Step3(in Step3Input) (*Result, error) {
	in.Level2Ripple = strings.TrimSpace(in.Level2Ripple)
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	return s.phase3(in.SessionID, "phase3_step3", func(a *Analysis) { a.Level2Ripple = in.Level2Ripple })
}

// Step4Input is the level 3 multidimensional impact.
type Step4Input struct {
	SessionID string     `json:"session_id" validate:"required"`
	Level3    Dimensions `json:"level3_multidimensional" validate:"required"`
}

// Phase3Step4 records the technical, organizational, cultural and external impact.
func (s *Service) Phase3Step4(in Step4Input) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	return s.phase3(in.SessionID, "phase3_step4", func(a *Analysis) {
		l := in.Level3
		a.Level3 = &l
	})
}

// Step5Input is the level 4 long-term view and the outcome scenarios.
type Step5Input struct {
	SessionID string   `json:"session_id" validate:"required"`
	Level4    LongTerm `json:"level4_longterm" validate:"required"`
	Outcomes  Outcomes `json:"outcome_scenarios" validate:"required"`
}

// Phase3Step5 completes Phase 3 for the selected type.
func (s *Service) Phase3Step5(in Step5Input) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	return s.phase3(in.SessionID, "phase3_step5", func(a *Analysis) {
		l, o := in.Level4, in.Outcomes
		a.Level4 = &l
		a.Outcomes = &o
	})
}

func (s *Service) phase3(id, action string, fn func(a *Analysis)) (*Result, error) {
	sess, err := s.step(id, action, func(p *Payload) (session.Phase, string, error) {
		a := p.current()
		if a == nil {
			return "", "", fmt.Errorf("counterfactual: no analysis for selected type %q", p.SelectedType)
		}
		fn(a)
		a.Step++
		return "", fmt.Sprintf("%s step %d/%d", p.SelectedType, a.Step, totalSteps), nil
	})
	if err != nil {
		return nil, err
	}
	a := sess.Payload.current()
	res := result(sess, fmt.Sprintf("Step %d/%d complete.", a.Step, totalSteps))
	res.CurrentStep = a.Step
	res.TotalSteps = totalSteps
	if a.Step == totalSteps {
		res.Message = "Phase 3 complete (5/5). Next: comparative analysis."
	}
	return res, nil
}

// Phase4Input is the comparative analysis of the selected type.
type Phase4Input struct {
	SessionID   string      `json:"session_id" validate:"required"`
	Comparative Comparative `json:"comparative_analysis" validate:"required"`
}

// Phase4 stores the comparative analysis. The session goes back to waiting
// for a selection while types remain, and completes after the last one.
func (s *Service) Phase4(in Phase4Input) (*Result, error) {
	if err := workflow.Validate(&in); err != nil {
		return nil, err
	}
	var analyzed ScenarioType
	sess, err := s.step(in.SessionID, "phase4", func(p *Payload) (session.Phase, string, error) {
		a := p.current()
		if a == nil {
			return "", "", fmt.Errorf("counterfactual: no analysis for selected type %q", p.SelectedType)
		}
		a.Comparative = in.Comparative.clone()
		now := timeNow().UTC()
		a.AnalyzedAt = &now
		analyzed = p.SelectedType
		p.Analyzed = append(p.Analyzed, analyzed)
		p.SelectedType = ""
		summary := fmt.Sprintf("%s analyzed (%d/%d)", analyzed, len(p.Analyzed), len(ScenarioTypes))
		if len(p.Remaining()) == 0 {
			p.CompletedAt = &now
			return PhaseCompleted, summary, nil
		}
		return PhaseAwaitingSelection, summary, nil
	})
	if err != nil {
		return nil, err
	}
	n := len(sess.Payload.Analyzed)
	if sess.Phase == PhaseCompleted {
		return result(sess, fmt.Sprintf("All %d types complete. Report: %s", n, sess.Payload.OutputPath)), nil
	}
	return result(sess, fmt.Sprintf("Phase 4 complete for %s (%d/%d). Choose the next scenario type or finish.",
		analyzed.Name(), n, len(ScenarioTypes))), nil
}

// Finish completes a session early once at least one type is analysed.
func (s *Service) Finish(id string) (*Result, error) {
	sess, err := s.step(id, "finish", func(p *Payload) (session.Phase, string, error) {
		if len(p.Analyzed) == 0 {
			return "", "", workflow.FieldError("analyzed_types", "analyze at least one scenario type before finishing")
		}
		now := timeNow().UTC()
		p.CompletedAt = &now
		return "", fmt.Sprintf("finished with %d/%d types", len(p.Analyzed), len(ScenarioTypes)), nil
	})
	if err != nil {
		return nil, err
	}
	return result(sess, fmt.Sprintf("Analysis finished with %d scenario types. Report: %s", len(sess.Payload.Analyzed), sess.Payload.OutputPath)), nil
}

// Outcome is the full result of a session.
type Outcome struct {
	SessionID       string                 `json:"session_id"`
	Phase           session.Phase          `json:"phase"`
	Problem         string                 `json:"problem"`
	Context         string                 `json:"context,omitempty"`
	ActualState     *ActualState           `json:"phase1_actual_state"`
	Scenarios       *Scenarios             `json:"phase2_scenarios"`
	SelectedType    ScenarioType           `json:"selected_type,omitempty"`
	Analyses        []*Analysis            `json:"analyses"`
	AnalyzedTypes   []ScenarioType         `json:"analyzed_types"`
	Stale           []ScenarioType         `json:"stale_analyses,omitempty"`
	DurationSeconds *float64               `json:"duration_seconds"`
	OutputPath      string                 `json:"md_file"`
	History         []session.HistoryEntry `json:"history"`
	NextAction      string                 `json:"next_action"`
}

// GetResult returns everything recorded for a session.
func (s *Service) GetResult(id string) (*Outcome, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	p := sess.Payload
	out := &Outcome{
		SessionID:     sess.ID,
		Phase:         sess.Phase,
		Problem:       p.Problem,
		Context:       p.Context,
		ActualState:   p.ActualState,
		Scenarios:     p.Scenarios,
		SelectedType:  p.SelectedType,
		Analyses:      p.sortedAnalyses(),
		AnalyzedTypes: p.Analyzed,
		Stale:         p.Stale,
		OutputPath:    p.OutputPath,
		History:       sess.History,
		NextAction:    Machine.Hint(sess.Phase),
	}
	if out.AnalyzedTypes == nil {
		out.AnalyzedTypes = []ScenarioType{}
	}
	if p.CompletedAt != nil {
		d := p.CompletedAt.Sub(sess.CreatedAt).Round(10 * time.Millisecond).Seconds()
		out.DurationSeconds = &d
	}
	return out, nil
}

// ListEntry is one row of List.
type ListEntry struct {
	SessionID     string        `json:"session_id"`
	Problem       string        `json:"problem"`
	Phase         session.Phase `json:"phase"`
	AnalyzedCount int           `json:"analyzed_count"`
	CreatedAt     time.Time     `json:"created_at"`
}

// List returns every session in creation order.
func (s *Service) List() []ListEntry {
	sessions := s.store.Sessions()
	out := make([]ListEntry, len(sessions))
	for i, sess := range sessions {
		out[i] = ListEntry{
			SessionID:     sess.ID,
			Problem:       truncate(sess.Payload.Problem, 50),
			Phase:         sess.Phase,
			AnalyzedCount: len(sess.Payload.Analyzed),
			CreatedAt:     sess.CreatedAt,
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

// Reset deletes a session. The report file is left on disk.
func (s *Service) Reset(id string) bool {
	return s.store.Delete(id)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
