// Package counterfactual walks a problem through four phases: the actual
// state, four counterfactual scenarios, a five-step deep analysis of one
// scenario at a time, and a comparative analysis per scenario. Between
// scenarios the session waits for the caller to pick the next one.
package counterfactual

import (
	"slices"
	"time"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/workflow"
)

const (
	PhaseInitialized       session.Phase = "initialized"
	PhasePhase1Complete    session.Phase = "phase1_complete"
	PhaseAwaitingSelection session.Phase = "phase2_awaiting_selection"
	PhaseTypeSelected      session.Phase = "phase2_complete"
	PhaseStep1Complete     session.Phase = "phase3_step1_complete"
	PhaseStep2Complete     session.Phase = "phase3_step2_complete"
	PhaseStep3Complete     session.Phase = "phase3_step3_complete"
	PhaseStep4Complete     session.Phase = "phase3_step4_complete"
	PhasePhase3Complete    session.Phase = "phase3_complete"
	PhaseCompleted         session.Phase = "completed"
)

// Machine is the counterfactual state machine. phase2 and phase4 have two
// declared outcomes each; the service picks one with workflow.ApplyTo.
var Machine = workflow.NewMachine("cf_", []workflow.Transition{
	{From: PhaseInitialized, Action: "phase1", To: PhasePhase1Complete},
	{From: PhasePhase1Complete, Action: "phase2", To: PhaseAwaitingSelection},
	{From: PhasePhase1Complete, Action: "phase2", To: PhaseTypeSelected},
	{From: PhaseAwaitingSelection, Action: "submit_selection", To: PhaseTypeSelected},
	{From: PhaseAwaitingSelection, Action: "phase2", To: PhaseAwaitingSelection},
	{From: PhaseAwaitingSelection, Action: "phase2", To: PhaseTypeSelected},
	{From: PhaseAwaitingSelection, Action: "finish", To: PhaseCompleted},
	{From: PhaseTypeSelected, Action: "phase3_step1", To: PhaseStep1Complete},
	{From: PhaseStep1Complete, Action: "phase3_step2", To: PhaseStep2Complete},
	{From: PhaseStep2Complete, Action: "phase3_step3", To: PhaseStep3Complete},
	{From: PhaseStep3Complete, Action: "phase3_step4", To: PhaseStep4Complete},
	{From: PhaseStep4Complete, Action: "phase3_step5", To: PhasePhase3Complete},
	{From: PhasePhase3Complete, Action: "phase4", To: PhaseAwaitingSelection},
	{From: PhasePhase3Complete, Action: "phase4", To: PhaseCompleted},
}, PhaseCompleted)

// --- ScenarioType enum ---

// ScenarioType is one of the four counterfactual lenses.
type ScenarioType string

const (
	TypeDiagnostic   ScenarioType = "diagnostic"
	TypePredictive   ScenarioType = "predictive"
	TypePreventive   ScenarioType = "preventive"
	TypeOptimization ScenarioType = "optimization"
)

// ScenarioTypes is the canonical analysis order.
var ScenarioTypes = []ScenarioType{TypeDiagnostic, TypePredictive, TypePreventive, TypeOptimization}

type typeInfo struct {
	name     string
	display  string
	synonyms []string
}

var types = map[ScenarioType]typeInfo{
	TypeDiagnostic: {
		name:     "Diagnostic",
		display:  "Diagnostic (Root Cause Identification)",
		synonyms: []string{"diagnosis", "diagnose", "root cause", "cause"},
	},
	TypePredictive: {
		name:     "Predictive",
		display:  "Predictive (Future Prediction)",
		synonyms: []string{"prediction", "predict", "forecast", "future"},
	},
	TypePreventive: {
		name:     "Preventive",
		display:  "Preventive (Risk Prevention)",
		synonyms: []string{"prevention", "prevent", "preventative", "risk"},
	},
	TypeOptimization: {
		name:     "Optimization",
		display:  "Optimization (Improvement Exploration)",
		synonyms: []string{"optimize", "optimise", "optimisation", "improvement", "improve"},
	},
}

// Name is the short display name, e.g. "Preventive".
func (t ScenarioType) Name() string { return types[t].name }

// DisplayName is the report heading, e.g. "Preventive (Risk Prevention)".
func (t ScenarioType) DisplayName() string { return types[t].display }

func (t ScenarioType) candidate() workflow.Candidate {
	info := types[t]
	return workflow.Candidate{ID: string(t), Name: info.name, Synonyms: info.synonyms, Title: info.display}
}

// --- Phase 1 ---

// CurrentState describes what actually happened.
type CurrentState struct {
	WhatHappened       string   `json:"what_happened" validate:"required"`
	ExistingConditions []string `json:"existing_conditions"`
	Outcomes           []string `json:"outcomes"`
}

// CausalChain links root causes to the observed results.
type CausalChain struct {
	RootCauses            []string `json:"root_causes" validate:"required,min=1"`
	IntermediateProcesses []string `json:"intermediate_processes"`
	FinalResults          []string `json:"final_results"`
}

// ActualState is the Phase 1 result.
type ActualState struct {
	CurrentState CurrentState `json:"current_state"`
	CausalChain  CausalChain  `json:"causal_chain"`
}

func (a *ActualState) clone() *ActualState {
	if a == nil {
		return nil
	}
	c := *a
	c.CurrentState.ExistingConditions = slices.Clone(a.CurrentState.ExistingConditions)
	c.CurrentState.Outcomes = slices.Clone(a.CurrentState.Outcomes)
	c.CausalChain.RootCauses = slices.Clone(a.CausalChain.RootCauses)
	c.CausalChain.IntermediateProcesses = slices.Clone(a.CausalChain.IntermediateProcesses)
	c.CausalChain.FinalResults = slices.Clone(a.CausalChain.FinalResults)
	return &c
}

// --- Phase 2 ---

// Scenario is one counterfactual "what if".
type Scenario struct {
	ChangedCondition       string `json:"changed_condition" validate:"required"`
	CounterfactualScenario string `json:"counterfactual_scenario" validate:"required"`
	LogicalConsistency     string `json:"logical_consistency" validate:"required"`
}

// Scenarios holds one scenario per type. All four are required.
type Scenarios struct {
	Diagnostic   Scenario `json:"diagnostic" validate:"required"`
	Predictive   Scenario `json:"predictive" validate:"required"`
	Preventive   Scenario `json:"preventive" validate:"required"`
	Optimization Scenario `json:"optimization" validate:"required"`
}

// Get returns the scenario of type t.
func (s *Scenarios) Get(t ScenarioType) Scenario {
	switch t {
	case TypeDiagnostic:
		return s.Diagnostic
	case TypePredictive:
		return s.Predictive
	case TypePreventive:
		return s.Preventive
	case TypeOptimization:
		return s.Optimization
	}
	return Scenario{}
}

// --- Phase 3 ---

// Principles is step 1 of the deep analysis.
type Principles struct {
	MinimalChange     string `json:"minimal_change" validate:"required"`
	CausalConsistency string `json:"causal_consistency" validate:"required"`
	Proximity         string `json:"proximity" validate:"required"`
}

// Dimensions is step 4, the multidimensional impact.
type Dimensions struct {
	Technical      string `json:"technical" validate:"required"`
	Organizational string `json:"organizational" validate:"required"`
	Cultural       string `json:"cultural" validate:"required"`
	External       string `json:"external" validate:"required"`
}

// LongTerm is the level 4 part of step 5.
type LongTerm struct {
	Timeline          string `json:"timeline" validate:"required"`
	SustainedBenefits string `json:"sustained_benefits" validate:"required"`
	NewChallenges     string `json:"new_challenges" validate:"required"`
	Evolution         string `json:"evolution" validate:"required"`
}

// Outcomes is the outcome-scenario part of step 5.
type Outcomes struct {
	BestCase   string `json:"best_case" validate:"required"`
	WorstCase  string `json:"worst_case" validate:"required"`
	MostLikely string `json:"most_likely" validate:"required"`
}

// --- Phase 4 ---

// Comparison contrasts the actual and counterfactual worlds.
type Comparison struct {
	WhatDiffers         string `json:"what_differs" validate:"required"`
	WhyDiffers          string `json:"why_differs" validate:"required"`
	MagnitudeImportance string `json:"magnitude_importance"`
}

// Insights are the findings of a comparison.
type Insights struct {
	CriticalFindings         []string `json:"critical_findings" validate:"required,min=1"`
	CausalFactors            []string `json:"causal_factors"`
	ImprovementOpportunities []string `json:"improvement_opportunities"`
}

// Recommendations is the action roadmap.
type Recommendations struct {
	ImmediateActions    []string `json:"immediate_actions" validate:"required,min=1"`
	ShortTermPlans      []string `json:"short_term_plans"`
	LongTermInitiatives []string `json:"long_term_initiatives"`
	MonitoringMetrics   []string `json:"monitoring_metrics"`
}

// FinalSummary is the executive summary of one scenario.
type FinalSummary struct {
	KeyTakeaway            string   `json:"key_takeaway" validate:"required"`
	ExpectedImpact         string   `json:"expected_impact"`
	ImplementationTimeline string   `json:"implementation_timeline"`
	NextSteps              []string `json:"next_steps"`
}

// Comparative is the Phase 4 result for one scenario type.
type Comparative struct {
	ActualVsCounterfactual Comparison      `json:"actual_vs_counterfactual" validate:"required"`
	KeyInsights            Insights        `json:"key_insights" validate:"required"`
	ActionRecommendations  Recommendations `json:"action_recommendations" validate:"required"`
	FinalSummary           FinalSummary    `json:"final_summary" validate:"required"`
}

func (c *Comparative) clone() *Comparative {
	if c == nil {
		return nil
	}
	out := *c
	out.KeyInsights.CriticalFindings = slices.Clone(c.KeyInsights.CriticalFindings)
	out.KeyInsights.CausalFactors = slices.Clone(c.KeyInsights.CausalFactors)
	out.KeyInsights.ImprovementOpportunities = slices.Clone(c.KeyInsights.ImprovementOpportunities)
	out.ActionRecommendations.ImmediateActions = slices.Clone(c.ActionRecommendations.ImmediateActions)
	out.ActionRecommendations.ShortTermPlans = slices.Clone(c.ActionRecommendations.ShortTermPlans)
	out.ActionRecommendations.LongTermInitiatives = slices.Clone(c.ActionRecommendations.LongTermInitiatives)
	out.ActionRecommendations.MonitoringMetrics = slices.Clone(c.ActionRecommendations.MonitoringMetrics)
	out.FinalSummary.NextSteps = slices.Clone(c.FinalSummary.NextSteps)
	return &out
}

// Analysis collects Phases 3 and 4 for one scenario type. Step is the
// number of Phase 3 steps completed (0..5).
type Analysis struct {
	Type         ScenarioType `json:"type"`
	Step         int          `json:"current_step"`
	Principles   *Principles  `json:"principles_applied,omitempty"`
	Level1Direct string       `json:"level1_direct,omitempty"`
	Level2Ripple string       `json:"level2_ripple,omitempty"`
	Level3       *Dimensions  `json:"level3_multidimensional,omitempty"`
	Level4       *LongTerm    `json:"level4_longterm,omitempty"`
	Outcomes     *Outcomes    `json:"outcome_scenarios,omitempty"`
	Comparative  *Comparative `json:"comparative_analysis,omitempty"`
	AnalyzedAt   *time.Time   `json:"analyzed_at,omitempty"`
}

func (a *Analysis) clone() *Analysis {
	c := *a
	c.Principles = clonePtr(a.Principles)
	c.Level3 = clonePtr(a.Level3)
	c.Level4 = clonePtr(a.Level4)
	c.Outcomes = clonePtr(a.Outcomes)
	c.Comparative = a.Comparative.clone()
	c.AnalyzedAt = clonePtr(a.AnalyzedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Payload is the counterfactual session data.
type Payload struct {
	Problem      string                     `json:"problem"`
	Context      string                     `json:"context,omitempty"`
	OutputPath   string                     `json:"md_file"`
	ActualState  *ActualState               `json:"phase1_actual_state,omitempty"`
	Scenarios    *Scenarios                 `json:"phase2_scenarios,omitempty"`
	SelectedType ScenarioType               `json:"selected_type,omitempty"`
	Analyzed     []ScenarioType             `json:"analyzed_types"`
	Analyses     map[ScenarioType]*Analysis `json:"analyses,omitempty"`
	// Stale lists analysed types whose scenarios were replaced by a later
	// cf_phase2. Their analyses are kept as written.
	Stale       []ScenarioType `json:"stale_analyses,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Clone returns a deep copy.
func (p *Payload) Clone() *Payload {
	c := *p
	c.ActualState = p.ActualState.clone()
	c.Scenarios = clonePtr(p.Scenarios)
	c.Analyzed = slices.Clone(p.Analyzed)
	c.Stale = slices.Clone(p.Stale)
	if p.Analyses != nil {
		c.Analyses = make(map[ScenarioType]*Analysis, len(p.Analyses))
		for k, a := range p.Analyses {
			c.Analyses[k] = a.clone()
		}
	}
	c.CompletedAt = clonePtr(p.CompletedAt)
	return &c
}

// Stats returns the counts shown in session listings.
func (p *Payload) Stats() map[string]int {
	return map[string]int{
		"analyzed_types": len(p.Analyzed),
		"in_progress":    len(p.Analyses) - len(p.Analyzed),
	}
}

// Remaining lists the scenario types not yet analysed, in canonical order.
func (p *Payload) Remaining() []ScenarioType {
	var out []ScenarioType
	for _, t := range ScenarioTypes {
		if !slices.Contains(p.Analyzed, t) {
			out = append(out, t)
		}
	}
	return out
}

// current returns the analysis of the selected type.
func (p *Payload) current() *Analysis {
	return p.Analyses[p.SelectedType]
}

// sortedAnalyses returns the analyses in canonical type order.
func (p *Payload) sortedAnalyses() []*Analysis {
	out := make([]*Analysis, 0, len(p.Analyses))
	for _, t := range ScenarioTypes {
		if a, ok := p.Analyses[t]; ok {
			out = append(out, a)
		}
	}
	return out
}
