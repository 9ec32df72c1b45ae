package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/counterfactual"
	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
)

var scenarioSchema = objectProp("One counterfactual scenario", map[string]any{
	"changed_condition":       strProp("The single condition that is changed"),
	"counterfactual_scenario": strProp("What would have happened instead"),
	"logical_consistency":     strProp("Why the scenario is consistent with the causal chain"),
}, "changed_condition", "counterfactual_scenario", "logical_consistency")

// Counterfactual returns the cf_* tools.
func Counterfactual(svc *counterfactual.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindCounterfactual,
		done: counterfactual.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			return svc.Export(id, render.FormatMarkdown)
		},
	}

	// bindPhase wraps a mutating call whose arguments are bound inside call.
	bindPhase := func(action string, call func(req mcp.CallToolRequest) (any, error)) handlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res, err := call(req)
			return f.mutate(action, res, err)
		}
	}

	return []Tool{
		newTool(
			mcp.NewTool("cf_initialize",
				mcp.WithDescription(
					"Start a counterfactual analysis. Phase 1 maps the actual state and causal chain, "+
						"phase 2 proposes four scenario types, phase 3 analyses the chosen type in five steps "+
						"and phase 4 compares it with reality. Next: cf_phase1.",
				),
				mcp.WithString("problem",
					mcp.Required(),
					mcp.Description("The situation or outcome to analyse"),
				),
				mcp.WithString("context",
					mcp.Description("Background information"),
				),
			),
			bindPhase("initialize", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.InitializeInput
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Initialize(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase1",
				mcp.WithDescription("Phase 1: describe what actually happened and the causal chain that led there."),
				sessionIDParam(),
				mcp.WithObject("current_state",
					mcp.Required(),
					mcp.Description("The actual state"),
					withSchema(objectSchema(map[string]any{
						"what_happened":       strProp("What happened"),
						"existing_conditions": strListProp("Conditions in place at the time"),
						"outcomes":            strListProp("Observed outcomes"),
					}, "what_happened")),
				),
				mcp.WithObject("causal_chain",
					mcp.Required(),
					mcp.Description("Causes leading to the outcome"),
					withSchema(objectSchema(map[string]any{
						"root_causes":            strListProp("Root causes (at least one)"),
						"intermediate_processes": strListProp("Processes between causes and results"),
						"final_results":          strListProp("Final results"),
					}, "root_causes")),
				),
			),
			bindPhase("phase1", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Phase1Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase1(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase2",
				mcp.WithDescription(
					"Phase 2: propose one scenario for each of the four types. Without selected_type the "+
						"session waits for cf_submit_selection; with it, analysis starts right away.",
				),
				sessionIDParam(),
				mcp.WithObject("scenarios",
					mcp.Required(),
					mcp.Description("The four scenario types"),
					withSchema(objectSchema(map[string]any{
						"diagnostic":   scenarioSchema,
						"predictive":   scenarioSchema,
						"preventive":   scenarioSchema,
						"optimization": scenarioSchema,
					}, "diagnostic", "predictive", "preventive", "optimization")),
				),
				mcp.WithString("selected_type",
					mcp.Description("Scenario type to analyse first"),
					mcp.Enum("diagnostic", "predictive", "preventive", "optimization"),
				),
			),
			bindPhase("phase2", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Phase2Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase2(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_submit_selection",
				mcp.WithDescription(
					"Choose which scenario type to analyse next, in free text, e.g. 'the prevention one' or '3'. "+
						"Only types not yet analysed can be chosen.",
				),
				sessionIDParam(),
				mcp.WithString("selection",
					mcp.Required(),
					mcp.Description("The user's choice"),
				),
			),
			bindPhase("submit_selection", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.SelectionInput
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.SubmitSelection(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase3_step1",
				mcp.WithDescription("Phase 3, step 1: state how the scenario respects the counterfactual principles."),
				sessionIDParam(),
				mcp.WithObject("principles_applied",
					mcp.Required(),
					mcp.Description("Principles applied to the scenario"),
					withSchema(objectSchema(map[string]any{
						"minimal_change":     strProp("Only the minimal change is made"),
						"causal_consistency": strProp("The causal chain stays consistent"),
						"proximity":          strProp("The scenario stays close to reality"),
					}, "minimal_change", "causal_consistency", "proximity")),
				),
			),
			bindPhase("phase3_step1", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Step1Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase3Step1(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase3_step2",
				mcp.WithDescription("Phase 3, step 2: the direct effects of the change."),
				sessionIDParam(),
				mcp.WithString("level1_direct",
					mcp.Required(),
					mcp.Description("Direct effects"),
				),
			),
			bindPhase("phase3_step2", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Step2Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase3Step2(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase3_step3",
				mcp.WithDescription("Phase 3, step 3: the ripple effects of the change."),
				sessionIDParam(),
				mcp.WithString("level2_ripple",
					mcp.Required(),
					mcp.Description("Ripple effects"),
				),
			),
			bindPhase("phase3_step3", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Step3Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase3Step3(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase3_step4",
				mcp.WithDescription("Phase 3, step 4: effects across technical, organizational, cultural and external dimensions."),
				sessionIDParam(),
				mcp.WithObject("level3_multidimensional",
					mcp.Required(),
					mcp.Description("Effects per dimension"),
					withSchema(objectSchema(map[string]any{
						"technical":      strProp("Technical effects"),
						"organizational": strProp("Organizational effects"),
						"cultural":       strProp("Cultural effects"),
						"external":       strProp("External effects"),
					}, "technical", "organizational", "cultural", "external")),
				),
			),
			bindPhase("phase3_step4", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Step4Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase3Step4(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase3_step5",
				mcp.WithDescription("Phase 3, step 5: long-term effects and outcome scenarios."),
				sessionIDParam(),
				mcp.WithObject("level4_longterm",
					mcp.Required(),
					mcp.Description("Long-term effects"),
					withSchema(objectSchema(map[string]any{
						"timeline":           strProp("How effects unfold over time"),
						"sustained_benefits": strProp("Benefits that last"),
						"new_challenges":     strProp("Challenges the change introduces"),
						"evolution":          strProp("How the system evolves"),
					}, "timeline", "sustained_benefits", "new_challenges", "evolution")),
				),
				mcp.WithObject("outcome_scenarios",
					mcp.Required(),
					mcp.Description("Best, worst and most likely outcomes"),
					withSchema(objectSchema(map[string]any{
						"best_case":   strProp("Best case"),
						"worst_case":  strProp("Worst case"),
						"most_likely": strProp("Most likely case"),
					}, "best_case", "worst_case", "most_likely")),
				),
			),
			bindPhase("phase3_step5", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Step5Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase3Step5(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_phase4",
				mcp.WithDescription(
					"Phase 4: compare the scenario with reality. The session then waits for the next "+
						"type, or completes after the fourth.",
				),
				sessionIDParam(),
				mcp.WithObject("comparative_analysis",
					mcp.Required(),
					mcp.Description("Comparison, insights, recommendations and summary"),
					withSchema(objectSchema(map[string]any{
						"actual_vs_counterfactual": objectProp("How the scenario differs from reality", map[string]any{
							"what_differs":         strProp("What differs"),
							"why_differs":          strProp("Why it differs"),
							"magnitude_importance": strProp("How much it matters"),
						}, "what_differs", "why_differs"),
						"key_insights": objectProp("Insights", map[string]any{
							"critical_findings":         strListProp("Critical findings (at least one)"),
							"causal_factors":            strListProp("Causal factors"),
							"improvement_opportunities": strListProp("Improvement opportunities"),
						}, "critical_findings"),
						"action_recommendations": objectProp("Recommendations", map[string]any{
							"immediate_actions":     strListProp("Immediate actions (at least one)"),
							"short_term_plans":      strListProp("Short-term plans"),
							"long_term_initiatives": strListProp("Long-term initiatives"),
							"monitoring_metrics":    strListProp("Metrics to monitor"),
						}, "immediate_actions"),
						"final_summary": objectProp("Summary", map[string]any{
							"key_takeaway":            strProp("The key takeaway"),
							"expected_impact":         strProp("Expected impact"),
							"implementation_timeline": strProp("Implementation timeline"),
							"next_steps":              strListProp("Next steps"),
						}, "key_takeaway"),
					}, "actual_vs_counterfactual", "key_insights", "action_recommendations", "final_summary")),
				),
			),
			bindPhase("phase4", func(req mcp.CallToolRequest) (any, error) {
				var in counterfactual.Phase4Input
				if err := bind(req, &in); err != nil {
					return nil, err
				}
				return svc.Phase4(in)
			}),
		),
		newTool(
			mcp.NewTool("cf_finish",
				mcp.WithDescription("Complete the analysis early while waiting for a selection, once at least one type was analysed."),
				sessionIDParam(),
			),
			bindPhase("finish", func(req mcp.CallToolRequest) (any, error) {
				return svc.Finish(req.GetString("session_id", ""))
			}),
		),
		newTool(
			mcp.NewTool("cf_get_result",
				mcp.WithDescription("Show the full analysis: actual state, scenarios, per-type analyses and history."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.GetResult(req.GetString("session_id", ""))
				return f.read("get_result", res, err)
			},
		),
		newTool(
			mcp.NewTool("cf_list_sessions",
				mcp.WithDescription("List counterfactual sessions."),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list := svc.List()
				return jsonResult(map[string]any{"sessions": list, "total": len(list)})
			},
		),
		newTool(
			mcp.NewTool("cf_export",
				mcp.WithDescription("Export a counterfactual session as json, markdown, text, yaml or html."),
				sessionIDParam(),
				formatParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return textReply(svc.Export(req.GetString("session_id", ""), formatArg(req)))
			},
		),
		newTool(
			mcp.NewTool("cf_reset",
				mcp.WithDescription("Delete a counterfactual session. The report file stays on disk."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				return deleted(f.kind, id, svc.Reset(id))
			},
		),
	}
}
