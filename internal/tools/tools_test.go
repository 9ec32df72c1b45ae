package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/artifacts"
	"github.com/HendryAvila/reasonkit/internal/confluence"
	"github.com/HendryAvila/reasonkit/internal/counterfactual"
	"github.com/HendryAvila/reasonkit/internal/jira"
	"github.com/HendryAvila/reasonkit/internal/memory"
	"github.com/HendryAvila/reasonkit/internal/planning"
	"github.com/HendryAvila/reasonkit/internal/recursive"
	"github.com/HendryAvila/reasonkit/internal/sampling"
	"github.com/HendryAvila/reasonkit/internal/sequential"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/slackclient"
	"github.com/HendryAvila/reasonkit/internal/thoughts"
	"github.com/HendryAvila/reasonkit/internal/vibe"
	"github.com/HendryAvila/reasonkit/internal/wbsexec"
)

// --- Test helpers ---

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if a CallToolResult is an error result.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// byName indexes tools by their definition name.
func byName(ts []Tool) map[string]Tool {
	m := make(map[string]Tool, len(ts))
	for _, t := range ts {
		m[t.Definition().Name] = t
	}
	return m
}

// run calls a tool and decodes its JSON text into a map.
func run(t *testing.T, tool Tool, args map[string]interface{}) (map[string]any, *mcp.CallToolResult) {
	t.Helper()
	if tool == nil {
		t.Fatal("tool not registered")
	}
	result, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle returned Go error: %v", err)
	}
	var out map[string]any
	_ = json.Unmarshal([]byte(getResultText(result)), &out)
	return out, result
}

// mustOK is run that fails the test on an error result.
func mustOK(t *testing.T, tool Tool, args map[string]interface{}) map[string]any {
	t.Helper()
	out, result := run(t, tool, args)
	if isErrorResult(result) {
		t.Fatalf("unexpected error result: %s", getResultText(result))
	}
	return out
}

// recorder is a CompletionObserver that remembers its calls.
type recorder struct {
	calls []string
	last  string
}

func (r *recorder) OnSessionComplete(kind session.Kind, id, content string) {
	r.calls = append(r.calls, string(kind)+"/"+id)
	r.last = content
}

// allTools builds every tool the server can register.
func allTools(t *testing.T) []Tool {
	t.Helper()
	files := artifacts.NewWriter(t.TempDir())
	plans := planning.NewService(planning.NewStore(), files)
	reg := session.NewRegistry(plans.Store())

	var ts []Tool
	ts = append(ts, Planning(plans, nil)...)
	ts = append(ts, Execution(wbsexec.NewService(wbsexec.NewStore(), plans.Store(), files), nil)...)
	ts = append(ts, TreeOfThoughts(thoughts.NewService(thoughts.NewStore()), nil)...)
	ts = append(ts, Sequential(sequential.NewService(sequential.NewStore()), nil)...)
	ts = append(ts, RecursiveThinking(recursive.NewService(recursive.NewStore()), nil)...)
	ts = append(ts, Sampling(sampling.NewService(sampling.NewStore()), nil)...)
	ts = append(ts, Counterfactual(counterfactual.NewService(counterfactual.NewStore(), files), nil)...)
	ts = append(ts, Vibe(vibe.NewService(vibe.NewStore()), nil)...)
	ts = append(ts, Sessions(reg)...)
	ts = append(ts, Slack(slackclient.New(slackclient.Config{BotToken: "xoxb-test"}))...)
	ts = append(ts, Jira(jira.NewService(jira.NewClient(jira.Config{BaseURL: "http://jira.invalid", Token: "t"}), jira.Config{}, t.TempDir()))...)
	ts = append(ts, Confluence(confluence.NewClient(confluence.Config{BaseURL: "http://wiki.invalid", Token: "t"}))...)
	return ts
}

// --- Registration ---

func TestAllTools_UniqueNamesAndDescriptions(t *testing.T) {
	seen := map[string]bool{}
	for _, tool := range allTools(t) {
		def := tool.Definition()
		if def.Name == "" {
			t.Fatal("tool with empty name")
		}
		if seen[def.Name] {
			t.Errorf("duplicate tool name %q", def.Name)
		}
		seen[def.Name] = true
		if def.Description == "" {
			t.Errorf("%s has no description", def.Name)
		}
	}

	for _, name := range []string{
		"planning_initialize", "planning_add_step", "planning_finalize", "planning_status",
		"planning_list", "planning_export", "planning_delete",
		"wbs_execution_start", "wbs_execution_next", "wbs_execution_complete_task", "wbs_execution_status",
		"tot_initialize", "tot_add_thought", "tot_prune", "tot_select", "tot_get_result", "tot_list", "tot_reset",
		"sequential_thinking", "sequential_thinking_get_result",
		"recursive_thinking_initialize", "recursive_thinking_update_latent", "recursive_thinking_update_answer",
		"recursive_thinking_get_result", "recursive_thinking_reset",
		"vs_initialize", "vs_submit_samples", "vs_get_all_samples", "vs_resample", "vs_finalize",
		"vs_status", "vs_list", "vs_export", "vs_delete",
		"cf_initialize", "cf_phase1", "cf_phase2", "cf_submit_selection", "cf_phase3_step1",
		"cf_phase3_step2", "cf_phase3_step3", "cf_phase3_step4", "cf_phase3_step5", "cf_phase4",
		"cf_finish", "cf_get_result", "cf_list_sessions", "cf_reset",
		"vibe_refinement_initialize", "vibe_refinement_get_next", "vibe_refinement_suggest",
		"vibe_refinement_submit", "vibe_refinement_status", "vibe_refinement_report", "vibe_refinement_list",
		"session_list",
		"slack_get_thread_content", "slack_get_single_message", "slack_get_channel_history",
		"slack_post_message", "slack_post_ephemeral_message", "slack_delete_message",
		"slack_bulk_delete_messages", "slack_search_threads", "slack_generate_digest", "slack_post_digest",
		"jira_search_issues", "jira_get_issue_details", "jira_create_issue", "jira_get_comments",
		"jira_add_comment", "jira_update_comment", "jira_delete_comment", "jira_list_attachments",
		"jira_download_attachment", "jira_get_projects", "jira_search_knowledge",
		"confluence_create_page", "confluence_get_page", "confluence_update_page",
		"confluence_delete_page", "confluence_get_spaces", "confluence_search_pages",
	} {
		if !seen[name] {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestDefinitions_RequiredParams(t *testing.T) {
	tools := byName(allTools(t))
	tests := []struct {
		tool     string
		required []string
	}{
		{"planning_add_step", []string{"session_id", "step_number", "planning_analysis"}},
		{"vs_submit_samples", []string{"session_id", "samples", "selection_strategy"}},
		{"cf_phase2", []string{"session_id", "scenarios"}},
		{"sequential_thinking", []string{"thought", "thought_number", "total_thoughts", "next_thought_needed"}},
		{"recursive_thinking_update_answer", []string{"session_id", "answer"}},
		{"jira_get_issue_details", []string{"issue_key"}},
	}
	for _, tt := range tests {
		def := tools[tt.tool].Definition()
		for _, r := range tt.required {
			found := false
			for _, got := range def.InputSchema.Required {
				if got == r {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: %q should be required", tt.tool, r)
			}
		}
	}
}

// --- Error results ---

func TestErrorResult_SessionError(t *testing.T) {
	err := session.InvalidTransition("active", "planning_add_step", []string{"planning_finalize", "planning_status"})
	result := errorResult(err)
	if !isErrorResult(result) {
		t.Fatal("expected error result")
	}
	var body map[string]any
	if jErr := json.Unmarshal([]byte(getResultText(result)), &body); jErr != nil {
		t.Fatalf("error text is not JSON: %v", jErr)
	}
	if body["code"] != string(session.CodeInvalidTransition) {
		t.Errorf("code = %v", body["code"])
	}
	if body["next_action"] != "planning_finalize" {
		t.Errorf("next_action = %v, want planning_finalize", body["next_action"])
	}
	if body["phase"] != "active" {
		t.Errorf("phase = %v, want active", body["phase"])
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	result := errorResult(errors.New("Confluence rate limit exceeded (429). Retry after 3 seconds."))
	if !isErrorResult(result) {
		t.Fatal("expected error result")
	}
	if getResultText(result) != "Confluence rate limit exceeded (429). Retry after 3 seconds." {
		t.Errorf("text = %q", getResultText(result))
	}
}

func TestBind_MalformedArguments(t *testing.T) {
	tools := byName(allTools(t))
	out, result := run(t, tools["planning_add_step"], map[string]interface{}{
		"session_id":  "planning_1_abcdefgh",
		"step_number": "one",
	})
	if !isErrorResult(result) {
		t.Fatal("expected error result")
	}
	if out["code"] != string(session.CodeValidationFailed) || out["field"] != "arguments" {
		t.Errorf("unexpected error body: %v", out)
	}
}

// --- Planning (scenario A) ---

func TestPlanningTools_ScenarioA(t *testing.T) {
	obs := &recorder{}
	svc := planning.NewService(planning.NewStore(), artifacts.NewWriter(t.TempDir()))
	tools := byName(Planning(svc, obs))

	out := mustOK(t, tools["planning_initialize"], map[string]interface{}{
		"problem_statement": "Build X",
	})
	id, _ := out["session_id"].(string)
	if out["phase"] != "active" {
		t.Errorf("phase = %v, want active", out["phase"])
	}
	if out["next_action"] != "planning_add_step" {
		t.Errorf("next_action = %v", out["next_action"])
	}
	path, _ := out["output_path"].(string)

	mustOK(t, tools["planning_add_step"], map[string]interface{}{
		"session_id":        id,
		"step_number":       1,
		"planning_analysis": "top level",
		"wbs_items":         []interface{}{map[string]interface{}{"id": "1.0", "level": 0, "title": "Setup"}},
	})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("WBS file not written: %v", err)
	}
	if !strings.Contains(string(data), "- [ ] **Setup**") {
		t.Errorf("WBS file missing Setup item:\n%s", data)
	}

	// Orphan child fails and leaves the plan untouched.
	_, result := run(t, tools["planning_add_step"], map[string]interface{}{
		"session_id":        id,
		"step_number":       2,
		"planning_analysis": "orphan",
		"wbs_items":         []interface{}{map[string]interface{}{"id": "9.1", "level": 1, "parent_id": "9.0", "title": "Orphan"}},
	})
	if !isErrorResult(result) {
		t.Fatal("orphan item should fail validation")
	}

	mustOK(t, tools["planning_add_step"], map[string]interface{}{
		"session_id":        id,
		"step_number":       2,
		"planning_analysis": "children",
		"wbs_items":         []interface{}{map[string]interface{}{"id": "1.1", "level": 1, "parent_id": "1.0", "title": "Init repo"}},
	})
	before, _ := os.ReadFile(path)
	if !strings.Contains(string(before), "Init repo") {
		t.Errorf("child item missing:\n%s", before)
	}

	status := mustOK(t, tools["planning_status"], map[string]interface{}{"session_id": id})
	if len(obs.calls) != 0 {
		t.Errorf("observer notified before completion: %v", obs.calls)
	}
	if status["total_wbs_items"] != float64(2) {
		t.Errorf("total_wbs_items = %v, want 2", status["total_wbs_items"])
	}

	fin := mustOK(t, tools["planning_finalize"], map[string]interface{}{"session_id": id})
	if fin["phase"] != "completed" {
		t.Errorf("phase = %v, want completed", fin["phase"])
	}
	if len(obs.calls) != 1 || obs.calls[0] != "planning/"+id {
		t.Errorf("observer calls = %v", obs.calls)
	}
	if !strings.Contains(obs.last, "Init repo") {
		t.Errorf("completion summary should contain the plan, got: %s", obs.last)
	}

	out, result = run(t, tools["planning_add_step"], map[string]interface{}{
		"session_id":        id,
		"step_number":       3,
		"planning_analysis": "too late",
	})
	if !isErrorResult(result) || out["code"] != string(session.CodeSessionCompleted) {
		t.Errorf("add_step after finalize: %s", getResultText(result))
	}

	// Read-only calls after completion don't notify again.
	mustOK(t, tools["planning_status"], map[string]interface{}{"session_id": id})
	if len(obs.calls) != 1 {
		t.Errorf("observer calls = %v, want exactly one", obs.calls)
	}
}

func TestPlanningTools_ExportAndDelete(t *testing.T) {
	svc := planning.NewService(planning.NewStore(), artifacts.NewWriter(t.TempDir()))
	tools := byName(Planning(svc, nil))

	out := mustOK(t, tools["planning_initialize"], map[string]interface{}{
		"problem_statement": "Migrate the billing database",
		"project_name":      "Billing Migration",
	})
	id := out["session_id"].(string)

	_, result := run(t, tools["planning_export"], map[string]interface{}{"session_id": id})
	if isErrorResult(result) || !strings.Contains(getResultText(result), "# Project: Billing Migration") {
		t.Errorf("markdown export: %s", getResultText(result))
	}

	out, result = run(t, tools["planning_export"], map[string]interface{}{"session_id": id, "format": "pdf"})
	if !isErrorResult(result) || out["field"] != "format" {
		t.Errorf("unknown format should fail on field format: %s", getResultText(result))
	}

	mustOK(t, tools["planning_delete"], map[string]interface{}{"session_id": id})
	out, result = run(t, tools["planning_status"], map[string]interface{}{"session_id": id})
	if !isErrorResult(result) || out["code"] != string(session.CodeSessionNotFound) {
		t.Errorf("status after delete: %s", getResultText(result))
	}
	out, result = run(t, tools["planning_delete"], map[string]interface{}{"session_id": id})
	if !isErrorResult(result) || out["code"] != string(session.CodeSessionNotFound) {
		t.Errorf("second delete: %s", getResultText(result))
	}
}

// --- Counterfactual (scenario C) ---

func scenarioArg(name string) map[string]interface{} {
	return map[string]interface{}{
		"changed_condition":       "if " + name + " had been different",
		"counterfactual_scenario": "the outage would have been shorter",
		"logical_consistency":     "only one condition changes",
	}
}

func TestCounterfactualTools_ScenarioC(t *testing.T) {
	svc := counterfactual.NewService(counterfactual.NewStore(), artifacts.NewWriter(t.TempDir()))
	tools := byName(Counterfactual(svc, nil))

	out := mustOK(t, tools["cf_initialize"], map[string]interface{}{
		"problem": "The release caused a two hour outage",
	})
	id := out["session_id"].(string)

	mustOK(t, tools["cf_phase1"], map[string]interface{}{
		"session_id":    id,
		"current_state": map[string]interface{}{"what_happened": "deploy broke login"},
		"causal_chain":  map[string]interface{}{"root_causes": []interface{}{"missing migration"}},
	})
	out = mustOK(t, tools["cf_phase2"], map[string]interface{}{
		"session_id": id,
		"scenarios": map[string]interface{}{
			"diagnostic":   scenarioArg("monitoring"),
			"predictive":   scenarioArg("capacity"),
			"preventive":   scenarioArg("review"),
			"optimization": scenarioArg("tooling"),
		},
	})
	if out["phase"] != "phase2_awaiting_selection" {
		t.Fatalf("phase = %v, want phase2_awaiting_selection", out["phase"])
	}

	out, result := run(t, tools["cf_submit_selection"], map[string]interface{}{
		"session_id": id,
		"selection":  "I want the blue one",
	})
	if !isErrorResult(result) || out["code"] != string(session.CodeAmbiguousSelection) {
		t.Fatalf("blue one should be unresolvable: %s", getResultText(result))
	}

	out = mustOK(t, tools["cf_submit_selection"], map[string]interface{}{
		"session_id": id,
		"selection":  "I want the prevention one",
	})
	if out["selected_type"] != "preventive" {
		t.Errorf("selected_type = %v, want preventive", out["selected_type"])
	}
	if out["next_action"] != "cf_phase3_step1" {
		t.Errorf("next_action = %v, want cf_phase3_step1", out["next_action"])
	}

	// Skipping ahead is an invalid transition that names the expected tool.
	out, result = run(t, tools["cf_phase4"], map[string]interface{}{
		"session_id": id,
		"comparative_analysis": map[string]interface{}{
			"actual_vs_counterfactual": map[string]interface{}{"what_differs": "a", "why_differs": "b"},
			"key_insights":             map[string]interface{}{"critical_findings": []interface{}{"c"}},
			"action_recommendations":   map[string]interface{}{"immediate_actions": []interface{}{"d"}},
			"final_summary":            map[string]interface{}{"key_takeaway": "e"},
		},
	})
	if !isErrorResult(result) || out["code"] != string(session.CodeInvalidTransition) {
		t.Fatalf("phase4 before phase3: %s", getResultText(result))
	}
	if out["next_action"] != "cf_phase3_step1" {
		t.Errorf("error next_action = %v", out["next_action"])
	}
}

// --- Sampling ---

func TestSamplingTools_FieldErrorIndex(t *testing.T) {
	svc := sampling.NewService(sampling.NewStore())
	tools := byName(Sampling(svc, nil))

	out := mustOK(t, tools["vs_initialize"], map[string]interface{}{
		"query": "Name a coffee shop",
		"mode":  "generate",
	})
	id := out["session_id"].(string)

	samples := []interface{}{
		map[string]interface{}{"text": "The Grind House Cafe", "probability": 0.05},
		map[string]interface{}{"text": "Bean There Done That", "probability": 0.5},
		map[string]interface{}{"text": "Espresso Yourself Co", "probability": 0.02},
	}
	out, result := run(t, tools["vs_submit_samples"], map[string]interface{}{
		"session_id":         id,
		"samples":            samples,
		"selection_strategy": "lowest",
	})
	if !isErrorResult(result) {
		t.Fatal("probability above the ceiling should fail")
	}
	if out["field"] != "samples[1].probability" {
		t.Errorf("field = %v, want samples[1].probability", out["field"])
	}

	samples[1] = map[string]interface{}{"text": "Bean There Done That", "probability": 0.08}
	out = mustOK(t, tools["vs_submit_samples"], map[string]interface{}{
		"session_id":         id,
		"samples":            samples,
		"selection_strategy": "lowest",
	})
	if out["phase"] != "sampled" {
		t.Errorf("phase = %v, want sampled", out["phase"])
	}
	sel, _ := out["selected_sample"].(map[string]any)
	if sel["text"] != "Espresso Yourself Co" {
		t.Errorf("lowest strategy picked %v", sel["text"])
	}
}

// --- Sequential ---

func TestSequentialTools_CreatesSessionAndCompletes(t *testing.T) {
	obs := &recorder{}
	tools := byName(Sequential(sequential.NewService(sequential.NewStore()), obs))

	out := mustOK(t, tools["sequential_thinking"], map[string]interface{}{
		"thought":             "List the failure modes",
		"thought_number":      1,
		"total_thoughts":      2,
		"next_thought_needed": true,
	})
	id := out["session_id"].(string)
	if id == "" {
		t.Fatal("expected a new session id")
	}

	out = mustOK(t, tools["sequential_thinking"], map[string]interface{}{
		"session_id":          id,
		"thought":             "Pick the most likely one",
		"thought_number":      2,
		"total_thoughts":      2,
		"next_thought_needed": false,
	})
	if out["phase"] != "completed" {
		t.Errorf("phase = %v, want completed", out["phase"])
	}
	if len(obs.calls) != 1 || !strings.Contains(obs.last, "2. Pick the most likely one") {
		t.Errorf("observer: calls=%v last=%q", obs.calls, obs.last)
	}
}

func TestRecursiveTools_CycleToFinalAnswer(t *testing.T) {
	obs := &recorder{}
	tools := byName(RecursiveThinking(recursive.NewService(recursive.NewStore()), obs))

	out := mustOK(t, tools["recursive_thinking_initialize"], map[string]interface{}{
		"question":     "Which queue should we use?",
		"latent_steps": 2,
	})
	id := out["session_id"].(string)
	if out["next_action"] != "recursive_thinking_update_latent" {
		t.Errorf("next_action = %v", out["next_action"])
	}

	// Answering before the latent updates are done is rejected.
	out, result := run(t, tools["recursive_thinking_update_answer"], map[string]interface{}{
		"session_id": id,
		"answer":     "Kafka",
	})
	if !isErrorResult(result) || out["code"] != string(session.CodeInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %s", getResultText(result))
	}

	for _, r := range []string{"Throughput is modest", "Ops team knows NATS"} {
		out = mustOK(t, tools["recursive_thinking_update_latent"], map[string]interface{}{
			"session_id":       id,
			"latent_reasoning": r,
		})
	}
	if out["phase"] != string(recursive.PhaseAnswer) {
		t.Fatalf("phase = %v, want %s", out["phase"], recursive.PhaseAnswer)
	}

	out = mustOK(t, tools["recursive_thinking_update_answer"], map[string]interface{}{
		"session_id": id,
		"answer":     "NATS JetStream",
		"confidence": 0.8,
		"is_final":   true,
	})
	if out["phase"] != "completed" || out["stop_reason"] != "final_answer" {
		t.Errorf("unexpected result: %v", out)
	}
	if len(obs.calls) != 1 || !strings.Contains(obs.last, "Final answer (final_answer): NATS JetStream") {
		t.Errorf("observer: calls=%v last=%q", obs.calls, obs.last)
	}

	mustOK(t, tools["recursive_thinking_reset"], map[string]interface{}{"session_id": id})
	_, result = run(t, tools["recursive_thinking_get_result"], map[string]interface{}{"session_id": id})
	if !isErrorResult(result) {
		t.Error("get_result after reset should fail")
	}
}

// --- Sessions ---

func TestSessionList(t *testing.T) {
	files := artifacts.NewWriter(t.TempDir())
	plans := planning.NewService(planning.NewStore(), files)
	tots := thoughts.NewService(thoughts.NewStore())
	reg := session.NewRegistry(plans.Store(), tots.Store())

	if _, err := plans.Initialize(planning.InitializeInput{ProblemStatement: "Ship the API"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tots.Initialize(thoughts.InitializeInput{Problem: "Pick a cache"}); err != nil {
		t.Fatal(err)
	}
	tool := Sessions(reg)[0]

	out := mustOK(t, tool, map[string]interface{}{})
	if out["total"] != float64(2) {
		t.Errorf("total = %v, want 2", out["total"])
	}

	out = mustOK(t, tool, map[string]interface{}{"kind": "tree_of_thoughts"})
	if out["total"] != float64(1) {
		t.Errorf("filtered total = %v, want 1", out["total"])
	}
	rows, _ := out["sessions"].([]any)
	row, _ := rows[0].(map[string]any)
	if row["kind"] != "tree_of_thoughts" || row["updated"] == "" {
		t.Errorf("unexpected row: %v", row)
	}

	out, result := run(t, tool, map[string]interface{}{"kind": "astrology"})
	if !isErrorResult(result) || out["field"] != "kind" {
		t.Errorf("unknown kind: %s", getResultText(result))
	}
}

// --- Wrappers: validation happens before any network call ---

func TestWrapperTools_ValidateBeforeCalling(t *testing.T) {
	tools := byName(allTools(t))
	tests := []struct {
		tool  string
		args  map[string]interface{}
		field string
	}{
		{"jira_get_issue_details", map[string]interface{}{"issue_key": "not-a-key"}, "issue_key"},
		{"jira_create_issue", map[string]interface{}{"project": "OPS", "summary": "x", "issue_type": "Task", "priority": "Urgent"}, "priority"},
		{"confluence_get_page", map[string]interface{}{"page_id": ""}, "page_id"},
		{"confluence_create_page", map[string]interface{}{"space_key": "OPS", "content": "<p>x</p>"}, "title"},
		{"slack_post_message", map[string]interface{}{"channel": "C1"}, "text"},
		{"slack_get_channel_history", map[string]interface{}{"channel": "C1", "limit": 5000}, "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			out, result := run(t, tools[tt.tool], tt.args)
			if !isErrorResult(result) {
				t.Fatalf("expected error result, got: %s", getResultText(result))
			}
			if out["field"] != tt.field {
				t.Errorf("field = %v, want %s (body: %s)", out["field"], tt.field, getResultText(result))
			}
		})
	}
}

// --- MemoryBridge ---

func TestMemoryBridge_UpsertsPerSession(t *testing.T) {
	store, err := memory.New(memory.Config{DataDir: t.TempDir(), MaxTextLength: 2000, MaxQueryResults: 20})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	bridge := NewMemoryBridge(store)
	bridge.OnSessionComplete(session.KindPlanning, "planning_1_abc", "# Project: Alpha")
	bridge.OnSessionComplete(session.KindPlanning, "planning_1_abc", "# Project: Alpha v2")

	e, err := store.Get("session/planning/planning_1_abc")
	if err != nil {
		t.Fatalf("entry not saved: %v", err)
	}
	if !strings.Contains(e.Text, "Alpha v2") {
		t.Errorf("text = %q, want the latest summary", e.Text)
	}
	if e.Metadata["kind"] != "planning" {
		t.Errorf("metadata = %v", e.Metadata)
	}
	if n, _ := store.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestNewMemoryBridge_NilStore(t *testing.T) {
	if NewMemoryBridge(nil) != nil {
		t.Error("NewMemoryBridge(nil) should return nil")
	}
}

func TestCompactSummary_KeepsRunesWhole(t *testing.T) {
	// Shift the cut point across every byte of the multi-byte runes.
	for pad := 0; pad < 4; pad++ {
		content := strings.Repeat("x", pad) + strings.Repeat("→…🎯", 100)
		got := compactSummary(session.KindSequential, content)
		if !utf8.ValidString(got) {
			t.Errorf("pad %d: summary is not valid UTF-8", pad)
		}
		if !strings.HasSuffix(got, "[...truncated]") {
			t.Errorf("pad %d: missing truncation marker", pad)
		}
	}
}

func TestCompactSummary_Truncates(t *testing.T) {
	long := strings.Repeat("line of text\n", 100)
	got := compactSummary(session.KindVibe, long)
	if len(got) > 520 {
		t.Errorf("summary too long: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "[...truncated]") {
		t.Errorf("missing truncation marker: %q", got[len(got)-30:])
	}
}
