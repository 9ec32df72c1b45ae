// Package prompts implements the MCP prompts of reasonkit.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to run a specific sequence of tool calls. Unlike tools
// (which the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// methods maps a prompt method argument to the tool that starts it and a
// one-line reminder of how the workflow proceeds.
var methods = map[string]struct {
	start string
	flow  string
}{
	"planning": {
		start: "planning_initialize",
		flow:  "add WBS items with planning_add_step until the plan is complete, then call planning_finalize",
	},
	"tot": {
		start: "tot_initialize",
		flow:  "add alternative thoughts with tot_add_thought, prune weak branches with tot_prune, then tot_select the best path",
	},
	"sequential": {
		start: "sequential_thinking",
		flow:  "record one thought per call and set next_thought_needed=false on the last one",
	},
	"recursive": {
		start: "recursive_thinking_initialize",
		flow:  "refine the reasoning with recursive_thinking_update_latent, rewrite the answer with recursive_thinking_update_answer, and repeat until the answer is final",
	},
	"sampling": {
		start: "vs_initialize",
		flow:  "submit samples with explicit probabilities using vs_submit_samples, then vs_finalize",
	},
	"counterfactual": {
		start: "cf_initialize",
		flow:  "describe what happened (cf_phase1), propose the four scenarios (cf_phase2), then ask me which one to analyse",
	},
	"vibe": {
		start: "vibe_refinement_initialize",
		flow:  "follow vibe_refinement_get_next, suggesting and submitting refinements until the prompt is specific enough",
	},
}

// StartPrompt handles the reasonkit-start MCP prompt.
// It guides the AI to pick a reasoning workflow and start a session.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("reasonkit-start",
		mcp.WithPromptDescription(
			"Start a structured reasoning session on a problem. "+
				"Pick a method or let the assistant choose one.",
		),
		mcp.WithArgument("problem",
			mcp.ArgumentDescription("The problem to reason about"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("method",
			mcp.ArgumentDescription(
				"One of: planning, tot, sequential, recursive, sampling, counterfactual, vibe. Default: the assistant chooses",
			),
		),
	)
}

// Handle processes the reasonkit-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	problem := req.Params.Arguments["problem"]
	if problem == "" {
		problem = "(ask me to describe the problem first)"
	}

	var text string
	if m, ok := methods[req.Params.Arguments["method"]]; ok {
		text = fmt.Sprintf(
			"I want to reason about this problem:\n\n%s\n\n"+
				"Please:\n"+
				"1. Start a session with `%s`\n"+
				"2. Then %s\n"+
				"3. Always follow the next_action of each response\n"+
				"4. Summarize the outcome for me when the session is completed",
			problem, m.start, m.flow,
		)
	} else {
		text = fmt.Sprintf(
			"I want to reason about this problem:\n\n%s\n\n"+
				"Please:\n"+
				"1. Check `conversation_memory_query` for earlier work on this topic, if available\n"+
				"2. Choose the reasoning workflow that fits best and tell me why in one sentence\n"+
				"3. Start it and always follow the next_action of each response\n"+
				"4. Summarize the outcome for me when the session is completed",
			problem,
		)
	}

	return &mcp.GetPromptResult{
		Description: "Start a reasoning session",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}, nil
}
