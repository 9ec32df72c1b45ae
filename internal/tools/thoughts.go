package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/sequential"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/thoughts"
)

// TreeOfThoughts returns the tot_* tools.
func TreeOfThoughts(svc *thoughts.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindTreeOfThoughts,
		done: thoughts.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			out, err := svc.GetResult(id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Problem: %s\nSelected path: %s\n\n%s",
				out.Problem, strings.Join(out.SelectedPath, " → "), out.Tree), nil
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("tot_initialize",
				mcp.WithDescription(
					"Start a tree-of-thoughts exploration. Add candidate thoughts with tot_add_thought, "+
						"prune dead ends with tot_prune, and choose a leaf with tot_select.",
				),
				mcp.WithString("problem",
					mcp.Required(),
					mcp.Description("Problem to explore"),
				),
				mcp.WithNumber("max_depth",
					mcp.Description("Maximum depth of the tree (default: 5)"),
				),
				mcp.WithNumber("branching_limit",
					mcp.Description("Maximum children per thought (default: 5)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in thoughts.InitializeInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Initialize(in)
				return f.mutate("initialize", res, err)
			},
		),
		newTool(
			mcp.NewTool("tot_add_thought",
				mcp.WithDescription(
					"Add a thought to the tree. The first thought without a parent becomes the root; "+
						"every other thought needs an existing parent_id.",
				),
				sessionIDParam(),
				mcp.WithString("thought_id",
					mcp.Required(),
					mcp.Description("Unique id of the thought"),
				),
				mcp.WithString("parent_id",
					mcp.Description("Id of the parent thought (omit for the root)"),
				),
				mcp.WithString("content",
					mcp.Required(),
					mcp.Description("The thought itself"),
				),
				mcp.WithNumber("score",
					mcp.Description("Promise of this thought, 0 to 10"),
					mcp.Min(0),
					mcp.Max(10),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in thoughts.AddThoughtInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.AddThought(in)
				return f.mutate("add_thought", res, err)
			},
		),
		newTool(
			mcp.NewTool("tot_prune",
				mcp.WithDescription("Prune a thought and its whole subtree."),
				sessionIDParam(),
				mcp.WithString("thought_id",
					mcp.Required(),
					mcp.Description("Id of the thought to prune"),
				),
				mcp.WithString("reason",
					mcp.Required(),
					mcp.Description("Why this branch is abandoned"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in thoughts.PruneInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Prune(in)
				return f.mutate("prune", res, err)
			},
		),
		newTool(
			mcp.NewTool("tot_select",
				mcp.WithDescription(
					"Choose one of the current leaves in free text: its id, its number in the leaves list, "+
						"or words from its content. The path to it is recorded and the session completes.",
				),
				sessionIDParam(),
				mcp.WithString("selection",
					mcp.Required(),
					mcp.Description("Which leaf to choose, e.g. '2', 't3' or 'the caching approach'"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in thoughts.SelectInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Select(in)
				return f.mutate("select", res, err)
			},
		),
		newTool(
			mcp.NewTool("tot_get_result",
				mcp.WithDescription("Show the tree as ASCII art with the best-scoring path and the selected path."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.GetResult(req.GetString("session_id", ""))
				return f.read("get_result", res, err)
			},
		),
		newTool(
			mcp.NewTool("tot_list",
				mcp.WithDescription("List tree-of-thoughts sessions."),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list := svc.List()
				return jsonResult(map[string]any{"sessions": list, "total": len(list)})
			},
		),
		newTool(
			mcp.NewTool("tot_reset",
				mcp.WithDescription("Delete a tree-of-thoughts session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				return deleted(f.kind, id, svc.Reset(id))
			},
		),
	}
}

// Sequential returns the sequential_thinking tools.
func Sequential(svc *sequential.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindSequential,
		done: sequential.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			res, err := svc.GetResult(id)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			for _, t := range res.Thoughts {
				fmt.Fprintf(&b, "%d. %s\n", t.Number, t.Text)
			}
			return b.String(), nil
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("sequential_thinking",
				mcp.WithDescription(
					"Record one step of a sequential chain of thought. Omit session_id on the first "+
						"thought to start a session. Thoughts may revise earlier thoughts or branch from them. "+
						"Set next_thought_needed=false on the last thought.",
				),
				mcp.WithString("session_id",
					mcp.Description("Session ID (omit to start a new chain)"),
				),
				mcp.WithString("thought",
					mcp.Required(),
					mcp.Description("The current thinking step"),
				),
				mcp.WithNumber("thought_number",
					mcp.Required(),
					mcp.Description("Number of this thought, starting at 1"),
					mcp.Min(1),
				),
				mcp.WithNumber("total_thoughts",
					mcp.Required(),
					mcp.Description("Estimated number of thoughts; extended automatically when exceeded"),
					mcp.Min(1),
				),
				mcp.WithBoolean("next_thought_needed",
					mcp.Required(),
					mcp.Description("Whether another thought follows"),
				),
				mcp.WithBoolean("is_revision",
					mcp.Description("Whether this thought revises an earlier one"),
				),
				mcp.WithNumber("revises_thought",
					mcp.Description("Number of the revised thought (required when is_revision)"),
				),
				mcp.WithNumber("branch_from_thought",
					mcp.Description("Number of the thought this branch starts from"),
				),
				mcp.WithString("branch_id",
					mcp.Description("Name of the branch (required with branch_from_thought)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in sequential.ThoughtInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Think(in)
				return f.mutate("think", res, err)
			},
		),
		newTool(
			mcp.NewTool("sequential_thinking_get_result",
				mcp.WithDescription("Show every thought of a sequential thinking session, with its branches."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.GetResult(req.GetString("session_id", ""))
				return f.read("get_result", res, err)
			},
		),
	}
}
