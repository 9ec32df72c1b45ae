package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/vibe"
)

var suggestionSchema = objectSchema(map[string]any{
	"id":             strProp("Short id of the suggestion, e.g. 'a'"),
	"title":          strProp("Title of the option"),
	"description":    strProp("What choosing this option means"),
	"is_recommended": boolProp("Exactly one suggestion must be recommended"),
}, "id", "title", "description")

// Vibe returns the vibe_refinement_* tools.
func Vibe(svc *vibe.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindVibe,
		done: vibe.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			return svc.Report(id, render.FormatMarkdown)
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("vibe_refinement_initialize",
				mcp.WithDescription(
					"Start refining a vague product idea. The prompt is scored for specificity (0-100), "+
						"which decides how many idea and system steps follow. Next: vibe_refinement_get_next.",
				),
				mcp.WithString("initial_prompt",
					mcp.Required(),
					mcp.Description("The idea as the user first described it"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in vibe.InitializeInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Initialize(in)
				return f.mutate("initialize", res, err)
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_get_next",
				mcp.WithDescription(
					"Get the question for the current step and instructions for writing five suggestions. "+
						"Next: vibe_refinement_suggest.",
				),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.GetNext(req.GetString("session_id", ""))
				return f.mutate("get_next", res, err)
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_suggest",
				mcp.WithDescription(
					"Submit exactly five suggestions for the current step, exactly one of them recommended. "+
						"Show them to the user, then call vibe_refinement_submit with the choice.",
				),
				sessionIDParam(),
				mcp.WithArray("suggestions",
					mcp.Required(),
					mcp.Description("Five suggestions"),
					mcp.Items(suggestionSchema),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in vibe.SuggestInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Suggest(in)
				return f.mutate("suggest", res, err)
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_submit",
				mcp.WithDescription(
					"Submit the user's choice in free text: a suggestion id, its number, words from its title, "+
						"or 'the recommended one'.",
				),
				sessionIDParam(),
				mcp.WithString("selection",
					mcp.Required(),
					mcp.Description("The user's choice"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in vibe.SubmitInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Submit(in)
				return f.mutate("submit", res, err)
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_status",
				mcp.WithDescription("Show the score, progress and decisions of a refinement session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Status(req.GetString("session_id", ""))
				return f.read("status", res, err)
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_report",
				mcp.WithDescription("Render the idea and system decisions made so far. Allowed in any phase."),
				sessionIDParam(),
				formatParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return textReply(svc.Report(req.GetString("session_id", ""), formatArg(req)))
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_list",
				mcp.WithDescription("List refinement sessions."),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list := svc.List()
				return jsonResult(map[string]any{"sessions": list, "total": len(list)})
			},
		),
		newTool(
			mcp.NewTool("vibe_refinement_delete",
				mcp.WithDescription("Delete a refinement session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				return deleted(f.kind, id, svc.Delete(id))
			},
		),
	}
}
