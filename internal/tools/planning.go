package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/planning"
	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/session"
)

var wbsItemSchema = objectSchema(map[string]any{
	"id":           strProp("Unique item id, e.g. '1.0' or '1.2.3'"),
	"title":        strProp("Short title of the work item"),
	"description":  strProp("What the work item involves"),
	"level":        numProp("Hierarchy level, 0 for top-level items"),
	"priority":     map[string]any{"type": "string", "enum": []string{"High", "Medium", "Low"}, "description": "Priority (default Medium)"},
	"dependencies": strListProp("Ids of items that must be done first"),
	"order":        numProp("Position among siblings"),
	"parent_id":    strProp("Id of the parent item; required when level > 0. The parent must already exist or appear earlier in this call"),
}, "id", "title")

// formatParam is the export format argument.
func formatParam() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("Export format (default: markdown)"),
		mcp.Enum("json", "markdown", "text", "yaml", "html"),
	)
}

func formatArg(req mcp.CallToolRequest) render.Format {
	return render.Format(req.GetString("format", string(render.FormatMarkdown)))
}

// Planning returns the planning_* tools.
func Planning(svc *planning.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindPlanning,
		done: planning.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			return svc.Export(id, render.FormatMarkdown)
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("planning_initialize",
				mcp.WithDescription(
					"Start a planning session that builds a Work Breakdown Structure step by step. "+
						"The WBS markdown file is written immediately and rewritten on every step. "+
						"Next: call planning_add_step.",
				),
				mcp.WithString("problem_statement",
					mcp.Required(),
					mcp.Description("The problem or project to plan"),
				),
				mcp.WithString("project_name",
					mcp.Description("Project name used for the file name (default: first five words of the problem)"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in planning.InitializeInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Initialize(in)
				return f.mutate("initialize", res, err)
			},
		),
		newTool(
			mcp.NewTool("planning_add_step",
				mcp.WithDescription(
					"Add a planning step with its analysis and new WBS items. "+
						"A child item's parent_id must already exist or appear earlier in the same call. "+
						"Call repeatedly, then planning_finalize.",
				),
				sessionIDParam(),
				mcp.WithNumber("step_number",
					mcp.Required(),
					mcp.Description("Step number, starting at 1"),
				),
				mcp.WithString("planning_analysis",
					mcp.Required(),
					mcp.Description("Reasoning for this step"),
				),
				mcp.WithArray("wbs_items",
					mcp.Description("WBS items added in this step"),
					mcp.Items(wbsItemSchema),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in planning.AddStepInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.AddStep(in)
				return f.mutate("add_step", res, err)
			},
		),
		newTool(
			mcp.NewTool("planning_finalize",
				mcp.WithDescription("Complete a planning session. The WBS body is kept and the summary status becomes Completed."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Finalize(req.GetString("session_id", ""))
				return f.mutate("finalize", res, err)
			},
		),
		newTool(
			mcp.NewTool("planning_status",
				mcp.WithDescription("Show the phase, step and item counts of a planning session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Status(req.GetString("session_id", ""))
				return f.read("status", res, err)
			},
		),
		newTool(
			mcp.NewTool("planning_list",
				mcp.WithDescription("List planning sessions, most recently updated first."),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list := svc.List()
				return jsonResult(map[string]any{"sessions": list, "total": len(list)})
			},
		),
		newTool(
			mcp.NewTool("planning_export",
				mcp.WithDescription("Export a planning session as json, markdown, text, yaml or html."),
				sessionIDParam(),
				formatParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return textReply(svc.Export(req.GetString("session_id", ""), formatArg(req)))
			},
		),
		newTool(
			mcp.NewTool("planning_delete",
				mcp.WithDescription("Delete a planning session. The WBS file stays on disk."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				return deleted(f.kind, id, svc.Delete(id))
			},
		),
	}
}
