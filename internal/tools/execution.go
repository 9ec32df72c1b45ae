package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/session"
	"github.com/HendryAvila/reasonkit/internal/wbsexec"
)

// Execution returns the wbs_execution_* tools.
func Execution(svc *wbsexec.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindWBSExecution,
		done: wbsexec.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			res, err := svc.Status(id)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Executed %d of %d WBS tasks.\nProgress file: %s\n%s",
				res.Completed, res.Total, res.OutputPath, res.Message), nil
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("wbs_execution_start",
				mcp.WithDescription(
					"Start executing the WBS of a planning session. The plan's items are snapshotted "+
						"and a progress checklist is written next to the WBS file. Next: wbs_execution_next.",
				),
				mcp.WithString("planning_session_id",
					mcp.Required(),
					mcp.Description("Planning session whose WBS items should be executed"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in wbsexec.StartInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Start(in)
				return f.mutate("start", res, err)
			},
		),
		newTool(
			mcp.NewTool("wbs_execution_next",
				mcp.WithDescription(
					"Get the next executable task: its dependencies and children are done and it is the "+
						"shallowest, lowest-ordered such task.",
				),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Next(req.GetString("session_id", ""))
				return f.mutate("next", res, err)
			},
		),
		newTool(
			mcp.NewTool("wbs_execution_complete_task",
				mcp.WithDescription(
					"Mark a task done. The task must exist and be unblocked. "+
						"The session completes automatically when every task is done.",
				),
				sessionIDParam(),
				mcp.WithString("task_id",
					mcp.Required(),
					mcp.Description("Id of the WBS item that was completed"),
				),
				mcp.WithString("notes",
					mcp.Description("Optional notes about how the task was done"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in wbsexec.CompleteInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.CompleteTask(in)
				return f.mutate("complete_task", res, err)
			},
		),
		newTool(
			mcp.NewTool("wbs_execution_status",
				mcp.WithDescription("Show execution progress without changing anything."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Status(req.GetString("session_id", ""))
				return f.read("status", res, err)
			},
		),
	}
}
