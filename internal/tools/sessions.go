package tools

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// sessionRow is a cross-kind summary with a human-friendly idle time.
type sessionRow struct {
	session.Summary
	Updated string `json:"updated"`
}

// Sessions returns the session_list tool.
func Sessions(reg *session.Registry) []Tool {
	return []Tool{
		newTool(
			mcp.NewTool("session_list",
				mcp.WithDescription("List live reasoning sessions of every family, oldest first. Filter by kind if given."),
				mcp.WithString("kind",
					mcp.Description("Only list sessions of this kind"),
					mcp.Enum(
						string(session.KindPlanning),
						string(session.KindWBSExecution),
						string(session.KindTreeOfThoughts),
						string(session.KindSequential),
						string(session.KindSampling),
						string(session.KindCounterfactual),
						string(session.KindVibe),
						string(session.KindRecursive),
					),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list, err := reg.List(session.Kind(req.GetString("kind", "")))
				if err != nil {
					return errorResult(err), nil
				}
				rows := make([]sessionRow, len(list))
				for i, s := range list {
					rows[i] = sessionRow{Summary: s, Updated: humanize.Time(s.UpdatedAt)}
				}
				return jsonResult(map[string]any{"sessions": rows, "total": len(rows)})
			},
		),
	}
}
