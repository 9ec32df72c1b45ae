package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/render"
	"github.com/HendryAvila/reasonkit/internal/sampling"
	"github.com/HendryAvila/reasonkit/internal/session"
)

var sampleSchema = objectSchema(map[string]any{
	"text":        strProp("The sampled response"),
	"probability": numProp("Estimated probability of this response, in (0, max_probability]"),
}, "text", "probability")

// Sampling returns the vs_* verbalized sampling tools.
func Sampling(svc *sampling.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindSampling,
		done: sampling.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			return svc.Export(id, render.FormatMarkdown)
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("vs_initialize",
				mcp.WithDescription(
					"Start a verbalized sampling session. Returns instructions for generating samples "+
						"from the tails of the distribution, each with an explicit probability. "+
						"Next: vs_submit_samples.",
				),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("The question or task to sample responses for"),
				),
				mcp.WithString("mode",
					mcp.Required(),
					mcp.Description("generate (0.10), improve (0.10, needs input_content), explore (0.05) or balanced (0.15)"),
					mcp.Enum("generate", "improve", "explore", "balanced"),
				),
				mcp.WithString("input_content",
					mcp.Description("Existing content to improve (required for improve mode)"),
				),
				mcp.WithNumber("num_samples",
					mcp.Description("How many samples to request (default: 5)"),
				),
				mcp.WithNumber("max_probability",
					mcp.Description("Probability ceiling; capped at the mode's maximum"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in sampling.InitializeInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Initialize(in)
				return f.mutate("initialize", res, err)
			},
		),
		newTool(
			mcp.NewTool("vs_submit_samples",
				mcp.WithDescription(
					"Submit the generated samples and pick one with a selection strategy: "+
						"uniform (random), weighted (favours low probability), lowest or highest.",
				),
				sessionIDParam(),
				mcp.WithArray("samples",
					mcp.Required(),
					mcp.Description("The samples, each with text and probability"),
					mcp.Items(sampleSchema),
				),
				mcp.WithString("selection_strategy",
					mcp.Required(),
					mcp.Description("How to choose the selected sample"),
					mcp.Enum("uniform", "weighted", "lowest", "highest"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in sampling.SubmitInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.SubmitSamples(in)
				return f.mutate("submit_samples", res, err)
			},
		),
		newTool(
			mcp.NewTool("vs_get_all_samples",
				mcp.WithDescription("Show every submitted sample with its statistics and the current selection."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.GetAllSamples(req.GetString("session_id", ""))
				return f.read("get_all_samples", res, err)
			},
		),
		newTool(
			mcp.NewTool("vs_resample",
				mcp.WithDescription(
					"Discard the current samples and ask for a new round. "+
						"The previous round is kept in the session history.",
				),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Resample(req.GetString("session_id", ""))
				return f.mutate("resample", res, err)
			},
		),
		newTool(
			mcp.NewTool("vs_finalize",
				mcp.WithDescription("Complete the session with the selected sample."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Finalize(req.GetString("session_id", ""))
				return f.mutate("finalize", res, err)
			},
		),
		newTool(
			mcp.NewTool("vs_status",
				mcp.WithDescription("Show the phase and configuration of a sampling session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.Status(req.GetString("session_id", ""))
				return f.read("status", res, err)
			},
		),
		newTool(
			mcp.NewTool("vs_list",
				mcp.WithDescription("List verbalized sampling sessions."),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				list := svc.List()
				return jsonResult(map[string]any{"sessions": list, "total": len(list)})
			},
		),
		newTool(
			mcp.NewTool("vs_export",
				mcp.WithDescription("Export a sampling session as json, markdown, text, yaml or html."),
				sessionIDParam(),
				formatParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return textReply(svc.Export(req.GetString("session_id", ""), formatArg(req)))
			},
		),
		newTool(
			mcp.NewTool("vs_delete",
				mcp.WithDescription("Delete a sampling session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				return deleted(f.kind, id, svc.Delete(id))
			},
		),
	}
}
