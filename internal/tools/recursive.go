package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/recursive"
	"github.com/HendryAvila/reasonkit/internal/session"
)

// RecursiveThinking returns the recursive_thinking_* tools.
func RecursiveThinking(svc *recursive.Service, obs CompletionObserver) []Tool {
	f := &family{
		kind: session.KindRecursive,
		done: recursive.PhaseCompleted,
		obs:  obs,
		summarize: func(id string) (string, error) {
			out, err := svc.GetResult(id)
			if err != nil {
				return "", err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Question: %s\n\n", out.Question)
			for _, cy := range out.Cycles {
				fmt.Fprintf(&b, "Cycle %d (%d latent updates): %s\n", cy.Number, len(cy.Latent), cy.Answer)
			}
			fmt.Fprintf(&b, "\nFinal answer (%s): %s\n", out.StopReason, out.Answer)
			return b.String(), nil
		},
	}

	return []Tool{
		newTool(
			mcp.NewTool("recursive_thinking_initialize",
				mcp.WithDescription(
					"Start recursive thinking: improve an answer over several cycles. In each cycle, refine "+
						"your latent reasoning latent_steps times with recursive_thinking_update_latent, then "+
						"rewrite the answer with recursive_thinking_update_answer.",
				),
				mcp.WithString("question",
					mcp.Required(),
					mcp.Description("Question or problem to answer"),
				),
				mcp.WithString("initial_answer",
					mcp.Description("First draft of the answer, if any"),
				),
				mcp.WithNumber("latent_steps",
					mcp.Description(fmt.Sprintf("Latent updates per cycle (default: %d)", recursive.DefaultLatentSteps)),
				),
				mcp.WithNumber("max_cycles",
					mcp.Description(fmt.Sprintf("Maximum number of answer updates (default: %d)", recursive.DefaultMaxCycles)),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in recursive.InitializeInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.Initialize(in)
				return f.mutate("initialize", res, err)
			},
		),
		newTool(
			mcp.NewTool("recursive_thinking_update_latent",
				mcp.WithDescription(
					"Refine the latent reasoning state from the question, the current answer and the previous "+
						"latent state. Point out flaws and gaps; do not write the answer here.",
				),
				sessionIDParam(),
				mcp.WithString("latent_reasoning",
					mcp.Required(),
					mcp.Description("The refined reasoning state"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in recursive.LatentInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.UpdateLatent(in)
				return f.mutate("update_latent", res, err)
			},
		),
		newTool(
			mcp.NewTool("recursive_thinking_update_answer",
				mcp.WithDescription(
					"Rewrite the answer from the refined latent reasoning. Set is_final=true when the answer "+
						"cannot be improved further; otherwise the next cycle starts.",
				),
				sessionIDParam(),
				mcp.WithString("answer",
					mcp.Required(),
					mcp.Description("The improved answer"),
				),
				mcp.WithNumber("confidence",
					mcp.Description("Confidence in the answer, 0.0 to 1.0"),
					mcp.Min(0),
					mcp.Max(1),
				),
				mcp.WithBoolean("is_final",
					mcp.Description("Stop after this answer"),
				),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				var in recursive.AnswerInput
				if err := bind(req, &in); err != nil {
					return errorResult(err), nil
				}
				res, err := svc.UpdateAnswer(in)
				return f.mutate("update_answer", res, err)
			},
		),
		newTool(
			mcp.NewTool("recursive_thinking_get_result",
				mcp.WithDescription("Show the question, every cycle and the current answer of a recursive thinking session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				res, err := svc.GetResult(req.GetString("session_id", ""))
				return f.read("get_result", res, err)
			},
		),
		newTool(
			mcp.NewTool("recursive_thinking_reset",
				mcp.WithDescription("Delete a recursive thinking session."),
				sessionIDParam(),
			),
			func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				return deleted(f.kind, id, svc.Reset(id))
			},
		),
	}
}
