package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the reasonkit-status MCP prompt.
// It instructs the AI to list live sessions and say what each one waits for.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("reasonkit-status",
		mcp.WithPromptDescription(
			"Show the live reasoning sessions, their phase, and what each one needs next.",
		),
	)
}

// Handle processes the reasonkit-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Reasoning session status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Call `session_list` and show me a short table of the live sessions " +
						"(kind, session id, phase, last update). For each session that is not completed, " +
						"call its status tool and tell me the next action it expects.",
				),
			},
		},
	}, nil
}
