// Package resources implements the MCP resources of reasonkit.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (reasonkit://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// SessionsURI is the address of the live session list.
const SessionsURI = "reasonkit://sessions"

// Handler manages resource endpoints.
type Handler struct {
	registry *session.Registry
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(registry *session.Registry) *Handler {
	return &Handler{registry: registry}
}

// SessionsResource returns the MCP resource definition for the session list.
func (h *Handler) SessionsResource() mcp.Resource {
	return mcp.NewResource(
		SessionsURI,
		"Reasoning Sessions",
		mcp.WithResourceDescription("Live reasoning sessions of every kind, with phase and history length"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSessions returns every live session summary as JSON.
func (h *Handler) HandleSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := h.registry.List("")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if list == nil {
		list = []session.Summary{}
	}

	data, err := json.MarshalIndent(map[string]any{
		"sessions": list,
		"total":    len(list),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling sessions: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
