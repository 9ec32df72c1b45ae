package memtools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/memory"
)

// StoreTool handles the conversation_memory_store MCP tool.
type StoreTool struct {
	store *memory.Store
}

// NewStoreTool creates a StoreTool with the given memory store.
func NewStoreTool(store *memory.Store) *StoreTool {
	return &StoreTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_store.
func (t *StoreTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_store",
		mcp.WithDescription(
			"Save something worth remembering across conversations: a decision, a conclusion, a user preference. "+
				"Passing an existing id replaces that memory.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("The text to remember"),
		),
		mcp.WithString("id",
			mcp.Description("Caller-chosen id for upserts (default: a new mem_<uuid> id)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Free-form JSON object stored with the text, e.g. {\"topic\": \"auth\"}"),
		),
	)
}

// Handle processes the conversation_memory_store tool call.
func (t *StoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	meta, err := metadataArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id := req.GetString("id", "")
	replaced := false
	if id != "" {
		if _, err := t.store.Get(id); err == nil {
			replaced = true
		}
	}

	e, err := t.store.Upsert(id, text, meta)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
	}

	action := "stored"
	if replaced {
		action = "replaced"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory %s\nID: %s", action, e.ID)), nil
}
