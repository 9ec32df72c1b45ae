package memtools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/memory"
)

// ─── GetTool ────────────────────────────────────────────────────────────────

// GetTool handles the conversation_memory_get MCP tool.
type GetTool struct {
	store *memory.Store
}

// NewGetTool creates a GetTool with the given memory store.
func NewGetTool(store *memory.Store) *GetTool {
	return &GetTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_get.
func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_get",
		mcp.WithDescription("Read one memory in full by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Memory id"),
		),
	)
}

// Handle processes the conversation_memory_get tool call.
func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	e, err := t.store.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get memory: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\nCreated: %s\nUpdated: %s\n", e.ID, e.CreatedAt, e.UpdatedAt)
	if meta := formatMetadata(e.Metadata); meta != "" {
		fmt.Fprintf(&b, "Metadata: %s\n", meta)
	}
	fmt.Fprintf(&b, "\n%s\n", e.Text)
	return mcp.NewToolResultText(b.String()), nil
}

// ─── UpdateTool ─────────────────────────────────────────────────────────────

// UpdateTool handles the conversation_memory_update MCP tool.
type UpdateTool struct {
	store *memory.Store
}

// NewUpdateTool creates an UpdateTool with the given memory store.
func NewUpdateTool(store *memory.Store) *UpdateTool {
	return &UpdateTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_update.
func (t *UpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_update",
		mcp.WithDescription(
			"Update a memory by id. Only provided fields are changed. Metadata keys are merged; "+
				"a null value removes a key.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Memory id to update"),
		),
		mcp.WithString("text",
			mcp.Description("New text"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Metadata keys to set or remove"),
		),
	)
}

// Handle processes the conversation_memory_update tool call.
func (t *UpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	var text *string
	if v, ok := req.GetArguments()["text"].(string); ok {
		text = &v
	}
	meta, err := metadataArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if text == nil && meta == nil {
		return mcp.NewToolResultError("at least one field to update must be provided (text, metadata)"), nil
	}

	e, err := t.store.Update(id, text, meta)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update memory: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory %s updated (updated %s)", e.ID, e.UpdatedAt)), nil
}

// ─── DeleteTool ─────────────────────────────────────────────────────────────

// DeleteTool handles the conversation_memory_delete MCP tool.
type DeleteTool struct {
	store *memory.Store
}

// NewDeleteTool creates a DeleteTool with the given memory store.
func NewDeleteTool(store *memory.Store) *DeleteTool {
	return &DeleteTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_delete.
func (t *DeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_delete",
		mcp.WithDescription("Permanently delete a memory by id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Memory id to delete"),
		),
	)
}

// Handle processes the conversation_memory_delete tool call.
func (t *DeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	ok, err := t.store.Delete(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete memory: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", memory.ErrNotFound, id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory %s deleted", id)), nil
}

// ─── ClearTool ──────────────────────────────────────────────────────────────

// ClearTool handles the conversation_memory_clear MCP tool.
type ClearTool struct {
	store *memory.Store
}

// NewClearTool creates a ClearTool with the given memory store.
func NewClearTool(store *memory.Store) *ClearTool {
	return &ClearTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_clear.
func (t *ClearTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_clear",
		mcp.WithDescription("Delete every memory. Requires confirm=true."),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true"),
		),
	)
}

// errNotConfirmed is returned when clear is called without confirm=true.
var errNotConfirmed = errors.New("refusing to clear memory without confirm=true")

// Handle processes the conversation_memory_clear tool call.
func (t *ClearTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !boolArg(req, "confirm", false) {
		return mcp.NewToolResultError(errNotConfirmed.Error()), nil
	}

	n, err := t.store.Clear()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear memory: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory cleared: %d entries deleted", n)), nil
}
