package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/memory"
)

// QueryTool handles the conversation_memory_query MCP tool.
type QueryTool struct {
	store *memory.Store
}

// NewQueryTool creates a QueryTool.
func NewQueryTool(store *memory.Store) *QueryTool {
	return &QueryTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_query.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_query",
		mcp.WithDescription(
			"Search conversation memory. Results are ranked by relevance; any word may match. "+
				"An empty query returns the most recent memories.",
		),
		mcp.WithString("query",
			mcp.Description("Keywords or natural language"),
		),
		mcp.WithNumber("k",
			mcp.Description("Max results (default: 5)"),
		),
	)
}

// Handle processes the conversation_memory_query tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	k := intArg(req, "k", 5)
	level := memory.ParseDetailLevel(req.GetString("detail_level", ""))

	results, err := t.store.Query(query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No memories found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] score %.2f | ", i+1, r.Score)
		formatEntry(&b, r.Entry, level)
		b.WriteString("\n")
	}
	b.WriteString(memory.TokenFooter(memory.EstimateTokens(b.String())))
	return mcp.NewToolResultText(b.String()), nil
}

// ListTool handles the conversation_memory_list MCP tool.
type ListTool struct {
	store *memory.Store
}

// NewListTool creates a ListTool.
func NewListTool(store *memory.Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for conversation_memory_list.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("conversation_memory_list",
		mcp.WithDescription("List memories, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default: 20)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Entries to skip (default: 0)"),
		),
	)
}

// Handle processes the conversation_memory_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)
	offset := intArg(req, "offset", 0)
	level := memory.ParseDetailLevel(req.GetString("detail_level", memory.DetailSummary))

	entries, total, err := t.store.List(limit, offset)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("Memory is empty."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Showing %d of %d memories (offset %d):\n\n", len(entries), total, offset)
	for _, e := range entries {
		formatEntry(&b, e, level)
		b.WriteString("\n")
	}
	next := offset + len(entries)
	b.WriteString(memory.NavigationHint(next, total, fmt.Sprintf("Use offset=%d for more.", next)))
	return mcp.NewToolResultText(b.String()), nil
}
