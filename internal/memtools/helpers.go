// Package memtools provides MCP tool handlers for conversation memory.
//
// Each tool handler follows the same pattern as internal/tools:
// - A struct with dependencies (memory.Store) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Tools are storage tools: they receive AI-generated content and persist it.
package memtools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/reasonkit/internal/memory"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// metadataArg extracts the metadata argument. Clients may send a JSON
// object or a string holding one. A missing argument returns nil.
func metadataArg(req mcp.CallToolRequest) (map[string]any, error) {
	switch v := req.GetArguments()["metadata"].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("'metadata' must be a JSON object: %v", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("'metadata' must be a JSON object")
	}
}

// formatMetadata renders metadata as "k=v, k=v" with sorted keys.
func formatMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, m[k])
	}
	return strings.Join(parts, ", ")
}

// detailLevelParam is the detail_level argument of the read tools.
func detailLevelParam() mcp.ToolOption {
	return mcp.WithString("detail_level",
		mcp.Description("How much text to show per memory (default: standard)"),
		mcp.Enum(memory.DetailLevelValues()...),
	)
}

// formatEntry renders one entry the way every memory tool shows it.
func formatEntry(b *strings.Builder, e memory.Entry, level string) {
	fmt.Fprintf(b, "%s (updated %s)\n", e.ID, e.UpdatedAt)
	fmt.Fprintf(b, "    %s\n", memory.Snippet(e.Text, level))
	if meta := formatMetadata(e.Metadata); meta != "" {
		fmt.Fprintf(b, "    metadata: %s\n", meta)
	}
}
