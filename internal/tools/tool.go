// Package tools exposes every reasoning family and every service wrapper
// as MCP tools.
//
// Each tool is a Definition (the mcp.Tool schema) paired with a Handle
// function. Handlers bind the request arguments into the family's typed
// input, call the service, and encode the structured result as JSON text.
// Business rules live in the family packages, never here.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// Tool is a registrable MCP tool.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

type handlerFunc func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// funcTool adapts a definition and a handler function to Tool.
type funcTool struct {
	def    mcp.Tool
	handle handlerFunc
}

func newTool(def mcp.Tool, handle handlerFunc) Tool {
	return &funcTool{def: def, handle: handle}
}

func (t *funcTool) Definition() mcp.Tool { return t.def }

func (t *funcTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.handle(ctx, req)
}

// bind decodes the request arguments into in. Decoding failures are
// reported as validation errors so the agent can fix its call.
func bind(req mcp.CallToolRequest, in any) error {
	if err := req.BindArguments(in); err != nil {
		return session.Invalid("arguments", "malformed arguments: %v", err)
	}
	return nil
}

// errorBody is the JSON text of an error result for a *session.Error.
type errorBody struct {
	Error      string        `json:"error"`
	Code       session.Code  `json:"code"`
	Field      string        `json:"field,omitempty"`
	Phase      session.Phase `json:"phase,omitempty"`
	NextAction string        `json:"next_action,omitempty"`
	Expected   []string      `json:"expected_actions,omitempty"`
}

// errorResult converts err into an MCP error result. Structured session
// errors keep their code, field and expected actions.
func errorResult(err error) *mcp.CallToolResult {
	serr, ok := session.AsError(err)
	if !ok {
		return mcp.NewToolResultError(err.Error())
	}
	body := errorBody{
		Error:    serr.Message,
		Code:     serr.Code,
		Field:    serr.Field,
		Phase:    serr.Phase,
		Expected: serr.Expected,
	}
	if body.Error == "" {
		body.Error = string(serr.Code)
	}
	if len(serr.Expected) > 0 {
		body.NextAction = serr.Expected[0]
	}
	data, mErr := json.MarshalIndent(body, "", "  ")
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}

// jsonResult encodes v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// reply is the common tail of a handler: err becomes an error result,
// anything else is encoded as JSON.
func reply(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		log.Debug().Err(err).Msg("tool call rejected")
		return errorResult(err), nil
	}
	return jsonResult(v)
}

// ─── Schema helpers ──────────────────────────────────────────────────────────

// withSchema merges a raw JSON schema fragment into a property. It is used
// for nested objects and arrays of objects.
func withSchema(s map[string]any) mcp.PropertyOption {
	return func(m map[string]any) {
		maps.Copy(m, s)
	}
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func numProp(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func strListProp(desc string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": "string"},
	}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func objectProp(desc string, props map[string]any, required ...string) map[string]any {
	s := objectSchema(props, required...)
	s["description"] = desc
	return s
}

// sessionIDParam is the session_id argument shared by most tools.
func sessionIDParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session ID returned by the initialize call"),
	)
}
