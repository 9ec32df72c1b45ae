package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/HendryAvila/reasonkit/internal/memory"
	"github.com/HendryAvila/reasonkit/internal/session"
)

// CompletionObserver is notified when a reasoning session reaches its
// terminal phase. It's an optional dependency: tools work fine with a nil
// observer.
type CompletionObserver interface {
	// OnSessionComplete is called once the completing call has succeeded.
	// content is a rendered summary of the finished session.
	OnSessionComplete(kind session.Kind, sessionID, content string)
}

// MemoryBridge saves compact summaries of completed sessions to
// conversation memory, so later sessions can recall earlier conclusions.
type MemoryBridge struct {
	store *memory.Store
}

// NewMemoryBridge creates a bridge over store. Returns nil if store is nil.
func NewMemoryBridge(store *memory.Store) *MemoryBridge {
	if store == nil {
		return nil
	}
	return &MemoryBridge{store: store}
}

// OnSessionComplete upserts one entry per session under
// "session/{kind}/{id}", so a replayed completion overwrites rather than
// duplicates.
//
// Best-effort: memory failures are logged and never reach the caller.
func (b *MemoryBridge) OnSessionComplete(kind session.Kind, sessionID, content string) {
	id := fmt.Sprintf("session/%s/%s", kind, sessionID)
	meta := map[string]any{
		"source":     "session_completion",
		"kind":       string(kind),
		"session_id": sessionID,
	}
	if _, err := b.store.Upsert(id, compactSummary(kind, content), meta); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("kind", string(kind)).
			Msg("memory bridge: save completed session")
	}
}

// compactSummary keeps the first ~500 bytes of a rendered session,
// cut at a line boundary when possible.
func compactSummary(kind session.Kind, content string) string {
	const maxLen = 500

	summary := fmt.Sprintf("**Completed**: %s session\n\n", kind)
	remaining := maxLen - len(summary)
	if len(content) <= remaining {
		return summary + content
	}
	for remaining > 0 && !utf8.RuneStart(content[remaining]) {
		remaining--
	}
	truncated := content[:remaining]
	if nl := strings.LastIndex(truncated, "\n"); nl > remaining/2 {
		truncated = truncated[:nl]
	}
	return summary + truncated + "\n\n[...truncated]"
}

// family carries what every handler of one reasoning family shares.
type family struct {
	kind session.Kind
	done session.Phase
	obs  CompletionObserver

	// summarize renders a finished session for the observer.
	summarize func(id string) (string, error)
}

// ref is the part of every family result the facade inspects.
type ref struct {
	SessionID string        `json:"session_id"`
	Phase     session.Phase `json:"phase"`
}

// mutate replies to a state-changing call and notifies the observer when
// the call completed the session.
func (f *family) mutate(action string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		f.reject(action, err)
		return errorResult(err), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", action, err)
	}
	var r ref
	_ = json.Unmarshal(data, &r)
	log.Debug().
		Str("session_id", r.SessionID).
		Str("kind", string(f.kind)).
		Str("action", action).
		Str("phase", string(r.Phase)).
		Msg("tool call applied")
	if r.Phase == f.done && r.SessionID != "" {
		f.notify(r.SessionID)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// read replies to a read-only call.
func (f *family) read(action string, v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		f.reject(action, err)
		return errorResult(err), nil
	}
	return jsonResult(v)
}

func (f *family) reject(action string, err error) {
	ev := log.Debug().Str("kind", string(f.kind)).Str("action", action)
	if serr, ok := session.AsError(err); ok {
		ev = ev.Str("code", string(serr.Code)).Str("phase", string(serr.Phase))
	}
	ev.Err(err).Msg("tool call rejected")
}

func (f *family) notify(id string) {
	if f.obs == nil || f.summarize == nil {
		return
	}
	content, err := f.summarize(id)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("summarize completed session")
		return
	}
	f.obs.OnSessionComplete(f.kind, id, content)
}

// deleted is the reply of delete and reset tools.
func deleted(kind session.Kind, id string, ok bool) (*mcp.CallToolResult, error) {
	if !ok {
		return errorResult(session.NotFound(id)), nil
	}
	log.Debug().Str("session_id", id).Str("kind", string(kind)).Msg("session deleted")
	return jsonResult(map[string]any{
		"session_id": id,
		"deleted":    true,
		"message":    fmt.Sprintf("Session %s deleted", id),
	})
}

// textReply returns rendered text, such as an export, as is.
func textReply(text string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(text), nil
}
