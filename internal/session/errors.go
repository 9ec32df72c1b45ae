package session

import (
	"errors"
	"fmt"
	"strings"
)

// Code is the kind of failure a facade call can report.
type Code string

const (
	CodeSessionNotFound    Code = "SessionNotFound"
	CodeValidationFailed   Code = "ValidationFailed"
	CodeInvalidTransition  Code = "InvalidTransition"
	CodeAmbiguousSelection Code = "AmbiguousOrUnknownSelection"
	CodeSessionCompleted   Code = "SessionAlreadyCompleted"
)

// Sentinels for errors.Is. Matching is by Code only.
var (
	ErrNotFound           = &Error{Code: CodeSessionNotFound}
	ErrValidation         = &Error{Code: CodeValidationFailed}
	ErrInvalidTransition  = &Error{Code: CodeInvalidTransition}
	ErrAmbiguousSelection = &Error{Code: CodeAmbiguousSelection}
	ErrAlreadyCompleted   = &Error{Code: CodeSessionCompleted}
)

// Error is the structured failure returned by stores, validators and the
// transition engine. It carries enough context for a calling agent to
// correct itself: the offending field, the current phase and the actions
// that would have been accepted.
type Error struct {
	Code     Code     `json:"code"`
	Message  string   `json:"error"`
	Field    string   `json:"field,omitempty"`
	Phase    Phase    `json:"phase,omitempty"`
	Expected []string `json:"expected_actions,omitempty"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field: %s)", e.Field)
	}
	return b.String()
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NotFound reports an unknown session id.
func NotFound(id string) *Error {
	return &Error{
		Code:    CodeSessionNotFound,
		Message: fmt.Sprintf("session %q not found", id),
		Field:   "session_id",
	}
}

// Invalid reports a payload constraint violation on field.
func Invalid(field, format string, args ...any) *Error {
	return &Error{
		Code:    CodeValidationFailed,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// InvalidTransition reports an action that is not legal in phase.
func InvalidTransition(phase Phase, action string, expected []string) *Error {
	msg := fmt.Sprintf("action %q is not allowed in phase %q", action, phase)
	if len(expected) > 0 {
		msg += fmt.Sprintf("; expected one of: %s", strings.Join(expected, ", "))
	}
	return &Error{
		Code:     CodeInvalidTransition,
		Message:  msg,
		Phase:    phase,
		Expected: expected,
	}
}

// AlreadyCompleted reports a mutating action on a terminal session.
func AlreadyCompleted(phase Phase, action string) *Error {
	return &Error{
		Code:    CodeSessionCompleted,
		Message: fmt.Sprintf("session is %s; %q is no longer accepted (read-only actions remain available)", phase, action),
		Phase:   phase,
	}
}

// AmbiguousSelection reports selection text that did not resolve to exactly
// one candidate.
func AmbiguousSelection(text, reason string, candidates []string) *Error {
	return &Error{
		Code:     CodeAmbiguousSelection,
		Message:  fmt.Sprintf("could not resolve selection %q: %s; candidates: %s", text, reason, strings.Join(candidates, ", ")),
		Field:    "selection",
		Expected: candidates,
	}
}
