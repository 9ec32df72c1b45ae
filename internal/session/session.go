// Package session holds the in-memory session records shared by every
// reasoning tool family.
//
// A Store is generic over the family payload, so each family keeps its own
// typed data while sharing id generation, per-session locking, history and
// the error taxonomy. Stores are explicit objects injected into the family
// services; there is no package-level session map.
package session

import (
	"fmt"
	"slices"
	"time"
)

// --- Kind enum ---

// Kind identifies which tool family owns a session.
type Kind string

const (
	KindPlanning       Kind = "planning"
	KindTreeOfThoughts Kind = "tree_of_thoughts"
	KindSequential     Kind = "sequential_thinking"
	KindVibe           Kind = "vibe"
	KindCounterfactual Kind = "counterfactual"
	KindSampling       Kind = "verbalized_sampling"
	KindWBSExecution   Kind = "wbs_execution"
	KindRecursive      Kind = "recursive_thinking"
)

// validKinds maps each kind to the prefix used in its session ids.
var validKinds = map[Kind]string{
	KindPlanning:       "planning",
	KindTreeOfThoughts: "tot",
	KindSequential:     "seq",
	KindVibe:           "vibe",
	KindCounterfactual: "cf",
	KindSampling:       "vs",
	KindWBSExecution:   "wbsx",
	KindRecursive:      "rt",
}

// ValidateKind returns an error if the kind is not recognized.
// The empty kind is accepted by callers that treat it as "all kinds".
func ValidateKind(k Kind) error {
	if _, ok := validKinds[k]; !ok {
		return fmt.Errorf("invalid session kind %q: must be one of: planning, tree_of_thoughts, sequential_thinking, vibe, counterfactual, verbalized_sampling, wbs_execution, recursive_thinking", k)
	}
	return nil
}

// IDPrefix returns the id prefix for sessions of this kind.
func (k Kind) IDPrefix() string {
	if p, ok := validKinds[k]; ok {
		return p
	}
	return string(k)
}

// Phase is a position in a family's state machine. Each family declares
// its own phase constants.
type Phase string

// HistoryEntry records one applied action. Entries are appended, never edited.
type HistoryEntry struct {
	Action         string    `json:"action"`
	InputSummary   string    `json:"input_summary"`
	ResultingPhase Phase     `json:"resulting_phase"`
	Timestamp      time.Time `json:"timestamp"`
}

// Payload is the family-specific data carried by a session.
//
// Clone must return a deep copy: the store mutates clones and only commits
// them when the mutation succeeds. Stats feeds the lightweight list projection.
type Payload[P any] interface {
	Clone() P
	Stats() map[string]int
}

// Session is one in-progress workflow instance.
type Session[P Payload[P]] struct {
	ID        string         `json:"session_id"`
	Kind      Kind           `json:"kind"`
	Phase     Phase          `json:"phase"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	History   []HistoryEntry `json:"history"`
	Payload   P              `json:"payload"`
}

// Record appends a history entry and moves the session to phase.
func (s *Session[P]) Record(action, summary string, phase Phase) {
	now := timeNow().UTC()
	s.Phase = phase
	s.UpdatedAt = now
	s.History = append(s.History, HistoryEntry{
		Action:         action,
		InputSummary:   summary,
		ResultingPhase: phase,
		Timestamp:      now,
	})
}

// Summary returns the lightweight projection used by list operations.
func (s *Session[P]) Summary() Summary {
	return Summary{
		ID:         s.ID,
		Kind:       s.Kind,
		Phase:      s.Phase,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		HistoryLen: len(s.History),
		Stats:      s.Payload.Stats(),
	}
}

func (s *Session[P]) clone() *Session[P] {
	c := *s
	c.History = slices.Clone(s.History)
	c.Payload = s.Payload.Clone()
	return &c
}

// Summary is a read-only projection of a session.
type Summary struct {
	ID         string         `json:"session_id"`
	Kind       Kind           `json:"kind"`
	Phase      Phase          `json:"phase"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	HistoryLen int            `json:"history_length"`
	Stats      map[string]int `json:"stats,omitempty"`
}
