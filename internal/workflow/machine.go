// Package workflow holds the pieces every reasoning family composes: the
// phase transition engine, the payload validator and the free-text
// selection resolver.
package workflow

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/HendryAvila/reasonkit/internal/session"
)

// NoNextAction is the next_action hint of a session in a terminal phase.
const NoNextAction = "none (workflow complete)"

// Transition is one legal (phase, action) pair and the phase it leads to.
// A (From, Action) pair may be declared more than once when the outcome
// depends on the payload, e.g. "more types remain" versus "all done".
type Transition struct {
	From   session.Phase
	Action string
	To     session.Phase
}

// Machine is a family's declared state machine.
type Machine struct {
	prefix      string
	transitions []Transition
	terminal    map[session.Phase]bool
}

// NewMachine declares a machine. prefix is prepended to action names to
// produce tool names for hints, e.g. "vs_" + "submit_samples".
func NewMachine(prefix string, transitions []Transition, terminal ...session.Phase) *Machine {
	m := &Machine{
		prefix:      prefix,
		transitions: transitions,
		terminal:    make(map[session.Phase]bool, len(terminal)),
	}
	for _, p := range terminal {
		m.terminal[p] = true
	}
	return m
}

// IsTerminal reports whether phase is absorbing.
func (m *Machine) IsTerminal(phase session.Phase) bool {
	return m.terminal[phase]
}

// Tool returns the tool name for action.
func (m *Machine) Tool(action string) string {
	return m.prefix + action
}

// Expected lists the tool names legal in phase, in declaration order.
func (m *Machine) Expected(phase session.Phase) []string {
	var out []string
	for _, t := range m.transitions {
		if t.From != phase {
			continue
		}
		name := m.Tool(t.Action)
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// Hint returns the next_action string for phase: the first expected tool,
// or NoNextAction for terminal phases.
func (m *Machine) Hint(phase session.Phase) string {
	if m.terminal[phase] {
		return NoNextAction
	}
	if exp := m.Expected(phase); len(exp) > 0 {
		return exp[0]
	}
	return NoNextAction
}

// Check reports whether action may be applied in phase without deciding
// the target.
func (m *Machine) Check(phase session.Phase, action string) error {
	_, err := m.Next(phase, action)
	return err
}

// Next returns the first declared target of (phase, action).
func (m *Machine) Next(phase session.Phase, action string) (session.Phase, error) {
	if m.terminal[phase] {
		return "", session.AlreadyCompleted(phase, m.Tool(action))
	}
	for _, t := range m.transitions {
		if t.From == phase && t.Action == action {
			return t.To, nil
		}
	}
	return "", session.InvalidTransition(phase, m.Tool(action), m.Expected(phase))
}

func (m *Machine) allows(from session.Phase, action string, to session.Phase) bool {
	for _, t := range m.transitions {
		if t.From == from && t.Action == action && t.To == to {
			return true
		}
	}
	return false
}

// Apply moves sess along (phase, action) and appends a history entry.
func Apply[P session.Payload[P]](sess *session.Session[P], m *Machine, action, summary string) error {
	to, err := m.Next(sess.Phase, action)
	if err != nil {
		return err
	}
	record(sess, action, summary, to)
	return nil
}

// ApplyTo moves sess to an explicit target. The caller picks among the
// declared outcomes of (phase, action); an undeclared target is a
// programming error.
func ApplyTo[P session.Payload[P]](sess *session.Session[P], m *Machine, action string, to session.Phase, summary string) error {
	if err := m.Check(sess.Phase, action); err != nil {
		return err
	}
	if !m.allows(sess.Phase, action, to) {
		return fmt.Errorf("workflow: undeclared transition %s --%s--> %s", sess.Phase, action, to)
	}
	record(sess, action, summary, to)
	return nil
}

// Record appends a history entry for an action that does not change the
// phase, such as a retry. The phase is left as is.
func Record[P session.Payload[P]](sess *session.Session[P], action, summary string) {
	record(sess, action, summary, sess.Phase)
}

func record[P session.Payload[P]](sess *session.Session[P], action, summary string, to session.Phase) {
	from := sess.Phase
	sess.Record(action, summary, to)
	log.Debug().
		Str("session_id", sess.ID).
		Str("kind", string(sess.Kind)).
		Str("action", action).
		Str("from", string(from)).
		Str("phase", string(to)).
		Msg("session transition")
}
