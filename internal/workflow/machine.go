// Package workflow implements table-driven lifecycle state machines for
// approval-gated records.
package workflow

import (
	"fmt"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Machine holds the allowed transitions for one entity type.
type Machine[S comparable] struct {
	entity      string
	states      []S
	transitions map[S][]S
	posting     map[S]bool
}

// New builds a machine. Every state must be listed in states, including terminal ones.
func New[S comparable](entity string, states []S, transitions map[S][]S) *Machine[S] {
	return &Machine[S]{entity: entity, states: states, transitions: transitions, posting: map[S]bool{}}
}

// Posting marks target states whose entry invokes a calculator.
func (m *Machine[S]) Posting(states ...S) *Machine[S] {
	for _, s := range states {
		m.posting[s] = true
	}
	return m
}

// Can reports whether from -> to is allowed.
func (m *Machine[S]) Can(from, to S) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns *shared.InvalidTransitionError when from -> to is not allowed.
func (m *Machine[S]) Check(from, to S) error {
	if m.Can(from, to) {
		return nil
	}
	return &shared.InvalidTransitionError{Entity: m.entity, From: fmt.Sprint(from), To: fmt.Sprint(to)}
}

// InvokesPosting reports whether entering to runs a calculator.
func (m *Machine[S]) InvokesPosting(to S) bool { return m.posting[to] }

// Known reports whether s is a declared state.
func (m *Machine[S]) Known(s S) bool {
	for _, st := range m.states {
		if st == s {
			return true
		}
	}
	return false
}

// Validate reports a table that references an undeclared state or a declared
// state that is unreachable and not an initial state.
func (m *Machine[S]) Validate(initial S) error {
	reachable := map[S]bool{initial: true}
	for from, targets := range m.transitions {
		if !m.Known(from) {
			return fmt.Errorf("workflow: %s: undeclared source state %v", m.entity, from)
		}
		for _, to := range targets {
			if !m.Known(to) {
				return fmt.Errorf("workflow: %s: undeclared target state %v", m.entity, to)
			}
			reachable[to] = true
		}
	}
	for s := range m.posting {
		if !m.Known(s) {
			return fmt.Errorf("workflow: %s: undeclared posting state %v", m.entity, s)
		}
	}
	for _, s := range m.states {
		if !reachable[s] {
			return fmt.Errorf("workflow: %s: state %v is unreachable", m.entity, s)
		}
	}
	return nil
}

// MustValidate panics when Validate fails. Lifecycle tables call it at package init.
func (m *Machine[S]) MustValidate(initial S) *Machine[S] {
	if err := m.Validate(initial); err != nil {
		panic(err)
	}
	return m
}
