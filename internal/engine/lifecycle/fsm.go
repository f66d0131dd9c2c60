// Package lifecycle provides a small table-driven finite-state-machine
// validator shared by reservation, saga and projection statuses.
package lifecycle

import (
	"fmt"
	"sort"
)

// State is a lifecycle status value.
type State string

// Machine validates transitions against an explicit table. Transitions not
// listed are invalid; there is no wildcard.
type Machine struct {
	name        string
	transitions map[State]map[State]struct{}
}

// New builds a machine from the transition table. The table maps each state
// to the set of states it may move to; states that never appear as a source
// are terminal.
func New(name string, table map[State][]State) *Machine {
	transitions := make(map[State]map[State]struct{}, len(table))
	for from, targets := range table {
		set := make(map[State]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		transitions[from] = set
	}
	return &Machine{name: name, transitions: transitions}
}

// InvalidTransitionError reports a transition outside the table.
type InvalidTransitionError struct {
	Machine string
	From    State
	To      State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: invalid transition %s -> %s", e.Machine, e.From, e.To)
}

// Can reports whether from -> to is in the table.
func (m *Machine) Can(from, to State) bool {
	targets, ok := m.transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Transition validates from -> to, returning the target state or an
// *InvalidTransitionError. Invalid transitions are never silently ignored.
func (m *Machine) Transition(from, to State) (State, error) {
	if !m.Can(from, to) {
		return from, &InvalidTransitionError{Machine: m.name, From: from, To: to}
	}
	return to, nil
}

// IsTerminal reports whether the state has no outgoing transitions.
func (m *Machine) IsTerminal(state State) bool {
	targets, ok := m.transitions[state]
	return !ok || len(targets) == 0
}

// Targets returns the sorted transition targets for a state; empty for
// terminal states.
func (m *Machine) Targets(from State) []State {
	targets := make([]State, 0, len(m.transitions[from]))
	for to := range m.transitions[from] {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}
