// Package fsm implements the finite state machine that tracks whether a control chart is in control across
// repeated evaluations
package fsm

import (
	"fmt"
)

// State represents a possible state of the machine
type State string

// Machine is a basic finite state machine.  Transitions not declared with WithTransitions are refused.
type Machine struct {
	current   State
	allowable map[State][]State
}

// MachineOption configures a machine at creation
type MachineOption func(m *Machine) error

// Transition represents an allowable transition from one state to another
type Transition struct {
	From State
	To   State
}

// NewMachine returns a new Machine in its initial state
func NewMachine(initial State, opts ...MachineOption) (*Machine, error) {
	if initial == "" {
		return nil, fmt.Errorf("initial state must not be empty")
	}
	m := &Machine{
		current:   initial,
		allowable: map[State][]State{},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// WithTransitions adds edges to the transition graph using the T(from, to...) shorthand, e.g.
// `NewMachine(Unknown, WithTransitions(T(Unknown, InControl, OutOfControl)))`
func WithTransitions(transitions ...[]Transition) MachineOption {
	return func(m *Machine) error {
		for _, ts := range transitions {
			for _, t := range ts {
				if t.From == "" || t.To == "" {
					return fmt.Errorf("transition states must not be empty")
				}
				m.allowable[t.From] = append(m.allowable[t.From], t.To)
			}
		}
		return nil
	}
}

// T is a shorthand for declaring transitions from one state to several others
func T(from State, tos ...State) []Transition {
	var transitions []Transition
	for _, to := range tos {
		transitions = append(transitions, Transition{From: from, To: to})
	}
	return transitions
}

// State returns the current state
func (m *Machine) State() State {
	return m.current
}

// Allowable checks whether a transition between two states is declared
func (m *Machine) Allowable(from, to State) bool {
	for _, s := range m.allowable[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition changes the current state if the transition is allowable
func (m *Machine) Transition(to State) error {
	if !m.Allowable(m.current, to) {
		return TransitionNotAllowed{Msg: fmt.Sprintf("cannot transition from state %s to %s", m.current, to)}
	}
	m.current = to
	return nil
}
