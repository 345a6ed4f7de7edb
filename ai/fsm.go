package ai

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownState     = errors.New("ai: unknown state")
	ErrUnknownCondition = errors.New("ai: unknown condition")
)

// StateID identifies an FSM state.
type StateID string

type Action func()

type StateDef struct {
	OnEnter []Action
	While   []Action
	OnExit  []Action
}

// Guard decides whether a transition fires.
type Guard func() bool

type Transition struct {
	To   StateID
	When Guard
	// Name is used in logs only.
	Name string
}

// Machine is a finite state machine. Transitions out of a state are checked
// in declaration order after the state's While actions; the first guard that
// holds wins.
type Machine struct {
	Initial     StateID
	States      map[StateID]StateDef
	Transitions map[StateID][]Transition

	current StateID
	started bool
}

func NewMachine(initial StateID) *Machine {
	return &Machine{
		Initial:     initial,
		States:      map[StateID]StateDef{},
		Transitions: map[StateID][]Transition{},
	}
}

func (m *Machine) AddState(id StateID, def StateDef) {
	m.States[id] = def
}

func (m *Machine) AddTransition(from StateID, t Transition) {
	m.Transitions[from] = append(m.Transitions[from], t)
}

// Current returns the active state, or Initial before the first Run.
func (m *Machine) Current() StateID {
	if !m.started {
		return m.Initial
	}
	return m.current
}

// Validate checks that the initial state and every transition endpoint exist.
func (m *Machine) Validate() error {
	if _, ok := m.States[m.Initial]; !ok {
		return fmt.Errorf("%w: initial %q", ErrUnknownState, m.Initial)
	}
	for from, ts := range m.Transitions {
		if _, ok := m.States[from]; !ok {
			return fmt.Errorf("%w: transition source %q", ErrUnknownState, from)
		}
		for _, t := range ts {
			if _, ok := m.States[t.To]; !ok {
				return fmt.Errorf("%w: transition %q -> %q", ErrUnknownState, from, t.To)
			}
		}
	}
	return nil
}

// Run enters the initial state on first use, runs the current state's While
// actions and then applies at most one transition. It reports whether the
// state changed.
func (m *Machine) Run() bool {
	if !m.started {
		m.started = true
		m.current = m.Initial
		runActions(m.States[m.current].OnEnter)
	}

	runActions(m.States[m.current].While)

	for _, t := range m.Transitions[m.current] {
		if t.When == nil || !t.When() {
			continue
		}
		if t.To == m.current {
			return false
		}
		m.Force(t.To)
		logger.Debug("fsm transition", "to", t.To, "via", t.Name)
		return true
	}
	return false
}

// Force switches to id, running exit and enter actions.
func (m *Machine) Force(id StateID) {
	if m.started {
		runActions(m.States[m.current].OnExit)
	}
	m.started = true
	m.current = id
	runActions(m.States[id].OnEnter)
}

func runActions(actions []Action) {
	for _, a := range actions {
		if a != nil {
			a()
		}
	}
}
