package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// StateType classifies a state within a Role.
type StateType string

const (
	StateStart  StateType = "start"
	StateNormal StateType = "normal"
	StateEnd    StateType = "end"
)

// Valid reports whether t is one of the known state types.
func (t StateType) Valid() bool {
	switch t {
	case StateStart, StateNormal, StateEnd:
		return true
	}
	return false
}

// StateStatus tracks the progress of a state within one live agent.
// It is never stored on the State itself: the Role is shared between agents.
type StateStatus string

const (
	StatusNotStarted StateStatus = "not_started"
	StatusInProgress StateStatus = "in_progress"
	StatusCompleted  StateStatus = "completed"
)

// State is a node of the Role.
type State struct {
	Name        string           `json:"name" yaml:"name"`
	Type        StateType        `json:"state_type" yaml:"state_type"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Events      map[string]Event `json:"events,omitempty" yaml:"events,omitempty"`
	Transitions []Transition     `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

// Event returns the event recognized in this state under the given name.
func (s State) Event(name string) (Event, bool) {
	e, ok := s.Events[name]
	return e, ok
}

// ActionsFor returns the actions authorized for an event, or nil if the event is unknown here.
func (s State) ActionsFor(event string) []Action {
	e, ok := s.Events[event]
	if !ok {
		return nil
	}
	return e.Actions
}

// EventNames returns the names of the events recognized in this state, sorted.
func (s State) EventNames() []string {
	names := make([]string, 0, len(s.Events))
	for name := range s.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormattedEventList renders the event menu presented to the intent resolver:
//
//	1. Event: greet, Description: The user says hello
//	2. Event: leave, Description: The user wants to go
func (s State) FormattedEventList() string {
	var b strings.Builder
	for i, name := range s.EventNames() {
		fmt.Fprintf(&b, "%d. Event: %s, Description: %s\n", i+1, name, s.Events[name].Description)
	}
	return strings.TrimSpace(b.String())
}

// FormattedState renders the state header presented to the intent resolver.
func (s State) FormattedState() string {
	return fmt.Sprintf("State Name: %s, Description: %s", s.Name, s.Description)
}

// Clone returns a copy of s that shares no slices or maps with it.
func (s State) Clone() State {
	s.Transitions = slices.Clone(s.Transitions)
	events := make(map[string]Event, len(s.Events))
	for key, e := range s.Events {
		e.Actions = slices.Clone(e.Actions)
		events[key] = e
	}
	s.Events = events
	return s
}

func (s State) IsStart() bool { return s.Type == StateStart }
func (s State) IsEnd() bool   { return s.Type == StateEnd }
