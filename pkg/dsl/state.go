package dsl

import "github.com/aretw0/persona/pkg/domain"

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	state domain.State
}

// Start marks the state as the initial state of the role.
func (s *StateBuilder) Start() *StateBuilder {
	s.state.Type = domain.StateStart
	return s
}

// End marks the state as terminal.
func (s *StateBuilder) End() *StateBuilder {
	s.state.Type = domain.StateEnd
	return s
}

// Describe sets the state description shown to the model.
func (s *StateBuilder) Describe(description string) *StateBuilder {
	s.state.Description = description
	return s
}

// Go adds an unconditioned transition, only taken while an agent is being
// initialized.
func (s *StateBuilder) Go(target string, priority int) *StateBuilder {
	s.state.Transitions = append(s.state.Transitions, domain.Transition{
		To:       target,
		Priority: priority,
	})
	return s
}

// On recognizes event in this state and moves to target when it is detected.
func (s *StateBuilder) On(event, target string, priority int) *StateBuilder {
	s.event(event)
	s.state.Transitions = append(s.state.Transitions, domain.Transition{
		To:        target,
		Condition: event,
		Priority:  priority,
	})
	return s
}

// Do authorizes actions for event. The event is recognized even without a
// transition.
func (s *StateBuilder) Do(event string, actions ...string) *StateBuilder {
	ev := s.event(event)
	for _, name := range actions {
		ev.Actions = append(ev.Actions, domain.Action{Name: name})
	}
	s.state.Events[event] = ev
	return s
}

// DescribeEvent sets the description of an event of this state.
func (s *StateBuilder) DescribeEvent(event, description string) *StateBuilder {
	ev := s.event(event)
	ev.Description = description
	s.state.Events[event] = ev
	return s
}

func (s *StateBuilder) event(name string) domain.Event {
	ev, ok := s.state.Events[name]
	if !ok {
		ev = domain.Event{Name: name}
		s.state.Events[name] = ev
	}
	return ev
}

// Build returns a copy of the underlying domain.State.
func (s *StateBuilder) Build() domain.State {
	out := s.state
	out.Transitions = append([]domain.Transition(nil), s.state.Transitions...)
	out.Events = make(map[string]domain.Event, len(s.state.Events))
	for k, v := range s.state.Events {
		v.Actions = append([]domain.Action(nil), v.Actions...)
		out.Events[k] = v
	}
	return out
}
