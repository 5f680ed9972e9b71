package domain

import "fmt"

// DefaultRoleName is used when a role definition does not name itself.
const DefaultRoleName = "Unnamed Role"

// Role is the declarative finite state machine describing an agent's behavior.
// It is built once by NewRole and is read-only afterwards, so a single Role can
// back any number of concurrently running agents.
type Role struct {
	name   string
	states map[string]State
	order  []string
	init   string
	ends   []string
}

// NewRole validates the states and builds a Role.
//
// It fails with a *DefinitionError when:
//   - two states share a name,
//   - a state has an unknown type,
//   - no state, or more than one state, has type start,
//   - a transition targets a state that does not exist.
func NewRole(name string, states []State) (*Role, error) {
	if name == "" {
		name = DefaultRoleName
	}
	r := &Role{
		name:   name,
		states: make(map[string]State, len(states)),
		order:  make([]string, 0, len(states)),
	}

	var starts []string
	for _, s := range states {
		if s.Name == "" {
			return nil, &DefinitionError{Role: name, Reason: "state without a name", Err: ErrInvalidState}
		}
		if _, dup := r.states[s.Name]; dup {
			return nil, &DefinitionError{Role: name, State: s.Name, Reason: "duplicate state name", Err: ErrDuplicateState}
		}
		if s.Type == "" {
			s.Type = StateNormal
		}
		if !s.Type.Valid() {
			return nil, &DefinitionError{
				Role:   name,
				State:  s.Name,
				Reason: fmt.Sprintf("unknown state type %q", s.Type),
				Err:    ErrInvalidState,
			}
		}
		s = s.Clone()
		for key, e := range s.Events {
			e.Name = key
			s.Events[key] = e
		}

		r.states[s.Name] = s
		r.order = append(r.order, s.Name)

		switch s.Type {
		case StateStart:
			starts = append(starts, s.Name)
		case StateEnd:
			r.ends = append(r.ends, s.Name)
		}
	}

	switch len(starts) {
	case 0:
		return nil, &DefinitionError{Role: name, Reason: "no start state", Err: ErrNoStartState}
	case 1:
		r.init = starts[0]
	default:
		return nil, &DefinitionError{
			Role:   name,
			State:  starts[1],
			Reason: fmt.Sprintf("start state already declared by %q", starts[0]),
			Err:    ErrMultipleStartStates,
		}
	}

	for _, stateName := range r.order {
		for _, t := range r.states[stateName].Transitions {
			if _, ok := r.states[t.To]; !ok {
				return nil, &DefinitionError{
					Role:   name,
					State:  stateName,
					Reason: fmt.Sprintf("transition targets unknown state %q", t.To),
					Err:    ErrDanglingTransition,
				}
			}
		}
	}

	return r, nil
}

// get hands out a copy so callers cannot reach the shared definition.
func (r *Role) get(name string) (State, bool) {
	s, ok := r.states[name]
	if !ok {
		return State{}, false
	}
	return s.Clone(), true
}

// Name returns the role name.
func (r *Role) Name() string { return r.name }

// InitState returns the unique start state.
func (r *Role) InitState() State {
	s, _ := r.get(r.init)
	return s
}

// EndStates returns the end states in definition order.
func (r *Role) EndStates() []State {
	out := make([]State, 0, len(r.ends))
	for _, name := range r.ends {
		s, _ := r.get(name)
		out = append(out, s)
	}
	return out
}

// IsEnd reports whether the named state is an end state.
func (r *Role) IsEnd(name string) bool {
	s, ok := r.states[name]
	return ok && s.IsEnd()
}

// State looks up a state by name.
func (r *Role) State(name string) (State, bool) {
	return r.get(name)
}

// States returns every state in definition order.
func (r *Role) States() []State {
	out := make([]State, 0, len(r.order))
	for _, name := range r.order {
		s, _ := r.get(name)
		out = append(out, s)
	}
	return out
}

// StateNames returns the state names in definition order.
func (r *Role) StateNames() []string {
	return append([]string(nil), r.order...)
}

// NextStates returns the targets of the named state's transitions, in transition order.
// An unknown state has no next states.
func (r *Role) NextStates(name string) []State {
	s, ok := r.states[name]
	if !ok {
		return nil
	}
	out := make([]State, 0, len(s.Transitions))
	for _, t := range s.Transitions {
		if next, ok := r.get(t.To); ok {
			out = append(out, next)
		}
	}
	return out
}

// EventDescription returns the description of an event recognized in a state.
func (r *Role) EventDescription(state, event string) (string, bool) {
	s, ok := r.states[state]
	if !ok {
		return "", false
	}
	e, ok := s.Events[event]
	if !ok {
		return "", false
	}
	return e.Description, true
}
