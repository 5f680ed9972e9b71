package dsl

import (
	"fmt"

	"github.com/aretw0/persona/pkg/adapters/memory"
	"github.com/aretw0/persona/pkg/domain"
)

// RoleBuilder manages the role construction.
type RoleBuilder struct {
	name   string
	states []*StateBuilder
	index  map[string]*StateBuilder
	events map[string]string
}

// NewRole creates a new role builder.
func NewRole(name string) *RoleBuilder {
	return &RoleBuilder{
		name:   name,
		index:  make(map[string]*StateBuilder),
		events: make(map[string]string),
	}
}

// State adds a state to the role, in declaration order.
// If the state already exists, it returns the existing builder.
func (b *RoleBuilder) State(name string) *StateBuilder {
	if sb, ok := b.index[name]; ok {
		return sb
	}
	sb := &StateBuilder{
		state: domain.State{
			Name:   name,
			Type:   domain.StateNormal,
			Events: make(map[string]domain.Event),
		},
	}
	b.index[name] = sb
	b.states = append(b.states, sb)
	return sb
}

// Event sets the description of an event in every state recognizing it.
// A description set on the state itself wins.
func (b *RoleBuilder) Event(name, description string) *RoleBuilder {
	b.events[name] = description
	return b
}

// Build validates the declarations and returns the role.
func (b *RoleBuilder) Build() (*domain.Role, error) {
	states := make([]domain.State, 0, len(b.states))
	for _, sb := range b.states {
		s := sb.Build()
		for name, ev := range s.Events {
			if ev.Description == "" {
				ev.Description = b.events[name]
				s.Events[name] = ev
			}
		}
		states = append(states, s)
	}
	role, err := domain.NewRole(b.name, states)
	if err != nil {
		return nil, fmt.Errorf("failed to build role: %w", err)
	}
	return role, nil
}

// Register builds the role and stores it in loader under id.
func (b *RoleBuilder) Register(loader *memory.Loader, id string) error {
	role, err := b.Build()
	if err != nil {
		return err
	}
	loader.PutRole(id, role)
	return nil
}
