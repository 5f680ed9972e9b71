package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStateRole(t *testing.T) *domain.Role {
	t.Helper()
	role, err := domain.NewRole("test", []domain.State{
		{
			Name:        "start",
			Type:        domain.StateStart,
			Description: "Initial starting state",
			Events: map[string]domain.Event{
				"completed": {Description: "done", Actions: []domain.Action{{Name: "complete_action"}}},
			},
			Transitions: []domain.Transition{{To: "next", Condition: "completed", Priority: 1}},
		},
		{Name: "next", Type: domain.StateEnd, Description: "Next state"},
	})
	require.NoError(t, err)
	return role
}

func TestNewRole(t *testing.T) {
	role := twoStateRole(t)

	assert.Equal(t, "test", role.Name())
	assert.Equal(t, "start", role.InitState().Name)
	require.Len(t, role.EndStates(), 1)
	assert.Equal(t, "next", role.EndStates()[0].Name)
	assert.Equal(t, []string{"start", "next"}, role.StateNames())
	assert.True(t, role.IsEnd("next"))
	assert.False(t, role.IsEnd("start"))

	t.Run("Event names are normalized from keys", func(t *testing.T) {
		s, ok := role.State("start")
		require.True(t, ok)
		e, ok := s.Event("completed")
		require.True(t, ok)
		assert.Equal(t, "completed", e.Name)
	})

	t.Run("Default name", func(t *testing.T) {
		r, err := domain.NewRole("", []domain.State{{Name: "s", Type: domain.StateStart}})
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultRoleName, r.Name())
	})

	t.Run("Missing type defaults to normal", func(t *testing.T) {
		r, err := domain.NewRole("r", []domain.State{{Name: "s", Type: domain.StateStart}, {Name: "n"}})
		require.NoError(t, err)
		s, _ := r.State("n")
		assert.Equal(t, domain.StateNormal, s.Type)
	})
}

func TestNewRole_DefinitionErrors(t *testing.T) {
	tests := []struct {
		name   string
		states []domain.State
		want   error
	}{
		{
			name:   "no start state",
			states: []domain.State{{Name: "a", Type: domain.StateNormal}},
			want:   domain.ErrNoStartState,
		},
		{
			name:   "no states at all",
			states: nil,
			want:   domain.ErrNoStartState,
		},
		{
			name:   "multiple start states",
			states: []domain.State{{Name: "a", Type: domain.StateStart}, {Name: "b", Type: domain.StateStart}},
			want:   domain.ErrMultipleStartStates,
		},
		{
			name: "dangling transition",
			states: []domain.State{
				{Name: "a", Type: domain.StateStart, Transitions: []domain.Transition{{To: "ghost"}}},
			},
			want: domain.ErrDanglingTransition,
		},
		{
			name:   "duplicate state",
			states: []domain.State{{Name: "a", Type: domain.StateStart}, {Name: "a", Type: domain.StateNormal}},
			want:   domain.ErrDuplicateState,
		},
		{
			name:   "unknown state type",
			states: []domain.State{{Name: "a", Type: "weird"}},
			want:   domain.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := domain.NewRole("broken", tt.states)
			require.Error(t, err)
			assert.Nil(t, role)
			assert.ErrorIs(t, err, tt.want)

			var defErr *domain.DefinitionError
			require.True(t, errors.As(err, &defErr))
			assert.Equal(t, "broken", defErr.Role)
		})
	}
}

func TestNewRole_ValidTransitionTarget(t *testing.T) {
	_, err := domain.NewRole("ok", []domain.State{
		{Name: "a", Type: domain.StateStart, Transitions: []domain.Transition{{To: "b"}}},
		{Name: "b"},
	})
	assert.NoError(t, err)
}

func TestRole_NextStates(t *testing.T) {
	role := twoStateRole(t)

	next := role.NextStates("start")
	require.Len(t, next, 1)
	assert.Equal(t, "next", next[0].Name)

	assert.Empty(t, role.NextStates("next"))
	assert.Empty(t, role.NextStates("invalid"))
}

func TestRole_EventDescription(t *testing.T) {
	role := twoStateRole(t)

	desc, ok := role.EventDescription("start", "completed")
	assert.True(t, ok)
	assert.Equal(t, "done", desc)

	_, ok = role.EventDescription("start", "missing")
	assert.False(t, ok)
	_, ok = role.EventDescription("invalid", "completed")
	assert.False(t, ok)
}

func TestRole_StateLookup(t *testing.T) {
	role := twoStateRole(t)

	s, ok := role.State("start")
	assert.True(t, ok)
	assert.Equal(t, domain.StateStart, s.Type)

	_, ok = role.State("invalid")
	assert.False(t, ok)
}

func TestRole_IsolatedFromCallers(t *testing.T) {
	transitions := []domain.Transition{{To: "next", Condition: "go", Priority: 1}}
	actions := []domain.Action{{Name: "book"}}
	role, err := domain.NewRole("r", []domain.State{
		{
			Name:        "start",
			Type:        domain.StateStart,
			Events:      map[string]domain.Event{"go": {Actions: actions}},
			Transitions: transitions,
		},
		{Name: "next"},
		{Name: "elsewhere"},
	})
	require.NoError(t, err)

	transitions[0].To = "elsewhere"
	actions[0].Name = "cancel"

	s, ok := role.State("start")
	require.True(t, ok)
	assert.Equal(t, "next", s.Transitions[0].To)
	assert.Equal(t, "book", s.Events["go"].Actions[0].Name)

	s.Transitions[0].Priority = 9
	s.Events["go"].Actions[0].Name = "cancel"
	delete(s.Events, "go")

	again := role.InitState()
	assert.Equal(t, 1, again.Transitions[0].Priority)
	require.Contains(t, again.Events, "go")
	assert.Equal(t, "book", again.Events["go"].Actions[0].Name)
}
