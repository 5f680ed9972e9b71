package dsl_test

import (
	"context"
	"testing"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/internal/testutils"
	"github.com/aretw0/persona/pkg/adapters/memory"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/dsl"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guide() *dsl.RoleBuilder {
	b := dsl.NewRole("Restaurant Guide")

	b.State("greeting").
		Start().
		Describe("Welcome the user").
		Go("collect", 1)

	b.State("collect").
		On("collect_info", "recommend", 2).
		Do("collect_info", "ask_geo_location").
		On("goodbye", "farewell", 1)

	b.State("recommend").
		On("goodbye", "farewell", 1).
		DescribeEvent("goodbye", "The user is done")

	b.State("farewell").End()

	b.Event("collect_info", "The user shared their location or preferences").
		Event("goodbye", "The user wants to end the conversation")
	return b
}

func TestRoleBuilder_Build(t *testing.T) {
	role, err := guide().Build()
	require.NoError(t, err)

	assert.Equal(t, "Restaurant Guide", role.Name())
	assert.Equal(t, "greeting", role.InitState().Name)
	assert.Equal(t, []string{"greeting", "collect", "recommend", "farewell"}, role.StateNames())
	assert.True(t, role.IsEnd("farewell"))

	collect, ok := role.State("collect")
	require.True(t, ok)
	assert.Equal(t, domain.StateNormal, collect.Type)
	assert.Equal(t, []string{"ask_geo_location"}, collect.Events["collect_info"].ActionNames())
	assert.Empty(t, collect.Events["goodbye"].Actions)
	require.Len(t, collect.Transitions, 2)
	assert.Equal(t, domain.Transition{To: "recommend", Condition: "collect_info", Priority: 2}, collect.Transitions[0])

	desc, ok := role.EventDescription("collect", "goodbye")
	require.True(t, ok)
	assert.Equal(t, "The user wants to end the conversation", desc)

	desc, _ = role.EventDescription("recommend", "goodbye")
	assert.Equal(t, "The user is done", desc, "state level description wins")
}

func TestRoleBuilder_StateReuse(t *testing.T) {
	b := dsl.NewRole("r")
	b.State("a").Start()
	b.State("a").Go("b", 1)
	b.State("b").End()

	role, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, role.States(), 2)
	a, _ := role.State("a")
	assert.Equal(t, domain.StateStart, a.Type)
	assert.Len(t, a.Transitions, 1)
}

func TestRoleBuilder_Errors(t *testing.T) {
	b := dsl.NewRole("r")
	b.State("a").Go("b", 1)
	_, err := b.Build()
	assert.ErrorIs(t, err, domain.ErrNoStartState)

	b = dsl.NewRole("r")
	b.State("a").Start().On("next", "missing", 1)
	_, err = b.Build()
	assert.ErrorIs(t, err, domain.ErrDanglingTransition)
}

func TestRoleBuilder_BuildIsSnapshot(t *testing.T) {
	b := guide()
	role, err := b.Build()
	require.NoError(t, err)

	b.State("collect").Do("collect_info", "ask_price_range")
	collect, _ := role.State("collect")
	assert.Equal(t, []string{"ask_geo_location"}, collect.Events["collect_info"].ActionNames())
}

func TestRoleBuilder_Register(t *testing.T) {
	loader := memory.NewLoader(map[ports.TemplateKind]map[string]string{
		ports.KindAgent: {"mia": testutils.GuideAgent},
	})
	require.NoError(t, guide().Register(loader, "coded_guide"))

	roles, err := loader.List(context.Background(), ports.KindRole)
	require.NoError(t, err)
	assert.Equal(t, []string{"coded_guide"}, roles)

	eng, err := persona.New("", persona.WithLoader(loader))
	require.NoError(t, err)

	ctx := context.Background()
	id, err := eng.CreateEngagement(ctx, ports.CreateRequest{Agent: "mia", Role: "coded_guide"})
	require.NoError(t, err)

	resp, err := eng.Interact(ctx, id, "here is my info")
	require.NoError(t, err)
	assert.Equal(t, "recommend", resp.State)
}
