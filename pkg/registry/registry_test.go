package registry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/registry"
	"github.com/aretw0/persona/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant(v any) registry.Handler {
	return func(context.Context, map[string]any) (any, error) { return v, nil }
}

type brokenExtension struct{}

func (brokenExtension) Scope() string { return "broken" }
func (brokenExtension) Actions() ([]registry.Action, error) {
	return nil, errors.New("cannot enumerate")
}

func TestNew(t *testing.T) {
	reg, err := registry.New(
		registry.Module{Name: "confirm", Entries: []registry.Action{
			{Name: "book", Handler: constant("booked")},
		}},
		registry.Module{Name: "greet", Entries: []registry.Action{
			{Name: "wave", Handler: constant("hi")},
		}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"confirm", "greet"}, reg.Scopes())

	a, ok := reg.Lookup("confirm", "book")
	require.True(t, ok)
	assert.Equal(t, "book", a.Name)

	_, ok = reg.Lookup("confirm", "wave")
	assert.False(t, ok, "lookup is scoped")
	_, ok = reg.Lookup("missing", "book")
	assert.False(t, ok)
}

func TestNew_LoadErrors(t *testing.T) {
	t.Run("enumeration failure", func(t *testing.T) {
		_, err := registry.New(brokenExtension{})
		var loadErr *domain.RegistryLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "broken", loadErr.Scope)
	})

	t.Run("action without handler", func(t *testing.T) {
		_, err := registry.New(registry.Module{Name: "x", Entries: []registry.Action{{Name: "nope"}}})
		var loadErr *domain.RegistryLoadError
		require.ErrorAs(t, err, &loadErr)
	})

	t.Run("extension without scope", func(t *testing.T) {
		_, err := registry.New(registry.Module{})
		var loadErr *domain.RegistryLoadError
		require.ErrorAs(t, err, &loadErr)
	})

	t.Run("invalid parameter schema", func(t *testing.T) {
		_, err := registry.New(registry.Module{Name: "x", Entries: []registry.Action{{
			Name:    "a",
			Handler: constant(nil),
			Params:  schema.New(schema.Param{Name: "p", Kind: "tuple"}),
		}}})
		var loadErr *domain.RegistryLoadError
		require.ErrorAs(t, err, &loadErr)
	})
}

func TestRegisterUnregister(t *testing.T) {
	reg, err := registry.New()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, reg.Register("confirm", registry.Action{Name: "book", Handler: constant("v1")}))
	require.NoError(t, reg.Register("confirm", registry.Action{Name: "book", Handler: constant("v2")}))

	got, err := reg.Execute(ctx, "confirm", "book", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", got, "re-register overwrites")

	require.NoError(t, reg.Unregister("confirm", "book"))
	_, ok := reg.Lookup("confirm", "book")
	assert.False(t, ok)
	assert.Empty(t, reg.Scopes())

	assert.ErrorIs(t, reg.Unregister("confirm", "book"), domain.ErrActionNotFound)

	assert.Error(t, reg.Register("", registry.Action{Name: "a", Handler: constant(nil)}))
	assert.Error(t, reg.Register("s", registry.Action{Handler: constant(nil)}))
}

func TestExecute(t *testing.T) {
	reg, err := registry.New(registry.Module{Name: "collect", Entries: []registry.Action{
		{
			Name:    "ask",
			Params:  schema.New(schema.Param{Name: "topic", Kind: schema.KindString}),
			Handler: func(_ context.Context, args map[string]any) (any, error) { return "asked about " + args["topic"].(string), nil },
		},
		{
			Name:    "explode",
			Handler: func(context.Context, map[string]any) (any, error) { panic("kaboom") },
		},
	}})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := reg.Execute(ctx, "collect", "ask", map[string]any{"topic": "price"})
	require.NoError(t, err)
	assert.Equal(t, "asked about price", got)

	_, err = reg.Execute(ctx, "collect", "ask", map[string]any{})
	assert.Error(t, err, "missing required argument")

	_, err = reg.Execute(ctx, "collect", "explode", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	_, err = reg.Execute(ctx, "collect", "missing", nil)
	assert.ErrorIs(t, err, domain.ErrActionNotFound)
}

func TestToolDefinitions(t *testing.T) {
	reg, err := registry.New(registry.Module{Name: "collect_info", Entries: []registry.Action{
		{Name: "ask_price_range", Description: "Ask for a price range", Handler: constant("True")},
		{Name: "ask_geo_location", Handler: constant("True")},
	}})
	require.NoError(t, err)

	defs := reg.ToolDefinitions("collect_info", []string{"ask_price_range", "unknown"})
	require.Len(t, defs, 1)
	assert.Equal(t, "ask_price_range", defs[0].Function.Name)
	assert.Equal(t, "Ask for a price range", defs[0].Function.Description)

	names := []string{}
	for _, a := range reg.Actions("collect_info") {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"ask_geo_location", "ask_price_range"}, names)
}
