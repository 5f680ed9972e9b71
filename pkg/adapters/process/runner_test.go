package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/persona/pkg/adapters/process"
	"github.com/aretw0/persona/pkg/registry"
	"github.com/aretw0/persona/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(t *testing.T, name, script string) process.ActionConfig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use a POSIX shell")
	}
	return process.ActionConfig{Scope: "pay", Name: name, Command: "sh", Args: []string{"-c", script}}
}

func TestRunner_Run(t *testing.T) {
	r := process.NewRunner()
	ctx := context.Background()

	t.Run("decodes JSON output", func(t *testing.T) {
		out, err := r.Run(ctx, shell(t, "offers", `echo '{"discount": 10}'`), nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"discount": float64(10)}, out)
	})

	t.Run("passes args as environment", func(t *testing.T) {
		out, err := r.Run(ctx, shell(t, "echo", `echo "$PERSONA_ARG_CITY/$PERSONA_ARG_TAGS"`), map[string]any{
			"city": "Lisbon",
			"tags": []string{"fish"},
		})
		require.NoError(t, err)
		assert.Equal(t, `Lisbon/["fish"]`, out)
	})

	t.Run("passes configured environment", func(t *testing.T) {
		a := shell(t, "env", `echo "$CURRENCY"`)
		a.Environment = map[string]string{"CURRENCY": "EUR"}
		out, err := r.Run(ctx, a, nil)
		require.NoError(t, err)
		assert.Equal(t, "EUR", out)
	})

	t.Run("reports stderr on failure", func(t *testing.T) {
		_, err := r.Run(ctx, shell(t, "fail", `echo boom >&2; exit 3`), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestRunner_Cancellation(t *testing.T) {
	r := process.NewRunner(process.WithGracePeriod(500 * time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err := r.Run(ctx, shell(t, "slow", "sleep 10"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestRunner_Extensions(t *testing.T) {
	r := process.NewRunner()
	offers := shell(t, "lookup_offers", `echo "offers for $PERSONA_ARG_CARD"`)
	offers.Params = []schema.Param{{Name: "card", Kind: schema.KindString}}
	other := shell(t, "ping", "echo pong")
	other.Scope = "collect_info"

	reg, err := registry.New(r.Extensions([]process.ActionConfig{offers, other})...)
	require.NoError(t, err)
	assert.Equal(t, []string{"collect_info", "pay"}, reg.Scopes())

	out, err := reg.Execute(context.Background(), "pay", "lookup_offers", map[string]any{"card": "visa"})
	require.NoError(t, err)
	assert.Equal(t, "offers for visa", out)

	_, err = reg.Execute(context.Background(), "pay", "lookup_offers", map[string]any{})
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestLoadActions(t *testing.T) {
	dir := t.TempDir()

	actions, err := process.LoadActions(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, actions)

	path := filepath.Join(dir, "actions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`actions:
  - scope: pay
    name: lookup_offers
    description: Find card offers
    command: ./offers.sh
    params:
      - name: card
        type: string
`), 0644))
	actions, err = process.LoadActions(path)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "lookup_offers", actions[0].Name)
	assert.Equal(t, schema.KindString, actions[0].Params[0].Kind)

	jsonPath := filepath.Join(dir, "actions.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"actions":[{"scope":"pay","name":"x"}]}`), 0644))
	_, err = process.LoadActions(jsonPath)
	assert.ErrorContains(t, err, "required")
}
