package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/persona/internal/testutils"
	"github.com/aretw0/persona/pkg/adapters/keyword"
	"github.com/aretw0/persona/pkg/agent"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ext"
	"github.com/aretw0/persona/pkg/observability"
	"github.com/aretw0/persona/pkg/registry"
	"github.com/aretw0/persona/pkg/template"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgent(t *testing.T, hooks domain.LifecycleHooks) *agent.Agent {
	t.Helper()
	role, err := template.ParseRole([]byte(testutils.GuideRole))
	require.NoError(t, err)
	reg, err := registry.New(ext.CollectInfo(nil))
	require.NoError(t, err)

	a, err := agent.New(domain.AgentProfile{Name: "Mia"}, role,
		agent.WithEngagementID("eng-1"),
		agent.WithRegistry(reg),
		agent.WithResolver(keyword.New()),
		agent.WithLifecycleHooks(hooks),
	)
	require.NoError(t, err)
	return a
}

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	a := newAgent(t, m.Hooks())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateVisits.WithLabelValues("greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateVisits.WithLabelValues("collect")))

	resp := a.Interact(context.Background(), "please collect my info")
	require.True(t, resp.Success)
	assert.Equal(t, "recommend", resp.State)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("collect_info", "event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Actions.WithLabelValues("collect_info", "ask_geo_location", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateVisits.WithLabelValues("recommend")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("true")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TurnDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	a := newAgent(t, observability.LogHooks(logger))

	a.Interact(context.Background(), "goodbye")
	out := buf.String()
	assert.Contains(t, out, "msg=state_enter")
	assert.Contains(t, out, "msg=event_detected")
	assert.Contains(t, out, "event=goodbye")
	assert.Contains(t, out, "engagement_id=eng-1")
}
