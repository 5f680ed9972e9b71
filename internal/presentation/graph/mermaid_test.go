package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/persona/internal/presentation/graph"
	"github.com/aretw0/persona/internal/testutils"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid(t *testing.T) {
	role, err := template.ParseRole([]byte(testutils.GuideRole))
	require.NoError(t, err)

	got := graph.GenerateMermaid(role, nil)

	for _, want := range []string{
		"graph TD\n",
		`greeting(("greeting"))`,
		`collect["collect"]`,
		`farewell(["farewell"])`,
		`greeting -. "auto p1" .-> collect`,
		`collect -- "collect_info p2" --> recommend`,
		`recommend -- "goodbye p1" --> farewell`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	role, err := template.ParseRole([]byte(testutils.GuideRole))
	require.NoError(t, err)

	overlay := graph.OverlayFromSnapshot(domain.Snapshot{
		CurrentState: "recommend",
		Statuses: map[string]domain.StateStatus{
			"greeting":  domain.StatusInProgress,
			"collect":   domain.StatusCompleted,
			"recommend": domain.StatusInProgress,
		},
	})
	got := graph.GenerateMermaid(role, overlay)

	assert.Contains(t, got, "class collect completed;")
	assert.Contains(t, got, "class recommend current;")
	assert.NotContains(t, got, "class greeting")
}

func TestGenerateMermaid_Sanitization(t *testing.T) {
	role, err := domain.NewRole("r", []domain.State{
		{Name: "say-hi", Type: domain.StateStart, Transitions: []domain.Transition{{To: "the.end", Condition: `say "bye"`}}},
		{Name: "the.end", Type: domain.StateEnd},
	})
	require.NoError(t, err)

	got := graph.GenerateMermaid(role, nil)
	assert.True(t, strings.Contains(got, `say_hi(("say-hi"))`), got)
	assert.Contains(t, got, `say_hi -- "say 'bye'" --> the_end`)
}
