package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/ports/tests"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// GuideRole is a small restaurant guide role used across adapter tests.
const GuideRole = `role:
  name: Restaurant Guide
states:
  - name: greeting
    state_type: start
    transitions:
      - to: collect
        priority: 1
  - name: collect
    transitions:
      - to: recommend
        condition: collect_info
        priority: 2
      - to: farewell
        condition: goodbye
        priority: 1
    event_actions:
      collect_info:
        - name: ask_geo_location
      goodbye: []
  - name: recommend
    transitions:
      - to: farewell
        condition: goodbye
        priority: 1
    event_actions:
      goodbye: []
  - name: farewell
    state_type: end
properties:
  greeting:
    description: Welcome the user
  collect:
    description: Learn where the user is and what they like
  collect_info:
    description: The user shared their location or preferences
  goodbye:
    description: The user wants to end the conversation
`

// GuideAgent is the agent template paired with GuideRole.
const GuideAgent = `agent:
  name: Mia
  description: A friendly restaurant concierge
  goal: Recommend a place to eat
`

// GuideTarget is the target template paired with GuideRole.
const GuideTarget = `target:
  name: Visitor
  description: Someone looking for dinner
`

// GuideFixture describes the templates written by WriteTemplates.
func GuideFixture() tests.Fixture {
	return tests.Fixture{
		RoleID:     "guide",
		RoleName:   "Restaurant Guide",
		InitState:  "greeting",
		AgentID:    "mia",
		AgentName:  "Mia",
		AgentGoal:  "Recommend a place to eat",
		TargetID:   "visitor",
		TargetName: "Visitor",
		StateCount: 4,
		KnownEvent: "collect_info",
	}
}

// GuideRequest asks for an engagement over the guide templates.
func GuideRequest() ports.CreateRequest {
	f := GuideFixture()
	return ports.CreateRequest{Agent: f.AgentID, Role: f.RoleID, Target: f.TargetID}
}

// WriteTemplates lays out the guide templates under dir in the role_template,
// agent_template and target_template convention.
func WriteTemplates(t *testing.T, dir string) {
	t.Helper()
	f := GuideFixture()
	files := map[ports.TemplateKind]struct{ id, body string }{
		ports.KindRole:   {f.RoleID, GuideRole},
		ports.KindAgent:  {f.AgentID, GuideAgent},
		ports.KindTarget: {f.TargetID, GuideTarget},
	}
	for kind, file := range files {
		sub := filepath.Join(dir, kind.Dir())
		require.NoError(t, os.MkdirAll(sub, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(sub, file.id+".yaml"), []byte(file.body), 0644))
	}
}
