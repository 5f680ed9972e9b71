package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
)

// Fixture describes the templates a loader under test was seeded with.
type Fixture struct {
	RoleID      string
	RoleName    string
	InitState   string
	AgentID     string
	AgentName   string
	AgentGoal   string
	TargetID    string
	TargetName  string
	StateCount  int
	KnownEvent  string // recognized by at least one state
}

// TemplateLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.TemplateLoader.
func TemplateLoaderContractTest(t *testing.T, loader ports.TemplateLoader, f Fixture) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadRole_Success", func(t *testing.T) {
		role, err := loader.LoadRole(ctx, f.RoleID)
		if err != nil {
			t.Fatalf("unexpected error loading role %s: %v", f.RoleID, err)
		}
		if role.Name() != f.RoleName {
			t.Errorf("role name mismatch. got %q, want %q", role.Name(), f.RoleName)
		}
		if role.InitState().Name != f.InitState {
			t.Errorf("init state mismatch. got %q, want %q", role.InitState().Name, f.InitState)
		}
		if len(role.States()) != f.StateCount {
			t.Errorf("expected %d states, got %d", f.StateCount, len(role.States()))
		}
		if f.KnownEvent != "" {
			found := false
			for _, s := range role.States() {
				if _, ok := s.Event(f.KnownEvent); ok {
					found = true
				}
			}
			if !found {
				t.Errorf("event %q not recognized by any state", f.KnownEvent)
			}
		}
	})

	t.Run("LoadAgent_Success", func(t *testing.T) {
		profile, err := loader.LoadAgent(ctx, f.AgentID)
		if err != nil {
			t.Fatalf("unexpected error loading agent %s: %v", f.AgentID, err)
		}
		if profile.Name != f.AgentName || profile.Goal != f.AgentGoal {
			t.Errorf("agent mismatch. got %+v", profile)
		}
	})

	t.Run("LoadTarget_Success", func(t *testing.T) {
		target, err := loader.LoadTarget(ctx, f.TargetID)
		if err != nil {
			t.Fatalf("unexpected error loading target %s: %v", f.TargetID, err)
		}
		if target.Name != f.TargetName {
			t.Errorf("target name mismatch. got %q, want %q", target.Name, f.TargetName)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := loader.LoadRole(ctx, "non-existent-role"); !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound for role, got %v", err)
		}
		if _, err := loader.LoadAgent(ctx, "non-existent-agent"); !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound for agent, got %v", err)
		}
		if _, err := loader.LoadTarget(ctx, "non-existent-target"); !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Errorf("expected ErrTemplateNotFound for target, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		for kind, want := range map[ports.TemplateKind]string{
			ports.KindRole:   f.RoleID,
			ports.KindAgent:  f.AgentID,
			ports.KindTarget: f.TargetID,
		} {
			ids, err := loader.List(ctx, kind)
			if err != nil {
				t.Fatalf("unexpected error listing %s templates: %v", kind, err)
			}
			found := false
			for _, id := range ids {
				if id == want {
					found = true
				}
			}
			if !found {
				t.Errorf("%s template %s missing from list %v", kind, want, ids)
			}
		}
	})
}
