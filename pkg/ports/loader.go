package ports

import (
	"context"

	"github.com/aretw0/persona/pkg/domain"
)

// TemplateLoader defines how the engine retrieves role, agent and target definitions.
// This allows the storage layer (files, Loam, memory) to be decoupled.
type TemplateLoader interface {
	// LoadRole builds the role stored under id.
	// Returns an error wrapping domain.ErrTemplateNotFound if it does not exist.
	LoadRole(ctx context.Context, id string) (*domain.Role, error)

	// LoadAgent returns the agent profile stored under id.
	LoadAgent(ctx context.Context, id string) (domain.AgentProfile, error)

	// LoadTarget returns a fresh target built from the template stored under id.
	LoadTarget(ctx context.Context, id string) (*domain.Target, error)

	// List returns the template IDs available for a kind.
	List(ctx context.Context, kind TemplateKind) ([]string, error)
}

// TemplateKind distinguishes the three template families.
type TemplateKind string

const (
	KindRole   TemplateKind = "role"
	KindAgent  TemplateKind = "agent"
	KindTarget TemplateKind = "target"
)

// Dir returns the conventional directory name holding templates of this kind.
func (k TemplateKind) Dir() string {
	return string(k) + "_template"
}
