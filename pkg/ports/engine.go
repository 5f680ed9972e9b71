package ports

import (
	"context"

	"github.com/aretw0/persona/pkg/domain"
)

// CreateRequest names the templates an engagement is built from.
type CreateRequest struct {
	Agent  string `json:"agent"`
	Role   string `json:"role"`
	Target string `json:"target"`
}

// Interactor is the engagement-level API consumed by driving adapters (HTTP, MCP, CLI).
type Interactor interface {
	// CreateEngagement binds a fresh agent to the requested templates and returns its ID.
	CreateEngagement(ctx context.Context, req CreateRequest) (string, error)

	// Interact runs one turn. The error is reserved for unknown engagements;
	// turn failures are reported inside the response.
	Interact(ctx context.Context, engagementID, input string) (domain.AgentResponse, error)

	// Inspect returns a snapshot of the engagement.
	Inspect(ctx context.Context, engagementID string) (domain.Snapshot, error)

	// DeleteEngagement tears the engagement down.
	DeleteEngagement(ctx context.Context, engagementID string) error

	// Engagements lists live engagement IDs.
	Engagements(ctx context.Context) ([]string, error)
}
