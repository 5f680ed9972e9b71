package ports

import (
	"context"

	"github.com/aretw0/persona/pkg/domain"
)

// TranscriptSink mirrors conversation history outside the process.
// Agents keep their own in-memory history; the sink is a write-behind copy
// for auditing and inspection, never a source of agent state.
type TranscriptSink interface {
	// Append adds turns to the transcript of an engagement.
	Append(ctx context.Context, engagementID string, turns ...domain.Turn) error

	// Load returns the transcript of an engagement.
	// Returns domain.ErrEngagementNotFound if nothing was recorded.
	Load(ctx context.Context, engagementID string) ([]domain.Turn, error)

	// Delete removes the transcript of an engagement.
	Delete(ctx context.Context, engagementID string) error

	// List returns the IDs of engagements with a transcript.
	List(ctx context.Context) ([]string, error)
}
