package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTranscriptSinkContract runs a suite of tests to verify that a TranscriptSink implementation
// adheres to the defined interface contract.
func RunTranscriptSinkContract(t *testing.T, sink TranscriptSink) {
	ctx := context.Background()
	engagementID := "contract-test-engagement-" + time.Now().Format("20060102150405")

	t.Run("Append and Load", func(t *testing.T) {
		err := sink.Append(ctx, engagementID,
			domain.Turn{Role: domain.SpeakerUser, Content: "hello"},
			domain.Turn{Role: domain.SpeakerAssistant, Content: "hi there"},
		)
		require.NoError(t, err, "Append should not return error")

		err = sink.Append(ctx, engagementID, domain.Turn{Role: domain.SpeakerUser, Content: "bye"})
		require.NoError(t, err)

		turns, err := sink.Load(ctx, engagementID)
		require.NoError(t, err, "Load should not return error")
		require.Len(t, turns, 3)
		assert.Equal(t, "hello", turns[0].Content)
		assert.Equal(t, domain.SpeakerAssistant, turns[1].Role)
		assert.Equal(t, "bye", turns[2].Content, "turns keep append order")
	})

	t.Run("Append nothing", func(t *testing.T) {
		assert.NoError(t, sink.Append(ctx, engagementID))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := sink.Load(ctx, "non-existent-"+engagementID)
		assert.ErrorIs(t, err, domain.ErrEngagementNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := engagementID + "-1"
		id2 := engagementID + "-2"
		_ = sink.Append(ctx, id1, domain.Turn{Role: domain.SpeakerUser, Content: "a"})
		_ = sink.Append(ctx, id2, domain.Turn{Role: domain.SpeakerUser, Content: "b"})
		defer func() {
			_ = sink.Delete(ctx, id1)
			_ = sink.Delete(ctx, id2)
		}()

		ids, err := sink.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		err := sink.Delete(ctx, engagementID)
		require.NoError(t, err, "Delete should not return error")

		_, err = sink.Load(ctx, engagementID)
		assert.ErrorIs(t, err, domain.ErrEngagementNotFound, "Load after Delete should return ErrEngagementNotFound")
	})
}
