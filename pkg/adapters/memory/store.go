package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/persona/pkg/domain"
)

// Store implements ports.TranscriptSink in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]domain.Turn
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Turn),
	}
}

// Append adds turns to the engagement transcript.
func (s *Store) Append(ctx context.Context, engagementID string, turns ...domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[engagementID] = append(s.data[engagementID], turns...)
	return nil
}

// Load returns a copy of the transcript so callers cannot mutate the store.
func (s *Store) Load(ctx context.Context, engagementID string) ([]domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.data[engagementID]
	if !ok {
		return nil, domain.ErrEngagementNotFound
	}
	return append([]domain.Turn(nil), turns...), nil
}

// Delete removes the transcript.
func (s *Store) Delete(ctx context.Context, engagementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, engagementID)
	return nil
}

// List returns the known engagement ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
