package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/persona/pkg/domain"
)

// Store implements ports.TranscriptSink using the local filesystem.
// Each engagement transcript is a JSON array of turns in its own file.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".persona/transcripts".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".persona", "transcripts")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.BasePath, id+".json")
}

// Append adds turns to the engagement transcript, creating it if needed.
func (s *Store) Append(ctx context.Context, engagementID string, turns ...domain.Turn) error {
	if engagementID == "" {
		return errors.New("engagementID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(engagementID)
	if err != nil && !errors.Is(err, domain.ErrEngagementNotFound) {
		return err
	}
	return s.write(engagementID, append(existing, turns...))
}

// write persists the transcript atomically: temp file, fsync, rename.
func (s *Store) write(id string, turns []domain.Turn) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure transcript directory: %w", err)
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+id+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(id)
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing transcript for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file to transcript: %w", err)
	}
	return nil
}

func (s *Store) read(id string) ([]domain.Turn, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrEngagementNotFound
		}
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}
	var turns []domain.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return turns, nil
}

// Load retrieves the transcript of an engagement.
func (s *Store) Load(ctx context.Context, engagementID string) ([]domain.Turn, error) {
	if engagementID == "" {
		return nil, errors.New("engagementID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(engagementID)
}

// Delete removes the transcript file.
func (s *Store) Delete(ctx context.Context, engagementID string) error {
	if engagementID == "" {
		return errors.New("engagementID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(engagementID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete transcript file: %w", err)
	}
	return nil
}

// List returns the ids of all stored transcripts.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || len(name) > 4 && name[:4] == "tmp-" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids, nil
}
