package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/agent"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed engagement lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Store is the keyed registry of live agents, one per engagement.
//
// Turns of the same engagement are serialized with a per-engagement mutex
// (and, when configured, a distributed lock); turns of different engagements
// run concurrently. Locks are reference counted so unused entries are
// garbage collected.
type Store struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent

	lockMu sync.Mutex
	locks  map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	sink    ports.TranscriptSink
	logger  *slog.Logger
	newID   func() string
}

// Option configures the Store.
type Option func(*Store)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Store) {
		s.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.lockTTL = ttl
	}
}

// WithTranscript mirrors every history append to sink.
// Sink failures are logged and never fail the caller.
func WithTranscript(sink ports.TranscriptSink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDGenerator replaces the random engagement id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore creates an empty engagement store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		agents:  make(map[string]*agent.Agent),
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create binds a fresh agent to role and returns the new engagement id.
// opts are applied after the engagement id, so they cannot override it.
func (s *Store) Create(ctx context.Context, profile domain.AgentProfile, role *domain.Role, opts ...agent.Option) (string, error) {
	id := s.newID()
	for attempt := 0; s.exists(id); attempt++ {
		if attempt > 3 {
			return "", fmt.Errorf("failed to allocate a unique engagement id")
		}
		id = s.newID()
	}

	all := append(append([]agent.Option(nil), opts...), agent.WithEngagementID(id))
	a, err := agent.New(profile, role, all...)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.agents[id] = a
	s.mu.Unlock()

	s.logger.Debug("engagement created", "engagement_id", id, "role", role.Name(), "state", a.CurrentState().Name)
	if history := a.History(); len(history) > 0 {
		s.mirror(ctx, id, history)
	}
	return id, nil
}

func (s *Store) exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[id]
	return ok
}

// Get returns the live agent of an engagement.
func (s *Store) Get(engagementID string) (*agent.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[engagementID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEngagementNotFound, engagementID)
	}
	return a, nil
}

// Delete tears an engagement down and drops its transcript.
func (s *Store) Delete(ctx context.Context, engagementID string) error {
	return s.WithLock(ctx, engagementID, func(ctx context.Context) error {
		s.mu.Lock()
		_, ok := s.agents[engagementID]
		delete(s.agents, engagementID)
		s.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrEngagementNotFound, engagementID)
		}

		if s.sink != nil {
			if err := s.sink.Delete(ctx, engagementID); err != nil {
				s.logger.Warn("failed to delete transcript", "engagement_id", engagementID, "err", err)
			}
		}
		s.logger.Debug("engagement deleted", "engagement_id", engagementID)
		return nil
	})
}

// AppendHistory adds turns to an engagement's conversation history.
func (s *Store) AppendHistory(ctx context.Context, engagementID string, turns ...domain.Turn) error {
	return s.WithLock(ctx, engagementID, func(ctx context.Context) error {
		a, err := s.Get(engagementID)
		if err != nil {
			return err
		}
		a.AppendHistory(turns...)
		s.mirror(ctx, engagementID, turns)
		return nil
	})
}

// Interact runs one turn of an engagement. The error is reserved for unknown
// engagements and lock failures; turn failures are reported in the response.
func (s *Store) Interact(ctx context.Context, engagementID, input string) (domain.AgentResponse, error) {
	var resp domain.AgentResponse
	err := s.WithLock(ctx, engagementID, func(ctx context.Context) error {
		a, err := s.Get(engagementID)
		if err != nil {
			return err
		}
		before := len(a.History())
		resp = a.Interact(ctx, input)
		if after := a.History(); len(after) > before {
			s.mirror(ctx, engagementID, after[before:])
		}
		return nil
	})
	return resp, err
}

// InteractDiff is Interact that also reports the snapshot changes of the turn.
func (s *Store) InteractDiff(ctx context.Context, engagementID, input string) (domain.AgentResponse, *domain.SnapshotDiff, error) {
	var (
		resp domain.AgentResponse
		diff *domain.SnapshotDiff
	)
	err := s.WithLock(ctx, engagementID, func(ctx context.Context) error {
		a, err := s.Get(engagementID)
		if err != nil {
			return err
		}
		before := a.Snapshot()
		resp = a.Interact(ctx, input)
		after := a.Snapshot()
		if len(after.History) > len(before.History) {
			s.mirror(ctx, engagementID, after.History[len(before.History):])
		}
		diff = domain.Diff(&before, &after)
		return nil
	})
	return resp, diff, err
}

// List returns the live engagement ids, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live engagements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

func (s *Store) mirror(ctx context.Context, engagementID string, turns []domain.Turn) {
	if s.sink == nil || len(turns) == 0 {
		return
	}
	if err := s.sink.Append(ctx, engagementID, turns...); err != nil {
		s.logger.Warn("failed to mirror transcript", "engagement_id", engagementID, "err", err)
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (s *Store) acquire(id string) *lockEntry {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	entry, exists := s.locks[id]
	if !exists {
		entry = &lockEntry{}
		s.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (s *Store) release(id string) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	entry, exists := s.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.locks, id)
	}
}

// WithLock executes fn while holding the lock for the engagement.
func (s *Store) WithLock(ctx context.Context, engagementID string, fn func(context.Context) error) error {
	entry := s.acquire(engagementID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		s.release(engagementID)
	}()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, engagementID, s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				s.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"engagement_id", engagementID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
