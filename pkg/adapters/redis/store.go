// Package redis provides Redis-backed adapters: a TranscriptSink and a
// DistributedLocker for engagements served by several hosts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/persona/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "persona:transcript:"

// farFuture is the index score of transcripts without TTL.
const farFuture = 4102444800 // 2100-01-01

// Store implements ports.TranscriptSink using one Redis list per engagement
// and a sorted set indexing engagements by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires transcripts ttl after their last append.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(engagementID string) string {
	return s.prefix + engagementID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Append pushes turns to the engagement's list and refreshes its expiry.
func (s *Store) Append(ctx context.Context, engagementID string, turns ...domain.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	score := float64(farFuture)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(engagementID), values...)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(engagementID), s.ttl)
		score = float64(time.Now().Add(s.ttl).Unix())
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: engagementID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

// Load returns every turn of an engagement in append order.
func (s *Store) Load(ctx context.Context, engagementID string) ([]domain.Turn, error) {
	values, err := s.client.LRange(ctx, s.key(engagementID), 0, -1).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if len(values) == 0 {
		return nil, domain.ErrEngagementNotFound
	}

	turns := make([]domain.Turn, 0, len(values))
	for _, v := range values {
		var t domain.Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Delete removes an engagement's transcript.
func (s *Store) Delete(ctx context.Context, engagementID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(engagementID))
	pipe.ZRem(ctx, s.indexKey(), engagementID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns engagements with a live transcript, pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired transcripts: %w", err)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
