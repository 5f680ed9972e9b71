package domain

import (
	"context"
	"sync"
)

// AgentProfile describes who the agent is and what it is trying to achieve.
type AgentProfile struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	Goal        string `json:"goal" yaml:"goal" mapstructure:"goal"`
}

// Target is the party the agent is engaging with.
// Storage is an append-only log of data gathered about the target.
type Target struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	mu      sync.Mutex
	storage []any
}

// NewTarget creates a target with empty storage.
func NewTarget(name, description string) *Target {
	return &Target{Name: name, Description: description}
}

// AddStorage appends data gathered about the target.
func (t *Target) AddStorage(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.storage = append(t.storage, v)
}

// LastStorage returns the most recent stored item, or nil.
func (t *Target) LastStorage() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.storage) == 0 {
		return nil
	}
	return t.storage[len(t.storage)-1]
}

// Storage returns a copy of all stored items.
func (t *Target) Storage() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]any(nil), t.storage...)
}

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    Speaker `json:"role"`
	Content string  `json:"content"`
}

type targetKey struct{}

// ContextWithTarget attaches the engaged target to ctx for action handlers.
func ContextWithTarget(ctx context.Context, t *Target) context.Context {
	return context.WithValue(ctx, targetKey{}, t)
}

// TargetFromContext returns the target attached by ContextWithTarget, if any.
func TargetFromContext(ctx context.Context) (*Target, bool) {
	t, ok := ctx.Value(targetKey{}).(*Target)
	return t, ok && t != nil
}
