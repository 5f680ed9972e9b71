// Package keyword provides a deterministic IntentResolver that matches user
// input against event names and configured keywords. It never leaves the
// process, which makes it the default for local runs and tests.
package keyword

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/ports"
)

// DefaultFallbackReply is returned when no event matches.
const DefaultFallbackReply = "Sorry, I did not get that. Could you rephrase?"

// Resolver scores every offered event by the number of its keywords found in
// the input. The best score wins; ties go to the event offered first.
type Resolver struct {
	keywords map[string][]string
	fallback string
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithKeywords adds trigger words for an event, on top of the words of its name.
func WithKeywords(event string, words ...string) Option {
	return func(r *Resolver) {
		for _, w := range words {
			r.keywords[event] = append(r.keywords[event], strings.ToLower(w))
		}
	}
}

// WithFallbackReply sets the reply used when nothing matches.
func WithFallbackReply(reply string) Option {
	return func(r *Resolver) { r.fallback = reply }
}

// WithLogger sets the resolver logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a keyword resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		keywords: make(map[string][]string),
		fallback: DefaultFallbackReply,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements ports.IntentResolver.
func (r *Resolver) Resolve(ctx context.Context, req ports.DetectionRequest) (ports.Detection, error) {
	if err := ctx.Err(); err != nil {
		return ports.Detection{}, err
	}

	words := tokenize(req.Input)
	best, bestScore := "", 0
	for _, ev := range req.Events {
		score := 0
		for _, kw := range r.triggers(ev.Name) {
			if words[kw] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = ev.Name, score
		}
	}

	if best == "" {
		r.logger.Debug("no keyword matched", "state", req.StateName)
		return ports.Detection{Reply: r.fallback}, nil
	}
	r.logger.Debug("keyword matched", "state", req.StateName, "event", best, "score", bestScore)

	if req.Strategy != ports.StrategyToolCall {
		return ports.Detection{Event: best}, nil
	}
	var det ports.Detection
	for _, tool := range req.Tools {
		if event, _, ok := ports.SplitToolName(tool.Function.Name); ok && event == best {
			det.Invocations = append(det.Invocations, ports.Invocation{Action: tool.Function.Name})
		}
	}
	if len(det.Invocations) == 0 {
		// The event has no runnable tools; report it so the transition still happens.
		det.Event = best
	}
	return det, nil
}

func (r *Resolver) triggers(event string) []string {
	out := append([]string(nil), r.keywords[event]...)
	for _, part := range strings.Split(strings.ToLower(event), "_") {
		if len(part) > 2 {
			out = append(out, part)
		}
	}
	return out
}

func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}
	return words
}
