package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
)

// Mask replaces every PII match.
const Mask = "***"

// DefaultPIIPatterns match e-mail addresses, payment card numbers and phone numbers.
var DefaultPIIPatterns = []string{
	`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`,
	`\b(?:\d[ -]?){12,18}\d\b`,
	`\+?\d{1,3}[ .-]?\(?\d{2,4}\)?[ .-]?\d{3,4}[ .-]?\d{3,4}\b`,
}

type piiMiddleware struct {
	next     ports.TranscriptSink
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the parts of turn contents
// matching the patterns before they reach the sink. Loaded turns stay masked.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.TranscriptSink) ports.TranscriptSink {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Append(ctx context.Context, engagementID string, turns ...domain.Turn) error {
	// Copy so the caller's turns, which may be the agent history, are untouched.
	masked := make([]domain.Turn, len(turns))
	for i, t := range turns {
		masked[i] = domain.Turn{Role: t.Role, Content: m.mask(t.Content)}
	}
	return m.next.Append(ctx, engagementID, masked...)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) Load(ctx context.Context, engagementID string) ([]domain.Turn, error) {
	return m.next.Load(ctx, engagementID)
}

func (m *piiMiddleware) Delete(ctx context.Context, engagementID string) error {
	return m.next.Delete(ctx, engagementID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
