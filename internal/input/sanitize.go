// Package input cleans user text before it reaches an agent.
package input

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxSize bounds a single utterance, in bytes.
	DefaultMaxSize = 4096
	// EnvMaxSize overrides DefaultMaxSize.
	EnvMaxSize = "PERSONA_MAX_INPUT_SIZE"
)

var (
	ErrTooLarge    = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")
	ErrEmpty       = errors.New("input is empty")
)

// Sanitize rejects oversized, empty or malformed input and strips control
// characters other than newline, tab and carriage return. Surrounding
// whitespace is trimmed.
func Sanitize(s string) (string, error) {
	if limit := MaxSize(); len(s) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(s), limit)
	}
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(s, unsafeControl) >= 0 {
		var b strings.Builder
		b.Grow(len(s))
		for _, r := range s {
			if !unsafeControl(r) {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}
	return s, nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// MaxSize returns the configured input limit.
func MaxSize() int {
	if val := os.Getenv(EnvMaxSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxSize
}
