// Package detect holds the prompt building and answer parsing shared by the
// model-backed intent resolvers.
package detect

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/prompt"
)

// NoneAnswer is what the intent prompt asks the model to answer when no event applies.
const NoneAnswer = "none"

// EventPrompt returns the system and user messages of an event-strategy request.
func EventPrompt(p *prompt.Store, req ports.DetectionRequest) (system, user string, err error) {
	user, err = p.Build(prompt.IntentDetection, req, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build intent prompt: %w", err)
	}
	return p.RolePrompt(req.AgentName), user, nil
}

// ToolPrompt returns the system message of a tool-call request.
// The conversation itself travels as chat messages.
func ToolPrompt(p *prompt.Store, req ports.DetectionRequest) (string, error) {
	body, err := p.Build(prompt.ToolCallDetection, req, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build tool prompt: %w", err)
	}
	return p.RolePrompt(req.AgentName) + "\n\n" + body, nil
}

// MatchEvent finds the offered event a model answer names.
// Quotes, list markers and a trailing period are tolerated.
func MatchEvent(answer string, events []ports.EventOption) (string, bool) {
	a := strings.ToLower(strings.TrimSpace(answer))
	a = strings.Trim(a, "`'\".* ")
	if i := strings.Index(a, "event:"); i >= 0 {
		a = strings.TrimSpace(a[i+len("event:"):])
		if j := strings.IndexAny(a, ", \n"); j >= 0 {
			a = a[:j]
		}
	}
	for _, ev := range events {
		if strings.ToLower(ev.Name) == a {
			return ev.Name, true
		}
	}
	return "", false
}

// IsNone reports whether the model explicitly answered that no event applies.
func IsNone(answer string) bool {
	return strings.EqualFold(strings.Trim(strings.TrimSpace(answer), "`'\". "), NoneAnswer)
}

// Arguments decodes the JSON arguments of a tool call. Empty input yields nil.
func Arguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return args, nil
}
