package ports

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/schema"
)

// Strategy selects how the intent resolver reports what the user wants.
type Strategy string

const (
	// StrategyEvent asks the resolver for a single event name.
	StrategyEvent Strategy = "event"
	// StrategyToolCall offers the authorized actions as tools and asks the
	// resolver for structured invocations.
	StrategyToolCall Strategy = "tool_call"
)

// ParseStrategy validates a strategy name. An empty name selects StrategyEvent.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyEvent:
		return StrategyEvent, nil
	case StrategyToolCall:
		return StrategyToolCall, nil
	}
	return "", fmt.Errorf("unknown detection strategy %q", s)
}

// EventOption is one entry of the event menu offered to the resolver.
type EventOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DetectionRequest carries everything the resolver may use to recognize an event.
type DetectionRequest struct {
	Strategy Strategy `json:"strategy"`

	AgentName        string `json:"agent_name"`
	AgentDescription string `json:"agent_description"`
	Goal             string `json:"goal"`

	StateName        string `json:"state_name"`
	StateDescription string `json:"state_description"`
	// FormattedState and EventList are the prompt-ready renderings of the current state.
	FormattedState string        `json:"formatted_state"`
	EventList      string        `json:"event_list"`
	Events         []EventOption `json:"events"`

	// Tools is only populated for StrategyToolCall.
	Tools []schema.ToolDefinition `json:"tools,omitempty"`

	Input   string        `json:"input"`
	History []domain.Turn `json:"history,omitempty"`
}

// ToolSeparator joins the event and action names of a tool offered under StrategyToolCall.
const ToolSeparator = "__"

// ToolName returns the tool name offered for an authorized (event, action) pair.
func ToolName(event, action string) string {
	return event + ToolSeparator + action
}

// SplitToolName reverses ToolName.
func SplitToolName(name string) (event, action string, ok bool) {
	event, action, ok = strings.Cut(name, ToolSeparator)
	if !ok || event == "" || action == "" {
		return "", "", false
	}
	return event, action, true
}

// Invocation is an action call proposed by the resolver, bound to an event scope.
type Invocation struct {
	Event     string         `json:"event"`
	Action    string         `json:"action"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Detection is the resolver's answer.
// Event is used by StrategyEvent and Invocations by StrategyToolCall; both empty means no event.
type Detection struct {
	Event       string       `json:"event,omitempty"`
	Invocations []Invocation `json:"invocations,omitempty"`
	// Reply is the model's free text, if any.
	Reply string `json:"reply,omitempty"`
}

// Empty reports whether no event was recognized.
func (d Detection) Empty() bool {
	return d.Event == "" && len(d.Invocations) == 0
}

// IntentResolver recognizes the event a user input refers to.
// It is the engine's only blocking collaborator; implementations should honor ctx.
type IntentResolver interface {
	Resolve(ctx context.Context, req DetectionRequest) (Detection, error)
}

// ResolverFunc adapts a function to IntentResolver.
type ResolverFunc func(ctx context.Context, req DetectionRequest) (Detection, error)

func (f ResolverFunc) Resolve(ctx context.Context, req DetectionRequest) (Detection, error) {
	return f(ctx, req)
}
