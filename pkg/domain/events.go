package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventStateEnter    EventType = "state_enter"
	EventStateLeave    EventType = "state_leave"
	EventDetected      EventType = "event_detected"
	EventActionCall    EventType = "action_call"
	EventActionReturn  EventType = "action_return"
	EventTurnCompleted EventType = "turn_completed"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         EventType `json:"type"`
	EngagementID string    `json:"engagement_id,omitempty"`
}

// StateEvent represents entry into or exit from a state.
type StateEvent struct {
	EventBase
	State     string    `json:"state"`
	StateType StateType `json:"state_type"`
}

// DetectionEvent reports the event recognized for a turn.
type DetectionEvent struct {
	EventBase
	State    string `json:"state"`
	Event    string `json:"event"`
	Strategy string `json:"strategy"`
}

// ActionEvent represents an action invocation.
type ActionEvent struct {
	EventBase
	Scope   string `json:"scope"`
	Action  string `json:"action"`
	Input   any    `json:"input,omitempty"`
	Output  any    `json:"output,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// TurnEvent summarizes a finished turn.
type TurnEvent struct {
	EventBase
	State    string        `json:"state"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for agent observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnStateEnter    func(context.Context, *StateEvent)
	OnStateLeave    func(context.Context, *StateEvent)
	OnEventDetected func(context.Context, *DetectionEvent)
	OnActionCall    func(context.Context, *ActionEvent)
	OnActionReturn  func(context.Context, *ActionEvent)
	OnTurn          func(context.Context, *TurnEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateEnter:    chain(h.OnStateEnter, other.OnStateEnter),
		OnStateLeave:    chain(h.OnStateLeave, other.OnStateLeave),
		OnEventDetected: chain(h.OnEventDetected, other.OnEventDetected),
		OnActionCall:    chain(h.OnActionCall, other.OnActionCall),
		OnActionReturn:  chain(h.OnActionReturn, other.OnActionReturn),
		OnTurn:          chain(h.OnTurn, other.OnTurn),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
