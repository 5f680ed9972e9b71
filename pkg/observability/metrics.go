package observability

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the lifecycle hooks.
type Metrics struct {
	StateVisits  *prometheus.CounterVec
	Events       *prometheus.CounterVec
	Actions      *prometheus.CounterVec
	Turns        *prometheus.CounterVec
	TurnDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StateVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_state_visits_total",
			Help: "Total number of state entries",
		}, []string{"state"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_events_detected_total",
			Help: "Total number of events recognized in user input",
		}, []string{"event", "strategy"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_actions_total",
			Help: "Total number of action executions by outcome",
		}, []string{"scope", "action", "result"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persona_turns_total",
			Help: "Total number of conversation turns",
		}, []string{"success"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "persona_turn_duration_seconds",
			Help:    "Duration of conversation turns, intent detection included",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.StateVisits, m.Events, m.Actions, m.Turns, m.TurnDuration)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateVisits.WithLabelValues(e.State).Inc()
		},
		OnEventDetected: func(_ context.Context, e *domain.DetectionEvent) {
			m.Events.WithLabelValues(e.Event, e.Strategy).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			result := "completed"
			if e.IsError {
				result = "failed"
			}
			m.Actions.WithLabelValues(e.Scope, e.Action, result).Inc()
		},
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(strconv.FormatBool(e.Success)).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
	}
}

// LogHooks returns lifecycle hooks that log every event at Debug, and failed
// actions at Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_enter", "engagement_id", e.EngagementID, "state", e.State, "type", e.StateType)
		},
		OnStateLeave: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_leave", "engagement_id", e.EngagementID, "state", e.State)
		},
		OnEventDetected: func(ctx context.Context, e *domain.DetectionEvent) {
			logger.DebugContext(ctx, "event_detected", "engagement_id", e.EngagementID, "state", e.State, "event", e.Event)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_call", "engagement_id", e.EngagementID, "scope", e.Scope, "action", e.Action)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			if e.IsError {
				logger.WarnContext(ctx, "action_return", "engagement_id", e.EngagementID, "scope", e.Scope, "action", e.Action, "err", e.Output)
				return
			}
			logger.DebugContext(ctx, "action_return", "engagement_id", e.EngagementID, "scope", e.Scope, "action", e.Action)
		},
	}
}
