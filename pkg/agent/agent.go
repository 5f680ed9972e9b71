package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/registry"
)

type actionKey struct {
	event  string
	action string
}

// Agent is a live instance bound to a Role.
//
// The Role is shared and never mutated: the current state, the per-state status
// table, the per-action status cache and the conversation history all belong to
// the Agent. Methods are safe to call concurrently, but turns of one Agent are
// serialized.
type Agent struct {
	id       string
	profile  domain.AgentProfile
	role     *domain.Role
	target   *domain.Target
	registry *registry.Registry
	resolver ports.IntentResolver
	strategy ports.Strategy
	hooks    domain.LifecycleHooks
	logger   *slog.Logger

	turnMu sync.Mutex

	mu       sync.Mutex
	current  string
	statuses map[string]domain.StateStatus
	actions  map[actionKey]domain.TaskStatus
	history  []domain.Turn
}

// Option configures an Agent.
type Option func(*Agent)

// WithEngagementID sets the identity reported in logs, hooks and snapshots.
func WithEngagementID(id string) Option {
	return func(a *Agent) { a.id = id }
}

// WithTarget binds the party the agent is talking to.
func WithTarget(t *domain.Target) Option {
	return func(a *Agent) { a.target = t }
}

// WithRegistry sets the action registry used to authorize and run actions.
func WithRegistry(r *registry.Registry) Option {
	return func(a *Agent) { a.registry = r }
}

// WithResolver sets the intent resolver consulted on every turn.
func WithResolver(r ports.IntentResolver) Option {
	return func(a *Agent) { a.resolver = r }
}

// WithStrategy selects the detection strategy. Defaults to ports.StrategyEvent.
func WithStrategy(s ports.Strategy) Option {
	return func(a *Agent) { a.strategy = s }
}

// WithLifecycleHooks registers observability callbacks.
// Hooks run while the agent holds its lock and must not call back into it.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(a *Agent) { a.hooks = h }
}

// WithLogger sets the agent logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithHistory seeds the conversation history, e.g. from a transcript.
func WithHistory(turns []domain.Turn) Option {
	return func(a *Agent) { a.history = append([]domain.Turn(nil), turns...) }
}

// New binds an agent to a role.
//
// The agent starts in the role's start state. If that state has unconditioned
// transitions with a positive priority, the agent moves once to the target of
// the one with the LOWEST priority (first listed on ties). Event-triggered
// transitions use the opposite order, see Interact.
func New(profile domain.AgentProfile, role *domain.Role, opts ...Option) (*Agent, error) {
	if role == nil {
		return nil, errors.New("agent requires a role")
	}
	a := &Agent{
		profile:  profile,
		role:     role,
		strategy: ports.StrategyEvent,
		logger:   logging.NewNop(),
		statuses: make(map[string]domain.StateStatus),
		actions:  make(map[actionKey]domain.TaskStatus),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry, _ = registry.New()
	}
	if a.target == nil {
		a.target = domain.NewTarget("", "")
	}

	start := role.InitState()
	if !start.IsStart() {
		return nil, &domain.InvalidRoleError{
			Role:   role.Name(),
			State:  start.Name,
			Reason: "initial state is not a start state",
		}
	}
	for _, name := range role.StateNames() {
		a.statuses[name] = domain.StatusNotStarted
	}

	ctx := context.Background()
	a.enter(ctx, start)
	if next, ok := autoAdvance(start); ok {
		a.move(ctx, start, next)
		a.logger.Debug("agent auto-advanced",
			"engagement_id", a.id,
			"from", start.Name,
			"to", next,
		)
	}
	return a, nil
}

// autoAdvance picks the lowest-priority unconditioned transition with priority > 0.
func autoAdvance(s domain.State) (string, bool) {
	var best *domain.Transition
	for i := range s.Transitions {
		t := &s.Transitions[i]
		if t.Conditional() || t.Priority <= 0 {
			continue
		}
		if best == nil || t.Priority < best.Priority {
			best = t
		}
	}
	if best == nil {
		return "", false
	}
	return best.To, true
}

// enter marks a state as current. Completed states keep their status.
// Hooks fire only after the move is committed.
func (a *Agent) enter(ctx context.Context, s domain.State) {
	a.commit(s)
	a.emitState(ctx, domain.EventStateEnter, s)
}

func (a *Agent) commit(s domain.State) {
	a.current = s.Name
	if a.statuses[s.Name] != domain.StatusCompleted {
		a.statuses[s.Name] = domain.StatusInProgress
	}
}

// move leaves from and enters the named state. Unknown names are ignored.
func (a *Agent) move(ctx context.Context, from domain.State, to string) bool {
	next, ok := a.role.State(to)
	if !ok {
		return false
	}
	a.commit(next)
	a.emitState(ctx, domain.EventStateLeave, from)
	a.emitState(ctx, domain.EventStateEnter, next)
	return true
}

func (a *Agent) emitState(ctx context.Context, t domain.EventType, s domain.State) {
	hook := a.hooks.OnStateEnter
	if t == domain.EventStateLeave {
		hook = a.hooks.OnStateLeave
	}
	if hook == nil {
		return
	}
	a.guard(t, func() {
		hook(ctx, &domain.StateEvent{
			EventBase: a.base(t),
			State:     s.Name,
			StateType: s.Type,
		})
	})
}

// guard runs a lifecycle hook. A panicking hook is logged and ignored so
// that observers cannot break a turn or leave it half applied.
func (a *Agent) guard(t domain.EventType, hook func()) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Warn("lifecycle hook panicked", "engagement_id", a.id, "hook", t, "panic", p)
		}
	}()
	hook()
}

func (a *Agent) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, EngagementID: a.id}
}

// ID returns the engagement id the agent was created for.
func (a *Agent) ID() string { return a.id }

// Profile returns the agent profile.
func (a *Agent) Profile() domain.AgentProfile { return a.profile }

// Role returns the bound role.
func (a *Agent) Role() *domain.Role { return a.role }

// Target returns the party the agent is engaging with.
func (a *Agent) Target() *domain.Target { return a.target }

// Strategy returns the detection strategy in use.
func (a *Agent) Strategy() ports.Strategy { return a.strategy }

// CurrentState returns the state the agent is in.
func (a *Agent) CurrentState() domain.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, _ := a.role.State(a.current)
	return s
}

// InEndState reports whether the agent reached an end state.
func (a *Agent) InEndState() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.role.IsEnd(a.current)
}

// Status returns the progress of a state for this agent.
func (a *Agent) Status(state string) domain.StateStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.statuses[state]; ok {
		return s
	}
	return domain.StatusNotStarted
}

// ActionStatus returns the outcome of the last run of an action for an event,
// or domain.TaskUnknown if it never ran.
func (a *Agent) ActionStatus(event, action string) domain.TaskStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.actions[actionKey{event, action}]; ok {
		return s
	}
	return domain.TaskUnknown
}

// TransitionTo moves the agent to one of the current state's next states.
// It returns false if name is not reachable in one hop.
func (a *Agent) TransitionTo(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, next := range a.role.NextStates(a.current) {
		if next.Name == name {
			from, _ := a.role.State(a.current)
			return a.move(context.Background(), from, name)
		}
	}
	return false
}

// History returns a copy of the conversation history.
func (a *Agent) History() []domain.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Turn(nil), a.history...)
}

// AppendHistory adds turns to the conversation history.
func (a *Agent) AppendHistory(turns ...domain.Turn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, turns...)
}

// Snapshot returns a serializable view of the agent.
func (a *Agent) Snapshot() domain.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	statuses := make(map[string]domain.StateStatus, len(a.statuses))
	for k, v := range a.statuses {
		statuses[k] = v
	}
	return domain.Snapshot{
		EngagementID: a.id,
		Role:         a.role.Name(),
		CurrentState: a.current,
		Statuses:     statuses,
		History:      append([]domain.Turn(nil), a.history...),
		Terminated:   a.role.IsEnd(a.current),
	}
}
