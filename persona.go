package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/persona/internal/adapters/file"
	"github.com/aretw0/persona/internal/logging"
	"github.com/aretw0/persona/pkg/adapters/keyword"
	"github.com/aretw0/persona/pkg/agent"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/engagement"
	"github.com/aretw0/persona/pkg/ext"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/registry"
)

// Engine is the high-level entry point for the Persona library.
// It loads templates, binds agents to roles and keeps the live engagements.
type Engine struct {
	loader     ports.TemplateLoader
	registry   *registry.Registry
	extensions []registry.Extension
	resolver   ports.IntentResolver
	strategy   ports.Strategy
	sink       ports.TranscriptSink
	locker     ports.DistributedLocker
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	store      *engagement.Store
	Name       string
}

var _ ports.Interactor = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks on every agent.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom TemplateLoader, bypassing the default file loader.
func WithLoader(l ports.TemplateLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithRegistry sets the action registry shared by all agents.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithExtensions replaces the built-in extensions loaded into the default registry.
// When combined with WithRegistry, the extensions are registered into it.
func WithExtensions(exts ...registry.Extension) Option {
	return func(e *Engine) {
		e.extensions = append(e.extensions, exts...)
	}
}

// WithResolver sets the intent resolver. Defaults to the keyword resolver.
func WithResolver(r ports.IntentResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithStrategy selects the detection strategy. Defaults to ports.StrategyEvent.
func WithStrategy(s ports.Strategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// WithTranscript mirrors every conversation turn to sink.
func WithTranscript(sink ports.TranscriptSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLocker serializes turns across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Persona Engine.
// By default, templates are read from dir laid out as role_template/,
// agent_template/ and target_template/ YAML files.
// If WithLoader is provided, dir can be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{strategy: ports.StrategyEvent}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if dir == "" {
			return nil, fmt.Errorf("template directory is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.loader = file.NewLoader(absPath)
		eng.Name = filepath.Base(absPath)
	} else if dir != "" {
		eng.Name = filepath.Base(dir)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("templates", eng.Name)
	}

	if err := eng.initRegistry(); err != nil {
		return nil, err
	}
	if eng.resolver == nil {
		eng.resolver = keyword.New(keyword.WithLogger(eng.logger))
	}

	storeOpts := []engagement.Option{engagement.WithLogger(eng.logger)}
	if eng.sink != nil {
		storeOpts = append(storeOpts, engagement.WithTranscript(eng.sink))
	}
	if eng.locker != nil {
		storeOpts = append(storeOpts, engagement.WithLocker(eng.locker))
	}
	eng.store = engagement.NewStore(storeOpts...)
	return eng, nil
}

func (e *Engine) initRegistry() error {
	if e.registry == nil {
		exts := e.extensions
		if len(exts) == 0 {
			exts = ext.All(e.logger)
		}
		r, err := registry.New(exts...)
		if err != nil {
			return fmt.Errorf("failed to load extensions: %w", err)
		}
		e.registry = r
		return nil
	}
	for _, x := range e.extensions {
		actions, err := x.Actions()
		if err != nil {
			return fmt.Errorf("failed to load extension %s: %w", x.Scope(), err)
		}
		for _, a := range actions {
			if err := e.registry.Register(x.Scope(), a); err != nil {
				return err
			}
		}
	}
	return nil
}

// CreateEngagement loads the requested templates and binds a fresh agent.
// The target is optional.
func (e *Engine) CreateEngagement(ctx context.Context, req ports.CreateRequest) (string, error) {
	if req.Agent == "" || req.Role == "" {
		return "", errors.New("agent and role are required")
	}
	role, err := e.loader.LoadRole(ctx, req.Role)
	if err != nil {
		return "", fmt.Errorf("failed to load role %q: %w", req.Role, err)
	}
	profile, err := e.loader.LoadAgent(ctx, req.Agent)
	if err != nil {
		return "", fmt.Errorf("failed to load agent %q: %w", req.Agent, err)
	}
	target := domain.NewTarget("", "")
	if req.Target != "" {
		if target, err = e.loader.LoadTarget(ctx, req.Target); err != nil {
			return "", fmt.Errorf("failed to load target %q: %w", req.Target, err)
		}
	}

	id, err := e.store.Create(ctx, profile, role,
		agent.WithTarget(target),
		agent.WithRegistry(e.registry),
		agent.WithResolver(e.resolver),
		agent.WithStrategy(e.strategy),
		agent.WithLifecycleHooks(e.hooks),
		agent.WithLogger(e.logger),
	)
	if err != nil {
		return "", err
	}
	e.logger.Info("engagement created",
		"engagement_id", id,
		"agent", req.Agent,
		"role", req.Role,
		"target", req.Target,
	)
	return id, nil
}

// Interact runs one turn of an engagement.
func (e *Engine) Interact(ctx context.Context, engagementID, input string) (domain.AgentResponse, error) {
	return e.store.Interact(ctx, engagementID, input)
}

// InteractDiff runs one turn and reports what it changed in the engagement.
func (e *Engine) InteractDiff(ctx context.Context, engagementID, input string) (domain.AgentResponse, *domain.SnapshotDiff, error) {
	return e.store.InteractDiff(ctx, engagementID, input)
}

// Inspect returns a snapshot of the engagement.
func (e *Engine) Inspect(ctx context.Context, engagementID string) (domain.Snapshot, error) {
	a, err := e.store.Get(engagementID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return a.Snapshot(), nil
}

// Agent returns the live agent of an engagement.
func (e *Engine) Agent(engagementID string) (*agent.Agent, error) {
	return e.store.Get(engagementID)
}

// DeleteEngagement tears the engagement down.
func (e *Engine) DeleteEngagement(ctx context.Context, engagementID string) error {
	if err := e.store.Delete(ctx, engagementID); err != nil {
		return err
	}
	e.logger.Info("engagement deleted", "engagement_id", engagementID)
	return nil
}

// Engagements lists live engagement IDs.
func (e *Engine) Engagements(ctx context.Context) ([]string, error) {
	return e.store.List(), nil
}

// Role loads a role template for inspection.
func (e *Engine) Role(ctx context.Context, id string) (*domain.Role, error) {
	return e.loader.LoadRole(ctx, id)
}

// Templates lists the template ids of a kind.
func (e *Engine) Templates(ctx context.Context, kind ports.TemplateKind) ([]string, error) {
	return e.loader.List(ctx, kind)
}

// Loader returns the underlying TemplateLoader used by the engine.
func (e *Engine) Loader() ports.TemplateLoader {
	return e.loader
}

// Registry returns the action registry shared by all agents.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
