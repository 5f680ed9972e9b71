package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/schema"
)

// Handler defines the signature for an action implementation.
// It receives a context and a map of arguments, and returns a result or error.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Action is a registered, executable capability.
type Action struct {
	Name        string
	Description string
	Params      *schema.Schema
	Handler     Handler
}

// Extension is a named scope contributing actions to the registry.
// Scopes are looked up by event name, so an extension serving the "confirm"
// event must use "confirm" as its scope.
type Extension interface {
	Scope() string
	Actions() ([]Action, error)
}

// Module is a static Extension.
type Module struct {
	Name    string
	Entries []Action
}

func (m Module) Scope() string              { return m.Name }
func (m Module) Actions() ([]Action, error) { return m.Entries, nil }

// Registry maps (scope, action name) to handlers.
// It is read-mostly after construction and safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	scopes map[string]map[string]Action
}

// New creates a registry and enumerates every extension exactly once.
// It fails with a *domain.RegistryLoadError if any extension cannot be enumerated
// or contributes an invalid action.
func New(exts ...Extension) (*Registry, error) {
	r := &Registry{scopes: make(map[string]map[string]Action)}
	for _, ext := range exts {
		if ext == nil {
			continue
		}
		scope := ext.Scope()
		if scope == "" {
			return nil, &domain.RegistryLoadError{Err: errors.New("extension without a scope")}
		}
		actions, err := ext.Actions()
		if err != nil {
			return nil, &domain.RegistryLoadError{Scope: scope, Err: err}
		}
		for _, a := range actions {
			if err := r.Register(scope, a); err != nil {
				return nil, &domain.RegistryLoadError{Scope: scope, Err: err}
			}
		}
	}
	return r, nil
}

// Register adds an action under a scope.
// If an action with the same scope and name exists, it is overwritten.
func (r *Registry) Register(scope string, a Action) error {
	if scope == "" {
		return errors.New("scope is required")
	}
	if a.Name == "" {
		return errors.New("action name is required")
	}
	if a.Handler == nil {
		return fmt.Errorf("action %q has no handler", a.Name)
	}
	if err := a.Params.Check(); err != nil {
		return fmt.Errorf("action %q: %w", a.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	actions, ok := r.scopes[scope]
	if !ok {
		actions = make(map[string]Action)
		r.scopes[scope] = actions
	}
	actions[a.Name] = a
	return nil
}

// Unregister removes an action.
// It returns domain.ErrActionNotFound if nothing is registered under that key.
func (r *Registry) Unregister(scope, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	actions, ok := r.scopes[scope]
	if !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrActionNotFound, scope, name)
	}
	if _, ok := actions[name]; !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrActionNotFound, scope, name)
	}
	delete(actions, name)
	if len(actions) == 0 {
		delete(r.scopes, scope)
	}
	return nil
}

// Lookup returns the action registered under scope and name.
func (r *Registry) Lookup(scope, name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.scopes[scope][name]
	return a, ok
}

// Scopes returns the registered scope names, sorted.
func (r *Registry) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.scopes))
	for s := range r.scopes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Actions returns the actions of a scope, sorted by name.
func (r *Registry) Actions(scope string) []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Action, 0, len(r.scopes[scope]))
	for _, a := range r.scopes[scope] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute looks up an action, validates the arguments and runs the handler.
// A panicking handler is reported as an error.
func (r *Registry) Execute(ctx context.Context, scope, name string, args map[string]any) (any, error) {
	a, ok := r.Lookup(scope, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrActionNotFound, scope, name)
	}
	return a.Call(ctx, args)
}

// Call validates the arguments and runs the handler, recovering panics.
func (a Action) Call(ctx context.Context, args map[string]any) (result any, err error) {
	if err := a.Params.Validate(args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()
	return a.Handler(ctx, args)
}

// ToolDefinitions describes the named actions of a scope for function calling.
// Names not registered under the scope are skipped.
func (r *Registry) ToolDefinitions(scope string, names []string) []schema.ToolDefinition {
	defs := make([]schema.ToolDefinition, 0, len(names))
	for _, name := range names {
		a, ok := r.Lookup(scope, name)
		if !ok {
			continue
		}
		defs = append(defs, schema.Tool(a.Name, a.Description, a.Params))
	}
	return defs
}
