package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/template"
)

// Loader implements ports.TemplateLoader over raw YAML documents held in
// memory, plus roles built in code.
type Loader struct {
	mu        sync.RWMutex
	templates map[ports.TemplateKind]map[string][]byte
	roles     map[string]*domain.Role
}

// NewLoader creates a Loader from YAML strings keyed by kind and id.
func NewLoader(data map[ports.TemplateKind]map[string]string) *Loader {
	l := &Loader{
		templates: make(map[ports.TemplateKind]map[string][]byte),
		roles:     make(map[string]*domain.Role),
	}
	for kind, docs := range data {
		for id, body := range docs {
			l.Put(kind, id, body)
		}
	}
	return l
}

// Put stores or replaces a template.
func (l *Loader) Put(kind ports.TemplateKind, id, body string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.templates[kind] == nil {
		l.templates[kind] = make(map[string][]byte)
	}
	l.templates[kind][id] = []byte(body)
}

// PutRole stores an already built role under id. It shadows a YAML role
// with the same id.
func (l *Loader) PutRole(id string, role *domain.Role) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roles[id] = role
}

func (l *Loader) get(kind ports.TemplateKind, id string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	content, ok := l.templates[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s template %s: %w", kind, id, domain.ErrTemplateNotFound)
	}
	return content, nil
}

// LoadRole parses and builds the role stored under id.
func (l *Loader) LoadRole(ctx context.Context, id string) (*domain.Role, error) {
	l.mu.RLock()
	role, ok := l.roles[id]
	l.mu.RUnlock()
	if ok {
		return role, nil
	}
	data, err := l.get(ports.KindRole, id)
	if err != nil {
		return nil, err
	}
	return template.ParseRole(data)
}

// LoadAgent parses the agent stored under id.
func (l *Loader) LoadAgent(ctx context.Context, id string) (domain.AgentProfile, error) {
	data, err := l.get(ports.KindAgent, id)
	if err != nil {
		return domain.AgentProfile{}, err
	}
	return template.ParseAgent(data)
}

// LoadTarget returns a fresh target built from the template stored under id.
func (l *Loader) LoadTarget(ctx context.Context, id string) (*domain.Target, error) {
	data, err := l.get(ports.KindTarget, id)
	if err != nil {
		return nil, err
	}
	tpl, err := template.ParseTarget(data)
	if err != nil {
		return nil, err
	}
	return tpl.Build(), nil
}

// List returns all ids of a kind in deterministic order.
func (l *Loader) List(ctx context.Context, kind ports.TemplateKind) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]string, 0, len(l.templates[kind]))
	for k := range l.templates[kind] {
		keys = append(keys, k)
	}
	if kind == ports.KindRole {
		for k := range l.roles {
			if _, dup := l.templates[kind][k]; !dup {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}
