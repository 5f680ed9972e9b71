package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/template"
)

var extensions = []string{".yaml", ".yml"}

// Loader implements ports.TemplateLoader over a directory laid out as
//
//	<root>/role_template/<id>.yaml
//	<root>/agent_template/<id>.yaml
//	<root>/target_template/<id>.yaml
type Loader struct {
	Root string
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{Root: dir}
}

func (l *Loader) read(kind ports.TemplateKind, id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("invalid %s template id %q: %w", kind, id, domain.ErrTemplateNotFound)
	}
	for _, ext := range extensions {
		data, err := os.ReadFile(filepath.Join(l.Root, kind.Dir(), id+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s template %s: %w", kind, id, err)
		}
	}
	return nil, fmt.Errorf("%s template %s: %w", kind, id, domain.ErrTemplateNotFound)
}

// LoadRole reads and builds a role template.
func (l *Loader) LoadRole(ctx context.Context, id string) (*domain.Role, error) {
	data, err := l.read(ports.KindRole, id)
	if err != nil {
		return nil, err
	}
	role, err := template.ParseRole(data)
	if err != nil {
		return nil, fmt.Errorf("role template %s: %w", id, err)
	}
	return role, nil
}

// LoadAgent reads an agent template.
func (l *Loader) LoadAgent(ctx context.Context, id string) (domain.AgentProfile, error) {
	data, err := l.read(ports.KindAgent, id)
	if err != nil {
		return domain.AgentProfile{}, err
	}
	profile, err := template.ParseAgent(data)
	if err != nil {
		return domain.AgentProfile{}, fmt.Errorf("agent template %s: %w", id, err)
	}
	return profile, nil
}

// LoadTarget reads a target template and returns a fresh Target.
func (l *Loader) LoadTarget(ctx context.Context, id string) (*domain.Target, error) {
	data, err := l.read(ports.KindTarget, id)
	if err != nil {
		return nil, err
	}
	tpl, err := template.ParseTarget(data)
	if err != nil {
		return nil, fmt.Errorf("target template %s: %w", id, err)
	}
	return tpl.Build(), nil
}

// List returns the template ids available for a kind, sorted.
func (l *Loader) List(ctx context.Context, kind ports.TemplateKind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.Root, kind.Dir()))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s templates: %w", kind, err)
	}
	ids := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ext))
		}
	}
	sort.Strings(ids)
	return ids, nil
}
