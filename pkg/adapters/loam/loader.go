package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
)

// Loader adapts a Loam repository to the ports.TemplateLoader interface.
// Templates live under <kind>_template/<id> as frontmatter documents; the
// markdown body of an agent or target document is used as its description
// when the frontmatter leaves it empty.
type Loader struct {
	Repo *loam.TypedRepository[TemplateMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[TemplateMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

func (l *Loader) get(ctx context.Context, kind ports.TemplateKind, id string) (TemplateMetadata, string, error) {
	// Loam resolves the extension, so "role_template/guide" finds guide.md.
	doc, err := l.Repo.Get(ctx, kind.Dir()+"/"+id)
	if err != nil {
		return TemplateMetadata{}, "", fmt.Errorf("loam get failed for %s template %s: %v: %w", kind, id, err, domain.ErrTemplateNotFound)
	}
	return doc.Data, strings.TrimSpace(doc.Content), nil
}

// LoadRole builds the role stored under role_template/<id>.
func (l *Loader) LoadRole(ctx context.Context, id string) (*domain.Role, error) {
	meta, _, err := l.get(ctx, ports.KindRole, id)
	if err != nil {
		return nil, err
	}
	if len(meta.States) == 0 {
		return nil, fmt.Errorf("role template %s has no states", id)
	}
	return meta.role().Build()
}

// LoadAgent returns the agent stored under agent_template/<id>.
func (l *Loader) LoadAgent(ctx context.Context, id string) (domain.AgentProfile, error) {
	meta, body, err := l.get(ctx, ports.KindAgent, id)
	if err != nil {
		return domain.AgentProfile{}, err
	}
	profile := meta.Agent
	if profile.Description == "" {
		profile.Description = body
	}
	return profile, nil
}

// LoadTarget returns a fresh target built from target_template/<id>.
func (l *Loader) LoadTarget(ctx context.Context, id string) (*domain.Target, error) {
	meta, body, err := l.get(ctx, ports.KindTarget, id)
	if err != nil {
		return nil, err
	}
	description := meta.Target.Description
	if description == "" {
		description = body
	}
	return domain.NewTarget(meta.Target.Name, description), nil
}

// List returns the template ids of a kind, sorted.
func (l *Loader) List(ctx context.Context, kind ports.TemplateKind) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	prefix := kind.Dir() + "/"
	seen := make(map[string]string)
	ids := []string{}
	for _, doc := range docs {
		path := trimExtension(doc.ID)
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		id := strings.TrimPrefix(path, prefix)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: %s template '%s' is defined in both '%s' and '%s'", kind, id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}

// Open initializes a read-only Loam repository at dir and wraps it in a Loader.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number across adapters; read-only
	// avoids Loam's dev sandbox since templates are never written.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[TemplateMetadata](repo)), nil
}
