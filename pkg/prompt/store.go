package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Names of the built-in templates.
const (
	IntentDetection   = "intent_detection"
	ToolCallDetection = "tool_call_detection"
)

// DefaultRolePrompt is returned by RolePrompt for roles without a prompt.
const DefaultRolePrompt = "you are a helpful agent"

// ErrPromptNotFound is returned for unknown template names.
var ErrPromptNotFound = errors.New("prompt template not found")

//go:embed defaults/*.yaml
var defaults embed.FS

// Template is one prompt file:
//
//	prompt: "Hello {name}"
//	parameters:
//	  name: {description: Who to greet, type: string}
//
// Files with `type: role` hold the opening prompt of the agent of that name.
type Template struct {
	Prompt     string               `yaml:"prompt"`
	Type       string               `yaml:"type,omitempty"`
	Parameters map[string]Parameter `yaml:"parameters,omitempty"`
}

// Parameter documents a placeholder of a template.
type Parameter struct {
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
}

// Store holds prompt templates by name. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]Template
	roles     map[string]Template
}

// New returns an empty store.
func New() *Store {
	return &Store{
		templates: make(map[string]Template),
		roles:     make(map[string]Template),
	}
}

// NewDefault returns a store holding the built-in detection prompts.
func NewDefault() *Store {
	s := New()
	if err := s.LoadFS(defaults, "defaults"); err != nil {
		panic(fmt.Sprintf("prompt: invalid embedded defaults: %v", err))
	}
	return s
}

// LoadDir loads every *.yaml and *.yml file of dir, overriding templates
// with the same name.
func (s *Store) LoadDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("prompt template directory not found: %w", err)
	}
	return s.LoadFS(os.DirFS(dir), ".")
}

// LoadFS is LoadDir over an fs.FS.
func (s *Store) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to list prompt templates: %w", err)
	}
	for _, entry := range entries {
		ext := path.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read prompt template %s: %w", entry.Name(), err)
		}
		var t Template
		if err := yaml.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("invalid prompt template %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		if t.Type == "role" {
			s.mu.Lock()
			s.roles[name] = t
			s.mu.Unlock()
			continue
		}
		s.Add(name, t)
	}
	return nil
}

// Add registers or replaces a template.
func (s *Store) Add(name string, t Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[name] = t
}

// Remove deletes a template.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; !ok {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	delete(s.templates, name)
	return nil
}

// Names returns the registered template names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) lookup(name string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	return t, nil
}

// Parameters returns the documented parameters of a template.
func (s *Store) Parameters(name string) (map[string]Parameter, error) {
	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return t.Parameters, nil
}

// Get renders a template. Every placeholder must have a value.
func (s *Store) Get(name string, params map[string]string) (string, error) {
	t, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	return Render(t.Prompt, params)
}

// Build renders a template with the placeholders derived from a detection
// request; params override them.
func (s *Store) Build(name string, req ports.DetectionRequest, params map[string]string) (string, error) {
	merged := RequestParams(req)
	for k, v := range params {
		merged[k] = v
	}
	return s.Get(name, merged)
}

// RolePrompt returns the opening prompt for a role, or DefaultRolePrompt.
func (s *Store) RolePrompt(role string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.roles[role]; ok && t.Prompt != "" {
		return t.Prompt
	}
	return DefaultRolePrompt
}

// RequestParams exposes a detection request as template placeholders.
func RequestParams(req ports.DetectionRequest) map[string]string {
	return map[string]string{
		"agent_name":        req.AgentName,
		"agent_description": req.AgentDescription,
		"agent_goal":        req.Goal,
		"state_name":        req.StateName,
		"state_description": req.StateDescription,
		"current_state":     req.FormattedState,
		"event_list":        req.EventList,
		"raw_query":         req.Input,
		"history":           FormatHistory(req.History),
	}
}

// FormatHistory renders turns as "role: content" lines.
func FormatHistory(turns []domain.Turn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, t.Content))
	}
	return strings.Join(lines, "\n")
}
