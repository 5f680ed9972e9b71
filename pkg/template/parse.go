package template

import (
	"errors"
	"fmt"

	"github.com/aretw0/persona/pkg/domain"
	"gopkg.in/yaml.v3"
)

func parseMap(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if raw == nil {
		return nil, errors.New("empty template")
	}
	return raw, nil
}

// ParseRoleTemplate parses a YAML role document.
func ParseRoleTemplate(data []byte) (RoleTemplate, error) {
	var t RoleTemplate
	raw, err := parseMap(data)
	if err != nil {
		return t, err
	}
	if _, ok := raw["states"]; !ok {
		return t, errors.New("role template has no states")
	}
	err = Decode(raw, &t)
	return t, err
}

// ParseRole parses a YAML role document and builds the Role.
func ParseRole(data []byte) (*domain.Role, error) {
	t, err := ParseRoleTemplate(data)
	if err != nil {
		return nil, err
	}
	return t.Build()
}

// ParseAgent parses a YAML agent document.
func ParseAgent(data []byte) (domain.AgentProfile, error) {
	var t AgentTemplate
	raw, err := parseMap(data)
	if err != nil {
		return domain.AgentProfile{}, err
	}
	if _, ok := raw["agent"]; !ok {
		return domain.AgentProfile{}, errors.New("agent template has no agent section")
	}
	if err := Decode(raw, &t); err != nil {
		return domain.AgentProfile{}, err
	}
	return t.Agent, nil
}

// ParseTarget parses a YAML target document.
func ParseTarget(data []byte) (TargetTemplate, error) {
	var t TargetTemplate
	raw, err := parseMap(data)
	if err != nil {
		return t, err
	}
	if _, ok := raw["target"]; !ok {
		return t, errors.New("target template has no target section")
	}
	err = Decode(raw, &t)
	return t, err
}
