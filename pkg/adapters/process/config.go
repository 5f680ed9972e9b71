package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/persona/pkg/schema"
	"gopkg.in/yaml.v3"
)

// ActionConfig declares an action backed by an external command.
type ActionConfig struct {
	// Scope is the event the action serves.
	Scope       string            `yaml:"scope" json:"scope"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Params      []schema.Param    `yaml:"params" json:"params"`
}

// ConfigFile represents the structure of actions.yaml.
type ConfigFile struct {
	Actions []ActionConfig `yaml:"actions" json:"actions"`
}

// LoadActions reads a configuration file (YAML or JSON). A missing file
// means no process actions.
func LoadActions(path string) ([]ActionConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read actions config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	for i, a := range cfg.Actions {
		if a.Scope == "" || a.Name == "" || a.Command == "" {
			return nil, fmt.Errorf("action %d: scope, name and command are required", i)
		}
	}
	return cfg.Actions, nil
}
