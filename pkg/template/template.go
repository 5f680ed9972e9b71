package template

import (
	"fmt"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// RoleTemplate is the record form of a role definition:
//
//	role:
//	  name: Restaurant Guide
//	states:
//	  - name: greeting
//	    state_type: start
//	    transitions: [{to: collect, priority: 1}]
//	    event_actions:
//	      collect_info: [{name: ask_geo_location}]
//	properties:
//	  greeting: {description: Welcome the user}
type RoleTemplate struct {
	Role       RoleInfo            `json:"role" mapstructure:"role"`
	States     []StateTemplate     `json:"states" mapstructure:"states"`
	Properties map[string]Property `json:"properties" mapstructure:"properties"`
}

// RoleInfo holds role level metadata.
type RoleInfo struct {
	Name string `json:"name" mapstructure:"name"`
}

// StateTemplate is one entry of RoleTemplate.States.
type StateTemplate struct {
	Name         string                     `json:"name" mapstructure:"name"`
	StateType    string                     `json:"state_type" mapstructure:"state_type"`
	Transitions  []domain.Transition        `json:"transitions" mapstructure:"transitions"`
	EventActions map[string][]domain.Action `json:"event_actions" mapstructure:"event_actions"`
}

// Property carries the description merged into the state or event of the same name.
type Property struct {
	Description string `json:"description" mapstructure:"description"`
}

// AgentTemplate is the record form of an agent definition: {agent: {name, description, goal}}.
type AgentTemplate struct {
	Agent domain.AgentProfile `json:"agent" mapstructure:"agent"`
}

// TargetTemplate is the record form of a target definition: {target: {name, description}}.
type TargetTemplate struct {
	Target TargetInfo `json:"target" mapstructure:"target"`
}

// TargetInfo holds the target fields.
type TargetInfo struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
}

// Decode converts a generic map (as produced by YAML or Loam) into a template record.
// Scalars are weakly typed, so priority: "2" decodes as 2.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode template: %w", err)
	}
	return nil
}

// Build turns a role template into a validated Role.
// Property descriptions are merged into states and events sharing their name.
func (t RoleTemplate) Build() (*domain.Role, error) {
	states := make([]domain.State, 0, len(t.States))
	for _, st := range t.States {
		events := make(map[string]domain.Event, len(st.EventActions))
		for name, actions := range st.EventActions {
			events[name] = domain.Event{
				Name:        name,
				Description: t.Properties[name].Description,
				Actions:     actions,
			}
		}
		states = append(states, domain.State{
			Name:        st.Name,
			Type:        domain.StateType(st.StateType),
			Description: t.Properties[st.Name].Description,
			Events:      events,
			Transitions: st.Transitions,
		})
	}
	return domain.NewRole(t.Role.Name, states)
}

// Build returns a fresh target with empty storage.
func (t TargetTemplate) Build() *domain.Target {
	return domain.NewTarget(t.Target.Name, t.Target.Description)
}
