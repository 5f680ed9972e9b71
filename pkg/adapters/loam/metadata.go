package loam

import (
	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/template"
)

// TemplateMetadata is the frontmatter of any persona template document.
// Only the sections matching the document's kind are populated.
type TemplateMetadata struct {
	Role       template.RoleInfo            `json:"role" mapstructure:"role"`
	States     []template.StateTemplate     `json:"states" mapstructure:"states"`
	Properties map[string]template.Property `json:"properties" mapstructure:"properties"`

	Agent  domain.AgentProfile `json:"agent" mapstructure:"agent"`
	Target template.TargetInfo `json:"target" mapstructure:"target"`
}

func (m TemplateMetadata) role() template.RoleTemplate {
	return template.RoleTemplate{Role: m.Role, States: m.States, Properties: m.Properties}
}
