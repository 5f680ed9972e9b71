package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/persona/pkg/domain"
)

// GraphOverlay contains per-agent data to visualize on the graph.
type GraphOverlay struct {
	CompletedStates []string
	CurrentState    string
}

// OverlayFromSnapshot builds an overlay from an agent snapshot.
func OverlayFromSnapshot(s domain.Snapshot) *GraphOverlay {
	o := &GraphOverlay{CurrentState: s.CurrentState}
	for name, status := range s.Statuses {
		if status == domain.StatusCompleted {
			o.CompletedStates = append(o.CompletedStates, name)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of a role.
// It applies semantic styling:
// - Start: ((Circle))
// - End: ([Stadium])
// - Default: [Rectangle]
// Event-triggered edges are labeled with the event and priority; unconditioned
// edges (taken once at initialization) are dotted.
// It also applies overlay styles (Completed/Current) if provided.
func GenerateMermaid(role *domain.Role, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, state := range role.States() {
		safeID := sanitizeMermaidID(state.Name)

		opener, closer := "[", "]"
		switch state.Type {
		case domain.StateStart:
			opener, closer = "((", "))"
		case domain.StateEnd:
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escape(state.Name), closer))

		for _, t := range state.Transitions {
			safeTo := sanitizeMermaidID(t.To)
			if !t.Conditional() {
				sb.WriteString(fmt.Sprintf("    %s -. \"auto p%d\" .-> %s\n", safeID, t.Priority, safeTo))
				continue
			}
			label := escape(t.Condition)
			if t.Priority != 0 {
				label = fmt.Sprintf("%s p%d", label, t.Priority)
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, name := range overlay.CompletedStates {
			if _, ok := role.State(name); !ok || name == overlay.CurrentState {
				continue
			}
			safeID := sanitizeMermaidID(name)
			if !seen[safeID] {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s completed;\n", safeID))
			}
		}
		if overlay.CurrentState != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentState)))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
