package schema

// ToolDefinition is the provider-neutral function-calling descriptor of an action:
//
//	{"type": "function", "function": {"name": ..., "description": ..., "parameters": {...}}}
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition names a callable and its JSON Schema parameters.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool builds the tool definition of a callable named name.
func Tool(name, description string, s *Schema) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  s.JSONSchema(),
		},
	}
}
