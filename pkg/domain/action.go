package domain

// Action identifies an executable capability by name.
// Resolution against a live handler only happens inside the action registry.
type Action struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// Event is a recognized trigger within a state and the actions pre-authorized for it.
type Event struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Actions     []Action `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// ActionNames returns the authorized action names in declaration order.
func (e Event) ActionNames() []string {
	names := make([]string, 0, len(e.Actions))
	for _, a := range e.Actions {
		names = append(names, a.Name)
	}
	return names
}

// Authorizes reports whether the event lists the named action.
func (e Event) Authorizes(action string) bool {
	for _, a := range e.Actions {
		if a.Name == action {
			return true
		}
	}
	return false
}
