package domain

// Transition defines a directed edge to another state.
// A Transition with a Condition is only eligible when the detected event name equals it.
// Unconditioned transitions are only considered while an agent is being initialized.
type Transition struct {
	To        string `json:"to" yaml:"to" mapstructure:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
	Priority  int    `json:"priority,omitempty" yaml:"priority,omitempty" mapstructure:"priority"`
}

// Conditional reports whether the transition is gated on an event.
func (t Transition) Conditional() bool {
	return t.Condition != ""
}

// Matches reports whether the transition fires for the given event.
func (t Transition) Matches(event string) bool {
	return t.Conditional() && t.Condition == event
}
