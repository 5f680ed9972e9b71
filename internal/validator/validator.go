// Package validator lints roles beyond the structural checks done when a role
// is built: reachability, dead ends, transitions that can never fire and
// actions without a registered handler.
package validator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/persona/pkg/domain"
	"github.com/aretw0/persona/pkg/registry"
)

// Severity of an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one lint finding.
type Issue struct {
	Severity Severity `json:"severity"`
	State    string   `json:"state,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.State == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: state %q: %s", i.Severity, i.State, i.Message)
}

// Lint inspects a role. When reg is nil, action resolution is not checked.
func Lint(role *domain.Role, reg *registry.Registry) []Issue {
	var issues []Issue
	add := func(sev Severity, state, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, State: state, Message: fmt.Sprintf(format, args...)})
	}

	reachable := reachableFrom(role, role.InitState().Name)
	if len(role.EndStates()) == 0 {
		add(SeverityWarning, "", "role has no end state")
	} else if !anyReachable(role.EndStates(), reachable) {
		add(SeverityWarning, "", "no end state is reachable from %q", role.InitState().Name)
	}

	for _, state := range role.States() {
		if !reachable[state.Name] {
			add(SeverityWarning, state.Name, "unreachable from %q", role.InitState().Name)
		}
		if state.Type != domain.StateEnd && len(state.Transitions) == 0 {
			add(SeverityWarning, state.Name, "dead end: no outgoing transitions")
		}
		for _, t := range state.Transitions {
			if t.Conditional() {
				if _, ok := state.Event(t.Condition); !ok {
					add(SeverityWarning, state.Name, "transition to %q never fires: event %q is not recognized here", t.To, t.Condition)
				}
			} else if state.Type != domain.StateStart {
				add(SeverityWarning, state.Name, "unconditioned transition to %q is only followed from the start state", t.To)
			}
		}
		if reg == nil {
			continue
		}
		for _, event := range state.EventNames() {
			for _, action := range state.Events[event].ActionNames() {
				if _, ok := reg.Lookup(event, action); !ok {
					add(SeverityError, state.Name, "action %q of event %q is not registered", action, event)
				}
			}
		}
	}
	return issues
}

// Validate returns the error-severity issues of Lint as one error, or nil.
func Validate(role *domain.Role, reg *registry.Registry) error {
	var errs []error
	for _, issue := range Lint(role, reg) {
		if issue.Severity == SeverityError {
			errs = append(errs, errors.New(issue.String()))
		}
	}
	return errors.Join(errs...)
}

func reachableFrom(role *domain.Role, start string) map[string]bool {
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		next := role.NextStates(current)
		sort.Slice(next, func(i, j int) bool { return next[i].Name < next[j].Name })
		for _, n := range next {
			queue = append(queue, n.Name)
		}
	}
	return visited
}

func anyReachable(states []domain.State, reachable map[string]bool) bool {
	for _, s := range states {
		if reachable[s.Name] {
			return true
		}
	}
	return false
}
