package domain

import (
	"errors"
	"fmt"
)

// ErrEngagementNotFound is returned when an engagement ID is not known to the store.
var ErrEngagementNotFound = errors.New("engagement not found")

// ErrActionNotFound is returned when unregistering an action that was never registered.
var ErrActionNotFound = errors.New("action not found")

// ErrTemplateNotFound is returned by template loaders for unknown template IDs.
var ErrTemplateNotFound = errors.New("template not found")

// Definition failure kinds, matched with errors.Is against a *DefinitionError.
var (
	ErrNoStartState        = errors.New("no start state")
	ErrMultipleStartStates = errors.New("multiple start states")
	ErrDanglingTransition  = errors.New("dangling transition")
	ErrDuplicateState      = errors.New("duplicate state")
	ErrInvalidState        = errors.New("invalid state")
)

// DefinitionError reports a malformed or inconsistent role definition.
type DefinitionError struct {
	Role   string
	State  string
	Reason string
	Err    error
}

func (e *DefinitionError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("role %q: state %q: %s", e.Role, e.State, e.Reason)
	}
	return fmt.Sprintf("role %q: %s", e.Role, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// RegistryLoadError reports that an extension scope could not be enumerated.
type RegistryLoadError struct {
	Scope string
	Err   error
}

func (e *RegistryLoadError) Error() string {
	return fmt.Sprintf("failed to load extension scope %q: %v", e.Scope, e.Err)
}

func (e *RegistryLoadError) Unwrap() error { return e.Err }

// InvalidRoleError is returned when an agent cannot be bound to a role.
type InvalidRoleError struct {
	Role   string
	State  string
	Reason string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role %q at state %q: %s", e.Role, e.State, e.Reason)
}

// ActionExecutionError wraps a failed action handler invocation.
type ActionExecutionError struct {
	Scope  string
	Action string
	Err    error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %s/%s failed: %v", e.Scope, e.Action, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// DetectionError wraps a failure of the intent resolver.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("event detection failed: %v", e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }
