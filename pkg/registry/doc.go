// Package registry maps action names to executable handlers.
//
// Actions are registered under a scope. The agent looks actions up with the
// detected event name as scope, so an extension whose scope is "collect_info"
// serves the "collect_info" event. Extensions are enumerated once, when the
// registry is built; afterwards the registry is shared read-mostly between
// every live agent.
package registry
