// Package agent implements the live conversational agent bound to a role.
//
// An Agent owns everything that changes during a conversation: the current
// state, a per-state status table, a per-action status cache and the history.
// Interact runs the turn algorithm; it consults a ports.IntentResolver to
// recognize the event and a registry.Registry to run the authorized actions.
package agent
