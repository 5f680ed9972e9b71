/*
Package domain contains the core domain models for the Persona engine.

It defines the declarative state machine an agent follows (its Role) and the
records a turn produces. This package is kept pure and free of external
dependencies like I/O or inference, following Hexagonal Architecture principles.

# Key Entities

  - Role: the immutable state machine definition (states, init state, end states).
  - State: a node of the Role exposing events and outgoing transitions.
  - Event: a recognized trigger within a state, carrying the actions it authorizes.
  - Action: the name of an executable capability, resolved by the action registry.
  - Transition: a conditioned, priority-ordered edge between two states.
  - AgentResponse / TaskResponse: the result of a single interaction turn.
  - Snapshot: a serializable view of a live engagement, diffable between turns.
*/
package domain
