/*
Package ports defines the driven and driving ports (interfaces) of the Persona engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various inference providers, template sources and
transcript backends.

# Key Interfaces

  - IntentResolver: recognizes the event (or action invocations) a user input refers to.
  - TemplateLoader: loads role, agent and target templates (files, Loam or memory).
  - TranscriptSink: mirrors conversation history (memory or Redis).
  - DistributedLocker: serializes turns of one engagement across hosts.
  - Interactor: the engagement API used by HTTP, MCP and CLI hosts.
*/
package ports
