/*
Package persona is an engine for conversational agents driven by finite state machines.

A Role describes the conversation as a graph of states. Each state declares the
events it recognizes, the actions each event may trigger and the transitions it
follows. An Agent is a live instance of a Role: on every turn an intent resolver
(keyword matching, OpenAI or Anthropic) names the event the user's input refers
to, the engine runs the actions the state authorizes for that event and moves to
the highest-priority matching state.

# Templates

Roles, agents and targets are YAML templates stored under a directory:

	templates/
	  role_template/guide.yaml
	  agent_template/mia.yaml
	  target_template/visitor.yaml

# Usage

	eng, err := persona.New("./templates")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := eng.CreateEngagement(ctx, ports.CreateRequest{Agent: "mia", Role: "guide", Target: "visitor"})
	if err != nil {
		log.Fatal(err)
	}

	resp, err := eng.Interact(ctx, id, "I'm in Lisbon and I like seafood")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(resp)

Actions live in a registry keyed by (event, action). The built-in extensions of
package ext are loaded by default; use WithExtensions or WithRegistry to supply
your own.

# Adapters

The engine is exposed over HTTP (pkg/adapters/http) and the Model Context
Protocol (pkg/adapters/mcp). Conversation transcripts can be mirrored to files
or Redis (pkg/adapters/redis), which also provides a distributed lock for
running several engine replicas.
*/
package persona
