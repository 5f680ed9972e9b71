package persona_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/persona"
	"github.com/aretw0/persona/pkg/adapters/memory"
	"github.com/aretw0/persona/pkg/ports"
)

const exampleRole = `role:
  name: Concierge
states:
  - name: greeting
    state_type: start
    transitions:
      - to: collect
        priority: 1
  - name: collect
    transitions:
      - to: recommend
        condition: collect_info
        priority: 1
    event_actions:
      collect_info:
        - name: ask_geo_location
  - name: recommend
    state_type: end
`

// ExampleNew_memory runs an engagement over templates held in memory, using
// the built-in keyword resolver and extensions.
func ExampleNew_memory() {
	loader := memory.NewLoader(map[ports.TemplateKind]map[string]string{
		ports.KindRole:  {"concierge": exampleRole},
		ports.KindAgent: {"mia": "agent:\n  name: Mia\n  goal: Recommend a place to eat\n"},
	})

	engine, err := persona.New("", persona.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := engine.CreateEngagement(ctx, ports.CreateRequest{Agent: "mia", Role: "concierge"})
	if err != nil {
		log.Fatal(err)
	}

	snap, _ := engine.Inspect(ctx, id)
	fmt.Println("state:", snap.CurrentState)

	resp, err := engine.Interact(ctx, id, "Let me share some info about where I am")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(resp)
	fmt.Println("state:", resp.State)

	// Output:
	// state: collect
	// ask_geo_location: True
	// state: recommend
}
