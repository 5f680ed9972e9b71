/*
Package dsl provides a Go DSL for building roles in code.

It is the programmatic counterpart of the role_template YAML: states,
transitions, event actions and descriptions are declared with a fluent
builder, and Build returns the same validated *domain.Role the template
loaders produce. Useful for tests, generated roles and embedding.

Example usage:

	b := dsl.NewRole("Restaurant Guide")

	b.State("greeting").
		Start().
		Describe("Welcome the user").
		Go("collect", 1)

	b.State("collect").
		On("collect_info", "recommend", 2).
		Do("collect_info", "ask_geo_location").
		On("goodbye", "farewell", 1)

	b.State("recommend").
		On("goodbye", "farewell", 1)

	b.State("farewell").End()

	b.Event("collect_info", "The user shared their location or preferences")

	loader := memory.NewLoader(nil)
	if err := b.Register(loader, "guide"); err != nil {
		// ...
	}
*/
package dsl
