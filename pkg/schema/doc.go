// Package schema describes the parameters an action accepts.
//
// An action's call-schema is an ordered list of parameters, each with a JSON
// kind restricted to string, integer, number, boolean, array, object or null.
// Parameters without a default are required. The schema renders to a JSON
// Schema object, which is what inference providers expect for tool calling,
// and validates arguments produced by those providers.
//
// Basic usage:
//
//	s := schema.New(
//	    schema.Param{Name: "city", Kind: schema.KindString, Description: "Where to search"},
//	    schema.Param{Name: "limit", Kind: schema.KindInteger, Default: 5},
//	)
//
//	s.Required() // ["city"]
//
//	if err := s.Validate(map[string]any{"limit": 3}); err != nil {
//	    // field "": missing properties: 'city'
//	}
//
// Kinds can also be parsed from the short names used in templates:
//
//	k, err := schema.ParseKind("int")      // KindInteger
//	k, err = schema.ParseKind("[string]")  // KindArray
package schema
