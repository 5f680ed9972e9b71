package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://persona.local/schemas/action.schema.json"

// Schema is the ordered parameter list of an action.
// The zero value and a nil *Schema both describe an action without parameters.
type Schema struct {
	params []Param

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// New creates a schema from parameters in declaration order.
func New(params ...Param) *Schema {
	return &Schema{params: append([]Param(nil), params...)}
}

// Params returns a copy of the declared parameters.
func (s *Schema) Params() []Param {
	if s == nil {
		return nil
	}
	return append([]Param(nil), s.params...)
}

// Required returns the names of parameters without defaults, in declaration order.
func (s *Schema) Required() []string {
	required := []string{}
	if s == nil {
		return required
	}
	for _, p := range s.params {
		if p.Required() {
			required = append(required, p.Name)
		}
	}
	return required
}

// JSONSchema renders the schema as a JSON Schema object:
//
//	{"type": "object", "properties": {...}, "required": [...]}
func (s *Schema) JSONSchema() map[string]any {
	properties := map[string]any{}
	if s != nil {
		for _, p := range s.params {
			prop := map[string]any{"type": string(p.Kind)}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if p.Default != nil {
				prop["default"] = p.Default
			}
			properties[p.Name] = prop
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   s.Required(),
	}
}

// Check verifies that every parameter has a name and a supported kind.
func (s *Schema) Check() error {
	if s == nil {
		return nil
	}
	var errs []error
	seen := make(map[string]bool, len(s.params))
	for _, p := range s.params {
		switch {
		case p.Name == "":
			errs = append(errs, &ValidationError{Reason: "parameter without a name"})
		case seen[p.Name]:
			errs = append(errs, &ValidationError{Key: p.Name, Reason: "duplicate parameter"})
		case !p.Kind.Valid():
			errs = append(errs, &ValidationError{Key: p.Name, Reason: fmt.Sprintf("unsupported type %q", p.Kind)})
		}
		seen[p.Name] = true
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Validate checks arguments against the schema.
// Failures are reported as an *AggregateError of *ValidationError.
func (s *Schema) Validate(args map[string]any) error {
	if s == nil || len(s.params) == 0 {
		return nil
	}

	compiled, err := s.compile()
	if err != nil {
		return err
	}

	doc, err := normalize(args)
	if err != nil {
		return err
	}

	if err := compiled.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &AggregateError{Errors: flatten(ve, nil)}
		}
		return err
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		if err := s.Check(); err != nil {
			s.err = err
			return
		}
		raw, err := json.Marshal(s.JSONSchema())
		if err != nil {
			s.err = fmt.Errorf("schema marshal failed: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			s.err = fmt.Errorf("schema load failed: %w", err)
			return
		}
		s.compiled, s.err = c.Compile(schemaURL)
		if s.err != nil {
			s.err = fmt.Errorf("schema compile failed: %w", s.err)
		}
	})
	return s.compiled, s.err
}

// normalize converts Go values into the generic JSON shapes the validator understands.
func normalize(args map[string]any) (any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("arguments are not JSON encodable: %w", err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func flatten(ve *jsonschema.ValidationError, out []error) []error {
	if len(ve.Causes) == 0 {
		return append(out, &ValidationError{
			Key:    strings.TrimPrefix(ve.InstanceLocation, "/"),
			Reason: ve.Message,
		})
	}
	for _, c := range ve.Causes {
		out = flatten(c, out)
	}
	return out
}
