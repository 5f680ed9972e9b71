package schema

import (
	"fmt"
	"strings"
)

// Kind is the JSON type of an action parameter.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindNull    Kind = "null"
)

// Valid reports whether k is one of the supported JSON kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindNumber, KindBoolean, KindArray, KindObject, KindNull:
		return true
	}
	return false
}

// ParseKind converts a type name into a Kind.
// Besides the JSON names it accepts "str", "int", "float", "bool", "list", "dict",
// "map" and bracketed slices such as "[string]".
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		if _, err := ParseKind(s[1 : len(s)-1]); err != nil {
			return "", err
		}
		return KindArray, nil
	}

	switch s {
	case "string", "str":
		return KindString, nil
	case "integer", "int":
		return KindInteger, nil
	case "number", "float":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "array", "list":
		return KindArray, nil
	case "object", "dict", "map":
		return KindObject, nil
	case "null", "none":
		return KindNull, nil
	default:
		return "", fmt.Errorf("unsupported type: %s", s)
	}
}

// Param describes one action parameter.
// A Param with a non-nil Default is optional.
type Param struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Kind        Kind   `json:"type" yaml:"type" mapstructure:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// Required reports whether the parameter has no default.
func (p Param) Required() bool { return p.Default == nil }

// ParseParams converts a map of parameter names to type names into parameters.
// The result is unordered; prefer New for declared signatures.
func ParseParams(typeMap map[string]string) ([]Param, error) {
	var errs []error
	params := make([]Param, 0, len(typeMap))
	for name, typeStr := range typeMap {
		k, err := ParseKind(typeStr)
		if err != nil {
			errs = append(errs, &ValidationError{Key: name, Reason: err.Error()})
			continue
		}
		params = append(params, Param{Name: name, Kind: k})
	}
	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return params, nil
}
