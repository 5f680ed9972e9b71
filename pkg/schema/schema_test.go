package schema_test

import (
	"testing"

	"github.com/aretw0/persona/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    schema.Kind
		wantErr bool
	}{
		{"string", schema.KindString, false},
		{"str", schema.KindString, false},
		{"int", schema.KindInteger, false},
		{"integer", schema.KindInteger, false},
		{"float", schema.KindNumber, false},
		{"bool", schema.KindBoolean, false},
		{"[string]", schema.KindArray, false},
		{"list", schema.KindArray, false},
		{"dict", schema.KindObject, false},
		{"null", schema.KindNull, false},
		{"  Boolean ", schema.KindBoolean, false},
		{"[unknown]", "", true},
		{"complex", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := schema.ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseParams(t *testing.T) {
	params, err := schema.ParseParams(map[string]string{"city": "string"})
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, schema.KindString, params[0].Kind)

	_, err = schema.ParseParams(map[string]string{"a": "string", "b": "tuple"})
	require.Error(t, err)
	errs := schema.ValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `"b"`)
}

func TestSchema_JSONSchema(t *testing.T) {
	s := schema.New(
		schema.Param{Name: "city", Kind: schema.KindString, Description: "Where to search"},
		schema.Param{Name: "limit", Kind: schema.KindInteger, Default: 5},
	)

	got := s.JSONSchema()
	assert.Equal(t, "object", got["type"])
	assert.Equal(t, []string{"city"}, got["required"])

	props, ok := got["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "string", "description": "Where to search"}, props["city"])
	assert.Equal(t, map[string]any{"type": "integer", "default": 5}, props["limit"])

	t.Run("nil schema renders an empty object", func(t *testing.T) {
		var empty *schema.Schema
		got := empty.JSONSchema()
		assert.Equal(t, map[string]any{}, got["properties"])
		assert.Equal(t, []string{}, got["required"])
	})
}

func TestSchema_Validate(t *testing.T) {
	s := schema.New(
		schema.Param{Name: "city", Kind: schema.KindString},
		schema.Param{Name: "limit", Kind: schema.KindInteger, Default: 5},
		schema.Param{Name: "tags", Kind: schema.KindArray, Default: []string{}},
	)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, s.Validate(map[string]any{"city": "Lisbon"}))
		assert.NoError(t, s.Validate(map[string]any{"city": "Lisbon", "limit": 3, "tags": []string{"cheap"}}))
	})

	t.Run("missing required", func(t *testing.T) {
		err := s.Validate(map[string]any{"limit": 3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "city")
	})

	t.Run("wrong type", func(t *testing.T) {
		err := s.Validate(map[string]any{"city": "Lisbon", "limit": "three"})
		require.Error(t, err)
		errs := schema.ValidationErrors(err)
		require.NotEmpty(t, errs)
		ve, ok := errs[0].(*schema.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "limit", ve.Key)
	})

	t.Run("whole floats are integers", func(t *testing.T) {
		assert.NoError(t, s.Validate(map[string]any{"city": "Lisbon", "limit": float64(2)}))
	})

	t.Run("no params accepts anything", func(t *testing.T) {
		assert.NoError(t, schema.New().Validate(map[string]any{"extra": true}))
		var empty *schema.Schema
		assert.NoError(t, empty.Validate(nil))
	})
}

func TestSchema_Check(t *testing.T) {
	assert.NoError(t, schema.New(schema.Param{Name: "a", Kind: schema.KindNull}).Check())

	err := schema.New(
		schema.Param{Name: "a", Kind: "tuple"},
		schema.Param{Name: "a", Kind: schema.KindString},
		schema.Param{Kind: schema.KindString},
	).Check()
	require.Error(t, err)
	assert.Len(t, schema.ValidationErrors(err), 3)

	t.Run("invalid schema fails validation", func(t *testing.T) {
		bad := schema.New(schema.Param{Name: "a", Kind: "tuple"})
		assert.Error(t, bad.Validate(map[string]any{"a": 1}))
	})
}

func TestTool(t *testing.T) {
	def := schema.Tool("collect_info__ask_price_range", "Ask for a price range", schema.New())
	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "collect_info__ask_price_range", def.Function.Name)
	assert.Equal(t, "object", def.Function.Parameters["type"])
}
