package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query" jsonschema:"required,description=Search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max results"`
}

func TestSchemaFor(t *testing.T) {
	schema, err := SchemaFor[searchArgs]()
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.ElementsMatch(t, []string{"query"}, requiredFields(schema))
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
			"s": map[string]any{"type": "string"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5.0, "extra": true}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": 1.5}, schema)
	assert.ErrorAs(t, err, &vErr)

	err = ValidateParameters(map[string]any{"x": 1, "s": 2}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "s", vErr.Field)
}

func TestValidateParameters_StringRequired(t *testing.T) {
	schema := map[string]any{"required": []string{"a"}}
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
}
