package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type forecastArgs struct {
	City string   `json:"city" description:"City to look up"`
	Days int      `json:"days,omitempty"`
	Tags []string `json:"tags,omitempty"`

	hidden string
}

func TestFromStruct(t *testing.T) {
	s := FromStruct(forecastArgs{})

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"city"}, s["required"])

	properties, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"type": "string", "description": "City to look up"}, properties["city"])
	assert.Equal(t, map[string]any{"type": "integer"}, properties["days"])
	assert.Equal(t, map[string]any{"type": "array"}, properties["tags"])
	assert.NotContains(t, properties, "hidden")
}

func TestFromStruct_NonStruct(t *testing.T) {
	s := FromStruct(42)
	assert.Equal(t, "object", s["type"])
	assert.Empty(t, s["properties"])
	assert.NotContains(t, s, "required")
}

func TestValidate(t *testing.T) {
	s := FromStruct(forecastArgs{})

	assert.NoError(t, Validate(map[string]any{"city": "Berlin"}, s))
	assert.NoError(t, Validate(map[string]any{"city": "Berlin", "days": float64(3)}, s))

	// Missing required field.
	err := Validate(map[string]any{"days": 3}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "city")

	// Wrong type.
	err = Validate(map[string]any{"city": 7}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected type string")

	// Fractional value for an integer field.
	assert.Error(t, Validate(map[string]any{"city": "Berlin", "days": 1.5}, s))

	// Unknown arguments pass through.
	assert.NoError(t, Validate(map[string]any{"city": "Berlin", "extra": true}, s))
}

func TestValidate_RequiredFromJSON(t *testing.T) {
	// Schemas decoded from JSON carry required as []any.
	s := map[string]any{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
		"required":   []any{"city"},
	}
	assert.Error(t, Validate(map[string]any{}, s))
	assert.NoError(t, Validate(map[string]any{"city": "Berlin"}, s))
}
