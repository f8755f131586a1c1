package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolations(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":   map[string]any{"type": "string"},
			"count":  map[string]any{"type": "integer"},
			"status": map[string]any{"type": "string", "enum": []string{"pending", "done"}},
		},
		"required": []string{"name", "count"},
	}

	t.Run("valid parameters yield no violations", func(t *testing.T) {
		violations := Violations(map[string]any{
			"name":   "build",
			"count":  float64(3), // JSON numbers decode as float64
			"status": "pending",
		}, schema)

		assert.Empty(t, violations)
	})

	t.Run("every violation is reported, not just the first", func(t *testing.T) {
		violations := Violations(map[string]any{
			"name":   42,     // wrong type
			"status": "gone", // not in enum
			// count missing
		}, schema)

		require.Len(t, violations, 3)
		fields := make([]string, len(violations))
		for i, v := range violations {
			fields[i] = v.Field
		}
		assert.ElementsMatch(t, []string{"name", "count", "status"}, fields)
	})

	t.Run("extra fields are allowed", func(t *testing.T) {
		violations := Violations(map[string]any{
			"name":  "x",
			"count": 1,
			"note":  "unschema'd",
		}, schema)

		assert.Empty(t, violations)
	})

	t.Run("required tolerates JSON-decoded schemas", func(t *testing.T) {
		decoded := map[string]any{
			"type":       "object",
			"properties": map[string]any{"q": map[string]any{"type": "string"}},
			"required":   []any{"q"},
		}

		violations := Violations(map[string]any{}, decoded)
		require.Len(t, violations, 1)
		assert.Equal(t, "q", violations[0].Field)
	})

	t.Run("non-integral float fails integer fields", func(t *testing.T) {
		violations := Violations(map[string]any{"name": "x", "count": 1.5}, schema)
		require.Len(t, violations, 1)
		assert.Equal(t, "count", violations[0].Field)
	})
}

func TestCreateSchema(t *testing.T) {
	type args struct {
		Query      string  `json:"query" description:"Search query"`
		MaxResults int     `json:"max_results,omitempty"`
		Threshold  float64 `json:"threshold"`
	}

	schema := CreateSchema(args{})

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, properties, 3)

	query := properties["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])

	assert.Equal(t, "integer", properties["max_results"].(map[string]any)["type"])
	assert.Equal(t, "number", properties["threshold"].(map[string]any)["type"])

	assert.ElementsMatch(t, []string{"query", "threshold"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"a": map[string]any{"type": "boolean"}},
		"required":   []string{"a"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"a": true}, schema))
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
}

func TestRenderTemplate(t *testing.T) {
	t.Run("plain text passes through", func(t *testing.T) {
		out, err := RenderTemplate("no markers here", nil)
		require.NoError(t, err)
		assert.Equal(t, "no markers here", out)
	})

	t.Run("substitutes variables", func(t *testing.T) {
		out, err := RenderTemplate("dir={{.working_dir}} model={{.model}}", map[string]any{
			"working_dir": "/repo",
			"model":       "scripted",
		})
		require.NoError(t, err)
		assert.Equal(t, "dir=/repo model=scripted", out)
	})

	t.Run("invalid template errors", func(t *testing.T) {
		_, err := RenderTemplate("{{.unclosed", nil)
		require.Error(t, err)
	})
}
