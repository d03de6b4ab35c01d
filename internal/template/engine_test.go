package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderString(t *testing.T) {
	engine := New()

	tests := []struct {
		name     string
		template string
		context  map[string]interface{}
		expected string
		wantErr  bool
	}{
		{
			name:     "single variable",
			template: "Type {{ title }} into the title field",
			context:  map[string]interface{}{"title": "Go Generics in Practice"},
			expected: "Type Go Generics in Practice into the title field",
		},
		{
			name:     "repeated variable",
			template: "{{ name }} and {{ name }} again",
			context:  map[string]interface{}{"name": "x"},
			expected: "x and x again",
		},
		{
			name:     "no spaces and dot prefix",
			template: "{{title}} / {{ .title }} / {{.title}}",
			context:  map[string]interface{}{"title": "T"},
			expected: "T / T / T",
		},
		{
			name:     "numeric and bool values",
			template: "attempt {{ attempt }}, headless={{ headless }}",
			context:  map[string]interface{}{"attempt": 2, "headless": true},
			expected: "attempt 2, headless=true",
		},
		{
			name:     "missing variable fails",
			template: "Schedule for {{ when }}",
			context:  map[string]interface{}{},
			wantErr:  true,
		},
		{
			name:     "no variables passes through",
			template: "Click the Publish button",
			context:  map[string]interface{}{},
			expected: "Click the Publish button",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.RenderString(tt.template, tt.context)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Rendering with a complete context must leave no placeholder residue, for
// any template: this is the property safety validation relies on.
func TestRenderRoundTrip(t *testing.T) {
	engine := New()

	templates := []string{
		"Log in as {{ username_field }} using the form",
		"Set title to {{ title }} and slug to {{ slug }}",
		"Upload {{ source }} with alt text {{ alt }} at position {{ position }}",
		"plain instruction without variables",
	}

	for _, tmpl := range templates {
		vars := engine.ExtractVariables(tmpl)
		context := make(map[string]interface{}, len(vars))
		for _, v := range vars {
			context[v] = "value-for-" + v
		}

		require.NoError(t, engine.ValidateContext(tmpl, context))

		rendered, err := engine.RenderString(tmpl, context)
		require.NoError(t, err)
		assert.False(t, engine.HasResidue(rendered), "residue left in %q -> %q", tmpl, rendered)
	}
}

func TestExtractVariables(t *testing.T) {
	engine := New()

	vars := engine.ExtractVariables(map[string]interface{}{
		"instruction": "Set {{ title }} then {{ body }}",
		"nested":      []interface{}{"{{ title }}", "{{ tags }}"},
	})

	assert.Equal(t, []string{"body", "tags", "title"}, vars)
}

func TestValidateContext(t *testing.T) {
	engine := New()

	err := engine.ValidateContext("Fill {{ a }} and {{ b }}", map[string]interface{}{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")

	assert.NoError(t, engine.ValidateContext("Fill {{ a }}", map[string]interface{}{"a": 1, "extra": 2}))
}

func TestReplaceRecursive(t *testing.T) {
	engine := New()

	value := map[string]interface{}{
		"text":  "Publish {{ title }}",
		"count": 3,
		"list":  []interface{}{"{{ title }}", 7},
	}

	result, err := engine.Replace(value, map[string]interface{}{"title": "X"})
	require.NoError(t, err)

	m, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Publish X", m["text"])
	assert.Equal(t, 3, m["count"])
	assert.Equal(t, []interface{}{"X", 7}, m["list"])
}

func TestHasResidue(t *testing.T) {
	engine := New()

	assert.True(t, engine.HasResidue("leftover {{ placeholder }} here"))
	assert.True(t, engine.HasResidue("{{compact}}"))
	assert.False(t, engine.HasResidue("clean text"))
	assert.False(t, engine.HasResidue("json braces {\"k\": 1} are fine"))
}
