package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInstructionBundleIsComplete(t *testing.T) {
	bundle := DefaultInstructionBundle()
	engine := newTestEngine()

	require.NoError(t, bundle.Validate(engine))

	for _, action := range RequiredActions {
		tmpl, err := bundle.Template(action)
		require.NoError(t, err, "action %s", action)
		assert.NotEmpty(t, tmpl)

		// Every default template renders cleanly with its declared
		// variables.
		context := make(map[string]interface{})
		for _, v := range variables(action) {
			context[v] = "x"
		}
		rendered, err := engine.RenderString(tmpl, context)
		require.NoError(t, err, "action %s", action)
		assert.False(t, engine.HasResidue(rendered), "action %s left residue", action)
	}
}

func TestInstructionValidateMissingAction(t *testing.T) {
	bundle := &InstructionBundle{Actions: map[string]string{
		"login": "Log in at {{ url }}.",
	}}

	err := bundle.Validate(newTestEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actions.publish")
	assert.Contains(t, err.Error(), "required action is missing")
}

func TestInstructionValidateUndeclaredVariable(t *testing.T) {
	bundle := DefaultInstructionBundle()
	bundle.Actions["publish"] = "Publish {{ title }} now."

	err := bundle.Validate(newTestEngine())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actions.publish")
	assert.Contains(t, err.Error(), `undeclared variable "title"`)
}

func TestInstructionValidateAllowsExtraActions(t *testing.T) {
	bundle := DefaultInstructionBundle()
	bundle.Actions["dismiss_cookie_banner"] = "Close the {{ vendor }} cookie banner if one is shown."

	assert.NoError(t, bundle.Validate(newTestEngine()))
}

func TestInstructionRender(t *testing.T) {
	bundle := DefaultInstructionBundle()
	engine := newTestEngine()

	out, err := bundle.Render(engine, "set_title", map[string]interface{}{"title": "Ship It"})
	require.NoError(t, err)
	assert.Contains(t, out, "Ship It")
	assert.False(t, engine.HasResidue(out))

	_, err = bundle.Render(engine, "set_title", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set_title")

	_, err = bundle.Render(engine, "no_such_action", nil)
	assert.Error(t, err)
}

func TestVariablesSorted(t *testing.T) {
	vars := variables("upload_image")
	assert.Equal(t, []string{"alt", "caption", "position", "source"}, vars)
	assert.Empty(t, variables("publish"))
	assert.Empty(t, variables("unknown_action"))
}
