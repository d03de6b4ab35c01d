package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presswork/internal/config"
	"presswork/internal/provider/dom"
	"presswork/internal/provider/vision"
)

func writeSettings(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0644))
}

func TestNewApplicationDefaults(t *testing.T) {
	dir := t.TempDir()

	app, err := NewApplication(NewConfig(false, true, dir, "test"))
	require.NoError(t, err)

	assert.Equal(t, "dom", app.Settings().Provider)
	assert.NotNil(t, app.Publisher())
	assert.NotNil(t, app.Gatherer())
	assert.Equal(t, dir, app.config.ConfigPath)
}

func TestNewApplicationRejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	writeSettings(t, dir, "provider: bogus\n")

	app, err := NewApplication(NewConfig(false, true, dir, "test"))
	require.Error(t, err)
	assert.Nil(t, app)

	var verrs config.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

func TestFactoriesBuildUninitializedSessions(t *testing.T) {
	dir := t.TempDir()
	app, err := NewApplication(NewConfig(false, true, dir, "test"))
	require.NoError(t, err)

	// Building a session must not touch a browser or the model API; that
	// happens in Initialize.
	for _, name := range []string{dom.ProviderName, vision.ProviderName} {
		f, err := app.factory(name)
		require.NoError(t, err)
		assert.Equal(t, name, f.Name())

		p, err := f.New()
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err = app.factory("carrier-pigeon")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestReloadSwapsActiveConfiguration(t *testing.T) {
	dir := t.TempDir()
	app, err := NewApplication(NewConfig(false, true, dir, "test"))
	require.NoError(t, err)
	require.Zero(t, app.Settings().CostBudgetUSD)

	next := t.TempDir()
	writeSettings(t, next, "cost_budget_usd: 2.5\n")
	cfg, err := config.Load(next)
	require.NoError(t, err)

	app.Reload(cfg)

	assert.Equal(t, 2.5, app.Settings().CostBudgetUSD)
}
