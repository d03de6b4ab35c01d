package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"presswork/internal/cms"
	"presswork/internal/config"
	"presswork/internal/metrics"
	"presswork/internal/provider"
	"presswork/internal/publish"
	"presswork/internal/screenshot"
	"presswork/internal/selectors"
	"presswork/pkg/logging"
)

// Application is the wired publishing core. It is built once per process by
// NewApplication and carries everything a command needs: the active
// configuration, the metric registry, the shared selector cache and
// screenshot store, and the publish orchestrator.
type Application struct {
	config *Config

	// current is the active configuration. Factories read it at session
	// build time; Reload swaps it.
	current atomic.Pointer[config.Config]

	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	cache       *selectors.Cache
	screenshots *screenshot.Store
	publisher   *publish.Publisher
}

// NewApplication performs the bootstrap sequence:
//
//  1. Initialize logging from the CLI flags (re-initialized once the
//     configured level and format are known).
//  2. Load and validate the configuration directory; a validation failure
//     refuses startup and surfaces as CONFIG_INVALID to the exit-code
//     mapping.
//  3. Build the metric registry, selector cache, and screenshot store.
//  4. Wire the primary and fallback provider factories and the orchestrator.
//
// Logs go to stderr so one-shot commands keep stdout for their result
// document; Quiet discards them entirely.
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	var logOut io.Writer = os.Stderr
	if cfg.Quiet {
		logOut = io.Discard
	}
	logging.InitForCLI(level, logOut)

	if cfg.ConfigPath == "" {
		cfg.ConfigPath = config.GetDefaultConfigPathOrPanic()
	}

	runtime, err := config.Load(cfg.ConfigPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
		return nil, fmt.Errorf("loading configuration from %s: %w", cfg.ConfigPath, err)
	}

	// The settings level applies from here on; --debug still wins.
	if !cfg.Debug {
		level = logging.ParseLevel(runtime.Settings.Log.Level)
	}
	logging.Init(level, runtime.Settings.Log.Format, logOut)

	app := &Application{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}
	app.metrics = metrics.New(app.registry)
	app.cache = selectors.NewCache(selectors.CacheConfig{
		TTL:      runtime.Settings.SelectorCacheTTL,
		Observer: app.metrics,
	})
	app.screenshots = screenshot.NewStore(runtime.Settings.ScreenshotDir)
	app.current.Store(runtime)

	primary, err := app.factory(runtime.Settings.Provider)
	if err != nil {
		return nil, err
	}
	var fallback provider.Factory
	if runtime.Settings.Fallback.Enabled {
		if fallback, err = app.factory(runtime.Settings.Fallback.Provider); err != nil {
			return nil, err
		}
	}

	app.publisher = publish.New(publish.Config{
		Primary:        primary,
		Fallback:       fallback,
		MaxRetries:     runtime.Settings.Retry.MaxRetries,
		BaseDelay:      runtime.Settings.Retry.BaseDelay,
		RunTimeout:     runtime.Settings.RunTimeout,
		SafetyDisabled: !runtime.Settings.Safety.Enabled,
		Metrics:        app.metrics,
		Screenshots:    app.screenshots,
		AuditDir:       runtime.Settings.AuditDir,
		CostBudget:     runtime.Settings.CostBudgetUSD,
	})

	logging.Info("Bootstrap", "presswork %s wired: provider=%s fallback=%s config=%s",
		cfg.Version, runtime.Settings.Provider, fallbackName(fallback), cfg.ConfigPath)
	return app, nil
}

// Publish runs one request through the wired orchestrator. The result is
// always non-nil; the error mirrors the result's failure for exit-code
// mapping.
func (a *Application) Publish(ctx context.Context, req *cms.PublishRequest) (*cms.PublishResult, error) {
	return a.publisher.Publish(ctx, req)
}

// Publisher returns the wired orchestrator.
func (a *Application) Publisher() *publish.Publisher {
	return a.publisher
}

// Runtime returns the active configuration.
func (a *Application) Runtime() *config.Config {
	return a.current.Load()
}

// Settings returns a snapshot of the active settings.
func (a *Application) Settings() config.Settings {
	return a.current.Load().Settings
}

// Gatherer exposes the metric registry for the ops server.
func (a *Application) Gatherer() prometheus.Gatherer {
	return a.registry
}

// Reload swaps the active configuration and flushes the selector cache so
// edited selectors take effect immediately. Provider sessions built after
// the swap use the new bundles; sessions already running finish on the old
// ones. Orchestrator settings (retry, timeouts) are fixed at bootstrap.
func (a *Application) Reload(cfg *config.Config) {
	a.current.Store(cfg)
	a.cache.Purge()
	logging.Info("Bootstrap", "Configuration reloaded: %d selector kinds, %d instruction actions",
		len(cfg.Selectors.Kinds), len(cfg.Instructions.Actions))
}

func fallbackName(f provider.Factory) string {
	if f == nil {
		return "none"
	}
	return f.Name()
}
