package app

import (
	"fmt"
	"os"

	"presswork/internal/provider"
	"presswork/internal/provider/dom"
	"presswork/internal/provider/vision"
	"presswork/internal/selectors"
	"presswork/pkg/logging"
)

// factory returns a session factory for the named provider. Factories read
// the active configuration at build time, so a hot reload reaches the next
// session without rebuilding the application graph.
func (a *Application) factory(name string) (provider.Factory, error) {
	switch name {
	case dom.ProviderName:
		return provider.FactoryFunc{
			ProviderName: dom.ProviderName,
			Build: func() (provider.Provider, error) {
				rt := a.Runtime()
				return dom.New(dom.Config{
					Selectors:         rt.Selectors,
					Cache:             a.cache,
					Tracker:           selectors.NewTracker(),
					Headless:          rt.Settings.Browser.Headless,
					ControlURL:        rt.Settings.Browser.ControlURL,
					ElementTimeout:    rt.Settings.Browser.ElementTimeout,
					NavigationTimeout: rt.Settings.Browser.NavigationTimeout,
					Observer:          a.metrics,
				}), nil
			},
		}, nil

	case vision.ProviderName:
		if env := a.Settings().Vision.APIKeyEnv; os.Getenv(env) == "" {
			logging.Warn("Bootstrap", "%s is not set; the %s provider will refuse to initialize",
				env, vision.ProviderName)
		}
		return provider.FactoryFunc{
			ProviderName: vision.ProviderName,
			Build: func() (provider.Provider, error) {
				rt := a.Runtime()
				// The key is read per session, not at bootstrap, so a key
				// exported after daemon start reaches the next run.
				return vision.New(vision.Config{
					Model:             rt.Settings.Vision.Model,
					APIKey:            os.Getenv(rt.Settings.Vision.APIKeyEnv),
					MaxIterations:     rt.Settings.Vision.MaxIterations,
					MaxTokensPerRun:   rt.Settings.Vision.MaxTokensPerRun,
					MaxCostPerRun:     rt.Settings.CostBudgetUSD,
					Selectors:         rt.Selectors,
					Instructions:      rt.Instructions,
					Headless:          rt.Settings.Browser.Headless,
					ControlURL:        rt.Settings.Browser.ControlURL,
					NavigationTimeout: rt.Settings.Browser.NavigationTimeout,
					Observer:          a.metrics,
					Costs:             a.metrics,
				}), nil
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown provider %q (want %q or %q)", name, dom.ProviderName, vision.ProviderName)
	}
}
