// Package app bootstraps presswork: it loads and validates the
// configuration directory, initializes logging and metrics, wires the
// provider factories and the publish orchestrator, and runs daemon mode.
//
// The package follows a two-phase pattern: NewApplication performs the
// complete bootstrap (logging, configuration, component graph) and returns a
// ready Application; Publish and RunServe then execute without further
// setup. A failed bootstrap never returns a half-wired Application.
//
// Configuration is held behind an atomic pointer. One-shot commands load it
// once; daemon mode swaps it on hot reload, and provider sessions built
// after the swap pick up the new bundles without a restart.
package app
