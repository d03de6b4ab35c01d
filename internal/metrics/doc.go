// Package metrics is the observability sink for publish runs.
//
// All collectors register against an injected prometheus.Registerer so tests
// and embedders control the registry; nothing reaches the global default
// registry. The *Metrics handle is shared across concurrent runs (prometheus
// collectors are safe for concurrent use) and doubles as the selector
// cache's observer.
//
// Cost estimation lives here too: a CostEstimator prices deterministic
// browser runs at a flat rate and model-driven runs by token and image
// volume, feeding the cost_estimate_dollars counter.
package metrics
