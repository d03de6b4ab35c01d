package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"presswork/internal/cms"
)

// OutcomeSuccess is the articles_total outcome label of a successful run.
const OutcomeSuccess = "success"

// op_kind label values for cost_estimate_dollars.
const (
	CostOpRun         = "run"
	CostOpInstruction = "instruction"
)

// Metrics holds every collector of the publishing core.
type Metrics struct {
	articlesTotal     *prometheus.CounterVec
	publishDuration   *prometheus.HistogramVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
	fallbackTotal     *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cacheSize         prometheus.Gauge
	costEstimate      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		articlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "articles_total",
			Help: "Publish runs by outcome and final provider.",
		}, []string{"outcome", "provider"}),
		publishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "publish_duration_seconds",
			Help:    "End-to-end duration of a publish run.",
			Buckets: []float64{30, 60, 90, 120, 180, 240, 300},
		}, []string{"provider"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "operation_duration_seconds",
			Help:    "Duration of individual provider operations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"operation", "provider"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operation_errors_total",
			Help: "Provider operation failures by taxonomy kind.",
		}, []string{"operation", "provider", "error_kind"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fallback_total",
			Help: "Provider failovers within a run.",
		}, []string{"from", "to", "reason"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selector_cache_hits_total",
			Help: "Selector resolutions served from cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "selector_cache_misses_total",
			Help: "Selector resolutions that probed the live page.",
		}),
		cacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "selector_cache_size",
			Help: "Entries currently held by the selector cache.",
		}),
		costEstimate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cost_estimate_dollars",
			Help: "Estimated spend in USD.",
		}, []string{"provider", "op_kind"}),
	}

	reg.MustRegister(
		m.articlesTotal,
		m.publishDuration,
		m.operationDuration,
		m.operationErrors,
		m.fallbackTotal,
		m.cacheHits,
		m.cacheMisses,
		m.cacheSize,
		m.costEstimate,
	)
	return m
}

// ObserveRun records one finished publish run.
func (m *Metrics) ObserveRun(provider, outcome string, d time.Duration) {
	m.articlesTotal.WithLabelValues(outcome, provider).Inc()
	m.publishDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveOperation records one provider operation. errKind is empty for
// successful operations.
func (m *Metrics) ObserveOperation(provider, operation string, d time.Duration, errKind cms.ErrorKind) {
	m.operationDuration.WithLabelValues(operation, provider).Observe(d.Seconds())
	if errKind != "" {
		m.operationErrors.WithLabelValues(operation, provider, string(errKind)).Inc()
	}
}

// ObserveFallback records one provider failover.
func (m *Metrics) ObserveFallback(from, to, reason string) {
	m.fallbackTotal.WithLabelValues(from, to, reason).Inc()
}

// AddCost accrues an estimated dollar amount.
func (m *Metrics) AddCost(provider, opKind string, dollars float64) {
	if dollars <= 0 {
		return
	}
	m.costEstimate.WithLabelValues(provider, opKind).Add(dollars)
}

// CacheHit implements the selector cache's observer.
func (m *Metrics) CacheHit() {
	m.cacheHits.Inc()
}

// CacheMiss implements the selector cache's observer.
func (m *Metrics) CacheMiss() {
	m.cacheMisses.Inc()
}

// CacheSize implements the selector cache's observer.
func (m *Metrics) CacheSize(n int) {
	m.cacheSize.Set(float64(n))
}

// FailureOutcome maps a taxonomy kind to an articles_total outcome label.
func FailureOutcome(kind cms.ErrorKind) string {
	if kind == "" {
		return "failure"
	}
	return strings.ToLower(string(kind))
}
