package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presswork/internal/cms"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("dom", OutcomeSuccess, 45*time.Second)
	m.ObserveRun("dom", OutcomeSuccess, 50*time.Second)
	m.ObserveRun("vision", "auth_rejected", 12*time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.articlesTotal.WithLabelValues(OutcomeSuccess, "dom")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.articlesTotal.WithLabelValues("auth_rejected", "vision")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.publishDuration, "publish_duration_seconds"))
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveOperation("dom", "set_title", 200*time.Millisecond, "")
	m.ObserveOperation("dom", "set_title", 30*time.Second, cms.ErrElementNotFound)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.operationErrors.WithLabelValues("set_title", "dom", "ELEMENT_NOT_FOUND")))

	// The success must not have produced an error sample.
	require.Equal(t, 1, testutil.CollectAndCount(m.operationErrors, "operation_errors_total"))
}

func TestObserveFallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFallback("dom", "vision", "PROVIDER_EXHAUSTED")

	err := testutil.CollectAndCompare(m.fallbackTotal, strings.NewReader(`# HELP fallback_total Provider failovers within a run.
# TYPE fallback_total counter
fallback_total{from="dom",reason="PROVIDER_EXHAUSTED",to="vision"} 1
`), "fallback_total")
	require.NoError(t, err)
}

func TestCacheObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CacheMiss()
	m.CacheHit()
	m.CacheHit()
	m.CacheSize(7)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.cacheSize))
}

func TestAddCost(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.AddCost("vision", CostOpInstruction, 0.12)
	m.AddCost("vision", CostOpInstruction, 0.08)
	m.AddCost("dom", CostOpRun, 0)

	assert.InDelta(t, 0.20, testutil.ToFloat64(m.costEstimate.WithLabelValues("vision", CostOpInstruction)), 1e-9)
	// Zero amounts produce no sample at all.
	assert.Equal(t, 1, testutil.CollectAndCount(m.costEstimate, "cost_estimate_dollars"))
}

func TestFailureOutcome(t *testing.T) {
	assert.Equal(t, "safety_blocked", FailureOutcome(cms.ErrSafetyBlocked))
	assert.Equal(t, "timeout", FailureOutcome(cms.ErrTimeout))
	assert.Equal(t, "failure", FailureOutcome(""))
}

func TestCostEstimator(t *testing.T) {
	e := DefaultCostEstimator()

	assert.InDelta(t, DefaultDOMRunCost, e.EstimateDOM(), 1e-9)

	got := e.EstimateVision(3, 10000)
	want := DefaultVisionBaseCost + 3*DefaultVisionImageCost + 10000*DefaultVisionTokenCost
	assert.InDelta(t, want, got, 1e-9)

	// A run with no screenshots or tokens still pays the base rate.
	assert.InDelta(t, DefaultVisionBaseCost, e.EstimateVision(0, 0), 1e-9)
}

func TestRegistersAgainstInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveRun("dom", OutcomeSuccess, time.Minute)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "articles_total")
	assert.Contains(t, names, "publish_duration_seconds")
}
