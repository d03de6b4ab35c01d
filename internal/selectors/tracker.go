package selectors

import (
	"sort"
	"sync"
	"time"
)

// Tracker accumulates per-operation timing and failure counts for one run.
// Providers record during the session and log the summary when it closes.
// Safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	ops map[string]*opStats
}

type opStats struct {
	count    int
	failures int
	total    time.Duration
	min      time.Duration
	max      time.Duration
}

// OpSummary is one operation's aggregate.
type OpSummary struct {
	Operation string
	Count     int
	Failures  int
	Min       time.Duration
	Max       time.Duration
	Avg       time.Duration
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ops: make(map[string]*opStats)}
}

// Record adds one operation outcome.
func (t *Tracker) Record(operation string, d time.Duration, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.ops[operation]
	if !ok {
		s = &opStats{min: d, max: d}
		t.ops[operation] = s
	}

	s.count++
	if !success {
		s.failures++
	}
	s.total += d
	if d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

// Summary returns the aggregates sorted by operation name.
func (t *Tracker) Summary() []OpSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]OpSummary, 0, len(t.ops))
	for op, s := range t.ops {
		out = append(out, OpSummary{
			Operation: op,
			Count:     s.count,
			Failures:  s.failures,
			Min:       s.min,
			Max:       s.max,
			Avg:       s.total / time.Duration(s.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Reset drops all recorded data.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ops = make(map[string]*opStats)
}
