package selectors

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presswork/internal/cms"
	"presswork/internal/testing/mock"
)

type countingObserver struct {
	hits   atomic.Int64
	misses atomic.Int64
	size   atomic.Int64
}

func (o *countingObserver) CacheHit()       { o.hits.Add(1) }
func (o *countingObserver) CacheMiss()      { o.misses.Add(1) }
func (o *countingObserver) CacheSize(n int) { o.size.Store(int64(n)) }

func titleKey() Key {
	return Key{Element: "post_title", Kind: cms.KindWordPress}
}

func TestCacheMissThenHit(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	obs := &countingObserver{}
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute, Clock: clock, Observer: obs})

	var calls int
	resolve := func(ctx context.Context) (string, error) {
		calls++
		return "#title", nil
	}

	sel, cached, err := cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)
	assert.Equal(t, "#title", sel)
	assert.False(t, cached)
	assert.Equal(t, 1, calls)

	sel, cached, err = cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)
	assert.Equal(t, "#title", sel)
	assert.True(t, cached)
	assert.Equal(t, 1, calls, "fresh entry must not re-resolve")

	assert.Equal(t, int64(1), obs.hits.Load())
	assert.Equal(t, int64(1), obs.misses.Load())
	assert.Equal(t, int64(1), obs.size.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute, Clock: clock})

	var calls int
	resolve := func(ctx context.Context) (string, error) {
		calls++
		return "#title", nil
	}

	_, _, err := cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)

	// One second shy of the TTL: still fresh.
	clock.Advance(5*time.Minute - time.Second)
	_, cached, err := cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, calls)

	// Past the TTL: expired, re-resolved.
	clock.Advance(2 * time.Second)
	_, cached, err = cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, calls)
}

func TestCacheInvalidateForcesReresolution(t *testing.T) {
	clock := mock.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute, Clock: clock})

	selectorForCall := []string{"#title", ".editor-post-title__input"}
	var calls int
	resolve := func(ctx context.Context) (string, error) {
		sel := selectorForCall[calls]
		calls++
		return sel, nil
	}

	sel, _, err := cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)
	assert.Equal(t, "#title", sel)

	// The cached selector stopped matching; invalidation repeats the probe
	// and the second candidate wins.
	cache.Invalidate(titleKey())
	assert.Equal(t, 0, cache.Len())

	sel, cached, err := cache.Resolve(context.Background(), titleKey(), resolve)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, ".editor-post-title__input", sel)
	assert.Equal(t, 2, calls)
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute})

	var calls int
	failing := func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("no candidate visible")
	}

	_, _, err := cache.Resolve(context.Background(), titleKey(), failing)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	_, _, err = cache.Resolve(context.Background(), titleKey(), failing)
	require.Error(t, err)
	assert.Equal(t, 2, calls, "failures must not be served from cache")
}

func TestCacheCollapsesConcurrentResolutions(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute})

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	resolve := func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "#title", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sel, _, err := cache.Resolve(context.Background(), titleKey(), resolve)
			if err == nil {
				results[i] = sel
			}
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "concurrent resolutions of one key must collapse")
	for _, sel := range results {
		assert.Equal(t, "#title", sel)
	}
}

func TestCacheDistinctKeysDoNotCollide(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute})

	byElement := func(element string) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			return "#" + element, nil
		}
	}

	selTitle, _, err := cache.Resolve(context.Background(), Key{Element: "post_title", Kind: cms.KindWordPress}, byElement("title"))
	require.NoError(t, err)
	selBody, _, err := cache.Resolve(context.Background(), Key{Element: "post_body", Kind: cms.KindWordPress}, byElement("content"))
	require.NoError(t, err)
	selGhost, _, err := cache.Resolve(context.Background(), Key{Element: "post_title", Kind: cms.Kind("ghost")}, byElement("gh-title"))
	require.NoError(t, err)

	assert.Equal(t, "#title", selTitle)
	assert.Equal(t, "#content", selBody)
	assert.Equal(t, "#gh-title", selGhost)
	assert.Equal(t, 3, cache.Len())
}

func TestCacheDisabledWithZeroTTL(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: 0})

	var calls int
	resolve := func(ctx context.Context) (string, error) {
		calls++
		return "#title", nil
	}

	for i := 0; i < 3; i++ {
		_, cached, err := cache.Resolve(context.Background(), titleKey(), resolve)
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, cache.Len())
}

func TestCachePurge(t *testing.T) {
	cache := NewCache(CacheConfig{TTL: 5 * time.Minute})

	_, _, err := cache.Resolve(context.Background(), titleKey(), func(ctx context.Context) (string, error) {
		return "#title", nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}
