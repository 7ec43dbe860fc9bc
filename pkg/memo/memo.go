// Package memo provides a controller-scoped memoization cache for page
// fetches. The first caller for a key starts the producer; every later
// caller for the same key, whether the producer is still running or has
// long finished, receives the same shared future. Results persist for
// the cache's lifetime: there is no eviction, no expiry, and no bound.
// The cache is meant to be owned by a single session controller and
// discarded with it, which is what keeps the lack of eviction honest.
package memo

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chartline/release-markers/pkg/release"
)

var (
	memoHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_memo_hits_total",
		Help: "Total memoization cache hits (pending or completed futures reused)",
	})

	memoMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_memo_misses_total",
		Help: "Total memoization cache misses (producer invoked)",
	})
)

// PageResult is the value a memoized page fetch resolves to.
type PageResult struct {
	Records []release.Record
	Info    release.PageInfo
}

// Producer performs the underlying page fetch for a key.
type Producer func() (PageResult, error)

// Future is a single page fetch shared between all callers of one key.
type Future struct {
	done   chan struct{}
	result PageResult
	err    error
}

// Wait blocks until the future resolves or ctx is cancelled. A
// cancelled wait abandons this caller only; the underlying fetch keeps
// running and its result stays available to everyone else.
func (f *Future) Wait(ctx context.Context) (PageResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return PageResult{}, ctx.Err()
	}
}

// Cache memoizes page fetches by key.
type Cache struct {
	mu      sync.Mutex
	futures map[string]*Future
}

// NewCache creates an empty memoization cache.
func NewCache() *Cache {
	return &Cache{futures: make(map[string]*Future)}
}

// GetOrFetch returns the future for key, starting produce on the first
// call. Later calls never invoke produce again, even while the first
// call is still in flight, and even if the producer returned an error.
func (c *Cache) GetOrFetch(key string, produce Producer) *Future {
	c.mu.Lock()
	if f, ok := c.futures[key]; ok {
		c.mu.Unlock()
		memoHits.Inc()
		return f
	}

	f := &Future{done: make(chan struct{})}
	c.futures[key] = f
	c.mu.Unlock()
	memoMisses.Inc()

	go func() {
		f.result, f.err = produce()
		close(f.done)
	}()

	return f
}

// Len reports the number of stored futures.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.futures)
}
