// Package session owns the lifecycle of release fetch cycles. A
// controller reacts to condition changes by cancelling the active cycle
// and starting a fresh one, publishes a snapshot to its subscribers on
// every accepted update, and keeps exactly one orchestrator run alive
// at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chartline/release-markers/pkg/fetch"
	"github.com/chartline/release-markers/pkg/memo"
	"github.com/chartline/release-markers/pkg/query"
	"github.com/chartline/release-markers/pkg/release"
	"github.com/chartline/release-markers/pkg/series"
)

var (
	cyclesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_session_cycles_started_total",
		Help: "Fetch cycles started by condition changes",
	})

	cyclesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_session_cycles_superseded_total",
		Help: "Fetch cycles cancelled by a newer condition change or teardown",
	})

	snapshotsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_session_snapshots_total",
		Help: "Snapshots published to subscribers",
	})
)

// ErrFetchFailed is the generic failure signal surfaced when a cycle
// aborts. The underlying cause is attached for callers that unwrap,
// but the signal itself makes no distinction by cause.
var ErrFetchFailed = errors.New("failed to fetch releases")

// State is the controller's position in the cycle state machine.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateUpdating State = "updating"
	StateDone     State = "done"
	StateErrored  State = "errored"
)

// Snapshot is what subscribers receive on every accepted update.
// Releases grows monotonically within one cycle and is replaced
// wholesale when a new cycle starts; Series is re-derived each time and
// holds at most two entries, normal partition first.
type Snapshot struct {
	Releases []release.Record
	Series   []series.MarkerSeries
}

// Subscriber receives published snapshots. Subscribers are invoked
// sequentially in registration order and must not call back into the
// controller.
type Subscriber func(Snapshot)

// Config holds the controller configuration.
type Config struct {
	// Fetcher fetches single release pages.
	Fetcher fetch.PageFetcher

	// Builder converts record partitions into marker series.
	Builder series.Builder

	// Emphasis marks versions that render with higher visual weight.
	Emphasis map[string]struct{}

	// Memoize enables the controller-scoped page memoization cache.
	// Identical conditions then reuse in-flight or completed page
	// fetches instead of issuing new ones.
	Memoize bool

	// OnError receives the single generic failure signal of an aborted
	// cycle. Optional.
	OnError func(error)
}

// Controller drives fetch cycles and publishes snapshots.
type Controller struct {
	mu          sync.Mutex
	cfg         Config
	runner      *fetch.Runner
	memo        *memo.Cache
	emphasis    map[string]struct{}
	state       State
	snapshot    Snapshot
	generation  int
	cancel      context.CancelFunc
	subscribers map[int]Subscriber
	order       []int
	nextSubID   int
	closed      bool
	logger      zerolog.Logger
}

// New creates a controller. The memoization cache, when enabled, lives
// and dies with the controller; it is never shared across instances.
func New(cfg Config) (*Controller, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}

	var memoCache *memo.Cache
	if cfg.Memoize {
		memoCache = memo.NewCache()
	}

	return &Controller{
		cfg:         cfg,
		runner:      fetch.NewRunner(cfg.Fetcher, memoCache),
		memo:        memoCache,
		emphasis:    cfg.Emphasis,
		state:       StateIdle,
		subscribers: make(map[int]Subscriber),
		logger:      log.With().Str("component", "release-session").Logger(),
	}, nil
}

// Subscribe registers a snapshot subscriber and returns its
// unsubscribe function.
func (c *Controller) Subscribe(fn Subscriber) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.order = append(c.order, id)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// SetConditions starts a fresh fetch cycle for cond, cancelling any
// active cycle first. The previous cycle's accumulation is discarded
// and never appears in later snapshots.
func (c *Controller) SetConditions(cond query.Conditions) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.supersedeLocked()
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateFetching
	c.snapshot = Snapshot{}
	cyclesStarted.Inc()

	c.logger.Debug().
		Str("key", cond.Key()).
		Int("generation", gen).
		Msg("Starting fetch cycle")

	c.publishLocked()
	c.mu.Unlock()

	go c.runCycle(ctx, gen, cond)
}

// SetReleases publishes a pre-fetched release list directly, skipping
// the fetch loop entirely: no network, no cache interaction. Any
// active cycle is cancelled.
func (c *Controller) SetReleases(records []release.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.supersedeLocked()
	c.state = StateDone
	c.snapshot = Snapshot{
		Releases: records,
		Series:   c.buildSeriesLocked(records),
	}
	c.publishLocked()
}

// SetEmphasis replaces the emphasis set and re-partitions the current
// accumulation without refetching.
func (c *Controller) SetEmphasis(emphasis map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.emphasis = emphasis
	c.snapshot.Series = c.buildSeriesLocked(c.snapshot.Releases)
	c.publishLocked()
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the last published snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Close cancels any active cycle and stops all further publication.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.supersedeLocked()
	c.closed = true
	c.state = StateIdle
}

// runCycle drives one orchestrator run. Publications and the terminal
// transition are dropped when the cycle has been superseded.
func (c *Controller) runCycle(ctx context.Context, gen int, cond query.Conditions) {
	accumulated, err := c.runner.Run(ctx, cond, func(records []release.Record) {
		c.publishCycleUpdate(gen, records)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		// A newer cycle owns the state now; this one's tail is noise.
		return
	}

	switch {
	case err == nil:
		c.state = StateDone
	case errors.Is(err, context.Canceled):
		// Normal terminal condition, no notification.
	default:
		c.state = StateErrored
		c.logger.Error().
			Err(err).
			Int("releases", len(accumulated)).
			Msg("Fetch cycle failed, partial results retained")
		if c.cfg.OnError != nil {
			c.cfg.OnError(fmt.Errorf("%w: %v", ErrFetchFailed, err))
		}
	}
}

// publishCycleUpdate is the orchestrator's sink for one cycle.
func (c *Controller) publishCycleUpdate(gen int, records []release.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.closed {
		return
	}

	c.state = StateUpdating
	c.snapshot = Snapshot{
		Releases: records,
		Series:   c.buildSeriesLocked(records),
	}
	c.publishLocked()
	c.state = StateFetching
}

// buildSeriesLocked derives the marker series for records under the
// current emphasis set: normal partition first at low opacity, then
// the emphasized partition, empty partitions skipped entirely.
func (c *Controller) buildSeriesLocked(records []release.Record) []series.MarkerSeries {
	normal, emphasized := series.Partition(records, c.emphasis)

	var out []series.MarkerSeries
	if len(normal) > 0 {
		out = append(out, c.cfg.Builder.Build(normal, series.NormalOpacity))
	}
	if len(emphasized) > 0 {
		out = append(out, c.cfg.Builder.Build(emphasized, series.EmphasizedOpacity))
	}
	return out
}

// publishLocked notifies subscribers of the current snapshot.
func (c *Controller) publishLocked() {
	snapshotsPublished.Inc()
	for _, id := range c.order {
		if fn, ok := c.subscribers[id]; ok {
			fn(c.snapshot)
		}
	}
}

// supersedeLocked invalidates the active cycle, if any.
func (c *Controller) supersedeLocked() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		cyclesSuperseded.Inc()
	}
}
