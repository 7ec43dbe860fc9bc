// Package fetch drives the cursor-based pagination loop over the
// release collection endpoint. Pages are strictly sequential because
// each page's cursor comes from the previous page's metadata; after
// every page the full accumulated record sequence is published so the
// consumer can render progressively instead of waiting for completion.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/chartline/release-markers/pkg/memo"
	"github.com/chartline/release-markers/pkg/query"
	"github.com/chartline/release-markers/pkg/release"
)

var (
	cyclePagesFetched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "release_cycle_pages",
		Help:    "Pages fetched per completed cycle",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "release_cycle_duration_seconds",
		Help:    "Duration of a full fetch cycle in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	cycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "release_cycle_errors_total",
		Help: "Fetch cycles aborted by a page fetch error",
	})
)

// PageFetcher fetches a single page of releases for fixed conditions.
type PageFetcher interface {
	FetchPage(ctx context.Context, cond query.Conditions) ([]release.Record, release.PageInfo, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, cond query.Conditions) ([]release.Record, release.PageInfo, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc) FetchPage(ctx context.Context, cond query.Conditions) ([]release.Record, release.PageInfo, error) {
	return f(ctx, cond)
}

// Sink receives the full accumulated record sequence after each page.
// The slice grows monotonically within one run and must not be mutated
// by the receiver.
type Sink func(releases []release.Record)

// Runner drives one or more pagination runs against a PageFetcher.
type Runner struct {
	fetcher PageFetcher
	memo    *memo.Cache // nil disables memoization
}

// NewRunner creates a runner. A nil memo cache disables memoization:
// every page fetch is then a fresh, non-shared call.
func NewRunner(fetcher PageFetcher, memoCache *memo.Cache) *Runner {
	return &Runner{fetcher: fetcher, memo: memoCache}
}

// Run executes one full pagination cycle for the given conditions,
// publishing the accumulated records to sink after each page.
//
// Cancellation is cooperative: ctx is checked immediately after each
// page fetch resolves, before any accumulation or publication. A page
// that resolves after cancellation is discarded. Cancellation is a
// normal terminal condition, reported as ctx.Err() so callers can tell
// it apart from fetch failures.
//
// On a fetch error the loop aborts at once. Records already published
// stay published; the error is returned exactly once.
func (r *Runner) Run(ctx context.Context, cond query.Conditions, sink Sink) ([]release.Record, error) {
	start := time.Now()
	logger := log.With().Str("component", "fetch-runner").Str("key", cond.Key()).Logger()

	var accumulated []release.Record
	pages := 0
	cursor := ""

	for {
		pageCond := cond.WithCursor(cursor)

		records, info, err := r.fetchPage(ctx, pageCond)

		// The cancellation check sits between the page await and any
		// mutation or publication: a late response must not leak into
		// a superseded cycle.
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Debug().
				Int("pages", pages).
				Msg("Cycle cancelled, discarding in-flight page")
			return accumulated, ctxErr
		}

		if err != nil {
			cycleErrors.Inc()
			logger.Error().
				Err(err).
				Int("pages", pages).
				Int("releases", len(accumulated)).
				Msg("Page fetch failed, aborting cycle")
			return accumulated, fmt.Errorf("fetch page %d: %w", pages+1, err)
		}

		pages++
		accumulated = append(accumulated, records...)
		sink(accumulated)

		logger.Debug().
			Int("pages", pages).
			Int("releases", len(accumulated)).
			Str("cursor", cursor).
			Bool("has_more", info.HasMore).
			Msg("Page accumulated")

		if !info.HasMore {
			break
		}
		cursor = info.NextCursor
	}

	cyclePagesFetched.Observe(float64(pages))
	cycleDuration.Observe(time.Since(start).Seconds())

	logger.Info().
		Int("pages", pages).
		Int("releases", len(accumulated)).
		Dur("duration", time.Since(start)).
		Msg("Cycle complete")

	return accumulated, nil
}

// fetchPage performs one page fetch, through the memoization cache when
// one is attached.
func (r *Runner) fetchPage(ctx context.Context, cond query.Conditions) ([]release.Record, release.PageInfo, error) {
	if r.memo == nil {
		return r.fetcher.FetchPage(ctx, cond)
	}

	future := r.memo.GetOrFetch(cond.PageKey(), func() (memo.PageResult, error) {
		// The producer runs detached from any one cycle's context so
		// its result stays usable by later cycles with the same key.
		records, info, err := r.fetcher.FetchPage(context.Background(), cond)
		if err != nil {
			return memo.PageResult{}, err
		}
		return memo.PageResult{Records: records, Info: info}, nil
	})

	result, err := future.Wait(ctx)
	if err != nil {
		return nil, release.PageInfo{}, err
	}
	return result.Records, result.Info, nil
}
