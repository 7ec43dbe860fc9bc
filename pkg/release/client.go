package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chartline/release-markers/pkg/pagecache"
	"github.com/chartline/release-markers/pkg/query"
)

// Prometheus metrics for release page fetches.
var (
	pageFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "release_page_fetches_total",
		Help: "Total release page fetches by status",
	}, []string{"status"})

	pageFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "release_page_fetch_duration_seconds",
		Help:    "Release page fetch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})
)

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("releases endpoint returned %s", e.Status)
}

// Client fetches pages of releases from the collection endpoint.
// Each page is a single attempt; the pipeline has no retry at any level.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	organization string
	pageCache    *pagecache.Store
	logger       zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://app.example.com/api/0".
	BaseURL string

	// Organization is the organization slug the releases belong to.
	Organization string

	// HTTPClient overrides the default HTTP client (for testing).
	HTTPClient *http.Client

	// PageCache optionally caches fetched pages in Redis.
	// Nil disables the transport cache.
	PageCache *pagecache.Store
}

// New creates a release client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Organization == "" {
		return nil, fmt.Errorf("organization is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		organization: cfg.Organization,
		pageCache:    cfg.PageCache,
		logger:       log.With().Str("component", "release-client").Logger(),
	}, nil
}

// FetchPage fetches a single page of releases for the given conditions.
// Pagination position comes from conditions.Cursor; the returned
// PageInfo says whether and where to continue.
func (c *Client) FetchPage(ctx context.Context, cond query.Conditions) ([]Record, PageInfo, error) {
	start := time.Now()
	defer func() {
		pageFetchDuration.Observe(time.Since(start).Seconds())
	}()

	cacheKey := cond.PageKey()

	if c.pageCache != nil {
		entry, err := c.pageCache.Get(ctx, cacheKey)
		if err != nil && err != pagecache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Page cache get error")
		}
		if entry != nil {
			records, err := decodeRecords(entry.Data)
			if err == nil {
				c.logger.Debug().
					Str("key", cacheKey).
					Int("records", len(records)).
					Msg("Page cache hit")
				pageFetchesTotal.WithLabelValues("cached").Inc()
				return records, PageInfo{NextCursor: entry.NextCursor, HasMore: entry.HasMore}, nil
			}
			c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Discarding corrupt page cache entry")
		}
	}

	endpoint := fmt.Sprintf("%s/organizations/%s/releases/", c.baseURL, c.organization)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = cond.Params().Encode()
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("cursor", cond.Cursor).
		Msg("Fetching release page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		pageFetchesTotal.WithLabelValues("network_error").Inc()
		return nil, PageInfo{}, fmt.Errorf("fetch release page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pageFetchesTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Release page fetch error")
		return nil, PageInfo{}, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		pageFetchesTotal.WithLabelValues("read_error").Inc()
		return nil, PageInfo{}, fmt.Errorf("read release page: %w", err)
	}

	records, err := decodeRecords(body)
	if err != nil {
		pageFetchesTotal.WithLabelValues("decode_error").Inc()
		return nil, PageInfo{}, fmt.Errorf("decode release page: %w", err)
	}

	info := ParsePageInfo(resp.Header)
	pageFetchesTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if c.pageCache != nil {
		entry := &pagecache.Entry{
			Data:       body,
			NextCursor: info.NextCursor,
			HasMore:    info.HasMore,
			CachedAt:   time.Now().UTC(),
		}
		if err := c.pageCache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache page")
		}
	}

	return records, info, nil
}

func decodeRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
