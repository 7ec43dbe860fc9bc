// Command release-markers runs one release fetch cycle against a
// remote collection endpoint and prints the resulting marker series as
// JSON. Intended for debugging queries and as a wiring reference.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chartline/release-markers/pkg/logging"
	"github.com/chartline/release-markers/pkg/pagecache"
	"github.com/chartline/release-markers/pkg/query"
	"github.com/chartline/release-markers/pkg/release"
	"github.com/chartline/release-markers/pkg/series"
	"github.com/chartline/release-markers/pkg/session"
)

func main() {
	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") != "",
		Output: os.Stderr,
	})

	baseURL := getEnv("API_BASE_URL", "")
	org := getEnv("ORGANIZATION", "")
	if baseURL == "" || org == "" {
		logger.Fatal().Msg("API_BASE_URL and ORGANIZATION are required")
	}

	cond := query.Conditions{
		ProjectIDs:   parseProjects(getEnv("PROJECTS", "")),
		Environments: parseList(getEnv("ENVIRONMENTS", "")),
		StatsPeriod:  getEnv("STATS_PERIOD", "14d"),
	}

	// Optional Redis page cache
	var store *pagecache.Store
	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		var err error
		store, err = pagecache.NewStore(redisClient, 5*time.Minute)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create page cache")
		}
		logger.Info().Str("redis", redisURL).Msg("Page cache enabled")
	}

	// Optional metrics listener
	if metricsAddr := getEnv("METRICS_ADDR", ""); metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("addr", metricsAddr).Msg("Metrics listener started")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	client, err := release.New(release.Config{
		BaseURL:      baseURL,
		Organization: org,
		PageCache:    store,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create release client")
	}

	failed := make(chan error, 1)

	ctrl, err := session.New(session.Config{
		Fetcher:  client,
		Builder:  series.Builder{Organization: org},
		Emphasis: series.EmphasisSet(parseList(getEnv("EMPHASIZE", ""))...),
		Memoize:  true,
		OnError: func(err error) {
			failed <- err
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session controller")
	}
	defer ctrl.Close()

	ctrl.Subscribe(func(snap session.Snapshot) {
		logger.Info().
			Int("releases", len(snap.Releases)).
			Int("series", len(snap.Series)).
			Msg("Snapshot published")
	})

	ctrl.SetConditions(cond)

	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		select {
		case err := <-failed:
			logger.Error().Err(err).Msg("Fetch cycle failed, printing partial results")
			printSnapshot(ctrl.Snapshot())
			os.Exit(1)
		default:
		}

		if ctrl.State() == session.StateDone {
			printSnapshot(ctrl.Snapshot())
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	logger.Fatal().Msg("Timed out waiting for cycle completion")
}

// printSnapshot writes the snapshot as indented JSON to stdout.
func printSnapshot(snap session.Snapshot) {
	out := struct {
		Releases []release.Record      `json:"releases"`
		Series   []series.MarkerSeries `json:"releaseSeries"`
	}{snap.Releases, snap.Series}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode snapshot: %v\n", err)
	}
}

// parseProjects parses a comma-separated list of project IDs.
func parseProjects(s string) []int {
	var out []int
	for _, part := range parseList(s) {
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// parseList splits a comma-separated list, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
