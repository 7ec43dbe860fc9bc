package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/chartline/release-markers/internal/testutil"
	"github.com/chartline/release-markers/pkg/pagecache"
	"github.com/chartline/release-markers/pkg/query"
	"github.com/chartline/release-markers/pkg/release"
	"github.com/chartline/release-markers/pkg/series"
	"github.com/chartline/release-markers/pkg/session"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping container-backed test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// waitForState polls until the controller reaches want or the deadline passes.
func waitForState(t *testing.T, ctrl *session.Controller, want session.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Controller never reached state %q (currently %q)", want, ctrl.State())
}

// TestFullPipeline runs the whole stack against a mock releases
// endpoint: server → client → orchestrator → controller → snapshots.
func TestFullPipeline(t *testing.T) {
	mock := testutil.NewMockReleaseServer()
	defer mock.Close()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.AddPage(testutil.MockPage{
		Cursor: "",
		Releases: []testutil.MockRelease{
			{Version: "frontend@1.0.0", Date: now},
			{Version: "frontend@2.0.0", Date: now.Add(24 * time.Hour)},
		},
		NextCursor: "0:100:0",
	})
	mock.AddPage(testutil.MockPage{
		Cursor: "0:100:0",
		Releases: []testutil.MockRelease{
			{Version: "frontend@3.0.0", Date: now.Add(48 * time.Hour)},
		},
	})

	client, err := release.New(release.Config{BaseURL: mock.URL(), Organization: "acme"})
	if err != nil {
		t.Fatalf("release.New: %v", err)
	}

	ctrl, err := session.New(session.Config{
		Fetcher:  client,
		Builder:  series.Builder{Organization: "acme"},
		Emphasis: series.EmphasisSet("frontend@2.0.0"),
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	defer ctrl.Close()

	ctrl.SetConditions(query.Conditions{ProjectIDs: []int{1}, StatsPeriod: "14d"})
	waitForState(t, ctrl, session.StateDone)

	snap := ctrl.Snapshot()
	if len(snap.Releases) != 3 {
		t.Fatalf("Expected 3 releases, got %d", len(snap.Releases))
	}
	if len(snap.Series) != 2 {
		t.Fatalf("Expected 2 series, got %d", len(snap.Series))
	}

	normal, emphasized := snap.Series[0], snap.Series[1]
	if len(normal.Markers) != 2 || len(emphasized.Markers) != 1 {
		t.Errorf("Marker counts = %d/%d, want 2/1", len(normal.Markers), len(emphasized.Markers))
	}
	if emphasized.Markers[0].Label != "2.0.0" {
		t.Errorf("Emphasized label = %q, want %q", emphasized.Markers[0].Label, "2.0.0")
	}

	// Cursor advanced through the scripted pages in order.
	cursors := mock.GetCursorsSeen()
	if len(cursors) != 2 || cursors[0] != "" || cursors[1] != "0:100:0" {
		t.Errorf("Cursors seen = %v, want [\"\" 0:100:0]", cursors)
	}
}

// TestPageCacheServesRepeatFetches verifies the Redis page cache keeps
// a repeated fetch off the network.
func TestPageCacheServesRepeatFetches(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockReleaseServer()
	defer mock.Close()

	mock.AddPage(testutil.MockPage{
		Cursor: "",
		Releases: []testutil.MockRelease{
			{Version: "1.0.0", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	})

	store, err := pagecache.NewStore(redisClient, time.Minute)
	if err != nil {
		t.Fatalf("pagecache.NewStore: %v", err)
	}

	client, err := release.New(release.Config{
		BaseURL:      mock.URL(),
		Organization: "acme",
		PageCache:    store,
	})
	if err != nil {
		t.Fatalf("release.New: %v", err)
	}

	ctx := context.Background()
	cond := query.Conditions{ProjectIDs: []int{1}, StatsPeriod: "14d"}

	records, info, err := client.FetchPage(ctx, cond)
	if err != nil {
		t.Fatalf("First FetchPage: %v", err)
	}
	if len(records) != 1 || info.HasMore {
		t.Fatalf("First page = %d records, hasMore=%v", len(records), info.HasMore)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Fatalf("Requests after first fetch = %d, want 1", got)
	}

	records, _, err = client.FetchPage(ctx, cond)
	if err != nil {
		t.Fatalf("Second FetchPage: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Cached page = %d records, want 1", len(records))
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("Requests after cached fetch = %d, want 1 (page served from Redis)", got)
	}
}
