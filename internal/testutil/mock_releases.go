// Package testutil provides testing utilities for the release pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockRelease is one release object served by the mock server.
type MockRelease struct {
	Version string    `json:"version"`
	Date    time.Time `json:"date"`
}

// MockPage is one scripted page of the releases endpoint. Cursor is
// the pagination token that selects this page; the first page has an
// empty cursor. NextCursor, when non-empty, is advertised via the Link
// header with results="true".
type MockPage struct {
	Cursor     string
	Releases   []MockRelease
	NextCursor string
	StatusCode int
	Delay      time.Duration
}

// MockReleaseServer is a configurable mock releases endpoint for
// testing cursor pagination.
type MockReleaseServer struct {
	server *httptest.Server

	mu    sync.RWMutex
	pages map[string]MockPage

	// Tracking
	RequestCount int
	CursorsSeen  []string
	LastQuery    map[string][]string
}

// NewMockReleaseServer creates a mock releases endpoint with no pages
// scripted. Unscripted cursors answer 404.
func NewMockReleaseServer() *MockReleaseServer {
	mock := &MockReleaseServer{
		pages: make(map[string]MockPage),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")

		mock.mu.Lock()
		mock.RequestCount++
		mock.CursorsSeen = append(mock.CursorsSeen, cursor)
		mock.LastQuery = r.URL.Query()
		page, ok := mock.pages[cursor]
		mock.mu.Unlock()

		if !ok {
			http.Error(w, fmt.Sprintf(`{"detail":"no page for cursor %q"}`, cursor), http.StatusNotFound)
			return
		}

		if page.Delay > 0 {
			time.Sleep(page.Delay)
		}

		if page.StatusCode >= 400 {
			http.Error(w, `{"detail":"scripted error"}`, page.StatusCode)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if page.NextCursor != "" {
			w.Header().Set("Link", fmt.Sprintf(
				`<%s?cursor=%s>; rel="next"; results="true"; cursor="%s"`,
				mock.server.URL, page.NextCursor, page.NextCursor))
		} else {
			w.Header().Set("Link", `<`+mock.server.URL+`>; rel="next"; results="false"; cursor=""`)
		}

		releases := page.Releases
		if releases == nil {
			releases = []MockRelease{}
		}
		json.NewEncoder(w).Encode(releases)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockReleaseServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockReleaseServer) Close() {
	m.server.Close()
}

// AddPage scripts one page.
func (m *MockReleaseServer) AddPage(page MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.Cursor] = page
}

// Reset clears tracking counters, keeping scripted pages.
func (m *MockReleaseServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.CursorsSeen = nil
	m.LastQuery = nil
}

// GetRequestCount returns the number of requests served.
func (m *MockReleaseServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetCursorsSeen returns the cursors of all requests in arrival order.
func (m *MockReleaseServer) GetCursorsSeen() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.CursorsSeen))
	copy(out, m.CursorsSeen)
	return out
}
