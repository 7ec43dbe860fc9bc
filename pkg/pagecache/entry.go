// Package pagecache provides an optional Redis-backed cache for fetched
// release pages, keyed by the canonical condition key plus cursor.
package pagecache

import (
	"encoding/json"
	"time"
)

// Entry is one cached release page.
type Entry struct {
	// Data is the page body: the JSON array of release records.
	Data json.RawMessage `json:"data"`

	// NextCursor is the pagination cursor for the following page.
	NextCursor string `json:"next_cursor"`

	// HasMore reports whether a following page existed at fetch time.
	HasMore bool `json:"has_more"`

	// CachedAt is when the page was stored.
	CachedAt time.Time `json:"cached_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
