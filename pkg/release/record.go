// Package release provides the release record model and the HTTP client
// for fetching pages of releases from the collection endpoint.
package release

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/peterhellberg/link"
)

// Record is a single release as returned by the collection endpoint.
// Version and Date are the only fields the pipeline interprets; the
// full response object is retained in Raw for downstream consumers.
type Record struct {
	Version string
	Date    time.Time
	Raw     json.RawMessage
}

// UnmarshalJSON decodes the interpreted fields and keeps the original
// object bytes in Raw.
func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		Version string    `json:"version"`
		Date    time.Time `json:"date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Version = aux.Version
	r.Date = aux.Date
	r.Raw = append(r.Raw[:0], data...)
	return nil
}

// MarshalJSON emits the original object bytes when present.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(struct {
		Version string    `json:"version"`
		Date    time.Time `json:"date"`
	}{r.Version, r.Date})
}

// PageInfo carries the pagination metadata of one fetched page.
type PageInfo struct {
	// NextCursor is the opaque token for the following page.
	NextCursor string

	// HasMore reports whether a following page exists.
	HasMore bool
}

// ParsePageInfo extracts pagination metadata from a response's Link
// header. The endpoint signals continuation via a "next" relation
// carrying cursor and results attributes. An absent header, a missing
// next relation, results != "true", or a missing cursor all mean the
// same thing: no more pages. Malformed headers are never an error.
func ParsePageInfo(h http.Header) PageInfo {
	group := link.ParseHeader(h)
	if group == nil {
		return PageInfo{}
	}

	next, ok := group["next"]
	if !ok {
		return PageInfo{}
	}
	if next.Extra["results"] != "true" {
		return PageInfo{}
	}

	cursor := next.Extra["cursor"]
	if cursor == "" {
		return PageInfo{}
	}

	return PageInfo{NextCursor: cursor, HasMore: true}
}
