// Package query defines the release query conditions, their wire
// serialization, and the canonical cache key derived from them.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// utcFormat is the wire format for absolute time bounds.
// The endpoint expects UTC date strings without a zone designator.
const utcFormat = "2006-01-02T15:04:05"

// Conditions describes one release query. All fields except Cursor are
// fixed for the duration of a fetch cycle; Cursor advances page by page.
type Conditions struct {
	// ProjectIDs scopes the query to the given projects.
	ProjectIDs []int

	// Environments scopes the query to the given environments.
	Environments []string

	// Start and End bound the query to an absolute time range.
	// Mutually exclusive with StatsPeriod.
	Start *time.Time
	End   *time.Time

	// StatsPeriod is a relative time range such as "14d" or "24h".
	StatsPeriod string

	// Cursor is the opaque pagination token for the next page.
	// Empty for the first page. Excluded from the canonical key.
	Cursor string
}

// Params serializes the conditions into endpoint query parameters.
func (c Conditions) Params() url.Values {
	params := url.Values{}

	for _, id := range c.ProjectIDs {
		params.Add("project", strconv.Itoa(id))
	}
	for _, env := range c.Environments {
		params.Add("environment", env)
	}

	if c.Start != nil {
		params.Set("start", c.Start.UTC().Format(utcFormat))
	}
	if c.End != nil {
		params.Set("end", c.End.UTC().Format(utcFormat))
	}
	if c.StatsPeriod != "" {
		params.Set("statsPeriod", c.StatsPeriod)
	}
	if c.Cursor != "" {
		params.Set("cursor", c.Cursor)
	}

	return params
}

// Key generates the canonical cache key for the conditions.
// Two condition sets with equal values always produce the same key
// regardless of how they were constructed: fields appear in a fixed
// order and set-valued fields are sorted. Cursor is deliberately
// excluded, pagination position is not part of the query's identity.
//
// Format: releases:project=1,2:env=prod:period=14d
func (c Conditions) Key() string {
	parts := []string{"releases"}

	if len(c.ProjectIDs) > 0 {
		ids := make([]int, len(c.ProjectIDs))
		copy(ids, c.ProjectIDs)
		sort.Ints(ids)

		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = strconv.Itoa(id)
		}
		parts = append(parts, "project="+strings.Join(strs, ","))
	}

	if len(c.Environments) > 0 {
		envs := make([]string, len(c.Environments))
		copy(envs, c.Environments)
		sort.Strings(envs)
		parts = append(parts, "env="+strings.Join(envs, ","))
	}

	if c.Start != nil {
		parts = append(parts, "start="+c.Start.UTC().Format(utcFormat))
	}
	if c.End != nil {
		parts = append(parts, "end="+c.End.UTC().Format(utcFormat))
	}
	if c.StatsPeriod != "" {
		parts = append(parts, "period="+c.StatsPeriod)
	}

	return strings.Join(parts, ":")
}

// PageKey generates the memoization key for one page fetch under the
// conditions. Unlike Key, pagination position matters here: the same
// query at different cursors is a different page fetch.
func (c Conditions) PageKey() string {
	if c.Cursor == "" {
		return c.Key()
	}
	return fmt.Sprintf("%s:cursor=%s", c.Key(), c.Cursor)
}

// WithCursor returns a copy of the conditions positioned at the given
// cursor. The receiver is not modified.
func (c Conditions) WithCursor(cursor string) Conditions {
	next := c
	next.Cursor = cursor
	return next
}
