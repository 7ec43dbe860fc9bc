package series

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/chartline/release-markers/pkg/release"
)

// Opacities for the two partitions. Normal releases render faint so
// emphasized ones stand out.
const (
	NormalOpacity     = 0.3
	EmphasizedOpacity = 0.8
)

// NavigationTarget describes where a marker click should take the user.
// It is plain data; interpreting it is the rendering collaborator's job.
type NavigationTarget struct {
	Path  string     `json:"path"`
	Query url.Values `json:"query,omitempty"`
}

// TooltipRenderer formats the hover text for one release record.
type TooltipRenderer func(rec release.Record) string

// Marker is a single point-in-time release annotation.
type Marker struct {
	// Position is the release date in milliseconds since the epoch.
	Position int64 `json:"position"`

	// Label is the display form of the version string.
	Label string `json:"label"`

	// Navigation is the release detail view for this marker.
	Navigation NavigationTarget `json:"navigation"`
}

// Style carries the visual weight of a whole series.
type Style struct {
	Opacity    float64 `json:"opacity"`
	ColorToken string  `json:"colorToken,omitempty"`

	// Tooltip is behavior, not data; it never serializes.
	Tooltip TooltipRenderer `json:"-"`
}

// MarkerSeries is one renderable series of release markers.
type MarkerSeries struct {
	Name    string   `json:"name"`
	Markers []Marker `json:"markers"`
	Style   Style    `json:"style"`
}

// Builder converts record partitions into marker series.
type Builder struct {
	// Organization is the slug markers navigate under.
	Organization string

	// ExtraQuery is carried verbatim onto every navigation target.
	ExtraQuery url.Values

	// ProjectID scopes navigation to one project. Only injected when
	// MultiProject is set; single-project deployments have no project
	// selector to satisfy.
	ProjectID    int
	MultiProject bool

	// ColorToken names the chart color for built series.
	ColorToken string

	// Tooltip overrides the default tooltip renderer when non-nil.
	Tooltip TooltipRenderer
}

// shaVersion matches bare 40-char hex commit SHAs used as versions.
var shaVersion = regexp.MustCompile(`^[a-f0-9]{40}$`)

// DisplayVersion normalizes a version string for display: a
// "package@version" identifier shows only the version part, and a bare
// commit SHA is shortened to 12 characters.
func DisplayVersion(version string) string {
	display := version
	for i := 0; i < len(version); i++ {
		if version[i] == '@' {
			display = version[i+1:]
			break
		}
	}
	if shaVersion.MatchString(display) {
		return display[:12]
	}
	return display
}

// Build produces one marker series from a non-empty partition with the
// given opacity. Callers are expected to skip empty partitions; a
// series with zero markers is never published.
func (b Builder) Build(records []release.Record, opacity float64) MarkerSeries {
	markers := make([]Marker, len(records))
	for i, rec := range records {
		markers[i] = Marker{
			Position:   rec.Date.UnixMilli(),
			Label:      DisplayVersion(rec.Version),
			Navigation: b.navigation(rec),
		}
	}

	tooltip := b.Tooltip
	if tooltip == nil {
		tooltip = defaultTooltip
	}

	return MarkerSeries{
		Name:    "Releases",
		Markers: markers,
		Style: Style{
			Opacity:    opacity,
			ColorToken: b.ColorToken,
			Tooltip:    tooltip,
		},
	}
}

// navigation builds the release detail target for one record.
func (b Builder) navigation(rec release.Record) NavigationTarget {
	q := url.Values{}
	for key, vals := range b.ExtraQuery {
		for _, v := range vals {
			q.Add(key, v)
		}
	}
	if b.MultiProject {
		q.Set("project", fmt.Sprintf("%d", b.ProjectID))
	}

	return NavigationTarget{
		Path:  fmt.Sprintf("/organizations/%s/releases/%s/", b.Organization, url.PathEscape(rec.Version)),
		Query: q,
	}
}

// defaultTooltip formats the release date and display version into a
// small text block.
func defaultTooltip(rec release.Record) string {
	return fmt.Sprintf("Release\n%s\n%s",
		DisplayVersion(rec.Version),
		rec.Date.UTC().Format("Jan 2, 2006 3:04 PM UTC"))
}
