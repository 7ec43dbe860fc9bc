// Package series turns accumulated release records into render-ready
// marker series: one lower-opacity series for normal releases and one
// higher-opacity series for emphasized releases.
package series

import "github.com/chartline/release-markers/pkg/release"

// Partition splits records into normal and emphasized subsets. A record
// is emphasized iff its version is in the emphasis set. Both outputs
// preserve the input's relative order; together they cover the input
// exactly, with nothing shared and nothing dropped.
func Partition(records []release.Record, emphasis map[string]struct{}) (normal, emphasized []release.Record) {
	for _, rec := range records {
		if _, ok := emphasis[rec.Version]; ok {
			emphasized = append(emphasized, rec)
		} else {
			normal = append(normal, rec)
		}
	}
	return normal, emphasized
}

// EmphasisSet builds an emphasis set from version strings.
func EmphasisSet(versions ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	return set
}
