// Package aggregator merges heterogeneous detector outputs into one ranked
// result set. It is a pure merge step: nothing is dropped except by explicit
// truncation.
package aggregator

import (
	"sort"

	"anomaly-engine/internal/anomaly"
)

// Result carries the ranked list plus non-destructive groupings. Groupings
// index into copies of the records; the full ranked list stays intact.
type Result struct {
	Anomalies   []anomaly.Anomaly                             `json:"anomalies"`
	ByMethod    map[anomaly.DetectionMethod][]anomaly.Anomaly `json:"by_method"`
	ByOperation map[string][]anomaly.Anomaly                  `json:"by_operation,omitempty"`
	ByService   map[string][]anomaly.Anomaly                  `json:"by_service,omitempty"`
}

// Options controls grouping and truncation.
type Options struct {
	// MaxResults truncates the ranked list when positive. Truncation happens
	// after sorting and applies to the flat list only.
	MaxResults       int
	GroupByOperation bool
	GroupByService   bool
}

// Merge concatenates detector outputs, ranks them by score descending with
// deterministic tie-breaking, groups and truncates.
func Merge(lists [][]anomaly.Anomaly, opts Options) Result {
	var merged []anomaly.Anomaly
	for _, list := range lists {
		merged = append(merged, list...)
	}
	Rank(merged)

	// Groupings see the full ranked list; MaxResults trims the flat list only.
	result := Result{
		ByMethod: make(map[anomaly.DetectionMethod][]anomaly.Anomaly),
	}
	for _, a := range merged {
		result.ByMethod[a.Method] = append(result.ByMethod[a.Method], a)
	}
	if opts.GroupByOperation {
		result.ByOperation = groupBy(merged, func(a anomaly.Anomaly) string { return a.Operation })
	}
	if opts.GroupByService {
		result.ByService = groupBy(merged, func(a anomaly.Anomaly) string { return a.Service })
	}

	if opts.MaxResults > 0 && len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}
	result.Anomalies = merged
	return result
}

// Rank sorts in place: score descending, ties by timestamp ascending, then
// method and subject so concurrent detector output always lands in the same
// order.
func Rank(anomalies []anomaly.Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		a, b := anomalies[i], anomalies[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Subject < b.Subject
	})
}

func groupBy(anomalies []anomaly.Anomaly, key func(anomaly.Anomaly) string) map[string][]anomaly.Anomaly {
	groups := make(map[string][]anomaly.Anomaly)
	for _, a := range anomalies {
		k := key(a)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], a)
	}
	return groups
}
