package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// DefaultPercentileRanks are the ranks materialized for every computed or
// fetched window.
var DefaultPercentileRanks = []float64{25, 50, 75, 90, 95, 99}

// Window summarizes one time window of a numeric field. It is computed per
// call and never persisted.
type Window struct {
	Count       int                 `json:"count"`
	Mean        float64             `json:"mean"`
	StdDev      float64             `json:"std_dev"`
	Min         float64             `json:"min"`
	Max         float64             `json:"max"`
	Percentiles map[float64]float64 `json:"percentiles"`
}

// ComputeWindow builds a Window over values with DefaultPercentileRanks.
// values must not be empty; the input slice is not modified.
func ComputeWindow(values []float64) Window {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean := Mean(sorted)
	percentiles := make(map[float64]float64, len(DefaultPercentileRanks))
	for _, rank := range DefaultPercentileRanks {
		percentiles[rank] = Percentile(sorted, rank)
	}

	return Window{
		Count:       len(sorted),
		Mean:        mean,
		StdDev:      StdDev(sorted, mean),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		Percentiles: percentiles,
	}
}

// PercentileAt looks up a materialized percentile rank.
func (w Window) PercentileAt(rank float64) (float64, bool) {
	v, ok := w.Percentiles[rank]
	return v, ok
}

// windowJSON is the wire shape of Window. JSON object keys must be strings,
// so percentile ranks are formatted via strconv on the way out and parsed
// back on the way in.
type windowJSON struct {
	Count       int                `json:"count"`
	Mean        float64            `json:"mean"`
	StdDev      float64            `json:"std_dev"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Percentiles map[string]float64 `json:"percentiles"`
}

func (w Window) MarshalJSON() ([]byte, error) {
	out := windowJSON{
		Count:       w.Count,
		Mean:        w.Mean,
		StdDev:      w.StdDev,
		Min:         w.Min,
		Max:         w.Max,
		Percentiles: make(map[string]float64, len(w.Percentiles)),
	}
	for rank, v := range w.Percentiles {
		out.Percentiles[strconv.FormatFloat(rank, 'f', -1, 64)] = v
	}
	return json.Marshal(out)
}

func (w *Window) UnmarshalJSON(data []byte) error {
	var in windowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	percentiles := make(map[float64]float64, len(in.Percentiles))
	for key, v := range in.Percentiles {
		rank, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return fmt.Errorf("invalid percentile rank %q: %w", key, err)
		}
		percentiles[rank] = v
	}
	w.Count = in.Count
	w.Mean = in.Mean
	w.StdDev = in.StdDev
	w.Min = in.Min
	w.Max = in.Max
	w.Percentiles = percentiles
	return nil
}
