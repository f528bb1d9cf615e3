// Package detector implements the independent detection strategies. Every
// detector is a pure computation over samples already fetched by the caller;
// insufficient or degenerate data produces zero anomalies, never an error.
package detector

import (
	"math"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/source"
	"anomaly-engine/internal/stats"
)

// Counters only increase except on process restart or rollover; a drop to
// below half of the previous value is treated as a reset.
const resetDropRatio = 0.5

// minCounterSamples is the floor below which a counter series yields nothing.
const minCounterSamples = 5

// minResetIntervals is the floor for reset-interval statistics.
const minResetIntervals = 3

// Reset marks one detected counter reset.
type Reset struct {
	Index     int
	FromValue float64
	ToValue   float64
}

// CounterOptions configures AnalyzeCounterSeries.
type CounterOptions struct {
	ZScoreThreshold float64
}

func (o *CounterOptions) withDefaults() {
	if o.ZScoreThreshold <= 0 {
		o.ZScoreThreshold = 3
	}
}

// AnalyzeCounterSeries detects resets, anomalous reset-aware rates and
// anomalous reset intervals in one counter series. Resets are always
// reported; rate and interval anomalies are subject to the z-score
// threshold. Fewer than 5 valid points yields an empty result.
func AnalyzeCounterSeries(metric string, points []source.CounterPoint, opts CounterOptions) []anomaly.Anomaly {
	opts.withDefaults()

	points = filterCounterPoints(points)
	if len(points) < minCounterSamples {
		return nil
	}

	resets := detectResets(points)
	resetIndex := make(map[int]bool, len(resets))
	for _, r := range resets {
		resetIndex[r.Index] = true
	}

	// Reset-aware rate series: reset indices contribute no rate entry.
	var rates []float64
	var rateIdx []int
	for i := 1; i < len(points); i++ {
		if resetIndex[i] {
			continue
		}
		delta := points[i].Timestamp.Sub(points[i-1].Timestamp).Seconds()
		if delta <= 0 {
			continue
		}
		rates = append(rates, (points[i].Value-points[i-1].Value)/delta)
		rateIdx = append(rateIdx, i)
	}

	var anomalies []anomaly.Anomaly

	if len(rates) > 0 {
		w := stats.ComputeWindow(rates)
		if w.StdDev != 0 {
			for j, rate := range rates {
				z := stats.ZScore(rate, w.Mean, w.StdDev)
				if math.Abs(z) > opts.ZScoreThreshold {
					anomalies = append(anomalies, anomaly.Anomaly{
						Timestamp:     points[rateIdx[j]].Timestamp,
						Subject:       metric,
						Value:         rate,
						ExpectedValue: anomaly.Float(w.Mean),
						Deviation:     anomaly.Float(rate - w.Mean),
						ZScore:        anomaly.Float(z),
						Threshold:     opts.ZScoreThreshold,
						Method:        anomaly.MethodRateZScore,
						Score:         math.Abs(z),
					})
				}
			}
		}
	}

	anomalies = append(anomalies, resetIntervalAnomalies(metric, points, resets, opts.ZScoreThreshold)...)

	for _, r := range resets {
		score := 1.0
		if r.FromValue > 0 {
			score = (r.FromValue - r.ToValue) / r.FromValue
		}
		anomalies = append(anomalies, anomaly.Anomaly{
			Timestamp:     points[r.Index].Timestamp,
			Subject:       metric,
			Value:         r.ToValue,
			ExpectedValue: anomaly.Float(r.FromValue),
			Deviation:     anomaly.Float(anomaly.ResetDeviation),
			Threshold:     resetDropRatio,
			Method:        anomaly.MethodReset,
			Score:         score,
		})
	}

	return anomalies
}

func detectResets(points []source.CounterPoint) []Reset {
	var resets []Reset
	for i := 1; i < len(points); i++ {
		if points[i].Value < points[i-1].Value*resetDropRatio {
			resets = append(resets, Reset{
				Index:     i,
				FromValue: points[i-1].Value,
				ToValue:   points[i].Value,
			})
		}
	}
	return resets
}

// resetIntervalAnomalies flags reset intervals far from the typical
// restart cadence. Needs at least two resets and three intervals.
func resetIntervalAnomalies(metric string, points []source.CounterPoint, resets []Reset, threshold float64) []anomaly.Anomaly {
	if len(resets) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(resets)-1)
	for i := 1; i < len(resets); i++ {
		intervals = append(intervals, points[resets[i].Index].Timestamp.Sub(points[resets[i-1].Index].Timestamp).Seconds())
	}
	if len(intervals) < minResetIntervals {
		return nil
	}

	w := stats.ComputeWindow(intervals)
	if w.StdDev == 0 {
		return nil
	}

	var anomalies []anomaly.Anomaly
	for i, interval := range intervals {
		z := stats.ZScore(interval, w.Mean, w.StdDev)
		if math.Abs(z) > threshold {
			anomalies = append(anomalies, anomaly.Anomaly{
				Timestamp:     points[resets[i+1].Index].Timestamp,
				Subject:       metric,
				Value:         interval,
				ExpectedValue: anomaly.Float(w.Mean),
				Deviation:     anomaly.Float(interval - w.Mean),
				ZScore:        anomaly.Float(z),
				Threshold:     threshold,
				Method:        anomaly.MethodResetInterval,
				Score:         math.Abs(z),
			})
		}
	}
	return anomalies
}

func filterCounterPoints(points []source.CounterPoint) []source.CounterPoint {
	valid := make([]source.CounterPoint, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Timestamp.IsZero() {
			continue
		}
		valid = append(valid, p)
	}
	return valid
}
