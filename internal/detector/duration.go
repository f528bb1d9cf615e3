package detector

import (
	"math"
	"sort"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/source"
	"anomaly-engine/internal/stats"
)

// minDurationSamples is the floor for the statistical duration criteria.
// The absolute threshold needs no distribution and ignores it.
const minDurationSamples = 5

// DurationOptions configures duration outlier detection.
type DurationOptions struct {
	// AbsoluteThreshold in milliseconds; the absolute criterion is disabled
	// when it is not positive.
	AbsoluteThreshold   float64
	ZScoreThreshold     float64
	PercentileThreshold float64
	IQRMultiplier       float64
	// GroupByOperation partitions samples per operation name before
	// computing statistics, so fast and slow operations never share one
	// distribution. On by default.
	GroupByOperation *bool
}

func (o *DurationOptions) withDefaults() {
	if o.ZScoreThreshold <= 0 {
		o.ZScoreThreshold = 3
	}
	if o.PercentileThreshold <= 0 {
		o.PercentileThreshold = 95
	}
	if o.IQRMultiplier <= 0 {
		o.IQRMultiplier = 1.5
	}
	if o.GroupByOperation == nil {
		v := true
		o.GroupByOperation = &v
	}
}

// AnalyzeDurations runs duration outlier detection over the sample set,
// partitioned per operation unless grouping is disabled.
func AnalyzeDurations(samples []source.DurationSample, opts DurationOptions) []anomaly.Anomaly {
	opts.withDefaults()

	samples = filterDurationSamples(samples)
	if !*opts.GroupByOperation {
		return detectDurationOutliers(samples, opts)
	}

	groups := make(map[string][]source.DurationSample)
	var order []string
	for _, s := range samples {
		if _, seen := groups[s.Operation]; !seen {
			order = append(order, s.Operation)
		}
		groups[s.Operation] = append(groups[s.Operation], s)
	}

	var anomalies []anomaly.Anomaly
	for _, op := range order {
		anomalies = append(anomalies, detectDurationOutliers(groups[op], opts)...)
	}
	return anomalies
}

// detectDurationOutliers applies the four criteria to one homogeneous group.
// Every firing criterion emits its own record; a single slow sample can
// legitimately appear four times.
func detectDurationOutliers(samples []source.DurationSample, opts DurationOptions) []anomaly.Anomaly {
	opts.withDefaults()
	samples = filterDurationSamples(samples)
	if len(samples) == 0 {
		return nil
	}

	var anomalies []anomaly.Anomaly

	if opts.AbsoluteThreshold > 0 {
		for _, s := range samples {
			if s.Duration > opts.AbsoluteThreshold {
				a := durationAnomaly(s, anomaly.MethodAbsoluteThreshold, opts.AbsoluteThreshold)
				a.Score = percentOver(s.Duration, opts.AbsoluteThreshold)
				anomalies = append(anomalies, a)
			}
		}
	}

	if len(samples) < minDurationSamples {
		return anomalies
	}

	durations := make([]float64, len(samples))
	for i, s := range samples {
		durations[i] = s.Duration
	}
	mean := stats.Mean(durations)
	stdDev := stats.StdDev(durations, mean)

	sorted := append([]float64(nil), durations...)
	sort.Float64s(sorted)
	percentileValue := stats.Percentile(sorted, opts.PercentileThreshold)
	lower, upper := stats.IQRBounds(sorted, opts.IQRMultiplier)

	for _, s := range samples {
		if stdDev != 0 {
			z := stats.ZScore(s.Duration, mean, stdDev)
			if math.Abs(z) > opts.ZScoreThreshold {
				a := durationAnomaly(s, anomaly.MethodDurationZScore, opts.ZScoreThreshold)
				a.ExpectedValue = anomaly.Float(mean)
				a.Deviation = anomaly.Float(s.Duration - mean)
				a.ZScore = anomaly.Float(z)
				a.Score = math.Abs(z)
				anomalies = append(anomalies, a)
			}
		}

		if s.Duration > percentileValue {
			a := durationAnomaly(s, anomaly.MethodDurationPercentile, percentileValue)
			a.Score = percentOver(s.Duration, percentileValue)
			anomalies = append(anomalies, a)
		}

		if s.Duration > upper {
			a := durationAnomaly(s, anomaly.MethodDurationIQR, upper)
			a.Score = percentOver(s.Duration, upper)
			anomalies = append(anomalies, a)
		} else if s.Duration < lower {
			a := durationAnomaly(s, anomaly.MethodDurationIQR, lower)
			if lower > 0 {
				a.Score = 100 * (lower - s.Duration) / lower
			} else {
				a.Score = lower - s.Duration
			}
			anomalies = append(anomalies, a)
		}
	}

	return anomalies
}

func durationAnomaly(s source.DurationSample, method anomaly.DetectionMethod, threshold float64) anomaly.Anomaly {
	return anomaly.Anomaly{
		Timestamp: s.Timestamp,
		Subject:   durationSubject(s),
		Value:     s.Duration,
		Threshold: threshold,
		Method:    method,
		Service:   s.Service,
		Operation: s.Operation,
		TraceID:   s.TraceID,
		SpanID:    s.SpanID,
	}
}

func durationSubject(s source.DurationSample) string {
	switch {
	case s.Service != "" && s.Operation != "":
		return s.Service + "/" + s.Operation
	case s.Operation != "":
		return s.Operation
	case s.Service != "":
		return s.Service
	default:
		return s.SpanID
	}
}

func filterDurationSamples(samples []source.DurationSample) []source.DurationSample {
	valid := make([]source.DurationSample, 0, len(samples))
	for _, s := range samples {
		if math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) || s.Duration < 0 || s.Timestamp.IsZero() {
			continue
		}
		valid = append(valid, s)
	}
	return valid
}
