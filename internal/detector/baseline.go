package detector

import (
	"context"
	"fmt"
	"math"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/source"
)

const (
	minBaselineCount = 10
	minAnalysisCount = 5
	maxExemplars     = 5
)

// BaselineOptions configures CompareFieldWindows.
type BaselineOptions struct {
	ZScoreThreshold     float64
	PercentileThreshold float64
}

func (o *BaselineOptions) withDefaults() {
	if o.ZScoreThreshold <= 0 {
		o.ZScoreThreshold = 3
	}
	if o.PercentileThreshold <= 0 {
		o.PercentileThreshold = 95
	}
}

// CompareFieldWindows compares the analysis window distribution of one
// numeric field against its baseline window. Fields with too few samples or
// a flat baseline are skipped silently; fetch failures surface as-is.
func CompareFieldWindows(ctx context.Context, src source.TelemetrySource, field string, baseline, analysis source.TimeRange, opts BaselineOptions) ([]anomaly.Anomaly, error) {
	opts.withDefaults()

	base, err := src.FieldWindowStatistics(ctx, field, baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline window for %q: %w", field, err)
	}
	current, err := src.FieldWindowStatistics(ctx, field, analysis)
	if err != nil {
		return nil, fmt.Errorf("analysis window for %q: %w", field, err)
	}

	if base.Count < minBaselineCount || current.Count < minAnalysisCount {
		return nil, nil
	}
	if base.StdDev == 0 {
		return nil, nil
	}

	z := (current.Mean - base.Mean) / base.StdDev
	zFired := math.Abs(z) > opts.ZScoreThreshold

	percentileValue, haveRank := base.PercentileAt(opts.PercentileThreshold)
	percentileFired := haveRank && current.Mean > percentileValue

	if !zFired && !percentileFired {
		return nil, nil
	}

	dir := source.DirectionUp
	if zFired && z < 0 {
		dir = source.DirectionDown
	}
	exemplars, err := src.Exemplars(ctx, field, analysis, dir, maxExemplars)
	if err != nil {
		return nil, fmt.Errorf("exemplars for %q: %w", field, err)
	}

	a := anomaly.Anomaly{
		Timestamp: analysis.End,
		Subject:   field,
		Value:     current.Mean,
		Service:   dominantService(exemplars),
	}
	if len(exemplars) > 0 {
		a.TraceID = exemplars[0].TraceID
		a.SpanID = exemplars[0].SpanID
	}

	if zFired {
		a.Method = anomaly.MethodStatisticalZScore
		a.ExpectedValue = anomaly.Float(base.Mean)
		a.Deviation = anomaly.Float(current.Mean - base.Mean)
		a.ZScore = anomaly.Float(z)
		a.Threshold = opts.ZScoreThreshold
		a.Score = math.Abs(z)
	} else {
		a.Method = anomaly.MethodStatisticalPercentile
		a.Threshold = percentileValue
		a.Score = percentOver(current.Mean, percentileValue)
	}

	return []anomaly.Anomaly{a}, nil
}

// dominantService picks the most common service among exemplars, earliest
// seen winning ties.
func dominantService(exemplars []source.Exemplar) string {
	counts := make(map[string]int)
	best := ""
	for _, e := range exemplars {
		if e.Service == "" {
			continue
		}
		counts[e.Service]++
		if best == "" || counts[e.Service] > counts[best] {
			best = e.Service
		}
	}
	return best
}

// percentOver scores how far value sits past a positive bound, as a
// percentage. Non-positive bounds fall back to the absolute excess.
func percentOver(value, bound float64) float64 {
	if bound <= 0 {
		return math.Abs(value - bound)
	}
	return 100 * (value - bound) / bound
}
