// Package engine is the combined entry point: it fetches samples through a
// TelemetrySource, fans the detectors out and merges their output into one
// ranked result. Detectors share no mutable state, so every metric, field
// and duration group runs concurrently.
package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"anomaly-engine/internal/aggregator"
	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/detector"
	"anomaly-engine/internal/source"
)

// Method selects a detector family.
type Method string

const (
	MethodCounter     Method = "counter"
	MethodStatistical Method = "statistical"
	MethodDuration    Method = "duration"
)

// Options configures one detection call. Zero values fall back to the
// defaults: all methods, z-score 3, percentile 95, IQR multiplier 1.5,
// grouping by operation on.
type Options struct {
	Methods             []Method
	ZScoreThreshold     float64
	PercentileThreshold float64
	IQRMultiplier       float64
	AbsoluteThreshold   float64
	MaxResults          int
	GroupByOperation    *bool
	GroupByService      bool
}

func (o *Options) withDefaults() {
	if len(o.Methods) == 0 {
		o.Methods = []Method{MethodCounter, MethodStatistical, MethodDuration}
	}
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

func (o Options) has(m Method) bool {
	for _, candidate := range o.Methods {
		if candidate == m {
			return true
		}
	}
	return false
}

// Request names what to analyze. The analysis window is the window under
// evaluation; the baseline window precedes it and defines "normal" for the
// statistical comparator.
type Request struct {
	CounterMetrics []string
	Fields         []string
	Baseline       source.TimeRange
	Analysis       source.TimeRange
	Filters        source.Filters
}

type Engine struct {
	src source.TelemetrySource
}

func New(src source.TelemetrySource) *Engine {
	return &Engine{src: src}
}

// Detect runs the selected method subset over the request and returns the
// merged, ranked result. Fetch failures cancel the run and surface as-is;
// insufficient data never does.
func (e *Engine) Detect(ctx context.Context, req Request, opts Options) (aggregator.Result, error) {
	opts.withDefaults()

	var mu sync.Mutex
	var lists [][]anomaly.Anomaly
	collect := func(anomalies []anomaly.Anomaly) {
		if len(anomalies) == 0 {
			return
		}
		mu.Lock()
		lists = append(lists, anomalies)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	if opts.has(MethodCounter) {
		for _, metric := range req.CounterMetrics {
			g.Go(func() error {
				points, err := e.src.CounterSeries(ctx, metric, req.Analysis, "")
				if err != nil {
					return err
				}
				collect(detector.AnalyzeCounterSeries(metric, points, detector.CounterOptions{
					ZScoreThreshold: opts.ZScoreThreshold,
				}))
				return nil
			})
		}
	}

	if opts.has(MethodStatistical) {
		for _, field := range req.Fields {
			g.Go(func() error {
				anomalies, err := detector.CompareFieldWindows(ctx, e.src, field, req.Baseline, req.Analysis, detector.BaselineOptions{
					ZScoreThreshold:     opts.ZScoreThreshold,
					PercentileThreshold: opts.PercentileThreshold,
				})
				if err != nil {
					return err
				}
				collect(anomalies)
				return nil
			})
		}
	}

	if opts.has(MethodDuration) {
		g.Go(func() error {
			samples, err := e.src.DurationSamples(ctx, req.Analysis, req.Filters)
			if err != nil {
				return err
			}
			collect(detector.AnalyzeDurations(samples, detector.DurationOptions{
				AbsoluteThreshold:   opts.AbsoluteThreshold,
				ZScoreThreshold:     opts.ZScoreThreshold,
				PercentileThreshold: opts.PercentileThreshold,
				IQRMultiplier:       opts.IQRMultiplier,
				GroupByOperation:    opts.GroupByOperation,
			}))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return aggregator.Result{}, err
	}

	return aggregator.Merge(lists, aggregator.Options{
		MaxResults:       opts.MaxResults,
		GroupByOperation: *opts.GroupByOperation,
		GroupByService:   opts.GroupByService,
	}), nil
}
