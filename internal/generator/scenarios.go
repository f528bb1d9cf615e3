package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anomaly-engine/internal/source"
)

// RunSteadyCounterScenario writes a monotonically increasing counter with a
// stable rate and small jitter. Healthy background data.
func (g *Generator) RunSteadyCounterScenario(ctx context.Context, metric string, points int) error {
	value := g.faker.Float64Range(1000, 5000)
	for i := 0; i < points; i++ {
		value += g.faker.Float64Range(55, 65)
		p := source.CounterPoint{Timestamp: g.bucketTime(i, points), Value: value}
		if err := g.store.InsertCounterSample(ctx, metric, p); err != nil {
			return fmt.Errorf("steady counter point #%d: %w", i+1, err)
		}
	}
	return nil
}

// RunRestartingCounterScenario writes a counter that resets twice, as a
// crash-looping process would.
func (g *Generator) RunRestartingCounterScenario(ctx context.Context, metric string, points int) error {
	value := g.faker.Float64Range(2000, 4000)
	for i := 0; i < points; i++ {
		if i == points/3 || i == 2*points/3 {
			value = g.faker.Float64Range(10, 50)
		} else {
			value += g.faker.Float64Range(55, 65)
		}
		p := source.CounterPoint{Timestamp: g.bucketTime(i, points), Value: value}
		if err := g.store.InsertCounterSample(ctx, metric, p); err != nil {
			return fmt.Errorf("restarting counter point #%d: %w", i+1, err)
		}
	}
	return nil
}

// RunRateSpikeScenario writes a steady counter with one bucket whose
// increment dwarfs the rest.
func (g *Generator) RunRateSpikeScenario(ctx context.Context, metric string, points int) error {
	value := g.faker.Float64Range(1000, 5000)
	for i := 0; i < points; i++ {
		if i == points/2 {
			value += g.faker.Float64Range(5000, 8000)
		} else {
			value += g.faker.Float64Range(55, 65)
		}
		p := source.CounterPoint{Timestamp: g.bucketTime(i, points), Value: value}
		if err := g.store.InsertCounterSample(ctx, metric, p); err != nil {
			return fmt.Errorf("rate spike point #%d: %w", i+1, err)
		}
	}
	return nil
}

// RunLatencySpikeScenario writes span durations for one operation, mostly
// tight around a healthy mean with a handful of order-of-magnitude spikes.
func (g *Generator) RunLatencySpikeScenario(ctx context.Context, operation string, samples, spikes int) error {
	service := g.serviceName()
	for i := 0; i < samples; i++ {
		duration := g.faker.Float64Range(40, 60)
		if i > 0 && spikes > 0 && i%(samples/spikes+1) == 0 {
			duration = g.faker.Float64Range(800, 1200)
		}
		d := source.DurationSample{
			SpanID:    uuid.NewString(),
			TraceID:   uuid.NewString(),
			Service:   service,
			Operation: operation,
			Timestamp: g.bucketTime(i, samples),
			Duration:  duration,
		}
		if err := g.store.InsertDurationSample(ctx, d); err != nil {
			return fmt.Errorf("latency sample #%d: %w", i+1, err)
		}
	}
	return nil
}

// RunBaselineShiftScenario writes a numeric field whose distribution jumps
// between the baseline and analysis windows: baselinePoints around a mean of
// 100 over the hour before the analysis window, then analysisPoints around
// 140 inside it.
func (g *Generator) RunBaselineShiftScenario(ctx context.Context, field string, baselinePoints, analysisPoints int) error {
	service := g.serviceName()
	total := baselinePoints + analysisPoints
	for i := 0; i < total; i++ {
		value := g.faker.Float64Range(90, 110)
		if i >= baselinePoints {
			value = g.faker.Float64Range(130, 150)
		}
		e := source.Exemplar{
			Timestamp: g.now.Add(-time.Duration(total-i) * bucketInterval),
			Value:     value,
			Service:   service,
			Operation: "ingest",
			TraceID:   uuid.NewString(),
			SpanID:    uuid.NewString(),
		}
		if err := g.store.InsertMetricSample(ctx, field, e); err != nil {
			return fmt.Errorf("baseline shift sample #%d: %w", i+1, err)
		}
	}
	return nil
}
