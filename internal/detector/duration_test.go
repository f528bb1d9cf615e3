package detector

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/source"
)

func durationSamples(operation string, durations ...float64) []source.DurationSample {
	samples := make([]source.DurationSample, len(durations))
	for i, d := range durations {
		samples[i] = source.DurationSample{
			SpanID:    fmt.Sprintf("span-%s-%d", operation, i),
			Service:   "api",
			Operation: operation,
			Timestamp: t0.Add(time.Duration(i) * time.Second),
			Duration:  d,
		}
	}
	return samples
}

func TestDetectDurationOutliersAllCriteriaFireIndependently(t *testing.T) {
	durations := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		durations = append(durations, 40+float64(i))
	}
	durations = append(durations, 1000)
	samples := durationSamples("checkout", durations...)

	anomalies := AnalyzeDurations(samples, DurationOptions{AbsoluteThreshold: 500})

	// The 1000ms sample crosses all four criteria; each firing criterion is
	// its own record, never a merged verdict.
	require.Len(t, anomalies, 4)
	methods := map[anomaly.DetectionMethod]bool{}
	for _, a := range anomalies {
		assert.Equal(t, 1000.0, a.Value)
		assert.Equal(t, "api/checkout", a.Subject)
		assert.Equal(t, samples[20].Timestamp, a.Timestamp)
		assert.Equal(t, "span-checkout-20", a.SpanID)
		methods[a.Method] = true
	}
	assert.True(t, methods[anomaly.MethodAbsoluteThreshold])
	assert.True(t, methods[anomaly.MethodDurationZScore])
	assert.True(t, methods[anomaly.MethodDurationPercentile])
	assert.True(t, methods[anomaly.MethodDurationIQR])
}

func TestDetectDurationOutliersZScoreFields(t *testing.T) {
	durations := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		durations = append(durations, 40+float64(i))
	}
	durations = append(durations, 1000)
	samples := durationSamples("checkout", durations...)

	anomalies := AnalyzeDurations(samples, DurationOptions{})

	for _, a := range anomalies {
		if a.Method != anomaly.MethodDurationZScore {
			continue
		}
		require.NotNil(t, a.ExpectedValue)
		require.NotNil(t, a.Deviation)
		require.NotNil(t, a.ZScore)
		assert.InDelta(t, a.Value-*a.ExpectedValue, *a.Deviation, 1e-9)
		assert.Equal(t, math.Abs(*a.ZScore), a.Score)
	}
}

func TestDetectDurationOutliersUniformGroup(t *testing.T) {
	samples := durationSamples("ping", 50, 50, 50, 50, 50, 50)
	assert.Empty(t, AnalyzeDurations(samples, DurationOptions{}))
}

func TestDetectDurationOutliersFiltersInvalidSamples(t *testing.T) {
	samples := durationSamples("op", 10, 12, 11, 13, 12)
	samples = append(samples,
		source.DurationSample{SpanID: "bad-1", Operation: "op", Timestamp: t0, Duration: -5},
		source.DurationSample{SpanID: "bad-2", Operation: "op", Timestamp: t0, Duration: math.NaN()},
	)

	anomalies := AnalyzeDurations(samples, DurationOptions{AbsoluteThreshold: 1})
	for _, a := range anomalies {
		assert.NotContains(t, a.SpanID, "bad")
	}
}

func TestDetectDurationOutliersAbsoluteThresholdIgnoresSampleFloor(t *testing.T) {
	samples := durationSamples("op", 10, 900)

	anomalies := AnalyzeDurations(samples, DurationOptions{AbsoluteThreshold: 500})

	// Two samples are below the statistical floor, but the absolute
	// criterion needs no distribution.
	require.Len(t, anomalies, 1)
	assert.Equal(t, anomaly.MethodAbsoluteThreshold, anomalies[0].Method)
	assert.Equal(t, 900.0, anomalies[0].Value)
	assert.Equal(t, 500.0, anomalies[0].Threshold)
}

func TestAnalyzeDurationsGroupingChangesOutcome(t *testing.T) {
	fast := durationSamples("fast", 10, 10, 10, 10, 30)
	slow := durationSamples("slow", 500, 505, 510, 495, 500)
	all := append(append([]source.DurationSample{}, fast...), slow...)

	grouped := AnalyzeDurations(all, DurationOptions{})
	require.Len(t, grouped, 1)
	assert.Equal(t, anomaly.MethodDurationIQR, grouped[0].Method)
	assert.Equal(t, "fast", grouped[0].Operation)
	assert.Equal(t, 30.0, grouped[0].Value)

	// One pooled distribution dilutes the fast-operation outlier away.
	off := false
	pooled := AnalyzeDurations(all, DurationOptions{GroupByOperation: &off})
	assert.Empty(t, pooled)
}
