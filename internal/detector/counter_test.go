package detector

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/source"
)

func counterSeries(start time.Time, interval time.Duration, values ...float64) []source.CounterPoint {
	points := make([]source.CounterPoint, len(values))
	for i, v := range values {
		points[i] = source.CounterPoint{Timestamp: start.Add(time.Duration(i) * interval), Value: v}
	}
	return points
}

var t0 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestAnalyzeCounterSeriesResetScenario(t *testing.T) {
	points := counterSeries(t0, time.Minute, 100, 110, 121, 50, 60, 75)

	anomalies := AnalyzeCounterSeries("http_requests_total", points, CounterOptions{})

	// 50 < 121*0.5 is a reset; the surrounding rates are unremarkable and
	// a single reset cannot produce interval statistics.
	require.Len(t, anomalies, 1)
	a := anomalies[0]
	assert.Equal(t, anomaly.MethodReset, a.Method)
	assert.Equal(t, "http_requests_total", a.Subject)
	assert.Equal(t, t0.Add(3*time.Minute), a.Timestamp)
	assert.Equal(t, 50.0, a.Value)
	require.NotNil(t, a.ExpectedValue)
	assert.Equal(t, 121.0, *a.ExpectedValue)
	require.NotNil(t, a.Deviation)
	assert.Equal(t, float64(anomaly.ResetDeviation), *a.Deviation)
	assert.Nil(t, a.ZScore)
	assert.Equal(t, 0.5, a.Threshold)
	assert.InDelta(t, (121.0-50.0)/121.0, a.Score, 1e-9)
}

func TestAnalyzeCounterSeriesDropBelowHalfIsNotReset(t *testing.T) {
	points := counterSeries(t0, time.Minute, 100, 110, 60, 70, 80)

	anomalies := AnalyzeCounterSeries("m", points, CounterOptions{})

	// 60 >= 110*0.5, so the drop is a negative rate, not a reset.
	for _, a := range anomalies {
		assert.NotEqual(t, anomaly.MethodReset, a.Method)
	}
}

func TestAnalyzeCounterSeriesTooFewPoints(t *testing.T) {
	points := counterSeries(t0, time.Minute, 100, 110, 30, 40)
	assert.Empty(t, AnalyzeCounterSeries("m", points, CounterOptions{}))
}

func TestAnalyzeCounterSeriesFiltersInvalidValues(t *testing.T) {
	points := counterSeries(t0, time.Minute, 100, math.NaN(), 110, math.Inf(1), 30)
	// Three valid points remain, below the floor.
	assert.Empty(t, AnalyzeCounterSeries("m", points, CounterOptions{}))
}

func TestAnalyzeCounterSeriesFlatRatesStillReportResets(t *testing.T) {
	points := counterSeries(t0, time.Minute, 100, 200, 300, 50, 150, 250, 350)

	anomalies := AnalyzeCounterSeries("m", points, CounterOptions{})

	// Every rate is identical so the rate z-score pass is skipped, but the
	// reset is still reported.
	require.Len(t, anomalies, 1)
	assert.Equal(t, anomaly.MethodReset, anomalies[0].Method)
}

func TestAnalyzeCounterSeriesRateSpike(t *testing.T) {
	values := []float64{1000}
	for i := 1; i < 30; i++ {
		increment := 60.0
		if i == 15 {
			increment = 6000
		}
		values = append(values, values[i-1]+increment)
	}
	points := counterSeries(t0, time.Minute, values...)

	anomalies := AnalyzeCounterSeries("m", points, CounterOptions{})

	require.Len(t, anomalies, 1)
	a := anomalies[0]
	assert.Equal(t, anomaly.MethodRateZScore, a.Method)
	assert.Equal(t, t0.Add(15*time.Minute), a.Timestamp)
	assert.InDelta(t, 100.0, a.Value, 1e-9)
	require.NotNil(t, a.ZScore)
	assert.Equal(t, math.Abs(*a.ZScore), a.Score)
	assert.Greater(t, a.Score, 3.0)
}

func TestAnalyzeCounterSeriesResetIntervalOutlier(t *testing.T) {
	// Resets every 10 minutes, then one 100-minute gap: eleven intervals,
	// the last more than three standard deviations from the mean.
	resetMinutes := map[int]bool{}
	for m := 10; m <= 110; m += 10 {
		resetMinutes[m] = true
	}
	resetMinutes[210] = true

	var values []float64
	value := 10.0
	for m := 0; m <= 210; m++ {
		if resetMinutes[m] {
			value = 10
		} else if m > 0 {
			value += 60
		}
		values = append(values, value)
	}
	points := counterSeries(t0, time.Minute, values...)

	anomalies := AnalyzeCounterSeries("m", points, CounterOptions{})

	byMethod := map[anomaly.DetectionMethod]int{}
	for _, a := range anomalies {
		byMethod[a.Method]++
	}
	assert.Equal(t, 12, byMethod[anomaly.MethodReset])
	require.Equal(t, 1, byMethod[anomaly.MethodResetInterval])

	for _, a := range anomalies {
		if a.Method == anomaly.MethodResetInterval {
			assert.Equal(t, t0.Add(210*time.Minute), a.Timestamp)
			assert.InDelta(t, 6000.0, a.Value, 1e-9)
			require.NotNil(t, a.ZScore)
			assert.Greater(t, *a.ZScore, 3.0)
		}
	}
}
