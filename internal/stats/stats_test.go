package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(values)
	require.InDelta(t, 5.0, mean, 1e-9)
	// Population standard deviation, not sample.
	require.InDelta(t, 2.0, StdDev(values, mean), 1e-9)
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		rank float64
		want float64
	}{
		{25, 3},
		{50, 5},
		{75, 8},
		{95, 10},
		{100, 10},
		{0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentile(sorted, tt.rank), "p%v", tt.rank)
	}

	assert.Equal(t, 42.0, Percentile([]float64{42}, 95))
}

func TestPercentileStableUnderReorderingAndDuplicates(t *testing.T) {
	base := []float64{12, 7, 33, 7, 19, 25, 7, 41, 3, 19}

	w1 := ComputeWindow(base)

	shuffled := append([]float64(nil), base...)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	w2 := ComputeWindow(shuffled)

	require.Equal(t, w1.Percentiles, w2.Percentiles)
	require.Equal(t, w1.Mean, w2.Mean)
	require.Equal(t, w1.StdDev, w2.StdDev)
}

func TestIQRBounds(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	lower, upper := IQRBounds(sorted, 1.5)
	require.InDelta(t, -4.5, lower, 1e-9)
	require.InDelta(t, 15.5, upper, 1e-9)
}

func TestZScoreDegenerateDistribution(t *testing.T) {
	assert.Equal(t, 0.0, ZScore(10, 5, 0))
	assert.InDelta(t, 2.5, ZScore(10, 5, 2), 1e-9)
	assert.InDelta(t, -2.5, ZScore(0, 5, 2), 1e-9)
}

func TestComputeWindow(t *testing.T) {
	w := ComputeWindow([]float64{5, 1, 3, 2, 4})
	assert.Equal(t, 5, w.Count)
	assert.InDelta(t, 3.0, w.Mean, 1e-9)
	assert.Equal(t, 1.0, w.Min)
	assert.Equal(t, 5.0, w.Max)

	p95, ok := w.PercentileAt(95)
	require.True(t, ok)
	assert.Equal(t, 5.0, p95)

	_, ok = w.PercentileAt(42)
	assert.False(t, ok)
}
