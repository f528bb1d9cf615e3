// Package stats holds the numeric primitives shared by every detector.
// All functions are pure; callers are responsible for sample-count floors.
package stats

import "math"

// Mean returns the arithmetic mean. values must not be empty.
func Mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// StdDev returns the population standard deviation around mean.
// values must not be empty.
func StdDev(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Percentile returns the nearest-rank percentile of an ascending-sorted
// slice: index = ceil(p/100 * n) - 1, clamped to [0, n-1].
// sorted must not be empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// IQRBounds returns the (lower, upper) outlier bounds
// q1 - multiplier*iqr and q3 + multiplier*iqr over an ascending-sorted slice.
// sorted must not be empty.
func IQRBounds(sorted []float64, multiplier float64) (float64, float64) {
	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)
	iqr := q3 - q1
	return q1 - multiplier*iqr, q3 + multiplier*iqr
}

// ZScore returns (value - mean) / stdDev, or 0 when stdDev is 0. The zero
// return is a safety fallback: callers must treat stdDev == 0 as a skip
// condition before scoring.
func ZScore(value, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return 0
	}
	return (value - mean) / stdDev
}
