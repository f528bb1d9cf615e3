package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anomaly-engine/internal/anomaly"
)

var t0 = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func mkAnomaly(method anomaly.DetectionMethod, score float64, offset time.Duration) anomaly.Anomaly {
	return anomaly.Anomaly{
		Timestamp: t0.Add(offset),
		Subject:   "subject",
		Value:     score,
		Threshold: 3,
		Method:    method,
		Score:     score,
	}
}

func TestMergeRanksByScoreDescending(t *testing.T) {
	lists := [][]anomaly.Anomaly{
		{
			mkAnomaly(anomaly.MethodRateZScore, 3.5, 0),
			mkAnomaly(anomaly.MethodRateZScore, 8.1, time.Minute),
		},
		{
			mkAnomaly(anomaly.MethodDurationZScore, 5.2, 2*time.Minute),
		},
		{
			mkAnomaly(anomaly.MethodStatisticalZScore, 6.9, 3*time.Minute),
		},
	}

	result := Merge(lists, Options{})

	require.Len(t, result.Anomalies, 4)
	for i := 1; i < len(result.Anomalies); i++ {
		assert.GreaterOrEqual(t, result.Anomalies[i-1].Score, result.Anomalies[i].Score)
	}
	assert.Equal(t, 8.1, result.Anomalies[0].Score)
}

func TestMergeTiesBrokenByTimestampAscending(t *testing.T) {
	later := mkAnomaly(anomaly.MethodDurationIQR, 4.0, 10*time.Minute)
	earlier := mkAnomaly(anomaly.MethodDurationPercentile, 4.0, time.Minute)

	result := Merge([][]anomaly.Anomaly{{later}, {earlier}}, Options{})

	require.Len(t, result.Anomalies, 2)
	assert.Equal(t, earlier.Timestamp, result.Anomalies[0].Timestamp)
	assert.Equal(t, later.Timestamp, result.Anomalies[1].Timestamp)
}

func TestMergeTruncatesToMaxResults(t *testing.T) {
	var list []anomaly.Anomaly
	for i := 0; i < 10; i++ {
		list = append(list, mkAnomaly(anomaly.MethodRateZScore, float64(i), time.Duration(i)*time.Second))
	}

	result := Merge([][]anomaly.Anomaly{list}, Options{MaxResults: 2})

	require.Len(t, result.Anomalies, 2)
	assert.Equal(t, 9.0, result.Anomalies[0].Score)
	assert.Equal(t, 8.0, result.Anomalies[1].Score)
}

func TestMergeTruncationLeavesGroupsComplete(t *testing.T) {
	a := mkAnomaly(anomaly.MethodStatisticalZScore, 9, 0)
	a.Operation = "checkout"
	b := mkAnomaly(anomaly.MethodDurationIQR, 1, time.Minute)
	b.Operation = "search"

	result := Merge([][]anomaly.Anomaly{{a, b}}, Options{MaxResults: 1, GroupByOperation: true})

	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, 9.0, result.Anomalies[0].Score)
	// The flat list is trimmed; the groupings still cover every record.
	assert.Len(t, result.ByMethod, 2)
	assert.Len(t, result.ByMethod[anomaly.MethodDurationIQR], 1)
	assert.Len(t, result.ByOperation, 2)
	assert.Len(t, result.ByOperation["search"], 1)
}

func TestMergeGroupsNonDestructively(t *testing.T) {
	a := mkAnomaly(anomaly.MethodDurationZScore, 5, 0)
	a.Operation = "checkout"
	a.Service = "api"
	b := mkAnomaly(anomaly.MethodDurationZScore, 4, time.Minute)
	b.Operation = "search"
	b.Service = "api"
	c := mkAnomaly(anomaly.MethodRateZScore, 3, 2*time.Minute)

	result := Merge([][]anomaly.Anomaly{{a, b, c}}, Options{GroupByOperation: true, GroupByService: true})

	// Grouping never shrinks the ranked list.
	require.Len(t, result.Anomalies, 3)
	assert.Len(t, result.ByOperation, 2)
	assert.Len(t, result.ByOperation["checkout"], 1)
	assert.Len(t, result.ByService["api"], 2)
	// Records without a group key are skipped by grouping but stay ranked.
	assert.NotContains(t, result.ByOperation, "")

	assert.Len(t, result.ByMethod[anomaly.MethodDurationZScore], 2)
	assert.Len(t, result.ByMethod[anomaly.MethodRateZScore], 1)
}

func TestMergeEmptyInput(t *testing.T) {
	result := Merge(nil, Options{MaxResults: 5})
	assert.Empty(t, result.Anomalies)
	assert.NotNil(t, result.ByMethod)
	assert.Nil(t, result.ByOperation)
}
