// Package source defines the telemetry fetch boundary. Detectors never
// perform I/O themselves; everything they analyze arrives through a
// TelemetrySource as plain in-memory samples.
package source

import (
	"context"
	"time"

	"anomaly-engine/internal/stats"
)

// TimeRange is a half-open window [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// CounterPoint is one bucketed observation of a counter metric.
type CounterPoint struct {
	Timestamp time.Time
	Value     float64
}

// DurationSample is one span duration observation, in milliseconds.
type DurationSample struct {
	SpanID    string
	TraceID   string
	Service   string
	Operation string
	Timestamp time.Time
	Duration  float64
}

// Exemplar is a representative record fetched for a flagged field.
type Exemplar struct {
	Timestamp time.Time
	Value     float64
	Service   string
	Operation string
	TraceID   string
	SpanID    string
}

// Direction selects which tail of a distribution exemplars come from.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Filters narrows duration sample fetches. Empty fields match everything.
type Filters struct {
	Service   string
	Operation string
}

// TelemetrySource is the one abstraction the engine consumes. Fetch
// failures are returned as-is; retry policy belongs to implementations.
type TelemetrySource interface {
	// CounterSeries returns ordered (timestamp, value) samples of a counter
	// metric, one per time bucket. groupBy may be empty.
	CounterSeries(ctx context.Context, metric string, tr TimeRange, groupBy string) ([]CounterPoint, error)

	// FieldWindowStatistics summarizes a numeric field over one window.
	FieldWindowStatistics(ctx context.Context, field string, tr TimeRange) (stats.Window, error)

	// Exemplars returns up to limit records whose field value is most
	// extreme in the given direction.
	Exemplars(ctx context.Context, field string, tr TimeRange, dir Direction, limit int) ([]Exemplar, error)

	// DurationSamples returns span durations within the window.
	DurationSamples(ctx context.Context, tr TimeRange, filters Filters) ([]DurationSample, error)
}
