// Package anomaly defines the single output record shared by all detectors.
package anomaly

import (
	"errors"
	"time"
)

// DetectionMethod tags which criterion produced an anomaly. The method
// determines which optional fields are populated: reset records never carry
// a z-score, percentile-only records carry no expected value.
type DetectionMethod string

const (
	MethodReset                 DetectionMethod = "reset"
	MethodRateZScore            DetectionMethod = "rate-z-score"
	MethodResetInterval         DetectionMethod = "reset-interval"
	MethodStatisticalZScore     DetectionMethod = "statistical-z-score"
	MethodStatisticalPercentile DetectionMethod = "statistical-percentile"
	MethodAbsoluteThreshold     DetectionMethod = "absolute-threshold"
	MethodDurationZScore        DetectionMethod = "duration-z-score"
	MethodDurationPercentile    DetectionMethod = "duration-percentile"
	MethodDurationIQR           DetectionMethod = "duration-iqr"
)

// ResetDeviation is the fixed sentinel carried by reset records in place of
// a computed deviation. It marks a full counter drop, not a z-score.
const ResetDeviation = -1

// Anomaly is immutable once produced. Score is always set and is the only
// field used to rank across heterogeneous methods; higher is worse.
type Anomaly struct {
	Timestamp     time.Time       `json:"timestamp"`
	Subject       string          `json:"subject"`
	Value         float64         `json:"value"`
	ExpectedValue *float64        `json:"expected_value,omitempty"`
	Deviation     *float64        `json:"deviation,omitempty"`
	ZScore        *float64        `json:"z_score,omitempty"`
	Threshold     float64         `json:"threshold"`
	Method        DetectionMethod `json:"detection_method"`
	Score         float64         `json:"score"`

	Service   string `json:"service,omitempty"`
	Operation string `json:"operation,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	SpanID    string `json:"span_id,omitempty"`
}

func (a *Anomaly) Validate() error {
	if a == nil {
		return errors.New("anomaly must not be nil")
	}
	if a.Timestamp.IsZero() {
		return errors.New("timestamp must be set")
	}
	if a.Subject == "" {
		return errors.New("subject must be set")
	}
	if a.Method == "" {
		return errors.New("detection_method must be set")
	}
	if a.Score < 0 {
		return errors.New("score must not be negative")
	}
	if a.Method == MethodReset && a.ZScore != nil {
		return errors.New("reset records must not carry a z-score")
	}
	return nil
}

// Float returns a pointer to v, for the optional numeric fields.
func Float(v float64) *float64 { return &v }
