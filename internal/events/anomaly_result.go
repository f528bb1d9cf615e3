package events

import (
	"encoding/json"
	"fmt"
	"time"

	"anomaly-engine/internal/anomaly"
)

const (
	DomainTelemetryAnomaly = "telemetry_anomaly"
	SourceDetector         = "detector"
)

// WrapAnomaly envelopes one detector result for publishing. The detection
// method doubles as the envelope event type; trace context, when present,
// goes into the correlation map.
func WrapAnomaly(a anomaly.Anomaly) (Envelope, error) {
	if err := a.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("invalid anomaly: %w", err)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal anomaly payload: %w", err)
	}

	envelope := Envelope{
		SpecVersion: SpecVersionV1,
		Domain:      DomainTelemetryAnomaly,
		EventType:   string(a.Method),
		Source:      SourceDetector,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
	if a.TraceID != "" || a.SpanID != "" {
		envelope.Correlation = map[string]string{}
		if a.TraceID != "" {
			envelope.Correlation["trace_id"] = a.TraceID
		}
		if a.SpanID != "" {
			envelope.Correlation["span_id"] = a.SpanID
		}
	}
	return envelope, nil
}

// AnomalyPayload extracts and validates the anomaly carried by an envelope.
func (e Envelope) AnomalyPayload() (anomaly.Anomaly, error) {
	if e.Domain != DomainTelemetryAnomaly {
		return anomaly.Anomaly{}, fmt.Errorf("expected domain %q, got %q", DomainTelemetryAnomaly, e.Domain)
	}

	var payload anomaly.Anomaly
	if err := e.PayloadInto(&payload); err != nil {
		return anomaly.Anomaly{}, err
	}
	if err := payload.Validate(); err != nil {
		return anomaly.Anomaly{}, fmt.Errorf("invalid anomaly payload: %w", err)
	}
	return payload, nil
}
