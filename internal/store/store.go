// Package store persists anomalies and telemetry samples in Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/source"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) InsertAnomaly(ctx context.Context, a anomaly.Anomaly) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO anomalies
		   (subject, method, ts, value, expected_value, deviation, z_score,
		    threshold, score, service, operation, trace_id, span_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		a.Subject,
		string(a.Method),
		pgtype.Timestamptz{Time: a.Timestamp, Valid: true},
		a.Value,
		optionalFloat(a.ExpectedValue),
		optionalFloat(a.Deviation),
		optionalFloat(a.ZScore),
		a.Threshold,
		a.Score,
		optionalText(a.Service),
		optionalText(a.Operation),
		optionalText(a.TraceID),
		optionalText(a.SpanID),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert anomaly for %q: %w", a.Subject, err)
	}
	return id, nil
}

func (s *Store) InsertCounterSample(ctx context.Context, metric string, p source.CounterPoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO counter_samples (metric, ts, value) VALUES ($1, $2, $3)`,
		metric, p.Timestamp, p.Value)
	if err != nil {
		return fmt.Errorf("insert counter sample %q: %w", metric, err)
	}
	return nil
}

func (s *Store) InsertMetricSample(ctx context.Context, field string, e source.Exemplar) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO metric_samples (field, ts, value, service, operation, trace_id, span_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		field, e.Timestamp, e.Value, e.Service, e.Operation, e.TraceID, e.SpanID)
	if err != nil {
		return fmt.Errorf("insert metric sample %q: %w", field, err)
	}
	return nil
}

func (s *Store) InsertDurationSample(ctx context.Context, d source.DurationSample) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO duration_samples (span_id, trace_id, service, operation, ts, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.SpanID, d.TraceID, d.Service, d.Operation, d.Timestamp, d.Duration)
	if err != nil {
		return fmt.Errorf("insert duration sample %s/%s: %w", d.Service, d.Operation, err)
	}
	return nil
}

func optionalFloat(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

func optionalText(v string) pgtype.Text {
	return pgtype.Text{String: v, Valid: v != ""}
}
