package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"anomaly-engine/internal/stats"
)

// PostgresSource serves telemetry from the counter_samples, metric_samples
// and duration_samples tables.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) CounterSeries(ctx context.Context, metric string, tr TimeRange, groupBy string) ([]CounterPoint, error) {
	// One stored series per metric; groupBy has nothing to split on here.
	rows, err := s.pool.Query(ctx,
		`SELECT ts, value FROM counter_samples
		 WHERE metric = $1 AND ts >= $2 AND ts < $3
		 ORDER BY ts`,
		metric, tr.Start, tr.End)
	if err != nil {
		return nil, fmt.Errorf("query counter series %q: %w", metric, err)
	}
	defer rows.Close()

	var points []CounterPoint
	for rows.Next() {
		var p CounterPoint
		if err := rows.Scan(&p.Timestamp, &p.Value); err != nil {
			return nil, fmt.Errorf("scan counter point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read counter series %q: %w", metric, err)
	}
	return points, nil
}

func (s *PostgresSource) FieldWindowStatistics(ctx context.Context, field string, tr TimeRange) (stats.Window, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM metric_samples
		 WHERE field = $1 AND ts >= $2 AND ts < $3`,
		field, tr.Start, tr.End).Scan(&count)
	if err != nil {
		return stats.Window{}, fmt.Errorf("count field window %q: %w", field, err)
	}
	if count == 0 {
		return stats.Window{}, nil
	}

	w := stats.Window{Count: count}
	var pcts []float64
	err = s.pool.QueryRow(ctx,
		`SELECT avg(value), coalesce(stddev_pop(value), 0), min(value), max(value),
		        percentile_disc(ARRAY[0.25, 0.5, 0.75, 0.9, 0.95, 0.99]) WITHIN GROUP (ORDER BY value)
		 FROM metric_samples
		 WHERE field = $1 AND ts >= $2 AND ts < $3`,
		field, tr.Start, tr.End).Scan(&w.Mean, &w.StdDev, &w.Min, &w.Max, &pcts)
	if err != nil {
		return stats.Window{}, fmt.Errorf("aggregate field window %q: %w", field, err)
	}

	w.Percentiles = make(map[float64]float64, len(stats.DefaultPercentileRanks))
	for i, rank := range stats.DefaultPercentileRanks {
		if i < len(pcts) {
			w.Percentiles[rank] = pcts[i]
		}
	}
	return w, nil
}

func (s *PostgresSource) Exemplars(ctx context.Context, field string, tr TimeRange, dir Direction, limit int) ([]Exemplar, error) {
	order := "DESC"
	if dir == DirectionDown {
		order = "ASC"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT ts, value, service, operation, trace_id, span_id FROM metric_samples
		 WHERE field = $1 AND ts >= $2 AND ts < $3
		 ORDER BY value `+order+` LIMIT $4`,
		field, tr.Start, tr.End, limit)
	if err != nil {
		return nil, fmt.Errorf("query exemplars %q: %w", field, err)
	}
	defer rows.Close()

	var exemplars []Exemplar
	for rows.Next() {
		var e Exemplar
		if err := rows.Scan(&e.Timestamp, &e.Value, &e.Service, &e.Operation, &e.TraceID, &e.SpanID); err != nil {
			return nil, fmt.Errorf("scan exemplar: %w", err)
		}
		exemplars = append(exemplars, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read exemplars %q: %w", field, err)
	}
	return exemplars, nil
}

func (s *PostgresSource) DurationSamples(ctx context.Context, tr TimeRange, filters Filters) ([]DurationSample, error) {
	query := `SELECT span_id, trace_id, service, operation, ts, duration_ms FROM duration_samples
	          WHERE ts >= $1 AND ts < $2`
	args := []any{tr.Start, tr.End}
	if filters.Service != "" {
		args = append(args, filters.Service)
		query += fmt.Sprintf(" AND service = $%d", len(args))
	}
	if filters.Operation != "" {
		args = append(args, filters.Operation)
		query += fmt.Sprintf(" AND operation = $%d", len(args))
	}
	query += " ORDER BY ts"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query duration samples: %w", err)
	}
	defer rows.Close()

	samples, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DurationSample, error) {
		var d DurationSample
		err := row.Scan(&d.SpanID, &d.TraceID, &d.Service, &d.Operation, &d.Timestamp, &d.Duration)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("read duration samples: %w", err)
	}
	return samples, nil
}
