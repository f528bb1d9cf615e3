package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"anomaly-engine/internal/engine"
	"anomaly-engine/internal/env"
)

// DetectorConfig carries everything the detector service needs: clients,
// the scan targets and the detection options.
type DetectorConfig struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Kafka *kgo.Client

	AnomalyTopic   string
	Interval       time.Duration
	AnalysisWindow time.Duration
	BaselineWindow time.Duration

	CounterMetrics []string
	Fields         []string

	Options engine.Options
}

func SetupDetectorConfig(ctx context.Context) (DetectorConfig, error) {
	pool, err := setupPostgres(ctx)
	if err != nil {
		return DetectorConfig{}, fmt.Errorf("could not set up Postgres: %w", err)
	}

	broker := env.GetEnvString("KAFKA_URL", "localhost:9092")
	kafka, err := setupKafkaProducer(broker)
	if err != nil {
		return DetectorConfig{}, fmt.Errorf("could not set up Kafka producer: %w", err)
	}

	groupByOperation := env.GetEnvInt("GROUP_BY_OPERATION", 1) != 0

	return DetectorConfig{
		Pool:           pool,
		Redis:          setupRedis(),
		Kafka:          kafka,
		AnomalyTopic:   env.GetEnvString("KAFKA_TOPIC_ANOMALIES", "anomalies"),
		Interval:       env.GetEnvDuration("DETECT_INTERVAL", time.Minute),
		AnalysisWindow: env.GetEnvDuration("ANALYSIS_WINDOW", 15*time.Minute),
		BaselineWindow: env.GetEnvDuration("BASELINE_WINDOW", time.Hour),
		CounterMetrics: splitList(env.GetEnvString("COUNTER_METRICS", "")),
		Fields:         splitList(env.GetEnvString("FIELDS", "")),
		Options: engine.Options{
			ZScoreThreshold:     env.GetEnvFloat("Z_SCORE_THRESHOLD", 3),
			PercentileThreshold: env.GetEnvFloat("PERCENTILE_THRESHOLD", 95),
			IQRMultiplier:       env.GetEnvFloat("IQR_MULTIPLIER", 1.5),
			AbsoluteThreshold:   env.GetEnvFloat("ABSOLUTE_THRESHOLD_MS", 0),
			MaxResults:          env.GetEnvInt("MAX_RESULTS", 0),
			GroupByOperation:    &groupByOperation,
			GroupByService:      env.GetEnvInt("GROUP_BY_SERVICE", 0) != 0,
		},
	}, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
