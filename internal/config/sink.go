package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"anomaly-engine/internal/env"
)

type SinkConfig struct {
	Pool           *pgxpool.Pool
	Kafka          *kgo.Client
	CommitInterval time.Duration
	DedupeTTL      time.Duration
}

func SetupSinkConfig(ctx context.Context) (SinkConfig, error) {
	pool, err := setupPostgres(ctx)
	if err != nil {
		return SinkConfig{}, fmt.Errorf("could not set up Postgres: %w", err)
	}

	broker := env.GetEnvString("KAFKA_URL", "localhost:9092")
	topic := env.GetEnvString("KAFKA_TOPIC_ANOMALIES", "anomalies")
	group := env.GetEnvString("KAFKA_CONSUMER_GROUP", "anomaly-sink")
	kafka, err := setupKafkaConsumer(broker, topic, group)
	if err != nil {
		return SinkConfig{}, fmt.Errorf("could not set up Kafka consumer: %w", err)
	}

	return SinkConfig{
		Pool:           pool,
		Kafka:          kafka,
		CommitInterval: env.GetEnvDuration("COMMIT_INTERVAL", 3*time.Second),
		DedupeTTL:      env.GetEnvDuration("DEDUPE_TTL", 5*time.Minute),
	}, nil
}
