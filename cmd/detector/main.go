package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"anomaly-engine/internal/config"
	"anomaly-engine/internal/engine"
	"anomaly-engine/internal/processor"
	"anomaly-engine/internal/source"
)

func init() {
	if os.Getenv("RUNNING_IN_DOCKER") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found (this is fine in Docker)")
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.SetupDetectorConfig(ctx)
	if err != nil {
		log.Panicf("Could not setup configuration: %v", err)
	}
	defer cfg.Pool.Close()
	defer cfg.Redis.Close()
	defer cfg.Kafka.Close()

	src := source.NewCachedSource(source.NewPostgresSource(cfg.Pool), cfg.Redis)
	eng := engine.New(src)
	producer := processor.NewProducer(cfg.Kafka, cfg.AnomalyTopic)

	log.Printf("Detector started (interval=%s, analysis=%s, baseline=%s, metrics=%d, fields=%d)",
		cfg.Interval, cfg.AnalysisWindow, cfg.BaselineWindow, len(cfg.CounterMetrics), len(cfg.Fields))

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runDetection(ctx, cfg, eng, producer)
	for {
		select {
		case <-ctx.Done():
			log.Println("Context canceled, shutting down gracefully")
			return
		case <-ticker.C:
			runDetection(ctx, cfg, eng, producer)
		}
	}
}

func runDetection(ctx context.Context, cfg config.DetectorConfig, eng *engine.Engine, producer *processor.Producer) {
	now := time.Now().UTC()
	req := engine.Request{
		CounterMetrics: cfg.CounterMetrics,
		Fields:         cfg.Fields,
		Analysis: source.TimeRange{
			Start: now.Add(-cfg.AnalysisWindow),
			End:   now,
		},
		Baseline: source.TimeRange{
			Start: now.Add(-cfg.AnalysisWindow - cfg.BaselineWindow),
			End:   now.Add(-cfg.AnalysisWindow),
		},
	}

	result, err := eng.Detect(ctx, req, cfg.Options)
	if err != nil {
		log.Printf("Detection run failed: %v", err)
		return
	}

	published := 0
	for _, a := range result.Anomalies {
		if err := producer.PublishAnomaly(ctx, a); err != nil {
			log.Printf("Publish error: %v", err)
			continue
		}
		published++
	}
	log.Printf("Detection run finished: %d anomalies, %d published", len(result.Anomalies), published)
}
