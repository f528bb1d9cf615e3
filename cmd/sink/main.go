package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/twmb/franz-go/pkg/kgo"

	"anomaly-engine/internal/config"
	"anomaly-engine/internal/consumers"
	"anomaly-engine/internal/dedupe"
	"anomaly-engine/internal/events"
	"anomaly-engine/internal/store"
)

const jobBufferSize = 1000

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

	cfg, err := config.SetupSinkConfig(ctx)
	if err != nil {
		log.Panicf("Could not setup configuration: %v", err)
	}
	defer cfg.Pool.Close()
	defer cfg.Kafka.Close()

	db := store.New(cfg.Pool)
	cache := dedupe.NewCache(cfg.DedupeTTL)
	cache.StartCleanup(time.Minute, ctx.Done())

	commitChan := make(chan *kgo.Record, jobBufferSize)
	go commitLoop(ctx, cfg.Kafka, cfg.CommitInterval, commitChan)

	handle := func(envelope events.Envelope) error {
		a, err := envelope.AnomalyPayload()
		if err != nil {
			return err
		}
		if cache.Seen(a) {
			return nil
		}
		id, err := db.InsertAnomaly(ctx, a)
		if err != nil {
			return err
		}
		log.Printf("[Sink] Saved %s anomaly id=%d for %q", a.Method, id, a.Subject)
		return nil
	}

	consumer := consumers.NewAnomalyConsumer(cfg.Kafka)
	if err := consumer.ConsumeTopic(ctx, handle, commitChan); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Consumer error: %v", err)
	}
	log.Println("Context canceled, shutting down gracefully")
}

func commitLoop(ctx context.Context, client *kgo.Client, interval time.Duration, commitChan chan *kgo.Record) {
	var toCommit []*kgo.Record
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case record := <-commitChan:
			if record != nil {
				toCommit = append(toCommit, record)
			}
		case <-ticker.C:
			if len(toCommit) > 0 {
				if err := client.CommitRecords(ctx, toCommit...); err != nil {
					log.Printf("Commit error: %v", err)
				} else {
					log.Printf("Committed %d records", len(toCommit))
				}
				toCommit = nil
			}
		}
	}
}
