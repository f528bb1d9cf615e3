package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"anomaly-engine/internal/config"
	"anomaly-engine/internal/generator"
	"anomaly-engine/internal/store"
)

func init() {
	if os.Getenv("RUNNING_IN_DOCKER") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found (this is fine in Docker)")
		}
	}
}

func main() {
	ctx := context.Background()

	cfg, err := config.SetupGeneratorConfig(ctx)
	if err != nil {
		log.Panicf("Could not setup configuration: %v", err)
	}
	defer cfg.Pool.Close()

	gen := generator.New(store.New(cfg.Pool), cfg.Seed)

	scenarios := []struct {
		name string
		run  func() error
	}{
		{"steady counter", func() error {
			return gen.RunSteadyCounterScenario(ctx, "http_requests_total", 60)
		}},
		{"restarting counter", func() error {
			return gen.RunRestartingCounterScenario(ctx, "queue_messages_total", 60)
		}},
		{"rate spike", func() error {
			return gen.RunRateSpikeScenario(ctx, "errors_total", 60)
		}},
		{"latency spike", func() error {
			return gen.RunLatencySpikeScenario(ctx, "checkout", 120, 4)
		}},
		{"baseline shift", func() error {
			return gen.RunBaselineShiftScenario(ctx, "response_size_bytes", 60, 15)
		}},
	}

	for _, s := range scenarios {
		if err := s.run(); err != nil {
			log.Fatalf("Scenario %q failed: %v", s.name, err)
		}
		log.Printf("Scenario %q done", s.name)
	}
}
