// Package processor publishes detection results to Kafka.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/twmb/franz-go/pkg/kgo"

	"anomaly-engine/internal/anomaly"
	"anomaly-engine/internal/events"
)

type Producer struct {
	client *kgo.Client
	topic  string
}

func NewProducer(client *kgo.Client, topic string) *Producer {
	return &Producer{client: client, topic: topic}
}

// PublishAnomaly envelopes and publishes one anomaly, keyed by subject so a
// subject's records land on one partition in order.
func (p *Producer) PublishAnomaly(ctx context.Context, a anomaly.Anomaly) error {
	envelope, err := events.WrapAnomaly(a)
	if err != nil {
		return fmt.Errorf("wrap anomaly: %w", err)
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(a.Subject),
		Value:     data,
		Timestamp: envelope.Timestamp,
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish anomaly for %q: %w", a.Subject, err)
	}
	log.Printf("Published %s anomaly for %q (score=%.2f) to topic %s", a.Method, a.Subject, a.Score, p.topic)
	return nil
}
