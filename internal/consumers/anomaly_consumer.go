// Package consumers holds the Kafka consumer loops.
package consumers

import (
	"context"
	"log"

	"github.com/twmb/franz-go/pkg/kgo"

	"anomaly-engine/internal/events"
)

type AnomalyConsumer struct {
	client *kgo.Client
}

func NewAnomalyConsumer(client *kgo.Client) *AnomalyConsumer {
	return &AnomalyConsumer{client: client}
}

// ConsumeTopic polls anomaly envelopes and hands each to handle. Records
// that fail to decode are logged and skipped; handler errors are logged and
// the record is retried on the next poll cycle via uncommitted offsets.
// Successfully handled records are sent to commitChan for batched commits.
func (c *AnomalyConsumer) ConsumeTopic(ctx context.Context, handle func(events.Envelope) error, commitChan chan<- *kgo.Record) error {
	log.Println("[Kafka] Listening for anomaly results...")
	for {
		fetches := c.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			for _, record := range p.Records {
				envelope, err := events.ParseEnvelope(record.Value)
				if err != nil {
					log.Printf("Error decoding anomaly envelope: %v", err)
					commitChan <- record
					continue
				}
				if err := handle(envelope); err != nil {
					log.Printf("Error handling anomaly record: %v", err)
					continue
				}
				commitChan <- record
			}
		})
	}
}
