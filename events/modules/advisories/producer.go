// Package advisories handles Kafka event production for advisory collection events.
package advisories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/vulngraph/vulngraph-backend/internal/normalizer"
)

// AdvisoryProducer handles sending advisory collection events to Kafka
type AdvisoryProducer struct {
	Writer *kafka.Writer
}

// NewAdvisoryProducer initializes a new Kafka writer for advisory events
func NewAdvisoryProducer(brokers []string, topic string) *AdvisoryProducer {
	return &AdvisoryProducer{
		Writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishAdvisoryCollected sends the event to the Kafka topic
func (p *AdvisoryProducer) PublishAdvisoryCollected(ctx context.Context, source string, advisory normalizer.RawAdvisory) error {

	// Construct the Event Contract
	event := AdvisoryCollectedEvent{
		EventType:     "advisory.collected",
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: "v1",
		Source:        source,
		Advisory:      advisory,
	}

	// Marshal to JSON
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Write to Kafka
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(source),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *AdvisoryProducer) Close() error {
	return p.Writer.Close()
}
