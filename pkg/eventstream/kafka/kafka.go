// Package kafka publishes fact events to a Kafka topic via segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic is the topic fact events are written to.
	Topic string
}

// Publisher writes fact events to Kafka. Messages are keyed by fact id so
// all transitions of one fact land on one partition in order.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if c.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(c.Brokers...),
		Topic:    c.Topic,
		Balancer: &kafkago.Hash{},
	}

	logger.Info("kafka eventstream publisher initialized",
		"brokers", c.Brokers,
		"topic", c.Topic,
	)

	return &Publisher{writer: writer, logger: logger}, nil
}

// PublishFact writes one event.
func (p *Publisher) PublishFact(ctx context.Context, event *eventstream.FactChangedEvent) error {
	if event == nil {
		return eventstream.ErrNilFactEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling fact event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.FactID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing fact event: %w", err)
	}

	p.logger.Debug("published fact event",
		"event_type", event.EventType,
		"fact_id", event.FactID,
	)

	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
