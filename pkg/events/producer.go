// Package events publishes ingestion lifecycle events to the external
// analytics shim (SPEC_FULL §3). Publishing is fire-and-forget: a failure
// is logged and never fails a refresh.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/pkg/models"
)

// Emitter publishes ingestion events. Production wiring uses KafkaEmitter;
// tests and KAFKA_EVENTS_ENABLED=false deployments use NoopEmitter.
type Emitter interface {
	Emit(ctx context.Context, event models.IngestionEvent) error
	Close() error
}

// ProducerConfig mirrors the teacher's Kafka producer configuration group.
type ProducerConfig struct {
	Brokers []string
	Topic   string
}

// KafkaEmitter publishes IngestionEvent values as JSON to a Kafka topic.
type KafkaEmitter struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

func NewKafkaEmitter(cfg ProducerConfig, logger ectologger.Logger) *KafkaEmitter {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaEmitter{writer: writer, logger: logger, topic: cfg.Topic}
}

func (e *KafkaEmitter) Emit(ctx context.Context, event models.IngestionEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.KafkaEmitter.Emit")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: e.topic,
		Key:   []byte(event.Source),
		Value: data,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(event.Source)},
		},
	}

	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source": event.Source}).
			Warn("failed to publish ingestion event")
		return err
	}
	return nil
}

func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

// NoopEmitter discards every event. Used when KAFKA_EVENTS_ENABLED is false.
type NoopEmitter struct{}

func (NoopEmitter) Emit(ctx context.Context, event models.IngestionEvent) error { return nil }
func (NoopEmitter) Close() error                                               { return nil }
