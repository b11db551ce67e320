package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/productivity-nox/noxstat/internal/model"
)

// messageWriter is the part of *kafka.Writer the Producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes analytics events as INSERT envelopes on a topic, so
// other noxstat daemons consuming the topic see them as backend changes.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a producer for cfg.Topic.
func NewProducer(cfg Config) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    10,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// Track implements tracker.Sink.
func (p *Producer) Track(ctx context.Context, e model.AnalyticsEvent) error {
	value, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	message := kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Time:  e.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("kafka: publishing event: %w", err)
	}
	return nil
}

// EncodeEvent renders an event as an analytics_events INSERT envelope.
func EncodeEvent(e model.AnalyticsEvent) ([]byte, error) {
	record := map[string]any{
		"id":         e.ID,
		"user_id":    e.UserID,
		"event_type": string(e.Type),
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if len(e.Properties) > 0 {
		record["properties"] = e.Properties
	}
	data, err := json.Marshal(map[string]any{
		"type":   "INSERT",
		"table":  string(model.TableEvents),
		"schema": "public",
		"record": record,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka: encoding event: %w", err)
	}
	return data, nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
