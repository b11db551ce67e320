// Package kafka carries backend change envelopes over Kafka topics.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/productivity-nox/noxstat/internal/realtime"
)

// Handler receives each decoded change envelope.
type Handler func(ctx context.Context, env realtime.Envelope) error

// Config selects the brokers, topic and consumer group.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads change envelopes from a topic and hands them to a Handler.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
}

// NewConsumer creates a consumer. Messages are JSON envelopes in the
// database-webhook shape.
func NewConsumer(cfg Config, handler Handler) (*Consumer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})
	return &Consumer{reader: reader, handler: handler}, nil
}

// Start consumes until ctx is cancelled. Bad messages are logged and
// skipped.
func (c *Consumer) Start(ctx context.Context) error {
	log.Println("Starting change consumer...")

	for {
		message, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Stopping change consumer...")
				return c.reader.Close()
			}
			log.Printf("Error reading change message: %v", err)
			continue
		}

		if err := c.processMessage(ctx, message); err != nil {
			log.Printf("Error processing change message at offset %d: %v", message.Offset, err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, message kafka.Message) error {
	env, err := realtime.DecodeWebhook(message.Value)
	if err != nil {
		return fmt.Errorf("decoding change: %w", err)
	}
	return c.handler(ctx, env)
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
