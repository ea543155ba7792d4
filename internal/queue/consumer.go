package queue

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageHandler processes one queue message. A returned error is recorded
// and logged; the message is still committed, because retries go through the
// payment retry pass rather than broker redelivery.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consumer reads one topic within the shared worker group.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer creates a Kafka consumer for a topic.
func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Topic returns the consumed topic name.
func (c *Consumer) Topic() string {
	return c.reader.Config().Topic
}

// Run fetches messages and dispatches them to the handler until the context
// is cancelled.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Consumer started", zap.String("topic", c.Topic()))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Consumer stopping", zap.String("topic", c.Topic()))
				return ctx.Err()
			}
			c.logger.Error("Fetch message failed", zap.String("topic", c.Topic()), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if err := handler(ctx, msg); err != nil {
			// The handler has already recorded the failure on the payment
			// row; log with full context and move on.
			c.logger.Error("Message handling failed",
				zap.String("topic", c.Topic()),
				zap.ByteString("key", msg.Key),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Commit failed", zap.String("topic", c.Topic()), zap.Error(err))
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
