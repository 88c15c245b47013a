package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/orbitsec/spacerisk/internal/config"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// Handler processes one decoded event envelope.  Returning an error leaves
// the message uncommitted so it is redelivered.
type Handler func(ctx context.Context, env *EventEnvelope) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic within a consumer group and dispatches envelopes
// to a handler.  The worker uses it to persist assessment updates.
type Consumer struct {
	reader  ReaderInterface
	handler Handler
	logger  logging.Logger
}

// NewConsumer builds a group consumer for the topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	startOffset := kafka.LastOffset
	if cfg.AutoOffsetReset == "earliest" {
		startOffset = kafka.FirstOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       topic,
		StartOffset: startOffset,
	})

	return &Consumer{
		reader:  reader,
		handler: handler,
		logger:  logger.Named("kafka_consumer"),
	}
}

// NewConsumerWithReader wraps an existing reader, for tests.
func NewConsumerWithReader(r ReaderInterface, handler Handler, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{reader: r, handler: handler, logger: logger.Named("kafka_consumer")}
}

// Run fetches, handles, and commits messages until the context is canceled.
// Undecodable messages are committed and skipped; handler failures leave the
// message uncommitted for redelivery.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to fetch message")
		}

		var env EventEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Warn("skipping undecodable message",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return errors.Wrap(err, errors.ErrCodeExternalService, "failed to commit message")
			}
			continue
		}

		if err := c.handler(ctx, &env); err != nil {
			c.logger.Error("event handler failed, message will be redelivered",
				logging.String("event_type", env.EventType),
				logging.String("event_id", env.EventID),
				logging.Err(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService, "failed to commit message")
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
