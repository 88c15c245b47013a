package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orbitsec/spacerisk/internal/config"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "producer closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes application events to their topics.  It satisfies the
// EventSink interfaces of the application services.
type Producer struct {
	writer  WriterInterface
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	closed  atomic.Bool
	sent    atomic.Int64
	failed  atomic.Int64
}

// NewProducer builds a producer over the configured brokers.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	batchTimeout := time.Second
	if cfg.TimeoutMS > 0 {
		batchTimeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	retries := cfg.ProducerRetries
	if retries <= 0 {
		retries = 3
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            retries,
		BatchSize:              batchSize,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
	}

	return &Producer{writer: writer, logger: logger.Named("kafka_producer")}
}

// WithMetrics attaches the application metrics; nil disables recording.
func (p *Producer) WithMetrics(m *prometheus.AppMetrics) *Producer {
	p.metrics = m
	return p
}

// NewProducerWithWriter wraps an existing writer, for tests.
func NewProducerWithWriter(w WriterInterface, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, logger: logger.Named("kafka_producer")}
}

// Publish wraps the payload in an event envelope and writes it to the topic
// routed from eventType.  Unknown event types land on the dead letter topic
// with a warning rather than being dropped.
func (p *Producer) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}

	topic, known := TopicFor(eventType)
	if !known {
		p.logger.Warn("unknown event type routed to dead letter",
			logging.String("event_type", eventType))
	}

	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event payload")
	}
	value, err := json.Marshal(env)
	if err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event envelope")
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(eventType),
		Value: value,
		Time:  env.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.failed.Add(1)
		prometheus.RecordEventPublished(p.metrics, topic, err)
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to publish event")
	}

	p.sent.Add(1)
	prometheus.RecordEventPublished(p.metrics, topic, nil)
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_id", env.EventID))
	return nil
}

// Sent returns how many events were published.
func (p *Producer) Sent() int64 { return p.sent.Load() }

// Failed returns how many publishes failed.
func (p *Producer) Failed() int64 { return p.failed.Load() }

// Close shuts the producer down; further publishes fail fast.
func (p *Producer) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
