package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	Async        bool
}

// DefaultProducerConfig returns defaults for the Kafka producer.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}
}

// MessageWriter is the subset of *kafka.Writer the producer depends on.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes Events.
type Producer struct {
	writer  MessageWriter
	brokers []string
	logger  *slog.Logger
	metrics *ProducerMetrics
	async   bool
}

// NewProducer creates a producer backed by a kafka-go writer. In async mode
// delivery failures surface through the completion callback, where they are
// logged and counted. metrics may be nil.
func NewProducer(cfg ProducerConfig, logger *slog.Logger, metrics *ProducerMetrics) *Producer {
	p := &Producer{
		brokers: cfg.Brokers,
		logger:  logger,
		metrics: metrics,
		async:   cfg.Async,
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	if cfg.Async {
		w.Completion = p.complete
	}
	p.writer = w
	return p
}

// NewProducerWithWriter builds a producer over an arbitrary writer.
func NewProducerWithWriter(w MessageWriter, logger *slog.Logger, metrics *ProducerMetrics) *Producer {
	return &Producer{writer: w, logger: logger, metrics: metrics}
}

func (p *Producer) complete(msgs []kafka.Message, err error) {
	for _, m := range msgs {
		if err != nil {
			p.countError(m.Topic)
			p.logger.Error("async publish failed",
				slog.String("topic", m.Topic),
				slog.String("key", string(m.Key)),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.countPublished(m.Topic)
	}
}

// Message converts event into a keyed message with type, source, correlation
// and trace headers.
func Message(ctx context.Context, topic string, event *Event) (kafka.Message, error) {
	data, err := event.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.AggregateID),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}
	if event.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key: "correlation_id", Value: []byte(event.CorrelationID),
		})
	}
	InjectTraceContext(ctx, &msg)
	return msg, nil
}

// Publish sends event to topic.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := Message(ctx, topic, event)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	if p.metrics != nil {
		p.metrics.Duration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		p.countError(topic)
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	// Async delivery is counted by complete.
	if !p.async {
		p.countPublished(topic)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

func (p *Producer) countPublished(topic string) {
	if p.metrics != nil {
		p.metrics.Published.WithLabelValues(topic).Inc()
	}
}

func (p *Producer) countError(topic string) {
	if p.metrics != nil {
		p.metrics.Errors.WithLabelValues(topic).Inc()
	}
}

// Ping checks broker connectivity.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers returns nil once any broker answers a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
