package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("fooddelivery/messaging/consumer")

// Handler processes one event payload read from topic.
type Handler func(ctx context.Context, topic string, payload []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader    messageReader
	groupID   string
	logger    *slog.Logger
	processed metric.Int64Counter
}

type ConsumerOption func(*kafka.ReaderConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *kafka.ReaderConfig) {
		cfg.StartOffset = offset
	}
}

// NewConsumer joins groupID and subscribes to every topic in topics.
func NewConsumer(brokers, topics []string, groupID string, logger *slog.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return newConsumer(kafka.NewReader(cfg), groupID, logger)
}

func newConsumer(reader messageReader, groupID string, logger *slog.Logger) (*Consumer, error) {
	processed, err := meter.Int64Counter("messaging.events.processed",
		metric.WithDescription("Order events consumed, by topic and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging.events.processed counter: %w", err)
	}

	return &Consumer{
		reader:    reader,
		groupID:   groupID,
		logger:    logger,
		processed: processed,
	}, nil
}

// Consume hands every message to handler until ctx is cancelled, which ends
// it with a nil error. A message the handler rejects is logged and committed
// anyway, so one malformed event cannot stall the group.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		c.processMessage(ctx, &msg, handler)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d on %s: %w", msg.Offset, msg.Topic, err)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, msg *kafka.Message, handler Handler) {
	ctx, span := consumerTracer.Start(extractTrace(ctx, msg), "process "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(msg.Topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
		),
	)
	defer span.End()

	outcome := "ok"
	if err := handler(ctx, msg.Topic, msg.Value); err != nil {
		outcome = "rejected"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(ctx, "dropping event",
			"error", err,
			"topic", msg.Topic,
			"event_type", headerValue(msg.Headers, HeaderEventType),
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
	}

	c.processed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", msg.Topic),
		attribute.String("outcome", outcome),
	))
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
