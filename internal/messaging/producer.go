package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	producerTracer = otel.Tracer("fooddelivery/messaging/producer")
	meter          = otel.Meter("fooddelivery/messaging")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON events. Every event type has its own topic, named
// after the type, and the type is repeated in the event-type header.
type Producer struct {
	writer    messageWriter
	published metric.Int64Counter
}

func NewProducer(brokers []string) (*Producer, error) {
	return newProducer(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	})
}

func newProducer(writer messageWriter) (*Producer, error) {
	published, err := meter.Int64Counter("messaging.events.published",
		metric.WithDescription("Order events handed to Kafka, by topic and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create messaging.events.published counter: %w", err)
	}

	return &Producer{writer: writer, published: published}, nil
}

// Publish writes event to topic keyed by key, so events of one order stay on
// one partition in order.
func (p *Producer) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	ctx, span := producerTracer.Start(ctx, "send "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("send"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(topic),
			semconv.MessagingKafkaMessageKey(key),
			semconv.MessagingMessageBodySize(len(data)),
		),
	)
	defer span.End()

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}
	setHeader(&msg.Headers, HeaderEventType, topic)
	setHeader(&msg.Headers, HeaderContentType, "application/json")
	injectTrace(ctx, &msg)

	outcome := "ok"
	defer func() {
		p.published.Add(ctx, 1, metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("outcome", outcome),
		))
	}()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("write %s event: %w", topic, err)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
