package messaging

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"
)

var _ propagation.TextMapCarrier = headerCarrier{}

// headerCarrier exposes Kafka message headers to OTel propagators.
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c headerCarrier) Get(key string) string {
	return headerValue(*c.headers, key)
}

// Set replaces an existing header in place so repeated injection does not
// duplicate keys.
func (c headerCarrier) Set(key, value string) {
	setHeader(c.headers, key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func injectTrace(ctx context.Context, msg *kafka.Message) {
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &msg.Headers})
}

func extractTrace(ctx context.Context, msg *kafka.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier{headers: &msg.Headers})
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func setHeader(headers *[]kafka.Header, key, value string) {
	for i, h := range *headers {
		if h.Key == key {
			(*headers)[i].Value = []byte(value)
			return
		}
	}
	*headers = append(*headers, kafka.Header{Key: key, Value: []byte(value)})
}
