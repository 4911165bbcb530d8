package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Options struct {
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is the OTLP/gRPC collector address. Empty disables export.
	OTLPEndpoint string
	// RuntimeMetrics adds Go runtime instruments to the meter provider.
	RuntimeMetrics bool
}

// Telemetry holds the global tracer and meter providers of one binary.
type Telemetry struct {
	// MetricsHandler serves the Prometheus exposition of every instrument.
	MetricsHandler http.Handler

	shutdowns []func(context.Context) error
}

// Setup installs global tracer and meter providers and the W3C propagators.
func Setup(ctx context.Context, opts Options) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	)

	t := &Telemetry{}

	shutdownTracer, err := initTracerProvider(ctx, opts.OTLPEndpoint, res)
	if err != nil {
		return nil, fmt.Errorf("init tracer provider: %w", err)
	}
	t.shutdowns = append(t.shutdowns, shutdownTracer)

	handler, shutdownMeter, err := initMeterProvider(res)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("init meter provider: %w", err)
	}
	t.MetricsHandler = handler
	t.shutdowns = append(t.shutdowns, shutdownMeter)

	if opts.RuntimeMetrics {
		if err := runtime.Start(); err != nil {
			_ = t.Shutdown(ctx)
			return nil, fmt.Errorf("start runtime metrics: %w", err)
		}
	}

	return t, nil
}

// Shutdown flushes and stops the providers in reverse setup order.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		if err := t.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
