package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// BootstrapConfig configures the process-wide OTLP exporter Bootstrap installs.
type BootstrapConfig struct {
	// Endpoint is the OTLP/HTTP collector address ("host:port"). Empty
	// disables export entirely; GetTracer callers still get otel's default
	// no-op provider in that case.
	Endpoint string

	ServiceName string

	// Insecure sends spans over plain HTTP instead of TLS, for local
	// collectors that don't terminate TLS.
	Insecure bool
}

// Bootstrap installs a batching OTLP/HTTP TracerProvider as the global
// tracer provider, for the otel.Tracer(TracerName) call GetTracer falls
// back to when Settings carries no explicit Tracer. The returned func
// flushes and closes the exporter; call it on shutdown.
func Bootstrap(ctx context.Context, cfg BootstrapConfig) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "toolbridge"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", attribute.String("service.name", cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
