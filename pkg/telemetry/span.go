package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaybridge/toolbridge/pkg/bridgetypes"
)

// SpanOptions configures a telemetry span
type SpanOptions struct {
	// Name is the operation name for the span
	Name string

	// Attributes are key-value pairs attached to the span
	Attributes []attribute.KeyValue

	// EndWhenDone controls whether the span should be ended automatically when the function returns
	EndWhenDone bool
}

// RecordSpan creates and executes a telemetry span for an operation.
// The span is automatically ended when the function completes, unless EndWhenDone is false.
// Errors are automatically recorded on the span.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	opts SpanOptions,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name,
		trace.WithAttributes(opts.Attributes...),
	)

	result, err := fn(ctx, span)

	if err != nil {
		RecordErrorOnSpan(span, err)
		span.End()
		var zero T
		return zero, err
	}

	if opts.EndWhenDone {
		span.End()
	}

	return result, nil
}

// RecordErrorOnSpan records an error on a span and sets the span status to error.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetBaseAttributes returns the attributes common to every span in one
// request's pipeline, derived directly from the resolved RequestContext: the
// channel/upstream this request was routed to, the client-facing model
// string it arrived with, and whether the tool-call emulation path (C2/C5)
// is active for it. extraHeaders carries any transport-level header a
// caller wants attached (e.g. a provider-assigned trace id); credential
// headers are never accepted here since callers build extraHeaders from an
// explicit allowlist, not by forwarding the raw request headers.
func GetBaseAttributes(
	rc bridgetypes.RequestContext,
	settings *Settings,
	extraHeaders map[string]string,
) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("toolbridge.request.id", rc.RequestID),
		attribute.String("toolbridge.upstream.protocol", string(rc.Upstream.Protocol)),
		attribute.String("toolbridge.upstream.model", rc.Upstream.UpstreamModel),
		attribute.String("toolbridge.client.model", rc.Original.Model),
		attribute.Bool("toolbridge.request.hasTools", rc.Delimiter != nil),
		attribute.Bool("toolbridge.request.stream", rc.Original.Stream),
	}

	if settings != nil {
		if settings.FunctionID != "" {
			attrs = append(attrs, attribute.String("toolbridge.telemetry.functionId", settings.FunctionID))
		}

		for key, value := range settings.Metadata {
			attrs = append(attrs, attribute.KeyValue{
				Key:   attribute.Key("toolbridge.telemetry.metadata." + key),
				Value: value,
			})
		}
	}

	for key, value := range extraHeaders {
		attrs = append(attrs, attribute.String("toolbridge.request.headers."+key, value))
	}

	return attrs
}
