// Package tracing configures OpenTelemetry tracing for the dashboard API.
//
// Poll ticks are traced as "realtime.poll" spans carrying the room and
// stream as dashboard.* attributes.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/trackitco/support-dashboard"

// Tracer returns the package-level tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTraceProvider initialises the OTel trace provider with an OTLP gRPC exporter.
// If endpoint is empty, tracing is disabled (noop provider is used).
// Returns a shutdown function that must be called on application exit.
func InitTraceProvider(ctx context.Context, endpoint, serviceName, version string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.1))),
	)

	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// StartPollSpan creates the span for one poll tick of a room.
func StartPollSpan(ctx context.Context, room, stream string, baseline bool) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "realtime.poll",
		trace.WithAttributes(
			attribute.String("dashboard.room", room),
			attribute.String("dashboard.stream", stream),
			attribute.Bool("dashboard.baseline", baseline),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndPollSpan records the tick result and ends the span.
func EndPollSpan(span trace.Span, emitted int, err error) {
	span.SetAttributes(attribute.Int("dashboard.emitted", emitted))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
