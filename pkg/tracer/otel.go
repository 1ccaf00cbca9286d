package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerAppName = "tagihan"

func StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(tracerAppName).Start(ctx, spanName, opts...)
}

// InitTraceProvider sets a global provider exporting to exp. Shutdown on the
// returned provider flushes pending spans.
func InitTraceProvider(exp sdktrace.SpanExporter, serviceName, version string) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		// Always be sure to batch in production.
		sdktrace.WithBatcher(exp),
		// Record information about this application in a Resource.
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
			attribute.String("environment", "cli"),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp
}

// NewJaeger is an exporter sending spans to a jaeger collector endpoint such
// as http://localhost:14268/api/traces.
func NewJaeger(endpoint string) (sdktrace.SpanExporter, error) {
	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot setup jaeger exporter: %w", err)
	}

	return exp, nil
}
