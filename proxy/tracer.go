package proxy

import (
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "authproxy"

// NewTraceProvider creates tracer provider that sends spans of proxy and opener to the exporter.
// Please refer to https://opentelemetry.io/docs/languages/go/exporters/ to know choices.
//
// This merge logic ensures that semconv works as expected and that the version from the exporter matches the provider
// please see - https://github.com/open-telemetry/opentelemetry-go/issues/4476
func NewTraceProvider(exp sdktrace.SpanExporter) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("merge resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	), nil
}
