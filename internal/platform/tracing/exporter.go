package tracing

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConsoleExporter is a SpanExporter placeholder for local runs that have no
// collector configured. It satisfies the sdktrace.SpanExporter interface so
// the tracer provider always has something to batch against, without
// pulling in an OTLP exporter dependency a local run can't reach.
type ConsoleExporter struct{}

func (c *ConsoleExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (c *ConsoleExporter) Shutdown(ctx context.Context) error {
	return nil
}
