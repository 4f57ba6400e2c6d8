package tracing

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type recordingExporter struct {
	endpoint string
}

func (r *recordingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return nil
}

func (r *recordingExporter) Shutdown(ctx context.Context) error { return nil }

func swapExporter(t *testing.T) *recordingExporter {
	t.Helper()
	orig := newTraceExporter
	t.Cleanup(func() { newTraceExporter = orig })

	rec := &recordingExporter{}
	newTraceExporter = func(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
		rec.endpoint = endpoint
		return rec, nil
	}
	return rec
}

func TestInitTracerDisabled(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "false")
	rec := swapExporter(t)

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil || tracer == nil {
		t.Fatal("expected a provider and tracer even with tracing off")
	}
	if rec.endpoint != "" {
		t.Fatal("disabled tracing must not construct an exporter")
	}
}

func TestInitTracerUsesConfiguredEndpoint(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	rec := swapExporter(t)

	tp, tracer, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracer == nil {
		t.Fatal("expected tracer")
	}
	if rec.endpoint != "collector:4317" {
		t.Fatalf("expected configured endpoint, got %q", rec.endpoint)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracerDefaultEndpoint(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	rec := swapExporter(t)

	tp, _, err := InitTracer(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		tp.Shutdown(ctx)
	}()

	if rec.endpoint != "localhost:4317" {
		t.Fatalf("expected localhost:4317 default, got %q", rec.endpoint)
	}
}
