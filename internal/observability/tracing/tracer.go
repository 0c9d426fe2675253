// Package tracing implements ports.Tracer on top of the OpenTelemetry
// SDK, exporting finished spans through the orchestrator's structured
// logger rather than an OTLP collector: reconctl runs as a CLI/embedded
// library, not a long-lived service with a collector sidecar, so a
// log-backed exporter keeps trace data next to the rest of a run's
// output without an extra network dependency.
package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/reconctl/reconctl/internal/ports"
)

// Tracer implements ports.Tracer using an otel SDK TracerProvider.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New constructs a Tracer named serviceName, exporting finished spans
// through logger. Call Shutdown when done to flush any buffered spans.
func New(serviceName string, logger ports.Logger) (*Tracer, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(newLogExporter(logger)),
	)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer("reconctl"),
	}, nil
}

// StartSpan implements ports.Tracer.
func (t *Tracer) StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, ports.Span) {
	spanCtx, span := t.tracer.Start(ctx, name)
	s := &Span{span: span}
	for i := 0; i+1 < len(attributes); i += 2 {
		if key, ok := attributes[i].(string); ok {
			s.SetAttribute(key, attributes[i+1])
		}
	}
	return spanCtx, s
}

// Shutdown flushes buffered spans and releases the provider's resources.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// Span wraps an otel trace.Span as ports.Span.
type Span struct {
	mu   sync.Mutex
	span trace.Span
}

// SetAttribute implements ports.Span. An empty key is a no-op, so
// StartSpan can unconditionally seed the span without a branch.
func (s *Span) SetAttribute(key string, value interface{}) {
	if key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.SetAttributes(toAttribute(key, value))
}

// SetStatus implements ports.Span.
func (s *Span) SetStatus(status ports.SpanStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case ports.SpanStatusError:
		s.span.SetStatus(codes.Error, message)
	default:
		s.span.SetStatus(codes.Ok, message)
	}
}

// End implements ports.Span.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.span.End()
}

var _ ports.Tracer = (*Tracer)(nil)
var _ ports.Span = (*Span)(nil)

// logExporter writes finished spans as structured log lines.
type logExporter struct {
	logger ports.Logger
}

func newLogExporter(logger ports.Logger) *logExporter {
	return &logExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *logExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if e.logger == nil {
		return nil
	}
	for _, s := range spans {
		duration := s.EndTime().Sub(s.StartTime())
		fields := []interface{}{
			"span_name", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"span_id", s.SpanContext().SpanID().String(),
			"duration_ms", float64(duration) / float64(time.Millisecond),
			"status", s.Status().Code.String(),
		}
		for _, attr := range s.Attributes() {
			fields = append(fields, string(attr.Key), attr.Value.AsInterface())
		}
		e.logger.Debug(ctx, "span", fields...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *logExporter) Shutdown(context.Context) error { return nil }

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case time.Duration:
		return attribute.Int64(key, v.Milliseconds())
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
