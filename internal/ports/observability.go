package ports

import "context"

// MetricsCollector records quantitative observability signals. The
// interface is backend-agnostic so adapters can sit on Prometheus or
// anything else. Standard names, all prefixed `reconctl_`:
//   - Counters: stage_executions_total{status}, pipeline_executions_total{status},
//     checkpoints_created_total, checkpoints_restored_total
//   - Gauges: threadpool_active_workers, threadpool_queue_depth,
//     engine_active_executions
//   - Histograms: stage_execution_duration_seconds{stage_id},
//     pipeline_execution_duration_seconds, checkpoint_write_duration_seconds
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

// Tracer manages distributed tracing spans. Span names follow
// `<component>.<operation>` (e.g. `engine.execute`, `task.run`,
// `resume.checkpoint`).
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, Span)
}

// Span represents an active tracing span.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(status SpanStatus, message string)
	End()
}

// SpanStatus is a strongly typed span result.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
