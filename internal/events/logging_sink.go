// Package events adapts the domain event.Sink contract to structured
// logging and adds dynamic subscriptions on top of it, so consumers that
// aren't wired in at construction time (a progress monitor attached mid-
// run, a metrics bridge, an audit logger) can still observe events.
package events

import (
	"context"
	"sort"
	"sync"

	"github.com/reconctl/reconctl/internal/domain/event"
	"github.com/reconctl/reconctl/internal/ports"
)

// LoggingSink renders every event as one structured log entry.
type LoggingSink struct {
	logger ports.Logger
}

// NewLoggingSink returns a sink that writes through logger.
func NewLoggingSink(logger ports.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

// Emit implements event.Sink.
func (s *LoggingSink) Emit(e event.Event) {
	if s == nil || s.logger == nil {
		return
	}

	fields := []interface{}{"event_type", string(e.Type)}
	if e.PipelineID != "" {
		fields = append(fields, "pipeline_id", e.PipelineID)
	}
	if e.StageID != "" {
		fields = append(fields, "stage_id", e.StageID)
	}

	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, k, e.Metadata[k])
	}

	msg := e.Message
	if msg == "" {
		msg = "orchestration event"
	}
	s.logger.Info(context.Background(), msg, fields...)
}

var _ event.Sink = (*LoggingSink)(nil)
