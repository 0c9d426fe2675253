package logging

import (
	"context"

	"github.com/reconctl/reconctl/internal/ports"
)

// WithCorrelationID stores id in ctx for every logger/metric/span derived
// from it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return ports.WithCorrelationID(ctx, id)
}

// GetCorrelationID retrieves the correlation ID from ctx, or "" if unset.
func GetCorrelationID(ctx context.Context) string {
	return ports.GetCorrelationID(ctx)
}

// GenerateCorrelationID creates a new correlation ID for one CLI
// invocation or one engine.Execute call.
func GenerateCorrelationID() string {
	return ports.GenerateCorrelationID()
}
