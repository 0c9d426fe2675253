package stage

import "time"

// Mode selects how the engine advances through the dependency levels.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeParallel   Mode = "parallel"
	ModeHybrid     Mode = "hybrid"
)

// ErrorStrategy governs the engine's reaction to a stage failure
// (spec.md §4.G item 4).
type ErrorStrategy string

const (
	ErrorStrategyFailFast ErrorStrategy = "fail_fast"
	ErrorStrategyContinue ErrorStrategy = "continue"
	ErrorStrategyRetry    ErrorStrategy = "retry"
	ErrorStrategySkip     ErrorStrategy = "skip"
)

// ExecutionConfig parameterizes one call to the engine's Execute
// operation.
type ExecutionConfig struct {
	Mode                Mode
	ErrorStrategy       ErrorStrategy
	MaxConcurrentStages int
	GlobalTimeout       time.Duration
	DryRun              bool
	Environment         map[string]string
}

// WithDefaults fills in the documented defaults for zero-valued fields.
func (c ExecutionConfig) WithDefaults() ExecutionConfig {
	out := c
	if out.Mode == "" {
		out.Mode = ModeParallel
	}
	if out.ErrorStrategy == "" {
		out.ErrorStrategy = ErrorStrategyFailFast
	}
	if out.MaxConcurrentStages <= 0 {
		out.MaxConcurrentStages = 4
	}
	return out
}
