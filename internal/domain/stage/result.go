package stage

import (
	"time"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

// Result is the outcome of one stage attempt (spec.md §3, StageResult).
type Result struct {
	StageID   string
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	ExitCode  int
	Error     *domainerrors.Error
	Message   string
	Metadata  map[string]string
}

// IsSuccess reports whether the stage completed without error.
func (r Result) IsSuccess() bool {
	return r.Status == StatusCompleted
}

// IsTerminal reports whether the result represents a terminal status.
func (r Result) IsTerminal() bool {
	return r.Status.Terminal()
}
