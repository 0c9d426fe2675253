package checkpoint

import (
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

// Mode selects how the Resume System picks the checkpoint to resume
// from (spec.md §6 "Resume command-line contract").
type Mode string

const (
	ModeFull        Mode = "full"
	ModeLast        Mode = "last"
	ModeBest        Mode = "best"
	ModeInteractive Mode = "interactive"
)

// ResumeContext is the reconstructed in-memory value describing what a
// resumed operation has already done and what remains (spec.md
// Glossary "Resume context").
type ResumeContext struct {
	OperationID      string
	CompletedStages  []string
	PendingStages    []string
	StageResults     map[string]stage.Result
	OriginalStart    time.Time
	ResumedAt        time.Time
	Mode             Mode
	Reason           string
	SourceCheckpoint string
}

// FromCheckpoint builds a ResumeContext from a verified checkpoint. The
// caller is responsible for verification before calling this; it is a
// pure reshaping step.
func FromCheckpoint(cp Checkpoint, mode Mode, reason string, resumedAt time.Time) ResumeContext {
	results := make(map[string]stage.Result, len(cp.State.StageResults))
	for id, r := range cp.State.StageResults {
		results[id] = r
	}
	return ResumeContext{
		OperationID:      cp.Metadata.OperationID,
		CompletedStages:  append([]string(nil), cp.State.CompletedStages...),
		PendingStages:    append([]string(nil), cp.State.PendingStages...),
		StageResults:     results,
		OriginalStart:    cp.Metadata.CreatedAt.Add(-cp.Metadata.Elapsed),
		ResumedAt:        resumedAt,
		Mode:             mode,
		Reason:           reason,
		SourceCheckpoint: cp.Metadata.CheckpointID,
	}
}
