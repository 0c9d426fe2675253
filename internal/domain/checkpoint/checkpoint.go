// Package checkpoint defines the persisted-snapshot data model shared by
// the Checkpoint Storage and Resume System components (spec.md §3,
// §4.H, §4.I). It carries no storage or compression logic of its own —
// those live in internal/checkpointstore and internal/resume, which
// depend on this package rather than the reverse.
package checkpoint

import (
	"time"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/domain/stage"
)

// Granularity is the coarseness of a checkpoint (spec.md Glossary).
type Granularity string

const (
	GranularityCoarse Granularity = "coarse"
	GranularityMedium Granularity = "medium"
	GranularityFine   Granularity = "fine"
)

func (g Granularity) valid() bool {
	switch g {
	case GranularityCoarse, GranularityMedium, GranularityFine:
		return true
	}
	return false
}

// PipelineState is the operation-specific document embedded in a
// Checkpoint (spec.md §6 "Checkpoint file layout").
type PipelineState struct {
	CompletedStages []string                `json:"completed_stages" yaml:"completed_stages"`
	PendingStages   []string                `json:"pending_stages" yaml:"pending_stages"`
	StageResults    map[string]stage.Result `json:"stage_results" yaml:"stage_results"`
}

// Metadata is the `metadata` object of the checkpoint file layout
// (spec.md §3, §6).
type Metadata struct {
	CheckpointID      string            `json:"checkpoint_id" yaml:"checkpoint_id"`
	CreatedAt         time.Time         `json:"created_at" yaml:"created_at"`
	OperationID       string            `json:"operation_id" yaml:"operation_id"`
	StageName         string            `json:"stage_name" yaml:"stage_name"`
	Granularity       Granularity       `json:"granularity" yaml:"granularity"`
	ProgressPercent   float64           `json:"progress_percent" yaml:"progress_percent"`
	MemoryFootprintKB int64             `json:"memory_footprint_kb" yaml:"memory_footprint_kb"`
	Elapsed           time.Duration     `json:"elapsed" yaml:"elapsed"`
	Custom            map[string]string `json:"custom,omitempty" yaml:"custom,omitempty"`
	Verified          bool              `json:"verified" yaml:"verified"`
	VerificationHash  string            `json:"verification_hash,omitempty" yaml:"verification_hash,omitempty"`
}

// Checkpoint is a persistent snapshot of one operation's progress
// (spec.md §3 "Checkpoint").
type Checkpoint struct {
	Metadata   Metadata
	State      PipelineState
	BinaryData []byte
}

// ClampProgress forces p into [0, 100], matching the StageResult /
// Checkpoint progress invariant.
func ClampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Validate enforces the structural invariants from spec.md §3: a known
// granularity, a progress value in range, and — when the checkpoint
// claims to be verified — a non-empty hash. It does not itself compute
// or check the hash; that is internal/resume's job, since it requires
// the canonical serialization this package does not own.
func (c Checkpoint) Validate() error {
	if c.Metadata.CheckpointID == "" {
		return domainerrors.NewValidationFailed("checkpoint id is required", nil)
	}
	if c.Metadata.OperationID == "" {
		return domainerrors.NewValidationFailed("operation id is required", map[string]interface{}{
			"checkpoint_id": c.Metadata.CheckpointID,
		})
	}
	if !c.Metadata.Granularity.valid() {
		return domainerrors.NewValidationFailed("unknown granularity", map[string]interface{}{
			"granularity": c.Metadata.Granularity,
		})
	}
	if c.Metadata.ProgressPercent < 0 || c.Metadata.ProgressPercent > 100 {
		return domainerrors.NewValidationFailed("progress_percent out of range", map[string]interface{}{
			"progress_percent": c.Metadata.ProgressPercent,
		})
	}
	if c.Metadata.Verified && c.Metadata.VerificationHash == "" {
		return domainerrors.NewVerification("verified checkpoint is missing its hash")
	}
	return nil
}
