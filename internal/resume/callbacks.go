package resume

import "github.com/reconctl/reconctl/internal/domain/checkpoint"

// ProgressCallback is invoked whenever the Manager observes a progress
// update for operationID (spec.md §4.I "Callbacks").
type ProgressCallback func(operationID string, percent float64)

// CheckpointCallback is invoked immediately after a checkpoint is
// persisted.
type CheckpointCallback func(checkpointID string, metadata checkpoint.Metadata)

// RecoveryCallback is invoked after a resume attempt, success or not.
type RecoveryCallback func(checkpointID string, success bool)

// Callbacks bundles every Manager callback. Nil fields are treated as
// no-ops, so callers only need to set the ones they use.
type Callbacks struct {
	OnProgress   ProgressCallback
	OnCheckpoint CheckpointCallback
	OnRecovery   RecoveryCallback
}

func (c Callbacks) progress(operationID string, percent float64) {
	if c.OnProgress != nil {
		c.OnProgress(operationID, percent)
	}
}

func (c Callbacks) checkpoint(id string, metadata checkpoint.Metadata) {
	if c.OnCheckpoint != nil {
		c.OnCheckpoint(id, metadata)
	}
}

func (c Callbacks) recovery(id string, success bool) {
	if c.OnRecovery != nil {
		c.OnRecovery(id, success)
	}
}
