package resume

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
)

// AuditLog records every checkpoint lifecycle event (create, verify,
// resume, crash detection) as one zerolog line, independent of the
// orchestrator's own structured logger — an operator can point this at
// a separate append-only file to keep a durable record of resume
// activity even if the main log stream rotates or is sampled.
type AuditLog struct {
	logger zerolog.Logger
}

// NewAuditLog returns an AuditLog writing JSON lines to w.
func NewAuditLog(w io.Writer) *AuditLog {
	return &AuditLog{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// CheckpointCreated records a successful checkpoint write.
func (a *AuditLog) CheckpointCreated(md checkpoint.Metadata) {
	a.logger.Info().
		Str("event", "checkpoint_created").
		Str("checkpoint_id", md.CheckpointID).
		Str("operation_id", md.OperationID).
		Str("stage_name", md.StageName).
		Float64("progress_percent", md.ProgressPercent).
		Bool("verified", md.Verified).
		Msg("checkpoint created")
}

// VerificationResult records the outcome of a checkpoint verification.
func (a *AuditLog) VerificationResult(checkpointID string, ok bool, err error) {
	ev := a.logger.Info()
	if !ok || err != nil {
		ev = a.logger.Warn()
	}
	ev = ev.Str("event", "checkpoint_verified").Str("checkpoint_id", checkpointID).Bool("ok", ok)
	if err != nil {
		ev = ev.AnErr("error", err)
	}
	ev.Msg("checkpoint verification")
}

// ResumeAttempted records a resume attempt, success or failure.
func (a *AuditLog) ResumeAttempted(operationID, checkpointID string, mode checkpoint.Mode, success bool, at time.Time) {
	a.logger.Info().
		Str("event", "resume_attempted").
		Str("operation_id", operationID).
		Str("checkpoint_id", checkpointID).
		Str("mode", string(mode)).
		Bool("success", success).
		Time("resumed_at", at).
		Msg("resume attempted")
}

// CrashDetected records the result of a crash-detection sweep.
func (a *AuditLog) CrashDetected(operationIDs []string) {
	a.logger.Warn().
		Str("event", "crash_detected").
		Strs("operation_ids", operationIDs).
		Msg("crashed operations detected")
}
