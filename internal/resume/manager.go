package resume

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/reconctl/reconctl/internal/domain/checkpoint"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/ports"
)

const (
	customCompressed = "compressed"
	customEncrypted  = "encrypted"
	flagTrue         = "true"
)

// Config configures a Manager.
type Config struct {
	Strategy            StrategyConfig
	CompressionEnabled  bool
	EncryptionEnabled   bool
	VerificationEnabled bool
	AutoCleanup         bool
	CleanupAge          time.Duration
	MaxCheckpointsPerOp int
	Granularity         checkpoint.Granularity
}

// WithDefaults fills unset fields with spec-reasonable defaults.
func (c Config) WithDefaults() Config {
	c.Strategy = c.Strategy.WithDefaults()
	if c.CleanupAge <= 0 {
		c.CleanupAge = 7 * 24 * time.Hour
	}
	if c.MaxCheckpointsPerOp <= 0 {
		c.MaxCheckpointsPerOp = 10
	}
	if c.Granularity == "" {
		c.Granularity = checkpoint.GranularityMedium
	}
	return c
}

// Manager implements spec.md §4.I's Resume System: it decides when to
// checkpoint, creates/verifies checkpoints, and reconstructs resume
// context, on top of a ports.CheckpointBackend.
type Manager struct {
	backend   ports.CheckpointBackend
	cipher    ports.Cipher
	cfg       Config
	logger    ports.Logger
	metrics   ports.MetricsCollector
	callbacks Callbacks

	mu         sync.Mutex
	operations map[string]*operationTracking
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithCipher installs a ports.Cipher used when cfg.EncryptionEnabled.
func WithCipher(c ports.Cipher) Option { return func(m *Manager) { m.cipher = c } }

// WithLogger installs a structured logger.
func WithLogger(l ports.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithMetrics installs a metrics collector.
func WithMetrics(c ports.MetricsCollector) Option { return func(m *Manager) { m.metrics = c } }

// WithCallbacks installs progress/checkpoint/recovery callbacks.
func WithCallbacks(cb Callbacks) Option { return func(m *Manager) { m.callbacks = cb } }

// NewManager constructs a Manager backed by backend.
func NewManager(backend ports.CheckpointBackend, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		backend:    backend,
		cfg:        cfg.WithDefaults(),
		operations: make(map[string]*operationTracking),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterRunning marks operationID as actively running, so crash
// detection won't flag it and trigger strategies have a start time to
// measure elapsed/interval against.
func (m *Manager) RegisterRunning(operationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[operationID] = &operationTracking{state: StateRunning, startedAt: time.Now()}
}

// UnregisterRunning marks operationID as no longer running (completed or
// failed normally, not crashed).
func (m *Manager) UnregisterRunning(operationID string, final State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tr, ok := m.operations[operationID]; ok {
		tr.state = final
	}
}

// NotifyProgress records a new progress observation for operationID,
// evaluates the configured trigger strategy, and creates a checkpoint
// when it fires. Returns the created checkpoint's id, or "" if no
// checkpoint was created this call.
func (m *Manager) NotifyProgress(ctx context.Context, operationID string, state checkpoint.PipelineState, percent float64, stageName string, memoryEstimateKB int64) (string, error) {
	m.callbacks.progress(operationID, percent)

	m.mu.Lock()
	tr, ok := m.operations[operationID]
	if !ok {
		tr = &operationTracking{state: StateRunning, startedAt: time.Now()}
		m.operations[operationID] = tr
	}
	d := decision{
		now:              time.Now(),
		progress:         percent,
		memoryEstimate:   memoryEstimateKB * 1024,
		lastCheckpointAt: tr.lastCheckpointAt,
		lastProgress:     tr.lastProgress,
	}
	fire := shouldCheckpoint(m.cfg.Strategy, d)
	m.mu.Unlock()

	if !fire {
		return "", nil
	}
	return m.createCheckpoint(ctx, operationID, state, percent, stageName, memoryEstimateKB, "")
}

// ForceCheckpoint creates a checkpoint regardless of strategy, provided
// the operation is currently running, recording reason in metadata.
func (m *Manager) ForceCheckpoint(ctx context.Context, operationID string, state checkpoint.PipelineState, percent float64, stageName string, memoryEstimateKB int64, reason string) (string, error) {
	m.mu.Lock()
	tr, ok := m.operations[operationID]
	m.mu.Unlock()
	if !ok || tr.state != StateRunning {
		return "", domainerrors.New(domainerrors.CodeValidationFailed, "operation is not running")
	}
	return m.createCheckpoint(ctx, operationID, state, percent, stageName, memoryEstimateKB, reason)
}

func (m *Manager) createCheckpoint(ctx context.Context, operationID string, state checkpoint.PipelineState, percent float64, stageName string, memoryEstimateKB int64, reason string) (string, error) {
	now := time.Now()
	id, err := newCheckpointID(operationID, now)
	if err != nil {
		return "", domainerrors.NewStorage("failed to generate checkpoint id", err)
	}

	m.mu.Lock()
	tr, ok := m.operations[operationID]
	if !ok {
		tr = &operationTracking{state: StateRunning, startedAt: now}
		m.operations[operationID] = tr
	}
	tr.state = StateCheckpointing
	elapsed := now.Sub(tr.startedAt)
	m.mu.Unlock()

	canonical, err := json.Marshal(state)
	if err != nil {
		return "", domainerrors.NewStorage("failed to serialize pipeline state", err)
	}

	metadata := checkpoint.Metadata{
		CheckpointID:      id,
		CreatedAt:         now,
		OperationID:       operationID,
		StageName:         stageName,
		Granularity:       m.cfg.Granularity,
		ProgressPercent:   checkpoint.ClampProgress(percent),
		MemoryFootprintKB: memoryEstimateKB,
		Elapsed:           elapsed,
	}
	if reason != "" {
		metadata.Custom = map[string]string{"force_reason": reason}
	}

	cp := checkpoint.Checkpoint{Metadata: metadata, State: state}

	if m.cfg.VerificationEnabled {
		sum := sha256.Sum256(canonical)
		metadata.Verified = true
		metadata.VerificationHash = hex.EncodeToString(sum[:])
	}

	payload := canonical
	usingBinary := false
	if m.cfg.CompressionEnabled {
		payload, err = deflate(payload)
		if err != nil {
			return "", domainerrors.NewStorage("failed to compress checkpoint payload", err)
		}
		setCustom(&metadata, customCompressed, flagTrue)
		usingBinary = true
	}
	if m.cfg.EncryptionEnabled {
		if m.cipher == nil {
			return "", domainerrors.New(domainerrors.CodeConfiguration, "encryption enabled but no cipher configured")
		}
		payload, err = m.cipher.Encrypt(payload)
		if err != nil {
			return "", domainerrors.NewStorage("failed to encrypt checkpoint payload", err)
		}
		setCustom(&metadata, customEncrypted, flagTrue)
		usingBinary = true
	}

	cp.Metadata = metadata
	if usingBinary {
		cp.BinaryData = payload
		cp.State = checkpoint.PipelineState{}
	}

	if err := cp.Validate(); err != nil {
		return "", err
	}
	if err := m.backend.Save(ctx, cp); err != nil {
		return "", err
	}

	m.mu.Lock()
	tr.state = StateRunning
	tr.lastCheckpointAt = now
	tr.lastProgress = percent
	tr.lastMemoryEstimate = memoryEstimateKB * 1024
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info(ctx, "checkpoint created", "checkpoint_id", id, "operation_id", operationID, "progress_percent", percent)
	}
	if m.metrics != nil {
		m.metrics.IncCounter(ctx, "checkpoints_created_total", nil)
	}
	m.callbacks.checkpoint(id, metadata)

	if m.cfg.AutoCleanup {
		if err := m.cleanup(ctx, operationID, now); err != nil && m.logger != nil {
			m.logger.Warn(ctx, "checkpoint cleanup failed", "operation_id", operationID, "error", err)
		}
	}

	return id, nil
}

func setCustom(m *checkpoint.Metadata, key, value string) {
	if m.Custom == nil {
		m.Custom = make(map[string]string)
	}
	m.Custom[key] = value
}

// Verify recomputes the digest over a checkpoint's canonical
// serialization and reports whether it matches the stored hash.
func (m *Manager) Verify(ctx context.Context, checkpointID string) (bool, error) {
	cp, err := m.backend.Load(ctx, checkpointID)
	if err != nil {
		return false, err
	}
	if cp.Metadata.VerificationHash == "" {
		return false, domainerrors.NewVerification("checkpoint has no stored verification hash")
	}

	canonical, err := m.canonicalPayload(cp)
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]) == cp.Metadata.VerificationHash, nil
}

// canonicalPayload recovers the canonical JSON serialization a
// checkpoint was created from, reversing encryption/compression.
func (m *Manager) canonicalPayload(cp checkpoint.Checkpoint) ([]byte, error) {
	if len(cp.BinaryData) == 0 {
		return json.Marshal(cp.State)
	}

	payload := cp.BinaryData
	if cp.Metadata.Custom[customEncrypted] == flagTrue {
		if m.cipher == nil {
			return nil, domainerrors.New(domainerrors.CodeConfiguration, "checkpoint is encrypted but no cipher configured")
		}
		decrypted, err := m.cipher.Decrypt(payload)
		if err != nil {
			return nil, domainerrors.NewStorage("failed to decrypt checkpoint payload", err)
		}
		payload = decrypted
	}
	if cp.Metadata.Custom[customCompressed] == flagTrue {
		inflated, err := inflate(payload)
		if err != nil {
			return nil, domainerrors.NewStorage("failed to decompress checkpoint payload", err)
		}
		payload = inflated
	}
	return payload, nil
}

// CanResume reports whether storage holds at least one checkpoint for
// operationID.
func (m *Manager) CanResume(ctx context.Context, operationID string) (bool, error) {
	ids, err := m.backend.List(ctx, operationID)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// ResumeFrom loads, verifies, decrypts, decompresses, and parses a
// specific checkpoint, returning the reconstructed resume context.
func (m *Manager) ResumeFrom(ctx context.Context, checkpointID string, mode checkpoint.Mode, reason string) (checkpoint.ResumeContext, error) {
	cp, err := m.backend.Load(ctx, checkpointID)
	if err != nil {
		m.callbacks.recovery(checkpointID, false)
		return checkpoint.ResumeContext{}, err
	}

	if cp.Metadata.Verified {
		ok, err := m.Verify(ctx, checkpointID)
		if err != nil {
			m.callbacks.recovery(checkpointID, false)
			return checkpoint.ResumeContext{}, err
		}
		if !ok {
			m.callbacks.recovery(checkpointID, false)
			return checkpoint.ResumeContext{}, domainerrors.NewVerification("checkpoint verification hash mismatch")
		}
	}

	state := cp.State
	if len(cp.BinaryData) > 0 {
		canonical, err := m.canonicalPayload(cp)
		if err != nil {
			m.callbacks.recovery(checkpointID, false)
			return checkpoint.ResumeContext{}, err
		}
		if err := json.Unmarshal(canonical, &state); err != nil {
			m.callbacks.recovery(checkpointID, false)
			return checkpoint.ResumeContext{}, domainerrors.NewStorage("failed to parse checkpoint payload", err)
		}
	}
	cp.State = state

	resumedAt := time.Now()
	rc := checkpoint.FromCheckpoint(cp, mode, reason, resumedAt)

	m.mu.Lock()
	m.operations[rc.OperationID] = &operationTracking{state: StateRecovering, startedAt: rc.OriginalStart}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info(ctx, "resumed from checkpoint", "checkpoint_id", checkpointID, "operation_id", rc.OperationID, "mode", string(mode))
	}
	if m.metrics != nil {
		m.metrics.IncCounter(ctx, "checkpoints_restored_total", nil)
	}
	m.callbacks.recovery(checkpointID, true)
	return rc, nil
}

// ResumeAutomatically selects the checkpoint maximizing progress (ties
// broken by most recent timestamp) for operationID and resumes in best
// mode.
func (m *Manager) ResumeAutomatically(ctx context.Context, operationID string) (checkpoint.ResumeContext, error) {
	ids, err := m.backend.List(ctx, operationID)
	if err != nil {
		return checkpoint.ResumeContext{}, err
	}
	if len(ids) == 0 {
		return checkpoint.ResumeContext{}, domainerrors.NewNotFound("no checkpoints found for operation", map[string]interface{}{"operation_id": operationID})
	}

	var best checkpoint.Metadata
	bestSet := false
	for _, id := range ids {
		md, err := m.backend.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		if !bestSet {
			best, bestSet = md, true
			continue
		}
		if md.ProgressPercent > best.ProgressPercent ||
			(md.ProgressPercent == best.ProgressPercent && md.CreatedAt.After(best.CreatedAt)) {
			best = md
		}
	}
	if !bestSet {
		return checkpoint.ResumeContext{}, domainerrors.NewNotFound("no resolvable checkpoints found for operation", map[string]interface{}{"operation_id": operationID})
	}

	return m.ResumeFrom(ctx, best.CheckpointID, checkpoint.ModeBest, "automatic resume")
}

// DetectCrashed reports operation ids present in storage that are not
// currently registered as running.
func (m *Manager) DetectCrashed(ctx context.Context) ([]string, error) {
	ids, err := m.backend.List(ctx, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		md, err := m.backend.GetMetadata(ctx, id)
		if err != nil {
			continue
		}
		seen[md.OperationID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var crashed []string
	for opID := range seen {
		tr, ok := m.operations[opID]
		if !ok || (tr.state != StateRunning && tr.state != StateCheckpointing && tr.state != StatePaused) {
			crashed = append(crashed, opID)
		}
	}
	sort.Strings(crashed)
	return crashed, nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate checkpoint payload: %w", err)
	}
	return out, nil
}
