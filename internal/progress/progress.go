// Package progress implements the Progress Monitor component (spec.md
// §4.J): weighted task tracking, configurable ETA estimation, and
// milestone/update events delivered through the orchestrator-wide
// event.Sink contract.
package progress

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/reconctl/reconctl/internal/domain/event"
)

// Strategy selects the ETA estimation algorithm.
type Strategy string

const (
	StrategyLinear        Strategy = "linear"
	StrategyMovingAverage Strategy = "moving_average"
	StrategyExponential   Strategy = "exponential"
	StrategyAdaptive      Strategy = "adaptive"
	StrategyWeighted      Strategy = "weighted"
	StrategyHistorical    Strategy = "historical"
)

// UpdateMode governs how often Emit actually produces an "updated" event.
type UpdateMode string

const (
	ModeRealTime  UpdateMode = "real_time"
	ModeThrottled UpdateMode = "throttled"
	ModeOnDemand  UpdateMode = "on_demand"
)

const exponentialSmoothingAlpha = 0.3

// milestones fire once each, in ascending order, as overall progress
// crosses them.
var milestones = []float64{25, 50, 75, 100}

// Config configures a Monitor. Zero values are replaced by WithDefaults.
type Config struct {
	ETAStrategy         Strategy
	UpdateMode          UpdateMode
	UpdateInterval      time.Duration
	MovingAverageWindow int
	MaxHistorySize      int
}

// WithDefaults fills unset fields with the monitor's defaults.
func (c Config) WithDefaults() Config {
	if c.ETAStrategy == "" {
		c.ETAStrategy = StrategyAdaptive
	}
	if c.UpdateMode == "" {
		c.UpdateMode = ModeThrottled
	}
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = 100 * time.Millisecond
	}
	if c.MovingAverageWindow <= 0 {
		c.MovingAverageWindow = 10
	}
	if c.MaxHistorySize <= 0 {
		c.MaxHistorySize = 1000
	}
	return c
}

// taskState is the mutable per-task tracking record.
type taskState struct {
	weight         float64
	totalUnits     float64
	completedUnits float64
	failed         bool
	completed      bool
	startedAt      time.Time
	lastUpdateAt   time.Time
}

func (t *taskState) completionRatio() float64 {
	if t.totalUnits <= 0 {
		return 0
	}
	ratio := t.completedUnits / t.totalUnits
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return ratio
}

// rateSample is one (overall progress, elapsed) observation, used by the
// moving_average, exponential, and adaptive ETA strategies and by the
// confidence calculation.
type rateSample struct {
	progress float64
	elapsed  time.Duration
}

// Monitor is the Progress Monitor: it tracks a weighted set of tasks,
// computes overall progress and an ETA, and emits events to a sink.
type Monitor struct {
	cfg        Config
	sink       event.Sink
	pipelineID string

	mu           sync.Mutex
	tasks        map[string]*taskState
	taskOrder    []string
	startedAt    time.Time
	history      []rateSample
	lastEmitAt   time.Time
	reached      map[float64]bool
	started      bool
	cancelled    bool
	completedAll bool
}

// Option configures a Monitor at construction.
type Option func(*Monitor)

// WithSink injects the event sink events are emitted to.
func WithSink(s event.Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithPipelineID tags every emitted event with a pipeline id.
func WithPipelineID(id string) Option {
	return func(m *Monitor) { m.pipelineID = id }
}

// New constructs a Monitor. cfg's zero values are replaced by defaults.
func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:     cfg.WithDefaults(),
		sink:    event.NopSink{},
		tasks:   make(map[string]*taskState),
		reached: make(map[float64]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddTask registers a weighted task with the given total unit count.
// weight and totalUnits must be positive; AddTask is a no-op otherwise.
func (m *Monitor) AddTask(id string, weight, totalUnits float64) {
	if weight <= 0 || totalUnits <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tasks[id]; !exists {
		m.taskOrder = append(m.taskOrder, id)
	}
	m.tasks[id] = &taskState{weight: weight, totalUnits: totalUnits}
}

// Start marks monitoring as begun and emits a started event. Calling
// Start more than once is a no-op beyond the first call.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.startedAt = time.Now()
	m.mu.Unlock()

	m.emit(event.TypeMonitorStarted, "", "progress monitoring started", nil)
}

// UpdateUnits records completedUnits (an absolute count, not a delta)
// for task id and evaluates throttling/milestone/completion events.
func (m *Monitor) UpdateUnits(id string, completedUnits float64) {
	m.update(id, func(t *taskState) {
		t.completedUnits = completedUnits
	})
}

// UpdatePercentage records progress for task id as a percentage in
// [0,100]; values above 100 clamp to 100, values below 0 are ignored
// (spec.md §8 boundary behavior).
func (m *Monitor) UpdatePercentage(id string, percent float64) {
	if percent < 0 {
		return
	}
	if percent > 100 {
		percent = 100
	}
	m.update(id, func(t *taskState) {
		t.completedUnits = (percent / 100) * t.totalUnits
	})
}

// Increment adds delta completed units to task id.
func (m *Monitor) Increment(id string, delta float64) {
	m.update(id, func(t *taskState) {
		t.completedUnits += delta
	})
}

func (m *Monitor) update(id string, mutate func(t *taskState)) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if t.startedAt.IsZero() {
		t.startedAt = time.Now()
	}
	mutate(t)
	if t.completedUnits > t.totalUnits {
		t.completedUnits = t.totalUnits
	}
	if t.completedUnits < 0 {
		t.completedUnits = 0
	}
	t.lastUpdateAt = time.Now()
	overall := m.overallProgressLocked()
	m.recordSampleLocked(overall)
	crossed := m.crossedMilestonesLocked(overall)
	shouldEmit := m.shouldEmitLocked()
	m.mu.Unlock()

	for _, ms := range crossed {
		m.emit(event.TypeMilestoneReached, id, "milestone reached", map[string]interface{}{
			"milestone_percent": ms,
			"overall_progress":  overall,
		})
	}

	if shouldEmit {
		m.emitUpdated(id, overall)
	}
}

// CompleteStage marks task id as completed at its full unit count and
// emits stage_completed.
func (m *Monitor) CompleteStage(id string) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	t.completedUnits = t.totalUnits
	t.completed = true
	t.lastUpdateAt = time.Now()
	overall := m.overallProgressLocked()
	m.recordSampleLocked(overall)
	crossed := m.crossedMilestonesLocked(overall)
	allDone := m.allTasksTerminalLocked()
	m.mu.Unlock()

	for _, ms := range crossed {
		m.emit(event.TypeMilestoneReached, id, "milestone reached", map[string]interface{}{
			"milestone_percent": ms,
			"overall_progress":  overall,
		})
	}
	m.emit(event.TypeStageCompleted, id, "stage completed", map[string]interface{}{
		"overall_progress": overall,
	})
	if allDone {
		m.emitCompleted(overall)
	}
}

// FailStage marks task id as failed and emits stage_failed. A failed
// task is terminal: it contributes its current (not full) completion
// ratio to overall progress.
func (m *Monitor) FailStage(id string, errMessage string) {
	m.mu.Lock()
	t, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	t.failed = true
	t.lastUpdateAt = time.Now()
	overall := m.overallProgressLocked()
	allDone := m.allTasksTerminalLocked()
	m.mu.Unlock()

	m.emit(event.TypeStageFailed, id, errMessage, map[string]interface{}{
		"overall_progress": overall,
	})
	if allDone {
		m.emitCompleted(overall)
	}
}

// Cancel marks the monitor cancelled and emits a cancelled event.
// Calling Cancel more than once is idempotent.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	m.mu.Unlock()
	m.emit(event.TypeMonitorCancelled, "", "progress monitoring cancelled", nil)
}

// ReportError emits an error event without altering task state.
func (m *Monitor) ReportError(id string, message string) {
	m.emit(event.TypeMonitorError, id, message, nil)
}

// Refresh forces an update event regardless of update mode throttling;
// it is the explicit refresh the on_demand mode relies on.
func (m *Monitor) Refresh() {
	m.mu.Lock()
	overall := m.overallProgressLocked()
	m.lastEmitAt = time.Now()
	m.mu.Unlock()
	m.emitUpdated("", overall)
}

// OverallProgress returns Σ(weight·completed_ratio)/Σ(weight)·100.
func (m *Monitor) OverallProgress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overallProgressLocked()
}

func (m *Monitor) overallProgressLocked() float64 {
	var weightedCompleted, totalWeight float64
	for _, t := range m.tasks {
		totalWeight += t.weight
		weightedCompleted += t.weight * t.completionRatio()
	}
	if totalWeight <= 0 {
		return 0
	}
	return (weightedCompleted / totalWeight) * 100
}

func (m *Monitor) allTasksTerminalLocked() bool {
	if len(m.tasks) == 0 {
		return false
	}
	for _, t := range m.tasks {
		if !t.completed && !t.failed {
			return false
		}
	}
	return true
}

func (m *Monitor) recordSampleLocked(overallProgress float64) {
	if m.startedAt.IsZero() {
		m.startedAt = time.Now()
	}
	elapsed := time.Since(m.startedAt)
	m.history = append(m.history, rateSample{progress: overallProgress, elapsed: elapsed})
	if len(m.history) > m.cfg.MaxHistorySize {
		m.history = m.history[len(m.history)-m.cfg.MaxHistorySize:]
	}
}

func (m *Monitor) crossedMilestonesLocked(overallProgress float64) []float64 {
	var crossed []float64
	for _, ms := range milestones {
		if overallProgress >= ms && !m.reached[ms] {
			m.reached[ms] = true
			crossed = append(crossed, ms)
		}
	}
	sort.Float64s(crossed)
	return crossed
}

func (m *Monitor) shouldEmitLocked() bool {
	switch m.cfg.UpdateMode {
	case ModeRealTime:
		return true
	case ModeOnDemand:
		return false
	default: // ModeThrottled
		now := time.Now()
		if now.Sub(m.lastEmitAt) < m.cfg.UpdateInterval {
			return false
		}
		m.lastEmitAt = now
		return true
	}
}

func (m *Monitor) emitUpdated(stageID string, overallProgress float64) {
	eta, confidence := m.ETA()
	m.emit(event.TypeMonitorUpdated, stageID, "progress updated", map[string]interface{}{
		"overall_progress": overallProgress,
		"eta_ms":           eta.Milliseconds(),
		"confidence":       confidence,
	})
	m.emit(event.TypeETAUpdated, stageID, "eta updated", map[string]interface{}{
		"eta_ms":     eta.Milliseconds(),
		"confidence": confidence,
	})
}

func (m *Monitor) emitCompleted(overallProgress float64) {
	m.mu.Lock()
	if m.completedAll {
		m.mu.Unlock()
		return
	}
	m.completedAll = true
	m.mu.Unlock()
	m.emit(event.TypeMonitorCompleted, "", "all tasks terminal", map[string]interface{}{
		"overall_progress": overallProgress,
	})
}

func (m *Monitor) emit(t event.Type, stageID, message string, metadata map[string]interface{}) {
	m.sink.Emit(event.Event{
		Type:       t,
		Timestamp:  time.Now(),
		PipelineID: m.pipelineID,
		StageID:    stageID,
		Message:    message,
		Metadata:   metadata,
	})
}

// ETA returns the estimated remaining duration and a confidence in
// [0,1], computed per m.cfg.ETAStrategy.
func (m *Monitor) ETA() (time.Duration, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.etaLocked(), m.confidenceLocked()
}

func (m *Monitor) etaLocked() time.Duration {
	switch m.cfg.ETAStrategy {
	case StrategyLinear:
		return m.linearETALocked()
	case StrategyMovingAverage:
		return m.movingAverageETALocked()
	case StrategyExponential:
		return m.exponentialETALocked()
	case StrategyAdaptive:
		return m.adaptiveETALocked()
	case StrategyWeighted:
		return m.weightedETALocked()
	case StrategyHistorical:
		return m.linearETALocked()
	default:
		return m.linearETALocked()
	}
}

func (m *Monitor) linearETALocked() time.Duration {
	if len(m.history) == 0 {
		return 0
	}
	last := m.history[len(m.history)-1]
	if last.progress <= 0 || last.progress >= 100 {
		return 0
	}
	remaining := 100 - last.progress
	timePerPercent := float64(last.elapsed) / last.progress
	return time.Duration(remaining * timePerPercent)
}

func (m *Monitor) movingAverageETALocked() time.Duration {
	if len(m.history) < 2 {
		return 0
	}
	window := m.cfg.MovingAverageWindow
	if window > len(m.history) {
		window = len(m.history)
	}
	samples := m.history[len(m.history)-window:]

	var progressDelta float64
	var timeDelta time.Duration
	for i := 1; i < len(samples); i++ {
		progressDelta += samples[i].progress - samples[i-1].progress
		timeDelta += samples[i].elapsed - samples[i-1].elapsed
	}
	if progressDelta <= 0 || timeDelta <= 0 {
		return 0
	}
	rate := progressDelta / float64(timeDelta)
	remaining := 100 - samples[len(samples)-1].progress
	return time.Duration(remaining / rate)
}

func (m *Monitor) exponentialETALocked() time.Duration {
	if len(m.history) < 2 {
		return 0
	}
	var smoothedRate float64
	for i := 1; i < len(m.history); i++ {
		dt := m.history[i].elapsed - m.history[i-1].elapsed
		if dt <= 0 {
			continue
		}
		rate := (m.history[i].progress - m.history[i-1].progress) / float64(dt)
		if i == 1 {
			smoothedRate = rate
		} else {
			smoothedRate = exponentialSmoothingAlpha*rate + (1-exponentialSmoothingAlpha)*smoothedRate
		}
	}
	if smoothedRate <= 0 {
		return 0
	}
	remaining := 100 - m.history[len(m.history)-1].progress
	return time.Duration(remaining / smoothedRate)
}

func (m *Monitor) adaptiveETALocked() time.Duration {
	linear := m.linearETALocked()
	movingAvg := m.movingAverageETALocked()
	exponential := m.exponentialETALocked()

	linearWeight := 0.3
	movingAvgWeight := math.Min(0.4, float64(len(m.history))/20.0)
	exponentialWeight := 0.7 - movingAvgWeight
	totalWeight := linearWeight + movingAvgWeight + exponentialWeight
	if totalWeight <= 0 {
		return linear
	}

	weighted := (float64(linear)*linearWeight +
		float64(movingAvg)*movingAvgWeight +
		float64(exponential)*exponentialWeight) / totalWeight
	return time.Duration(weighted)
}

func (m *Monitor) weightedETALocked() time.Duration {
	var weightedRemaining, weightedCompleted float64
	var totalExecutionTime time.Duration
	for _, t := range m.tasks {
		ratio := t.completionRatio()
		weightedCompleted += ratio * t.weight
		weightedRemaining += (1 - ratio) * t.weight
		if !t.startedAt.IsZero() {
			end := t.lastUpdateAt
			if end.IsZero() {
				end = time.Now()
			}
			totalExecutionTime += end.Sub(t.startedAt)
		}
	}
	if weightedCompleted <= 0 {
		return 0
	}
	timePerWeightedUnit := float64(totalExecutionTime) / weightedCompleted
	return time.Duration(weightedRemaining * timePerWeightedUnit)
}

// confidenceLocked returns 1 minus the coefficient of variation of
// recent positive progress rates, clamped to [0.1, 1.0]. Fewer than
// three history samples yields the floor confidence of 0.1.
func (m *Monitor) confidenceLocked() float64 {
	if len(m.history) < 3 {
		return 0.1
	}

	window := len(m.history)
	if window > 10 {
		window = 10
	}
	samples := m.history[len(m.history)-window:]

	var rates []float64
	for i := 1; i < len(samples); i++ {
		dt := samples[i].elapsed - samples[i-1].elapsed
		if dt <= 0 {
			continue
		}
		rate := (samples[i].progress - samples[i-1].progress) / float64(dt)
		if rate > 0 {
			rates = append(rates, rate)
		}
	}
	if len(rates) == 0 {
		return 0.1
	}

	var sum float64
	for _, r := range rates {
		sum += r
	}
	mean := sum / float64(len(rates))

	var variance float64
	for _, r := range rates {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rates))
	stddev := math.Sqrt(variance)

	cv := 1.0
	if mean > 0 {
		cv = stddev / mean
	}

	confidence := 1.0 - cv
	if confidence < 0.1 {
		confidence = 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
