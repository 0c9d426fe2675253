package resume

import "time"

// TriggerKind names one of spec.md §4.I's checkpoint trigger strategies.
type TriggerKind string

const (
	TriggerTimeBased     TriggerKind = "time_based"
	TriggerProgressBased TriggerKind = "progress_based"
	TriggerHybrid        TriggerKind = "hybrid"
	TriggerManual        TriggerKind = "manual"
	TriggerAdaptive      TriggerKind = "adaptive"
)

// StrategyConfig configures every trigger kind at once; a given Strategy
// only reads the fields it needs.
type StrategyConfig struct {
	Kind                 TriggerKind
	Interval             time.Duration // time_based / hybrid / adaptive
	ProgressThreshold    float64       // progress_based / hybrid, percentage points
	MemoryThresholdBytes int64         // adaptive
}

// WithDefaults fills unset fields with spec-reasonable defaults.
func (c StrategyConfig) WithDefaults() StrategyConfig {
	if c.Kind == "" {
		c.Kind = TriggerHybrid
	}
	if c.Interval <= 0 {
		c.Interval = 2 * time.Minute
	}
	if c.ProgressThreshold <= 0 {
		c.ProgressThreshold = 10
	}
	if c.MemoryThresholdBytes <= 0 {
		c.MemoryThresholdBytes = 256 * 1024 * 1024
	}
	return c
}

// decision is what a Strategy evaluates against to decide whether "now"
// is a good time to checkpoint.
type decision struct {
	now              time.Time
	progress         float64
	memoryEstimate   int64
	lastCheckpointAt time.Time
	lastProgress     float64
}

// shouldCheckpoint evaluates cfg's strategy against d.
func shouldCheckpoint(cfg StrategyConfig, d decision) bool {
	switch cfg.Kind {
	case TriggerManual:
		return false
	case TriggerTimeBased:
		return timeBased(cfg, d)
	case TriggerProgressBased:
		return progressBased(cfg, d)
	case TriggerAdaptive:
		return timeBased(cfg, d) || d.memoryEstimate > cfg.MemoryThresholdBytes
	case TriggerHybrid:
		fallthrough
	default:
		return timeBased(cfg, d) || progressBased(cfg, d)
	}
}

func timeBased(cfg StrategyConfig, d decision) bool {
	if d.lastCheckpointAt.IsZero() {
		return true
	}
	return d.now.Sub(d.lastCheckpointAt) >= cfg.Interval
}

func progressBased(cfg StrategyConfig, d decision) bool {
	if d.lastCheckpointAt.IsZero() {
		return true
	}
	return d.progress-d.lastProgress >= cfg.ProgressThreshold
}
