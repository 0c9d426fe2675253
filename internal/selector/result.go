package selector

import (
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

// Status is the outcome classification from spec.md §4.D.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusPartialSuccess     Status = "partial_success"
	StatusCircularDependency Status = "circular_dependency"
	StatusIncompatibleStages Status = "incompatible_stages"
	StatusValidationFailed   Status = "validation_failed"
	StatusEmptySelection     Status = "empty_selection"
	StatusConfigurationError Status = "configuration_error"
)

// ResourceEstimate is the per-resource usage estimate from spec.md
// §4.D step 9.
type ResourceEstimate struct {
	CPUMinutes float64
	MemoryMB   float64
	NetworkMB  float64
	DiskMB     float64
}

// toMap converts e into the ResourceKind-keyed shape
// ExecutionPlan.ResourceEstimates carries.
func (e ResourceEstimate) toMap() map[stage.ResourceKind]float64 {
	return map[stage.ResourceKind]float64{
		stage.ResourceCPU:     e.CPUMinutes,
		stage.ResourceMemory:  e.MemoryMB,
		stage.ResourceNetwork: e.NetworkMB,
		stage.ResourceDisk:    e.DiskMB,
	}
}

// Result is the outcome of one Select call.
type Result struct {
	Status Status

	Stages         []stage.Definition
	ExecutionOrder []string
	ParallelGroups [][]string
	Plan           stage.ExecutionPlan

	EstimatedSequentialDuration time.Duration
	EstimatedParallelDuration   time.Duration
	Resources                   ResourceEstimate

	CompatibilityScore float64
	Warnings           []string
	Errors             []string
	Information        []string

	UniverseCount int
	SelectedCount int
	Ratio         float64
	CacheKey      string
	CreatedAt     time.Time

	FromCache bool
}

// ResultDocument is the information-preserving wire shape named by
// spec.md §6 "Selection result export/import": selection status,
// selected stage ids, execution order, errors, warnings, information,
// timestamps (milliseconds since epoch), counts, ratio, and cache key.
// It intentionally omits full stage Definitions, ParallelGroups,
// resource/compatibility estimates, and Plan, which are not part of the
// named export contract.
type ResultDocument struct {
	Status           string   `json:"status"`
	SelectedStageIDs []string `json:"selected_stage_ids"`
	ExecutionOrder   []string `json:"execution_order"`
	Errors           []string `json:"errors"`
	Warnings         []string `json:"warnings"`
	Information      []string `json:"information"`
	TimestampMS      int64    `json:"timestamp_ms"`
	UniverseCount    int      `json:"universe_count"`
	SelectedCount    int      `json:"selected_count"`
	Ratio            float64  `json:"selection_ratio"`
	CacheKey         string   `json:"cache_key"`
}

// Export converts r into its information-preserving document form.
func (r Result) Export() ResultDocument {
	ids := make([]string, 0, len(r.Stages))
	for _, d := range r.Stages {
		ids = append(ids, d.ID)
	}
	return ResultDocument{
		Status:           string(r.Status),
		SelectedStageIDs: ids,
		ExecutionOrder:   append([]string(nil), r.ExecutionOrder...),
		Errors:           append([]string(nil), r.Errors...),
		Warnings:         append([]string(nil), r.Warnings...),
		Information:      append([]string(nil), r.Information...),
		TimestampMS:      r.CreatedAt.UnixMilli(),
		UniverseCount:    r.UniverseCount,
		SelectedCount:    r.SelectedCount,
		Ratio:            r.Ratio,
		CacheKey:         r.CacheKey,
	}
}

// ImportResult reconstructs a Result from its exported document. Fields
// outside the export contract (full Stages, ParallelGroups, Plan,
// resource/compatibility estimates) are left zero-valued; Stages
// carries only the selected ids, as placeholder definitions, since the
// document does not preserve full stage bodies.
func ImportResult(doc ResultDocument) Result {
	stages := make([]stage.Definition, 0, len(doc.SelectedStageIDs))
	for _, id := range doc.SelectedStageIDs {
		stages = append(stages, stage.Definition{ID: id})
	}
	return Result{
		Status:         Status(doc.Status),
		Stages:         stages,
		ExecutionOrder: append([]string(nil), doc.ExecutionOrder...),
		Errors:         append([]string(nil), doc.Errors...),
		Warnings:       append([]string(nil), doc.Warnings...),
		Information:    append([]string(nil), doc.Information...),
		CreatedAt:      time.UnixMilli(doc.TimestampMS).UTC(),
		UniverseCount:  doc.UniverseCount,
		SelectedCount:  doc.SelectedCount,
		Ratio:          doc.Ratio,
		CacheKey:       doc.CacheKey,
	}
}

const cpuWeightCritical = 2.0
const cpuWeightHigh = 1.5
const cpuWeightDefault = 1.0

const (
	memoryPerStageMB = 100.0
	networkUsageMB   = 50.0
	diskUsageMB      = 10.0
)

func cpuWeight(p stage.Priority) float64 {
	switch p {
	case stage.PriorityCritical:
		return cpuWeightCritical
	case stage.PriorityHigh:
		return cpuWeightHigh
	default:
		return cpuWeightDefault
	}
}
