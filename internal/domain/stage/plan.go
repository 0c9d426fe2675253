package stage

import "time"

// ResourceKind enumerates the resource dimensions the selector estimates
// per spec.md §4.D item (9).
type ResourceKind string

const (
	ResourceCPU     ResourceKind = "cpu_minutes"
	ResourceMemory  ResourceKind = "memory_mb"
	ResourceNetwork ResourceKind = "network_mb"
	ResourceDisk    ResourceKind = "disk_mb"
)

// ExecutionPlan is the serializable artifact produced by the dependency
// resolver and enriched by the stage selector (spec.md §3).
type ExecutionPlan struct {
	PlanID                  string
	ExecutionOrder          []string
	ParallelGroups          [][]string
	DependencyMap           map[string][]string
	Constraints             map[string][]string
	TotalTimeEstimate       time.Duration
	ParallelEstimate        time.Duration
	ResourceEstimates       map[ResourceKind]float64
	CriticalPath            []string
	OptimizationSuggestions []string
	Valid                   bool
	Config                  ExecutionConfig
	CreatedAt               time.Time
}

// LevelForStage returns the index of the parallel group containing
// stageID, or -1 if absent.
func (p ExecutionPlan) LevelForStage(stageID string) int {
	for i, group := range p.ParallelGroups {
		for _, id := range group {
			if id == stageID {
				return i
			}
		}
	}
	return -1
}

// PlanDocument is the information-preserving wire shape named by
// spec.md §6 "Execution plan export/import": plan id, execution order,
// estimated times (ms), peak resource usage, critical path, optimization
// suggestions, validity flag, creation timestamp (ms). It intentionally
// omits DependencyMap/Constraints/Config, which are not part of the
// named export contract.
type PlanDocument struct {
	PlanID                  string             `json:"plan_id"`
	ExecutionOrder          []string           `json:"execution_order"`
	EstimatedSequentialMS   int64              `json:"estimated_sequential_ms"`
	EstimatedParallelMS     int64              `json:"estimated_parallel_ms"`
	PeakResourceUsage       map[string]float64 `json:"peak_resource_usage"`
	CriticalPath            []string           `json:"critical_path"`
	OptimizationSuggestions []string           `json:"optimization_suggestions"`
	Valid                   bool               `json:"valid"`
	CreatedAtMS             int64              `json:"created_at_ms"`
}

// Export converts p into its information-preserving document form.
func (p ExecutionPlan) Export() PlanDocument {
	peak := make(map[string]float64, len(p.ResourceEstimates))
	for kind, v := range p.ResourceEstimates {
		peak[string(kind)] = v
	}
	return PlanDocument{
		PlanID:                  p.PlanID,
		ExecutionOrder:          append([]string(nil), p.ExecutionOrder...),
		EstimatedSequentialMS:   p.TotalTimeEstimate.Milliseconds(),
		EstimatedParallelMS:     p.ParallelEstimate.Milliseconds(),
		PeakResourceUsage:       peak,
		CriticalPath:            append([]string(nil), p.CriticalPath...),
		OptimizationSuggestions: append([]string(nil), p.OptimizationSuggestions...),
		Valid:                   p.Valid,
		CreatedAtMS:             p.CreatedAt.UnixMilli(),
	}
}

// ImportPlan reconstructs an ExecutionPlan from its exported document.
// Fields outside the export contract (DependencyMap, Constraints,
// Config) are left zero-valued.
func ImportPlan(doc PlanDocument) ExecutionPlan {
	estimates := make(map[ResourceKind]float64, len(doc.PeakResourceUsage))
	for kind, v := range doc.PeakResourceUsage {
		estimates[ResourceKind(kind)] = v
	}
	return ExecutionPlan{
		PlanID:                  doc.PlanID,
		ExecutionOrder:          append([]string(nil), doc.ExecutionOrder...),
		ResourceEstimates:       estimates,
		TotalTimeEstimate:       time.Duration(doc.EstimatedSequentialMS) * time.Millisecond,
		ParallelEstimate:        time.Duration(doc.EstimatedParallelMS) * time.Millisecond,
		CriticalPath:            append([]string(nil), doc.CriticalPath...),
		OptimizationSuggestions: append([]string(nil), doc.OptimizationSuggestions...),
		Valid:                   doc.Valid,
		CreatedAt:               time.UnixMilli(doc.CreatedAtMS).UTC(),
	}
}
