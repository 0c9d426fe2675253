package stage

import (
	"reflect"
	"testing"
	"time"
)

func TestExecutionPlanExportImportRoundTrip(t *testing.T) {
	original := ExecutionPlan{
		PlanID:         "plan-abc123",
		ExecutionOrder: []string{"subhunter", "httpxpp", "nuclei"},
		ParallelGroups: [][]string{{"subhunter"}, {"httpxpp"}, {"nuclei"}},
		DependencyMap: map[string][]string{
			"httpxpp": {"subhunter"},
			"nuclei":  {"httpxpp"},
		},
		Constraints: map[string][]string{
			"subhunter": {string(ConstraintNetworkDependent)},
		},
		TotalTimeEstimate:       90 * time.Second,
		ParallelEstimate:        60 * time.Second,
		ResourceEstimates:       map[ResourceKind]float64{ResourceCPU: 3, ResourceMemory: 300},
		CriticalPath:            []string{"subhunter", "httpxpp", "nuclei"},
		OptimizationSuggestions: []string{"high parallelism opportunity: parallel estimate is less than half the sequential estimate"},
		Valid:                   true,
		Config:                  ExecutionConfig{Mode: ModeParallel},
		CreatedAt:               time.UnixMilli(1_700_000_000_000).UTC(),
	}

	doc := original.Export()
	roundtripped := ImportPlan(doc)

	if roundtripped.PlanID != original.PlanID {
		t.Fatalf("plan_id: got %q want %q", roundtripped.PlanID, original.PlanID)
	}
	if !reflect.DeepEqual(roundtripped.ExecutionOrder, original.ExecutionOrder) {
		t.Fatalf("execution_order: got %v want %v", roundtripped.ExecutionOrder, original.ExecutionOrder)
	}
	if !reflect.DeepEqual(roundtripped.CriticalPath, original.CriticalPath) {
		t.Fatalf("critical_path: got %v want %v", roundtripped.CriticalPath, original.CriticalPath)
	}
	if roundtripped.TotalTimeEstimate != original.TotalTimeEstimate {
		t.Fatalf("estimated sequential time: got %v want %v", roundtripped.TotalTimeEstimate, original.TotalTimeEstimate)
	}
	if roundtripped.ParallelEstimate != original.ParallelEstimate {
		t.Fatalf("estimated parallel time: got %v want %v", roundtripped.ParallelEstimate, original.ParallelEstimate)
	}
	if roundtripped.Valid != original.Valid {
		t.Fatalf("valid: got %v want %v", roundtripped.Valid, original.Valid)
	}
	if !roundtripped.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at: got %v want %v", roundtripped.CreatedAt, original.CreatedAt)
	}
	if !reflect.DeepEqual(roundtripped.OptimizationSuggestions, original.OptimizationSuggestions) {
		t.Fatalf("optimization_suggestions: got %v want %v", roundtripped.OptimizationSuggestions, original.OptimizationSuggestions)
	}
	if roundtripped.ResourceEstimates[ResourceCPU] != original.ResourceEstimates[ResourceCPU] {
		t.Fatalf("peak resource usage not preserved: got %v want %v", roundtripped.ResourceEstimates, original.ResourceEstimates)
	}
}

func TestExecutionPlanLevelForStage(t *testing.T) {
	p := ExecutionPlan{ParallelGroups: [][]string{{"a", "b"}, {"c"}}}
	if got := p.LevelForStage("c"); got != 1 {
		t.Fatalf("expected level 1, got %d", got)
	}
	if got := p.LevelForStage("missing"); got != -1 {
		t.Fatalf("expected -1 for missing stage, got %d", got)
	}
}
