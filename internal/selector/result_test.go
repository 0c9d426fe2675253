package selector

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

func TestResultExportImportRoundTrip(t *testing.T) {
	original := Result{
		Status:         StatusSuccess,
		Stages:         []stage.Definition{sdef("subhunter", stage.PriorityNormal)},
		ExecutionOrder: []string{"subhunter"},
		Errors:         []string{},
		Warnings:       []string{"httpxpp and nuclei have incompatible constraints"},
		Information:    []string{"selection_ratio=0.3333"},
		UniverseCount:  3,
		SelectedCount:  1,
		Ratio:          1.0 / 3.0,
		CacheKey:       "deadbeef",
	}

	doc := original.Export()
	roundtripped := ImportResult(doc)

	if roundtripped.Status != original.Status {
		t.Fatalf("status: got %q want %q", roundtripped.Status, original.Status)
	}
	if !reflect.DeepEqual(roundtripped.ExecutionOrder, original.ExecutionOrder) {
		t.Fatalf("execution_order: got %v want %v", roundtripped.ExecutionOrder, original.ExecutionOrder)
	}
	if !reflect.DeepEqual(roundtripped.Warnings, original.Warnings) {
		t.Fatalf("warnings: got %v want %v", roundtripped.Warnings, original.Warnings)
	}
	if !reflect.DeepEqual(roundtripped.Information, original.Information) {
		t.Fatalf("information: got %v want %v", roundtripped.Information, original.Information)
	}
	if roundtripped.UniverseCount != original.UniverseCount {
		t.Fatalf("universe_count: got %d want %d", roundtripped.UniverseCount, original.UniverseCount)
	}
	if roundtripped.SelectedCount != original.SelectedCount {
		t.Fatalf("selected_count: got %d want %d", roundtripped.SelectedCount, original.SelectedCount)
	}
	if roundtripped.Ratio != original.Ratio {
		t.Fatalf("selection_ratio: got %v want %v", roundtripped.Ratio, original.Ratio)
	}
	if roundtripped.CacheKey != original.CacheKey {
		t.Fatalf("cache_key: got %q want %q", roundtripped.CacheKey, original.CacheKey)
	}
	if len(roundtripped.Stages) != 1 || roundtripped.Stages[0].ID != "subhunter" {
		t.Fatalf("expected selected stage id preserved, got %+v", roundtripped.Stages)
	}
}

func TestResultSaveLoadFileRoundTrip(t *testing.T) {
	original := Result{
		Status:         StatusSuccess,
		ExecutionOrder: []string{"subhunter"},
		Warnings:       []string{"w1"},
		Information:    []string{"i1"},
		UniverseCount:  3,
		SelectedCount:  1,
		Ratio:          1.0 / 3.0,
		CacheKey:       "cafef00d",
	}

	path := filepath.Join(t.TempDir(), "result.json")
	if err := SaveResult(path, original); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	loaded, err := LoadResult(path)
	if err != nil {
		t.Fatalf("LoadResult: %v", err)
	}
	if loaded.Status != original.Status || loaded.Ratio != original.Ratio || loaded.CacheKey != original.CacheKey {
		t.Fatalf("round trip mismatch: got %+v", loaded)
	}
}

func TestSelectionRatioMatchesSelectedOverUniverse(t *testing.T) {
	universe := []stage.Definition{
		sdef("subhunter", stage.PriorityNormal),
		sdef("httpxpp", stage.PriorityNormal),
		sdef("dirbff", stage.PriorityNormal),
	}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{
		Include:             []Filter{ByID("subhunter")},
		IncludeDependencies: true,
		ValidationLevel:     ValidationDependencies,
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.ExecutionOrder) != 1 || result.ExecutionOrder[0] != "subhunter" {
		t.Fatalf("expected execution_order [subhunter], got %v", result.ExecutionOrder)
	}
	want := 1.0 / 3.0
	if result.Ratio != want {
		t.Fatalf("selection_ratio: got %v want %v", result.Ratio, want)
	}
	if result.UniverseCount != 3 || result.SelectedCount != 1 {
		t.Fatalf("expected counts 1/3, got selected=%d universe=%d", result.SelectedCount, result.UniverseCount)
	}
	if result.CacheKey == "" {
		t.Fatalf("expected a non-empty cache key")
	}
	if result.Plan.PlanID == "" {
		t.Fatalf("expected Select to populate an ExecutionPlan")
	}
}

func TestPlanSaveLoadFileRoundTrip(t *testing.T) {
	universe := []stage.Definition{
		sdef("subhunter", stage.PriorityNormal),
		sdef("httpxpp", stage.PriorityNormal, "subhunter"),
	}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plan.json")
	if err := SavePlan(path, result.Plan); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	loaded, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if loaded.PlanID != result.Plan.PlanID {
		t.Fatalf("plan_id: got %q want %q", loaded.PlanID, result.Plan.PlanID)
	}
	if !reflect.DeepEqual(loaded.ExecutionOrder, result.Plan.ExecutionOrder) {
		t.Fatalf("execution_order: got %v want %v", loaded.ExecutionOrder, result.Plan.ExecutionOrder)
	}
	if !reflect.DeepEqual(loaded.CriticalPath, result.Plan.CriticalPath) {
		t.Fatalf("critical_path: got %v want %v", loaded.CriticalPath, result.Plan.CriticalPath)
	}
}
