package selector

import (
	"context"
	"testing"
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

func sdef(id string, priority stage.Priority, deps ...string) stage.Definition {
	return stage.Definition{
		ID: id, Executable: "/usr/bin/nmap", Args: []string{"--host", id},
		Priority: priority, Timeout: time.Minute, DependsOn: deps,
	}
}

func TestSelectFiltersByIncludeExcludeRequire(t *testing.T) {
	universe := []stage.Definition{
		sdef("a", stage.PriorityNormal),
		sdef("b", stage.PriorityNormal),
		sdef("c", stage.PriorityNormal),
	}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{
		Include: []Filter{ByID("a", "b")},
		Exclude: []Filter{ByID("b")},
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.Stages) != 1 || result.Stages[0].ID != "a" {
		t.Fatalf("expected only stage a selected, got %+v", result.Stages)
	}
}

func TestSelectIncludeDependenciesExtendsClosure(t *testing.T) {
	universe := []stage.Definition{
		sdef("a", stage.PriorityNormal),
		sdef("b", stage.PriorityNormal, "a"),
		sdef("c", stage.PriorityNormal, "b"),
	}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{
		Include:             []Filter{ByID("c")},
		IncludeDependencies: true,
	})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.Stages) != 3 {
		t.Fatalf("expected transitive closure of 3 stages, got %d", len(result.Stages))
	}
}

func TestSelectEmptySelection(t *testing.T) {
	universe := []stage.Definition{sdef("a", stage.PriorityNormal)}
	s := New(Config{})
	_, err := s.Select(context.Background(), universe, Config{Include: []Filter{ByID("nonexistent")}})
	if err == nil {
		t.Fatal("expected an error for empty selection")
	}
}

func TestSelectDetectsCircularDependency(t *testing.T) {
	universe := []stage.Definition{
		{ID: "a", Executable: "/bin/true", Timeout: time.Minute, DependsOn: []string{"b"}},
		{ID: "b", Executable: "/bin/true", Timeout: time.Minute, DependsOn: []string{"a"}},
	}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{ValidationLevel: ValidationDependencies})
	if err == nil {
		t.Fatal("expected a circular dependency error")
	}
	if result.Status != StatusCircularDependency {
		t.Fatalf("expected circular_dependency status, got %v", result.Status)
	}
}

func TestSelectProducesExecutionOrderAndGroups(t *testing.T) {
	universe := []stage.Definition{
		sdef("a", stage.PriorityNormal),
		sdef("b", stage.PriorityHigh),
		sdef("c", stage.PriorityNormal, "a", "b"),
	}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(result.ParallelGroups) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(result.ParallelGroups))
	}
	if result.ParallelGroups[0][0] != "b" {
		t.Fatalf("expected high priority stage first within its level, got %v", result.ParallelGroups[0])
	}
}

func TestSelectCachesRepeatedCalls(t *testing.T) {
	universe := []stage.Definition{sdef("a", stage.PriorityNormal)}
	s := New(Config{})
	if _, err := s.Select(context.Background(), universe, Config{}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	result, err := s.Select(context.Background(), universe, Config{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !result.FromCache {
		t.Fatal("expected second identical call to be served from cache")
	}
	if s.HitRatio() <= 0 {
		t.Fatalf("expected a positive hit ratio, got %v", s.HitRatio())
	}
}

func TestSelectEstimatesResources(t *testing.T) {
	universe := []stage.Definition{sdef("a", stage.PriorityCritical)}
	s := New(Config{})
	result, err := s.Select(context.Background(), universe, Config{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if result.Resources.MemoryMB != memoryPerStageMB {
		t.Fatalf("expected memory estimate of %v, got %v", memoryPerStageMB, result.Resources.MemoryMB)
	}
	if result.Resources.NetworkMB != networkUsageMB {
		t.Fatalf("expected network estimate for --host stage, got %v", result.Resources.NetworkMB)
	}
}
