package engine

import (
	"context"
	"testing"
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/threadpool"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	pool := threadpool.New(threadpool.Config{InitialThreads: 2, MaxThreads: 4, MinThreads: 1, MaxQueueSize: 100})
	t.Cleanup(pool.Shutdown)
	return New(pool)
}

func def(id string, deps ...string) stage.Definition {
	return stage.Definition{
		ID: id, Executable: "/bin/true", Timeout: time.Second, DependsOn: deps,
	}
}

func mustPipeline(t *testing.T, e *Engine, id string, defs ...stage.Definition) {
	t.Helper()
	p, err := e.CreatePipeline(id, id)
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}
	for _, d := range defs {
		if err := p.AddStage(d); err != nil {
			t.Fatalf("AddStage(%s): %v", d.ID, err)
		}
	}
}

func TestExecuteSequentialCompletesAllStages(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"), def("b", "a"), def("c", "b"))

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeSequential})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %v", ex.Status())
	}
	results := ex.Results()
	for _, id := range []string{"a", "b", "c"} {
		if r, ok := results[id]; !ok || r.Status != stage.StatusCompleted {
			t.Fatalf("stage %s: expected completed, got %+v (ok=%v)", id, r, ok)
		}
	}
}

func TestExecuteParallelRespectsLevels(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"), def("b"), def("c", "a", "b"))

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeParallel, MaxConcurrentStages: 2})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %v", ex.Status())
	}
	results := ex.Results()
	if results["c"].Status != stage.StatusCompleted {
		t.Fatalf("expected c completed, got %+v", results["c"])
	}
}

func TestExecuteHybridRunsAllReachableStages(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"), def("b", "a"), def("c", "a"), def("d", "b", "c"))

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeHybrid, MaxConcurrentStages: 4})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	results := ex.Results()
	for _, id := range []string{"a", "b", "c", "d"} {
		if r, ok := results[id]; !ok || r.Status != stage.StatusCompleted {
			t.Fatalf("stage %s: expected completed, got %+v (ok=%v)", id, r, ok)
		}
	}
}

func TestExecuteFailFastSkipsDependents(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1",
		stage.Definition{ID: "a", Executable: "/bin/false", Timeout: time.Second},
		def("b", "a"),
	)

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeSequential, ErrorStrategy: stage.ErrorStrategyFailFast})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Status() != StatusFailed {
		t.Fatalf("expected failed, got %v", ex.Status())
	}
	results := ex.Results()
	if results["a"].Status != stage.StatusFailed {
		t.Fatalf("expected a failed, got %+v", results["a"])
	}
	if r, ok := results["b"]; ok && r.Status == stage.StatusCompleted {
		t.Fatalf("expected b not completed after fail_fast, got %+v", r)
	}
}

func TestExecuteDryRunRecordsSyntheticResults(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"), def("b", "a"))

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeSequential, DryRun: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	results := ex.Results()
	if results["a"].Status != stage.StatusCompleted || results["a"].Message != "dry run" {
		t.Fatalf("expected dry-run synthetic result, got %+v", results["a"])
	}
}

func TestExecuteAsyncReturnsRegisteredExecution(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"))

	ex, err := e.ExecuteAsync(context.Background(), "p1", stage.ExecutionConfig{})
	if err != nil {
		t.Fatalf("ExecuteAsync: %v", err)
	}
	if _, err := e.GetExecution(ex.ID); err != nil {
		t.Fatalf("expected execution registered immediately, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ex.Status() == StatusRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ex.Status() != StatusCompleted {
		t.Fatalf("expected completed, got %v", ex.Status())
	}
}

func TestCancelStopsFurtherStages(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"), def("b", "a"), def("c", "b"))

	ex, err := e.ExecuteAsync(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeSequential})
	if err != nil {
		t.Fatalf("ExecuteAsync: %v", err)
	}
	if err := e.Cancel(ex.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ex.Status() == StatusRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ex.Status() != StatusCancelled && ex.Status() != StatusCompleted {
		t.Fatalf("expected cancelled or already-completed, got %v", ex.Status())
	}
}

func TestRetryFailedStagesReexecutesOnlyFailures(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1",
		stage.Definition{ID: "a", Executable: "/bin/false", Timeout: time.Second},
	)

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeSequential})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ex.Status() != StatusFailed {
		t.Fatalf("expected initial failure, got %v", ex.Status())
	}

	if err := e.RetryFailedStages(context.Background(), ex.ID); err != nil {
		t.Fatalf("RetryFailedStages: %v", err)
	}
	if ex.Status() != StatusFailed {
		t.Fatalf("expected still-failing stage to remain failed, got %v", ex.Status())
	}
}

func TestStatisticsReportsSuccessRateAndCriticalPath(t *testing.T) {
	e := testEngine(t)
	mustPipeline(t, e, "p1", def("a"), def("b", "a"))

	ex, err := e.Execute(context.Background(), "p1", stage.ExecutionConfig{Mode: stage.ModeSequential})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	stats := ex.Statistics()
	if stats.SuccessRate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %v", stats.SuccessRate)
	}
	if len(stats.CriticalPath) == 0 {
		t.Fatal("expected a non-empty critical path")
	}
}
