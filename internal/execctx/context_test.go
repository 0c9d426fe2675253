package execctx

import (
	"testing"

	"github.com/reconctl/reconctl/internal/domain/event"
	"github.com/reconctl/reconctl/internal/domain/stage"
)

func TestUpdateStageResultEmitsCompletedEvent(t *testing.T) {
	var captured []event.Event
	sink := event.SinkFunc(func(e event.Event) { captured = append(captured, e) })
	c := New("p1", stage.ErrorStrategyFailFast, sink)

	c.UpdateStageResult(stage.Result{StageID: "a", Status: stage.StatusCompleted})

	if len(captured) != 1 || captured[0].Type != event.TypeStageCompleted {
		t.Fatalf("expected one stage_completed event, got %+v", captured)
	}
	r, ok := c.Result("a")
	if !ok || r.Status != stage.StatusCompleted {
		t.Fatalf("expected stored result for a, got %+v ok=%v", r, ok)
	}
}

func TestUpdateStageResultEmitsFailedEvent(t *testing.T) {
	var captured []event.Event
	sink := event.SinkFunc(func(e event.Event) { captured = append(captured, e) })
	c := New("p1", stage.ErrorStrategyContinue, sink)

	c.UpdateStageResult(stage.Result{StageID: "a", Status: stage.StatusFailed})

	if len(captured) != 1 || captured[0].Type != event.TypeStageFailed {
		t.Fatalf("expected one stage_failed event, got %+v", captured)
	}
}

func TestShouldContinueFailFastStopsAfterFailure(t *testing.T) {
	c := New("p1", stage.ErrorStrategyFailFast, nil)
	if !c.ShouldContinue() {
		t.Fatal("expected ShouldContinue true before any failure")
	}
	c.UpdateStageResult(stage.Result{StageID: "a", Status: stage.StatusFailed})
	if c.ShouldContinue() {
		t.Fatal("expected ShouldContinue false after a failure under fail_fast")
	}
}

func TestShouldContinueContinueStrategyIgnoresFailure(t *testing.T) {
	c := New("p1", stage.ErrorStrategyContinue, nil)
	c.UpdateStageResult(stage.Result{StageID: "a", Status: stage.StatusFailed})
	if !c.ShouldContinue() {
		t.Fatal("expected ShouldContinue true under continue strategy despite a failure")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	c := New("p1", stage.ErrorStrategyContinue, nil)
	c.Cancel()
	c.Cancel()
	if !c.Cancelled() {
		t.Fatal("expected Cancelled true")
	}
	if c.ShouldContinue() {
		t.Fatal("expected ShouldContinue false once cancelled")
	}
}

func TestDependenciesSatisfied(t *testing.T) {
	c := New("p1", stage.ErrorStrategyContinue, nil)
	if c.DependenciesSatisfied([]string{"a"}, false) {
		t.Fatal("expected unsatisfied when dependency has no result yet")
	}
	c.UpdateStageResult(stage.Result{StageID: "a", Status: stage.StatusFailed})
	if c.DependenciesSatisfied([]string{"a"}, false) {
		t.Fatal("expected unsatisfied when dependency failed and allowFailure is false")
	}
	if !c.DependenciesSatisfied([]string{"a"}, true) {
		t.Fatal("expected satisfied when dependency failed but allowFailure is true")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New("p1", stage.ErrorStrategyContinue, nil)
	c.UpdateStageResult(stage.Result{StageID: "a", Status: stage.StatusCompleted})
	snap := c.Snapshot()
	snap["a"] = stage.Result{StageID: "a", Status: stage.StatusFailed}

	r, _ := c.Result("a")
	if r.Status != stage.StatusCompleted {
		t.Fatal("mutating a snapshot must not affect the context's stored results")
	}
}
