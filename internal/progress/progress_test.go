package progress

import (
	"math"
	"testing"
	"time"

	"github.com/reconctl/reconctl/internal/domain/event"
)

func capturingSink() (event.Sink, func() []event.Event) {
	var captured []event.Event
	sink := event.SinkFunc(func(e event.Event) { captured = append(captured, e) })
	return sink, func() []event.Event { return captured }
}

func TestOverallProgressIsWeightedAverage(t *testing.T) {
	m := New(Config{}, WithSink(event.NopSink{}))
	m.AddTask("a", 1, 100)
	m.AddTask("b", 3, 100)

	m.UpdateUnits("a", 100)
	m.UpdateUnits("b", 0)

	got := m.OverallProgress()
	want := 25.0 // (1*1.0 + 3*0.0) / 4 * 100
	if math.Abs(got-want) > 0.001 {
		t.Fatalf("overall progress = %v, want %v", got, want)
	}
}

func TestUpdatePercentageClampsAndIgnoresNegative(t *testing.T) {
	m := New(Config{}, WithSink(event.NopSink{}))
	m.AddTask("a", 1, 10)

	m.UpdatePercentage("a", 150)
	if got := m.OverallProgress(); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}

	m.UpdatePercentage("a", -10)
	if got := m.OverallProgress(); got != 100 {
		t.Fatalf("negative percentage must be ignored, got %v", got)
	}
}

func TestMilestonesFireOnceEachMonotonically(t *testing.T) {
	sink, captured := capturingSink()
	m := New(Config{UpdateMode: ModeRealTime}, WithSink(sink))
	m.AddTask("a", 1, 100)

	m.UpdateUnits("a", 30) // crosses 25
	m.UpdateUnits("a", 60) // crosses 50
	m.UpdateUnits("a", 60) // no new milestone
	m.UpdateUnits("a", 100)

	var milestonePercents []float64
	for _, e := range captured() {
		if e.Type == event.TypeMilestoneReached {
			milestonePercents = append(milestonePercents, e.Metadata["milestone_percent"].(float64))
		}
	}
	want := []float64{25, 50, 75, 100}
	if len(milestonePercents) != len(want) {
		t.Fatalf("expected milestones %v, got %v", want, milestonePercents)
	}
	for i, w := range want {
		if milestonePercents[i] != w {
			t.Fatalf("milestone[%d] = %v, want %v", i, milestonePercents[i], w)
		}
	}
}

func TestThrottledModeCoalescesUpdates(t *testing.T) {
	sink, captured := capturingSink()
	m := New(Config{UpdateMode: ModeThrottled, UpdateInterval: time.Hour}, WithSink(sink))
	m.AddTask("a", 1, 100)

	m.UpdateUnits("a", 10)
	m.UpdateUnits("a", 20)
	m.UpdateUnits("a", 30)

	updated := 0
	for _, e := range captured() {
		if e.Type == event.TypeMonitorUpdated {
			updated++
		}
	}
	if updated != 1 {
		t.Fatalf("expected exactly one coalesced update event, got %d", updated)
	}
}

func TestOnDemandModeEmitsOnlyOnRefresh(t *testing.T) {
	sink, captured := capturingSink()
	m := New(Config{UpdateMode: ModeOnDemand}, WithSink(sink))
	m.AddTask("a", 1, 100)

	m.UpdateUnits("a", 50)
	// Milestones are not governed by UpdateMode; every other event waits
	// for Refresh.
	for _, e := range captured() {
		if e.Type != event.TypeMilestoneReached {
			t.Fatalf("on_demand mode must not emit without an explicit refresh, got %v", captured())
		}
	}

	m.Refresh()
	found := false
	for _, e := range captured() {
		if e.Type == event.TypeMonitorUpdated {
			found = true
		}
	}
	if !found {
		t.Fatal("expected an updated event after Refresh")
	}
}

func TestCompleteStageEmitsStageCompletedAndOverallCompleted(t *testing.T) {
	sink, captured := capturingSink()
	m := New(Config{}, WithSink(sink))
	m.AddTask("a", 1, 10)
	m.AddTask("b", 1, 10)

	m.CompleteStage("a")
	m.CompleteStage("b")

	var sawStageCompleted, sawOverallCompleted int
	for _, e := range captured() {
		switch e.Type {
		case event.TypeStageCompleted:
			sawStageCompleted++
		case event.TypeMonitorCompleted:
			sawOverallCompleted++
		}
	}
	if sawStageCompleted != 2 {
		t.Fatalf("expected 2 stage_completed events, got %d", sawStageCompleted)
	}
	if sawOverallCompleted != 1 {
		t.Fatalf("expected exactly 1 completed event, got %d", sawOverallCompleted)
	}
}

func TestFailStageIsTerminalAndCountsTowardCompletion(t *testing.T) {
	sink, captured := capturingSink()
	m := New(Config{}, WithSink(sink))
	m.AddTask("a", 1, 10)

	m.FailStage("a", "executable not found")

	var sawFailed, sawCompleted bool
	for _, e := range captured() {
		if e.Type == event.TypeStageFailed {
			sawFailed = true
		}
		if e.Type == event.TypeMonitorCompleted {
			sawCompleted = true
		}
	}
	if !sawFailed || !sawCompleted {
		t.Fatalf("expected stage_failed and completed events, got %+v", captured())
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	sink, captured := capturingSink()
	m := New(Config{}, WithSink(sink))

	m.Cancel()
	m.Cancel()

	count := 0
	for _, e := range captured() {
		if e.Type == event.TypeMonitorCancelled {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one cancelled event, got %d", count)
	}
}

func TestConfidenceStartsLowAndNeverExceedsOne(t *testing.T) {
	m := New(Config{}, WithSink(event.NopSink{}))
	m.AddTask("a", 1, 100)

	_, confidence := m.ETA()
	if confidence != 0.1 {
		t.Fatalf("expected floor confidence 0.1 with no history, got %v", confidence)
	}

	for i := 1; i <= 5; i++ {
		m.UpdateUnits("a", float64(i)*20)
	}
	_, confidence = m.ETA()
	if confidence < 0.1 || confidence > 1.0 {
		t.Fatalf("confidence out of [0.1, 1.0]: %v", confidence)
	}
}

func TestLinearETAStrategyIsZeroAtBoundaries(t *testing.T) {
	m := New(Config{ETAStrategy: StrategyLinear}, WithSink(event.NopSink{}))
	m.AddTask("a", 1, 100)

	eta, _ := m.ETA()
	if eta != 0 {
		t.Fatalf("expected zero ETA with no progress samples, got %v", eta)
	}

	m.UpdateUnits("a", 100)
	eta, _ = m.ETA()
	if eta != 0 {
		t.Fatalf("expected zero ETA at 100%% progress, got %v", eta)
	}
}

func TestAllETAStrategiesProduceNonNegativeDurations(t *testing.T) {
	for _, strategy := range []Strategy{
		StrategyLinear, StrategyMovingAverage, StrategyExponential,
		StrategyAdaptive, StrategyWeighted, StrategyHistorical,
	} {
		m := New(Config{ETAStrategy: strategy}, WithSink(event.NopSink{}))
		m.AddTask("a", 1, 100)
		for i := 1; i <= 4; i++ {
			m.UpdateUnits("a", float64(i)*20)
			time.Sleep(time.Millisecond)
		}
		eta, _ := m.ETA()
		if eta < 0 {
			t.Fatalf("strategy %s produced a negative ETA: %v", strategy, eta)
		}
	}
}
