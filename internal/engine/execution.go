package engine

import (
	"sync"
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/execctx"
	"github.com/reconctl/reconctl/internal/resolver"
)

// Status is the engine-level lifecycle of one execution, distinct from
// any individual stage.Status.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Statistics aggregates one execution's outcome (spec.md §4.G item 7).
type Statistics struct {
	PerStageDurations    map[string]time.Duration
	SuccessRate          float64
	CriticalPath         []string
	CriticalPathDuration time.Duration
	PeakConcurrentStages int
	TotalDuration        time.Duration
}

// Execution tracks one call to Engine.Execute/ExecuteAsync.
type Execution struct {
	ID         string
	PipelineID string
	Config     stage.ExecutionConfig
	Ctx        *execctx.Context
	Graph      *resolver.Graph

	mu        sync.Mutex
	status    Status
	startedAt time.Time
	endedAt   time.Time
	paused    bool

	peakConcurrent int
	activeNow      int
}

func newExecution(id, pipelineID string, cfg stage.ExecutionConfig, ec *execctx.Context, g *resolver.Graph) *Execution {
	return &Execution{
		ID: id, PipelineID: pipelineID, Config: cfg, Ctx: ec, Graph: g,
		status: StatusRunning, startedAt: time.Now(),
	}
}

// Status returns the execution's current engine-level status.
func (e *Execution) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Execution) setStatus(s Status) {
	e.mu.Lock()
	e.status = s
	if s == StatusCompleted || s == StatusFailed || s == StatusCancelled {
		e.endedAt = time.Now()
	}
	e.mu.Unlock()
}

// markRunning/markDone track peak concurrent stage count (spec.md
// §4.G item 7 "peak concurrent stages").
func (e *Execution) markRunning() (release func()) {
	e.mu.Lock()
	e.activeNow++
	if e.activeNow > e.peakConcurrent {
		e.peakConcurrent = e.activeNow
	}
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.activeNow--
		e.mu.Unlock()
	}
}

// Results returns a snapshot of every stage result recorded so far.
func (e *Execution) Results() map[string]stage.Result {
	return e.Ctx.Snapshot()
}

// Statistics computes the execution's statistics from its current
// result snapshot (spec.md §4.G item 7).
func (e *Execution) Statistics() Statistics {
	results := e.Ctx.Snapshot()
	durations := make(map[string]time.Duration, len(results))
	var successful int
	for id, r := range results {
		durations[id] = r.Duration
		if r.IsSuccess() {
			successful++
		}
	}

	var successRate float64
	if len(results) > 0 {
		successRate = float64(successful) / float64(len(results))
	}

	path, total := e.Graph.CriticalPath(func(id string) time.Duration {
		return durations[id]
	})

	e.mu.Lock()
	peak := e.peakConcurrent
	end := e.endedAt
	if end.IsZero() {
		end = time.Now()
	}
	start := e.startedAt
	e.mu.Unlock()

	return Statistics{
		PerStageDurations:    durations,
		SuccessRate:          successRate,
		CriticalPath:         path,
		CriticalPathDuration: total,
		PeakConcurrentStages: peak,
		TotalDuration:        end.Sub(start),
	}
}
