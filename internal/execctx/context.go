// Package execctx implements the Execution Context component (spec.md
// §4.E): a thread-safe container for per-stage results, a cancellation
// flag, and an event sink, shared by every task running within one
// pipeline execution.
package execctx

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/reconctl/reconctl/internal/domain/event"
	"github.com/reconctl/reconctl/internal/domain/stage"
)

// Context is the per-execution shared state the engine hands to every
// task it submits. It is safe for concurrent use by many goroutines.
type Context struct {
	pipelineID    string
	errorStrategy stage.ErrorStrategy
	sink          event.Sink

	mu        sync.RWMutex
	results   map[string]stage.Result
	cancelled int32
	failed    int32
}

// New constructs a Context for one execution of pipelineID under the
// given error strategy, emitting events to sink (event.NopSink{} if
// nil).
func New(pipelineID string, errorStrategy stage.ErrorStrategy, sink event.Sink) *Context {
	if sink == nil {
		sink = event.NopSink{}
	}
	return &Context{
		pipelineID:    pipelineID,
		errorStrategy: errorStrategy,
		sink:          sink,
		results:       make(map[string]stage.Result),
	}
}

// UpdateStageResult replaces the slot for result.StageID and emits the
// matching stage_completed/stage_failed event (spec.md §4.E).
func (c *Context) UpdateStageResult(result stage.Result) {
	c.mu.Lock()
	c.results[result.StageID] = result
	if result.Status == stage.StatusFailed {
		atomic.AddInt32(&c.failed, 1)
	}
	c.mu.Unlock()

	evtType := event.TypeStageCompleted
	switch result.Status {
	case stage.StatusFailed:
		evtType = event.TypeStageFailed
	case stage.StatusSkipped:
		evtType = event.TypeStageSkipped
	}
	c.sink.Emit(event.Event{
		Type:       evtType,
		Timestamp:  time.Now(),
		PipelineID: c.pipelineID,
		StageID:    result.StageID,
		Message:    result.Message,
	})
}

// PipelineID returns the id of the pipeline this context was created
// for.
func (c *Context) PipelineID() string { return c.pipelineID }

// ContextSink exposes the event sink tasks emit additional,
// non-result-transition events through (e.g. stage_started,
// stage_retrying), which do not themselves update a stage's result.
func (c *Context) ContextSink() event.Sink { return c.sink }

// Result returns a snapshot of stageID's current result, if any.
func (c *Context) Result(stageID string) (stage.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[stageID]
	return r, ok
}

// Snapshot returns a copy of every result recorded so far. Reads are
// snapshot-consistent: a caller never observes a map mutated mid-iteration
// (spec.md §4.E "all reads ... are snapshot-consistent").
func (c *Context) Snapshot() map[string]stage.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]stage.Result, len(c.results))
	for k, v := range c.results {
		out[k] = v
	}
	return out
}

// Cancel sets the cancellation flag. Idempotent (spec.md §8 "cancel()
// then cancel() equals cancel()").
func (c *Context) Cancel() {
	atomic.StoreInt32(&c.cancelled, 1)
}

// Cancelled reports whether Cancel has been called.
func (c *Context) Cancelled() bool {
	return atomic.LoadInt32(&c.cancelled) == 1
}

// ShouldContinue reports false once cancelled, or once the configured
// error strategy declares the run terminated: fail_fast terminates as
// soon as any stage has failed.
func (c *Context) ShouldContinue() bool {
	if c.Cancelled() {
		return false
	}
	if c.errorStrategy == stage.ErrorStrategyFailFast && atomic.LoadInt32(&c.failed) > 0 {
		return false
	}
	return true
}

// DependenciesSatisfied reports whether every id in deps is either
// completed, or failed/skipped/cancelled while allowFailure is set —
// the dependency-met check from spec.md §4.F.
func (c *Context) DependenciesSatisfied(deps []string, allowFailure bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, dep := range deps {
		r, ok := c.results[dep]
		if !ok {
			return false
		}
		if r.Status == stage.StatusCompleted {
			continue
		}
		if allowFailure && r.IsTerminal() {
			continue
		}
		return false
	}
	return true
}
