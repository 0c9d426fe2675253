package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/domain/event"
	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/execctx"
	"github.com/reconctl/reconctl/internal/ports"
	"github.com/reconctl/reconctl/internal/resolver"
	"github.com/reconctl/reconctl/internal/task"
	"github.com/reconctl/reconctl/internal/threadpool"
)

// Engine is the Pipeline Engine component (spec.md §4.G): it owns a
// registry of pipelines, runs executions against the shared thread
// pool, and tracks every execution so it can be paused, resumed,
// cancelled, or retried.
type Engine struct {
	pool   *threadpool.Pool
	sink   event.Sink
	logger ports.Logger

	mu        sync.RWMutex
	pipelines map[string]*stage.Pipeline

	execMu     sync.RWMutex
	executions map[string]*Execution

	nextExecID int64
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSink injects an event sink shared by every execution.
func WithSink(s event.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger injects a logger.
func WithLogger(l ports.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New constructs an Engine backed by pool.
func New(pool *threadpool.Pool, opts ...Option) *Engine {
	e := &Engine{
		pool:       pool,
		pipelines:  make(map[string]*stage.Pipeline),
		executions: make(map[string]*Execution),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = event.NopSink{}
	}
	return e
}

// CreatePipeline registers a new, empty pipeline.
func (e *Engine) CreatePipeline(id, name string) (*stage.Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pipelines[id]; exists {
		return nil, domainerrors.NewValidationFailed("duplicate pipeline id", map[string]interface{}{"pipeline_id": id})
	}
	p := stage.NewPipeline(id, name)
	e.pipelines[id] = p
	return p, nil
}

// GetPipeline retrieves a registered pipeline by id.
func (e *Engine) GetPipeline(id string) (*stage.Pipeline, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pipelines[id]
	if !ok {
		return nil, domainerrors.NewNotFound("pipeline not found", map[string]interface{}{"pipeline_id": id})
	}
	return p, nil
}

// ListPipelines returns every registered pipeline id.
func (e *Engine) ListPipelines() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.pipelines))
	for id := range e.pipelines {
		out = append(out, id)
	}
	return out
}

// RemovePipeline unregisters a pipeline. It refuses to remove one with
// an execution still running.
func (e *Engine) RemovePipeline(id string) error {
	e.execMu.RLock()
	for _, ex := range e.executions {
		if ex.PipelineID == id && ex.Status() == StatusRunning {
			e.execMu.RUnlock()
			return domainerrors.NewValidationFailed("pipeline has an active execution", map[string]interface{}{"pipeline_id": id})
		}
	}
	e.execMu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pipelines[id]; !ok {
		return domainerrors.NewNotFound("pipeline not found", map[string]interface{}{"pipeline_id": id})
	}
	delete(e.pipelines, id)
	return nil
}

// GetExecution retrieves a tracked execution by id.
func (e *Engine) GetExecution(id string) (*Execution, error) {
	e.execMu.RLock()
	defer e.execMu.RUnlock()
	ex, ok := e.executions[id]
	if !ok {
		return nil, domainerrors.NewNotFound("execution not found", map[string]interface{}{"execution_id": id})
	}
	return ex, nil
}

func (e *Engine) nextExecutionID(pipelineID string) string {
	n := atomic.AddInt64(&e.nextExecID, 1)
	return fmt.Sprintf("%s-exec-%d", pipelineID, n)
}

// Execute runs pipelineID to completion synchronously, per the
// algorithm in spec.md §4.G:
//  1. validate the pipeline
//  2. build the resolver's levels
//  3. advance through them using the configured mode
//  4. apply the configured error strategy on failure
//  5. honor dry_run
//  6. enforce global_timeout
//  7. compute statistics
func (e *Engine) Execute(ctx context.Context, pipelineID string, cfg stage.ExecutionConfig) (*Execution, error) {
	ex, levels, err := e.prepareExecution(pipelineID, cfg)
	if err != nil {
		return nil, err
	}
	e.runExecution(ctx, ex, levels)
	return ex, nil
}

// prepareExecution validates the pipeline, builds its resolver levels,
// and registers a new Execution — the synchronous half of Execute that
// ExecuteAsync also needs before it can hand back a live handle.
func (e *Engine) prepareExecution(pipelineID string, cfg stage.ExecutionConfig) (*Execution, [][]string, error) {
	p, err := e.GetPipeline(pipelineID)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	cfg = cfg.WithDefaults()

	graph, err := resolver.Build(p.Stages())
	if err != nil {
		return nil, nil, err
	}
	levels, err := graph.TopologicalLevels()
	if err != nil {
		return nil, nil, err
	}

	ec := execctx.New(pipelineID, cfg.ErrorStrategy, e.sink)
	execID := e.nextExecutionID(pipelineID)
	ex := newExecution(execID, pipelineID, cfg, ec, graph)

	e.execMu.Lock()
	e.executions[execID] = ex
	e.execMu.Unlock()

	return ex, levels, nil
}

// runExecution drives ex's stages to completion and finalizes its
// status and statistics. Shared by the synchronous Execute path and
// ExecuteAsync's goroutine.
func (e *Engine) runExecution(ctx context.Context, ex *Execution, levels [][]string) {
	pipelineID := ex.PipelineID
	cfg := ex.Config
	ec := ex.Ctx

	p, err := e.GetPipeline(pipelineID)
	if err != nil {
		ex.setStatus(StatusFailed)
		return
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.GlobalTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.GlobalTimeout)
		defer cancel()
	}

	e.sink.Emit(event.Event{Type: event.TypePipelineStarted, Timestamp: time.Now(), PipelineID: pipelineID})

	defsByID := make(map[string]stage.Definition, len(p.Stages()))
	for _, d := range p.Stages() {
		defsByID[d.ID] = d
	}

	if cfg.DryRun {
		e.runDryRun(levels, ec)
	} else {
		switch cfg.Mode {
		case stage.ModeSequential:
			e.runSequential(runCtx, levels, defsByID, ec, ex)
		case stage.ModeHybrid:
			e.runHybrid(runCtx, ex.Graph, defsByID, ec, ex, cfg.MaxConcurrentStages)
		default:
			e.runParallel(runCtx, levels, defsByID, ec, ex, cfg.MaxConcurrentStages)
		}
	}

	finalStatus := StatusCompleted
	switch {
	case ec.Cancelled():
		finalStatus = StatusCancelled
	case hasFailure(ec.Snapshot()):
		finalStatus = StatusFailed
	}
	ex.setStatus(finalStatus)

	evtType := event.TypePipelineCompleted
	switch finalStatus {
	case StatusFailed:
		evtType = event.TypePipelineFailed
	case StatusCancelled:
		evtType = event.TypePipelineCancelled
	}
	e.sink.Emit(event.Event{Type: evtType, Timestamp: time.Now(), PipelineID: pipelineID})
}

// ExecuteAsync prepares the execution synchronously (so the returned
// Execution is already registered and visible to GetExecution/Pause/
// Cancel) and runs it in a goroutine.
func (e *Engine) ExecuteAsync(ctx context.Context, pipelineID string, cfg stage.ExecutionConfig) (*Execution, error) {
	ex, levels, err := e.prepareExecution(pipelineID, cfg)
	if err != nil {
		return nil, err
	}
	go e.runExecution(ctx, ex, levels)
	return ex, nil
}

// Pause marks execID paused and pauses the shared pool's dequeuing.
// Because the pool is shared across executions, Pause is coarse: it
// pauses all in-flight work, matching spec.md's single-operator-at-a-
// time deployment model.
func (e *Engine) Pause(execID string) error {
	ex, err := e.GetExecution(execID)
	if err != nil {
		return err
	}
	ex.setStatus(StatusPaused)
	e.pool.Pause()
	return nil
}

// Resume reverses Pause.
func (e *Engine) Resume(execID string) error {
	ex, err := e.GetExecution(execID)
	if err != nil {
		return err
	}
	ex.setStatus(StatusRunning)
	e.pool.Resume()
	return nil
}

// Cancel cooperatively cancels execID; in-flight tasks observe
// ec.Cancelled() at their next check point (spec.md §4.F, §8).
func (e *Engine) Cancel(execID string) error {
	ex, err := e.GetExecution(execID)
	if err != nil {
		return err
	}
	ex.Ctx.Cancel()
	return nil
}

// RetryFailedStages re-submits every stage in execID's result set whose
// status is failed, using the same execution context and config so
// accumulated results and statistics continue to accrue.
func (e *Engine) RetryFailedStages(ctx context.Context, execID string) error {
	ex, err := e.GetExecution(execID)
	if err != nil {
		return err
	}

	pipeline, err := e.GetPipeline(ex.PipelineID)
	if err != nil {
		return err
	}

	defsByID := make(map[string]stage.Definition, pipeline.Len())
	for _, d := range pipeline.Stages() {
		defsByID[d.ID] = d
	}

	var toRetry []stage.Definition
	for id, r := range ex.Ctx.Snapshot() {
		if r.Status == stage.StatusFailed {
			if d, ok := defsByID[id]; ok {
				toRetry = append(toRetry, d)
			}
		}
	}

	ex.setStatus(StatusRunning)
	e.runBatch(ctx, toRetry, ex.Ctx, ex, ex.Config.MaxConcurrentStages)

	finalStatus := StatusCompleted
	if hasFailure(ex.Ctx.Snapshot()) {
		finalStatus = StatusFailed
	}
	ex.setStatus(finalStatus)
	return nil
}

func (e *Engine) runDryRun(levels [][]string, ec *execctx.Context) {
	for _, level := range levels {
		for _, id := range level {
			ec.UpdateStageResult(stage.Result{
				StageID:   id,
				Status:    stage.StatusCompleted,
				StartedAt: time.Now(),
				EndedAt:   time.Now(),
				Message:   "dry run",
			})
		}
	}
}

func hasFailure(results map[string]stage.Result) bool {
	for _, r := range results {
		if r.Status == stage.StatusFailed {
			return true
		}
	}
	return false
}

// submitStage wraps a definition into a task.Task and submits it to
// the shared pool at its translated priority, returning a future the
// caller waits on for the stage.Result.
func (e *Engine) submitStage(ctx context.Context, d stage.Definition, ec *execctx.Context, ex *Execution) (*threadpool.Future, error) {
	t := task.New(d)
	release := ex.markRunning()
	return e.pool.Submit(translatePriority(d.EffectivePriority()), func(taskCtx context.Context) (interface{}, error) {
		defer release()
		return t.Run(ctx, ec), nil
	})
}

// runBatch submits every definition in defs concurrently (bounded by
// maxConcurrent) and waits for them all to finish. Used both by the
// parallel-mode per-level fan-out and by RetryFailedStages.
func (e *Engine) runBatch(ctx context.Context, defs []stage.Definition, ec *execctx.Context, ex *Execution, maxConcurrent int) {
	if len(defs) == 0 {
		return
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for _, d := range defs {
		if !ec.ShouldContinue() {
			break
		}
		d := d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fut, err := e.submitStage(ctx, d, ec, ex)
			if err != nil {
				ec.UpdateStageResult(stage.Result{
					StageID: d.ID, Status: stage.StatusFailed,
					Message: err.Error(),
				})
				return
			}
			fut.Result(ctx) //nolint:errcheck // task.Run never returns an error; failures live in the Result
		}()
	}
	wg.Wait()
}
