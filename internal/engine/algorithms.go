package engine

import (
	"context"
	"sync"

	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/execctx"
	"github.com/reconctl/reconctl/internal/resolver"
)

// runSequential advances one level at a time and, within a level, one
// stage at a time — the strictest of the three modes (spec.md §4.G item
// 3, sequential mode).
func (e *Engine) runSequential(ctx context.Context, levels [][]string, defsByID map[string]stage.Definition, ec *execctx.Context, ex *Execution) {
	for _, level := range levels {
		for _, id := range level {
			if !ec.ShouldContinue() {
				return
			}
			d, ok := defsByID[id]
			if !ok {
				continue
			}
			fut, err := e.submitStage(ctx, d, ec, ex)
			if err != nil {
				ec.UpdateStageResult(stage.Result{StageID: id, Status: stage.StatusFailed, Message: err.Error()})
				continue
			}
			fut.Result(ctx) //nolint:errcheck // task.Run never returns an error; failures live in the Result
		}
	}
}

// runParallel fans every stage in a level out concurrently (bounded by
// maxConcurrent) and waits for the whole level before advancing — the
// level is a synchronization barrier (spec.md §4.G item 3, parallel
// mode).
func (e *Engine) runParallel(ctx context.Context, levels [][]string, defsByID map[string]stage.Definition, ec *execctx.Context, ex *Execution, maxConcurrent int) {
	for _, level := range levels {
		if !ec.ShouldContinue() {
			return
		}
		defs := make([]stage.Definition, 0, len(level))
		for _, id := range level {
			if d, ok := defsByID[id]; ok {
				defs = append(defs, d)
			}
		}
		e.runBatch(ctx, defs, ec, ex, maxConcurrent)
	}
}

// runHybrid submits every stage the instant its dependencies are
// satisfied, without waiting for an entire level to finish — there is
// no barrier between levels, only the dependency edges themselves
// (spec.md §4.G item 3, hybrid mode). Concurrency is bounded by
// maxConcurrent across the whole run, not per level.
func (e *Engine) runHybrid(ctx context.Context, graph *resolver.Graph, defsByID map[string]stage.Definition, ec *execctx.Context, ex *Execution, maxConcurrent int) {
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	submitted := make(map[string]bool, len(defsByID))

	var maybeSubmit func(id string)
	maybeSubmit = func(id string) {
		mu.Lock()
		if submitted[id] {
			mu.Unlock()
			return
		}
		d, ok := defsByID[id]
		if !ok {
			mu.Unlock()
			return
		}
		if !ec.DependenciesSatisfied(d.DependsOn, d.AllowFailure) {
			mu.Unlock()
			return
		}
		submitted[id] = true
		mu.Unlock()

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			fut, err := e.submitStage(ctx, d, ec, ex)
			if err != nil {
				ec.UpdateStageResult(stage.Result{StageID: id, Status: stage.StatusFailed, Message: err.Error()})
			} else {
				fut.Result(ctx) //nolint:errcheck // task.Run never returns an error; failures live in the Result
			}

			for _, dependent := range graph.Nodes[id].Dependents {
				maybeSubmit(dependent)
			}
		}()
	}

	for id, node := range graph.Nodes {
		if len(node.DependsOn) == 0 {
			maybeSubmit(id)
		}
	}

	wg.Wait()

	// A stage whose dependencies were never satisfied (one failed or was
	// skipped) was never submitted and has no result; mark it skipped so
	// statistics see a terminal state for it. Once ShouldContinue is false
	// (cancelled, or fail_fast after a failure) this marking stops and the
	// remaining stages are left without a result.
	for id := range defsByID {
		if !ec.ShouldContinue() {
			break
		}
		mu.Lock()
		already := submitted[id]
		mu.Unlock()
		if already {
			continue
		}
		if _, ok := ec.Result(id); !ok {
			ec.UpdateStageResult(stage.Result{StageID: id, Status: stage.StatusSkipped, Message: "dependency chain unresolved"})
		}
	}
}
