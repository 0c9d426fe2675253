// Package task implements the Pipeline Task component (spec.md §4.F):
// one invocation of one stage within one execution context.
package task

import (
	"context"
	"os/exec"
	"time"

	"github.com/reconctl/reconctl/internal/domain/event"
	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/execctx"
)

// Task is one runnable instance of a stage definition.
type Task struct {
	Def     stage.Definition
	Breaker *BreakerRegistry // optional; nil disables circuit breaking
}

// New returns a Task for def with no breaker.
func New(def stage.Definition) *Task {
	return &Task{Def: def}
}

// Run executes the task against ec and returns the final StageResult,
// recording it into ec. It never returns an error itself — every
// outcome, including an executable failure, is represented as a
// terminal stage.Result (spec.md §4.F item (f)).
func (t *Task) Run(ctx context.Context, ec *execctx.Context) stage.Result {
	started := time.Now()

	ec.ContextSink().Emit(startedEvent(ec.PipelineID(), t.Def.ID))

	if t.Def.Condition != nil {
		ok, err := t.Def.Condition()
		if err != nil || !ok {
			return t.finish(ec, stage.Result{
				StageID:   t.Def.ID,
				Status:    stage.StatusSkipped,
				StartedAt: started,
				EndedAt:   time.Now(),
				Message:   "condition evaluated false",
			})
		}
	}

	if ec.Cancelled() {
		return t.finish(ec, t.cancelledResult(started))
	}

	if !ec.DependenciesSatisfied(t.Def.DependsOn, t.Def.AllowFailure) {
		return t.finish(ec, stage.Result{
			StageID:   t.Def.ID,
			Status:    stage.StatusSkipped,
			StartedAt: started,
			EndedAt:   time.Now(),
			Message:   "dependency not satisfied",
		})
	}

	result := t.runWithRetries(ctx, ec, started)
	return t.finish(ec, result)
}

func (t *Task) runWithRetries(ctx context.Context, ec *execctx.Context, started time.Time) stage.Result {
	attempt := 0
	for {
		if ec.Cancelled() {
			return t.cancelledResult(started)
		}

		exitCode, execErr, elapsed := t.invoke(ctx)

		if execErr == nil && exitCode == 0 {
			return stage.Result{
				StageID:   t.Def.ID,
				Status:    stage.StatusCompleted,
				StartedAt: started,
				EndedAt:   started.Add(elapsed),
				Duration:  elapsed,
				ExitCode:  exitCode,
			}
		}

		if attempt < t.Def.MaxRetries {
			attempt++
			ec.ContextSink().Emit(event.Event{
				Type:       event.TypeStageRetrying,
				Timestamp:  time.Now(),
				PipelineID: ec.PipelineID(),
				StageID:    t.Def.ID,
				Message:    "retrying after non-zero exit",
				Metadata:   map[string]interface{}{"attempt": attempt},
			})
			if !sleepOrCancel(ctx, ec, t.Def.RetryDelay) {
				return t.cancelledResult(started)
			}
			continue
		}

		return stage.Result{
			StageID:   t.Def.ID,
			Status:    stage.StatusFailed,
			StartedAt: started,
			EndedAt:   started.Add(elapsed),
			Duration:  elapsed,
			ExitCode:  exitCode,
			Error:     newExecError(t.Def.ID, execErr),
			Message:   execMessage(execErr),
		}
	}
}

// invoke spawns the stage's executable, enforcing its timeout, and
// returns the exit code, any spawn-level error, and elapsed time.
func (t *Task) invoke(ctx context.Context) (int, error, time.Duration) {
	run := t.runOnce
	if t.Breaker != nil {
		run = t.Breaker.Wrap(t.Def.ID, t.runOnce)
	}
	start := time.Now()
	exitCode, err := run(ctx)
	return exitCode, err, time.Since(start)
}

func (t *Task) runOnce(ctx context.Context) (int, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if t.Def.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, t.Def.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, t.Def.Executable, t.Def.Args...)
	cmd.Dir = t.Def.WorkDir
	if len(t.Def.Env) > 0 {
		cmd.Env = envSlice(t.Def.Env)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), err
	}
	return -1, err
}

func (t *Task) cancelledResult(started time.Time) stage.Result {
	return stage.Result{
		StageID:   t.Def.ID,
		Status:    stage.StatusCancelled,
		StartedAt: started,
		EndedAt:   time.Now(),
		Message:   "cancelled",
	}
}

func (t *Task) finish(ec *execctx.Context, result stage.Result) stage.Result {
	ec.UpdateStageResult(result)
	return result
}

func sleepOrCancel(ctx context.Context, ec *execctx.Context, d time.Duration) bool {
	if d <= 0 {
		return !ec.Cancelled()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !ec.Cancelled()
	case <-ctx.Done():
		return false
	}
}

func startedEvent(pipelineID, stageID string) event.Event {
	return event.Event{
		Type:       event.TypeStageStarted,
		Timestamp:  time.Now(),
		PipelineID: pipelineID,
		StageID:    stageID,
	}
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func execMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
