package threadpool

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/ports"
)

// Pool is a priority-ordered worker pool (spec.md §4.A).
type Pool struct {
	cfg    Config
	logger ports.Logger

	mu           sync.Mutex
	cond         *sync.Cond
	queue        priorityQueue
	workerCount  int
	stopRequests int
	nextSeq      int64

	paused            int32
	shutdownRequested int32
	forceStop         int32

	activeThreads  int32
	completedTasks int64
	failedTasks    int64
	totalDurations int64 // nanoseconds, for average computation
	peakQueueSize  int64

	createdAt time.Time
	wg        sync.WaitGroup

	scalingDone chan struct{}
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithLogger injects a logger (ports.Logger), defaulting to a no-op.
func WithLogger(l ports.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New constructs and starts a Pool with cfg.WithDefaults() applied.
func New(cfg Config, opts ...Option) *Pool {
	cfg = cfg.WithDefaults()
	p := &Pool{
		cfg:       cfg,
		createdAt: time.Now(),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}

	for i := 0; i < cfg.InitialThreads; i++ {
		p.spawnWorkerLocked()
	}

	if cfg.EnableAutoScaling {
		p.scalingDone = make(chan struct{})
		go p.scalingLoop()
	}
	return p
}

// spawnWorkerLocked must be called with p.mu held (New calls it before
// any goroutine can race; scaleUp re-acquires the lock itself).
func (p *Pool) spawnWorkerLocked() {
	p.workerCount++
	p.wg.Add(1)
	go p.workerLoop()
}

// Submit enqueues fn at the given priority. Returns QueueFull if the
// queue is at capacity, ShuttingDown if shutdown has been requested.
func (p *Pool) Submit(priority Priority, fn func(ctx context.Context) (interface{}, error)) (*Future, error) {
	return p.SubmitNamed("", priority, fn)
}

// SubmitNamed is Submit with a name recorded on the queued task (spec.md
// §8 supplemented "named task submission"). The pool itself does not
// write the name to logs or traces.
func (p *Pool) SubmitNamed(name string, priority Priority, fn func(ctx context.Context) (interface{}, error)) (*Future, error) {
	return p.submit(name, priority, 0, fn)
}

// SubmitWithTimeout is Submit with a per-task timeout overriding the
// pool's DefaultTaskTimeout.
func (p *Pool) SubmitWithTimeout(priority Priority, timeout time.Duration, fn func(ctx context.Context) (interface{}, error)) (*Future, error) {
	return p.submit("", priority, timeout, fn)
}

func (p *Pool) submit(name string, priority Priority, timeout time.Duration, fn func(ctx context.Context) (interface{}, error)) (*Future, error) {
	if atomic.LoadInt32(&p.shutdownRequested) == 1 || atomic.LoadInt32(&p.forceStop) == 1 {
		return nil, domainerrors.NewShuttingDown()
	}

	f := newFuture()
	p.mu.Lock()
	if len(p.queue) >= p.cfg.MaxQueueSize {
		p.mu.Unlock()
		return nil, domainerrors.NewQueueFull()
	}
	p.nextSeq++
	t := &task{
		name:      name,
		priority:  priority,
		fn:        fn,
		createdAt: time.Now(),
		timeout:   timeout,
		future:    f,
		seq:       p.nextSeq,
	}
	heap.Push(&p.queue, t)
	if int64(len(p.queue)) > atomic.LoadInt64(&p.peakQueueSize) {
		atomic.StoreInt64(&p.peakQueueSize, int64(len(p.queue)))
	}
	p.mu.Unlock()
	p.cond.Signal()
	return f, nil
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && p.stopRequests == 0 && atomic.LoadInt32(&p.forceStop) == 0 {
			if atomic.LoadInt32(&p.shutdownRequested) == 1 {
				p.workerCount--
				p.mu.Unlock()
				return
			}
			p.cond.Wait()
		}
		if atomic.LoadInt32(&p.forceStop) == 1 {
			p.workerCount--
			p.mu.Unlock()
			return
		}
		if p.stopRequests > 0 {
			p.stopRequests--
			p.workerCount--
			p.mu.Unlock()
			return
		}
		// Pause blocks workers before dequeuing, per spec.md §4.A.
		for atomic.LoadInt32(&p.paused) == 1 && atomic.LoadInt32(&p.forceStop) == 0 {
			p.cond.Wait()
		}
		if atomic.LoadInt32(&p.forceStop) == 1 {
			p.workerCount--
			p.mu.Unlock()
			return
		}
		t := heap.Pop(&p.queue).(*task)
		p.mu.Unlock()

		p.runTask(t)
	}
}

func (p *Pool) runTask(t *task) {
	atomic.AddInt32(&p.activeThreads, 1)
	defer atomic.AddInt32(&p.activeThreads, -1)

	timeout := t.timeout
	if timeout <= 0 && p.cfg.EnableTaskTimeout {
		timeout = p.cfg.DefaultTaskTimeout
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	start := time.Now()
	result, err := p.invoke(ctx, t.fn)
	duration := time.Since(start)
	if cancel != nil {
		cancel()
	}

	atomic.AddInt64(&p.totalDurations, int64(duration))
	if err != nil {
		atomic.AddInt64(&p.failedTasks, 1)
	} else {
		atomic.AddInt64(&p.completedTasks, 1)
	}
	t.future.complete(result, err)
}

// invoke recovers a panicking task into an error result, matching the
// original's "any exception thrown by a task is captured into its
// result handle; the worker continues" (spec.md §4.A).
func (p *Pool) invoke(ctx context.Context, fn func(context.Context) (interface{}, error)) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domainerrors.NewStageExecutable("", nil).WithContext(map[string]interface{}{"panic": r})
		}
	}()
	return fn(ctx)
}

// Pause causes workers to block before dequeuing their next task. In-
// flight tasks run to completion.
func (p *Pool) Pause() {
	atomic.StoreInt32(&p.paused, 1)
}

// Resume releases paused workers.
func (p *Pool) Resume() {
	atomic.StoreInt32(&p.paused, 0)
	p.cond.Broadcast()
}

// IsPaused reports the pool's current pause state.
func (p *Pool) IsPaused() bool {
	return atomic.LoadInt32(&p.paused) == 1
}

// Shutdown drains the queue then stops all workers (graceful).
func (p *Pool) Shutdown() {
	atomic.StoreInt32(&p.shutdownRequested, 1)
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
	if p.scalingDone != nil {
		close(p.scalingDone)
	}
	p.wg.Wait()
}

// ForceShutdown cancels pending tasks and stops workers without
// draining the queue; in-flight external processes are allowed to
// finish subject to their own timeout (spec.md §5 Cancellation).
func (p *Pool) ForceShutdown() {
	atomic.StoreInt32(&p.forceStop, 1)
	p.mu.Lock()
	for len(p.queue) > 0 {
		t := heap.Pop(&p.queue).(*task)
		t.future.complete(nil, domainerrors.NewCancelled())
	}
	p.cond.Broadcast()
	p.mu.Unlock()
	if p.scalingDone != nil {
		close(p.scalingDone)
	}
	p.wg.Wait()
}

// Stats returns a snapshot of the pool's current statistics (spec.md
// §8 supplemented "thread pool statistics").
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	total := p.workerCount
	queued := len(p.queue)
	peak := atomic.LoadInt64(&p.peakQueueSize)
	p.mu.Unlock()

	active := int(atomic.LoadInt32(&p.activeThreads))
	completed := atomic.LoadInt64(&p.completedTasks)
	failed := atomic.LoadInt64(&p.failedTasks)
	totalDur := atomic.LoadInt64(&p.totalDurations)

	var avgMs float64
	if n := completed + failed; n > 0 {
		avgMs = float64(totalDur) / float64(n) / float64(time.Millisecond)
	}

	return Stats{
		TotalThreads:          total,
		ActiveThreads:         active,
		IdleThreads:           total - active,
		QueuedTasks:           queued,
		CompletedTasks:        completed,
		FailedTasks:           failed,
		AverageTaskDurationMs: avgMs,
		PeakQueueSize:         int(peak),
		CreatedAt:             p.createdAt,
		TotalRuntime:          time.Since(p.createdAt),
	}
}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...interface{}) {}
func (noopLogger) Info(context.Context, string, ...interface{})  {}
func (noopLogger) Warn(context.Context, string, ...interface{})  {}
func (noopLogger) Error(context.Context, string, ...interface{}) {}
func (l noopLogger) With(...interface{}) ports.Logger            { return l }
