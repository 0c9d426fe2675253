package threadpool

import "time"

// Stats mirrors the original ThreadPoolStats (spec.md §8 supplemented
// features), exposed via Pool.Stats().
type Stats struct {
	TotalThreads          int
	ActiveThreads         int
	IdleThreads           int
	QueuedTasks           int
	CompletedTasks        int64
	FailedTasks           int64
	AverageTaskDurationMs float64
	PeakQueueSize         int
	CreatedAt             time.Time
	TotalRuntime          time.Duration
}
