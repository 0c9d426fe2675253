// Package threadpool implements the Thread Pool component (spec.md
// §4.A): a priority-ordered worker pool with bounded queueing, pause/
// resume, graceful/forced shutdown, and load-based auto-scaling.
// Grounded on original_source/src/include/core/thread_pool.hpp's
// TaskPriority/ThreadPoolConfig/ThreadPoolStats shapes, reimplemented
// with Go's goroutines/channels/container-heap in place of
// std::thread/std::priority_queue/std::condition_variable.
package threadpool

// Priority is a task's submission priority (spec.md §4.A: "low, normal,
// high, urgent"). It is distinct from stage.Priority — the engine
// translates a stage's business priority into a pool Priority; the
// pool's urgent tier exists for pool-internal escalation that has no
// StageDefinition analog.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Weight orders priorities for the heap: higher numeric value sorts
// first.
func (p Priority) Weight() int { return int(p) }

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}
