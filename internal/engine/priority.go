// Package engine implements the Pipeline Engine component (spec.md
// §4.G): pipeline/execution management, the sequential/parallel/hybrid
// scheduling algorithms, error-strategy handling, and execution
// statistics.
package engine

import (
	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/threadpool"
)

// translatePriority maps a stage's business priority to a pool
// submission priority. The pool's urgent tier has no StageDefinition
// analog (stage.Priority tops out at "critical") — it exists only for
// pool-internal escalation the engine does not currently trigger.
func translatePriority(p stage.Priority) threadpool.Priority {
	switch p {
	case stage.PriorityCritical:
		return threadpool.PriorityUrgent
	case stage.PriorityHigh:
		return threadpool.PriorityHigh
	case stage.PriorityLow:
		return threadpool.PriorityLow
	default:
		return threadpool.PriorityNormal
	}
}
