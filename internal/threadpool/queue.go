package threadpool

import (
	"container/heap"
	"context"
	"time"
)

// task is the internal unit of work wrapper (spec.md §4.A, §8
// supplemented "named task submission").
type task struct {
	name      string
	priority  Priority
	fn        func(ctx context.Context) (interface{}, error)
	createdAt time.Time
	timeout   time.Duration
	future    *Future
	seq       int64
}

// priorityQueue is a container/heap.Interface ordering tasks by
// priority descending, then by submission sequence ascending (FIFO
// within equal priority — spec.md §4.A). No pack example provides a
// generic priority queue, so this is a direct stdlib implementation of
// the original's std::priority_queue<detail::Task>.
type priorityQueue []*task

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority.Weight() > q[j].priority.Weight()
	}
	return q[i].seq < q[j].seq
}

func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(x interface{}) {
	*q = append(*q, x.(*task))
}

func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*priorityQueue)(nil)
