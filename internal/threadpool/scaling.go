package threadpool

import (
	"sync/atomic"
	"time"
)

// scalingLoop periodically recomputes load and grows or shrinks the
// worker count (spec.md §4.A auto-scaling formula).
func (p *Pool) scalingLoop() {
	ticker := time.NewTicker(p.cfg.ScalingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.scalingDone:
			return
		case <-ticker.C:
			p.rescale()
		}
	}
}

func (p *Pool) rescale() {
	load := p.calculateLoad()
	switch {
	case load > 0.8:
		p.scaleUp(2)
	case load < 0.2:
		p.scaleDown(1)
	}
}

// calculateLoad computes max(active/total, pending/(2*total)) (spec.md
// §4.A), the same formula as the original's calculateLoad().
func (p *Pool) calculateLoad() float64 {
	p.mu.Lock()
	total := p.workerCount
	pending := len(p.queue)
	p.mu.Unlock()
	if total == 0 {
		return 0
	}
	active := float64(atomic.LoadInt32(&p.activeThreads))
	activeLoad := active / float64(total)
	pendingLoad := float64(pending) / (2 * float64(total))
	if activeLoad > pendingLoad {
		return activeLoad
	}
	return pendingLoad
}

// scaleUp adds up to want new workers, bounded by MaxThreads.
func (p *Pool) scaleUp(want int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.cfg.MaxThreads - p.workerCount
	if room <= 0 {
		return
	}
	if want > room {
		want = room
	}
	for i := 0; i < want; i++ {
		p.spawnWorkerLocked()
	}
}

// scaleDown retires up to want idle workers, bounded below by
// MinThreads. Workers self-terminate at their next idle check.
func (p *Pool) scaleDown(want int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.workerCount - p.cfg.MinThreads - p.stopRequests
	if room <= 0 {
		return
	}
	if want > room {
		want = room
	}
	p.stopRequests += want
	p.cond.Broadcast()
}
