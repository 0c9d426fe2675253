package task

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerRegistry gives every stage id its own circuit breaker so a
// consistently broken recon tool stops being re-spawned mid-run. This
// composes with, but does not replace, the task's own retry/backoff
// policy (SPEC_FULL.md §5 domain stack).
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[int]
	settings func(stageID string) gobreaker.Settings
}

// NewBreakerRegistry returns a registry using settingsFn to configure a
// new breaker the first time a stage id is seen. A nil settingsFn uses
// DefaultSettings.
func NewBreakerRegistry(settingsFn func(stageID string) gobreaker.Settings) *BreakerRegistry {
	if settingsFn == nil {
		settingsFn = DefaultSettings
	}
	return &BreakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker[int]), settings: settingsFn}
}

// DefaultSettings trips after 3 consecutive failures and probes again
// after 30 seconds.
func DefaultSettings(stageID string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    stageID,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
}

func (r *BreakerRegistry) get(stageID string) *gobreaker.CircuitBreaker[int] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[stageID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[int](r.settings(stageID))
	r.breakers[stageID] = b
	return b
}

// Wrap returns a function invoking run through stageID's breaker. When
// the breaker is open, it returns gobreaker.ErrOpenState without
// running the executable at all.
func (r *BreakerRegistry) Wrap(stageID string, run func(ctx context.Context) (int, error)) func(ctx context.Context) (int, error) {
	cb := r.get(stageID)
	return func(ctx context.Context) (int, error) {
		return cb.Execute(func() (int, error) { return run(ctx) })
	}
}
