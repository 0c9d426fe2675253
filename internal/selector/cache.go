package selector

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

// fingerprint hashes the sorted set of stage ids together with the
// config knobs that affect selection, per spec.md §4.D "Caching":
// "Result cache keyed by a hash of (sorted stage fingerprints,
// validation level, include flags, max_selected)".
func fingerprint(defs []stage.Definition, cfg Config) uint64 {
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(strings.Join(ids, ","))
	fmt.Fprintf(&b, "|%s|deps=%v|dependents=%v|max=%d|depth=%d",
		cfg.ValidationLevel, cfg.IncludeDependencies, cfg.IncludeDependents, cfg.MaxSelected, cfg.MaxDependencyDepth)

	return xxhash.Sum64String(b.String())
}

type cacheEntry struct {
	result    Result
	expiresAt time.Time
	createdAt time.Time
}

// cache is the Stage Selector's result cache: TTL expiry, oldest-entry
// capacity eviction, and hit/miss counters (spec.md §4.D "Caching").
type cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[uint64]cacheEntry

	hits   int64
	misses int64
}

func newCache(capacity int, ttl time.Duration) *cache {
	return &cache{capacity: capacity, ttl: ttl, entries: make(map[uint64]cacheEntry)}
}

func (c *cache) get(key uint64) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		c.misses++
		if ok {
			delete(c.entries, key)
		}
		return Result{}, false
	}
	c.hits++
	return entry.result, true
}

func (c *cache) put(key uint64, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}
	now := time.Now()
	c.entries[key] = cacheEntry{result: result, createdAt: now, expiresAt: now.Add(c.ttl)}
}

func (c *cache) evictOldestLocked() {
	var oldestKey uint64
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.createdAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// HitRatio returns cached_selections / total_selections (spec.md §4.D).
func (c *cache) HitRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Stats returns the raw hit/miss counters.
func (c *cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
