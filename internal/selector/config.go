// Package selector implements the Stage Selector component (spec.md
// §4.D): filtering a superset of stage definitions down to the subset
// that should run together, resolving dependency/dependent closures,
// validating and scoring the result, and caching by a fingerprint of
// the inputs.
package selector

import (
	"time"

	"github.com/reconctl/reconctl/internal/domain/stage"
)

// Filter is a predicate over a candidate stage. Callers build filters
// from whatever criteria they have (id, tag, priority, metadata); the
// selector only ever composes them per the include/exclude/require
// rules in spec.md §4.D.
type Filter func(stage.Definition) bool

// ByID matches stages whose id is in ids.
func ByID(ids ...string) Filter {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(d stage.Definition) bool { return set[d.ID] }
}

// ByMetadata matches stages carrying metadata[key] == value.
func ByMetadata(key, value string) Filter {
	return func(d stage.Definition) bool { return d.Metadata[key] == value }
}

// ByPriority matches stages at or above the given priority.
func ByPriority(min stage.Priority) Filter {
	return func(d stage.Definition) bool { return d.EffectivePriority().Weight() >= min.Weight() }
}

// ValidationLevel selects how thoroughly Select checks its result
// (spec.md §4.D step 4).
type ValidationLevel string

const (
	ValidationNone          ValidationLevel = "none"
	ValidationBasic         ValidationLevel = "basic"
	ValidationDependencies  ValidationLevel = "dependencies"
	ValidationResources     ValidationLevel = "resources"
	ValidationCompatibility ValidationLevel = "compatibility"
	ValidationComprehensive ValidationLevel = "comprehensive"
)

// Config parameterizes one Select call.
type Config struct {
	Include []Filter
	Exclude []Filter
	Require []Filter

	IncludeDependencies bool
	IncludeDependents   bool
	MaxDependencyDepth  int

	ValidationLevel ValidationLevel

	// CompatibilityThreshold is the minimum compatibility_score that
	// still counts as SUCCESS rather than PARTIAL_SUCCESS.
	CompatibilityThreshold float64

	MaxSelected int

	CacheTTL      time.Duration
	CacheCapacity int
}

// WithDefaults fills in documented defaults for zero-valued fields.
func (c Config) WithDefaults() Config {
	out := c
	if out.ValidationLevel == "" {
		out.ValidationLevel = ValidationBasic
	}
	if out.CompatibilityThreshold == 0 {
		out.CompatibilityThreshold = 0.8
	}
	if out.MaxDependencyDepth <= 0 {
		out.MaxDependencyDepth = 10
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = 5 * time.Minute
	}
	if out.CacheCapacity <= 0 {
		out.CacheCapacity = 128
	}
	return out
}
