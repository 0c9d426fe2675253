package selector

import (
	"context"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reconctl/reconctl/internal/constraints"
	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/domain/event"
	"github.com/reconctl/reconctl/internal/domain/stage"
	"github.com/reconctl/reconctl/internal/resolver"
)

// Selector is the Stage Selector component (spec.md §4.D).
type Selector struct {
	sink     event.Sink
	cache    *cache
	registry *constraints.Registry
}

// Option configures a Selector at construction.
type Option func(*Selector)

// WithSink injects an event sink.
func WithSink(s event.Sink) Option {
	return func(sel *Selector) { sel.sink = s }
}

// WithConstraintRegistry injects a custom constraint registry instead
// of a fresh default one.
func WithConstraintRegistry(r *constraints.Registry) Option {
	return func(sel *Selector) { sel.registry = r }
}

// New constructs a Selector with a fresh result cache.
func New(cfg Config, opts ...Option) *Selector {
	cfg = cfg.WithDefaults()
	s := &Selector{cache: newCache(cfg.CacheCapacity, cfg.CacheTTL)}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = event.NopSink{}
	}
	if s.registry == nil {
		s.registry = constraints.NewRegistry()
	}
	return s
}

// HitRatio exposes the selector's cache hit ratio.
func (s *Selector) HitRatio() float64 { return s.cache.HitRatio() }

// Select runs the algorithm from spec.md §4.D against the full
// superset of stage definitions, returning the subset that should
// execute together plus an executable plan.
func (s *Selector) Select(ctx context.Context, universe []stage.Definition, cfg Config) (Result, error) {
	cfg = cfg.WithDefaults()
	pipelineID := "" // selection is pipeline-agnostic; kept for event symmetry

	s.emit(event.TypeSelectionStarted, pipelineID, "", "")

	key := fingerprint(universe, cfg)
	cacheKey := strconv.FormatUint(key, 16)
	universeCount := len(universe)
	if cached, ok := s.cache.get(key); ok {
		s.emit(event.TypeCacheHit, pipelineID, "", "")
		cached.FromCache = true
		return cached, nil
	}
	s.emit(event.TypeCacheMiss, pipelineID, "", "")

	byID := make(map[string]stage.Definition, len(universe))
	for _, d := range universe {
		byID[d.ID] = d
	}

	selected := s.applyFilters(universe, cfg, pipelineID)

	if cfg.IncludeDependencies {
		selected = s.extendClosure(selected, byID, cfg.MaxDependencyDepth, true, pipelineID)
	}
	if cfg.IncludeDependents {
		selected = s.extendClosure(selected, byID, cfg.MaxDependencyDepth, false, pipelineID)
	}

	if cfg.MaxSelected > 0 && len(selected) > cfg.MaxSelected {
		sort.Slice(selected, func(i, j int) bool {
			wi, wj := selected[i].EffectivePriority().Weight(), selected[j].EffectivePriority().Weight()
			if wi != wj {
				return wi > wj
			}
			return selected[i].ID < selected[j].ID
		})
		selected = selected[:cfg.MaxSelected]
	}

	if len(selected) == 0 {
		err := domainerrors.NewEmptySelection()
		result := Result{
			Status:        StatusEmptySelection,
			Errors:        []string{err.Error()},
			UniverseCount: universeCount,
			CacheKey:      cacheKey,
			CreatedAt:     time.Now(),
		}
		s.emit(event.TypeSelectionFailed, pipelineID, "", "no stages matched the selection criteria")
		return result, err
	}

	s.emit(event.TypeValidationStarted, pipelineID, "", string(cfg.ValidationLevel))
	if status, err := s.validate(selected, cfg); status != "" {
		s.emit(event.TypeValidationCompleted, pipelineID, "", string(status))
		s.emit(event.TypeSelectionFailed, pipelineID, "", err.Error())
		return Result{
			Status:        status,
			Errors:        []string{err.Error()},
			UniverseCount: universeCount,
			SelectedCount: len(selected),
			Ratio:         float64(len(selected)) / float64(universeCount),
			CacheKey:      cacheKey,
			CreatedAt:     time.Now(),
		}, err
	}
	s.emit(event.TypeValidationCompleted, pipelineID, "", "ok")

	var graph *resolver.Graph
	var compatScore float64
	var warnings []string
	var resourceEstimate ResourceEstimate
	var seqDuration, parDuration time.Duration

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		graph, err = resolver.Build(selected)
		if err != nil {
			return err
		}
		if _, err := graph.TopologicalLevels(); err != nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		score, warns := s.analyzeCompatibility(selected, pipelineID)
		compatScore = score
		warnings = warns
		return nil
	})

	g.Go(func() error {
		resourceEstimate = estimateResources(selected)
		return nil
	})

	if err := g.Wait(); err != nil {
		failed := Result{
			Errors:        []string{err.Error()},
			UniverseCount: universeCount,
			SelectedCount: len(selected),
			Ratio:         float64(len(selected)) / float64(universeCount),
			CacheKey:      cacheKey,
			CreatedAt:     time.Now(),
		}
		var derr *domainerrors.Error
		if asDomainError(err, &derr) && derr.Code == domainerrors.CodeDependency && derr.Message == "circular dependency detected" {
			s.emit(event.TypeSelectionFailed, pipelineID, "", "circular dependency")
			failed.Status = StatusCircularDependency
			return failed, err
		}
		s.emit(event.TypeSelectionFailed, pipelineID, "", err.Error())
		failed.Status = StatusValidationFailed
		return failed, err
	}

	order := make([]string, 0, len(selected))
	groups := make([][]string, 0, len(graph.Levels))
	for _, level := range graph.Levels {
		groups = append(groups, append([]string(nil), level...))
		order = append(order, level...)
	}

	durationOf := func(id string) time.Duration { return byID[id].Timeout }
	for _, d := range selected {
		seqDuration += d.Timeout
	}
	var criticalPath []string
	criticalPath, parDuration = graph.CriticalPath(durationOf)

	status := StatusSuccess
	if compatScore < cfg.CompatibilityThreshold {
		status = StatusIncompatibleStages
	} else if compatScore < 1.0 {
		status = StatusPartialSuccess
	}

	ratio := float64(len(selected)) / float64(universeCount)
	createdAt := time.Now()
	information := buildInformation(compatScore, ratio, seqDuration, parDuration)

	plan := stage.ExecutionPlan{
		PlanID:                  "plan-" + cacheKey,
		ExecutionOrder:          order,
		ParallelGroups:          groups,
		DependencyMap:           dependencyMap(graph),
		Constraints:             s.constraintMap(selected),
		TotalTimeEstimate:       seqDuration,
		ParallelEstimate:        parDuration,
		ResourceEstimates:       resourceEstimate.toMap(),
		CriticalPath:            criticalPath,
		OptimizationSuggestions: optimizationSuggestions(warnings, seqDuration, parDuration),
		Valid:                   status == StatusSuccess || status == StatusPartialSuccess,
		CreatedAt:               createdAt,
	}

	result := Result{
		Status:                      status,
		Stages:                      selected,
		ExecutionOrder:              order,
		ParallelGroups:              groups,
		Plan:                        plan,
		EstimatedSequentialDuration: seqDuration,
		EstimatedParallelDuration:   parDuration,
		Resources:                   resourceEstimate,
		CompatibilityScore:          compatScore,
		Warnings:                    warnings,
		Information:                 information,
		UniverseCount:               universeCount,
		SelectedCount:               len(selected),
		Ratio:                       ratio,
		CacheKey:                    cacheKey,
		CreatedAt:                   createdAt,
	}

	if status == StatusIncompatibleStages {
		s.emit(event.TypeSelectionFailed, pipelineID, "", "compatibility score below threshold")
		result.Errors = append(result.Errors, "compatibility score below threshold")
		return result, domainerrors.NewConstraintViolation("compatibility score below threshold", map[string]interface{}{
			"score": compatScore, "threshold": cfg.CompatibilityThreshold,
		})
	}

	s.cache.put(key, result)
	s.emit(event.TypeSelectionCompleted, pipelineID, "", string(status))
	return result, nil
}

// buildInformation gathers the informational (non-error, non-warning)
// notices spec.md §6 "Selection result export/import" names.
func buildInformation(compatScore, ratio float64, seqDuration, parDuration time.Duration) []string {
	info := []string{
		"selection_ratio=" + strconv.FormatFloat(ratio, 'f', 4, 64),
		"compatibility_score=" + strconv.FormatFloat(compatScore, 'f', 4, 64),
	}
	if parDuration > 0 && parDuration < seqDuration {
		info = append(info, "parallel execution saves "+(seqDuration-parDuration).String()+" over sequential")
	}
	return info
}

// optimizationSuggestions derives the spec.md §6 "optimization
// suggestions" field from the compatibility warnings and the gap
// between sequential and parallel duration estimates.
func optimizationSuggestions(warnings []string, seqDuration, parDuration time.Duration) []string {
	var suggestions []string
	for _, w := range warnings {
		suggestions = append(suggestions, "resolve: "+w)
	}
	if parDuration > 0 && seqDuration > parDuration*2 {
		suggestions = append(suggestions, "high parallelism opportunity: parallel estimate is less than half the sequential estimate")
	}
	return suggestions
}

// dependencyMap flattens the resolved graph's forward edges into the
// plain map shape ExecutionPlan.DependencyMap carries.
func dependencyMap(g *resolver.Graph) map[string][]string {
	out := make(map[string][]string, len(g.Nodes))
	for id, n := range g.Nodes {
		out[id] = append([]string(nil), n.DependsOn...)
	}
	return out
}

// constraintMap reports each selected stage's effective constraint set,
// as stringified constraint names, for ExecutionPlan.Constraints.
func (s *Selector) constraintMap(selected []stage.Definition) map[string][]string {
	out := make(map[string][]string, len(selected))
	for _, d := range selected {
		cs := s.effectiveConstraints(d)
		names := make([]string, 0, len(cs))
		for _, c := range cs {
			names = append(names, string(c))
		}
		out[d.ID] = names
	}
	return out
}

func (s *Selector) applyFilters(universe []stage.Definition, cfg Config, pipelineID string) []stage.Definition {
	var kept []stage.Definition
	for _, d := range universe {
		if !matchesAny(cfg.Include, d) {
			s.emit(event.TypeStageFiltered, pipelineID, d.ID, "excluded: no include filter matched")
			continue
		}
		if matchesAny(cfg.Exclude, d) {
			s.emit(event.TypeStageFiltered, pipelineID, d.ID, "excluded: exclude filter matched")
			continue
		}
		if !matchesAll(cfg.Require, d) {
			s.emit(event.TypeStageFiltered, pipelineID, d.ID, "excluded: require filter unmatched")
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

func matchesAny(filters []Filter, d stage.Definition) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f(d) {
			return true
		}
	}
	return false
}

func matchesAll(filters []Filter, d stage.Definition) bool {
	for _, f := range filters {
		if !f(d) {
			return false
		}
	}
	return true
}

// extendClosure walks dependency (forward) or dependent (reverse) edges
// up to maxDepth and adds newly reached stages to the selection
// (spec.md §4.D steps 2-3).
func (s *Selector) extendClosure(selected []stage.Definition, byID map[string]stage.Definition, maxDepth int, forward bool, pipelineID string) []stage.Definition {
	present := make(map[string]bool, len(selected))
	for _, d := range selected {
		present[d.ID] = true
	}

	frontier := append([]stage.Definition(nil), selected...)
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []stage.Definition
		for _, d := range frontier {
			neighbors := d.DependsOn
			if !forward {
				neighbors = dependentsOf(d.ID, byID)
			}
			for _, nid := range neighbors {
				if present[nid] {
					continue
				}
				nd, ok := byID[nid]
				if !ok {
					continue
				}
				present[nid] = true
				selected = append(selected, nd)
				next = append(next, nd)
				s.emit(event.TypeDependencyResolved, pipelineID, nid, "")
			}
		}
		frontier = next
	}
	return selected
}

func dependentsOf(id string, byID map[string]stage.Definition) []string {
	var out []string
	for _, d := range byID {
		if d.HasDependency(id) {
			out = append(out, d.ID)
		}
	}
	return out
}

// validate runs the requested validation level (spec.md §4.D step 4).
func (s *Selector) validate(selected []stage.Definition, cfg Config) (Status, error) {
	if cfg.ValidationLevel == ValidationNone {
		return "", nil
	}

	seen := make(map[string]bool, len(selected))
	for _, d := range selected {
		if d.ID == "" || d.Executable == "" {
			return StatusValidationFailed, domainerrors.NewValidationFailed("stage missing id or executable", nil)
		}
		if seen[d.ID] {
			return StatusValidationFailed, domainerrors.NewValidationFailed("duplicate stage id in selection", map[string]interface{}{"stage_id": d.ID})
		}
		seen[d.ID] = true
	}

	if cfg.ValidationLevel == ValidationBasic {
		return "", nil
	}

	byID := make(map[string]stage.Definition, len(selected))
	for _, d := range selected {
		byID[d.ID] = d
	}
	for _, d := range selected {
		for _, dep := range d.DependsOn {
			if _, ok := byID[dep]; !ok {
				return StatusValidationFailed, domainerrors.NewDependency("dangling dependency reference", map[string]interface{}{
					"stage_id": d.ID, "missing_dependency": dep,
				})
			}
		}
	}
	graph, err := resolver.Build(selected)
	if err != nil {
		return StatusValidationFailed, err
	}
	if _, err := graph.TopologicalLevels(); err != nil {
		return StatusCircularDependency, err
	}

	return "", nil
}

// analyzeCompatibility implements spec.md §4.D step 5: for every
// unordered pair, check inferred-constraint incompatibility;
// compatibility_score is the mean of per-stage scores, where a stage
// scores 1.0 with no conflicts and 0.5 otherwise.
func (s *Selector) analyzeCompatibility(selected []stage.Definition, pipelineID string) (float64, []string) {
	if len(selected) == 0 {
		return 1.0, nil
	}

	conflicted := make(map[string]bool, len(selected))
	var warnings []string
	for i := 0; i < len(selected); i++ {
		for j := i + 1; j < len(selected); j++ {
			a, b := selected[i], selected[j]
			combined := append(append([]stage.Constraint(nil), s.effectiveConstraints(a)...), s.effectiveConstraints(b)...)
			if constraints.CheckCompatibility(combined) {
				continue
			}
			conflicted[a.ID] = true
			conflicted[b.ID] = true
			warnings = append(warnings, a.ID+" and "+b.ID+" have incompatible constraints")
			s.emit(event.TypeConstraintChecked, pipelineID, a.ID, "incompatible with "+b.ID)
		}
	}

	var total float64
	for _, d := range selected {
		if conflicted[d.ID] {
			total += 0.5
		} else {
			total += 1.0
		}
	}
	return total / float64(len(selected)), warnings
}

// estimateResources implements spec.md §4.D step 9.
func estimateResources(selected []stage.Definition) ResourceEstimate {
	var est ResourceEstimate
	for _, d := range selected {
		est.CPUMinutes += cpuWeight(d.EffectivePriority()) * d.Timeout.Minutes()
		est.MemoryMB += memoryPerStageMB
		if hasConstraint(constraints.Infer(d), stage.ConstraintNetworkDependent) {
			est.NetworkMB += networkUsageMB
		}
		if len(d.Args) > 0 {
			est.DiskMB += diskUsageMB
		}
	}
	return est
}

var allConstraints = []stage.Constraint{
	stage.ConstraintSequentialOnly, stage.ConstraintParallelSafe, stage.ConstraintResourceIntensive,
	stage.ConstraintNetworkDependent, stage.ConstraintFilesystemDep, stage.ConstraintMemoryIntensive,
	stage.ConstraintCPUIntensive, stage.ConstraintExclusiveAccess, stage.ConstraintTimeSensitive,
	stage.ConstraintStateful,
}

// effectiveConstraints returns d's constraint set as seen through the
// selector's registry, so a custom validator registered for a
// constraint (spec.md §4.C) affects compatibility scoring the same way
// inference does.
func (s *Selector) effectiveConstraints(d stage.Definition) []stage.Constraint {
	var out []stage.Constraint
	for _, c := range allConstraints {
		if s.registry.ValidateConstraint(d, c) {
			out = append(out, c)
		}
	}
	return out
}

func hasConstraint(set []stage.Constraint, c stage.Constraint) bool {
	for _, existing := range set {
		if existing == c {
			return true
		}
	}
	return false
}

func (s *Selector) emit(t event.Type, pipelineID, stageID, message string) {
	s.sink.Emit(event.Event{Type: t, Timestamp: time.Now(), PipelineID: pipelineID, StageID: stageID, Message: message})
}

func asDomainError(err error, target **domainerrors.Error) bool {
	derr, ok := err.(*domainerrors.Error)
	if !ok {
		return false
	}
	*target = derr
	return true
}
