package stage

import (
	"sync"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
)

// Pipeline is a named, addressable collection of StageDefinitions
// (spec.md §3). It is mutated only through Add/Remove/Update. These do
// not check for an active execution, and the engine does not guard them;
// the engine only refuses RemovePipeline while an execution is running.
type Pipeline struct {
	mu       sync.RWMutex
	id       string
	name     string
	order    []string
	stages   map[string]Definition
}

// NewPipeline constructs an empty, named pipeline with the given id.
func NewPipeline(id, name string) *Pipeline {
	return &Pipeline{id: id, name: name, stages: make(map[string]Definition)}
}

// ID returns the pipeline's generated or operator-assigned identifier.
func (p *Pipeline) ID() string { return p.id }

// Name returns the pipeline's human-readable name.
func (p *Pipeline) Name() string { return p.name }

// AddStage inserts a new stage. It is an error to add a stage whose id
// already exists.
func (p *Pipeline) AddStage(d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.stages[d.ID]; exists {
		return domainerrors.NewValidationFailed("duplicate stage id", map[string]interface{}{"stage_id": d.ID})
	}
	p.stages[d.ID] = d.Clone()
	p.order = append(p.order, d.ID)
	return nil
}

// UpdateStage replaces an existing stage definition in place, preserving
// its position in insertion order.
func (p *Pipeline) UpdateStage(d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.stages[d.ID]; !exists {
		return domainerrors.NewNotFound("stage not found", map[string]interface{}{"stage_id": d.ID})
	}
	p.stages[d.ID] = d.Clone()
	return nil
}

// RemoveStage deletes a stage. Dependents referencing the removed stage
// are left as-is; Validate will report them as dangling dependencies.
func (p *Pipeline) RemoveStage(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.stages[id]; !exists {
		return domainerrors.NewNotFound("stage not found", map[string]interface{}{"stage_id": id})
	}
	delete(p.stages, id)
	for i, sid := range p.order {
		if sid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetStage retrieves a stage definition by id.
func (p *Pipeline) GetStage(id string) (Definition, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.stages[id]
	if !ok {
		return Definition{}, domainerrors.NewNotFound("stage not found", map[string]interface{}{"stage_id": id})
	}
	return d, nil
}

// Stages returns a snapshot of every stage in insertion order.
func (p *Pipeline) Stages() []Definition {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Definition, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.stages[id])
	}
	return out
}

// Len returns the number of stages currently in the pipeline.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}

// Validate enforces the Pipeline invariant from spec.md §3: every
// dependency id must resolve within the pipeline, and the dependency
// set must be acyclic. This is a lightweight structural check owned by
// the domain type itself; the resolver component performs the richer
// topological-level computation used for actual scheduling.
func (p *Pipeline) Validate() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.stages) == 0 {
		return domainerrors.NewValidationFailed("pipeline has no stages", map[string]interface{}{"pipeline_id": p.id})
	}

	for id, d := range p.stages {
		for _, dep := range d.DependsOn {
			if _, ok := p.stages[dep]; !ok {
				return domainerrors.NewDependency("dependency not found", map[string]interface{}{
					"stage_id":           id,
					"missing_dependency": dep,
				})
			}
		}
	}

	visiting := make(map[string]bool, len(p.stages))
	visited := make(map[string]bool, len(p.stages))
	var stack []string

	var dfs func(string) []string
	dfs = func(id string) []string {
		visiting[id] = true
		stack = append(stack, id)
		for _, dep := range p.stages[id].DependsOn {
			if visiting[dep] {
				idx := indexOf(stack, dep)
				cycle := append([]string(nil), stack[idx:]...)
				return append(cycle, dep)
			}
			if !visited[dep] {
				if cyc := dfs(dep); cyc != nil {
					return cyc
				}
			}
		}
		visiting[id] = false
		visited[id] = true
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, id := range p.order {
		if !visited[id] {
			if cyc := dfs(id); cyc != nil {
				return domainerrors.NewCycle(cyc)
			}
		}
	}

	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
