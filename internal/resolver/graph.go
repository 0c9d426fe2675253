// Package resolver computes everything the Pipeline Engine needs from a
// set of stage definitions before it can schedule them: topological
// order, execution levels, cycle detection with a concrete path,
// reachability, and critical path (spec.md §4.B). It is the scheduling
// counterpart of domain/stage.Pipeline.Validate, which only checks
// structural soundness; Graph additionally partitions stages into the
// levels the engine actually submits to the thread pool.
package resolver

import (
	"sort"

	domainerrors "github.com/reconctl/reconctl/internal/domain/errors"
	"github.com/reconctl/reconctl/internal/domain/stage"
)

// Node is one vertex of the dependency graph.
type Node struct {
	Def        stage.Definition
	DependsOn  []string
	Dependents []string
}

// Graph is the dependency graph built from a set of stage definitions.
type Graph struct {
	Nodes  map[string]*Node
	Levels [][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// Build constructs a Graph from defs, wiring forward/reverse edges from
// each definition's DependsOn list. It does not itself compute levels or
// detect cycles — call TopologicalLevels or DetectCycle afterward.
func Build(defs []stage.Definition) (*Graph, error) {
	g := NewGraph()
	for _, d := range defs {
		if _, exists := g.Nodes[d.ID]; exists {
			return nil, domainerrors.NewValidationFailed("duplicate stage id", map[string]interface{}{"stage_id": d.ID})
		}
		g.Nodes[d.ID] = &Node{Def: d}
	}
	for _, d := range defs {
		for _, dep := range d.DependsOn {
			target, ok := g.Nodes[dep]
			if !ok {
				return nil, domainerrors.NewDependency("missing dependency", map[string]interface{}{
					"stage_id":            d.ID,
					"missing_dependency": dep,
				})
			}
			source := g.Nodes[d.ID]
			source.DependsOn = append(source.DependsOn, dep)
			target.Dependents = append(target.Dependents, d.ID)
		}
	}
	return g, nil
}

// TopologicalLevels partitions the graph using Kahn's algorithm: every
// stage in level k has all of its dependencies in levels <k, and every
// level may be executed in parallel. Within a level, stages are ordered
// stably by (priority descending, id ascending), the tie-break spec.md
// §4.B names. Returns a cycle error (via DetectCycle) if the graph isn't
// a DAG.
func (g *Graph) TopologicalLevels() ([][]string, error) {
	indegree := make(map[string]int, len(g.Nodes))
	for id, n := range g.Nodes {
		indegree[id] = len(n.DependsOn)
	}

	var frontier []string
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}
	g.sortLevel(frontier)

	var levels [][]string
	processed := 0
	for len(frontier) > 0 {
		levels = append(levels, append([]string(nil), frontier...))
		var next []string
		for _, id := range frontier {
			processed++
			for _, dep := range g.Nodes[id].Dependents {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		g.sortLevel(next)
		frontier = next
	}

	if processed != len(g.Nodes) {
		if cyc := g.DetectCycle(); cyc != nil {
			return nil, domainerrors.NewCycle(cyc)
		}
		return nil, domainerrors.NewCycle(nil)
	}

	g.Levels = levels
	return levels, nil
}

// sortLevel orders ids stably by (priority descending, id ascending).
func (g *Graph) sortLevel(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		pi, pj := g.Nodes[ids[i]].Def.EffectivePriority(), g.Nodes[ids[j]].Def.EffectivePriority()
		if pi != pj {
			return pi.Weight() > pj.Weight()
		}
		return ids[i] < ids[j]
	})
}

// LevelOf returns the 0-based level index stageID was placed in by the
// most recent TopologicalLevels call, or -1 if not found.
func (g *Graph) LevelOf(stageID string) int {
	for i, level := range g.Levels {
		for _, id := range level {
			if id == stageID {
				return i
			}
		}
	}
	return -1
}
