package resolver

import "time"

// CriticalPath returns the dependency chain with the largest cumulative
// duration (spec.md §4.B item (e), Glossary "Critical path"), along
// with its total. durationOf supplies the per-stage duration to sum —
// the selector uses estimated timeouts, the engine uses actual observed
// durations (spec.md §4.G item 7).
func (g *Graph) CriticalPath(durationOf func(stageID string) time.Duration) ([]string, time.Duration) {
	if len(g.Levels) == 0 {
		g.TopologicalLevels() //nolint:errcheck // best-effort; caller already validated acyclicity upstream
	}

	best := make(map[string]time.Duration, len(g.Nodes))
	prev := make(map[string]string, len(g.Nodes))

	var order []string
	for _, level := range g.Levels {
		order = append(order, level...)
	}

	for _, id := range order {
		d := durationOf(id)
		localBest := d
		var localPrev string
		for _, dep := range g.Nodes[id].DependsOn {
			if cand := best[dep] + d; cand > localBest {
				localBest = cand
				localPrev = dep
			}
		}
		best[id] = localBest
		if localPrev != "" {
			prev[id] = localPrev
		}
	}

	var endID string
	var max time.Duration
	for id, d := range best {
		if d > max {
			max = d
			endID = id
		}
	}
	if endID == "" {
		return nil, 0
	}

	var path []string
	for id := endID; id != ""; id = prev[id] {
		path = append([]string{id}, path...)
		if _, ok := prev[id]; !ok {
			break
		}
	}
	return path, max
}
