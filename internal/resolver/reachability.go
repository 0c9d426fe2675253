package resolver

// DependenciesOf returns every stage transitively required by id
// (forward reachability), not including id itself.
func (g *Graph) DependenciesOf(id string) []string {
	return g.reachable(id, func(n *Node) []string { return n.DependsOn })
}

// DependentsOf returns every stage transitively depending on id
// (reverse reachability), not including id itself.
func (g *Graph) DependentsOf(id string) []string {
	return g.reachable(id, func(n *Node) []string { return n.Dependents })
}

// Reaches reports whether from can reach to by walking edges in the
// given direction: forward=true walks DependsOn edges (does "from"
// depend on "to", directly or transitively), forward=false walks
// Dependents edges (is "to" a dependent of "from").
func (g *Graph) Reaches(from, to string, forward bool) bool {
	var ids []string
	if forward {
		ids = g.DependenciesOf(from)
	} else {
		ids = g.DependentsOf(from)
	}
	for _, id := range ids {
		if id == to {
			return true
		}
	}
	return false
}

func (g *Graph) reachable(id string, neighbors func(*Node) []string) []string {
	n, ok := g.Nodes[id]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var queue []string
	queue = append(queue, neighbors(n)...)
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		out = append(out, cur)
		if next, ok := g.Nodes[cur]; ok {
			queue = append(queue, neighbors(next)...)
		}
	}
	return out
}
