package resolver

import "sort"

// DetectCycle runs a tri-color DFS over the graph and returns one
// concrete cycle path (stage ids, repeating the first id at the end) if
// one exists, or nil otherwise. A stage listing itself as its own
// dependency is a cycle of length one (spec.md §4.B edge case) and is
// reported as [id, id].
func (g *Graph) DetectCycle() []string {
	visiting := make(map[string]bool, len(g.Nodes))
	visited := make(map[string]bool, len(g.Nodes))
	var stack []string
	var cycle []string

	var dfs func(string) bool
	dfs = func(id string) bool {
		visiting[id] = true
		stack = append(stack, id)

		for _, dep := range g.Nodes[id].DependsOn {
			if visiting[dep] {
				idx := indexOf(stack, dep)
				cycle = append([]string(nil), stack[idx:]...)
				cycle = append(cycle, dep)
				return true
			}
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			}
		}

		visiting[id] = false
		visited[id] = true
		stack = stack[:len(stack)-1]
		return false
	}

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}
		if dfs(id) {
			break
		}
	}

	return cycle
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
