/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package modulegraph

import (
	"sort"

	"bennypowers.dev/mako/module"
)

// Toposort returns a deterministic linear order over every module in the
// graph plus every strongly-connected component of size >= 2 (spec §4.4
// "toposort() -> (order, cycles)"). Ties — nodes with no remaining
// dependency ordering constraint between them — break on ModuleId
// lexicographic order, so the same graph always produces the same order
// regardless of insertion history.
func (g *Graph) Toposort() (order []module.ID, cycles [][]module.ID) {
	sccs := tarjanSCCs(g)

	// Each component is keyed by its lexicographically smallest member, so
	// Kahn's tie-break on keys is a tie-break on ModuleId.
	condensed := New()
	componentOf := make(map[module.ID]int, len(g.modules))
	keyOf := make([]module.ID, len(sccs))
	indexOfKey := make(map[module.ID]int, len(sccs))
	for i, comp := range sccs {
		sort.Slice(comp, func(a, b int) bool { return comp[a] < comp[b] })
		keyOf[i] = comp[0]
		indexOfKey[comp[0]] = i
		for _, id := range comp {
			componentOf[id] = i
		}
	}
	for id := range g.modules {
		condensed.AddModule(keyOf[componentOf[id]], nil)
	}
	seenEdge := make(map[[2]int]bool)
	for from, edges := range g.edges {
		for _, e := range edges {
			cf, ct := componentOf[from], componentOf[e.To]
			if cf == ct {
				continue
			}
			key := [2]int{cf, ct}
			if seenEdge[key] {
				continue
			}
			seenEdge[key] = true
			condensed.AddDependency(keyOf[cf], keyOf[ct], module.Dependency{})
		}
	}

	componentOrder := kahnLexicographic(condensed)

	for _, key := range componentOrder {
		idx := indexOfKey[key]
		members := append([]module.ID(nil), sccs[idx]...)
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		order = append(order, members...)
		if len(members) >= 2 {
			cycles = append(cycles, members)
		}
	}
	return order, cycles
}

// kahnLexicographic runs Kahn's algorithm over the condensed (acyclic)
// graph, always picking the lexicographically-smallest ready node so the
// result is fully deterministic.
func kahnLexicographic(g *Graph) []module.ID {
	indegree := make(map[module.ID]int, len(g.modules))
	for id := range g.modules {
		indegree[id] = 0
	}
	for _, edges := range g.edges {
		for _, e := range edges {
			indegree[e.To]++
		}
	}

	var ready []module.ID
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	var order []module.ID
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, e := range g.edges[next] {
			indegree[e.To]--
			if indegree[e.To] == 0 {
				ready = append(ready, e.To)
			}
		}
	}
	return order
}

// tarjanSCCs computes strongly-connected components using Tarjan's
// algorithm, iteratively (not recursively) so a deep, naturally-occurring
// import chain can't blow the Go stack.
func tarjanSCCs(g *Graph) [][]module.ID {
	index := 0
	indices := make(map[module.ID]int)
	lowlink := make(map[module.ID]int)
	onStack := make(map[module.ID]bool)
	var stack []module.ID
	var sccs [][]module.ID

	ids := g.AllModuleIDs()

	type frame struct {
		node   module.ID
		edgeAt int
	}

	for _, root := range ids {
		if _, visited := indices[root]; visited {
			continue
		}
		var work []frame
		work = append(work, frame{node: root})
		indices[root] = index
		lowlink[root] = index
		index++
		stack = append(stack, root)
		onStack[root] = true

		for len(work) > 0 {
			top := &work[len(work)-1]
			edges := g.edges[top.node]
			if top.edgeAt < len(edges) {
				next := edges[top.edgeAt].To
				top.edgeAt++
				if _, visited := indices[next]; !visited {
					indices[next] = index
					lowlink[next] = index
					index++
					stack = append(stack, next)
					onStack[next] = true
					work = append(work, frame{node: next})
				} else if onStack[next] {
					if indices[next] < lowlink[top.node] {
						lowlink[top.node] = indices[next]
					}
				}
				continue
			}

			// Done with top.node's edges: pop and propagate lowlink to parent.
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := &work[len(work)-1]
				if lowlink[top.node] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[top.node]
				}
			}

			if lowlink[top.node] == indices[top.node] {
				var comp []module.ID
				for {
					n := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[n] = false
					comp = append(comp, n)
					if n == top.node {
						break
					}
				}
				sccs = append(sccs, comp)
			}
		}
	}
	return sccs
}

func componentKey(i int) string {
	const hexDigits = "0123456789abcdef"
	if i == 0 {
		return "0"
	}
	var buf []byte
	for i > 0 {
		buf = append([]byte{hexDigits[i%16]}, buf...)
		i /= 16
	}
	return string(buf)
}

func componentIndex(key module.ID) int {
	n := 0
	for _, c := range string(key) {
		n *= 16
		switch {
		case c >= '0' && c <= '9':
			n += int(c - '0')
		case c >= 'a' && c <= 'f':
			n += int(c-'a') + 10
		}
	}
	return n
}
