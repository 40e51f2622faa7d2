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

// MarkAsync walks the graph in reverse-topological order and sets IsAsync
// on every module that either has TopLevelAwait set, or transitively
// imports (via a sync-ESM edge) a module already marked async (spec §4.3
// "Async marking"). A single reverse pass reaches fixed point in O(V+E)
// because by the time a module is visited, every module it depends on via
// a sync-ESM edge has already been visited and finalized.
func (g *Graph) MarkAsync() {
	order, _ := g.Toposort()

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		info := g.modules[id]
		if info == nil {
			continue
		}
		if info.TopLevelAwait {
			info.IsAsync = true
			continue
		}
		for _, e := range g.edges[id] {
			if !e.Dep.Type.IsSyncESM() {
				continue
			}
			dep := g.modules[e.To]
			if dep != nil && dep.IsAsync {
				info.IsAsync = true
				break
			}
		}
	}
}
