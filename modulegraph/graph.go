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

// Package modulegraph is the L4 graph service over resolved modules (spec
// §4.4). It owns no parsing or transform logic — callers add already-built
// module.Info values and the edges analyze_deps discovered.
package modulegraph

import (
	"sort"

	"bennypowers.dev/mako/module"
)

// Edge is one directed dependency arrow, kept alongside its originating
// Dependency so chunking and optimization can inspect ResolveType without
// re-walking the AST.
type Edge struct {
	To  module.ID
	Dep module.Dependency
}

// Graph is the mutable module dependency graph (spec §4.4 "ModuleGraph").
// It is not safe for concurrent use; callers serialize graph mutation
// through the engine's single scheduling goroutine the way the teacher's
// own session state is (generate/session.go).
type Graph struct {
	modules  map[module.ID]*module.Info
	edges    map[module.ID][]Edge   // from -> ordered [(to, dep)]
	incoming map[module.ID][]module.ID // to -> [from, ...], unordered
	entries  []module.ID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		modules:  make(map[module.ID]*module.Info),
		edges:    make(map[module.ID][]Edge),
		incoming: make(map[module.ID][]module.ID),
	}
}

// AddModule inserts or replaces a module's Info. If info.File.IsEntry, its
// id is recorded as an entry point.
func (g *Graph) AddModule(id module.ID, info *module.Info) {
	g.modules[id] = info
	if info != nil && info.File.IsEntry {
		g.entries = appendUnique(g.entries, id)
	}
}

// HasModule reports whether id is present in the graph.
func (g *Graph) HasModule(id module.ID) bool {
	_, ok := g.modules[id]
	return ok
}

// Module returns a module's Info, or nil if absent.
func (g *Graph) Module(id module.ID) *module.Info {
	return g.modules[id]
}

// AddDependency records a directed edge from -> to, preserving the order
// edges are added per `from` (spec: "get_dependencies(id) -> ordered
// [(id, dep)]").
func (g *Graph) AddDependency(from, to module.ID, dep module.Dependency) {
	g.edges[from] = append(g.edges[from], Edge{To: to, Dep: dep})
	g.incoming[to] = appendUnique(g.incoming[to], from)
}

// RemoveModuleAndDeps deletes a module and every outgoing edge it owns,
// cleaning up the reverse index for each former dependency. It does not
// touch modules that still depend on id — those retain a dangling edge
// until replace_module or their own removal runs, matching the spec's
// "remove_module_and_deps" contract of only ever removing what it owns.
func (g *Graph) RemoveModuleAndDeps(id module.ID) {
	for _, e := range g.edges[id] {
		g.incoming[e.To] = removeValue(g.incoming[e.To], id)
	}
	delete(g.edges, id)
	delete(g.modules, id)
	delete(g.incoming, id)
	g.entries = removeValue(g.entries, id)
}

// ReplaceModule swaps in new Info for id while preserving every existing
// edge (incoming and outgoing) — the HMR-recompile path uses this so a
// module's dependents never need to re-add edges just because the module's
// own content changed (spec: "replace_module (preserves edges)").
func (g *Graph) ReplaceModule(id module.ID, info *module.Info) {
	g.modules[id] = info
}

// GetDependencies returns id's outgoing edges in the order they were added.
func (g *Graph) GetDependencies(id module.ID) []Edge {
	return g.edges[id]
}

// GetDependents returns the ids of modules with an edge into id, in
// insertion order (first caller of AddDependency(_, id, _) first).
func (g *Graph) GetDependents(id module.ID) []module.ID {
	return g.incoming[id]
}

// GetEntryModules returns every module id marked IsEntry, in AddModule
// call order.
func (g *Graph) GetEntryModules() []module.ID {
	return g.entries
}

// AllModuleIDs returns every module id currently in the graph, in
// lexicographic order — used by toposort's tie-break and by callers that
// need a stable full-graph iteration order (prod module-id assignment).
func (g *Graph) AllModuleIDs() []module.ID {
	ids := make([]module.ID, 0, len(g.modules))
	for id := range g.modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func appendUnique(s []module.ID, v module.ID) []module.ID {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func removeValue(s []module.ID, v module.ID) []module.ID {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
