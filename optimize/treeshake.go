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

package optimize

import (
	"sort"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
)

// ShakeResult is the outcome of one tree-shaking pass over a module graph
// (spec §4.6.1). RemovedModules lists modules whose entire body disappeared
// (empty used_exports and no self-executed statement survives);
// RemovedSpans lists, per surviving module, the byte ranges of statements
// that were eliminated.
type ShakeResult struct {
	Modules        map[module.ID]*TreeShakeModule
	RemovedModules map[module.ID]bool
	RemovedSpans   map[module.ID][][2]int
}

// Shake runs the full spec §4.6.1 algorithm: build a TreeShakeModule per
// ESM module, seed used_exports from entries, propagate to a fixed point,
// then eliminate unreachable statements per module.
func Shake(g *modulegraph.Graph, asts map[module.ID]*module.AST) *ShakeResult {
	order, cycles := g.Toposort()
	inCycle := make(map[module.ID]bool)
	for _, comp := range cycles {
		for _, id := range comp {
			inCycle[id] = true
		}
	}

	modules := make(map[module.ID]*TreeShakeModule, len(order))
	for idx, id := range order {
		info := g.Module(id)
		if info == nil {
			continue
		}
		isESM := info.ASTKind == module.ASTJS && !inCycle[id] && info.External == ""
		tsm := &TreeShakeModule{
			ID:          id,
			SideEffects: true,
			UsedExports: newUsedExports(),
			TopoIndex:   idx,
			IsESM:       isESM,
		}
		if isESM {
			tsm.Graph = BuildStatementGraph(asts[id])
			tsm.SideEffects = info.SideEffects || hasSelfExecuted(tsm.Graph)
		} else {
			tsm.UsedExports.SetAll()
		}
		modules[id] = tsm
	}

	// all_exports depends on export-all targets, which sit further from the
	// entries than their re-exporter (edges run importer -> imported), so
	// this pass walks the topological order leaf-first, descending
	// TopoIndex, guaranteeing every export-all target is already resolved.
	leafFirst := make([]module.ID, 0, len(order))
	for _, id := range order {
		if _, ok := modules[id]; ok {
			leafFirst = append(leafFirst, id)
		}
	}
	sort.Slice(leafFirst, func(i, j int) bool {
		return modules[leafFirst[i]].TopoIndex > modules[leafFirst[j]].TopoIndex
	})
	for _, id := range leafFirst {
		tsm := modules[id]
		if tsm == nil || !tsm.IsESM {
			continue
		}
		tsm.AllExports = computeAllExports(g, modules, id)
	}

	for _, entry := range g.GetEntryModules() {
		if tsm, ok := modules[entry]; ok {
			tsm.UsedExports.SetAll()
		}
	}

	propagate(g, modules)

	return eliminate(g, modules)
}

// hasSelfExecuted reports whether any top-level statement performs an
// observable effect outside of satisfying an export.
func hasSelfExecuted(g *StatementGraph) bool {
	if g == nil {
		return true
	}
	for _, s := range g.Statements {
		if s.SelfExecuted {
			return true
		}
	}
	return false
}

// computeAllExports derives a module's export surface: Precise when every
// export is statically enumerable, Ambiguous when an `export *` target is
// non-ESM or itself ambiguous (spec §3 "all_exports"). Callers must run this
// leaf-first (descending TopoIndex) so every export-all target's own
// AllExports is already resolved.
func computeAllExports(mg *modulegraph.Graph, modules map[module.ID]*TreeShakeModule, id module.ID) AllExports {
	tsm := modules[id]
	names := make(map[string]bool)
	if tsm == nil || tsm.Graph == nil {
		return AllExports{Kind: Ambiguous}
	}
	for _, s := range tsm.Graph.Statements {
		if s.Kind == ExportDecl && s.Export != nil {
			for _, n := range s.Export.Names {
				if n != "default" {
					names[n] = true
				}
			}
		}
	}
	for _, e := range mg.GetDependencies(id) {
		if e.Dep.Type.Kind != module.ExportAll {
			continue
		}
		target := modules[e.To]
		if target == nil || !target.IsESM || target.AllExports.Kind == Ambiguous {
			return AllExports{Kind: Ambiguous}
		}
		for n := range target.AllExports.Names {
			names[n] = true
		}
	}
	return AllExports{Kind: Precise, Names: names}
}

// propagate runs the used-exports worklist to a fixed point (spec §4.6.1
// "Used-exports propagation"). It walks every module's outgoing sync-ESM
// edges, mapping the importer's requested names onto the target's
// used_exports, expanding `export *` per the target's all_exports.
func propagate(g *modulegraph.Graph, modules map[module.ID]*TreeShakeModule) {
	changed := true
	for changed {
		changed = false
		for id, tsm := range modules {
			if !tsm.UsedExports.All && len(tsm.UsedExports.Names) == 0 {
				continue
			}
			for _, e := range g.GetDependencies(id) {
				target, ok := modules[e.To]
				if !ok {
					continue
				}
				switch e.Dep.Type.Kind {
				case module.ImportKind, module.ExportNamed:
					if e.Dep.Type.Specifiers&module.SpecNamespace != 0 {
						if target.UsedExports.SetAll() {
							changed = true
						}
						continue
					}
					for _, n := range usedNamesFor(e.Dep) {
						if target.UsedExports.Add(n) {
							changed = true
						}
					}
				case module.ExportAll:
					if !target.IsESM || target.AllExports.Kind == Ambiguous {
						if target.UsedExports.SetAll() {
							changed = true
						}
						continue
					}
					for n := range target.AllExports.Names {
						if n == "default" {
							continue
						}
						if target.UsedExports.Add(n) {
							changed = true
						}
					}
				default:
					// Require/DynamicImport/CSSImport/Worker: non-ESM
					// consumption, target must keep everything.
					if target.UsedExports.SetAll() {
						changed = true
					}
				}
			}
		}
	}
}

// usedNamesFor resolves which exported names of the edge's target the
// importer actually consumes for a non-namespace import/export-named edge.
// Callers handle SpecNamespace (resolves to All) before reaching here.
func usedNamesFor(dep module.Dependency) []string {
	rt := dep.Type
	var names []string
	if rt.Specifiers&module.SpecDefault != 0 {
		names = append(names, "default")
	}
	names = append(names, rt.NamedBindings...)
	return names
}

// eliminate computes, per module, the statements reachable from its
// used_exports set by walking StatementGraph.Requires edges (spec §4.6.1
// "Statement elimination"), and removes modules that end up with nothing
// reachable.
func eliminate(g *modulegraph.Graph, modules map[module.ID]*TreeShakeModule) *ShakeResult {
	res := &ShakeResult{
		Modules:        modules,
		RemovedModules: make(map[module.ID]bool),
		RemovedSpans:   make(map[module.ID][][2]int),
	}

	for id, tsm := range modules {
		if !tsm.IsESM || tsm.SideEffects {
			continue // kept whole: either non-ESM (conservative) or has effects
		}
		sg := tsm.Graph
		if sg == nil {
			continue
		}
		live := make(map[int]bool)
		var markDefiner func(name string)
		markDefiner = func(name string) {
			s := sg.DefinerOf(name)
			if s == nil || live[s.Index] {
				return
			}
			live[s.Index] = true
			for _, req := range s.Requires[name] {
				markDefiner(req)
			}
		}

		if tsm.UsedExports.All {
			for _, s := range sg.Statements {
				live[s.Index] = true
			}
		} else {
			names := sortedNames(tsm.UsedExports.Names)
			for _, name := range names {
				es := sg.ExportStatement(name)
				if es != nil {
					live[es.Index] = true
					for _, local := range es.Export.Locals {
						markDefiner(local)
					}
					continue
				}
				candidates, fallbackAll := resolveAmbiguous(g, modules, sg, id, name)
				if fallbackAll {
					tsm.UsedExports.SetAll()
					for _, s := range sg.Statements {
						live[s.Index] = true
					}
					continue
				}
				for _, s := range candidates {
					live[s.Index] = true
				}
			}
		}
		for _, s := range sg.Statements {
			if s.SelfExecuted {
				live[s.Index] = true
			}
		}

		var removedSpans [][2]int
		for _, s := range sg.Statements {
			if !live[s.Index] {
				removedSpans = append(removedSpans, [2]int{s.SpanStart, s.SpanEnd})
			}
		}
		if len(removedSpans) > 0 {
			res.RemovedSpans[id] = removedSpans
		}
		if len(live) == 0 {
			res.RemovedModules[id] = true
		}
	}

	return res
}

// resolveAmbiguous implements spec §4.6.1's "Tie-breakers" rule for a used
// export name that isn't satisfied by any local export or precise re-export
// statement. It walks the module's `export *` statements and classifies each
// by whether its resolved target could plausibly provide name: a target with
// a Precise export surface counts only if name is actually in it; a target
// that is itself Ambiguous (or unresolved, e.g. external) counts
// unconditionally since its real surface is unknown. Declaration order is
// preserved (not sorted), matching the original's mark_used_id_for_tree_shake
// tie-break order. More than one candidate means the statements are kept
// live together — we can't tell which wins at runtime; exactly one candidate
// is followed; zero candidates falls back to treating the whole module as
// fully used.
func resolveAmbiguous(g *modulegraph.Graph, modules map[module.ID]*TreeShakeModule, sg *StatementGraph, id module.ID, name string) (candidates []*Statement, fallbackAll bool) {
	targets := make(map[string]module.ID)
	for _, e := range g.GetDependencies(id) {
		if e.Dep.Type.Kind == module.ExportAll {
			targets[e.Dep.SourceText] = e.To
		}
	}
	for _, s := range sg.Statements {
		if s.Kind != ExportAllDecl || s.Export == nil {
			continue
		}
		targetID, ok := targets[s.Export.Source]
		if !ok {
			candidates = append(candidates, s) // unresolved target: conservatively possible
			continue
		}
		target := modules[targetID]
		switch {
		case target == nil:
			candidates = append(candidates, s)
		case target.AllExports.Kind == Precise:
			if target.AllExports.Names[name] {
				candidates = append(candidates, s)
			}
		default: // Ambiguous
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, true
	}
	return candidates, false
}

func sortedNames(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
