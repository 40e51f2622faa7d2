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
	"fmt"
	"sort"
	"strings"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
)

// ExternalUse is the union of ways a concatenation group references one
// external module (spec §4.6.2 "externals ... tagged with the union of
// ESM-dependant flags").
type ExternalUse int

const (
	UseDefault ExternalUse = 1 << iota
	UseNamed
	UseNamespace
	UseExportAll
)

// External is one boundary dependency of a concatenation group.
type External struct {
	ModuleID    module.ID
	Request     string // resolved runtime require() argument (generated module id or external request)
	Use         ExternalUse
	RawVar      string // binding name for the raw require() result
	InteropVar  string // binding name for the interop-wrapped result, if any
}

// Group is a maximal concatenation group rooted at an ESM module (spec
// §4.6.2).
type Group struct {
	Root      module.ID
	Inner     []module.ID // dependency-first order (descending TopoIndex); Root's own position is wherever that order puts it
	Externals []*External
	Rename    map[module.ID]map[string]string // per-module: original top-level name -> group-unique name
}

// FindGroups identifies every maximal concatenation group over the
// tree-shaken graph (spec §4.6.2 "Construction"). A module already claimed
// by an earlier group (as inner member) is skipped as a root candidate.
func FindGroups(g *modulegraph.Graph, shaken *ShakeResult) []*Group {
	claimed := make(map[module.ID]bool)
	var groups []*Group

	order, _ := g.Toposort()
	for _, id := range order {
		if claimed[id] || shaken.RemovedModules[id] {
			continue
		}
		tsm := shaken.Modules[id]
		if tsm == nil || !tsm.IsESM {
			continue
		}
		if !eligibleRoot(g, shaken, id) {
			continue
		}
		inner := collectInner(g, shaken, id, claimed)
		if len(inner) == 0 {
			continue
		}
		grp := &Group{Root: id, Inner: inner}
		for _, m := range inner {
			claimed[m] = true
		}
		grp.Externals = collectExternals(g, shaken, inner)
		grp.Rename = buildRenameMap(shaken, inner)
		groups = append(groups, grp)
	}
	return groups
}

// eligibleRoot holds when id is not dynamically imported by anything and is
// not itself async (spec: "R is not dynamically imported and not async").
func eligibleRoot(g *modulegraph.Graph, shaken *ShakeResult, id module.ID) bool {
	info := g.Module(id)
	if info == nil || info.IsAsync {
		return false
	}
	for _, dependent := range g.GetDependents(id) {
		for _, e := range g.GetDependencies(dependent) {
			if e.To == id && e.Dep.Type.Kind == module.DynamicImport {
				return false
			}
		}
	}
	_ = shaken
	return true
}

// collectInner grows the inner set breadth-first from root over sync-ESM
// edges, admitting a candidate only once every one of its parents within
// the growing set also ends up included — computed by repeating passes over
// the included set until none adds a module (spec: "every parent (within the
// group) is also in the group").
func collectInner(g *modulegraph.Graph, shaken *ShakeResult, root module.ID, globallyClaimed map[module.ID]bool) []module.ID {
	included := map[module.ID]bool{root: true}
	changed := true
	for changed {
		changed = false
		for id := range included {
			for _, e := range g.GetDependencies(id) {
				if !e.Dep.Type.IsSyncESM() {
					continue
				}
				target := e.To
				if included[target] || globallyClaimed[target] {
					continue
				}
				if !qualifiesAsInner(g, shaken, target) {
					continue
				}
				if !allParentsIncluded(g, included, target) {
					continue
				}
				included[target] = true
				changed = true
			}
		}
	}
	out := make([]module.ID, 0, len(included))
	for id := range included {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return shaken.Modules[out[i]].TopoIndex > shaken.Modules[out[j]].TopoIndex
	})
	return out
}

func qualifiesAsInner(g *modulegraph.Graph, shaken *ShakeResult, id module.ID) bool {
	tsm := shaken.Modules[id]
	if tsm == nil || !tsm.IsESM {
		return false
	}
	if tsm.AllExports.Kind == Ambiguous {
		return false
	}
	info := g.Module(id)
	if info == nil || info.IsAsync || info.TopLevelAwait {
		return false
	}
	for _, e := range g.GetDependencies(id) {
		switch e.Dep.Type.Kind {
		case module.DynamicImport, module.Worker:
			return false
		case module.ExportAll:
			target := shaken.Modules[e.To]
			if target == nil || !target.IsESM {
				return false
			}
		}
	}
	// A module imported as a namespace stays outside the group, so it is
	// required through the externals header instead.
	for _, parent := range g.GetDependents(id) {
		for _, e := range g.GetDependencies(parent) {
			if e.To == id && e.Dep.Type.Specifiers&module.SpecNamespace != 0 {
				return false
			}
		}
	}
	return true
}

func allParentsIncluded(g *modulegraph.Graph, included map[module.ID]bool, id module.ID) bool {
	for _, parent := range g.GetDependents(id) {
		for _, e := range g.GetDependencies(parent) {
			if e.To == id && e.Dep.Type.IsSyncESM() && !included[parent] {
				return false
			}
		}
	}
	return true
}

// collectExternals finds every edge leaving the inner set that lands
// outside it and classifies how the group uses each such boundary module.
func collectExternals(g *modulegraph.Graph, shaken *ShakeResult, inner []module.ID) []*External {
	innerSet := make(map[module.ID]bool, len(inner))
	for _, id := range inner {
		innerSet[id] = true
	}
	byTarget := make(map[module.ID]*External)
	var order []module.ID
	for _, id := range inner {
		for _, e := range g.GetDependencies(id) {
			if innerSet[e.To] || !e.Dep.Type.IsSyncESM() {
				continue
			}
			ext, ok := byTarget[e.To]
			if !ok {
				ext = &External{ModuleID: e.To, Request: string(e.To)}
				byTarget[e.To] = ext
				order = append(order, e.To)
			}
			rt := e.Dep.Type
			if rt.Specifiers&module.SpecDefault != 0 {
				ext.Use |= UseDefault
			}
			if rt.Specifiers&module.SpecNamed != 0 {
				ext.Use |= UseNamed
			}
			if rt.Specifiers&module.SpecNamespace != 0 {
				ext.Use |= UseNamespace
			}
			if e.Dep.Type.Kind == module.ExportAll {
				ext.Use |= UseExportAll
			}
		}
	}
	out := make([]*External, 0, len(order))
	for i, id := range order {
		ext := byTarget[id]
		ext.RawVar = fmt.Sprintf("_ext%d", i)
		if needsInterop(ext.Use) {
			ext.InteropVar = fmt.Sprintf("_ext%d_interop", i)
		}
		out = append(out, ext)
	}
	return out
}

func needsInterop(use ExternalUse) bool {
	return use&UseDefault != 0
}

// buildRenameMap assigns every top-level identifier across the inner set a
// group-unique name, suffixing `_<n>` on collision (spec §4.6.2
// "Construction" step 1).
func buildRenameMap(shaken *ShakeResult, inner []module.ID) map[module.ID]map[string]string {
	rename := make(map[module.ID]map[string]string, len(inner))
	seen := make(map[string]int)
	for _, id := range inner {
		rename[id] = make(map[string]string)
		tsm := shaken.Modules[id]
		if tsm == nil || tsm.Graph == nil {
			continue
		}
		var names []string
		for _, s := range tsm.Graph.Statements {
			names = append(names, s.Defined...)
		}
		sort.Strings(names)
		for _, n := range names {
			if _, ok := rename[id][n]; ok {
				continue
			}
			count := seen[n]
			seen[n] = count + 1
			if count == 0 {
				rename[id][n] = n
			} else {
				rename[id][n] = fmt.Sprintf("%s_%d", n, count)
			}
		}
	}
	return rename
}

// RequireHeader renders the top-of-root bindings for a group's externals
// (spec §4.6.2 "Construction" step 2).
func RequireHeader(grp *Group) string {
	var b strings.Builder
	for _, ext := range grp.Externals {
		fmt.Fprintf(&b, "var %s = __mako_require__(%q);\n", ext.RawVar, ext.Request)
		switch {
		case ext.Use&UseDefault != 0 && ext.Use&(UseNamespace|UseNamed) != 0:
			fmt.Fprintf(&b, "var %s = __mako_require__._interop_require_wildcard._(%s);\n", ext.InteropVar, ext.RawVar)
		case ext.Use&UseDefault != 0 && ext.Use&(UseNamespace|UseNamed) == 0:
			fmt.Fprintf(&b, "var %s = __mako_require__._interop_require_default._(%s);\n", ext.InteropVar, ext.RawVar)
		}
		if ext.Use&UseExportAll != 0 {
			fmt.Fprintf(&b, "__mako_require__._export_star(%s, exports);\n", ext.RawVar)
		}
	}
	return b.String()
}

// externalBinding returns the identifier a rewritten reference to ext
// should use: the interop binding when one exists, else the raw binding.
func externalBinding(ext *External) string {
	if ext.InteropVar != "" {
		return ext.InteropVar
	}
	return ext.RawVar
}
