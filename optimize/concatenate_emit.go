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

type textEdit struct {
	start, end int
	text       string
}

func applyTextEdits(src []byte, edits []textEdit) []byte {
	if len(edits) == 0 {
		return append([]byte(nil), src...)
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	out := append([]byte(nil), src...)
	for _, e := range edits {
		if e.start < 0 || e.end > len(out) || e.start > e.end {
			continue
		}
		var buf []byte
		buf = append(buf, out[:e.start]...)
		buf = append(buf, []byte(e.text)...)
		buf = append(buf, out[e.end:]...)
		out = buf
	}
	return out
}

// bindingResolver maps an imported local name, within one inner module, to
// the group-scoped expression it should read from after concatenation:
// either a renamed intra-group binding or an external's exposed binding.
type bindingResolver struct {
	toGroupName map[string]string // local import name -> renamed group binding
}

// resolveImportBindings figures out, for one inner module's import
// statements, what every locally-bound import name should become: a
// rename of the target inner module's exported local (intra-group), or an
// external binding/property access (spec §4.6.2 "Rewrite every inner
// module").
func resolveImportBindings(g *modulegraph.Graph, grp *Group, shaken *ShakeResult, id module.ID) *bindingResolver {
	r := &bindingResolver{toGroupName: make(map[string]string)}
	tsm := shaken.Modules[id]
	if tsm == nil || tsm.Graph == nil {
		return r
	}
	innerSet := make(map[module.ID]bool, len(grp.Inner))
	for _, m := range grp.Inner {
		innerSet[m] = true
	}
	externalByModule := make(map[module.ID]*External, len(grp.Externals))
	for _, e := range grp.Externals {
		externalByModule[e.ModuleID] = e
	}
	targetByStatement := resolveImportTargets(g, tsm.Graph, id)

	for _, s := range tsm.Graph.Statements {
		if s.Kind != ImportDecl || s.Import == nil {
			continue
		}
		targetID, ok := targetByStatement[s.Index]
		if !ok {
			continue
		}
		if innerSet[targetID] {
			targetRename := grp.Rename[targetID]
			if s.Import.Default != "" {
				if exported := lookupExportedLocal(shaken, targetID, "default"); exported != "" {
					r.toGroupName[s.Import.Default] = targetRename[exported]
				}
			}
			for i, name := range s.Import.Named {
				local := s.Import.NamedLocals[i]
				if exported := lookupExportedLocal(shaken, targetID, name); exported != "" {
					r.toGroupName[local] = targetRename[exported]
				}
			}
			// No namespace import reaches an inner module: qualifiesAsInner
			// keeps such a module out of the group, so it is an external and
			// its namespace binding is resolved below.
			continue
		}
		ext, ok := externalByModule[targetID]
		if !ok {
			continue
		}
		bindingVar := externalBinding(ext)
		if s.Import.Default != "" {
			r.toGroupName[s.Import.Default] = bindingVar
		}
		if s.Import.Namespace != "" {
			r.toGroupName[s.Import.Namespace] = ext.RawVar
		}
		for i, name := range s.Import.Named {
			local := s.Import.NamedLocals[i]
			r.toGroupName[local] = fmt.Sprintf("%s.%s", ext.RawVar, name)
			_ = i
		}
	}
	return r
}

func lookupExportedLocal(shaken *ShakeResult, id module.ID, exported string) string {
	tsm := shaken.Modules[id]
	if tsm == nil || tsm.Graph == nil {
		return ""
	}
	s := tsm.Graph.ExportStatement(exported)
	if s == nil || s.Export == nil {
		return ""
	}
	for i, n := range s.Export.Names {
		if n == exported {
			return s.Export.Locals[i]
		}
	}
	return ""
}

// resolveImportTargets maps every import-like statement (import, or export
// with a source) in document order onto the already-resolved module id the
// graph recorded for it. Both the statement graph and modulegraph.Graph
// preserve source order (analyze_deps' Ordinal and AddDependency's append
// order, respectively), so zipping the two in lockstep recovers the exact
// resolution the loader already performed — no re-deriving a module id from
// specifier text.
func resolveImportTargets(g *modulegraph.Graph, sg *StatementGraph, id module.ID) map[int]module.ID {
	out := make(map[int]module.ID)
	var edges []modulegraph.Edge
	if g != nil {
		for _, e := range g.GetDependencies(id) {
			if e.Dep.Type.IsSyncESM() {
				edges = append(edges, e)
			}
		}
	}
	i := 0
	for _, s := range sg.Statements {
		isSourceStatement := (s.Kind == ImportDecl && s.Import != nil) ||
			(s.Kind == ExportDecl && s.Export != nil && s.Export.Source != "") ||
			s.Kind == ExportAllDecl
		if !isSourceStatement {
			continue
		}
		if i >= len(edges) {
			break
		}
		out[s.Index] = edges[i].To
		i++
	}
	return out
}

// EmitRoot renders the full concatenated source for a group: the external
// require header, each inner module's statements (import/export-with-
// source statements dropped, local bindings renamed), in dependency-first
// order, followed by the root's re-export block (spec §4.6.2
// "Construction" steps 2-4).
func EmitRoot(g *modulegraph.Graph, grp *Group, shaken *ShakeResult, asts map[module.ID]*module.AST) []byte {
	var out strings.Builder
	out.WriteString(RequireHeader(grp))

	for _, id := range grp.Inner {
		out.Write(emitInnerModule(g, grp, shaken, asts[id], id))
		out.WriteByte('\n')
	}

	out.WriteString("__mako_require__.d(exports, '__esModule', { value: true });\n")
	out.WriteString(exportBlock(grp, shaken))
	return []byte(out.String())
}

func emitInnerModule(g *modulegraph.Graph, grp *Group, shaken *ShakeResult, ast *module.AST, id module.ID) []byte {
	if ast == nil || ast.Kind != module.ASTJS {
		return nil
	}
	rename := grp.Rename[id]
	bindings := resolveImportBindings(g, grp, shaken, id)
	tsm := shaken.Modules[id]

	removed := make(map[int][2]int)
	for _, span := range shaken.RemovedSpans[id] {
		removed[span[0]] = span
	}

	var edits []textEdit
	deletedRanges := make([][2]int, 0)
	addDeletion := func(start, end int) {
		edits = append(edits, textEdit{start: start, end: end, text: ""})
		deletedRanges = append(deletedRanges, [2]int{start, end})
	}

	if tsm != nil && tsm.Graph != nil {
		for _, s := range tsm.Graph.Statements {
			if wasRemoved(removed, s.SpanStart) {
				addDeletion(s.SpanStart, s.SpanEnd)
				continue
			}
			switch s.Kind {
			case ImportDecl, ExportAllDecl:
				addDeletion(s.SpanStart, s.SpanEnd)
			case ExportDecl:
				if s.Export == nil {
					continue
				}
				switch {
				case s.Export.Source != "":
					addDeletion(s.SpanStart, s.SpanEnd)
				case !s.Export.HasDeclaration:
					// `export { a, b };` or `export default someIdentifier;` —
					// nothing but the binding reference survives.
					addDeletion(s.SpanStart, s.SpanEnd)
				default:
					// `export const x = 1` / `export function f(){}` — keep the
					// declaration, drop only the leading "export "/"export
					// default " keyword text.
					if prefixEnd := exportPrefixEnd(ast.Source, s.SpanStart); prefixEnd > s.SpanStart {
						addDeletion(s.SpanStart, prefixEnd)
					}
				}
			}
		}
	}

	module.WalkIdentifiers(ast, func(start, end int, name string) {
		if withinAny(deletedRanges, start) {
			return
		}
		if repl, ok := bindings.toGroupName[name]; ok && repl != "" {
			edits = append(edits, textEdit{start: start, end: end, text: repl})
			return
		}
		if repl, ok := rename[name]; ok && repl != name {
			edits = append(edits, textEdit{start: start, end: end, text: repl})
		}
	})

	return applyTextEdits(ast.Source, edits)
}

func wasRemoved(removed map[int][2]int, start int) bool {
	_, ok := removed[start]
	return ok
}

func withinAny(ranges [][2]int, pos int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// exportPrefixEnd returns the byte offset just past the "export " or
// "export default " keyword sequence starting at stmtStart, so callers can
// delete exactly that prefix and keep the declaration itself.
func exportPrefixEnd(src []byte, stmtStart int) int {
	const exportKw = "export"
	i := stmtStart
	if i+len(exportKw) > len(src) || string(src[i:i+len(exportKw)]) != exportKw {
		return stmtStart
	}
	i += len(exportKw)
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	const defaultKw = "default"
	if i+len(defaultKw) <= len(src) && string(src[i:i+len(defaultKw)]) == defaultKw {
		i += len(defaultKw)
		for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
			i++
		}
	}
	return i
}

// exportBlock renders the root's __mako_require__.e(...) getters block for
// every name the group as a whole re-exports outward (spec §4.6.2
// "Construction" step 4).
func exportBlock(grp *Group, shaken *ShakeResult) string {
	root := shaken.Modules[grp.Root]
	if root == nil || root.Graph == nil {
		return ""
	}
	var names []string
	for _, s := range root.Graph.Statements {
		if s.Kind == ExportDecl && s.Export != nil {
			names = append(names, s.Export.Names...)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("__mako_require__.e(exports, {\n")
	rootRename := grp.Rename[grp.Root]
	for _, n := range names {
		local := lookupExportedLocal(shaken, grp.Root, n)
		binding := rootRename[local]
		if binding == "" {
			binding = local
		}
		fmt.Fprintf(&b, "  %q: function(){ return %s; },\n", n, binding)
	}
	b.WriteString("});\n")
	return b.String()
}
