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

package module

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ResolutionKind is the outcome the resolver reached for one Dependency
// (spec §4.3 "resolve").
type ResolutionKind int

const (
	ResolvedOK ResolutionKind = iota
	ResolvedExternal
	ResolvedMissing
)

// Resolution pairs a Dependency (by Ordinal) with what the resolver decided.
type Resolution struct {
	Kind     ResolutionKind
	ModuleID string // generated id for ResolvedOK
	Request  string // original request string for ResolvedExternal
	Reason   string // for ResolvedMissing
}

// TransformInput is everything the transform task needs beyond the raw AST:
// the analyzed dependencies paired with their resolutions (by Ordinal), and
// the knobs spec §4.3/§4.4 name (mode, async marking, concatenation
// eligibility, define substitutions).
type TransformInput struct {
	Info        *Info
	AST         *AST
	Resolutions []Resolution // indexed by Dependency.Ordinal
	MetaSpans   []Span       // import.meta.url occurrences from AnalyzeDeps
	SelfModule  string       // this module's own generated id, for import.meta.url rewriting
	CommonJS    bool         // false when the module stays ESM for concatenation (spec §4.6.2)
	Defines     map[string]DefineValue
}

// DefineValue is a literal substituted for a matched identifier/dot-chain in
// the env/define replacement pass (spec §4.3 "Env/define replacement").
type DefineValue struct {
	Raw string // already-serialized JS expression text
}

type edit struct {
	start, end int
	text       string
}

// Transform produces the rewritten source for one module (spec §4.3
// "transform"). JS transforms run in the order the spec lists them; CSS
// transforms are handled by transformCSS.
func Transform(in TransformInput) []byte {
	if in.AST == nil || in.AST.Kind != ASTJS {
		return in.AST.Source
	}

	var edits []edit

	for _, dep := range in.Info.Dependencies {
		res := resolutionFor(in.Resolutions, dep.Ordinal)
		edits = append(edits, dependencyEdits(dep, res, in.CommonJS)...)
	}

	for _, span := range in.MetaSpans {
		edits = append(edits, edit{
			start: span.Start,
			end:   span.End,
			text:  fmt.Sprintf("%s.m(%s)", runtimeSymbol, strconv.Quote(in.SelfModule)),
		})
	}

	if len(in.Defines) > 0 {
		edits = append(edits, defineEdits(in.AST, in.Defines)...)
	}

	out := applyEdits(in.AST.Source, edits)

	if in.Info.IsAsync {
		out = wrapAsyncModule(out)
	}

	return out
}

// runtimeSymbol is the parameter name every emitted module wrapper receives
// for its require function (spec §4.7's module wrapper, emit/serialize.go).
const runtimeSymbol = "__mako_require__"

// resolutionFor looks up the Resolution for a dependency by Ordinal.
// Resolutions are produced in dependency order by the resolve stage, so a
// Resolution's position in the slice equals its Dependency's Ordinal.
func resolutionFor(resolutions []Resolution, ordinal int) Resolution {
	if ordinal >= 0 && ordinal < len(resolutions) {
		return resolutions[ordinal]
	}
	return Resolution{Kind: ResolvedMissing, Reason: "unresolved"}
}

// requireExpr renders the runtime call that fetches a dependency's exports
// object for the given resolution (spec §4.3's "dependency-specifier
// rewriting: specifier -> generated ModuleId; missing specifier -> throwing
// stub").
func requireExpr(res Resolution) string {
	switch res.Kind {
	case ResolvedExternal:
		return fmt.Sprintf("%s.x(%s)", runtimeSymbol, strconv.Quote(res.Request))
	case ResolvedMissing:
		return fmt.Sprintf("%s.missing(%s)", runtimeSymbol, strconv.Quote(res.Reason))
	default:
		return fmt.Sprintf("%s(%s)", runtimeSymbol, strconv.Quote(res.ModuleID))
	}
}

// dependencyEdits produces the source edits for one dependency edge. When
// commonJS is false the module stays native ESM (it is part of a
// concatenation group, spec §4.6.2) and only the specifier text is rewritten
// to the resolved id, leaving import/export syntax untouched so the
// optimizer can still read sync-ESM edges directly off the AST shape.
func dependencyEdits(dep Dependency, res Resolution, commonJS bool) []edit {
	switch dep.Type.Kind {
	case ImportKind, ExportNamed, ExportAll:
		if !commonJS {
			return []edit{{start: dep.SpecStart, end: dep.SpecEnd, text: specifierReplacement(res)}}
		}
		return []edit{{start: dep.SpanStart, end: dep.SpanEnd, text: cjsEdgeReplacement(dep, res)}}

	case Require:
		return []edit{{start: dep.SpanStart, end: dep.SpanEnd, text: requireExpr(res)}}

	case DynamicImport:
		loadExpr := fmt.Sprintf("%s.e(%s).then(function() { return %s.n(%s); })",
			runtimeSymbol, strconv.Quote(moduleIDOrRequest(res)), runtimeSymbol, requireExpr(res))
		return []edit{{start: dep.SpanStart, end: dep.SpanEnd, text: loadExpr}}

	case Worker:
		return []edit{{start: dep.SpanStart, end: dep.SpanEnd, text: fmt.Sprintf("new Worker(%s.u(%s))", runtimeSymbol, strconv.Quote(moduleIDOrRequest(res)))}}

	case CSSImport:
		// Handled by transformCSS; JS transform never sees this kind.
		return nil

	default:
		return nil
	}
}

func moduleIDOrRequest(res Resolution) string {
	if res.Kind == ResolvedExternal {
		return res.Request
	}
	if res.Kind == ResolvedMissing {
		return res.Reason
	}
	return res.ModuleID
}

func specifierReplacement(res Resolution) string {
	switch res.Kind {
	case ResolvedExternal:
		return strconv.Quote(res.Request)
	case ResolvedMissing:
		return strconv.Quote(res.Reason)
	default:
		return strconv.Quote(res.ModuleID)
	}
}

// cjsEdgeReplacement compiles one ESM import/export-from statement into its
// __mako_require__-based CommonJS equivalent (spec §4.3 "CommonJS
// compilation"). The generated temp name is unique per ordinal so repeated
// dependencies in one module never collide.
func cjsEdgeReplacement(dep Dependency, res Resolution) string {
	tmp := fmt.Sprintf("_dep%d", dep.Ordinal)
	call := requireExpr(res)

	switch dep.Type.Kind {
	case ExportAll:
		return fmt.Sprintf("%s.a(exports, %s);", runtimeSymbol, call)

	case ExportNamed:
		var b strings.Builder
		fmt.Fprintf(&b, "var %s = %s;", tmp, call)
		for i, name := range dep.Type.NamedBindings {
			local := name
			if i < len(dep.Type.NamedLocals) {
				local = dep.Type.NamedLocals[i]
			}
			fmt.Fprintf(&b, " exports.%s = %s.%s;", local, tmp, name)
		}
		return b.String()

	case ImportKind:
		if dep.Type.Specifiers == 0 {
			// bare `import "x";` side-effect only.
			return call + ";"
		}

		var b strings.Builder
		needsTmp := dep.Type.Specifiers&SpecNamed != 0 && (dep.Type.Specifiers&(SpecDefault) != 0)
		switch {
		case dep.Type.Specifiers == SpecDefault:
			fmt.Fprintf(&b, "var %s = %s.i(%s);", dep.Type.DefaultLocal, runtimeSymbol, call)
		case dep.Type.Specifiers == SpecNamespace:
			fmt.Fprintf(&b, "var %s = %s.n(%s);", dep.Type.NamespaceLocal, runtimeSymbol, call)
		case dep.Type.Specifiers == SpecNamed:
			fmt.Fprintf(&b, "var %s = %s;", tmp, call)
			for i, name := range dep.Type.NamedBindings {
				local := name
				if i < len(dep.Type.NamedLocals) {
					local = dep.Type.NamedLocals[i]
				}
				fmt.Fprintf(&b, " var %s = %s.%s;", local, tmp, name)
			}
		default:
			// default + named together: `import Foo, { a, b as c } from 'x'`
			if needsTmp {
				fmt.Fprintf(&b, "var %s = %s;", tmp, call)
				fmt.Fprintf(&b, " var %s = %s.i(%s);", dep.Type.DefaultLocal, runtimeSymbol, tmp)
				for i, name := range dep.Type.NamedBindings {
					local := name
					if i < len(dep.Type.NamedLocals) {
						local = dep.Type.NamedLocals[i]
					}
					fmt.Fprintf(&b, " var %s = %s.%s;", local, tmp, name)
				}
			}
		}
		return b.String()

	default:
		return call + ";"
	}
}

// applyEdits splices the accumulated byte-range replacements into src.
// Edits must not overlap; they are applied back-to-front so earlier offsets
// stay valid as later (higher-offset) edits are spliced in first.
func applyEdits(src []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return src
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

// wrapAsyncModule wraps a module body whose is_async flag is set (top-level
// await, or a transitive sync-ESM import of an async module) in the
// runtime's async-module entry point (spec §4.3 "async-module wrapping").
func wrapAsyncModule(src []byte) []byte {
	var b strings.Builder
	b.WriteString(runtimeSymbol)
	b.WriteString("._async(module, async function (")
	b.WriteString(runtimeSymbol)
	b.WriteString(") {\n")
	b.Write(src)
	b.WriteString("\n});\n")
	return []byte(b.String())
}
