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
	"bennypowers.dev/mako/module"
	ts "github.com/tree-sitter/go-tree-sitter"
)

// BuildStatementGraph walks a module's top-level statements, producing the
// per-statement defined/used identifier sets the shaking pass needs (spec
// §4.6.1 "Statement elimination"). Non-JS ASTs get an empty graph — CSS and
// asset modules are never ESM and are treated conservatively as
// side-effectful by the caller.
func BuildStatementGraph(ast *module.AST) *StatementGraph {
	g := &StatementGraph{}
	if ast == nil || ast.Kind != module.ASTJS || ast.Tree == nil {
		return g
	}
	root := ast.Tree.RootNode()
	count := int(root.ChildCount())
	for i := 0; i < count; i++ {
		n := root.Child(uint(i))
		if n == nil || !n.IsNamed() {
			continue
		}
		stmt := buildStatement(n, ast.Source, i)
		g.Statements = append(g.Statements, stmt)
	}
	linkRequires(g)
	return g
}

func buildStatement(n *ts.Node, src []byte, index int) *Statement {
	s := &Statement{
		Index:     index,
		SpanStart: int(n.StartByte()),
		SpanEnd:   int(n.EndByte()),
		Requires:  make(map[string][]string),
	}

	switch n.Kind() {
	case "import_statement":
		s.Kind = ImportDecl
		s.Import = parseImportStatement(n, src)
		if s.Import != nil {
			if s.Import.Default != "" {
				s.Defined = append(s.Defined, s.Import.Default)
			}
			if s.Import.Namespace != "" {
				s.Defined = append(s.Defined, s.Import.Namespace)
			}
			s.Defined = append(s.Defined, s.Import.NamedLocals...)
		}
		// A side-effect-only import (`import './x.css'`) has no bindings but
		// still must run; treat as self-executed when nothing is bound.
		s.SelfExecuted = len(s.Defined) == 0

	case "export_statement":
		s.Export = parseExportStatement(n, src)
		if hasStarChild(n) && exportSourceOf(n, src) != "" {
			s.Kind = ExportAllDecl
			s.SelfExecuted = false
		} else {
			s.Kind = ExportDecl
			if s.Export != nil {
				s.Defined = append(s.Defined, s.Export.Locals...)
			}
			// The used-set is collected below over the whole node. The
			// statement is self-executed when its inner declaration is
			// (`export const x = sideEffect()`); export lists, re-exports and
			// `export default <expr>` are not marked self-executed.
			if decl := n.ChildByFieldName("declaration"); decl != nil {
				s.SelfExecuted = isSelfExecuting(decl)
			}
		}
		collectIdentifiers(n, src, &s.Used, s.Defined)

	default:
		collectIdentifiers(n, src, &s.Used, nil)
		s.Defined = definedByDeclaration(n, src)
		s.SelfExecuted = isSelfExecuting(n)
	}

	if s.Kind == ImportDecl || s.Kind == ExportDecl || s.Kind == ExportAllDecl {
		// still collect Used over the whole statement (e.g. `export const x =
		// f(y)` uses y) excluding identifiers it itself defines.
		if len(s.Used) == 0 {
			collectIdentifiers(n, src, &s.Used, s.Defined)
		}
	}

	return s
}

// linkRequires computes, for every identifier a statement defines, the set
// of other top-level-defined identifiers its definition transitively
// requires — i.e. the edges of the StatementGraph proper (spec §3: "map
// from defined identifier to the set of identifiers it transitively
// requires").
func linkRequires(g *StatementGraph) {
	definedBy := make(map[string]*Statement)
	for _, s := range g.Statements {
		for _, d := range s.Defined {
			definedBy[d] = s
		}
	}
	for _, s := range g.Statements {
		for _, d := range s.Defined {
			seen := map[string]bool{d: true}
			var need []string
			var walk func(names []string)
			walk = func(names []string) {
				for _, u := range names {
					if seen[u] {
						continue
					}
					if _, ok := definedBy[u]; !ok {
						continue
					}
					seen[u] = true
					need = append(need, u)
					walk(definedBy[u].Used)
				}
			}
			walk(s.Used)
			s.Requires[d] = need
		}
	}
}

func hasStarChild(n *ts.Node) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c != nil && c.Kind() == "*" {
			return true
		}
	}
	return false
}

func exportSourceOf(n *ts.Node, src []byte) string {
	if sourceNode := n.ChildByFieldName("source"); sourceNode != nil {
		return unquote(sourceNode.Utf8Text(src))
	}
	return ""
}

func parseImportStatement(n *ts.Node, src []byte) *ImportInfo {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return nil
	}
	info := &ImportInfo{Source: unquote(sourceNode.Utf8Text(src))}
	clause := childOfKind(n, "import_clause")
	if clause == nil {
		return info
	}
	count := int(clause.ChildCount())
	for i := 0; i < count; i++ {
		c := clause.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier":
			info.Default = c.Utf8Text(src)
		case "namespace_import":
			if id := lastIdentifierChild(c); id != nil {
				info.Namespace = id.Utf8Text(src)
			}
		case "named_imports":
			names, locals := namedBindings(c, src)
			info.Named = append(info.Named, names...)
			info.NamedLocals = append(info.NamedLocals, locals...)
		}
	}
	return info
}

func parseExportStatement(n *ts.Node, src []byte) *ExportInfo {
	info := &ExportInfo{}
	if sourceNode := n.ChildByFieldName("source"); sourceNode != nil {
		info.Source = unquote(sourceNode.Utf8Text(src))
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "export_clause":
			names, locals := namedBindings(c, src)
			info.Names = append(info.Names, names...)
			info.Locals = append(info.Locals, locals...)
		case "default":
			info.Names = append(info.Names, "default")
			// the default value's own identifier, if any, is the Nth sibling;
			// handled generically below via the declaration/value node.
		case "lexical_declaration", "variable_declaration":
			names := definedByDeclaration(c, src)
			info.Names = append(info.Names, names...)
			info.Locals = append(info.Locals, names...)
			info.HasDeclaration = true
		case "function_declaration", "class_declaration", "generator_function_declaration":
			if name := c.ChildByFieldName("name"); name != nil {
				local := name.Utf8Text(src)
				if hasChildKind(n, "default") {
					info.Names = append(info.Names, "default")
				} else {
					info.Names = append(info.Names, local)
				}
				info.Locals = append(info.Locals, local)
			}
			info.HasDeclaration = true
		case "identifier":
			// `export default someIdentifier;`
			if hasChildKind(n, "default") {
				info.Locals = append(info.Locals, c.Utf8Text(src))
			}
		}
	}
	return info
}

func hasChildKind(n *ts.Node, kind string) bool {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c != nil && c.Kind() == kind {
			return true
		}
	}
	return false
}

func childOfKind(n *ts.Node, kind string) *ts.Node {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func lastIdentifierChild(n *ts.Node) *ts.Node {
	var last *ts.Node
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c != nil && c.Kind() == "identifier" {
			last = c
		}
	}
	return last
}

func namedBindings(n *ts.Node, src []byte) (names, locals []string) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "import_specifier", "export_specifier":
			name := c.ChildByFieldName("name")
			if name == nil {
				continue
			}
			names = append(names, name.Utf8Text(src))
			if alias := c.ChildByFieldName("alias"); alias != nil {
				locals = append(locals, alias.Utf8Text(src))
			} else {
				locals = append(locals, name.Utf8Text(src))
			}
		}
	}
	return names, locals
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '\'', '"', '`':
			return s[1 : len(s)-1]
		}
	}
	return s
}

// definedByDeclaration returns the top-level identifiers bound by a
// variable/lexical/function/class declaration.
func definedByDeclaration(n *ts.Node, src []byte) []string {
	switch n.Kind() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			c := n.Child(uint(i))
			if c == nil || c.Kind() != "variable_declarator" {
				continue
			}
			if name := c.ChildByFieldName("name"); name != nil {
				names = append(names, collectPatternIdentifiers(name, src)...)
			}
		}
		return names
	case "function_declaration", "class_declaration", "generator_function_declaration":
		if name := n.ChildByFieldName("name"); name != nil {
			return []string{name.Utf8Text(src)}
		}
	}
	return nil
}

// collectPatternIdentifiers flattens simple identifiers, array and object
// destructuring patterns into the set of bound names.
func collectPatternIdentifiers(n *ts.Node, src []byte) []string {
	if n == nil {
		return nil
	}
	if n.Kind() == "identifier" {
		return []string{n.Utf8Text(src)}
	}
	var out []string
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		out = append(out, collectPatternIdentifiers(n.Child(uint(i)), src)...)
	}
	return out
}

// isSelfExecuting reports whether a top-level statement performs an
// observable effect on its own, independent of whether anything it defines
// is used (spec §4.6.1 "Side-effects propagation"). Pure declarations
// (function/class/type-only) are not; everything else conservatively is.
func isSelfExecuting(n *ts.Node) bool {
	switch n.Kind() {
	case "function_declaration", "class_declaration", "generator_function_declaration",
		"interface_declaration", "type_alias_declaration", "ambient_declaration":
		return false
	case "lexical_declaration", "variable_declaration":
		// `const x = f()` is self-executing only if some initializer isn't a
		// side-effect-free literal/function/class expression; conservatively
		// treat any declaration with a call expression in its initializer as
		// self-executing.
		return declarationHasCall(n)
	case "comment", "empty_statement":
		return false
	default:
		return true
	}
}

func declarationHasCall(n *ts.Node) bool {
	if n.Kind() == "call_expression" || n.Kind() == "new_expression" {
		return true
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		if declarationHasCall(n.Child(uint(i))) {
			return true
		}
	}
	return false
}

// collectIdentifiers scans every identifier reference under n, skipping
// ones that are themselves binding positions already captured in skip, and
// appends them to *out. This is a syntactic over-approximation of "used
// identifiers" (spec §3 StatementGraph "used identifiers") — it may count a
// shadowed local as a module-scope use, which only makes shaking more
// conservative, never less sound.
func collectIdentifiers(n *ts.Node, src []byte, out *[]string, skip []string) {
	if n == nil {
		return
	}
	if n.Kind() == "identifier" {
		name := n.Utf8Text(src)
		if !containsStr(skip, name) {
			*out = append(*out, name)
		}
		return
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		collectIdentifiers(n.Child(uint(i)), src, out, skip)
	}
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
