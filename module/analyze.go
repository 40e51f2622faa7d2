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
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// Span is a byte range into an AST's Source.
type Span struct {
	Start int
	End   int
}

// AnalyzeResult is the ordered dependency list plus the import.meta.url
// occurrences the transform stage needs to rewrite (spec §4.3 "analyze_deps").
type AnalyzeResult struct {
	Dependencies      []Dependency
	ImportMetaURLSpans []Span
}

// AnalyzeDeps walks a parsed AST, producing an ordered list of dependencies
// with their ResolveType. CSS dependencies are discovered by
// AnalyzeCSSDeps, not here.
func AnalyzeDeps(ast *AST) AnalyzeResult {
	if ast == nil || ast.Kind != ASTJS {
		return AnalyzeResult{}
	}
	w := &depWalker{src: ast.Source}
	w.walk(ast.Tree.RootNode())
	return AnalyzeResult{Dependencies: w.deps, ImportMetaURLSpans: w.importMetaURLSpans}
}

type depWalker struct {
	src                []byte
	deps               []Dependency
	ordinal            int
	importMetaURLSpans []Span
}

func (w *depWalker) text(n *ts.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(w.src)
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// add records one dependency edge. wholeNode spans the entire construct
// (used for diagnostics); specNode spans just the specifier string literal
// (used by the transform stage to splice in a resolved module id without
// disturbing surrounding binding syntax).
func (w *depWalker) add(source string, wholeNode, specNode *ts.Node, rt ResolveType) {
	d := Dependency{
		SourceText: source,
		Type:       rt,
		Ordinal:    w.ordinal,
	}
	if wholeNode != nil {
		d.SpanStart = int(wholeNode.StartByte())
		d.SpanEnd = int(wholeNode.EndByte())
	}
	if specNode != nil {
		d.SpecStart = int(specNode.StartByte())
		d.SpecEnd = int(specNode.EndByte())
	}
	w.ordinal++
	w.deps = append(w.deps, d)
}

// walk recurses over every node and dispatches on its kind. ES module
// syntax only allows import_statement at the top level, so those are found
// there; require()/import()/new Worker()/import.meta.url are found at any
// expression position.
func (w *depWalker) walk(n *ts.Node) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "import_statement":
		w.visitImportStatement(n)
	case "export_statement":
		w.visitExportStatement(n)
	case "call_expression":
		w.visitCallExpression(n)
	case "new_expression":
		w.visitNewExpression(n)
	case "member_expression":
		w.visitMemberExpression(n)
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		w.walk(n.Child(uint(i)))
	}
}

func (w *depWalker) visitImportStatement(n *ts.Node) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	source := unquote(w.text(sourceNode))

	spec := ImportSpecifierKind(0)
	var names []string

	var defaultLocal, namespaceLocal string
	var locals []string

	clause := firstNamedChildOfKind(n, "import_clause")
	if clause != nil {
		count := int(clause.ChildCount())
		for i := 0; i < count; i++ {
			c := clause.Child(uint(i))
			if c == nil {
				continue
			}
			switch c.Kind() {
			case "identifier":
				spec |= SpecDefault
				defaultLocal = w.text(c)
			case "namespace_import":
				spec |= SpecNamespace
				if id := lastNamedChild(c); id != nil {
					namespaceLocal = w.text(id)
				}
			case "named_imports":
				spec |= SpecNamed
				imported, local := namedImportBindings(c, w.src)
				names = append(names, imported...)
				locals = append(locals, local...)
			}
		}
	}

	w.add(source, n, sourceNode, ResolveType{
		Kind:           ImportKind,
		Specifiers:     spec,
		NamedBindings:  names,
		NamedLocals:    locals,
		DefaultLocal:   defaultLocal,
		NamespaceLocal: namespaceLocal,
	})
}

func lastNamedChild(n *ts.Node) *ts.Node {
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

func (w *depWalker) visitExportStatement(n *ts.Node) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return // local export, not a dependency edge
	}
	source := unquote(w.text(sourceNode))

	// export * from 'x'  /  export * as ns from 'x'  /  export { a, b } from 'x'
	hasStar := false
	var names, locals []string
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "*":
			hasStar = true
		case "export_clause":
			exported, local := namedImportBindings(c, w.src)
			names = append(names, exported...)
			locals = append(locals, local...)
		}
	}

	if hasStar {
		w.add(source, n, sourceNode, ResolveType{Kind: ExportAll})
		return
	}
	w.add(source, n, sourceNode, ResolveType{Kind: ExportNamed, Specifiers: SpecNamed, NamedBindings: names, NamedLocals: locals})
}

func namedImportNames(n *ts.Node, src []byte) []string {
	names, _ := namedImportBindings(n, src)
	return names
}

// namedImportBindings returns, per specifier, the name on the module side
// (imported or exported) and the local binding alias ("as" target), which
// are identical when no alias is present.
func namedImportBindings(n *ts.Node, src []byte) (names, locals []string) {
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

func firstNamedChildOfKind(n *ts.Node, kind string) *ts.Node {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func (w *depWalker) visitCallExpression(n *ts.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	args := n.ChildByFieldName("arguments")

	switch {
	case fn.Kind() == "import":
		// Dynamic import() expression.
		if args == nil {
			return
		}
		first := firstArg(args)
		if first == nil || first.Kind() != "string" {
			return // non-literal specifier: left for the resolver's Missing path
		}
		source := unquote(w.text(first))
		w.add(source, n, first, ResolveType{Kind: DynamicImport, DynamicOpts: magicComments(w.text(n))})

	case fn.Kind() == "identifier" && w.text(fn) == "require":
		if args == nil {
			return
		}
		first := firstArg(args)
		if first == nil || first.Kind() != "string" {
			return
		}
		source := unquote(w.text(first))
		w.add(source, n, first, ResolveType{Kind: Require})
	}
}

func (w *depWalker) visitNewExpression(n *ts.Node) {
	ctor := n.ChildByFieldName("constructor")
	if ctor == nil || ctor.Kind() != "identifier" || w.text(ctor) != "Worker" {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	first := firstArg(args)
	if first == nil || first.Kind() != "new_expression" {
		return
	}
	innerCtor := first.ChildByFieldName("constructor")
	if innerCtor == nil || w.text(innerCtor) != "URL" {
		return
	}
	innerArgs := first.ChildByFieldName("arguments")
	if innerArgs == nil {
		return
	}
	urlArg := firstArg(innerArgs)
	if urlArg == nil || urlArg.Kind() != "string" {
		return
	}
	source := unquote(w.text(urlArg))
	w.add(source, n, urlArg, ResolveType{Kind: Worker})
}

func (w *depWalker) visitMemberExpression(n *ts.Node) {
	text := w.text(n)
	if strings.HasPrefix(text, "import.meta.url") {
		w.importMetaURLSpans = append(w.importMetaURLSpans, Span{Start: int(n.StartByte()), End: int(n.EndByte())})
	}
}

func firstArg(args *ts.Node) *ts.Node {
	count := int(args.ChildCount())
	for i := 0; i < count; i++ {
		c := args.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "(", ")", ",", "comment":
			continue
		default:
			return c
		}
	}
	return nil
}

// magicComments parses webpack/mako-style `/* webpackChunkName: "x" */`
// magic comments out of a dynamic import call's raw text.
func magicComments(raw string) map[string]string {
	out := make(map[string]string)
	for _, marker := range []string{"webpackChunkName", "chunkName"} {
		idx := strings.Index(raw, marker)
		if idx < 0 {
			continue
		}
		rest := raw[idx+len(marker):]
		colon := strings.IndexByte(rest, ':')
		if colon < 0 {
			continue
		}
		rest = strings.TrimSpace(rest[colon+1:])
		end := strings.IndexAny(rest, "*\"'")
		q := strings.IndexAny(rest, "\"'")
		if q < 0 {
			continue
		}
		rest = rest[q+1:]
		if end = strings.IndexAny(rest, "\"'"); end >= 0 {
			out["chunkName"] = rest[:end]
		}
	}
	return out
}
