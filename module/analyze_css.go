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

import ts "github.com/tree-sitter/go-tree-sitter"

// AnalyzeCSSDeps walks a parsed CSS AST for @import rules (spec §4.3 "CSS
// imports"). url(...) references inside declaration values are left to the
// CSS transform stage (spec §4.4), which rewrites them in place rather than
// resolving them as graph edges — an @import is the only CSS construct that
// pulls in another module.
func AnalyzeCSSDeps(ast *AST) AnalyzeResult {
	if ast == nil || ast.Kind != ASTCSS {
		return AnalyzeResult{}
	}
	w := &depWalker{src: ast.Source}
	w.walkCSS(ast.Tree.RootNode())
	return AnalyzeResult{Dependencies: w.deps}
}

func (w *depWalker) walkCSS(n *ts.Node) {
	if n == nil {
		return
	}
	if n.Kind() == "import_statement" {
		w.visitCSSImport(n)
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		w.walkCSS(n.Child(uint(i)))
	}
}

// visitCSSImport extracts the string or url(...) argument of an @import
// rule: `@import "foo.css";` or `@import url(foo.css);`.
func (w *depWalker) visitCSSImport(n *ts.Node) {
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(uint(i))
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "string_value":
			source := unquote(w.text(c))
			w.add(source, n, c, ResolveType{Kind: CSSImport})
			return
		case "call_expression":
			fn := c.ChildByFieldName("function")
			if fn == nil {
				fn = firstNamedChildOfKind(c, "function_name")
			}
			if fn == nil || w.text(fn) != "url" {
				continue
			}
			args := c.ChildByFieldName("arguments")
			if args == nil {
				args = firstNamedChildOfKind(c, "arguments")
			}
			if args == nil {
				continue
			}
			arg := firstArg(args)
			if arg == nil {
				continue
			}
			source := unquote(w.text(arg))
			w.add(source, n, arg, ResolveType{Kind: CSSImport})
			return
		}
	}
}
