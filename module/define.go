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
	ts "github.com/tree-sitter/go-tree-sitter"
)

// defineEdits implements spec §4.3's "Env/define replacement": bare
// identifiers (A), dot-chains (process.env.NODE_ENV), computed-member
// strings (A["B"]), and numeric indices are substituted with configured
// literal text, except where the identifier resolves to a local binding.
//
// Local-binding detection is a conservative over-approximation of
// unresolved-mark analysis: any name bound anywhere in the file by a
// declaration, parameter, or import is treated as local for the whole file
// rather than per-scope, so a defined key shadowed in one inner scope
// suppresses substitution everywhere. That trades a few missed
// substitutions for never mis-substituting a real local variable.
func defineEdits(ast *AST, defines map[string]DefineValue) []edit {
	if ast == nil || ast.Kind != ASTJS || len(defines) == 0 {
		return nil
	}
	bound := collectBoundNames(ast.Tree.RootNode(), ast.Source)

	var edits []edit
	walkForDefines(ast.Tree.RootNode(), ast.Source, defines, bound, &edits)
	return edits
}

func collectBoundNames(n *ts.Node, src []byte) map[string]bool {
	bound := make(map[string]bool)
	var walk func(*ts.Node)
	walk = func(n *ts.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "identifier" && isBindingPosition(n) {
			bound[n.Utf8Text(src)] = true
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(uint(i)))
		}
	}
	walk(n)
	return bound
}

// isBindingPosition reports whether an identifier node sits in a position
// that introduces a new local binding (declarator name, parameter,
// function/class name, import specifier) rather than a use.
func isBindingPosition(n *ts.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Kind() {
	case "variable_declarator":
		return p.ChildByFieldName("name") != nil && nodesEqual(p.ChildByFieldName("name"), n)
	case "required_parameter", "optional_parameter":
		return true
	case "function_declaration", "function_expression", "generator_function_declaration",
		"class_declaration", "method_definition":
		return p.ChildByFieldName("name") != nil && nodesEqual(p.ChildByFieldName("name"), n)
	case "import_clause", "namespace_import", "import_specifier", "catch_clause":
		return true
	default:
		if p.Kind() == "identifier" {
			return false
		}
		// A bare identifier used directly as a function parameter (arrow
		// function with a single unparenthesized param) is its own node,
		// not wrapped in required_parameter.
		if p.Kind() == "arrow_function" && p.ChildByFieldName("parameter") != nil && nodesEqual(p.ChildByFieldName("parameter"), n) {
			return true
		}
		return false
	}
}

func nodesEqual(a, b *ts.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func walkForDefines(n *ts.Node, src []byte, defines map[string]DefineValue, bound map[string]bool, edits *[]edit) {
	if n == nil {
		return
	}

	switch n.Kind() {
	case "member_expression":
		if chain, ok := dotChain(n, src); ok {
			if v, match := defines[chain]; match {
				*edits = append(*edits, edit{start: int(n.StartByte()), end: int(n.EndByte()), text: v.Raw})
				return // don't also descend into the matched subtree
			}
		}
	case "subscript_expression":
		if chain, ok := computedChain(n, src); ok {
			if v, match := defines[chain]; match {
				*edits = append(*edits, edit{start: int(n.StartByte()), end: int(n.EndByte()), text: v.Raw})
				return
			}
		}
	case "identifier":
		name := n.Utf8Text(src)
		if !bound[name] && !isBindingPosition(n) {
			if v, match := defines[name]; match {
				*edits = append(*edits, edit{start: int(n.StartByte()), end: int(n.EndByte()), text: v.Raw})
				return
			}
		}
	}

	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		walkForDefines(n.Child(uint(i)), src, defines, bound, edits)
	}
}

// dotChain renders a.b.c-shaped member_expression chains as "a.b.c", or
// reports ok=false if any segment isn't a plain property identifier.
func dotChain(n *ts.Node, src []byte) (string, bool) {
	var parts []string
	cur := n
	for cur != nil && cur.Kind() == "member_expression" {
		prop := cur.ChildByFieldName("property")
		if prop == nil || prop.Kind() != "property_identifier" {
			return "", false
		}
		parts = append([]string{prop.Utf8Text(src)}, parts...)
		cur = cur.ChildByFieldName("object")
	}
	if cur == nil || cur.Kind() != "identifier" {
		return "", false
	}
	parts = append([]string{cur.Utf8Text(src)}, parts...)
	return joinDots(parts), true
}

// computedChain renders a["b"]["c"]-shaped subscript_expression chains the
// same way dotChain does, so `A["B"]` matches the same define key as `A.B`.
func computedChain(n *ts.Node, src []byte) (string, bool) {
	var parts []string
	cur := n
	for cur != nil && cur.Kind() == "subscript_expression" {
		idx := cur.ChildByFieldName("index")
		if idx == nil || idx.Kind() != "string" {
			return "", false
		}
		parts = append([]string{unquote(idx.Utf8Text(src))}, parts...)
		cur = cur.ChildByFieldName("object")
	}
	switch {
	case cur != nil && cur.Kind() == "identifier":
		parts = append([]string{cur.Utf8Text(src)}, parts...)
	case cur != nil && cur.Kind() == "member_expression":
		chain, ok := dotChain(cur, src)
		if !ok {
			return "", false
		}
		parts = append([]string{chain}, parts...)
	default:
		return "", false
	}
	return joinDots(parts), true
}

func joinDots(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}
