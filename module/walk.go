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

// WalkIdentifiers visits every `identifier` node in a JS AST, in document
// order, calling fn with its byte span and text. The optimize package's
// concatenation pass uses this to rename top-level bindings without
// duplicating a tree-sitter traversal for every group.
func WalkIdentifiers(ast *AST, fn func(start, end int, name string)) {
	if ast == nil || ast.Kind != ASTJS || ast.Tree == nil {
		return
	}
	var walk func(n *ts.Node)
	walk = func(n *ts.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "identifier" {
			fn(int(n.StartByte()), int(n.EndByte()), n.Utf8Text(ast.Source))
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(uint(i)))
		}
	}
	walk(ast.Tree.RootNode())
}
