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

	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/sourcefile"
	ts "github.com/tree-sitter/go-tree-sitter"
)

// AST wraps a parsed tree-sitter tree together with the source bytes it was
// parsed from (nodes are byte-range references into Source). There is no
// separate side table of comments: tree-sitter keeps comment nodes in the
// tree itself.
type AST struct {
	Kind   ASTKind
	Tree   *ts.Tree
	Source []byte
}

// Close releases the underlying tree-sitter tree.
func (a *AST) Close() {
	if a != nil && a.Tree != nil {
		a.Tree.Close()
	}
}

// Parse parses Content into an AST per spec §4.3 "parse". CSS content gets
// the CSS grammar; everything else dispatched to ContentJS gets the
// TSX-dialect grammar (a strict superset of JS/TS/JSX), matching the
// teacher's single shared TypeScript parser for analysis across dialects.
func Parse(path string, c sourcefile.Content) (*AST, *diag.Diagnostic) {
	switch c.Kind {
	case sourcefile.ContentCSS:
		parser := RetrieveCSSParser()
		defer PutCSSParser(parser)
		tree := parser.Parse(c.Bytes, nil)
		if tree == nil {
			d := parseFailure(path, c.Bytes)
			return nil, &d
		}
		return &AST{Kind: ASTCSS, Tree: tree, Source: c.Bytes}, nil

	case sourcefile.ContentJS:
		parser := RetrieveJSParser()
		defer PutJSParser(parser)
		tree := parser.Parse(c.Bytes, nil)
		if tree == nil {
			d := parseFailure(path, c.Bytes)
			return nil, &d
		}
		return &AST{Kind: ASTJS, Tree: tree, Source: c.Bytes}, nil

	default:
		return &AST{Kind: ASTNone, Source: c.Bytes}, nil
	}
}

func parseFailure(path string, src []byte) diag.Diagnostic {
	reason := fmt.Sprintf("failed to parse %d bytes", len(src))
	if len(src) == 0 {
		reason = "empty file"
	}
	return diag.Diagnostic{
		Path:     path,
		Severity: diag.Error,
		Kind:     diag.Parse,
		Reason:   reason,
	}
}
