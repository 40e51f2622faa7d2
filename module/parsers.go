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
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsCSS "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Parser pools mirror the teacher's sync.Pool-per-grammar idiom
// (queries/queries.go), trimmed to the two grammars the bundler's parse
// task actually dispatches to: TSX (a superset grammar that also parses
// plain JS/TS source fine) and CSS.
var languages = struct {
	tsx *ts.Language
	css *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTSX()),
	ts.NewLanguage(tsCSS.Language()),
}

var tsxParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(languages.tsx); err != nil {
			panic(fmt.Sprintf("module: failed to set TSX language: %v", err))
		}
		return parser
	},
}

var cssParserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(languages.css); err != nil {
			panic(fmt.Sprintf("module: failed to set CSS language: %v", err))
		}
		return parser
	},
}

// RetrieveJSParser returns a pooled TSX-dialect parser, used for every
// JS/JSX/TS/TSX/CJS/MJS source (the TSX grammar is a strict superset).
// Always pair with PutJSParser.
func RetrieveJSParser() *ts.Parser {
	return tsxParserPool.Get().(*ts.Parser)
}

func PutJSParser(p *ts.Parser) {
	p.Reset()
	tsxParserPool.Put(p)
}

// RetrieveCSSParser returns a pooled CSS parser. Always pair with
// PutCSSParser.
func RetrieveCSSParser() *ts.Parser {
	return cssParserPool.Get().(*ts.Parser)
}

func PutCSSParser(p *ts.Parser) {
	p.Reset()
	cssParserPool.Put(p)
}
