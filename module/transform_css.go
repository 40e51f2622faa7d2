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
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"
)

// TransformCSSInput mirrors TransformInput for the CSS dialect.
type TransformCSSInput struct {
	Info        *Info
	AST         *AST
	Resolutions []Resolution // indexed by Dependency.Ordinal, @import edges only
	AssetRewrite func(url string) (string, bool) // resolves a CSS url(...) reference to its emitted name
}

// TransformCSS applies spec §4.3's CSS transform list: hoist @import rules
// ahead of non-import rules, rewrite specifiers and url()/asset references
// to their generated forms, and merge duplicated module rules (identical
// selector/declaration-block text emitted more than once by concatenated
// sources).
func TransformCSS(in TransformCSSInput) []byte {
	if in.AST == nil || in.AST.Kind != ASTCSS {
		return in.AST.Source
	}

	var edits []edit
	for _, dep := range in.Info.Dependencies {
		if dep.Type.Kind != CSSImport {
			continue
		}
		res := resolutionFor(in.Resolutions, dep.Ordinal)
		edits = append(edits, edit{start: dep.SpecStart, end: dep.SpecEnd, text: strconv.Quote(moduleIDOrRequest(res))})
	}

	if in.AssetRewrite != nil {
		edits = append(edits, urlEdits(in.AST, in.AssetRewrite)...)
	}

	out := applyEdits(in.AST.Source, edits)
	out = hoistImports(out)
	out = mergeDuplicateRules(out)
	return out
}

// urlEdits rewrites every url(...) reference inside a declaration value
// through AssetRewrite, skipping ones that already carry a data: URI or a
// full http(s) origin.
func urlEdits(ast *AST, rewrite func(string) (string, bool)) []edit {
	var edits []edit
	var walk func(*ts.Node)
	walk = func(n *ts.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "call_expression" {
			fn := n.ChildByFieldName("function")
			if fn == nil {
				fn = firstNamedChildOfKind(n, "function_name")
			}
			if fn != nil && fn.Utf8Text(ast.Source) == "url" {
				args := n.ChildByFieldName("arguments")
				if args == nil {
					args = firstNamedChildOfKind(n, "arguments")
				}
				if args != nil {
					if arg := firstArg(args); arg != nil {
						raw := unquote(arg.Utf8Text(ast.Source))
						if !isSkippableURL(raw) {
							if rewritten, ok := rewrite(raw); ok {
								edits = append(edits, edit{start: int(arg.StartByte()), end: int(arg.EndByte()), text: strconv.Quote(rewritten)})
							}
						}
					}
				}
			}
		}
		count := int(n.ChildCount())
		for i := 0; i < count; i++ {
			walk(n.Child(uint(i)))
		}
	}
	walk(ast.Tree.RootNode())
	return edits
}

func isSkippableURL(raw string) bool {
	return strings.HasPrefix(raw, "data:") || strings.HasPrefix(raw, "http://") ||
		strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "//")
}

// hoistImports moves every @import statement line ahead of any non-import,
// non-comment content, preserving the relative order of the imports
// themselves and of the remaining rules (spec §4.3 "hoist @import rules
// ahead of non-import rules").
func hoistImports(src []byte) []byte {
	lines := strings.Split(string(src), "\n")
	var imports, rest []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "@import") {
			imports = append(imports, line)
		} else {
			rest = append(rest, line)
		}
	}
	if len(imports) == 0 {
		return src
	}
	out := append(append([]string{}, imports...), rest...)
	return []byte(strings.Join(out, "\n"))
}

// mergeDuplicateRules drops a later top-level rule block whose full text
// (selector plus declaration body) byte-for-byte repeats an earlier one —
// the case concatenation produces when two modules emit the same shared
// base-style rule.
func mergeDuplicateRules(src []byte) []byte {
	blocks := splitTopLevelRules(string(src))
	seen := make(map[string]bool, len(blocks))
	var out strings.Builder
	for _, b := range blocks {
		trimmed := strings.TrimSpace(b)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "@import") {
			out.WriteString(b)
			continue
		}
		if seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out.WriteString(b)
	}
	return []byte(out.String())
}

// splitTopLevelRules splits CSS source into consecutive rule blocks on
// brace depth, keeping each block's trailing newline so reassembly is
// lossless for non-duplicate content.
func splitTopLevelRules(src string) []string {
	var blocks []string
	depth := 0
	start := 0
	for i, r := range src {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				blocks = append(blocks, src[start:i+1]+"\n")
				start = i + 1
				for start < len(src) && (src[start] == '\n' || src[start] == '\r') {
					start++
				}
			}
		}
	}
	if start < len(src) {
		blocks = append(blocks, src[start:])
	}
	return blocks
}
