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
	"bytes"
	"fmt"

	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/sourcefile"
	"github.com/yuin/goldmark"
)

// loadMarkdown compiles MD/MDX source to HTML with goldmark, then wraps it
// as a JSX-producing component module (spec §4.3: "MD/MDX → compiled to
// JSX"). MDX's embedded JSX expressions are not evaluated — they are
// emitted verbatim into the compiled body's string template, matching how
// the teacher treats embedded expressions as opaque passthrough text in
// its own markdown rendering paths (designtokens, docs generation).
func loadMarkdown(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	var buf bytes.Buffer
	if err := goldmark.Convert(raw, &buf); err != nil {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: "markdown render failed: " + err.Error()}
		return sourcefile.Content{}, &d
	}

	body := fmt.Sprintf(`export function Component() {
  var el = document.createElement("div");
  el.innerHTML = %q;
  return el;
}
export default Component;
`, buf.String())

	content := sourcefile.Load(f, []byte(body))
	content.Kind = sourcefile.ContentJS
	content.IsJSX = true
	return content, nil
}
