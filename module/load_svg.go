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
	"github.com/microcosm-cc/bluemonday"
)

// svgSanitizer strips <script>, event-handler attributes, and foreignObject
// payloads from an SVG before it is embedded as source text in a JS module
// — an SVG asset is untrusted input the same way an HTML fragment is.
var svgSanitizer = newSVGPolicy()

func newSVGPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("svg", "path", "g", "circle", "rect", "line", "polygon", "polyline", "defs", "use", "title", "desc", "clipPath", "linearGradient", "stop")
	p.AllowAttrs("viewBox", "width", "height", "fill", "stroke", "stroke-width", "d", "cx", "cy", "r", "x", "y", "points", "transform", "id", "class").Globally()
	return p
}

// loadSVG produces a source-text stand-in for an SVGR-style component: a
// factory function returning the sanitized markup, plus an asset-URL
// fallback constant, matching spec §4.3's "SVGR to produce a React
// component plus asset-URL fallback". The core does not depend on React
// (out of scope, spec §1); the module exports `src` (the asset name), a
// `Component` factory, and that factory again as its default export.
func loadSVG(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	sanitized := svgSanitizer.SanitizeBytes(raw)
	assetName := sourcefile.AssetNameHash(raw)

	body := fmt.Sprintf(`export var src = %q;
export function Component(props) {
  var el = document.createElementNS("http://www.w3.org/2000/svg", "svg");
  el.innerHTML = %q;
  for (var k in (props || {})) { el.setAttribute(k, props[k]); }
  return el;
}
export default Component;
`, assetName+".svg", string(sanitized))

	content := sourcefile.Load(f, []byte(body))
	content.Kind = sourcefile.ContentJS
	content.IsJSX = true
	return content, nil
}
