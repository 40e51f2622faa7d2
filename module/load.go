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
	"encoding/json"
	"fmt"

	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/sourcefile"
	"gopkg.in/yaml.v3"
)

// UnsupportedExtError is returned by Load for a preprocessor extension the
// core does not ship a transform for (spec §4.3: "sass/scss/stylus fail
// with UnsupportedExtName").
type UnsupportedExtError struct{ Ext string }

func (e *UnsupportedExtError) Error() string {
	return fmt.Sprintf("UnsupportedExtName: %s is not supported without a loader plugin", e.Ext)
}

var unsupportedPreprocessors = map[string]bool{
	".sass": true, ".scss": true, ".styl": true, ".stylus": true,
}

// VirtualInlineCSSRuntime is the reserved virtual module that resolves to a
// built-in DOM style-injection helper (spec §4.3).
const VirtualInlineCSSRuntime = "virtual:inline_css:runtime"

const inlineCSSRuntimeSource = `export function __mako_inject_css__(id, css) {
  if (typeof document === "undefined") return;
  var existing = document.getElementById(id);
  if (existing) { existing.textContent = css; return; }
  var style = document.createElement("style");
  style.id = id;
  style.textContent = css;
  document.head.appendChild(style);
}
`

// Load reads raw bytes (already fetched by the caller's filesystem task)
// and produces the Content the parser dispatches on, applying every
// extension-specific transcoding named in spec §4.3's load table.
func Load(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	if f.AbsPath == VirtualInlineCSSRuntime {
		return sourcefile.Load(f, []byte(inlineCSSRuntimeSource)), nil
	}

	if unsupportedPreprocessors[f.Ext] {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: (&UnsupportedExtError{Ext: f.Ext}).Error()}
		return sourcefile.Content{}, &d
	}

	switch f.Ext {
	case ".json", ".json5":
		return loadJSONLike(f, raw)
	case ".yaml", ".yml":
		return loadYAML(f, raw)
	case ".toml":
		return loadTOML(f, raw)
	case ".xml":
		return loadXML(f, raw)
	case ".wasm":
		return loadWASM(f, raw)
	case ".svg":
		return loadSVG(f, raw)
	case ".md", ".mdx":
		return loadMarkdown(f, raw)
	default:
		if f.HasQuery("raw") {
			return loadRaw(f, raw)
		}
		if f.Ext == "" || !isKnownCodeExt(f.Ext) {
			return loadAsset(f, raw)
		}
		return sourcefile.Load(f, raw), nil
	}
}

func isKnownCodeExt(ext string) bool {
	switch ext {
	case ".js", ".cjs", ".mjs", ".ts", ".mts", ".cts", ".jsx", ".tsx", ".css":
		return true
	default:
		return false
	}
}

func loadJSONLike(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	var v any
	if err := json.Unmarshal(stripJSON5Comments(raw), &v); err != nil {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: "invalid JSON: " + err.Error()}
		return sourcefile.Content{}, &d
	}
	return wrapModuleExports(f, v), nil
}

// stripJSON5Comments is a minimal pass stripping // line comments so JSON5
// files with comments still decode via the stdlib JSON decoder. It does
// not implement full JSON5 (trailing commas, unquoted keys) — those require
// a dedicated parser the corpus does not provide; see DESIGN.md.
func stripJSON5Comments(raw []byte) []byte {
	lines := bytes.Split(raw, []byte("\n"))
	out := make([][]byte, 0, len(lines))
	for _, line := range lines {
		if idx := bytes.Index(line, []byte("//")); idx >= 0 {
			line = line[:idx]
		}
		out = append(out, line)
	}
	return bytes.Join(out, []byte("\n"))
}

func loadYAML(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: "invalid YAML: " + err.Error()}
		return sourcefile.Content{}, &d
	}
	return wrapModuleExports(f, normalizeYAMLValue(v)), nil
}

// normalizeYAMLValue converts map[string]interface{} (gopkg.in/yaml.v3
// decodes maps as map[string]interface{} for string keys, but nested
// mapping nodes can come back as map[string]interface{} too) into a form
// encoding/json can marshal; yaml.v3 already does this for us except for
// map[interface{}]interface{} left over from anchors, which we convert.
func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLValue(val)
		}
		return out
	default:
		return v
	}
}

func loadTOML(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	v, err := decodeTOML(raw)
	if err != nil {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: "invalid TOML: " + err.Error()}
		return sourcefile.Content{}, &d
	}
	return wrapModuleExports(f, v), nil
}

func loadXML(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	v, err := decodeXML(raw)
	if err != nil {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: "invalid XML: " + err.Error()}
		return sourcefile.Content{}, &d
	}
	return wrapModuleExports(f, v), nil
}

func loadRaw(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	return wrapModuleExports(f, string(raw)), nil
}

func loadAsset(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	// Unknown/binary extension: emitted as an asset; the module body
	// returns its emitted URL (module/transform.go wires the real
	// generated-name placeholder in once chunking has assigned one).
	return sourcefile.Content{Kind: sourcefile.ContentBinary, Bytes: raw, Hash: sourcefile.HashContent(raw)}, nil
}

func wrapModuleExports(f sourcefile.File, v any) sourcefile.Content {
	encoded, err := json.Marshal(v)
	if err != nil {
		encoded = []byte("null")
	}
	body := []byte("module.exports = " + string(encoded) + ";\n")
	return sourcefile.Load(f, body)
}

// decodeTOML decodes a whole TOML document with BurntSushi/toml into a
// generic map[string]any (internal/config uses the same library with a typed
// struct target).
func decodeTOML(raw []byte) (map[string]any, error) {
	var v map[string]any
	if err := tomlUnmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeXML is a minimal element->map walker; XML has no single canonical
// JSON shape, so this mirrors the common "attributes become keys prefixed
// with @, children become nested objects" convention.
func decodeXML(raw []byte) (any, error) {
	return xmlToMap(raw)
}

