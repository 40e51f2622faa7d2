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

package sourcefile

// Content is the loaded body of a File, tagged by kind so downstream parse
// dispatch is a single type switch rather than re-sniffing the extension.
type Content struct {
	Kind  ContentKind
	Bytes []byte
	IsJSX bool
	Hash  ContentHash
}

// Load reads raw bytes (already resolved by the caller — a real
// os.ReadFile, a virtual-module generator, or an in-memory test fixture) and
// classifies them by File.Ext. Dispatch mirrors spec §4.3's load table.
func Load(f File, raw []byte) Content {
	kind, isJSX := classify(f)
	return Content{
		Kind:  kind,
		Bytes: raw,
		IsJSX: isJSX,
		Hash:  HashContent(raw),
	}
}

func classify(f File) (ContentKind, bool) {
	switch f.Ext {
	case ".css":
		return ContentCSS, false
	case ".js", ".cjs", ".mjs", ".ts", ".mts", ".cts":
		return ContentJS, false
	case ".jsx", ".tsx":
		return ContentJS, true
	case ".json", ".json5", ".yaml", ".yml", ".toml", ".xml":
		return ContentJS, false // decoded and re-emitted as `module.exports = …`
	case ".md", ".mdx":
		return ContentJS, true // compiled to JSX
	case ".wasm":
		return ContentBinary, false
	case ".svg":
		return ContentJS, true // SVGR component, with an asset-URL fallback
	default:
		if f.HasQuery("raw") {
			return ContentJS, false
		}
		return ContentBinary, false
	}
}
