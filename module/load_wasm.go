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
	"context"
	"fmt"
	"sort"

	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/sourcefile"
	"github.com/tetratelabs/wazero"
)

// loadWASM returns a JS interop stub exporting one async wrapper per
// function the module exports, discovered by compiling the module with
// wazero (no instantiation — CompileModule is enough to read the export set,
// so this stays cheap even for large wasm binaries). The stub fetches the
// binary by its content-hashed asset name; the binary itself is not written
// to the output directory.
func loadWASM(f sourcefile.File, raw []byte) (sourcefile.Content, *diag.Diagnostic) {
	exports, err := wasmExportNames(raw)
	if err != nil {
		d := diag.Diagnostic{Path: f.AbsPath, Severity: diag.Error, Kind: diag.Load, Reason: "invalid wasm module: " + err.Error()}
		return sourcefile.Content{}, &d
	}

	assetName := sourcefile.AssetNameHash(raw)
	var body string
	body += fmt.Sprintf("var __mako_wasm_url__ = %q;\n", assetName+".wasm")
	body += "var __mako_wasm_instance__;\n"
	body += "async function __mako_wasm_init__() {\n"
	body += "  if (__mako_wasm_instance__) return __mako_wasm_instance__;\n"
	body += "  var bytes = await (await fetch(__mako_wasm_url__)).arrayBuffer();\n"
	body += "  var { instance } = await WebAssembly.instantiate(bytes, {});\n"
	body += "  __mako_wasm_instance__ = instance.exports;\n"
	body += "  return __mako_wasm_instance__;\n"
	body += "}\n"
	for _, name := range exports {
		body += fmt.Sprintf("export async function %s(...args) { var e = await __mako_wasm_init__(); return e[%q](...args); }\n", jsSafeName(name), name)
	}

	content := sourcefile.Load(f, []byte(body))
	content.Kind = sourcefile.ContentJS
	return content, nil
}

func wasmExportNames(raw []byte) ([]string, error) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, raw)
	if err != nil {
		return nil, err
	}
	defer compiled.Close(ctx)

	names := make([]string, 0, len(compiled.ExportedFunctions()))
	for name := range compiled.ExportedFunctions() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func jsSafeName(name string) string {
	out := make([]rune, 0, len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '$':
			out = append(out, r)
		case r >= '0' && r <= '9' && i > 0:
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
