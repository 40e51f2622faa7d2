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

// Package emit is L7: chunk serialization, source-map merging, and the
// hot-update (HMR) pipeline (spec §4.7). It is the last stage a build
// passes through — every module it touches already carries its final,
// transformed Source bytes and its generated runtime id.
package emit

import (
	"encoding/json"
	"fmt"
	"strings"

	"bennypowers.dev/mako/chunk"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/runtime"
)

// Output is a fully serialized chunk: its bytes, optional source map JSON,
// and filename, ready to write to disk (spec §6 "Chunk file format").
type Output struct {
	Chunk      *chunk.Chunk
	Filename   string
	Content    []byte
	SourceMap  []byte // nil when devtool is disabled
	ModuleIDs  []string
}

// IDStrategy resolves a module's runtime id, consulted once per (chunk,
// module) pair — the same GeneratedIDStrategy interface module/id.go
// defines, imported here to keep emit decoupled from chunk's formation
// internals.
type IDStrategy = module.GeneratedIDStrategy

// SerializeJS renders one JS chunk's file body per spec §6:
//
//	(self[G] = self[G] || []).push([['<id>'], { '<modId>': function(module, exports, __mako_require__){ ... }, ... }]);
//
// Entry chunks additionally embed the runtime shim and a bootstrap call.
// When withSourceMap is set, Output.SourceMap carries a merged v3 map built
// from a per-module identity mapping (spec §4.7 "Source maps").
func SerializeJS(g *modulegraph.Graph, c *chunk.Chunk, ids IDStrategy, chunkLoadingGlobal string, withSourceMap bool) Output {
	var modBodies strings.Builder
	var moduleIDs []string
	var moduleMaps []ModuleMap

	for i, modID := range c.Modules {
		info := g.Module(modID)
		if info == nil || info.ASTKind == module.ASTCSS {
			continue // CSS modules are emitted into the CSS chunk, not here
		}
		genID := ids.GeneratedID(modID, relPathFor(info))
		moduleIDs = append(moduleIDs, genID)
		if i > 0 {
			modBodies.WriteString(",\n")
		}
		body := indent(string(info.Source))
		fmt.Fprintf(&modBodies, "  %s: function(module, exports, __mako_require__) {\n%s\n  }",
			jsonString(genID), body)
		if withSourceMap {
			bodyLines := strings.Count(body, "\n") + 1
			moduleMaps = append(moduleMaps, PaddedIdentityModuleMap(info.File.RelPath, bodyLines, 1, 1))
		}
	}

	var out strings.Builder
	preludeLines := 1 // the "(self[...] = ...).push([[...], {" line
	if c.Kind == chunk.Entry {
		out.WriteString(runtime.Shim)
		out.WriteString("\n")
		preludeLines += strings.Count(runtime.Shim, "\n") + 1
	}
	fmt.Fprintf(&out, "(self[%s] = self[%s] || []).push([[%s], {\n%s\n}]);\n",
		jsonString(chunkLoadingGlobal), jsonString(chunkLoadingGlobal), jsonString(string(c.ID)), modBodies.String())

	if c.Kind == chunk.Entry && c.Root != "" {
		rootInfo := g.Module(c.Root)
		if rootInfo != nil {
			rootGenID := ids.GeneratedID(c.Root, relPathFor(rootInfo))
			out.WriteString(runtime.EntryBootstrap([]string{rootGenID}))
		}
	}

	result := Output{Chunk: c, Content: []byte(out.String()), ModuleIDs: moduleIDs}
	if withSourceMap {
		merged := MergeChunkSourceMap(c.Name+".js", preludeLines, moduleMaps)
		if data, err := json.Marshal(merged); err == nil {
			result.SourceMap = data
		}
	}
	return result
}

// SerializeCSS concatenates a chunk's CSS modules in stored order. @import
// rules were already hoisted ahead of non-import rules by
// module/transform_css.go's per-module pass; here we simply concatenate —
// cross-module hoisting within one chunk is not re-done, matching spec
// §4.3 "CSS transforms" operating per module, not per chunk.
func SerializeCSS(g *modulegraph.Graph, c *chunk.Chunk, withSourceMap bool) Output {
	var out strings.Builder
	var moduleIDs []string
	var moduleMaps []ModuleMap
	for _, modID := range c.Modules {
		info := g.Module(modID)
		if info == nil || info.ASTKind != module.ASTCSS {
			continue
		}
		moduleIDs = append(moduleIDs, string(modID))
		out.Write(info.Source)
		out.WriteString("\n")
		if withSourceMap {
			bodyLines := strings.Count(string(info.Source), "\n") + 1
			moduleMaps = append(moduleMaps, PaddedIdentityModuleMap(info.File.RelPath, bodyLines, 0, 1))
		}
	}
	result := Output{Chunk: c, Content: []byte(out.String()), ModuleIDs: moduleIDs}
	if withSourceMap {
		merged := MergeChunkSourceMap(c.Name+".css", 0, moduleMaps)
		if data, err := json.Marshal(merged); err == nil {
			result.SourceMap = data
		}
	}
	return result
}

func relPathFor(info *module.Info) string {
	return info.File.RelPath
}

func indent(src string) string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

func jsonString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	out = append(out, '"')
	return string(out)
}
