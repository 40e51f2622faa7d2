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

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"bennypowers.dev/mako/chunk"
	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/emit"
	"bennypowers.dev/mako/engine"
	"bennypowers.dev/mako/internal/config"
	"bennypowers.dev/mako/internal/logging"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/resolver"
)

// Result is everything a caller (cmd/build.go, cmd/dev.go) needs after one
// full build: the written chunk outputs, the final graph (kept alive for
// watch-mode HMR diffing), and accumulated diagnostics.
type Result struct {
	Outputs     []emit.Output
	Graph       *Graph
	ChunkGraph  *chunk.Graph
	IDs         module.GeneratedIDStrategy
	Diagnostics *diag.Set
}

// HasFatalErrors reports whether the build failed outright (spec §7 "most
// diagnostics are Warnings that do not stop a build; a few are Errors that
// do").
func (r *Result) HasFatalErrors() bool {
	return r.Diagnostics.HasErrors()
}

// Once runs the full pipeline exactly once: resolve entries, build the
// module graph, optionally tree-shake and concatenate, form chunks, and
// serialize every chunk. It does not write files — callers decide whether
// to persist the result (Write) or merely diff it (dev mode's rebuild).
//
// eng is the task engine driving the module pipeline's load/parse/
// analyze_deps chain (spec §4.1). Pass nil for a one-shot build (a fresh
// engine is created and discarded); pass a long-lived engine across
// repeated calls — as cmd/dev.go's watch loop does — to get real
// incremental rebuilds that skip re-parsing unchanged files.
func Once(ctx context.Context, cfg *config.Config, projectDir string, eng *engine.Engine) (*Result, error) {
	entries, err := resolveEntries(cfg, projectDir)
	if err != nil {
		return nil, err
	}

	res := resolver.New(resolver.Config{
		Alias:      cfg.Resolve.Alias,
		Extensions: cfg.Resolve.Extensions,
		Conditions: cfg.Resolve.Conditions,
		Externals:  externalReplacements(cfg),
	})

	var ids module.GeneratedIDStrategy
	if cfg.Mode == config.Production {
		ids = chunk.NewProdIDStrategy()
	} else {
		ids = chunk.DevIDStrategy{}
	}

	ownEngine := eng == nil
	if ownEngine {
		eng = engine.New(0)
		defer eng.Close()
	}

	g := BuildGraph(ctx, cfg, res, projectDir, entries, ids, eng)
	g.engineOwned = !ownEngine
	if g.Diagnostics.HasErrors() {
		return &Result{Graph: g, IDs: ids, Diagnostics: g.Diagnostics}, nil
	}

	concatenated := Optimize(g, cfg.Mode)
	Transform(g, cfg, concatenated)

	cg := chunk.Form(g.Modules)

	withSourceMap := cfg.Devtool == "source-map"
	outputs, err := emit.SerializeAll(ctx, g.Modules, cg, ids, cfg.Output.ChunkLoadingGlobal, withSourceMap)
	if err != nil {
		return nil, fmt.Errorf("build: serialize: %w", err)
	}

	return &Result{
		Outputs:     outputs,
		Graph:       g,
		ChunkGraph:  cg,
		IDs:         ids,
		Diagnostics: g.Diagnostics,
	}, nil
}

// Write assigns each output's final filename and persists it (plus a
// sibling .map when present) under cfg.Output.Path.
func Write(cfg *config.Config, projectDir string, r *Result) error {
	outDir := filepath.Join(projectDir, cfg.Output.Path)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("build: mkdir %s: %w", outDir, err)
	}

	for i := range r.Outputs {
		out := &r.Outputs[i]
		ext := "js"
		if isCSSChunk(r.Graph.Modules, out.Chunk) {
			ext = "css"
		}

		contentHash := ""
		if cfg.Mode == config.Production {
			contentHash = fmt.Sprintf("%08x", xxhash.Sum64(out.Content))
		}
		out.Filename = chunk.Filename(out.Chunk, contentHash, ext)

		path := filepath.Join(outDir, out.Filename)
		content := out.Content
		if out.SourceMap != nil {
			mapName := out.Filename + ".map"
			ref := []byte(fmt.Sprintf("\n//# sourceMappingURL=%s\n", mapName))
			content = append(append([]byte{}, out.Content...), ref...)
			if err := os.WriteFile(filepath.Join(outDir, mapName), out.SourceMap, 0o644); err != nil {
				return fmt.Errorf("build: write %s: %w", mapName, err)
			}
		}

		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("build: write %s: %w", path, err)
		}
		logging.Debug("wrote %s (%d bytes)", out.Filename, len(content))
	}
	return nil
}

func isCSSChunk(g *modulegraph.Graph, c *chunk.Chunk) bool {
	for _, id := range c.Modules {
		if info := g.Module(id); info != nil {
			return info.ASTKind == module.ASTCSS
		}
	}
	return false
}
