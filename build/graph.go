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

// Package build drives the full pipeline end to end: graph construction
// (load/parse/analyze_deps/resolve), optimization (tree shaking and module
// concatenation), chunk formation, and emission. cmd/build.go and
// cmd/dev.go are thin cobra wrappers around it.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/engine"
	"bennypowers.dev/mako/internal/config"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/resolver"
	"bennypowers.dev/mako/sourcefile"
)

// Graph is the product of walking every entry module's transitive
// dependency closure: the module graph, each module's parsed AST (needed
// later by tree shaking), and the per-module dependency resolutions
// transform consumes.
type Graph struct {
	Modules     *modulegraph.Graph
	ASTs        map[module.ID]*module.AST
	Resolutions map[module.ID][]module.Resolution
	GeneratedID map[module.ID]string
	Diagnostics *diag.Set

	// engineOwned is true when ASTs were produced by a *engine.Engine the
	// caller intends to reuse across rebuilds (cmd/dev.go's watch loop). In
	// that case Close must not free the tree-sitter trees: they are still
	// reachable as fresh engine cells and will be reused verbatim by the
	// next BuildGraph call against the same engine whenever a file's
	// content hash hasn't changed.
	engineOwned bool
}

// Close releases every parsed AST's tree-sitter tree, unless the engine
// that produced them is still alive to reuse them on the next rebuild.
func (g *Graph) Close() {
	if g.engineOwned {
		return
	}
	for _, ast := range g.ASTs {
		ast.Close()
	}
}

// BuildGraph walks entries (name -> absolute or project-relative path) and
// their transitive dependencies, producing a fully populated Graph. ids
// assigns each module's runtime-visible generated id as it is first seen,
// shared by both Transform (require() targets) and emit (chunk module
// keys) so every reference to a given module resolves to the same string.
//
// eng drives the per-module load/parse/analyze_deps chain (spec §4.1): pass
// the same *engine.Engine across repeated calls (as the dev-mode watch loop
// does) to get real incremental rebuilds — an unchanged file's entire chain
// resolves from cache without re-reading, re-parsing, or re-walking its
// AST. Pass a fresh engine.New(0) for a one-shot build.
func BuildGraph(ctx context.Context, cfg *config.Config, res *resolver.Resolver, projectDir string, entries map[string]string, ids module.GeneratedIDStrategy, eng *engine.Engine) *Graph {
	g := &Graph{
		Modules:     modulegraph.New(),
		ASTs:        make(map[module.ID]*module.AST),
		Resolutions: make(map[module.ID][]module.Resolution),
		GeneratedID: make(map[module.ID]string),
		Diagnostics: &diag.Set{},
		engineOwned: true,
	}

	pl := &pipeline{eng: eng}
	visited := make(map[module.ID]bool)

	var visit func(absPath string, isEntry bool)
	visit = func(absPath string, isEntry bool) {
		f := sourcefile.New(absPath, projectDir, isEntry)
		id := module.IDFromFile(f)
		if _, ok := g.GeneratedID[id]; !ok {
			g.GeneratedID[id] = ids.GeneratedID(id, f.RelPath)
		}
		if visited[id] {
			return
		}
		visited[id] = true

		pr := pl.run(ctx, f)
		if pr.Fatal != nil {
			g.Diagnostics.Add(*pr.Fatal)
			return
		}
		if pr.LoadDiag != nil {
			g.Diagnostics.Add(*pr.LoadDiag)
		}

		content, ast, analyzed := pr.Content, pr.AST, pr.Analyzed
		g.ASTs[id] = ast

		info := &module.Info{
			ID:           id,
			File:         f,
			ASTKind:      ast.Kind,
			Source:       ast.Source,
			Dependencies: analyzed.Dependencies,
			Hash:         uint64(content.Hash),
			SideEffects:  res.NearestPackageJSON(f.AbsPath).SideEffectsDefault(),
		}
		g.Modules.AddModule(id, info)

		resolutions := make([]module.Resolution, len(analyzed.Dependencies))
		for i, dep := range analyzed.Dependencies {
			r := res.Resolve(f.AbsPath, dep.SourceText)
			switch r.Kind {
			case resolver.Resolved:
				childAbs, absErr := filepath.Abs(r.Path)
				if absErr != nil {
					childAbs = r.Path
				}
				childFile := sourcefile.New(childAbs, projectDir, false)
				childID := module.IDFromFile(childFile)
				genID := ids.GeneratedID(childID, childFile.RelPath)
				g.GeneratedID[childID] = genID
				resolutions[i] = module.Resolution{Kind: module.ResolvedOK, ModuleID: genID}
				g.Modules.AddDependency(id, childID, dep)
				visit(childAbs, false)

			case resolver.External:
				resolutions[i] = module.Resolution{Kind: module.ResolvedExternal, Request: r.External}
				externalID := module.ID("external:" + r.External)
				g.Modules.AddDependency(id, externalID, dep)

			case resolver.Missing:
				resolutions[i] = module.Resolution{Kind: module.ResolvedMissing, Reason: r.MissReason}
				info.Missing = append(info.Missing, module.MissingDependency{Dependency: dep, Reason: r.MissReason})
				g.Diagnostics.Add(diag.Diagnostic{
					Path: f.RelPath, Severity: diag.Warning, Kind: diag.Resolution,
					Reason: fmt.Sprintf("%q: %s", dep.SourceText, r.MissReason),
				})
			}
		}
		g.Resolutions[id] = resolutions
	}

	for _, entryPath := range entries {
		abs, err := filepath.Abs(entryPath)
		if err != nil {
			g.Diagnostics.Add(diag.Diagnostic{Path: entryPath, Severity: diag.Error, Kind: diag.Configuration, Reason: err.Error()})
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			g.Diagnostics.Add(diag.Diagnostic{Path: entryPath, Severity: diag.Error, Kind: diag.Configuration, Reason: "entry not found: " + err.Error()})
			continue
		}
		visit(abs, true)
	}

	g.Modules.MarkAsync()
	return g
}
