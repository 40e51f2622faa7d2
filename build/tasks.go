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
	"os"

	"bennypowers.dev/mako/diag"
	"bennypowers.dev/mako/engine"
	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/sourcefile"
)

// pipeline drives a single module's load -> parse -> analyze_deps chain
// through the task engine (spec §4.1, §4.3). Each stage is a Spawn'd cell
// keyed on the file's absolute path, so a module whose content hash hasn't
// changed since the engine last saw it is never re-read, re-parsed, or
// re-walked: resolveCell (engine/resolve.go) finds every cell in the chain
// still fresh and returns the cached Output outright. Running BuildGraph
// again against the same *engine.Engine — as cmd/dev.go's watch loop does —
// is therefore a real incremental rebuild, not just a same-shaped one.
type pipeline struct {
	eng *engine.Engine
}

// loadOutput is the load stage's cell value: the decoded Content plus any
// non-fatal diagnostic Load raised (e.g. an unsupported preprocessor
// extension) — spec §4.3 treats a load diagnostic as a Warning the module
// still proceeds past, unlike a parse failure which drops the module.
type loadOutput struct {
	Content sourcefile.Content
	Diag    *diag.Diagnostic
}

func (l loadOutput) ContentHash() uint64 { return uint64(l.Content.Hash) }

type parseOutput struct {
	AST  *module.AST
	hash uint64
}

func (p parseOutput) ContentHash() uint64 { return p.hash }

type analyzeOutput struct {
	Result module.AnalyzeResult
	hash   uint64
}

func (a analyzeOutput) ContentHash() uint64 { return a.hash }

// pipelineResult is what the load->parse->analyze_deps chain produces for
// one file.
type pipelineResult struct {
	Content  sourcefile.Content
	LoadDiag *diag.Diagnostic // non-fatal; module still built
	AST      *module.AST
	Analyzed module.AnalyzeResult
	Fatal    *diag.Diagnostic // set on read failure or parse failure; module is dropped
}

// rawCellKey is the Root cell key a file's bytes are stored under — shared
// with InvalidateFile so a filesystem-change notification can target the
// exact cell a rebuild will consult.
func rawCellKey(absPath string) string { return "mako:raw:" + absPath }

// InvalidateFile marks absPath's raw-content cell dirty so the next
// BuildGraph call against eng re-reads it from disk instead of serving the
// cached bytes (spec §4.1 "Invalidation": "when an externally-owned input …
// changes, the engine marks the root cell dirty"). The dev watch loop calls
// this for every path in a debounced filesystem batch before rebuilding.
func InvalidateFile(eng *engine.Engine, absPath string) {
	eng.Invalidate(rawCellKey(absPath))
}

// run executes (or reuses) the pipeline for f, blocking until the chain is
// fresh at the engine's current epoch.
func (p *pipeline) run(ctx context.Context, f sourcefile.File) pipelineResult {
	rawRef := p.eng.Root(rawCellKey(f.AbsPath), func() (any, uint64, error) {
		raw, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, 0, err
		}
		return raw, uint64(sourcefile.HashContent(raw)), nil
	})

	loadRef := p.eng.Spawn("module.load:"+f.AbsPath, []engine.Reference{rawRef}, func(tc *engine.TaskContext, args []any) (any, error) {
		raw := args[0].([]byte)
		content, d := module.Load(f, raw)
		return loadOutput{Content: content, Diag: d}, nil
	})

	parseRef := p.eng.Spawn("module.parse:"+f.AbsPath, []engine.Reference{loadRef}, func(tc *engine.TaskContext, args []any) (any, error) {
		lo := args[0].(loadOutput)
		ast, d := module.Parse(f.RelPath, lo.Content)
		if d != nil {
			return nil, &engine.FailedError{Diagnostics: []diag.Diagnostic{*d}}
		}
		return parseOutput{AST: ast, hash: uint64(lo.Content.Hash)}, nil
	})

	analyzeRef := p.eng.Spawn("module.analyze_deps:"+f.AbsPath, []engine.Reference{parseRef}, func(tc *engine.TaskContext, args []any) (any, error) {
		po := args[0].(parseOutput)
		var analyzed module.AnalyzeResult
		switch po.AST.Kind {
		case module.ASTJS:
			analyzed = module.AnalyzeDeps(po.AST)
		case module.ASTCSS:
			analyzed = module.AnalyzeCSSDeps(po.AST)
		}
		return analyzeOutput{Result: analyzed, hash: po.hash}, nil
	})

	out, err := p.eng.ReadStronglyConsistent(ctx, analyzeRef)
	if err != nil {
		return pipelineResult{Fatal: &diag.Diagnostic{Path: f.RelPath, Severity: diag.Error, Kind: diag.Load, Reason: err.Error()}}
	}
	if out.Failed {
		d := out.Diagnostics[0]
		return pipelineResult{Fatal: &d}
	}

	// The chain's earlier stages are already fresh at this point (that's
	// what let the analyze cell resolve); re-reading them recovers their
	// values without any recomputation.
	loadOut, loadErr := p.eng.ReadStronglyConsistent(ctx, loadRef)
	if loadErr != nil || loadOut.Failed {
		return pipelineResult{Fatal: &diag.Diagnostic{Path: f.RelPath, Severity: diag.Error, Kind: diag.Load, Reason: "load: inconsistent after analyze succeeded"}}
	}
	parseOut, parseErr := p.eng.ReadStronglyConsistent(ctx, parseRef)
	if parseErr != nil || parseOut.Failed {
		return pipelineResult{Fatal: &diag.Diagnostic{Path: f.RelPath, Severity: diag.Error, Kind: diag.Parse, Reason: "parse: inconsistent after analyze succeeded"}}
	}

	lo := loadOut.Value.(loadOutput)
	return pipelineResult{
		Content:  lo.Content,
		LoadDiag: lo.Diag,
		AST:      parseOut.Value.(parseOutput).AST,
		Analyzed: out.Value.(analyzeOutput).Result,
	}
}
