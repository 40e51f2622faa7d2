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

// Package optimize is the L6 optimization layer: tree shaking
// (statement-graph based dead-export/dead-statement elimination) and scope
// hoisting (module concatenation), both operating on the topologically
// sorted ES-module subgraph produced by modulegraph.Graph.Toposort (spec
// §4.6).
package optimize

import (
	"bennypowers.dev/mako/module"
)

// StmtKind discriminates the handful of top-level statement shapes the
// statement graph cares about. Everything else (expression statements,
// control flow, bare declarations) is Other.
type StmtKind int

const (
	Other StmtKind = iota
	ImportDecl
	ExportDecl
	ExportAllDecl
)

// ImportInfo describes one import-like statement's bindings, populated for
// Kind == ImportDecl.
type ImportInfo struct {
	Source         string
	Default        string   // local name bound to the default export, if any
	Namespace      string   // local name bound to `* as ns`, if any
	Named          []string // module-side names imported
	NamedLocals    []string // local binding per Named entry
}

// ExportInfo describes one export-like statement, populated for Kind ==
// ExportDecl or ExportAllDecl. A local (non-re-export) `export const x = 1`
// has Source == "" and Names/Locals naming the exported binding(s).
type ExportInfo struct {
	Source         string   // re-export source, empty for a local export
	Names          []string // exported names ("default" for `export default`)
	Locals         []string // local identifier satisfying each Names entry
	HasDeclaration bool     // true when the statement itself declares the binding (`export const x=1`, `export function f(){}`), not just `export { x }`
}

// Statement is one top-level node of a module's StatementGraph (spec §3
// "StatementGraph").
type Statement struct {
	Index        int
	Kind         StmtKind
	SpanStart    int
	SpanEnd      int
	Defined      []string        // identifiers this statement binds at module scope
	Used         []string        // identifiers this statement references
	Requires     map[string][]string // defined-identifier -> identifiers it transitively needs
	SelfExecuted bool            // side-effecting top-level form, never eliminated by used-exports reachability alone
	Import       *ImportInfo
	Export       *ExportInfo
}

// StatementGraph is the per-module graph of top-level statements (spec §3).
type StatementGraph struct {
	Statements []*Statement
}

// DefinerOf returns the statement (if any) that defines identifier name at
// module scope.
func (g *StatementGraph) DefinerOf(name string) *Statement {
	for _, s := range g.Statements {
		for _, d := range s.Defined {
			if d == name {
				return s
			}
		}
	}
	return nil
}

// ExportStatement returns the statement that exports local name
// exportedName, if any.
func (g *StatementGraph) ExportStatement(exportedName string) *Statement {
	for _, s := range g.Statements {
		if s.Export == nil {
			continue
		}
		for _, n := range s.Export.Names {
			if n == exportedName {
				return s
			}
		}
	}
	return nil
}

// ExportsKind discriminates a module's all_exports computation (spec §3
// "TreeShakeModule").
type ExportsKind int

const (
	Precise ExportsKind = iota
	Ambiguous
)

// AllExports is the full set of names a module exports, or Ambiguous when
// an `export *` target isn't known to be a clean ESM module.
type AllExports struct {
	Kind  ExportsKind
	Names map[string]bool // valid when Kind == Precise
}

// UsedExports is either "All" or a precise set of exported names used by
// at least one importer (spec §3).
type UsedExports struct {
	All   bool
	Names map[string]bool
}

func newUsedExports() *UsedExports {
	return &UsedExports{Names: make(map[string]bool)}
}

// Add records name as used. A no-op once All is set.
func (u *UsedExports) Add(name string) bool {
	if u.All {
		return false
	}
	if u.Names[name] {
		return false
	}
	u.Names[name] = true
	return true
}

// SetAll marks every export used. Returns true iff this changed anything.
func (u *UsedExports) SetAll() bool {
	if u.All {
		return false
	}
	u.All = true
	return true
}

func (u *UsedExports) Has(name string) bool {
	return u.All || u.Names[name]
}

// TreeShakeModule is the derived per-module view the shaking pass computes
// and mutates (spec §3).
type TreeShakeModule struct {
	ID            module.ID
	SideEffects   bool
	Graph         *StatementGraph
	UsedExports   *UsedExports
	AllExports    AllExports
	TopoIndex     int
	IsESM         bool // false for CJS/asset/CSS modules and for modules in a cycle
}
