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
	"bennypowers.dev/mako/sourcefile"
)

// ResolveKind enumerates how a Dependency expects its specifier to be
// resolved and, ultimately, loaded at runtime (spec §3 "Dependency").
type ResolveKind int

const (
	Require ResolveKind = iota
	ImportKind
	ExportNamed
	ExportAll
	DynamicImport
	CSSImport
	Worker
)

// ImportSpecifierKind marks what a single specifier pulls in: default,
// named, namespace, or a full re-export-all. Several may apply to one
// Dependency (e.g. `import Foo, { bar } from 'x'`).
type ImportSpecifierKind int

const (
	SpecDefault ImportSpecifierKind = 1 << iota
	SpecNamed
	SpecNamespace
	SpecExportAll
)

// ResolveType is the directed-edge attribute between two modules.
type ResolveType struct {
	Kind          ResolveKind
	Specifiers    ImportSpecifierKind // bitmask of SpecDefault|SpecNamed|...
	NamedBindings []string            // imported/exported names, when known precisely
	NamedLocals   []string            // local binding per NamedBindings entry (aliasing)
	DefaultLocal  string              // local name bound to the default export, if any
	NamespaceLocal string             // local name bound to `* as ns`, if any
	DynamicOpts   map[string]string   // webpackChunkName-style magic comment options
	WorkerOpts    map[string]string
}

// IsSyncESM holds for Import/ExportNamed/ExportAll — edges that participate
// in synchronous ES-module semantics (async propagation, tree shaking,
// concatenation).
func (r ResolveType) IsSyncESM() bool {
	switch r.Kind {
	case ImportKind, ExportNamed, ExportAll:
		return true
	default:
		return false
	}
}

// Dependency is the directed edge attribute between two modules.
type Dependency struct {
	SourceText string // specifier text as written
	ResolveAs  string // optional resolve-as override
	Type       ResolveType
	Ordinal    int // order of appearance in the importer
	SpanStart  int // whole construct (import/export/require/new Worker), for diagnostics
	SpanEnd    int
	SpecStart  int // just the specifier string literal, for transform splicing
	SpecEnd    int
}

// MissingDependency records a specifier that failed to resolve, kept on
// ModuleInfo. Nothing reads these records to retry the specifier when new
// files appear.
type MissingDependency struct {
	Dependency Dependency
	Reason     string
}

// ASTKind discriminates the parsed AST a ModuleInfo carries.
type ASTKind int

const (
	ASTNone ASTKind = iota
	ASTJS
	ASTCSS
)

// Info is the parsed, analyzed, and (eventually) transformed form of a
// module (spec §3 "ModuleInfo").
type Info struct {
	ID              ID
	File            sourcefile.File
	ASTKind         ASTKind
	Source          []byte // current bytes: original before transform, rewritten after
	External        string // non-empty if this module resolved to an external
	Missing         []MissingDependency
	Dependencies    []Dependency // ordered as encountered
	IsAsync         bool
	TopLevelAwait   bool
	SideEffects     bool
	Hash            uint64
}

// ContentHash implements engine.Hasher so module.Info participates in the
// engine's generic output hashing without a fallback stringify pass over a
// potentially large AST.
func (i *Info) ContentHash() uint64 { return i.Hash }
