package optimize

import (
	"testing"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/sourcefile"
	"github.com/stretchr/testify/require"
)

func mkModuleInfo(id string, isEntry bool, sideEffects bool) *module.Info {
	return &module.Info{
		ID:          module.ID(id),
		File:        sourcefile.File{AbsPath: id, IsEntry: isEntry},
		ASTKind:     module.ASTJS,
		SideEffects: sideEffects,
	}
}

func TestShakeEliminatesUnusedExport(t *testing.T) {
	g := modulegraph.New()
	entryID, libID := module.ID("/entry"), module.ID("/lib")

	entryAST := parseJS(t, `import { used } from "./lib";
console.log(used());`)
	libAST := parseJS(t, `export function used() { return 1; }
export function unused() { return 2; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, libID, module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind, Specifiers: module.SpecNamed, NamedBindings: []string{"used"}},
	})

	asts := map[module.ID]*module.AST{entryID: entryAST, libID: libAST}
	result := Shake(g, asts)

	require.True(t, result.Modules[libID].UsedExports.Has("used"))
	require.False(t, result.Modules[libID].UsedExports.Has("unused"))

	spans := result.RemovedSpans[libID]
	require.Len(t, spans, 1)
	require.Contains(t, string(libAST.Source[spans[0][0]:spans[0][1]]), "unused")
}

func TestShakeKeepsModuleWithSideEffectStatement(t *testing.T) {
	g := modulegraph.New()
	entryID, libID := module.ID("/entry"), module.ID("/lib")

	entryAST := parseJS(t, `import "./lib";`)
	libAST := parseJS(t, `registerGlobal();
export function unused() { return 2; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, libID, module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}})

	asts := map[module.ID]*module.AST{entryID: entryAST, libID: libAST}
	result := Shake(g, asts)

	require.False(t, result.RemovedModules[libID])
	require.True(t, result.Modules[libID].SideEffects)
	require.Empty(t, result.RemovedSpans[libID])
}

func TestShakeNamespaceImportKeepsEverything(t *testing.T) {
	g := modulegraph.New()
	entryID, libID := module.ID("/entry"), module.ID("/lib")

	entryAST := parseJS(t, `import * as lib from "./lib";
console.log(lib);`)
	libAST := parseJS(t, `export function a() { return 1; }
export function b() { return 2; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, libID, module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind, Specifiers: module.SpecNamespace},
	})

	asts := map[module.ID]*module.AST{entryID: entryAST, libID: libAST}
	result := Shake(g, asts)

	require.True(t, result.Modules[libID].UsedExports.All)
	require.Empty(t, result.RemovedSpans[libID])
}

func TestShakeExportAllExpandsUsedNames(t *testing.T) {
	g := modulegraph.New()
	entryID, mid, libID := module.ID("/entry"), module.ID("/mid"), module.ID("/lib")

	entryAST := parseJS(t, `import { used } from "./mid";
console.log(used());`)
	midAST := parseJS(t, `export * from "./lib";`)
	libAST := parseJS(t, `export function used() { return 1; }
export function unused() { return 2; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(mid, mkModuleInfo("/mid", false, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, mid, module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind, Specifiers: module.SpecNamed, NamedBindings: []string{"used"}},
	})
	g.AddDependency(mid, libID, module.Dependency{Type: module.ResolveType{Kind: module.ExportAll}})

	asts := map[module.ID]*module.AST{entryID: entryAST, mid: midAST, libID: libAST}
	result := Shake(g, asts)

	require.True(t, result.Modules[libID].UsedExports.Has("used"))
	require.True(t, result.Modules[libID].UsedExports.Has("unused"))
}
