package optimize

import (
	"testing"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"github.com/stretchr/testify/require"
)

func TestFindGroupsConcatenatesSyncESMChain(t *testing.T) {
	g := modulegraph.New()
	entryID, libID := module.ID("/entry"), module.ID("/lib")

	entryAST := parseJS(t, `import { used } from "./lib";
console.log(used());`)
	libAST := parseJS(t, `export function used() { return 1; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, libID, module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind, Specifiers: module.SpecNamed, NamedBindings: []string{"used"}},
	})

	asts := map[module.ID]*module.AST{entryID: entryAST, libID: libAST}
	shaken := Shake(g, asts)
	groups := FindGroups(g, shaken)

	require.Len(t, groups, 1)
	require.Equal(t, entryID, groups[0].Root)
	require.ElementsMatch(t, []module.ID{entryID, libID}, groups[0].Inner)
	require.Empty(t, groups[0].Externals)
}

func TestFindGroupsSplitsAtDynamicImport(t *testing.T) {
	g := modulegraph.New()
	entryID, libID := module.ID("/entry"), module.ID("/lib")

	entryAST := parseJS(t, `async function load() {
  const m = await import("./lib");
  return m;
}`)
	libAST := parseJS(t, `export function used() { return 1; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, libID, module.Dependency{
		Type: module.ResolveType{Kind: module.DynamicImport},
	})

	asts := map[module.ID]*module.AST{entryID: entryAST, libID: libAST}
	shaken := Shake(g, asts)
	groups := FindGroups(g, shaken)

	require.Len(t, groups, 1)
	require.Equal(t, []module.ID{entryID}, groups[0].Inner)
}

func TestFindGroupsClassifiesExternalDefaultUse(t *testing.T) {
	g := modulegraph.New()
	entryID, extID := module.ID("/entry"), module.ID("react")

	entryAST := parseJS(t, `import React from "react";
console.log(React);`)
	extAST := parseJS(t, `module.exports = {};`)

	entryInfo := mkModuleInfo("/entry", true, false)
	extInfo := mkModuleInfo("react", false, false)
	extInfo.External = "react"

	g.AddModule(entryID, entryInfo)
	g.AddModule(extID, extInfo)
	g.AddDependency(entryID, extID, module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind, Specifiers: module.SpecDefault},
	})

	asts := map[module.ID]*module.AST{entryID: entryAST, extID: extAST}
	shaken := Shake(g, asts)
	groups := FindGroups(g, shaken)

	require.Len(t, groups, 1)
	require.Equal(t, []module.ID{entryID}, groups[0].Inner)
	require.Len(t, groups[0].Externals, 1)
	require.NotEmpty(t, groups[0].Externals[0].InteropVar)
}

func TestRequireHeaderEmitsDefaultInterop(t *testing.T) {
	grp := &Group{
		Externals: []*External{{
			ModuleID:   module.ID("react"),
			Request:    "react",
			Use:        UseDefault,
			RawVar:     "_ext0",
			InteropVar: "_ext0_interop",
		}},
	}
	header := RequireHeader(grp)
	require.Contains(t, header, `__mako_require__("react")`)
	require.Contains(t, header, "_interop_require_default._")
}

func TestEmitRootDropsImportAndExportSyntax(t *testing.T) {
	g := modulegraph.New()
	entryID, libID := module.ID("/entry"), module.ID("/lib")

	entryAST := parseJS(t, `const helper = 1;
import { used } from "./lib";
console.log(helper, used());`)
	libAST := parseJS(t, `export function used() { const helper = 2; return helper; }`)

	g.AddModule(entryID, mkModuleInfo("/entry", true, false))
	g.AddModule(libID, mkModuleInfo("/lib", false, false))
	g.AddDependency(entryID, libID, module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind, Specifiers: module.SpecNamed, NamedBindings: []string{"used"}},
	})

	asts := map[module.ID]*module.AST{entryID: entryAST, libID: libAST}
	shaken := Shake(g, asts)
	groups := FindGroups(g, shaken)
	require.Len(t, groups, 1)

	out := EmitRoot(g, groups[0], shaken, asts)
	require.NotContains(t, string(out), `import`)
	require.NotContains(t, string(out), `export function`)
	require.Contains(t, string(out), "function used")
}
