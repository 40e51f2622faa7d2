package modulegraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/sourcefile"
)

func mkInfo(id string, isEntry bool) *module.Info {
	mid := module.ID(id)
	return &module.Info{ID: mid, File: sourcefile.File{AbsPath: id, IsEntry: isEntry}}
}

func TestAddAndRemoveModule(t *testing.T) {
	g := New()
	a := module.ID("/a")
	g.AddModule(a, mkInfo("/a", false))
	require.True(t, g.HasModule(a))

	g.RemoveModuleAndDeps(a)
	require.False(t, g.HasModule(a))
}

func TestGetDependenciesPreservesOrder(t *testing.T) {
	g := New()
	a, b, c := module.ID("/a"), module.ID("/b"), module.ID("/c")
	g.AddModule(a, mkInfo("/a", false))
	g.AddModule(b, mkInfo("/b", false))
	g.AddModule(c, mkInfo("/c", false))
	g.AddDependency(a, c, module.Dependency{Ordinal: 1})
	g.AddDependency(a, b, module.Dependency{Ordinal: 0})

	deps := g.GetDependencies(a)
	require.Len(t, deps, 2)
	require.Equal(t, c, deps[0].To)
	require.Equal(t, b, deps[1].To)
}

func TestGetDependents(t *testing.T) {
	g := New()
	a, b := module.ID("/a"), module.ID("/b")
	g.AddModule(a, mkInfo("/a", false))
	g.AddModule(b, mkInfo("/b", false))
	g.AddDependency(a, b, module.Dependency{})

	require.Equal(t, []module.ID{a}, g.GetDependents(b))
}

func TestReplaceModulePreservesEdges(t *testing.T) {
	g := New()
	a, b := module.ID("/a"), module.ID("/b")
	g.AddModule(a, mkInfo("/a", false))
	g.AddModule(b, mkInfo("/b", false))
	g.AddDependency(a, b, module.Dependency{})

	g.ReplaceModule(a, mkInfo("/a", false))
	require.Len(t, g.GetDependencies(a), 1)
	require.Equal(t, b, g.GetDependencies(a)[0].To)
}

func TestToposortLinearChain(t *testing.T) {
	g := New()
	a, b, c := module.ID("/a"), module.ID("/b"), module.ID("/c")
	g.AddModule(a, mkInfo("/a", true))
	g.AddModule(b, mkInfo("/b", false))
	g.AddModule(c, mkInfo("/c", false))
	g.AddDependency(a, b, module.Dependency{})
	g.AddDependency(b, c, module.Dependency{})

	order, cycles := g.Toposort()
	require.Len(t, order, 3)
	require.Empty(t, cycles)

	pos := make(map[module.ID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	require.Less(t, pos[a], pos[b])
	require.Less(t, pos[b], pos[c])
}

func TestToposortDetectsCycle(t *testing.T) {
	g := New()
	a, b := module.ID("/a"), module.ID("/b")
	g.AddModule(a, mkInfo("/a", false))
	g.AddModule(b, mkInfo("/b", false))
	g.AddDependency(a, b, module.Dependency{})
	g.AddDependency(b, a, module.Dependency{})

	_, cycles := g.Toposort()
	require.Len(t, cycles, 1)
	require.Len(t, cycles[0], 2)
}

func TestMarkAsyncPropagatesAcrossSyncESMEdge(t *testing.T) {
	g := New()
	entry := mkInfo("/entry", true)
	asyncDep := mkInfo("/async-dep", false)
	asyncDep.TopLevelAwait = true

	g.AddModule(module.ID("/entry"), entry)
	g.AddModule(module.ID("/async-dep"), asyncDep)
	g.AddDependency(module.ID("/entry"), module.ID("/async-dep"), module.Dependency{
		Type: module.ResolveType{Kind: module.ImportKind},
	})

	g.MarkAsync()
	require.True(t, asyncDep.IsAsync)
	require.True(t, entry.IsAsync)
}

func TestMarkAsyncDoesNotPropagateAcrossDynamicImport(t *testing.T) {
	g := New()
	entry := mkInfo("/entry", true)
	asyncDep := mkInfo("/async-dep", false)
	asyncDep.TopLevelAwait = true

	g.AddModule(module.ID("/entry"), entry)
	g.AddModule(module.ID("/async-dep"), asyncDep)
	g.AddDependency(module.ID("/entry"), module.ID("/async-dep"), module.Dependency{
		Type: module.ResolveType{Kind: module.DynamicImport},
	})

	g.MarkAsync()
	require.True(t, asyncDep.IsAsync)
	require.False(t, entry.IsAsync)
}
