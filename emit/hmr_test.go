package emit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/sourcefile"
)

func TestPartitionAddedVsModified(t *testing.T) {
	previous := map[string]bool{"/proj/src/foo.ts": true}
	changes := Partition([]string{"/proj/src/foo.ts", "/proj/src/new.ts"}, previous)

	byPath := map[string]ChangeKind{}
	for _, c := range changes {
		byPath[c.Path] = c.Kind
	}
	require.Equal(t, Modified, byPath["/proj/src/foo.ts"])
	require.Equal(t, Added, byPath["/proj/src/new.ts"])
}

func TestDiffDependenciesClassifiesAddedRemovedChanged(t *testing.T) {
	old := []modulegraph.Edge{
		{To: "a", Dep: module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}}},
		{To: "b", Dep: module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}}},
	}
	next := []modulegraph.Edge{
		{To: "a", Dep: module.Dependency{Type: module.ResolveType{Kind: module.Require}}}, // changed
		{To: "c", Dep: module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}}}, // added
	}

	diff := DiffDependencies(old, next)
	require.ElementsMatch(t, []module.ID{"c"}, diff.Added)
	require.ElementsMatch(t, []module.ID{"b"}, diff.Removed)
	require.ElementsMatch(t, []module.ID{"a"}, diff.Changed)
	require.True(t, diff.HasDependenceChange())
}

func TestDiffDependenciesNoChange(t *testing.T) {
	edges := []modulegraph.Edge{
		{To: "a", Dep: module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}}},
	}
	diff := DiffDependencies(edges, edges)
	require.False(t, diff.HasDependenceChange())
}

func TestSnapshotHashStableAndChangesWithContent(t *testing.T) {
	g := modulegraph.New()
	id := module.ID("/proj/src/a.ts")
	g.AddModule(id, &module.Info{ID: id, File: sourcefile.File{}, Hash: 1})

	h1 := SnapshotHash(g)
	h2 := SnapshotHash(g)
	require.Equal(t, h1, h2)

	g.AddModule(id, &module.Info{ID: id, File: sourcefile.File{}, Hash: 2})
	h3 := SnapshotHash(g)
	require.NotEqual(t, h1, h3)
}

func TestDiffSuppressesWhenHashUnchanged(t *testing.T) {
	g := modulegraph.New()
	id := module.ID("/proj/src/a.ts")
	g.AddModule(id, &module.Info{ID: id, File: sourcefile.File{}, Hash: 1})

	prev := SnapshotHash(g)
	update := Diff(g, nil, prev)
	require.True(t, update.Suppressed)
}
