package chunk

import (
	"fmt"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
	"bennypowers.dev/mako/sourcefile"
)

func addModule(g *modulegraph.Graph, id string, isEntry bool) module.ID {
	mid := module.ID(id)
	g.AddModule(mid, &module.Info{ID: mid, File: sourcefile.File{AbsPath: id, IsEntry: isEntry}})
	return mid
}

func TestFormEntryChunkIncludesSyncDeps(t *testing.T) {
	g := modulegraph.New()
	entry := addModule(g, "/src/index.ts", true)
	dep := addModule(g, "/src/util.ts", false)
	g.AddDependency(entry, dep, module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}})

	cg := Form(g)
	require.Len(t, cg.Chunks, 1)
	require.Equal(t, Entry, cg.Chunks[0].Kind)
	require.True(t, cg.Chunks[0].has(entry))
	require.True(t, cg.Chunks[0].has(dep))
}

func TestFormDynamicImportStartsAsyncChunk(t *testing.T) {
	g := modulegraph.New()
	entry := addModule(g, "/src/index.ts", true)
	lazy := addModule(g, "/src/lazy.ts", false)
	g.AddDependency(entry, lazy, module.Dependency{Type: module.ResolveType{Kind: module.DynamicImport}})

	cg := Form(g)
	require.Len(t, cg.Chunks, 2)

	var entryChunk, asyncChunk *Chunk
	for _, c := range cg.Chunks {
		if c.Kind == Entry {
			entryChunk = c
		} else if c.Kind == Async {
			asyncChunk = c
		}
	}
	require.NotNil(t, entryChunk)
	require.NotNil(t, asyncChunk)
	require.False(t, entryChunk.has(lazy))
	require.True(t, asyncChunk.has(lazy))
	require.Contains(t, cg.Edges(entryChunk.ID), asyncChunk.ID)
}

func TestFormWorkerStartsWorkerChunk(t *testing.T) {
	g := modulegraph.New()
	entry := addModule(g, "/src/index.ts", true)
	worker := addModule(g, "/src/worker.ts", false)
	g.AddDependency(entry, worker, module.Dependency{Type: module.ResolveType{Kind: module.Worker}})

	cg := Form(g)
	var workerChunk *Chunk
	for _, c := range cg.Chunks {
		if c.Kind == Worker {
			workerChunk = c
		}
	}
	require.NotNil(t, workerChunk)
	require.True(t, workerChunk.has(worker))
}

func TestDedupMergesSmallAsyncChunkIntoSingleAncestor(t *testing.T) {
	g := modulegraph.New()
	entry := addModule(g, "/src/index.ts", true)
	lazy := addModule(g, "/src/lazy.ts", false)
	g.AddDependency(entry, lazy, module.Dependency{Type: module.ResolveType{Kind: module.DynamicImport}})

	cg := Form(g)
	Dedup(cg, func(c *Chunk) int { return 10 }, 1024)

	require.Len(t, cg.Chunks, 1)
	require.Equal(t, Entry, cg.Chunks[0].Kind)
	require.True(t, cg.Chunks[0].has(lazy))
}

func TestDedupKeepsLargeAsyncChunkSeparate(t *testing.T) {
	g := modulegraph.New()
	entry := addModule(g, "/src/index.ts", true)
	lazy := addModule(g, "/src/lazy.ts", false)
	g.AddDependency(entry, lazy, module.Dependency{Type: module.ResolveType{Kind: module.DynamicImport}})

	cg := Form(g)
	Dedup(cg, func(c *Chunk) int { return 999999 }, 1024)

	require.Len(t, cg.Chunks, 2)
}

func TestApplyAutoSharedChunksExtractsVendors(t *testing.T) {
	g := modulegraph.New()
	entry := addModule(g, "/src/index.ts", true)
	vendorDep := addModule(g, "/src/node_modules/lodash/index.js", false)
	g.AddDependency(entry, vendorDep, module.Dependency{Type: module.ResolveType{Kind: module.ImportKind}})

	cg := Form(g)
	ApplyAutoSharedChunks(cg, func(module.ID) int { return 30 * 1024 }, DefaultSharedChunkConfig())

	var shared *Chunk
	for _, c := range cg.Chunks {
		if c.Kind == Shared {
			shared = c
		}
	}
	require.NotNil(t, shared)
	require.Equal(t, "vendors", shared.Name)
	require.True(t, shared.has(vendorDep))

	for _, c := range cg.Chunks {
		if c.Kind == Entry {
			require.False(t, c.has(vendorDep))
		}
	}
}

func TestProdIDStrategyIsIdempotentPerModule(t *testing.T) {
	s := NewProdIDStrategy()
	id1 := s.GeneratedID(module.ID("/a"), "/a")
	id2 := s.GeneratedID(module.ID("/a"), "/a")
	require.Equal(t, id1, id2)
	require.Len(t, id1, 4)
}

func TestProdIDStrategyExtendsOnCollision(t *testing.T) {
	hex := fmt.Sprintf("%016x", xxhash.Sum64String("/a"))
	s := &ProdIDStrategy{assigned: map[string]module.ID{hex[:4]: module.ID("/other")}}
	id := s.GeneratedID(module.ID("/a"), "/a")
	require.Equal(t, hex[:5], id)
}

func TestDevIDStrategyReturnsRelPathUnchanged(t *testing.T) {
	var s DevIDStrategy
	require.Equal(t, "src/index.ts", s.GeneratedID(module.ID("/a/src/index.ts"), "src/index.ts"))
}

func TestFilenameOmitsHashWhenEmpty(t *testing.T) {
	c := newChunk("c0", Entry, "main", "")
	require.Equal(t, "main.js", Filename(c, "", "js"))
	require.Equal(t, "main.abc123.js", Filename(c, "abc123", "js"))
}
