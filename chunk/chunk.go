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

// Package chunk implements the L5 chunking engine: chunk formation from
// the module graph, async/vendor deduplication, and module/chunk id
// assignment (spec §4.5).
package chunk

import (
	"path/filepath"
	"sort"
	"strings"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
)

// Kind discriminates how a Chunk was rooted.
type Kind int

const (
	Entry Kind = iota
	Async
	Worker
	Shared
)

// ID identifies a chunk within a build; assigned sequentially during
// formation, stable for the lifetime of one Graph build.
type ID string

// Chunk is a set of modules emitted together as one output file.
type Chunk struct {
	ID      ID
	Kind    Kind
	Name    string // entry name, or root module's file stem for async/worker
	Root    module.ID
	Modules []module.ID // insertion order; membership also tracked in moduleSet
	moduleSet map[module.ID]bool
}

func newChunk(id ID, kind Kind, name string, root module.ID) *Chunk {
	return &Chunk{ID: id, Kind: kind, Name: name, Root: root, moduleSet: make(map[module.ID]bool)}
}

func (c *Chunk) add(id module.ID) bool {
	if c.moduleSet[id] {
		return false
	}
	c.moduleSet[id] = true
	c.Modules = append(c.Modules, id)
	return true
}

func (c *Chunk) has(id module.ID) bool { return c.moduleSet[id] }

func (c *Chunk) remove(id module.ID) {
	if !c.moduleSet[id] {
		return
	}
	delete(c.moduleSet, id)
	out := c.Modules[:0]
	for _, m := range c.Modules {
		if m != id {
			out = append(out, m)
		}
	}
	c.Modules = out
}

// Graph is the chunk dependency graph produced by chunk formation: chunks
// plus the edges between them (an Entry/Async chunk referencing an Async
// or Worker chunk it dynamically pulled in).
type Graph struct {
	Chunks   []*Chunk
	edges    map[ID][]ID
	byRoot   map[module.ID]*Chunk // root-module id -> its chunk, for dedup lookups during formation
	nextID   int
	deferred []deferredEdge
}

func newGraph() *Graph {
	return &Graph{edges: make(map[ID][]ID), byRoot: make(map[module.ID]*Chunk)}
}

func (g *Graph) alloc() ID {
	id := ID(fromInt(g.nextID))
	g.nextID++
	return id
}

func fromInt(n int) string {
	if n == 0 {
		return "c0"
	}
	buf := []byte("c")
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(append(buf, digits...))
}

func (g *Graph) addEdge(from, to ID) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Edges returns the chunk-to-chunk dependency edges recorded during
// formation (entry/async chunk -> the async/worker chunk it loads).
func (g *Graph) Edges(id ID) []ID { return g.edges[id] }

// Form builds the chunk graph from a module graph per spec §4.5 "Chunk
// formation": one Entry chunk per entry module, DFS'd; DynamicImport edges
// start a new Async chunk, Worker edges start a new Worker chunk, every
// other edge keeps its target in the current chunk. Chunk roots found
// during the DFS are queued and processed breadth-first.
func Form(g *modulegraph.Graph) *Graph {
	cg := newGraph()

	type queued struct {
		kind Kind
		root module.ID
		name string
	}
	var queue []queued
	for _, entry := range g.GetEntryModules() {
		queue = append(queue, queued{kind: Entry, root: entry, name: entryName(entry)})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if _, ok := cg.byRoot[item.root]; ok && item.kind != Entry {
			continue
		}

		c := newChunk(cg.alloc(), item.kind, item.name, item.root)
		cg.byRoot[item.root] = c
		cg.Chunks = append(cg.Chunks, c)

		visited := make(map[module.ID]bool)
		var dfs func(id module.ID)
		dfs = func(id module.ID) {
			if visited[id] {
				return
			}
			visited[id] = true
			c.add(id)
			for _, e := range g.GetDependencies(id) {
				switch e.Dep.Type.Kind {
				case module.DynamicImport:
					name := asyncName(e.To)
					queue = append(queue, queued{kind: Async, root: e.To, name: name})
					cg.deferEdge(c.ID, e.To)
				case module.Worker:
					name := workerName(e.To)
					queue = append(queue, queued{kind: Worker, root: e.To, name: name})
					cg.deferEdge(c.ID, e.To)
				default:
					dfs(e.To)
				}
			}
		}
		dfs(item.root)
	}

	cg.resolveDeferredEdges()
	return cg
}

// deferredEdge and resolveDeferredEdges exist because a chunk root queued
// during DFS doesn't have its chunk ID allocated yet — the edge source
// chunk id is known immediately, but the destination chunk id only exists
// once that queue entry is processed.
type deferredEdge struct {
	from ID
	to   module.ID
}

func (g *Graph) deferEdge(from ID, toRoot module.ID) {
	g.deferred = append(g.deferred, deferredEdge{from: from, to: toRoot})
}

func (g *Graph) resolveDeferredEdges() {
	for _, d := range g.deferred {
		if target, ok := g.byRoot[d.to]; ok {
			g.addEdge(d.from, target.ID)
		}
	}
	g.deferred = nil
}

func entryName(id module.ID) string {
	return stem(string(id))
}

func asyncName(id module.ID) string {
	return stem(string(id)) + "-async"
}

func workerName(id module.ID) string {
	return stem(string(id)) + "-worker"
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isUnderNodeModules(id module.ID) bool {
	return strings.Contains(string(id), "/node_modules/")
}

// sortedModuleIDs is a small helper used by the dedup/shared-chunk passes
// that need deterministic iteration over a chunk's members.
func sortedModuleIDs(ids []module.ID) []module.ID {
	out := append([]module.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
