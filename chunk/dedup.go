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

package chunk

// Dedup coalesces Async chunks whose serialized size falls below
// minChunkSize and that have exactly one Entry-chunk ancestor, merging
// their modules into that ancestor and removing the merged modules from
// any sibling async chunks (spec §4.5 "Deduplication").
func Dedup(g *Graph, size func(*Chunk) int, minChunkSize int) {
	ancestors := entryAncestors(g)

	var survivors []*Chunk
	merged := make(map[ID]ID) // coalesced chunk id -> its surviving ancestor id
	var coalesced []*Chunk

	for _, c := range g.Chunks {
		if c.Kind != Async {
			survivors = append(survivors, c)
			continue
		}
		owners := ancestors[c.ID]
		if len(owners) != 1 || size(c) >= minChunkSize {
			survivors = append(survivors, c)
			continue
		}
		ancestor := findChunk(g, owners[0])
		if ancestor == nil {
			survivors = append(survivors, c)
			continue
		}
		for _, m := range c.Modules {
			ancestor.add(m)
		}
		merged[c.ID] = ancestor.ID
		coalesced = append(coalesced, c)
	}
	g.Chunks = survivors

	// Remove merged modules from any sibling async chunk (one whose only
	// entry ancestor is the same chunk) that also happened to include them
	// (they're now guaranteed present in the ancestor instead).
	for _, c := range g.Chunks {
		if c.Kind != Async {
			continue
		}
		owners := ancestors[c.ID]
		for _, cc := range coalesced {
			if len(owners) == 1 && owners[0] == merged[cc.ID] {
				for _, m := range cc.Modules {
					c.remove(m)
				}
			}
		}
	}

	// Rewrite edges: anything that pointed at a coalesced chunk now points
	// at the surviving ancestor instead.
	for from, tos := range g.edges {
		var out []ID
		for _, to := range tos {
			if newTo, ok := merged[to]; ok {
				to = newTo
			}
			out = appendUniqueID(out, to)
		}
		g.edges[from] = out
	}
}

func appendUniqueID(s []ID, v ID) []ID {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func findChunk(g *Graph, id ID) *Chunk { return findChunkByID(g, id) }

func findChunkByID(g *Graph, id ID) *Chunk {
	for _, c := range g.Chunks {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// entryAncestors maps every chunk id to the set of Entry chunk ids that can
// reach it by following chunk edges — used to test "exactly one entry-chunk
// ancestor" for dedup eligibility.
func entryAncestors(g *Graph) map[ID][]ID {
	result := make(map[ID][]ID)
	for _, entry := range g.Chunks {
		if entry.Kind != Entry {
			continue
		}
		visited := make(map[ID]bool)
		var walk func(ID)
		walk = func(id ID) {
			if visited[id] {
				return
			}
			visited[id] = true
			result[id] = appendUniqueID(result[id], entry.ID)
			for _, to := range g.edges[id] {
				walk(to)
			}
		}
		walk(entry.ID)
	}
	return result
}
