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

package emit

import (
	"reflect"
	"sort"

	"github.com/cespare/xxhash/v2"

	"bennypowers.dev/mako/module"
	"bennypowers.dev/mako/modulegraph"
)

// ChangeKind classifies one filesystem path relative to the previous graph
// (spec §4.7 "HMR diffing" step 1).
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Modified
)

// FileChange is one partitioned filesystem event.
type FileChange struct {
	Path string
	Kind ChangeKind
}

// Partition classifies changedPaths relative to the previous graph's known
// module paths: a path previousPaths contains is Modified, any other path is
// Added. It does not consult the filesystem, so it never reports Removed; a
// deleted file that was in the previous graph comes back as Modified.
func Partition(changedPaths []string, previousPaths map[string]bool) []FileChange {
	var out []FileChange
	for _, p := range changedPaths {
		switch {
		case previousPaths[p]:
			out = append(out, FileChange{Path: p, Kind: Modified})
		default:
			out = append(out, FileChange{Path: p, Kind: Added})
		}
	}
	return out
}

// DependencyDiff classifies one module's dependency-edge changes between
// an old and new rebuild (spec §4.7 step 4).
type DependencyDiff struct {
	Added, Removed, Changed []module.ID
}

// HasDependenceChange reports whether any edge was added, removed, or
// changed ResolveType.
func (d DependencyDiff) HasDependenceChange() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// DiffDependencies computes the per-module dependency diff between the
// deps recorded before and after rebuilding a Modified module.
func DiffDependencies(oldDeps, newDeps []modulegraph.Edge) DependencyDiff {
	oldByTarget := make(map[module.ID]module.Dependency, len(oldDeps))
	for _, e := range oldDeps {
		oldByTarget[e.To] = e.Dep
	}
	newByTarget := make(map[module.ID]module.Dependency, len(newDeps))
	for _, e := range newDeps {
		newByTarget[e.To] = e.Dep
	}

	var diff DependencyDiff
	for target, newDep := range newByTarget {
		oldDep, existed := oldByTarget[target]
		switch {
		case !existed:
			diff.Added = append(diff.Added, target)
		case !reflect.DeepEqual(oldDep.Type, newDep.Type):
			diff.Changed = append(diff.Changed, target)
		}
	}
	for target := range oldByTarget {
		if _, stillThere := newByTarget[target]; !stillThere {
			diff.Removed = append(diff.Removed, target)
		}
	}
	sortModuleIDs(diff.Added)
	sortModuleIDs(diff.Removed)
	sortModuleIDs(diff.Changed)
	return diff
}

func sortModuleIDs(ids []module.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// SnapshotHash is a content hash over the whole module graph's per-module
// content hashes (spec §4.7 step 6), in module-id-sorted order so it is
// independent of map iteration order.
func SnapshotHash(g *modulegraph.Graph) uint64 {
	ids := g.AllModuleIDs()
	sortModuleIDs(ids)

	h := xxhash.New()
	for _, id := range ids {
		info := g.Module(id)
		if info == nil {
			continue
		}
		_, _ = h.WriteString(string(id))
		var hashBytes [8]byte
		putUint64(hashBytes[:], info.Hash)
		_, _ = h.Write(hashBytes[:])
	}
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Update is the minimal HMR payload computed by Diff: the set of modules
// that changed or were newly added, plus the new snapshot hash.
type Update struct {
	Hash           string
	ModifiedOrNew  []module.ID
	Suppressed     bool // true if Hash equals the previous snapshot hash
}

// Diff computes spec §4.7's minimal HMR payload: a module is included iff
// it is in modifiedOrAdded, which the caller built by walking the
// transitive reverse-dependency closure of the changed files (spec §8
// "HMR minimality") plus any newly discovered modules from recursive
// rebuilding (step 5).
func Diff(g *modulegraph.Graph, modifiedOrAdded []module.ID, previousHash uint64) Update {
	newHash := SnapshotHash(g)
	u := Update{
		Hash:          hexHash(newHash),
		ModifiedOrNew: modifiedOrAdded,
		Suppressed:    newHash == previousHash,
	}
	return u
}

func hexHash(h uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[h&0xf]
		h >>= 4
	}
	return string(buf)
}
