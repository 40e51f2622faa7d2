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

// Package cache reads and writes the persisted ".mako_cache" file (spec §6
// "Persisted cache (optional)"): a single gob-encoded file keyed by a
// content hash of configured boundaries (resolved dependency versions,
// config). Absence, a boundary-hash mismatch, or a truncated/corrupt file
// all force a cold rebuild rather than returning a partial cache — mirrors
// the teacher's package-lock-or-cold-build branch pattern used for its own
// on-disk manifest cache (manifest/manifest.go's atomic-write-then-rename).
package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const fileName = ".mako_cache"

// Entry is one cached module's last-known content hash and generated id,
// keyed by module.ID in the Cache's map. Kept as plain data (no AST) so the
// cache file stays small and gob-stable across builds.
type Entry struct {
	ContentHash  uint64
	GeneratedID  string
	Dependencies []string // dependency module IDs, for a quick staleness probe
}

// Cache is the deserialized form of .mako_cache.
type Cache struct {
	// BoundaryHash is a content hash over the configured boundaries: the
	// resolved config, the module-id strategy, and (eventually) tool
	// versions. A mismatch invalidates the entire cache rather than
	// attempting partial reuse.
	BoundaryHash uint64
	Entries      map[string]Entry
}

func New(boundaryHash uint64) *Cache {
	return &Cache{BoundaryHash: boundaryHash, Entries: make(map[string]Entry)}
}

// Path returns the absolute path to the cache file under projectRoot.
func Path(projectRoot string) string {
	return filepath.Join(projectRoot, fileName)
}

// Load reads the cache file at path. It returns (nil, nil) — not an error —
// on a missing file, so callers can treat "no cache" and "cold start" the
// same way. A corrupt or truncated file is also treated as absent; its
// content is never surfaced as a build-fatal error since the cache is
// explicitly optional.
func Load(path string, wantBoundaryHash uint64) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, nil
	}

	var c Cache
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&c); err != nil {
		return nil, nil
	}
	if c.BoundaryHash != wantBoundaryHash {
		return nil, nil
	}
	if c.Entries == nil {
		c.Entries = make(map[string]Entry)
	}
	return &c, nil
}

// Save atomically writes the cache: encode to a temp file in the same
// directory, then rename, so a crash mid-write never leaves a half-written
// file that Load would have to detect as corrupt.
func Save(path string, c *Cache) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cache: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cache: rename: %w", err)
	}
	return nil
}

// Get returns the cached entry for a module id, reporting whether it was
// present.
func (c *Cache) Get(moduleID string) (Entry, bool) {
	e, ok := c.Entries[moduleID]
	return e, ok
}

// Put records (or overwrites) a module's cache entry.
func (c *Cache) Put(moduleID string, e Entry) {
	c.Entries[moduleID] = e
}

// Fresh reports whether moduleID's cached content hash matches currentHash
// — the same freshness test the engine applies to a cell's read-set (spec
// §4.1), specialized to the on-disk cache's coarser module-level grain.
func (c *Cache) Fresh(moduleID string, currentHash uint64) bool {
	e, ok := c.Entries[moduleID]
	return ok && e.ContentHash == currentHash
}
