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

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"bennypowers.dev/mako/module"
)

// DevIDStrategy assigns each module its project-root-relative path,
// unchanged, as its runtime id (spec §4.5 "Dev. Readable id").
type DevIDStrategy struct{}

func (DevIDStrategy) GeneratedID(id module.ID, relPath string) string { return relPath }

// ProdIDStrategy assigns a short XxHash-64-derived id, starting at 4 hex
// characters and extending one character at a time on collision (spec
// §4.5 "Prod (hashed)"). It must be consulted once per (chunk-formation,
// module) pair, in a stable order, for the collision-extension behavior to
// be deterministic across builds.
type ProdIDStrategy struct {
	assigned map[string]module.ID // generated id -> owning module, to detect collisions
}

func NewProdIDStrategy() *ProdIDStrategy {
	return &ProdIDStrategy{assigned: make(map[string]module.ID)}
}

func (s *ProdIDStrategy) GeneratedID(id module.ID, relPath string) string {
	sum := xxhash.Sum64String(relPath)
	hex := fmt.Sprintf("%016x", sum)

	for length := 4; length <= len(hex); length++ {
		candidate := hex[:length]
		owner, taken := s.assigned[candidate]
		if !taken || owner == id {
			s.assigned[candidate] = id
			return candidate
		}
	}
	// Exhausted the full 16 hex digits without a free slot: astronomically
	// unlikely for any real module count, but stay deterministic by
	// returning the full hash rather than panicking mid-build.
	s.assigned[hex] = id
	return hex
}
