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

// Package module drives the per-file pipeline — load, parse, analyze_deps,
// resolve, transform — as engine tasks (spec §4.3).
package module

import "bennypowers.dev/mako/sourcefile"

// ID is the canonical identifier for a module: the absolute resolved path
// plus any significant query. Two modules compare equal iff their ID
// strings compare equal.
type ID string

// IDFromFile derives a module ID from a File descriptor.
func IDFromFile(f sourcefile.File) ID {
	return ID(f.ModuleIDString())
}

// GeneratedIDStrategy produces the short id embedded in runtime output for
// a module. It is pluggable: dev mode wants readable, stable-across-reruns
// ids; prod mode wants short hashed ids with collision resolution. Kept as
// a small interface (closed variant set, spec §9 "Dynamic dispatch") rather
// than open subclassing.
type GeneratedIDStrategy interface {
	GeneratedID(id ID, relPath string) string
}
