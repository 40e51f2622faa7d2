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

// Package diag defines the single diagnostic shape threaded through the
// pipeline, from a parse error to an HMR full-reload notice (spec §7).
package diag

import "fmt"

// Severity distinguishes a Warning (does not fail the build) from an Error.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind names the taxonomy bucket a Diagnostic belongs to (spec §7). It is a
// closed, small variant set, so a Go-idiomatic enum rather than an error
// type hierarchy.
type Kind int

const (
	Configuration Kind = iota
	Resolution
	Load
	Parse
	Transform
	Chunking
	Emit
	HMR
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Resolution:
		return "resolution"
	case Load:
		return "load"
	case Parse:
		return "parse"
	case Transform:
		return "transform"
	case Chunking:
		return "chunking"
	case Emit:
		return "emit"
	case HMR:
		return "hmr"
	default:
		return "unknown"
	}
}

// Position is a 1-indexed line/column, converted from a byte range.
type Position struct {
	Line   int
	Column int
}

// Diagnostic carries a file path, an optional converted position, severity,
// kind, and a human-readable reason.
type Diagnostic struct {
	Path     string
	Start    *Position
	End      *Position
	Severity Severity
	Kind     Kind
	Reason   string
}

func (d Diagnostic) Error() string {
	if d.Start != nil {
		return fmt.Sprintf("%s:%d:%d: %s: %s", d.Path, d.Start.Line, d.Start.Column, d.Severity, d.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", d.Path, d.Severity, d.Reason)
}

// PositionFromOffset converts a byte offset into a 1-indexed line/column by
// scanning src. It is O(n) and meant for the rare path — converting a single
// diagnostic's span, not hot-path parsing.
func PositionFromOffset(src []byte, offset int) Position {
	if offset > len(src) {
		offset = len(src)
	}
	line, col := 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return Position{Line: line, Column: col}
}

// Set collects diagnostics and reports whether any Error-severity entry
// exists, matching the teacher's LogCtx accumulation pattern
// (generate/parallel.go) but specialized to the Warning/Error taxonomy.
type Set struct {
	items []Diagnostic
}

func (s *Set) Add(d Diagnostic) { s.items = append(s.items, d) }

func (s *Set) All() []Diagnostic { return s.items }

func (s *Set) HasErrors() bool {
	for _, d := range s.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Equal reports whether two diagnostic sets contain the same reasons at the
// same positions — used by the task engine to decide whether a repeated
// Failed output should be reported again (spec §4.1 "Failure").
func Equal(a, b []Diagnostic) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Path != b[i].Path || a[i].Reason != b[i].Reason || a[i].Severity != b[i].Severity || a[i].Kind != b[i].Kind {
			return false
		}
	}
	return true
}
