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

// Package engine is the incremental task engine (spec §4.1): a
// content-addressed memoizer over a bipartite graph of Cells and Task
// Invocations, scheduled across a worker pool with lazy, pull-based
// invalidation.
package engine

import (
	"sync"

	"bennypowers.dev/mako/diag"
	"github.com/cespare/xxhash/v2"
)

// CellID is the structural-hash identity of a cell: hash(task_fn_id,
// arg_cells...) for computed cells, or hash(root_key) for externally-owned
// root cells (file content, env vars). Two Cells with equal CellID are the
// same cell — this is what lets distinct call sites share downstream work.
type CellID uint64

// Output is the value held by a Cell once computed. A Failed output is not
// a Go error: it is a first-class value so dependents can observe and reuse
// it without re-raising (spec §4.1 "Failure").
type Output struct {
	Value       any
	Hash        uint64
	Failed      bool
	Diagnostics []diag.Diagnostic
}

// Effect is a side operation (log, diagnostic, emit) queued during a task's
// execution and applied only after the caller commits to the result via
// ApplyEffects.
type Effect struct {
	Kind    string
	Payload any
}

type cellState int

const (
	stateDirty cellState = iota
	statePending
	stateFresh
)

// cell is the engine's internal node. Identity is its CellID; equality of
// References is cell identity, which is how interning works: two spawn
// calls with the same task_fn_id and arg cells resolve to the same *cell.
type cell struct {
	id      CellID
	mu      sync.Mutex
	state   cellState
	output  Output
	readSet []CellID          // cells consulted while computing this cell's output
	hashes  map[CellID]uint64 // content hash of each readSet cell at record time
	effects []Effect
	done    chan struct{} // closed once the first computation finishes
	epoch   uint64        // epoch at which this cell was last (re)computed

	fn   taskFn
	args []CellID
}

// taskFn is the pure function body behind a spawned task. It receives a
// *TaskContext so it can await its declared args and record its read-set.
type taskFn func(tc *TaskContext) (any, error)

func structuralHash(taskFnID string, argIDs []CellID) CellID {
	h := xxhash.New()
	_, _ = h.Write([]byte(taskFnID))
	for _, id := range argIDs {
		var buf [8]byte
		putUint64(buf[:], uint64(id))
		_, _ = h.Write(buf[:])
	}
	return CellID(h.Sum64())
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func rootHash(key string) CellID {
	return CellID(xxhash.Sum64String(key))
}
