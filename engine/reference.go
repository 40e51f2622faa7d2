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

package engine

import (
	"context"

	"bennypowers.dev/mako/diag"
)

// Reference is an opaque handle to a cell. Equality of References is cell
// identity: two References with the same id refer to the same memoized
// computation, however many call sites spawned them.
type Reference struct {
	id     CellID
	engine *Engine
}

// ID exposes the structural hash for diagnostics and test assertions; it is
// not meant to be parsed or relied on for anything but equality/logging.
func (r Reference) ID() CellID { return r.id }

// Await blocks the calling task (or, at the top level, the driver) until
// the referenced cell is fresh, returning its Output.
func (r Reference) Await(ctx context.Context) (Output, error) {
	return r.engine.resolve(ctx, r.id)
}

// ResolvedReference pairs a Reference with the Output it was materialized
// to at the current epoch, so the value can be reused as an input without
// triggering another await/consistency check. Reference.Await and
// TaskContext.Await return the Output or value directly, not a
// ResolvedReference.
type ResolvedReference struct {
	Reference
	Output Output
}

// TaskContext is passed to a task body. It exposes Await (suspend until an
// input is ready, recording the read-set and hash) and Emit (queue an
// effect for later ApplyEffects).
type TaskContext struct {
	ctx      context.Context
	engine   *Engine
	self     *cell
	readSet  []CellID
	hashes   map[CellID]uint64
	effects  []Effect
	selfHash uint64
}

// Await resolves ref, recording it in the running task's read-set so future
// freshness checks know to re-validate it.
func (tc *TaskContext) Await(ref Reference) (any, error) {
	out, err := tc.engine.resolve(tc.ctx, ref.id)
	if err != nil {
		return nil, err
	}
	tc.readSet = append(tc.readSet, ref.id)
	if tc.hashes == nil {
		tc.hashes = make(map[CellID]uint64)
	}
	tc.hashes[ref.id] = out.Hash
	if out.Failed {
		return out.Value, &FailedError{Diagnostics: out.Diagnostics}
	}
	return out.Value, nil
}

func (tc *TaskContext) recordHash(h uint64) {
	// Root tasks call this directly instead of Await-ing another cell; the
	// hash becomes this cell's own output hash, checked next epoch.
	tc.selfHash = h
}

// Emit queues a side effect (diagnostic, log line, file write) that is
// applied only when the caller commits to this task's output via
// ApplyEffects — never applied speculatively. ApplyEffects keeps no record
// of earlier calls, so calling it twice applies the effects twice.
func (tc *TaskContext) Emit(e Effect) {
	tc.effects = append(tc.effects, e)
}

// Done reports whether the task's epoch has been cancelled — tasks should
// check this at suspension points and return early without publishing
// partial effects (spec §5 "Cancellation").
func (tc *TaskContext) Done() <-chan struct{} {
	return tc.ctx.Done()
}

// FailedError wraps diagnostics so a task that awaits a Failed dependency
// can choose to propagate (return the error) or recover (inspect
// err.Diagnostics and substitute a stub value), matching the propagation
// policy in spec §7.
type FailedError struct {
	Diagnostics []diag.Diagnostic
}

func (e *FailedError) Error() string { return "engine: dependency failed" }
