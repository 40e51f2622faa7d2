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
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Engine owns the cell table and the worker pool that executes task bodies.
// It is safe for concurrent use; callers typically hold one Engine for the
// lifetime of a build (or, in watch mode, for the whole process).
type Engine struct {
	mu    sync.RWMutex
	cells map[CellID]*cell

	epoch  atomic.Uint64 // bumped on invalidation/cancellation; a new build epoch
	buildID string

	sched *scheduler
}

// New creates an Engine with a work-stealing pool sized to workers (0 means
// runtime.NumCPU(), mirroring generate.ModuleBatchProcessor's default).
func New(workers int) *Engine {
	e := &Engine{
		cells:   make(map[CellID]*cell),
		buildID: uuid.NewString(),
	}
	e.sched = newScheduler(workers)
	return e
}

// Close stops the worker pool. It does not invalidate cached cells.
func (e *Engine) Close() {
	e.sched.stop()
}

// Epoch returns the engine's current epoch counter, bumped by Invalidate.
func (e *Engine) Epoch() uint64 {
	return e.epoch.Load()
}

func (e *Engine) getOrCreateCell(id CellID, fn taskFn, args []CellID) *cell {
	e.mu.RLock()
	c, ok := e.cells[id]
	e.mu.RUnlock()
	if ok {
		return c
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cells[id]; ok {
		return c
	}
	c = &cell{
		id:    id,
		state: stateDirty,
		done:  make(chan struct{}),
		fn:    fn,
		args:  args,
	}
	e.cells[id] = c
	return c
}

// Spawn registers a task invocation and returns a Reference without running
// it. taskFnID identifies the task function (callers should pass a stable
// string, typically the function's package-qualified name) — together with
// the argument References it forms the structural hash that interns
// identical call sites onto one cell.
func (e *Engine) Spawn(taskFnID string, args []Reference, fn func(tc *TaskContext, args []any) (any, error)) Reference {
	argIDs := make([]CellID, len(args))
	for i, a := range args {
		argIDs[i] = a.id
	}
	id := structuralHash(taskFnID, argIDs)

	wrapped := func(tc *TaskContext) (any, error) {
		resolved := make([]any, len(args))
		for i, a := range args {
			v, err := tc.Await(a)
			if err != nil {
				return nil, err
			}
			resolved[i] = v
		}
		return fn(tc, resolved)
	}

	e.getOrCreateCell(id, wrapped, argIDs)
	return Reference{id: id, engine: e}
}

// Root registers an externally-owned input (file content, env var) keyed by
// a caller-chosen string. compute reads the current value. Root cells have
// no read-set of their own; Invalidate marks them dirty so the next
// strongly-consistent read recomputes them and, transitively, their
// dependents.
func (e *Engine) Root(key string, compute func() (any, uint64, error)) Reference {
	id := rootHash(key)
	fn := func(tc *TaskContext) (any, error) {
		v, hash, err := compute()
		if err != nil {
			return nil, err
		}
		tc.recordHash(hash)
		return v, nil
	}
	c := e.getOrCreateCell(id, fn, nil)
	_ = c
	return Reference{id: id, engine: e}
}

// Invalidate marks the root cell for key dirty. Dirtiness propagates lazily:
// nothing recomputes until a dependent is read via ReadStronglyConsistent.
func (e *Engine) Invalidate(key string) {
	id := rootHash(key)
	e.mu.RLock()
	c, ok := e.cells[id]
	e.mu.RUnlock()
	if !ok {
		return
	}
	c.mu.Lock()
	c.state = stateDirty
	c.done = make(chan struct{})
	c.mu.Unlock()
	e.epoch.Add(1)
}

// NewEpoch bumps the epoch counter, causing in-flight tasks to observe
// cancellation at their next suspension point (spec §5 "Cancellation").
func (e *Engine) NewEpoch() {
	e.epoch.Add(1)
}

func (e *Engine) cellByID(id CellID) *cell {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cells[id]
}

// ReadStronglyConsistent blocks until ref's cell, and its entire transitive
// read-set, have been re-validated at the current epoch, then returns the
// Output. This is the engine's only blocking entry point; everything else
// is cooperative suspension inside task bodies.
func (e *Engine) ReadStronglyConsistent(ctx context.Context, ref Reference) (Output, error) {
	return e.resolve(ctx, ref.id)
}
