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
	"fmt"

	"bennypowers.dev/mako/diag"
)

// resolve is the heart of the engine: it returns a fresh Output for id,
// recomputing the cell (and, transitively, any stale cell in its read-set)
// if needed. Freshness is defined recursively (spec §4.1): a task is fresh
// iff every cell in its read-set is fresh and has the same content hash as
// when recorded.
func (e *Engine) resolve(ctx context.Context, id CellID) (Output, error) {
	c := e.cellByID(id)
	if c == nil {
		return Output{}, fmt.Errorf("engine: unknown cell %d", id)
	}
	return e.resolveCell(ctx, c)
}

func (e *Engine) resolveCell(ctx context.Context, c *cell) (Output, error) {
	for {
		c.mu.Lock()
		switch c.state {
		case stateFresh:
			if e.isStillFresh(ctx, c) {
				out := c.output
				c.mu.Unlock()
				return out, nil
			}
			c.state = stateDirty
			c.done = make(chan struct{})
			c.mu.Unlock()
			continue
		case statePending:
			done := c.done
			c.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return Output{}, ctx.Err()
			}
		case stateDirty:
			c.state = statePending
			prev := c.output
			done := c.done
			c.mu.Unlock()

			out := e.sched.run(ctx, e, c)
			if sameFailure(prev, out) {
				// Same diagnostics as last time: keep the previous Output so a
				// dependent's recorded hash still matches and the failure is
				// not re-reported as something new (spec §4.1 "Failure").
				out = prev
			}

			c.mu.Lock()
			c.state = stateFresh
			c.output = out
			c.epoch = e.epoch.Load()
			closeOnce(done)
			c.mu.Unlock()
			return out, nil
		}
	}
}

func closeOnce(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// isStillFresh re-validates every cell in c's recorded read-set, comparing
// the read-set's content hash to what was observed when c was last
// computed. It recurses, so a dirty grandparent cell invalidates through
// its whole dependent chain lazily.
func (e *Engine) isStillFresh(ctx context.Context, c *cell) bool {
	if len(c.readSet) == 0 {
		// Root cells have no read-set: freshness is "has not been
		// explicitly Invalidate()'d", already reflected in c.state.
		return true
	}
	for _, depID := range c.readSet {
		dep := e.cellByID(depID)
		if dep == nil {
			return false
		}
		out, err := e.resolveCell(ctx, dep)
		if err != nil {
			return false
		}
		recordedHash, ok := c.recordedHashes()[depID]
		if !ok || recordedHash != out.Hash {
			return false
		}
	}
	return true
}

// recordedHashes is populated by TaskContext.Await while a task runs; it is
// stored as part of the cell after the compute finishes (see scheduler.go).
func (c *cell) recordedHashes() map[CellID]uint64 {
	if c.hashes == nil {
		return map[CellID]uint64{}
	}
	return c.hashes
}

// sameFailure implements the "report diagnostics once per unique error" rule
// (spec §4.1): a Failed output with unchanged diagnostics is treated as the
// same failure as before rather than a fresh one.
func sameFailure(prev, next Output) bool {
	if !prev.Failed || !next.Failed {
		return false
	}
	return diag.Equal(prev.Diagnostics, next.Diagnostics)
}
