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
	"runtime"

	"bennypowers.dev/mako/diag"
	"github.com/cespare/xxhash/v2"
)

// Hasher lets a task's output opt into a precise content hash. Values that
// don't implement it fall back to a stringified hash, matching the
// teacher's "compute a digest over whatever content we have" pattern in
// sourcefile.AssetNameHash / ContentHash.
type Hasher interface {
	ContentHash() uint64
}

// scheduler is a fixed pool of goroutines pulling task bodies off a shared
// job channel — a work-stealing pool in the sense that an idle worker picks
// up the next ready job rather than owning a private queue (spec §4.1
// "Scheduling").
type scheduler struct {
	jobs chan func()
	done chan struct{}
}

func newScheduler(workers int) *scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	s := &scheduler{
		jobs: make(chan func()),
		done: make(chan struct{}),
	}
	for range workers {
		go s.worker()
	}
	return s
}

func (s *scheduler) worker() {
	for {
		select {
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			job()
		case <-s.done:
			return
		}
	}
}

func (s *scheduler) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// run executes c's task body on the pool and blocks the caller until it
// finishes or ctx is cancelled. The task body's own suspension points
// (Await calls) are cooperative: they call back into resolve, which may
// itself dispatch more jobs onto the same pool.
func (s *scheduler) run(ctx context.Context, e *Engine, c *cell) Output {
	result := make(chan Output, 1)

	job := func() {
		tc := &TaskContext{ctx: ctx, engine: e, self: c}

		defer func() {
			if r := recover(); r != nil {
				ds := []diag.Diagnostic{{
					Path:     "<task>",
					Severity: diag.Error,
					Kind:     diag.Transform,
					Reason:   fmt.Sprintf("task panicked: %v", r),
				}}
				result <- Output{Failed: true, Diagnostics: ds, Hash: diagHash(ds)}
			}
		}()

		val, err := c.fn(tc)

		c.mu.Lock()
		c.readSet = tc.readSet
		c.hashes = tc.hashes
		c.effects = tc.effects
		c.mu.Unlock()

		if err != nil {
			if fe, ok := err.(*FailedError); ok {
				result <- Output{Failed: true, Diagnostics: fe.Diagnostics, Hash: diagHash(fe.Diagnostics)}
				return
			}
			ds := []diag.Diagnostic{{
				Path:     "<task>",
				Severity: diag.Error,
				Kind:     diag.Transform,
				Reason:   err.Error(),
			}}
			result <- Output{Failed: true, Diagnostics: ds, Hash: diagHash(ds)}
			return
		}

		hash := tc.selfHash
		if hash == 0 {
			hash = genericHash(val)
		}
		result <- Output{Value: val, Hash: hash}
	}

	select {
	case s.jobs <- job:
	case <-ctx.Done():
		return Output{Failed: true, Diagnostics: []diag.Diagnostic{{Reason: "cancelled", Kind: diag.Transform, Severity: diag.Error}}}
	}

	select {
	case out := <-result:
		return out
	case <-ctx.Done():
		return Output{Failed: true, Diagnostics: []diag.Diagnostic{{Reason: "cancelled", Kind: diag.Transform, Severity: diag.Error}}}
	}
}

// diagHash derives a content hash over a Failed output's diagnostics, so the
// cell's ordinary Hash-based freshness check (isStillFresh) distinguishes an
// unchanged failure from a genuinely different one, instead of treating every
// failure alike.
func diagHash(ds []diag.Diagnostic) uint64 {
	h := xxhash.New()
	for _, d := range ds {
		_, _ = h.Write([]byte(d.Path))
		_, _ = h.Write([]byte{byte(d.Severity), byte(d.Kind)})
		_, _ = h.Write([]byte(d.Reason))
	}
	return h.Sum64()
}

func genericHash(v any) uint64 {
	switch t := v.(type) {
	case Hasher:
		return t.ContentHash()
	case []byte:
		return xxhash.Sum64(t)
	case string:
		return xxhash.Sum64String(t)
	case nil:
		return 0
	default:
		return xxhash.Sum64String(fmt.Sprintf("%#v", v))
	}
}
