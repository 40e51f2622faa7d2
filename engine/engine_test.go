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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnMemoizesIdenticalCallSites(t *testing.T) {
	e := New(2)
	defer e.Close()

	var calls atomic.Int32
	fn := func(tc *TaskContext, args []any) (any, error) {
		calls.Add(1)
		return "value", nil
	}

	r1 := e.Spawn("double", nil, fn)
	r2 := e.Spawn("double", nil, fn)

	ctx := context.Background()
	out1, err := r1.Await(ctx)
	require.NoError(t, err)
	out2, err := r2.Await(ctx)
	require.NoError(t, err)

	require.Equal(t, r1.ID(), r2.ID(), "identical spawn call sites should intern to the same cell")
	require.Equal(t, "value", out1.Value)
	require.Equal(t, "value", out2.Value)
	require.Equal(t, int32(1), calls.Load(), "second spawn should reuse the cached cell, not recompute")
}

func TestRootInvalidationPropagates(t *testing.T) {
	e := New(2)
	defer e.Close()

	current := "v1"
	root := e.Root("file:///a.ts", func() (any, uint64, error) {
		return current, HashContentString(current), nil
	})

	var derivedCalls atomic.Int32
	derived := e.Spawn("upper", []Reference{root}, func(tc *TaskContext, args []any) (any, error) {
		derivedCalls.Add(1)
		return args[0].(string) + "!", nil
	})

	ctx := context.Background()
	out, err := e.ReadStronglyConsistent(ctx, derived)
	require.NoError(t, err)
	require.Equal(t, "v1!", out.Value)
	require.Equal(t, int32(1), derivedCalls.Load())

	// Re-reading without invalidation must not recompute.
	out, err = e.ReadStronglyConsistent(ctx, derived)
	require.NoError(t, err)
	require.Equal(t, "v1!", out.Value)
	require.Equal(t, int32(1), derivedCalls.Load())

	current = "v2"
	e.Invalidate("file:///a.ts")

	out, err = e.ReadStronglyConsistent(ctx, derived)
	require.NoError(t, err)
	require.Equal(t, "v2!", out.Value)
	require.Equal(t, int32(2), derivedCalls.Load(), "invalidated root should force exactly one recompute of its dependent")
}

func TestFailedOutputIsAValueNotAnError(t *testing.T) {
	e := New(2)
	defer e.Close()

	failing := e.Spawn("boom", nil, func(tc *TaskContext, args []any) (any, error) {
		return nil, &FailedError{}
	})

	ctx := context.Background()
	out, err := e.ReadStronglyConsistent(ctx, failing)
	require.NoError(t, err, "ReadStronglyConsistent itself does not error on a Failed output")
	require.True(t, out.Failed)
}

func TestParallelSpawnsRunConcurrently(t *testing.T) {
	// 8 workers: each of the 4 jobs holds a worker while its root input
	// runs on another.
	e := New(8)
	defer e.Close()

	start := make(chan struct{})
	var inflight atomic.Int32
	var maxInflight atomic.Int32

	makeFn := func() func(tc *TaskContext, args []any) (any, error) {
		return func(tc *TaskContext, args []any) (any, error) {
			n := inflight.Add(1)
			for {
				old := maxInflight.Load()
				if n <= old || maxInflight.CompareAndSwap(old, n) {
					break
				}
			}
			<-start
			inflight.Add(-1)
			return nil, nil
		}
	}

	refs := make([]Reference, 4)
	for i := range refs {
		refs[i] = e.Spawn("parallel-job", []Reference{e.Root(string(rune('a' + i)), func() (any, uint64, error) { return i, uint64(i + 1), nil })}, makeFn())
	}

	ctx := context.Background()
	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, r := range refs {
		wg.Add(1)
		go func(r Reference) {
			defer wg.Done()
			_, _ = r.Await(ctx)
		}(r)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(start)
	<-done

	require.GreaterOrEqual(t, maxInflight.Load(), int32(2), "distinct cells should execute concurrently on the worker pool")
}

// HashContentString is a tiny test helper mirroring sourcefile.HashContent
// for string roots, kept local so engine tests don't import sourcefile.
func HashContentString(s string) uint64 {
	h := uint64(1469598103934665603)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
