// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/alloc"
	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/lifecycle"
	"github.com/eclipse-openj9/openj9-sub077/internal/mark"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
)

// A Thread is a mutator attached to a collector. It owns an allocation
// context, a write barrier, lifecycle buffers and a shadow stack of
// local roots. A Thread must be used by one goroutine at a time, and
// that goroutine must hold access (see Release) for every call except
// Acquire.
//
// Allocate polls a safepoint. A thread that runs long without
// allocating should call Safepoint, or the collector cannot stop it.
type Thread struct {
	c       *Collector
	id      int64
	ctx     *alloc.Context
	barrier *mark.Barrier
	life    *lifecycle.Buffers
	stack   []heap.Addr

	// Guarded by World.mu.
	attached bool
	active   bool
	halt     bool

	haltReq atomic.Bool
}

var threadIDs atomic.Int64

// NewThread attaches a new mutator thread. The calling goroutine holds
// access on return.
func (c *Collector) NewThread() (*Thread, error) {
	if c.closed.Load() {
		return nil, base.ErrClosed
	}
	t := &Thread{
		c:       c,
		id:      threadIDs.Add(1),
		barrier: mark.NewBarrier(c.mark.RememberedSet(), c.opts.BarrierBufferSize),
		life:    c.life.NewBuffers(c.opts.LifecycleBufferSize),
	}
	t.ctx = alloc.NewContext(c.heap, c.sweep, c, &c.opts)
	c.world.attach(t, func() {
		// A new thread's stack holds nothing from before the
		// snapshot, so it needs no double barrier and no scan.
		if c.barriers.Load() {
			t.barrier.Enable(false)
		}
	})
	return t, nil
}

func (t *Thread) String() string { return fmt.Sprintf("thread %d", t.id) }

// ID returns the thread's identifier.
func (t *Thread) ID() int64 { return t.id }

// Safepoint gives the collector a chance to stop or halt t.
func (t *Thread) Safepoint() {
	w := t.c.world
	if w.poll(t) {
		w.release(t)
		w.acquire(t)
	}
}

// Release gives up access to the heap, for example before blocking.
// The thread must not touch the heap or its stack until Acquire.
func (t *Thread) Release() { t.c.world.release(t) }

// Acquire takes access back, waiting while the world is stopped or t
// is halted.
func (t *Thread) Acquire() { t.c.world.acquire(t) }

// Allocate returns size bytes of zeroed heap memory. If the heap is
// full it waits for a collection and tries again, up to AllocRetries
// times, before failing with ErrOutOfMemory. While another thread waits
// for memory, t takes no new regions and waits for the same collection;
// that wait does not count as a retry.
func (t *Thread) Allocate(size base.Bytes) (heap.Addr, error) {
	t.Safepoint()
	defer func() { t.ctx.Waited = false }()
	for attempt := 0; ; {
		if a, ok := t.ctx.Allocate(size); ok {
			return a, nil
		}
		if !t.ctx.Throttled {
			if attempt >= t.c.opts.AllocRetries {
				base.Logger().Warning("rtgc: %v: out of memory allocating %v", t, size)
				return heap.Nil, base.ErrOutOfMemory
			}
			attempt++
		}
		t.c.allocStalls.Add(1)
		t.Release()
		t.c.waitForMemory()
		t.Acquire()
		t.ctx.Waited = true
	}
}

// New allocates an object of kind with n slots (or n payload bytes for
// a leaf) and writes its header. The collector's model must be an
// object.Builder.
func (t *Thread) New(kind object.Kind, n int) (heap.Addr, error) {
	b := t.c.builder
	if b == nil {
		return heap.Nil, errNoBuilder
	}
	a, err := t.Allocate(b.SizeOf(kind, n))
	if err != nil {
		return heap.Nil, err
	}
	b.Init(a, kind, n)
	return a, nil
}

func (t *Thread) slot(obj heap.Addr, i int) heap.Addr {
	first, n := t.c.model.Slots(obj)
	if i < 0 || i >= n {
		base.Throwf("gc: slot %d of %v out of range [0,%d)", i, obj, n)
	}
	return object.SlotAddr(first, i)
}

// ReadRef returns reference slot i of obj. Reading the referent of a
// reference object keeps it alive for the rest of the cycle.
func (t *Thread) ReadRef(obj heap.Addr, i int) heap.Addr {
	v := t.c.heap.Arena().LoadAddr(t.slot(obj, i))
	if i == 0 && v != heap.Nil && t.c.model.Kind(obj) == object.Reference {
		t.barrier.ReadWeak(v)
	}
	return v
}

// WriteRef stores v in reference slot i of obj through the write
// barrier.
func (t *Thread) WriteRef(obj heap.Addr, i int, v heap.Addr) {
	old := t.c.heap.Arena().SwapAddr(t.slot(obj, i), v)
	t.barrier.WriteRef(old, v)
}

// ReadGlobal returns global root i.
func (t *Thread) ReadGlobal(i int) heap.Addr { return t.c.globals.load(i) }

// WriteGlobal stores v in global root i through the write barrier.
func (t *Thread) WriteGlobal(i int, v heap.Addr) {
	old := t.c.globals.swap(i, v)
	t.barrier.WriteRef(old, v)
}

// Push pushes a local root and returns its stack index.
func (t *Thread) Push(a heap.Addr) int {
	t.stack = append(t.stack, a)
	return len(t.stack) - 1
}

// Pop removes and returns the top local root.
func (t *Thread) Pop() heap.Addr {
	n := len(t.stack)
	if n == 0 {
		base.Throw("gc: pop of empty shadow stack")
	}
	a := t.stack[n-1]
	t.stack = t.stack[:n-1]
	return a
}

// Local returns local root i.
func (t *Thread) Local(i int) heap.Addr { return t.stack[i] }

// SetLocal replaces local root i. Stack stores take no barrier: the
// double barrier covers them until the stack is scanned.
func (t *Thread) SetLocal(i int, a heap.Addr) { t.stack[i] = a }

// Depth returns the number of local roots.
func (t *Thread) Depth() int { return len(t.stack) }

// Truncate drops local roots above depth n.
func (t *Thread) Truncate(n int) { t.stack = t.stack[:n] }

// RegisterFinalizer arranges for obj to be queued as finalizable the
// first time a cycle finds it unreachable.
func (t *Thread) RegisterFinalizer(obj heap.Addr) {
	t.life.Unfinalized.Add(obj)
}

// RegisterContinuation tracks obj until a cycle finds it unreachable,
// at which point the collector reports it dead.
func (t *Thread) RegisterContinuation(obj heap.Addr) {
	t.life.Continuations.Add(obj)
}

// Collect runs a full collection cycle, giving up access meanwhile.
func (t *Thread) Collect(ctx context.Context) error {
	t.Release()
	defer t.Acquire()
	return t.c.Collect(ctx)
}

// Detach flushes t's caches and unregisters it. t must not be used
// afterwards.
func (t *Thread) Detach() {
	t.flush()
	t.ctx.Flush()
	t.c.world.detach(t)
}

// flush publishes t's barrier and lifecycle buffers.
func (t *Thread) flush() {
	t.barrier.Flush()
	t.life.Flush()
}

func (t *Thread) scanStack(mark func(heap.Addr)) {
	for _, a := range t.stack {
		if a != heap.Nil {
			mark(a)
		}
	}
}

// Stats returns t's allocation counters.
func (t *Thread) Stats() (objects, bytes, failed int64) {
	return t.ctx.Objects, t.ctx.Allocated, t.ctx.Failed
}
