// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"sync"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// A RootScanner enumerates roots held outside the collector: statics,
// handles, native stacks. The collector always scans its own global
// table and each thread's shadow stack; a RootScanner adds to them.
type RootScanner interface {
	// ScanRoots passes every global root to mark. The world is
	// stopped.
	ScanRoots(mark func(heap.Addr))
	// ScanThread passes t's stack roots to mark. t is halted; other
	// threads may be running.
	ScanThread(t *Thread, mark func(heap.Addr))
}

// globals is the collector's table of global roots. Stores go through
// a thread's write barrier.
type globals struct {
	slots []atomic.Uint64
}

func (g *globals) load(i int) heap.Addr { return heap.Addr(g.slots[i].Load()) }

func (g *globals) swap(i int, v heap.Addr) heap.Addr {
	return heap.Addr(g.slots[i].Swap(uint64(v)))
}

func (g *globals) scan(mark func(heap.Addr)) {
	for i := range g.slots {
		if a := heap.Addr(g.slots[i].Load()); a != heap.Nil {
			mark(a)
		}
	}
}

// finq holds objects whose finalizers are due. They stay roots until
// the embedder takes them.
type finq struct {
	mu   sync.Mutex
	objs []heap.Addr
}

func (q *finq) add(obj heap.Addr) {
	q.mu.Lock()
	q.objs = append(q.objs, obj)
	q.mu.Unlock()
}

func (q *finq) take() []heap.Addr {
	q.mu.Lock()
	objs := q.objs
	q.objs = nil
	q.mu.Unlock()
	return objs
}

func (q *finq) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.objs)
}

func (q *finq) scan(mark func(heap.Addr)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, obj := range q.objs {
		mark(obj)
	}
}
