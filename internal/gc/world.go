// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"sync"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// A World tracks which mutator threads hold access to the heap.
//
// A thread holds access while it runs managed code and gives it up at
// safepoints, when it blocks, and when it detaches. The collector stops
// the world by waiting until no thread holds access, and halts a single
// thread by waiting until that thread gives up access. A thread that
// wants access back waits until neither is in effect.
//
// Only one goroutine at a time may stop the world; the collector
// serializes its own stops with exclusive-access requests.
type World struct {
	mu       sync.Mutex
	cond     sync.Cond
	stopping bool
	running  int // threads holding access
	threads  []*Thread

	// stop is set while a stop is requested, so that safepoint polls
	// take no lock.
	stop atomic.Bool

	stops atomic.Int64
}

func newWorld() *World {
	w := new(World)
	w.cond.L = &w.mu
	return w
}

// StopTheWorld waits until no thread holds access. Threads that poll a
// safepoint or try to acquire access block until StartTheWorld.
func (w *World) StopTheWorld() {
	w.mu.Lock()
	if w.stopping {
		w.mu.Unlock()
		base.Throw("gc: world stopped twice")
	}
	w.stopping = true
	w.stop.Store(true)
	for w.running > 0 {
		w.cond.Wait()
	}
	w.mu.Unlock()
	w.stops.Add(1)
}

// StartTheWorld lets threads run again.
func (w *World) StartTheWorld() {
	w.mu.Lock()
	if !w.stopping {
		w.mu.Unlock()
		base.Throw("gc: world started but not stopped")
	}
	w.stopping = false
	w.stop.Store(false)
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Stopped reports whether the world is stopped or stopping.
func (w *World) Stopped() bool { return w.stop.Load() }

// Halt waits until t gives up access and keeps it from getting access
// back until Resume. Other threads keep running.
func (w *World) Halt(t *Thread) {
	w.mu.Lock()
	if t.attached {
		t.halt = true
		t.haltReq.Store(true)
		for t.active {
			w.cond.Wait()
		}
	}
	w.mu.Unlock()
}

// Resume releases a thread halted by Halt.
func (w *World) Resume(t *Thread) {
	w.mu.Lock()
	t.halt = false
	t.haltReq.Store(false)
	w.cond.Broadcast()
	w.mu.Unlock()
}

// Threads returns the attached threads.
func (w *World) Threads() []*Thread {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Thread(nil), w.threads...)
}

// attach registers t and gives it access. init runs with the world
// lock held and the world running, before t can observe any phase.
func (w *World) attach(t *Thread, init func()) {
	w.mu.Lock()
	for w.stopping {
		w.cond.Wait()
	}
	init()
	t.attached = true
	w.threads = append(w.threads, t)
	t.active = true
	w.running++
	w.mu.Unlock()
}

// detach unregisters t, which must hold access.
func (w *World) detach(t *Thread) {
	w.mu.Lock()
	if !t.active {
		w.mu.Unlock()
		base.Throw("gc: detach without access")
	}
	t.active = false
	t.attached = false
	w.running--
	for i, u := range w.threads {
		if u == t {
			w.threads = append(w.threads[:i], w.threads[i+1:]...)
			break
		}
	}
	w.cond.Broadcast()
	w.mu.Unlock()
}

func (w *World) acquire(t *Thread) {
	w.mu.Lock()
	if t.active {
		w.mu.Unlock()
		base.Throw("gc: thread already holds access")
	}
	for w.stopping || t.halt {
		w.cond.Wait()
	}
	t.active = true
	w.running++
	w.mu.Unlock()
}

func (w *World) release(t *Thread) {
	w.mu.Lock()
	if !t.active {
		w.mu.Unlock()
		base.Throw("gc: thread does not hold access")
	}
	t.active = false
	w.running--
	w.cond.Broadcast()
	w.mu.Unlock()
}

// poll reports whether t must stop at its next safepoint.
func (w *World) poll(t *Thread) bool {
	return w.stop.Load() || t.haltReq.Load()
}
