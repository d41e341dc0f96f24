// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mark implements incremental marking: atomic marking of
// objects in the current mark bitmap, a yield-aware scan loop over work
// packets, splitting of large reference arrays, the
// snapshot-at-the-beginning write barrier, and the completion steps for
// finalizable objects, reference objects and continuations.
package mark

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/lifecycle"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
	"github.com/eclipse-openj9/openj9-sub077/internal/work"
)

// State is the marking state within a cycle.
type State int32

const (
	StateInit State = iota
	StateRoots
	StateScan
	StateComplete
)

var stateNames = [...]string{"init", "roots", "scan", "complete"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Stats counts marking work in the current cycle.
type Stats struct {
	Marked     int64 // objects marked
	Scanned    int64 // objects scanned
	Slots      int64 // reference slots followed
	Splits     int64 // array continuations pushed
	Overflowed int64 // items sent to the overflow path
	Refilled   int64 // overflowed regions refilled
	Resurrect  int64 // unfinalized objects made finalizable
	Cleared    int64 // reference objects cleared
}

// A Scheme is the marker for one heap.
type Scheme struct {
	heap       *heap.Manager
	model      object.Model
	pool       *work.Pool
	ovf        *work.RegionOverflow
	life       *lifecycle.Set
	rs         *RememberedSet
	yieldCheck int
	splitSize  int
	bufSize    int

	state atomic.Int32

	marked     atomic.Int64
	scanned    atomic.Int64
	slots      atomic.Int64
	splits     atomic.Int64
	overflowed atomic.Int64
	resurrect  atomic.Int64
	cleared    atomic.Int64
}

// NewScheme returns a marker over h. Objects are described by model;
// lifecycle objects discovered while scanning go to life.
func NewScheme(h *heap.Manager, model object.Model, life *lifecycle.Set, opts *base.Options) *Scheme {
	s := &Scheme{
		heap:       h,
		model:      model,
		life:       life,
		rs:         NewRememberedSet(),
		yieldCheck: opts.YieldCheckInterval,
		splitSize:  opts.ArraySplitSize,
		bufSize:    opts.LifecycleBufferSize,
	}
	s.ovf = work.NewRegionOverflow(h, opts)
	s.ovf.Slots = model
	s.pool = work.NewPool(opts, s.ovf)
	s.ovf.Notify = s.pool.Notify
	return s
}

func (s *Scheme) Pool() *work.Pool { return s.pool }

func (s *Scheme) Overflow() *work.RegionOverflow { return s.ovf }

func (s *Scheme) RememberedSet() *RememberedSet { return s.rs }

func (s *Scheme) State() State { return State(s.state.Load()) }

func (s *Scheme) SetState(st State) { s.state.Store(int32(st)) }

// BeginCycle resets per-cycle state. The world must be stopped and the
// mark bitmap flipped.
func (s *Scheme) BeginCycle() {
	if !s.pool.IsEmpty() || !s.ovf.IsEmpty() {
		base.Throw("mark: work left over from previous cycle")
	}
	s.ovf.Reset()
	s.rs.Take()
	s.marked.Store(0)
	s.scanned.Store(0)
	s.slots.Store(0)
	s.splits.Store(0)
	s.overflowed.Store(0)
	s.resurrect.Store(0)
	s.cleared.Store(0)
	s.SetState(StateRoots)
}

// Stats returns the counters of the current cycle. Workers add their
// counts when flushed.
func (s *Scheme) Stats() Stats {
	return Stats{
		Marked:     s.marked.Load(),
		Scanned:    s.scanned.Load(),
		Slots:      s.slots.Load(),
		Splits:     s.splits.Load(),
		Overflowed: s.overflowed.Load(),
		Refilled:   s.ovf.Stats().Refills,
		Resurrect:  s.resurrect.Load(),
		Cleared:    s.cleared.Load(),
	}
}

// HasWork reports whether any published mark work remains.
func (s *Scheme) HasWork() bool {
	return !s.pool.IsEmpty() || !s.ovf.IsEmpty() || !s.rs.IsEmpty()
}

// A Worker marks and scans on behalf of one collector goroutine.
type Worker struct {
	s    *Scheme
	ws   *work.WorkStack
	refs *lifecycle.Buffer
	work int

	marked, scanned, slots, splits int64
}

func (s *Scheme) NewWorker() *Worker {
	return &Worker{
		s:    s,
		ws:   work.NewWorkStack(s.pool, s.ovf),
		refs: lifecycle.NewBuffer(s.life.References, s.bufSize),
	}
}

// MarkObject sets obj's mark bit. On the 0->1 transition it queues obj
// for scanning unless obj is a leaf, and reports true.
func (w *Worker) MarkObject(obj heap.Addr) bool {
	if obj == heap.Nil {
		return false
	}
	if !w.s.heap.Mark(obj) {
		return false
	}
	w.marked++
	if w.s.model.Kind(obj) != object.Leaf {
		w.ws.Push(work.Item{Obj: obj})
	}
	return true
}

// Drain scans objects until no mark work is left anywhere, yp asks
// to yield, or the pool is interrupted. It must run as one of the
// nproc workers passed to the pool's BeginDrain.
func (w *Worker) Drain(yp base.YieldPoint) work.Status {
	for {
		if w.work >= w.s.yieldCheck {
			w.work = 0
			if yp.ShouldYield() {
				w.s.pool.Interrupt()
				return work.Interrupted
			}
			w.ws.Balance()
		}
		it, ok := w.ws.Pop()
		if !ok {
			st := w.ws.Wait(yp)
			if st == work.Got {
				continue
			}
			if st == work.Interrupted {
				w.s.pool.Interrupt()
			}
			return st
		}
		w.scan(it)
	}
}

func (w *Worker) scan(it work.Item) {
	s := w.s
	obj := it.Obj
	first, n := s.model.Slots(obj)
	start := int(it.From)
	w.scanned++
	w.work++
	switch s.model.Kind(obj) {
	case object.Leaf:
		return
	case object.Reference:
		// The referent is weak. Reference objects are queued once,
		// so each is discovered once per cycle.
		if start == 0 {
			w.refs.Add(obj)
			start = 1
		}
	case object.RefArray:
		if n-start > s.splitSize {
			end := start + s.splitSize
			w.ws.Push(work.Item{Obj: obj, From: int32(end)})
			w.splits++
			n = end
		}
	}
	arena := s.heap.Arena()
	for i := start; i < n; i++ {
		w.work++
		w.slots++
		if ref := arena.LoadAddr(object.SlotAddr(first, i)); ref != heap.Nil {
			w.MarkObject(ref)
		}
	}
}

// Flush publishes the worker's cached packets, overflow cache and
// discovered references, and adds its counts to the scheme.
func (w *Worker) Flush() {
	w.ws.Flush()
	w.refs.Flush()
	s := w.s
	s.marked.Add(w.marked)
	s.scanned.Add(w.scanned)
	s.slots.Add(w.slots)
	s.splits.Add(w.splits)
	s.overflowed.Add(w.ws.Overflowed)
	w.marked, w.scanned, w.slots, w.splits, w.ws.Overflowed = 0, 0, 0, 0, 0
}

// Drain runs ws in parallel until the mark work is exhausted (Done) or
// the increment ends (Interrupted). Every worker is flushed on return.
func (s *Scheme) Drain(ws []*Worker, yp base.YieldPoint) work.Status {
	s.SetState(StateScan)
	s.pool.BeginDrain(len(ws))
	status := make([]work.Status, len(ws))
	var wg sync.WaitGroup
	for i, w := range ws {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status[i] = w.Drain(yp)
			w.Flush()
		}()
	}
	wg.Wait()
	for _, st := range status {
		if st != work.Done {
			return work.Interrupted
		}
	}
	return work.Done
}
