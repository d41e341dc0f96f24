// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/lifecycle"
)

// ProcessRememberedSet marks every object recorded by write barriers
// and reports whether any of them was newly marked. The caller must
// drain the resulting work.
func (s *Scheme) ProcessRememberedSet(w *Worker) bool {
	found := false
	for _, buf := range s.rs.Take() {
		for _, obj := range buf {
			if w.MarkObject(obj) {
				found = true
			}
		}
	}
	w.Flush()
	return found
}

// ProcessUnfinalized finds registered objects that marking did not
// reach, marks them again so they survive until their finalizers run,
// and passes each to finalizable. It returns the number resurrected.
// Objects still reachable stay registered. The world must be stopped and
// the caller must drain the resulting work, then call it again until it
// returns 0.
func (s *Scheme) ProcessUnfinalized(w *Worker, finalizable func(obj heap.Addr)) int {
	objs := s.life.Unfinalized.Take()
	live := objs[:0]
	n := 0
	for _, obj := range objs {
		if s.heap.IsMarked(obj) {
			live = append(live, obj)
			continue
		}
		w.MarkObject(obj)
		finalizable(obj)
		n++
	}
	s.life.Unfinalized.Add(live)
	w.Flush()
	s.resurrect.Add(int64(n))
	return n
}

// ProcessReferences clears the referent of every reference object
// found this cycle whose referent is unmarked, and passes the reference
// object to cleared. It returns the number cleared. The world must be
// stopped.
func (s *Scheme) ProcessReferences(cleared func(ref heap.Addr)) int {
	arena := s.heap.Arena()
	n := 0
	for _, ref := range s.life.References.Take() {
		first, nslots := s.model.Slots(ref)
		if nslots < 1 {
			continue
		}
		referent := arena.LoadAddr(first)
		if referent == heap.Nil || s.heap.IsMarked(referent) {
			continue
		}
		arena.StoreAddr(first, heap.Nil)
		n++
		if cleared != nil {
			cleared(ref)
		}
	}
	s.cleared.Add(int64(n))
	return n
}

// ProcessContinuations drops registered continuations that marking did
// not reach, passing each to dead. Live continuations stay registered.
func (s *Scheme) ProcessContinuations(dead func(obj heap.Addr)) int {
	objs := s.life.Continuations.Take()
	live := objs[:0]
	n := 0
	for _, obj := range objs {
		if s.heap.IsMarked(obj) {
			live = append(live, obj)
			continue
		}
		n++
		if dead != nil {
			dead(obj)
		}
	}
	s.life.Continuations.Add(live)
	return n
}

// Lifecycle returns the lifecycle lists the scheme reads at completion.
func (s *Scheme) Lifecycle() *lifecycle.Set { return s.life }
