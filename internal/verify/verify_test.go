// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify_test

import (
	"errors"
	"testing"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
	. "github.com/eclipse-openj9/openj9-sub077/internal/verify"
)

type testHeap struct {
	t      *testing.T
	m      *heap.Manager
	layout object.Layout
	r      *heap.Region
}

func newTestHeap(t *testing.T) *testHeap {
	o := base.DefaultOptions()
	o.HeapSize = 1 * base.MiB
	m, err := heap.NewManager(&o)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	return &testHeap{t: t, m: m, layout: object.Layout{Arena: m.Arena()}}
}

// alloc returns a plain object with 2 slots. All objects share one
// size class.
func (h *testHeap) alloc(kind object.Kind) heap.Addr {
	size := object.SizeOf(kind, 2)
	if h.r == nil || h.r.FreeCells == 0 {
		h.r = h.m.AllocateRegion(h.m.Classes().Class(size))
		if h.r == nil {
			h.t.Fatalf("heap exhausted")
		}
	}
	a := h.r.PopCell(h.m.Arena())
	h.m.Arena().Zero(a, h.r.CellSize)
	h.layout.Init(a, kind, 2)
	return a
}

func (h *testHeap) set(obj heap.Addr, i int, v heap.Addr) {
	first, _ := h.layout.Slots(obj)
	h.m.Arena().StoreAddr(object.SlotAddr(first, i), v)
}

func rootsOf(objs ...heap.Addr) func(func(heap.Addr)) {
	return func(mark func(heap.Addr)) {
		for _, a := range objs {
			mark(a)
		}
	}
}

func TestBuild(t *testing.T) {
	h := newTestHeap(t)
	a, b, c := h.alloc(object.Plain), h.alloc(object.Plain), h.alloc(object.Plain)
	h.set(a, 0, b)
	h.set(a, 1, c)
	h.set(c, 0, a) // cycle
	h.alloc(object.Plain)

	g := Build(h.m, h.layout, rootsOf(a))
	if g.NumNodes() != 4 {
		t.Fatalf("NumNodes = %d, want 4 (root set and 3 objects)", g.NumNodes())
	}
	if got := Reachable(h.m, h.layout, rootsOf(a)); len(got) != 3 {
		t.Fatalf("Reachable = %v, want 3 objects", got)
	}
	var visited []heap.Addr
	Walk(g, func(node int, path []int) {
		if node != 0 {
			visited = append(visited, g.Objs[node])
		}
		if path[0] != 0 || path[len(path)-1] != node {
			t.Errorf("path %v does not lead from the root set to %d", path, node)
		}
	})
	if len(visited) != 3 {
		t.Fatalf("Walk visited %v, want 3 objects", visited)
	}
}

func TestCheck(t *testing.T) {
	h := newTestHeap(t)
	a, b, c := h.alloc(object.Plain), h.alloc(object.Plain), h.alloc(object.Plain)
	h.set(a, 0, b)
	h.set(b, 0, c)
	h.m.Mark(a)
	h.m.Mark(b)

	err := Check(h.m, h.layout, rootsOf(a))
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("Check = %v, want *Error", err)
	}
	if len(verr.Failures) != 1 || verr.Failures[0].Obj != c {
		t.Fatalf("failures = %v, want only %v", verr.Failures, c)
	}
	if path := verr.Failures[0].Path; len(path) != 3 || path[0] != a || path[2] != c {
		t.Fatalf("path = %v, want %v %v %v", path, a, b, c)
	}

	h.m.Mark(c)
	if err := Check(h.m, h.layout, rootsOf(a)); err != nil {
		t.Fatalf("Check after marking everything: %v", err)
	}
}

func TestCheckWeakReferent(t *testing.T) {
	h := newTestHeap(t)
	ref, referent, strong := h.alloc(object.Reference), h.alloc(object.Plain), h.alloc(object.Plain)
	h.set(ref, 0, referent)
	h.set(ref, 1, strong)
	h.m.Mark(ref)
	h.m.Mark(strong)
	if err := Check(h.m, h.layout, rootsOf(ref)); err != nil {
		t.Fatalf("unmarked weak referent reported: %v", err)
	}
	h.m.Marks().Flip()
	if err := Check(h.m, h.layout, rootsOf(ref)); err == nil {
		t.Fatalf("Check passed with nothing marked")
	}
}

func TestCheckLongChain(t *testing.T) {
	const n = 1100
	h := newTestHeap(t)
	objs := make([]heap.Addr, n)
	for i := range objs {
		objs[i] = h.alloc(object.Plain)
		h.m.Mark(objs[i])
		if i > 0 {
			h.set(objs[i-1], 0, objs[i])
		}
	}
	if err := Check(h.m, h.layout, rootsOf(objs[0])); err != nil {
		t.Fatalf("Check on a marked %d-object chain: %v", n, err)
	}

	h.m.Marks().Flip()
	for _, a := range objs[:n-1] {
		h.m.Mark(a)
	}
	err := Check(h.m, h.layout, rootsOf(objs[0]))
	var verr *Error
	if !errors.As(err, &verr) || len(verr.Failures) != 1 {
		t.Fatalf("Check = %v, want one failure", err)
	}
	if f := verr.Failures[0]; f.Obj != objs[n-1] || len(f.Path) != n {
		t.Fatalf("failure at %v with a %d-long path, want %v at depth %d", f.Obj, len(f.Path), objs[n-1], n)
	}
}
