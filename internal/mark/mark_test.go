// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark_test

import (
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/lifecycle"
	. "github.com/eclipse-openj9/openj9-sub077/internal/mark"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
	"github.com/eclipse-openj9/openj9-sub077/internal/work"
)

// testHeap allocates objects directly from regions, without a
// collector.
type testHeap struct {
	t      *testing.T
	opts   base.Options
	m      *heap.Manager
	layout object.Layout
	cache  map[int]*heap.Region
	objs   []heap.Addr
	life   *lifecycle.Set
	s      *Scheme
}

func newTestHeap(t *testing.T, mod func(*base.Options)) *testHeap {
	o := base.DefaultOptions()
	o.HeapSize = 8 * base.MiB
	o.Workers = 4
	if mod != nil {
		mod(&o)
	}
	m, err := heap.NewManager(&o)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	h := &testHeap{t: t, opts: o, m: m, layout: object.Layout{Arena: m.Arena()}, cache: map[int]*heap.Region{}}
	h.life = lifecycle.NewSet(o.LifecycleLists)
	h.s = NewScheme(m, h.layout, h.life, &o)
	return h
}

func (h *testHeap) alloc(kind object.Kind, n int) heap.Addr {
	size := object.SizeOf(kind, n)
	arena := h.m.Arena()
	var a heap.Addr
	if class := h.m.Classes().Class(size); class == 0 {
		r := h.m.AllocateLarge(size)
		if r == nil {
			h.t.Fatalf("heap exhausted")
		}
		a = r.Start
	} else {
		r := h.cache[class]
		if r == nil || r.FreeCells == 0 {
			if r = h.m.AllocateRegion(class); r == nil {
				h.t.Fatalf("heap exhausted")
			}
			h.cache[class] = r
		}
		a = r.PopCell(arena)
	}
	arena.Zero(a, size.RoundUp(base.GranuleSize))
	h.layout.Init(a, kind, n)
	h.objs = append(h.objs, a)
	return a
}

func (h *testHeap) set(obj heap.Addr, i int, v heap.Addr) {
	first, _ := h.layout.Slots(obj)
	h.m.Arena().StoreAddr(object.SlotAddr(first, i), v)
}

func (h *testHeap) workers(n int) []*Worker {
	ws := make([]*Worker, n)
	for i := range ws {
		ws[i] = h.s.NewWorker()
	}
	return ws
}

// reachable returns the objects reachable from roots, treating slot 0
// of reference objects as weak.
func (h *testHeap) reachable(roots []heap.Addr) map[heap.Addr]bool {
	seen := map[heap.Addr]bool{}
	stack := append([]heap.Addr(nil), roots...)
	for len(stack) > 0 {
		obj := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if obj == heap.Nil || seen[obj] {
			continue
		}
		seen[obj] = true
		first, n := h.layout.Slots(obj)
		start := 0
		if h.layout.Kind(obj) == object.Reference {
			start = 1
		}
		for i := start; i < n; i++ {
			stack = append(stack, h.m.Arena().LoadAddr(object.SlotAddr(first, i)))
		}
	}
	return seen
}

func (h *testHeap) markFrom(roots []heap.Addr, ws []*Worker, yp base.YieldPoint) work.Status {
	h.m.Marks().Flip()
	h.s.BeginCycle()
	for _, r := range roots {
		ws[0].MarkObject(r)
	}
	ws[0].Flush()
	return h.s.Drain(ws, yp)
}

func (h *testHeap) checkMarks(want map[heap.Addr]bool) {
	h.t.Helper()
	for _, obj := range h.objs {
		if got := h.m.IsMarked(obj); got != want[obj] {
			h.t.Fatalf("object %v marked=%v, want %v", obj, got, want[obj])
		}
	}
}

// randomGraph builds n objects of mixed kinds with random edges and
// returns a few roots.
func (h *testHeap) randomGraph(rng *rand.Rand, n int) []heap.Addr {
	for i := 0; i < n; i++ {
		switch rng.Intn(10) {
		case 0:
			h.alloc(object.Leaf, rng.Intn(64))
		case 1:
			h.alloc(object.RefArray, rng.Intn(300))
		case 2:
			h.alloc(object.Reference, 1+rng.Intn(3))
		default:
			h.alloc(object.Plain, rng.Intn(6))
		}
	}
	for _, obj := range h.objs {
		_, slots := h.layout.Slots(obj)
		for i := 0; i < slots; i++ {
			if rng.Intn(3) != 0 {
				h.set(obj, i, h.objs[rng.Intn(len(h.objs))])
			}
		}
	}
	var roots []heap.Addr
	for i := 0; i < 5; i++ {
		roots = append(roots, h.objs[rng.Intn(len(h.objs))])
	}
	return roots
}

func TestIdempotentMarking(t *testing.T) {
	h := newTestHeap(t, nil)
	obj := h.alloc(object.Plain, 2)
	leaf := h.alloc(object.Leaf, 8)
	h.m.Marks().Flip()
	h.s.BeginCycle()
	w := h.s.NewWorker()
	if !w.MarkObject(obj) {
		t.Fatalf("first MarkObject returned false")
	}
	if w.MarkObject(obj) {
		t.Fatalf("second MarkObject returned true")
	}
	if !w.MarkObject(leaf) {
		t.Fatalf("MarkObject(leaf) returned false")
	}
	w.Flush()
	if n := h.s.Pool().InputItems(); n != 1 {
		t.Fatalf("%d items queued, want 1", n)
	}
	if st := h.s.Stats(); st.Marked != 2 {
		t.Fatalf("marked %d, want 2", st.Marked)
	}
}

func TestMarkSoundness(t *testing.T) {
	for _, test := range []struct {
		name string
		mod  func(*base.Options)
	}{
		{"default", nil},
		{"overflow", func(o *base.Options) { o.PacketSize = 4; o.MaxPackets = 8 }},
		{"fifo", func(o *base.Options) { o.PacketSize = 4; o.MaxPackets = 8; o.OverflowOrder = base.OverflowFIFO }},
		{"split", func(o *base.Options) { o.ArraySplitSize = 7 }},
	} {
		h := newTestHeap(t, test.mod)
		rng := rand.New(rand.NewSource(1))
		roots := h.randomGraph(rng, 3000)
		if st := h.markFrom(roots, h.workers(4), base.Never); st != work.Done {
			t.Fatalf("%s: drain ended with %v", test.name, st)
		}
		h.checkMarks(h.reachable(roots))
		if h.s.HasWork() {
			t.Fatalf("%s: work left after drain", test.name)
		}
		st := h.s.Stats()
		if test.name == "overflow" && st.Overflowed == 0 {
			t.Errorf("%s: no overflow with 8 packets of 4", test.name)
		}
		if test.name == "split" && st.Splits == 0 {
			t.Errorf("%s: no arrays split", test.name)
		}
	}
}

// countYield asks to yield after every n checks.
type countYield struct {
	n, calls atomic.Int64
}

func (y *countYield) ShouldYield() bool {
	return y.calls.Add(1)%y.n.Load() == 0
}

func TestDrainYields(t *testing.T) {
	h := newTestHeap(t, func(o *base.Options) { o.YieldCheckInterval = 16 })
	rng := rand.New(rand.NewSource(2))
	roots := h.randomGraph(rng, 2000)
	ws := h.workers(2)
	y := new(countYield)
	y.n.Store(3)
	increments := 1
	st := h.markFrom(roots, ws, y)
	for st != work.Done {
		increments++
		if increments > 100000 {
			t.Fatalf("marking made no progress")
		}
		st = h.s.Drain(ws, y)
	}
	if increments == 1 {
		t.Errorf("drain never yielded")
	}
	h.checkMarks(h.reachable(roots))
}

func TestLargeArraySplit(t *testing.T) {
	h := newTestHeap(t, func(o *base.Options) { o.ArraySplitSize = 16 })
	arr := h.alloc(object.RefArray, 20000) // larger than a region
	var kids []heap.Addr
	for i := 0; i < 20000; i += 7 {
		k := h.alloc(object.Leaf, 0)
		h.set(arr, i, k)
		kids = append(kids, k)
	}
	if h.m.RegionOf(arr).Kind != heap.RegionLarge {
		t.Fatalf("array not large")
	}
	if st := h.markFrom([]heap.Addr{arr}, h.workers(3), base.Never); st != work.Done {
		t.Fatalf("drain ended with %v", st)
	}
	for _, k := range kids {
		if !h.m.IsMarked(k) {
			t.Fatalf("element %v not marked", k)
		}
	}
	if want := int64(20000/16 - 1); h.s.Stats().Splits < want {
		t.Errorf("splits = %d, want at least %d", h.s.Stats().Splits, want)
	}
}

func TestSaturatedArraySplit(t *testing.T) {
	// With two tiny packets nearly every continuation overflows. Each
	// must resume where it left off, so slots are followed about once.
	h := newTestHeap(t, func(o *base.Options) {
		o.Workers = 1
		o.PacketSize = 2
		o.MaxPackets = 2
		o.ArraySplitSize = 2
	})
	const n = 20000
	arr := h.alloc(object.RefArray, n)
	for i := 0; i < n; i++ {
		h.set(arr, i, h.alloc(object.Plain, 1))
	}
	if st := h.markFrom([]heap.Addr{arr}, h.workers(1), base.Never); st != work.Done {
		t.Fatalf("drain ended with %v", st)
	}
	h.checkMarks(h.reachable([]heap.Addr{arr}))
	st := h.s.Stats()
	if st.Overflowed == 0 {
		t.Fatalf("nothing overflowed")
	}
	if st.Slots > 3*2*n {
		t.Errorf("followed %d slots for %d, continuations restart from the beginning", st.Slots, 2*n)
	}
}

func TestBarrier(t *testing.T) {
	convey.Convey("Given a mutator barrier", t, func() {
		h := newTestHeap(t, nil)
		a, b, c := h.alloc(object.Plain, 0), h.alloc(object.Plain, 0), h.alloc(object.Plain, 0)
		bar := NewBarrier(h.s.RememberedSet(), 2)

		convey.Convey("A disabled barrier records nothing", func() {
			bar.WriteRef(a, b)
			convey.So(bar.Pending(), convey.ShouldEqual, 0)
		})

		convey.Convey("The single barrier records the overwritten value", func() {
			bar.Enable(false)
			bar.WriteRef(a, b)
			bar.WriteRef(heap.Nil, c)
			convey.So(bar.Pending(), convey.ShouldEqual, 1)
			bar.Flush()
			convey.So(h.s.RememberedSet().Len(), convey.ShouldEqual, 1)
		})

		convey.Convey("The double barrier records both values and flushes when full", func() {
			bar.Enable(true)
			bar.WriteRef(a, b)
			convey.So(bar.Pending(), convey.ShouldEqual, 0)
			convey.So(h.s.RememberedSet().Len(), convey.ShouldEqual, 2)
			bar.DisableDouble()
			bar.WriteRef(c, a)
			convey.So(bar.Pending(), convey.ShouldEqual, 1)

			convey.Convey("Processing the remembered set marks the recorded objects", func() {
				bar.Flush()
				h.m.Marks().Flip()
				h.s.BeginCycle()
				bar.Enable(false)
				bar.WriteRef(c, heap.Nil)
				bar.Flush()
				w := h.s.NewWorker()
				convey.So(h.s.ProcessRememberedSet(w), convey.ShouldBeTrue)
				convey.So(h.m.IsMarked(c), convey.ShouldBeTrue)
				convey.So(h.m.IsMarked(a), convey.ShouldBeFalse)
				convey.So(h.s.ProcessRememberedSet(w), convey.ShouldBeFalse)
			})
		})
	})
}

func TestCompletion(t *testing.T) {
	convey.Convey("Given objects needing post-mark processing", t, func() {
		h := newTestHeap(t, nil)
		root := h.alloc(object.Plain, 4)
		strongRef := h.alloc(object.Reference, 1)
		weakOnly := h.alloc(object.Plain, 0)
		liveReferent := h.alloc(object.Plain, 0)
		liveRef := h.alloc(object.Reference, 1)
		h.set(strongRef, 0, weakOnly)
		h.set(liveRef, 0, liveReferent)
		h.set(root, 0, strongRef)
		h.set(root, 1, liveRef)
		h.set(root, 2, liveReferent)

		fin := h.alloc(object.Plain, 1)
		finChild := h.alloc(object.Plain, 0)
		h.set(fin, 0, finChild)
		liveFin := h.alloc(object.Plain, 0)
		h.set(root, 3, liveFin)

		deadCont := h.alloc(object.Plain, 0)
		bufs := h.life.NewBuffers(4)
		bufs.Unfinalized.Add(fin)
		bufs.Unfinalized.Add(liveFin)
		bufs.Continuations.Add(root)
		bufs.Continuations.Add(deadCont)
		bufs.Flush()

		ws := h.workers(2)
		convey.So(h.markFrom([]heap.Addr{root}, ws, base.Never), convey.ShouldEqual, work.Done)

		convey.Convey("Unreachable finalizable objects are resurrected with their referents", func() {
			var queued []heap.Addr
			n := h.s.ProcessUnfinalized(ws[0], func(obj heap.Addr) { queued = append(queued, obj) })
			convey.So(n, convey.ShouldEqual, 1)
			convey.So(queued, convey.ShouldResemble, []heap.Addr{fin})
			convey.So(h.s.Drain(ws, base.Never), convey.ShouldEqual, work.Done)
			convey.So(h.m.IsMarked(finChild), convey.ShouldBeTrue)
			convey.So(h.s.ProcessUnfinalized(ws[0], func(heap.Addr) {}), convey.ShouldEqual, 0)
			convey.So(h.life.Unfinalized.Len(), convey.ShouldEqual, 1)
		})

		convey.Convey("References to unmarked referents are cleared", func() {
			var cleared []heap.Addr
			n := h.s.ProcessReferences(func(ref heap.Addr) { cleared = append(cleared, ref) })
			convey.So(n, convey.ShouldEqual, 1)
			convey.So(cleared, convey.ShouldResemble, []heap.Addr{strongRef})
			convey.So(h.layout.Load(strongRef, 0), convey.ShouldEqual, heap.Nil)
			convey.So(h.layout.Load(liveRef, 0), convey.ShouldEqual, liveReferent)
			convey.So(h.m.IsMarked(weakOnly), convey.ShouldBeFalse)
		})

		convey.Convey("Dead continuations are reported and dropped", func() {
			var dead []heap.Addr
			n := h.s.ProcessContinuations(func(obj heap.Addr) { dead = append(dead, obj) })
			convey.So(n, convey.ShouldEqual, 1)
			convey.So(dead, convey.ShouldResemble, []heap.Addr{deadCont})
			convey.So(h.life.Continuations.Len(), convey.ShouldEqual, 1)
		})
	})
}
