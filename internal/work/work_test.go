// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work_test

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	. "github.com/eclipse-openj9/openj9-sub077/internal/work"
)

type env struct {
	opts base.Options
	heap *heap.Manager
	ovf  *RegionOverflow
	pool *Pool
}

func newEnv(t *testing.T, packetSize, maxPackets int, order base.OverflowOrder) *env {
	o := base.DefaultOptions()
	o.HeapSize = 2 * base.MiB
	o.RegionSize = 64 * base.KiB
	o.PacketSize = packetSize
	o.MaxPackets = maxPackets
	o.OverflowOrder = order
	o.OverflowCacheSize = 2
	m, err := heap.NewManager(&o)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	e := &env{opts: o, heap: m}
	e.ovf = NewRegionOverflow(m, &o)
	e.pool = NewPool(&o, e.ovf)
	e.ovf.Notify = e.pool.Notify
	return e
}

// objects returns n object addresses spread over 16-byte cells of as
// many regions as needed.
func (e *env) objects(n int) []heap.Addr {
	var addrs []heap.Addr
	for len(addrs) < n {
		r := e.heap.AllocateRegion(1)
		for i := 0; i < r.NumCells && len(addrs) < n; i++ {
			addrs = append(addrs, r.CellAddr(i))
		}
	}
	return addrs
}

func sorted(items []Item) []heap.Addr {
	var a []heap.Addr
	for _, it := range items {
		a = append(a, it.Obj)
	}
	sort.Slice(a, func(i, j int) bool { return a[i] < a[j] })
	return a
}

func TestPacketOverflowRefill(t *testing.T) {
	convey.Convey("Given a pool with a single packet of 8 items", t, func() {
		e := newEnv(t, 8, 1, base.OverflowLIFO)
		ws := NewWorkStack(e.pool, e.ovf)
		objs := e.objects(9)
		var first []Item
		for _, obj := range objs[:8] {
			first = append(first, Item{Obj: obj})
			ws.Push(Item{Obj: obj})
		}

		convey.Convey("One more push overflows the full packet", func() {
			ws.Push(Item{Obj: objs[8]})
			convey.So(ws.Overflowed, convey.ShouldEqual, 8)
			convey.So(e.ovf.Pending(), convey.ShouldEqual, 8)

			it, ok := ws.Pop()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(it.Obj, convey.ShouldEqual, objs[8])
			_, ok = ws.Pop()
			convey.So(ok, convey.ShouldBeFalse)

			convey.Convey("Refilling reproduces the overflowed items", func() {
				e.pool.BeginDrain(1)
				convey.So(ws.Wait(base.Never), convey.ShouldEqual, Got)
				convey.So(e.ovf.IsEmpty(), convey.ShouldBeTrue)
				var got []Item
				for {
					it, ok := ws.Pop()
					if !ok {
						break
					}
					got = append(got, it)
				}
				convey.So(sorted(got), convey.ShouldResemble, sorted(first))
				convey.So(e.ovf.Pending(), convey.ShouldEqual, 0)
				convey.So(ws.Wait(base.Never), convey.ShouldEqual, Done)
			})
		})
	})
}

func TestOverflowRoundTrip(t *testing.T) {
	// Pushers overflow items while refillers drain the overflow path.
	// Every item must come back exactly once.
	for _, order := range []base.OverflowOrder{base.OverflowLIFO, base.OverflowFIFO} {
		e := newEnv(t, 64, 8, order)
		objs := e.objects(4 * 4096)
		const npushers, nrefillers = 4, 4
		var (
			pushing sync.WaitGroup
			wg      sync.WaitGroup
			pushed  atomic.Bool
			mu      sync.Mutex
			seen    = make(map[heap.Addr]int)
		)
		for i := 0; i < npushers; i++ {
			pushing.Add(1)
			go func(i int) {
				defer pushing.Done()
				var c OverflowCache
				for j := i; j < len(objs); j += npushers {
					e.ovf.OverflowItem(Item{Obj: objs[j]}, &c)
					if j%97 == 0 {
						e.ovf.FlushCache(&c)
					}
				}
				e.ovf.FlushCache(&c)
			}(i)
		}
		for i := 0; i < nrefillers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ws := NewWorkStack(e.pool, e.ovf)
				for {
					done := pushed.Load()
					p := e.pool.GetEmpty()
					if p == nil {
						runtime.Gosched()
						continue
					}
					if e.ovf.FillFromOverflow(p, base.Never) == 0 {
						e.pool.PutEmpty(p)
						if done && e.ovf.IsEmpty() {
							return
						}
						runtime.Gosched()
						continue
					}
					mu.Lock()
					for _, it := range p.Items() {
						seen[it.Obj]++
					}
					mu.Unlock()
					// Drain p by cycling it through the work stack.
					e.pool.PutInput(p)
					for {
						if _, ok := ws.Pop(); !ok {
							break
						}
					}
					ws.Flush()
				}
			}()
		}
		pushing.Wait()
		pushed.Store(true)
		wg.Wait()

		if got := e.ovf.Stats().Items; got != int64(len(objs)) {
			t.Fatalf("%v: overflowed %d items, want %d", order, got, len(objs))
		}
		if n := e.ovf.Pending(); n != 0 {
			t.Fatalf("%v: %d items left on the overflow path", order, n)
		}
		if len(seen) != len(objs) {
			t.Fatalf("%v: refilled %d distinct items, want %d", order, len(seen), len(objs))
		}
		for a, n := range seen {
			if n != 1 {
				t.Fatalf("%v: item %v refilled %d times", order, a, n)
			}
		}
	}
}

func TestOverflowRegionOrder(t *testing.T) {
	for _, test := range []struct {
		order base.OverflowOrder
		want  []int
	}{
		{base.OverflowLIFO, []int{2, 1, 0}},
		{base.OverflowFIFO, []int{0, 1, 2}},
	} {
		e := newEnv(t, 1, 4, test.order)
		var regions []*heap.Region
		var c OverflowCache
		for i := 0; i < 3; i++ {
			r := e.heap.AllocateRegion(1)
			regions = append(regions, r)
			e.ovf.OverflowItem(Item{Obj: r.Start}, &c)
			e.ovf.FlushCache(&c)
		}
		for _, want := range test.want {
			p := e.pool.GetEmpty()
			if n := e.ovf.FillFromOverflow(p, base.Never); n != 1 {
				t.Fatalf("%v: refill added %d items", test.order, n)
			}
			if got := p.Items()[0].Obj; got != regions[want].Start {
				t.Errorf("%v: refilled %v, want region %d", test.order, got, want)
			}
			ws := NewWorkStack(e.pool, e.ovf)
			e.pool.PutInput(p)
			ws.Pop()
			ws.Flush()
		}
	}
}

// headerSlots places the first slot one word after the object start.
type headerSlots struct{}

func (headerSlots) Slots(obj heap.Addr) (heap.Addr, int) {
	return obj.Add(base.WordSize), 1 << 20
}

func TestOverflowResume(t *testing.T) {
	e := newEnv(t, 4, 4, base.OverflowLIFO)
	e.ovf.Slots = headerSlots{}
	r := e.heap.AllocateLarge(3 * e.opts.RegionSize)
	if r == nil {
		t.Fatal("heap exhausted")
	}
	last := int32(e.opts.RegionSize / base.WordSize)
	for _, test := range []struct {
		from, want int32
	}{
		{0, 0},
		{5, 5},
		{4, 3},               // shares a granule with slot 3
		{last + 1, last + 1}, // in the second region of the array
	} {
		var c OverflowCache
		e.ovf.OverflowItem(Item{Obj: r.Start, From: test.from}, &c)
		e.ovf.FlushCache(&c)
		p := e.pool.GetEmpty()
		if n := e.ovf.FillFromOverflow(p, base.Never); n != 1 {
			t.Fatalf("from %d: refill added %d items", test.from, n)
		}
		want := Item{Obj: r.Start, From: test.want}
		if got := p.Items()[0]; got != want {
			t.Errorf("from %d: refilled %+v, want %+v", test.from, got, want)
		}
		ws := NewWorkStack(e.pool, e.ovf)
		e.pool.PutInput(p)
		ws.Pop()
		ws.Flush()
	}
}

func TestPacketConservation(t *testing.T) {
	e := newEnv(t, 16, 8, base.OverflowLIFO)
	objs := e.objects(100)
	ws := NewWorkStack(e.pool, e.ovf)
	for _, obj := range objs {
		ws.Push(Item{Obj: obj})
	}
	ws.Flush()
	total := func() int { return e.pool.InputItems() + e.ovf.Pending() }
	if total() != len(objs) {
		t.Fatalf("pushed %d items, pool and overflow hold %d", len(objs), total())
	}
	var c OverflowCache
	for {
		p := e.pool.TryGetInput()
		if p == nil {
			break
		}
		before := total() + p.Len()
		e.ovf.EmptyToOverflow(e.pool, p, &c)
		e.ovf.FlushCache(&c)
		if total() > before {
			t.Fatalf("overflowing a packet increased work from %d to %d", before, total())
		}
	}
	for !e.ovf.IsEmpty() {
		before := total()
		p := e.pool.GetEmpty()
		e.ovf.FillFromOverflow(p, base.Never)
		if p.Empty() {
			e.pool.PutEmpty(p)
		} else {
			e.pool.PutInput(p)
		}
		if total() > before {
			t.Fatalf("refill increased work from %d to %d", before, total())
		}
	}
	if total() != len(objs) {
		t.Fatalf("work changed from %d to %d with no scanning", len(objs), total())
	}
}

func TestDrainTermination(t *testing.T) {
	// A binary tree of n objects: object i has children 2i+1 and 2i+2.
	// Every worker pops an object and pushes its children; the drain
	// must visit each object once and then terminate in every worker.
	const n = 5000
	const nproc = 4
	e := newEnv(t, 8, 2*nproc, base.OverflowLIFO)
	objs := e.objects(n)
	index := make(map[heap.Addr]int, n)
	for i, a := range objs {
		index[a] = i
	}
	var visits [n]atomic.Int32
	var total atomic.Int64

	e.pool.BeginDrain(nproc)
	seed := NewWorkStack(e.pool, e.ovf)
	seed.Push(Item{Obj: objs[0]})
	seed.Flush()

	var wg sync.WaitGroup
	statuses := make([]Status, nproc)
	for w := 0; w < nproc; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ws := NewWorkStack(e.pool, e.ovf)
			for {
				it, ok := ws.Pop()
				if !ok {
					if st := ws.Wait(base.Never); st != Got {
						statuses[w] = st
						ws.Flush()
						return
					}
					continue
				}
				i := index[it.Obj]
				visits[i].Add(1)
				total.Add(1)
				for _, c := range []int{2*i + 1, 2*i + 2} {
					if c < n {
						ws.Push(Item{Obj: objs[c]})
					}
				}
				ws.Balance()
			}
		}(w)
	}
	wg.Wait()
	for w, st := range statuses {
		if st != Done {
			t.Errorf("worker %d ended with %v", w, st)
		}
	}
	if total.Load() != n {
		t.Fatalf("visited %d objects, want %d", total.Load(), n)
	}
	for i := range visits {
		if v := visits[i].Load(); v != 1 {
			t.Fatalf("object %d visited %d times", i, v)
		}
	}
	if !e.pool.IsEmpty() || !e.ovf.IsEmpty() {
		t.Fatalf("work left after termination")
	}
}

func TestInterrupt(t *testing.T) {
	e := newEnv(t, 8, 4, base.OverflowLIFO)
	e.pool.BeginDrain(2)
	ws := NewWorkStack(e.pool, e.ovf)
	done := make(chan Status)
	go func() { done <- ws.Wait(base.Never) }()
	for !e.pool.Waiting() {
		runtime.Gosched()
	}
	e.pool.Interrupt()
	if st := <-done; st != Interrupted {
		t.Fatalf("Wait returned %v after Interrupt, want interrupted", st)
	}
}
