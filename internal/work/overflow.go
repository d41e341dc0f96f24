// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// Overflow defers mark work when no packet can hold it. Overflow is the
// pool's backpressure path, not an error.
type Overflow interface {
	// EmptyToOverflow moves every item of p to the overflow path and
	// returns p to the pool's empty list.
	EmptyToOverflow(pool *Pool, p *Packet, c *OverflowCache)
	// FillFromOverflow moves overflowed items into p until p is full,
	// the overflow path is empty, or yp asks to yield. It returns the
	// number of items added.
	FillFromOverflow(p *Packet, yp base.YieldPoint) int
	// OverflowItem defers one item.
	OverflowItem(it Item, c *OverflowCache)
	// FlushCache publishes the regions held by c.
	FlushCache(c *OverflowCache)
	// Reset empties the overflow path at cycle start.
	Reset()
	// IsEmpty reports whether no published overflow work remains.
	IsEmpty() bool
}

// An OverflowCache is a worker-local batch of overflowed regions. It is
// published to the global list under the lock only when it fills or its
// worker runs out of work.
type OverflowCache struct {
	regions []*heap.Region
}

// Len returns the number of cached regions.
func (c *OverflowCache) Len() int { return len(c.regions) }

// OverflowStats counts overflow activity.
type OverflowStats struct {
	Items   int64 // items overflowed
	Regions int64 // regions published
	Refills int64 // regions popped for refill
	Flushes int64 // cache flushes (lock acquisitions)
}

// A Slotter locates the reference slots of an object.
type Slotter interface {
	Slots(obj heap.Addr) (first heap.Addr, n int)
}

// RegionOverflow defers items by setting the object's overflow bit and
// linking its region into a global list. Order is kept per region
// only; items within a region come back in address order.
//
// A split array continuation is deferred at the granule of the slot it
// resumes from, which may lie in a continuation region of a large
// array. Refill maps such a bit back to the array and the first slot
// of the granule, so at most one slot is scanned twice.
type RegionOverflow struct {
	heap      *heap.Manager
	bits      *heap.Bitmap
	order     base.OverflowOrder
	cacheSize int

	// Notify, if set, is called after regions are published.
	Notify func()
	// Slots, if set, lets continuations keep their resume point.
	// Without it a continuation is deferred as its whole object.
	Slots Slotter

	_     cpu.CacheLinePad
	mu    sync.Mutex
	head  int32
	tail  int32
	count atomic.Int32
	_     cpu.CacheLinePad

	items   atomic.Int64
	regions atomic.Int64
	refills atomic.Int64
	flushes atomic.Int64
}

func NewRegionOverflow(h *heap.Manager, opts *base.Options) *RegionOverflow {
	return &RegionOverflow{
		heap:      h,
		bits:      h.Overflow(),
		order:     opts.OverflowOrder,
		cacheSize: opts.OverflowCacheSize,
		head:      heap.NoRegion,
		tail:      heap.NoRegion,
	}
}

func (o *RegionOverflow) IsEmpty() bool { return o.count.Load() == 0 }

// Len returns the number of regions on the global list.
func (o *RegionOverflow) Len() int { return int(o.count.Load()) }

// Stats returns the counters accumulated since the last Reset.
func (o *RegionOverflow) Stats() OverflowStats {
	return OverflowStats{
		Items:   o.items.Load(),
		Regions: o.regions.Load(),
		Refills: o.refills.Load(),
		Flushes: o.flushes.Load(),
	}
}

func (o *RegionOverflow) Reset() {
	o.mu.Lock()
	for i := o.head; i != heap.NoRegion; {
		r := o.heap.Region(int(i))
		i = r.NextOverflow()
		r.SetNextOverflow(heap.NoRegion)
		r.Unlink()
	}
	o.head, o.tail = heap.NoRegion, heap.NoRegion
	o.count.Store(0)
	o.mu.Unlock()
	o.items.Store(0)
	o.regions.Store(0)
	o.refills.Store(0)
	o.flushes.Store(0)
}

func (o *RegionOverflow) OverflowItem(it Item, c *OverflowCache) {
	o.items.Add(1)
	a := it.Obj
	if it.From > 0 && o.Slots != nil {
		first, _ := o.Slots.Slots(it.Obj)
		a = first.Add(base.WordSize.Mul(int(it.From)))
	}
	if !o.bits.Set(heap.Bit(a)) {
		// Already pending; whoever set the bit links the region.
		return
	}
	r := o.heap.RegionOf(a)
	if a == it.Obj && r.Kind == heap.RegionLargeCont {
		println("overflow", it.Obj.String(), r.String())
		base.Throw("work: overflow of interior address")
	}
	if !r.TryLink() {
		return
	}
	c.regions = append(c.regions, r)
	if len(c.regions) >= o.cacheSize {
		o.FlushCache(c)
	}
}

func (o *RegionOverflow) EmptyToOverflow(pool *Pool, p *Packet, c *OverflowCache) {
	for !p.Empty() {
		o.OverflowItem(p.pop(), c)
	}
	pool.PutEmpty(p)
}

func (o *RegionOverflow) FlushCache(c *OverflowCache) {
	if len(c.regions) == 0 {
		return
	}
	o.mu.Lock()
	for _, r := range c.regions {
		o.push(r)
	}
	o.mu.Unlock()
	o.flushes.Add(1)
	o.regions.Add(int64(len(c.regions)))
	clear(c.regions)
	c.regions = c.regions[:0]
	if o.Notify != nil {
		o.Notify()
	}
}

// push links r into the list. o.mu must be held and r must be linked.
func (o *RegionOverflow) push(r *heap.Region) {
	if !r.Linked() || r.NextOverflow() != heap.NoRegion {
		println("overflow push", r.String(), "next", r.NextOverflow())
		base.Throw("work: overflow list corrupt")
	}
	i := int32(r.Index)
	switch {
	case o.head == heap.NoRegion:
		o.head, o.tail = i, i
	case o.order == base.OverflowFIFO:
		o.heap.Region(int(o.tail)).SetNextOverflow(i)
		o.tail = i
	default:
		r.SetNextOverflow(o.head)
		o.head = i
	}
	o.count.Add(1)
}

// pop unlinks the first region of the list, or returns nil.
func (o *RegionOverflow) pop() *heap.Region {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.head == heap.NoRegion {
		return nil
	}
	r := o.heap.Region(int(o.head))
	o.head = r.NextOverflow()
	if o.head == heap.NoRegion {
		o.tail = heap.NoRegion
	}
	r.SetNextOverflow(heap.NoRegion)
	o.count.Add(-1)
	return r
}

// refillCheckInterval is the number of overflow bits examined between
// yield checks during a refill.
const refillCheckInterval = 64

func (o *RegionOverflow) FillFromOverflow(p *Packet, yp base.YieldPoint) int {
	added := 0
	for !p.Full() {
		r := o.pop()
		if r == nil {
			break
		}
		o.refills.Add(1)
		// Items overflowed from here on relink the region.
		r.Unlink()
		lo, hi := heap.Bit(r.Start), heap.Bit(r.End)
		checks := 0
		yielded := false
		for i := o.bits.NextSet(lo, hi); i < hi; i = o.bits.NextSet(i+1, hi) {
			if p.Full() {
				break
			}
			if checks++; checks%refillCheckInterval == 0 && yp.ShouldYield() {
				yielded = true
				break
			}
			if o.bits.Clear(i) {
				p.push(o.item(r, heap.Addr(i*uint64(base.GranuleSize))))
				added++
			}
		}
		if o.bits.NextSet(lo, hi) < hi && r.TryLink() {
			o.mu.Lock()
			o.push(r)
			o.mu.Unlock()
			o.regions.Add(1)
			if o.Notify != nil {
				o.Notify()
			}
		}
		if yielded {
			break
		}
	}
	return added
}

// item returns the work item for the overflow bit at a in r. A bit at
// an object start is the whole object; any other bit is a continuation
// of the array that contains it.
func (o *RegionOverflow) item(r *heap.Region, a heap.Addr) Item {
	if o.Slots == nil {
		return Item{Obj: a}
	}
	head := r
	for head.Kind == heap.RegionLargeCont {
		head = o.heap.Region(head.Index - 1)
	}
	obj := head.Start.Add(a.Sub(head.Start) / head.CellSize * head.CellSize)
	if obj == a {
		return Item{Obj: a}
	}
	first, _ := o.Slots.Slots(obj)
	return Item{Obj: obj, From: int32(a.Sub(first).CeilDiv(base.WordSize))}
}

// Pending returns the number of overflowed items not yet refilled.
// The world must be stopped or overflow idle.
func (o *RegionOverflow) Pending() int {
	return o.bits.CountRange(0, o.bits.Len())
}
