// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alloc implements per-mutator allocation contexts. A context
// caches one region per size class and pops cells from its free runs;
// only refills touch the region manager.
package alloc

import (
	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/sweep"
)

// Env is what an allocation context needs from the collector.
type Env interface {
	// AllocateBlack reports whether new objects must be marked: a
	// cycle is active and has not reached its sweep.
	AllocateBlack() bool
	// Sweeping reports whether the sweep phase is active, so that
	// unswept regions may be swept on demand.
	Sweeping() bool
	// Trigger asks the scheduler to start a cycle. It must not block.
	Trigger()
	// Starved reports whether some mutator is waiting for a collection
	// to free memory. Other mutators then stop taking regions.
	Starved() bool
}

// A Context is one mutator's allocation state. It is not safe for
// concurrent use.
type Context struct {
	heap    *heap.Manager
	classes *heap.SizeClasses
	sweep   *sweep.Scheme
	env     Env
	trigger int
	regions []*heap.Region // by size class

	// Allocated counts bytes handed out, by cell size.
	Allocated int64
	// Objects counts allocations.
	Objects int64
	// Failed counts allocations that found no memory.
	Failed int64

	// Waited is set by the owner after it has waited for a collection.
	// Its refills are then served even while the heap is starved.
	Waited bool
	// Throttled reports that the last failed allocation was refused
	// because another mutator is waiting for memory.
	Throttled bool
}

func NewContext(h *heap.Manager, sw *sweep.Scheme, env Env, opts *base.Options) *Context {
	return &Context{
		heap:    h,
		classes: h.Classes(),
		sweep:   sw,
		env:     env,
		trigger: opts.FreeRegionTrigger(),
		regions: make([]*heap.Region, h.Classes().NumClasses()),
	}
}

// Allocate returns size bytes of zeroed memory, or false if the heap has
// no room. Objects larger than the largest size class take whole
// regions.
func (c *Context) Allocate(size base.Bytes) (heap.Addr, bool) {
	if size == 0 {
		size = base.WordSize
	}
	class := c.classes.Class(size)
	if class == 0 {
		return c.allocateLarge(size)
	}
	arena := c.heap.Arena()
	r := c.regions[class]
	a := heap.Nil
	if r != nil {
		a = r.PopCell(arena)
	}
	if a == heap.Nil {
		if r = c.refill(class); r == nil {
			if !c.Throttled {
				c.Failed++
			}
			return heap.Nil, false
		}
		a = r.PopCell(arena)
		if a == heap.Nil {
			base.Throwf("alloc: refilled %v has no free cell", r)
		}
	}
	arena.Zero(a, r.CellSize)
	c.finish(a, r.CellSize)
	return a, true
}

func (c *Context) finish(a heap.Addr, size base.Bytes) {
	if c.env.AllocateBlack() {
		c.heap.Mark(a)
	}
	c.heap.NoteAlloc(size)
	c.Allocated += int64(size)
	c.Objects++
}

// refill replaces the depleted region of class: a swept region with free
// cells or a free region from the manager, or during sweep, a region
// swept on demand. If none is found it signals the scheduler.
func (c *Context) refill(class int) *heap.Region {
	// A full region is dropped; the sweep finds it by index.
	c.regions[class] = nil
	if c.throttle() {
		return nil
	}
	for {
		if r := c.heap.AllocateRegion(class); r != nil {
			c.regions[class] = r
			c.checkTrigger()
			return r
		}
		if !c.env.Sweeping() || !c.sweep.OnDemand(class) {
			break
		}
	}
	c.env.Trigger()
	return nil
}

// throttle reports whether a refill must wait for the collection that
// starved mutators are waiting for.
func (c *Context) throttle() bool {
	c.Throttled = !c.Waited && c.env.Starved()
	return c.Throttled
}

func (c *Context) checkTrigger() {
	if c.heap.FreeRegions() < c.trigger {
		c.env.Trigger()
	}
}

func (c *Context) allocateLarge(size base.Bytes) (heap.Addr, bool) {
	if c.throttle() {
		return heap.Nil, false
	}
	r := c.heap.AllocateLarge(size)
	if r == nil {
		c.Failed++
		c.env.Trigger()
		return heap.Nil, false
	}
	c.heap.Arena().Zero(r.Start, size.RoundUp(base.WordSize))
	c.finish(r.Start, r.CellSize)
	c.checkTrigger()
	return r.Start, true
}

// Flush gives every cached region back to the manager. The collector
// flushes all contexts, with the world stopped, before sweeping.
func (c *Context) Flush() {
	for i, r := range c.regions {
		if r != nil {
			c.heap.PutAvailable(r)
			c.regions[i] = nil
		}
	}
}
