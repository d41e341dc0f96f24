// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"fmt"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// RegionKind says what a region holds.
type RegionKind uint8

const (
	RegionFree      RegionKind = iota
	RegionSmall                // cells of one size class
	RegionLarge                // first region of a large object
	RegionLargeCont            // later regions of a large object
	RegionReserved             // region 0
)

var regionKindNames = [...]string{
	RegionFree:      "free",
	RegionSmall:     "small",
	RegionLarge:     "large",
	RegionLargeCont: "large-cont",
	RegionReserved:  "reserved",
}

func (k RegionKind) String() string {
	if int(k) < len(regionKindNames) {
		return regionKindNames[k]
	}
	return fmt.Sprintf("RegionKind(%d)", int(k))
}

// NoRegion is the nil region index of an overflow link.
const NoRegion int32 = -1

// A Region describes one fixed-size slice of the arena.
//
// Kind, SizeClass, CellSize, NumCells and Span change only under the
// manager lock, while no marker or sweeper can reach the region. The
// free-run list is owned by whoever holds the region: an allocation
// context, a sweeper that claimed it, or the manager.
//
// Sweep generations follow the allocator's convention: if sweepGen ==
// sg-2 the region needs sweeping, sg-1 it is being swept, sg it is
// swept and ready to use. The manager adds 2 to sg at sweep start.
type Region struct {
	Index      int
	Start, End Addr

	Kind      RegionKind
	SizeClass int
	CellSize  base.Bytes
	NumCells  int
	Span      int // regions in a large object, on its first region

	freeHead  Addr // first free run
	FreeCells int

	sweepGen atomic.Uint32

	// Sweep progress of a region whose sweep yielded part way.
	SweepCursor int  // next cell to examine
	SweepTail   Addr // last run added this sweep
	SweepLive   int  // marked cells seen so far
	SweepFree   int  // free cells when the sweep started

	// Overflow link. nextOverflow is guarded by the overflow list lock;
	// overflowLinked is set by whoever links the region into a cache
	// or the list and cleared by the refiller that pops it.
	nextOverflow   int32
	overflowLinked atomic.Bool
}

func (r *Region) String() string {
	return fmt.Sprintf("region %d [%v,%v) %v class=%d", r.Index, r.Start, r.End, r.Kind, r.SizeClass)
}

// CellAddr returns the address of cell i.
func (r *Region) CellAddr(i int) Addr {
	return r.Start.Add(r.CellSize.Mul(i))
}

// CellIndex returns the index of the cell holding addr.
func (r *Region) CellIndex(addr Addr) int {
	return addr.Sub(r.Start).Div(r.CellSize)
}

func (r *Region) SweepGen() uint32 { return r.sweepGen.Load() }

func (r *Region) SetSweepGen(g uint32) { r.sweepGen.Store(g) }

// ClaimSweep moves the region from needs-sweeping to being-swept and
// reports whether the caller now owns the sweep.
func (r *Region) ClaimSweep(sg uint32) bool {
	return r.sweepGen.Load() == sg-2 && r.sweepGen.CompareAndSwap(sg-2, sg-1)
}

// Swept reports whether the region is swept in generation sg.
func (r *Region) Swept(sg uint32) bool { return r.sweepGen.Load() == sg }

// TryLink marks the region as linked into an overflow structure and
// reports whether the caller did so. At most one overflow cache or list
// references a region at a time.
func (r *Region) TryLink() bool {
	return !r.overflowLinked.Load() && r.overflowLinked.CompareAndSwap(false, true)
}

// Unlink clears the linked flag. Called by the refiller before it scans
// the region so that items overflowed during the scan relink it.
func (r *Region) Unlink() { r.overflowLinked.Store(false) }

func (r *Region) Linked() bool { return r.overflowLinked.Load() }

func (r *Region) NextOverflow() int32 { return r.nextOverflow }

func (r *Region) SetNextOverflow(i int32) { r.nextOverflow = i }

// Free runs. The first two words of a run are the address of the next
// run and the run's length in cells.

// FreeHead returns the first free run.
func (r *Region) FreeHead() Addr { return r.freeHead }

// ResetFree makes the region's free list empty.
func (r *Region) ResetFree() {
	r.freeHead = Nil
	r.FreeCells = 0
}

// AppendRun adds a run of n cells starting at addr after tail (or at the
// head if tail is Nil) and returns the new tail.
func (r *Region) AppendRun(a *Arena, tail, addr Addr, n int) Addr {
	a.StoreAddr(addr, Nil)
	a.Store(addr+8, uint64(n))
	if tail == Nil {
		r.freeHead = addr
	} else {
		a.StoreAddr(tail, addr)
	}
	r.FreeCells += n
	return addr
}

// PopCell removes the first cell of the first run and returns it, or Nil
// if the region has no free cells. The cell is not zeroed.
func (r *Region) PopCell(a *Arena) Addr {
	run := r.freeHead
	if run == Nil {
		return Nil
	}
	next := a.LoadAddr(run)
	n := int(a.Load(run + 8))
	if n < 1 || n > r.FreeCells {
		println("region", r.Index, "run", uint64(run), "cells", n, "free", r.FreeCells)
		base.Throw("heap: corrupt free run")
	}
	if n == 1 {
		r.freeHead = next
	} else {
		rest := run.Add(r.CellSize)
		a.StoreAddr(rest, next)
		a.Store(rest+8, uint64(n-1))
		r.freeHead = rest
	}
	r.FreeCells--
	return run
}
