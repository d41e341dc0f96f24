// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sweep reclaims the cells marking did not reach. Sweepers
// claim regions by index, rebuild each small region's free runs from
// the mark bitmap, return dead large objects and empty regions to the
// free pool, and finally clear the previous cycle's mark bitmap.
// Allocators that find no swept region may sweep a candidate of their
// size class on demand.
package sweep

import (
	"sync"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// clearChunk is the number of alternate bitmap bits cleared between
// yield checks.
const clearChunk = 64 * 1024

// Stats counts sweep work in the current cycle.
type Stats struct {
	Regions    int64 // regions swept
	Cells      int64 // cells examined
	CellsFreed int64 // allocated cells reclaimed
	BytesFreed int64 // bytes reclaimed, small and large
	LargeFreed int64 // large objects reclaimed
	EmptyFreed int64 // small regions returned to the free pool
	NDSweeps   int64 // regions swept on demand
	NDSkipped  int64 // on-demand candidates skipped as full
}

// A Scheme sweeps one heap.
type Scheme struct {
	heap       *heap.Manager
	maxRun     int
	ndAttempts int

	sg          uint32
	cursor      atomic.Int64
	clearCursor atomic.Uint64

	mu      sync.Mutex
	partial []*heap.Region

	regions    atomic.Int64
	cells      atomic.Int64
	cellsFreed atomic.Int64
	bytesFreed atomic.Int64
	largeFreed atomic.Int64
	emptyFreed atomic.Int64
	ndSweeps   atomic.Int64
	ndSkipped  atomic.Int64
}

func NewScheme(h *heap.Manager, opts *base.Options) *Scheme {
	return &Scheme{
		heap:       h,
		maxRun:     opts.SweepMaxRunCells,
		ndAttempts: opts.NDSweepMaxAttempts,
	}
}

// Begin starts the sweep of a cycle. The world must be stopped and
// every allocation context flushed.
func (s *Scheme) Begin() {
	s.sg = s.heap.BeginSweep()
	s.cursor.Store(1)
	s.clearCursor.Store(0)
	s.mu.Lock()
	s.partial = s.partial[:0]
	s.mu.Unlock()
	s.regions.Store(0)
	s.cells.Store(0)
	s.cellsFreed.Store(0)
	s.bytesFreed.Store(0)
	s.largeFreed.Store(0)
	s.emptyFreed.Store(0)
	s.ndSweeps.Store(0)
	s.ndSkipped.Store(0)
}

func (s *Scheme) Stats() Stats {
	return Stats{
		Regions:    s.regions.Load(),
		Cells:      s.cells.Load(),
		CellsFreed: s.cellsFreed.Load(),
		BytesFreed: s.bytesFreed.Load(),
		LargeFreed: s.largeFreed.Load(),
		EmptyFreed: s.emptyFreed.Load(),
		NDSweeps:   s.ndSweeps.Load(),
		NDSkipped:  s.ndSkipped.Load(),
	}
}

// next returns a region whose sweep the caller now owns: one whose
// sweep yielded earlier, or the next unswept region by index.
func (s *Scheme) next() *heap.Region {
	s.mu.Lock()
	if n := len(s.partial); n > 0 {
		r := s.partial[n-1]
		s.partial = s.partial[:n-1]
		s.mu.Unlock()
		return r
	}
	s.mu.Unlock()
	for {
		i := s.cursor.Add(1) - 1
		if i >= int64(s.heap.NumRegions()) {
			return nil
		}
		r := s.heap.Region(int(i))
		if r.ClaimSweep(s.sg) {
			return r
		}
	}
}

func (s *Scheme) putPartial(r *heap.Region) {
	s.mu.Lock()
	s.partial = append(s.partial, r)
	s.mu.Unlock()
}

// Sweep sweeps regions until none is left or yp asks to yield, then
// clears the alternate mark bitmap. It reports whether this sweeper
// ran out of work. Several sweepers may run at once; the sweep is
// finished when all have returned true.
func (s *Scheme) Sweep(yp base.YieldPoint) bool {
	for {
		r := s.next()
		if r == nil {
			break
		}
		if !s.sweepRegion(r, yp) {
			s.putPartial(r)
			return false
		}
		if yp.ShouldYield() {
			return false
		}
	}
	return s.ClearAlternate(yp)
}

// Done reports whether every region is swept and the alternate bitmap
// cleared. Call it only while no sweeper is running.
func (s *Scheme) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.partial) == 0 &&
		s.cursor.Load() >= int64(s.heap.NumRegions()) &&
		s.clearCursor.Load() >= s.heap.Marks().Alternate().Len()
}

// sweepRegion sweeps r, which the caller has claimed. It reports false
// if it yielded part way; r then keeps its progress.
func (s *Scheme) sweepRegion(r *heap.Region, yp base.YieldPoint) bool {
	switch r.Kind {
	case heap.RegionSmall:
		done, _ := s.sweepSmall(r, yp)
		return done
	case heap.RegionLarge:
		s.sweepLarge(r)
		return true
	}
	println("sweep", r.String(), "gen", r.SweepGen(), "sg", s.sg)
	base.Throw("sweep: claimed region not in use")
	return true
}

func (s *Scheme) sweepLarge(r *heap.Region) {
	s.regions.Add(1)
	s.cells.Add(1)
	if s.heap.IsMarked(r.Start) {
		r.SetSweepGen(s.sg)
		return
	}
	size := r.CellSize
	s.heap.NoteFree(size)
	s.bytesFreed.Add(int64(size))
	s.largeFreed.Add(1)
	s.heap.ReleaseRegion(r)
}

// sweepSmall rebuilds r's free runs from the mark bitmap. Adjacent
// unmarked cells coalesce into runs of at most maxRun cells; a yield
// check follows each run and each maxRun marked cells. It reports
// whether the sweep finished and, if so, whether any cell is free.
func (s *Scheme) sweepSmall(r *heap.Region, yp base.YieldPoint) (done, free bool) {
	marks := s.heap.Marks().Current()
	arena := s.heap.Arena()
	if r.SweepCursor == 0 {
		r.SweepFree = r.FreeCells
		r.ResetFree()
		r.SweepTail = heap.Nil
		r.SweepLive = 0
	}
	examined, sinceCheck := 0, 0
	for i := r.SweepCursor; i < r.NumCells; {
		run := false
		if marks.Test(heap.Bit(r.CellAddr(i))) {
			r.SweepLive++
			i++
			examined++
			sinceCheck++
		} else {
			j := i + 1
			for j < r.NumCells && j-i < s.maxRun && !marks.Test(heap.Bit(r.CellAddr(j))) {
				j++
			}
			r.SweepTail = r.AppendRun(arena, r.SweepTail, r.CellAddr(i), j-i)
			examined += j - i
			i = j
			run = true
		}
		r.SweepCursor = i
		if i < r.NumCells && (run || sinceCheck >= s.maxRun) {
			sinceCheck = 0
			if yp.ShouldYield() {
				s.cells.Add(int64(examined))
				return false, false
			}
		}
	}
	s.cells.Add(int64(examined))
	return true, s.finishSmall(r)
}

// finishSmall accounts for a swept region and hands it back to the
// manager. It reports whether the region had free cells.
func (s *Scheme) finishSmall(r *heap.Region) bool {
	if r.SweepLive+r.FreeCells != r.NumCells {
		println("sweep", r.String(), "live", r.SweepLive, "free", r.FreeCells, "cells", r.NumCells)
		base.Throw("sweep: cell count mismatch")
	}
	freed := r.NumCells - r.SweepFree - r.SweepLive
	if freed < 0 {
		println("sweep", r.String(), "live", r.SweepLive, "free before", r.SweepFree)
		base.Throw("sweep: marked cell on free list")
	}
	bytes := r.CellSize.Mul(freed)
	s.heap.NoteFree(bytes)
	s.cellsFreed.Add(int64(freed))
	s.bytesFreed.Add(int64(bytes))
	s.regions.Add(1)
	if r.SweepLive == 0 {
		s.emptyFreed.Add(1)
	}
	r.SweepCursor = r.NumCells
	free := r.SweepLive < r.NumCells
	s.heap.PutSwept(r)
	return free
}

// OnDemand sweeps unswept regions of class for an allocator that found
// no swept region with free cells. The number of candidates it tries
// grows with their occupancy: the budget is the configured attempt
// count scaled by one plus the densest candidate's fraction of marked
// cells. A candidate whose mark count shows it full is marked swept
// without walking its cells. It reports whether a region with free
// cells, or a free region, was produced.
func (s *Scheme) OnDemand(class int) bool {
	budget := float64(s.ndAttempts)
	for attempt := 0; float64(attempt) < budget; attempt++ {
		r := s.heap.PopUnswept(class)
		if r == nil {
			return false
		}
		marked := s.heap.CountMarked(r)
		occupancy := min(float64(marked)/float64(r.NumCells), 1)
		budget = max(budget, float64(s.ndAttempts)*(1+occupancy))
		if r.SweepCursor == 0 && marked >= r.NumCells {
			s.ndSkipped.Add(1)
			r.SweepFree = r.FreeCells
			r.ResetFree()
			r.SweepLive = r.NumCells
			s.finishSmall(r)
			continue
		}
		s.ndSweeps.Add(1)
		if _, free := s.sweepSmall(r, base.Never); free {
			return true
		}
	}
	return false
}

// ClearAlternate clears the previous cycle's mark bitmap in chunks,
// checking yp between chunks. It reports whether no chunk is left to
// claim.
func (s *Scheme) ClearAlternate(yp base.YieldPoint) bool {
	bm := s.heap.Marks().Alternate()
	n := bm.Len()
	for {
		start := s.clearCursor.Add(clearChunk) - clearChunk
		if start >= n {
			return true
		}
		bm.ClearRange(start, min(start+clearChunk, n))
		if yp.ShouldYield() {
			return false
		}
	}
}
