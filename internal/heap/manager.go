// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// A Manager owns the arena and every region descriptor. It hands free
// regions to allocation contexts, keeps per-class lists of swept regions
// with free cells, and the per-class lists of regions still to be swept
// that on-demand sweeping draws from.
type Manager struct {
	arena      *Arena
	classes    *SizeClasses
	regionSize base.Bytes
	regions    []Region
	marks      *MarkMap
	overflow   *Bitmap

	_         cpu.CacheLinePad
	mu        sync.Mutex
	freeHint  int          // no free region below this index
	available [][]*Region  // by class; swept, with free cells
	unswept   [][]*Region  // by class; candidates for on-demand sweep
	_         cpu.CacheLinePad

	sweepGen  atomic.Uint32
	nfree     atomic.Int64
	liveBytes atomic.Int64
}

// NewManager reserves the arena described by opts.
func NewManager(opts *base.Options) (*Manager, error) {
	arena, err := NewArena(opts.HeapSize)
	if err != nil {
		return nil, err
	}
	n := opts.NumRegions()
	granules := uint64(opts.HeapSize / base.GranuleSize)
	m := &Manager{
		arena:      arena,
		classes:    NewSizeClasses(opts.RegionSize),
		regionSize: opts.RegionSize,
		regions:    make([]Region, n),
		marks:      NewMarkMap(granules),
		overflow:   NewBitmap(granules),
		freeHint:   1,
	}
	m.available = make([][]*Region, m.classes.NumClasses())
	m.unswept = make([][]*Region, m.classes.NumClasses())
	for i := range m.regions {
		r := &m.regions[i]
		r.Index = i
		r.Start = Addr(opts.RegionSize.Mul(i))
		r.End = r.Start.Add(opts.RegionSize)
		r.nextOverflow = NoRegion
		r.Kind = RegionFree
	}
	m.regions[0].Kind = RegionReserved
	m.nfree.Store(int64(n - 1))
	return m, nil
}

// Close releases the arena.
func (m *Manager) Close() error { return m.arena.Free() }

func (m *Manager) Arena() *Arena { return m.arena }

func (m *Manager) Classes() *SizeClasses { return m.classes }

func (m *Manager) Marks() *MarkMap { return m.marks }

func (m *Manager) Overflow() *Bitmap { return m.overflow }

func (m *Manager) RegionSize() base.Bytes { return m.regionSize }

func (m *Manager) NumRegions() int { return len(m.regions) }

func (m *Manager) Region(i int) *Region { return &m.regions[i] }

// RegionOf returns the region containing addr.
func (m *Manager) RegionOf(addr Addr) *Region {
	i := uint64(addr) / uint64(m.regionSize)
	if addr == Nil || i >= uint64(len(m.regions)) {
		base.Throwf("heap: address %v outside heap", addr)
	}
	return &m.regions[i]
}

// Bit returns the mark and overflow bitmap index of addr.
func Bit(addr Addr) uint64 { return uint64(addr) / uint64(base.GranuleSize) }

// Mark sets addr's bit in the current mark bitmap and reports whether
// this call set it.
func (m *Manager) Mark(addr Addr) bool { return m.marks.Current().Set(Bit(addr)) }

func (m *Manager) IsMarked(addr Addr) bool { return m.marks.Current().Test(Bit(addr)) }

// CountMarked returns the number of marked granules in r.
func (m *Manager) CountMarked(r *Region) int {
	return m.marks.Current().CountRange(Bit(r.Start), Bit(r.End))
}

// SweepGen returns the current sweep generation.
func (m *Manager) SweepGen() uint32 { return m.sweepGen.Load() }

// FreeRegions returns the number of free regions.
func (m *Manager) FreeRegions() int { return int(m.nfree.Load()) }

// LiveBytes returns the bytes in allocated cells and large objects.
func (m *Manager) LiveBytes() base.Bytes { return base.Bytes(m.liveBytes.Load()) }

// NoteAlloc and NoteFree maintain LiveBytes.
func (m *Manager) NoteAlloc(n base.Bytes) { m.liveBytes.Add(int64(n)) }

func (m *Manager) NoteFree(n base.Bytes) { m.liveBytes.Add(-int64(n)) }

// AllocateRegion returns a region of class with at least one free cell:
// a swept region with free cells if there is one, otherwise a free
// region. It returns nil if neither exists.
func (m *Manager) AllocateRegion(class int) *Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	avail := m.available[class]
	for len(avail) > 0 {
		r := avail[len(avail)-1]
		avail = avail[:len(avail)-1]
		if r.Kind == RegionSmall && r.SizeClass == class && r.FreeCells > 0 {
			m.available[class] = avail
			return r
		}
	}
	m.available[class] = avail
	i := m.findFree(1)
	if i < 0 {
		return nil
	}
	r := &m.regions[i]
	r.Kind = RegionSmall
	r.SizeClass = class
	r.CellSize = m.classes.CellSize(class)
	r.NumCells = m.classes.CellsPerRegion(class)
	r.Span = 1
	r.SweepCursor, r.SweepTail, r.SweepLive, r.SweepFree = 0, Nil, 0, 0
	r.ResetFree()
	r.AppendRun(m.arena, Nil, r.Start, r.NumCells)
	r.SetSweepGen(m.sweepGen.Load())
	m.nfree.Add(-1)
	return r
}

// AllocateLarge returns the first of enough contiguous free regions to
// hold size bytes, or nil.
func (m *Manager) AllocateLarge(size base.Bytes) *Region {
	n := size.CeilDiv(m.regionSize)
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.findFree(n)
	if i < 0 {
		return nil
	}
	sg := m.sweepGen.Load()
	for j := i; j < i+n; j++ {
		r := &m.regions[j]
		r.Kind = RegionLargeCont
		r.SizeClass = 0
		r.CellSize = m.regionSize
		r.NumCells = 1
		r.Span = 0
		r.ResetFree()
		r.SetSweepGen(sg)
	}
	head := &m.regions[i]
	head.Kind = RegionLarge
	head.CellSize = m.regionSize.Mul(n)
	head.Span = n
	m.nfree.Add(-int64(n))
	return head
}

// findFree returns the index of the first run of n free regions, or -1.
// m.mu must be held.
func (m *Manager) findFree(n int) int {
	run := 0
	for i := m.freeHint; i < len(m.regions); i++ {
		if m.regions[i].Kind != RegionFree {
			run = 0
			continue
		}
		run++
		if run == n {
			start := i - n + 1
			if n == 1 || start == m.freeHint {
				m.freeHint = i + 1
			}
			return start
		}
	}
	return -1
}

// ReleaseRegion returns r, and for a large object every region of its
// span, to the free pool.
func (m *Manager) ReleaseRegion(r *Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(r)
}

func (m *Manager) release(r *Region) {
	switch r.Kind {
	case RegionSmall, RegionLarge:
	default:
		println("release", r.String())
		base.Throw("heap: release of region not in use")
	}
	n := r.Span
	sg := m.sweepGen.Load()
	for j := r.Index; j < r.Index+n; j++ {
		q := &m.regions[j]
		q.Kind = RegionFree
		q.SizeClass = 0
		q.Span = 0
		q.ResetFree()
		q.SetSweepGen(sg)
	}
	if r.Index < m.freeHint {
		m.freeHint = r.Index
	}
	m.nfree.Add(int64(n))
}

// PutAvailable makes a swept small region with free cells available
// to allocation contexts. A region with no free cells is dropped; sweep
// finds it again by index.
func (m *Manager) PutAvailable(r *Region) {
	if r.Kind != RegionSmall {
		base.Throwf("heap: %v is not small", r)
	}
	if r.FreeCells == 0 {
		return
	}
	m.mu.Lock()
	m.available[r.SizeClass] = append(m.available[r.SizeClass], r)
	m.mu.Unlock()
}

// PutSwept finishes the sweep of a small region: an entirely free region
// returns to the free pool; otherwise the region becomes swept and, if
// it has free cells, available.
func (m *Manager) PutSwept(r *Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.FreeCells == r.NumCells {
		m.release(r)
		return
	}
	r.SetSweepGen(m.sweepGen.Load())
	if r.FreeCells > 0 {
		m.available[r.SizeClass] = append(m.available[r.SizeClass], r)
	}
}

// BeginSweep starts a sweep generation: every region in use becomes
// unswept, and small regions become candidates for on-demand sweeping.
// The world must be stopped and allocation contexts flushed.
func (m *Manager) BeginSweep() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	sg := m.sweepGen.Add(2)
	for c := range m.available {
		m.available[c] = m.available[c][:0]
		m.unswept[c] = m.unswept[c][:0]
	}
	for i := 1; i < len(m.regions); i++ {
		r := &m.regions[i]
		switch r.Kind {
		case RegionFree, RegionLargeCont:
			r.SetSweepGen(sg)
		case RegionSmall:
			r.SweepCursor, r.SweepTail, r.SweepLive, r.SweepFree = 0, Nil, 0, 0
			m.unswept[r.SizeClass] = append(m.unswept[r.SizeClass], r)
		}
	}
	return sg
}

// PopUnswept claims the sweep of an unswept region of class and
// returns it, or returns nil if no candidate remains.
func (m *Manager) PopUnswept(class int) *Region {
	sg := m.sweepGen.Load()
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.unswept[class]
	for len(list) > 0 {
		r := list[len(list)-1]
		list = list[:len(list)-1]
		if r.Kind == RegionSmall && r.SizeClass == class && r.ClaimSweep(sg) {
			m.unswept[class] = list
			return r
		}
	}
	m.unswept[class] = list
	return nil
}
