// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"math/bits"
	"sync/atomic"
)

// A Bitmap is a fixed-size set of bits with atomic update. Bit i
// describes the granule at address i*GranuleSize.
type Bitmap struct {
	words []atomic.Uint64
	n     uint64
}

func NewBitmap(nBits uint64) *Bitmap {
	return &Bitmap{words: make([]atomic.Uint64, (nBits+63)/64), n: nBits}
}

func (b *Bitmap) Len() uint64 { return b.n }

// Set sets bit i and reports whether this call changed it from 0 to 1.
func (b *Bitmap) Set(i uint64) bool {
	mask := uint64(1) << (i % 64)
	return b.words[i/64].Or(mask)&mask == 0
}

// Clear clears bit i and reports whether this call changed it from 1
// to 0.
func (b *Bitmap) Clear(i uint64) bool {
	mask := uint64(1) << (i % 64)
	return b.words[i/64].And(^mask)&mask != 0
}

func (b *Bitmap) Test(i uint64) bool {
	return b.words[i/64].Load()&(1<<(i%64)) != 0
}

// rangeMask returns the mask of bits [start, end) within word w.
func rangeMask(w, start, end uint64) uint64 {
	lo, hi := w*64, w*64+64
	m := ^uint64(0)
	if start > lo {
		m &= ^uint64(0) << (start - lo)
	}
	if end < hi {
		m &= ^uint64(0) >> (hi - end)
	}
	return m
}

// ClearRange clears bits [start, end).
func (b *Bitmap) ClearRange(start, end uint64) {
	if start >= end {
		return
	}
	for w := start / 64; w <= (end-1)/64; w++ {
		m := rangeMask(w, start, end)
		if m == ^uint64(0) {
			b.words[w].Store(0)
		} else {
			b.words[w].And(^m)
		}
	}
}

// CountRange returns the number of set bits in [start, end).
func (b *Bitmap) CountRange(start, end uint64) int {
	if start >= end {
		return 0
	}
	n := 0
	for w := start / 64; w <= (end-1)/64; w++ {
		n += bits.OnesCount64(b.words[w].Load() & rangeMask(w, start, end))
	}
	return n
}

// NextSet returns the index of the first set bit in [start, end), or
// end if there is none.
func (b *Bitmap) NextSet(start, end uint64) uint64 {
	for i := start; i < end; {
		w := i / 64
		word := b.words[w].Load() & rangeMask(w, i, end)
		if word != 0 {
			return w*64 + uint64(bits.TrailingZeros64(word))
		}
		i = (w + 1) * 64
	}
	return end
}

// A MarkMap is a pair of mark bitmaps that alternate by cycle epoch.
// Flipping the epoch makes the alternate bitmap current in O(1); the
// bitmap that stops being current must be cleared before the next flip.
type MarkMap struct {
	maps  [2]*Bitmap
	epoch atomic.Uint32
}

func NewMarkMap(nBits uint64) *MarkMap {
	return &MarkMap{maps: [2]*Bitmap{NewBitmap(nBits), NewBitmap(nBits)}}
}

// Flip swaps the current and alternate bitmaps. The world must be
// stopped.
func (m *MarkMap) Flip() { m.epoch.Add(1) }

func (m *MarkMap) Epoch() uint32 { return m.epoch.Load() }

// Current returns the bitmap marking uses this cycle.
func (m *MarkMap) Current() *Bitmap { return m.maps[m.epoch.Load()&1] }

// Alternate returns the previous cycle's bitmap.
func (m *MarkMap) Alternate() *Bitmap { return m.maps[(m.epoch.Load()+1)&1] }
