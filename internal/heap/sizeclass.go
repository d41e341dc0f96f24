// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "github.com/eclipse-openj9/openj9-sub077/internal/base"

// MaxSmallSize bounds the small size classes. A region must also hold
// at least minCellsPerRegion cells of the largest class.
const (
	MaxSmallSize      base.Bytes = 8192
	minCellsPerRegion            = 8
)

// SizeClasses maps allocation sizes to cell sizes. Class 0 means "no
// class": the object is large and takes whole regions.
//
// The classes are chosen so that rounding a request up to the next
// class wastes at most 12.5%, and two sizes that fit the same number of
// cells into a region share a class.
type SizeClasses struct {
	regionSize base.Bytes
	maxSmall   base.Bytes
	sizes      []base.Bytes // class -> cell size
	toClass    []uint8      // size/GranuleSize (rounded up) -> class
}

func NewSizeClasses(regionSize base.Bytes) *SizeClasses {
	maxSmall := MaxSmallSize
	if lim := regionSize / minCellsPerRegion; lim < maxSmall {
		maxSmall = lim
	}
	sc := &SizeClasses{regionSize: regionSize, maxSmall: maxSmall}
	sc.sizes = append(sc.sizes, 0)
	align := base.GranuleSize
	for size := align; size <= maxSmall; size += align {
		if size&(size-1) == 0 { // bump alignment once in a while
			if size >= 2048 {
				align = 256
			} else if size >= 128 {
				align = size / 8
			}
		}
		if align&(align-1) != 0 {
			base.Throw("heap: size class alignment")
		}
		n := len(sc.sizes)
		if n > 1 && regionSize.Div(size) == regionSize.Div(sc.sizes[n-1]) {
			sc.sizes[n-1] = size
			continue
		}
		sc.sizes = append(sc.sizes, size)
	}
	if len(sc.sizes) > 255 {
		base.Throw("heap: too many size classes")
	}
	sc.maxSmall = sc.sizes[len(sc.sizes)-1]

	sc.toClass = make([]uint8, sc.maxSmall/base.GranuleSize+1)
	next := base.Bytes(0)
	for class := 1; class < len(sc.sizes); class++ {
		for ; next <= sc.sizes[class]; next += base.GranuleSize {
			sc.toClass[next/base.GranuleSize] = uint8(class)
		}
	}
	return sc
}

// NumClasses returns the number of classes, including class 0.
func (sc *SizeClasses) NumClasses() int { return len(sc.sizes) }

// MaxSmall returns the largest cell size.
func (sc *SizeClasses) MaxSmall() base.Bytes { return sc.maxSmall }

// Class returns the size class for an allocation of size bytes, or 0
// if the allocation must be large.
func (sc *SizeClasses) Class(size base.Bytes) int {
	if size > sc.maxSmall {
		return 0
	}
	return int(sc.toClass[size.CeilDiv(base.GranuleSize)])
}

// CellSize returns the cell size of class.
func (sc *SizeClasses) CellSize(class int) base.Bytes { return sc.sizes[class] }

// CellsPerRegion returns the number of cells of class in one region.
func (sc *SizeClasses) CellsPerRegion(class int) int {
	return sc.regionSize.Div(sc.sizes[class])
}
