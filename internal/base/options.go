// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package base holds what every collector package shares: options and
// their sources, byte sizes, errors, logging and the yield point.
package base

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// OverflowOrder selects the order in which overflowed regions are
// handed back to markers.
type OverflowOrder int

const (
	// OverflowLIFO treats the overflow list as a stack of regions.
	OverflowLIFO OverflowOrder = iota
	// OverflowFIFO treats the overflow list as a queue of regions.
	OverflowFIFO
)

func (o OverflowOrder) String() string {
	switch o {
	case OverflowLIFO:
		return "lifo"
	case OverflowFIFO:
		return "fifo"
	}
	return fmt.Sprintf("OverflowOrder(%d)", int(o))
}

// GranuleSize is the minimum allocation unit and the mark bitmap
// resolution.
const GranuleSize Bytes = 16

// WordSize is the size of a heap word.
const WordSize Bytes = 8

// Options configures a collector. Every component receives the options
// it needs at construction; nothing reads them globally.
type Options struct {
	HeapSize   Bytes // arena size
	RegionSize Bytes // region size; a power of two

	Beat              time.Duration // maximum length of one increment
	Window            time.Duration // utilization window
	TargetUtilization float64       // minimum mutator share of each window, in (0, 1]

	Workers            int // collector goroutines per increment
	PacketSize         int // items per work packet
	MaxPackets         int // packets in the pool
	OverflowCacheSize  int // regions per thread-local overflow cache
	OverflowOrder      OverflowOrder
	YieldCheckInterval int // work units between yield checks
	ArraySplitSize     int // slots scanned per reference array item

	SweepMaxRunCells   int // cells coalesced into one free run
	NDSweepMaxAttempts int // candidate regions per on-demand sweep

	TriggerFreeRegions int // start a cycle below this many free regions; 0 derives a fifth of the heap

	LifecycleLists      int // global lists per lifecycle kind
	LifecycleBufferSize int // references per thread-local lifecycle buffer
	BarrierBufferSize   int // entries per thread-local barrier buffer

	AllocRetries int  // collections attempted before an allocation fails
	Concurrent   bool // mutators run during increments
	Verify       bool // check reachable objects are marked at trace end
	GCTrace      int  // 0 quiet, 1 per cycle, 2 per increment
}

// DefaultOptions returns the default collector configuration.
func DefaultOptions() Options {
	workers := runtime.GOMAXPROCS(0) / 2
	if workers < 1 {
		workers = 1
	}
	if workers > 8 {
		workers = 8
	}
	return Options{
		HeapSize:            32 * MiB,
		RegionSize:          64 * KiB,
		Beat:                500 * time.Microsecond,
		Window:              10 * time.Millisecond,
		TargetUtilization:   0.7,
		Workers:             workers,
		PacketSize:          256,
		MaxPackets:          64,
		OverflowCacheSize:   8,
		OverflowOrder:       OverflowLIFO,
		YieldCheckInterval:  256,
		ArraySplitSize:      128,
		SweepMaxRunCells:    64,
		NDSweepMaxAttempts:  4,
		LifecycleLists:      4,
		LifecycleBufferSize: 32,
		BarrierBufferSize:   64,
		AllocRetries:        2,
		Concurrent:          true,
	}
}

// NumRegions returns the number of regions in the heap, including the
// reserved region 0.
func (o *Options) NumRegions() int {
	return o.HeapSize.Div(o.RegionSize)
}

// FreeRegionTrigger returns the free region count below which a cycle
// starts.
func (o *Options) FreeRegionTrigger() int {
	if o.TriggerFreeRegions > 0 {
		return o.TriggerFreeRegions
	}
	return o.NumRegions() / 5
}

// Validate reports the first inconsistency in o.
func (o *Options) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if o.RegionSize < 4*KiB || o.RegionSize&(o.RegionSize-1) != 0 {
		bad("region size %v must be a power of two of at least 4 KiB", o.RegionSize)
	}
	if o.RegionSize != 0 && o.HeapSize%o.RegionSize != 0 {
		bad("heap size %v is not a multiple of region size %v", o.HeapSize, o.RegionSize)
	}
	if o.RegionSize != 0 && o.HeapSize.Div(o.RegionSize) < 4 {
		bad("heap size %v holds fewer than 4 regions", o.HeapSize)
	}
	if o.Beat <= 0 || o.Window < o.Beat {
		bad("beat %v must be positive and no longer than window %v", o.Beat, o.Window)
	}
	if o.TargetUtilization <= 0 || o.TargetUtilization > 1 {
		bad("target utilization %v out of range (0, 1]", o.TargetUtilization)
	}
	if o.Workers < 1 {
		bad("workers = %d", o.Workers)
	}
	if o.PacketSize < 2 {
		bad("packet size %d too small", o.PacketSize)
	}
	if o.MaxPackets < 2*o.Workers {
		bad("max packets %d below two per worker", o.MaxPackets)
	}
	if o.OverflowCacheSize < 1 {
		bad("overflow cache size = %d", o.OverflowCacheSize)
	}
	if o.OverflowOrder != OverflowLIFO && o.OverflowOrder != OverflowFIFO {
		bad("unknown overflow order %v", o.OverflowOrder)
	}
	if o.YieldCheckInterval < 1 || o.ArraySplitSize < 1 || o.SweepMaxRunCells < 1 {
		bad("yield check interval, array split size and sweep run length must be positive")
	}
	if o.NDSweepMaxAttempts < 0 || o.AllocRetries < 0 || o.TriggerFreeRegions < 0 {
		bad("negative sweep attempts, alloc retries or trigger")
	}
	if o.LifecycleLists < 1 || o.LifecycleBufferSize < 1 || o.BarrierBufferSize < 1 {
		bad("lifecycle and barrier buffers must be positive")
	}
	return errors.Join(errs...)
}
