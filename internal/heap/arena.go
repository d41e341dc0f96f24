// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the collected heap: a word-addressed arena
// carved into fixed-size regions, the size-class table, the mark and
// overflow bitmaps, and the region manager that hands regions to
// allocators and sweepers.
package heap

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// An Addr is a byte offset into the arena. The first region is never
// handed out, so the zero Addr is nil.
type Addr uint64

const Nil Addr = 0

func (a Addr) Add(b base.Bytes) Addr { return a + Addr(b) }

func (a Addr) Sub(b Addr) base.Bytes { return base.Bytes(a - b) }

func (a Addr) String() string { return fmt.Sprintf("%#x", uint64(a)) }

// An Arena is the backing store of the heap. All words are accessed
// atomically: mutators, markers and sweepers may touch the same words
// concurrently.
type Arena struct {
	mem   []byte
	words []uint64
}

// NewArena reserves size bytes of zeroed memory.
func NewArena(size base.Bytes) (*Arena, error) {
	if size == 0 || size%base.WordSize != 0 {
		return nil, fmt.Errorf("rtgc: bad arena size %v", size)
	}
	mem, err := sysReserve(int(size))
	if err != nil {
		return nil, fmt.Errorf("rtgc: reserve %v arena: %w", size, err)
	}
	return &Arena{mem: mem, words: castWords(mem)}, nil
}

func castWords(b []byte) []uint64 {
	d := (*uint64)(unsafe.Pointer(unsafe.SliceData(b)))
	return unsafe.Slice(d, len(b)/int(unsafe.Sizeof(*d)))
}

// Free releases the arena's memory. The arena must not be used again.
func (a *Arena) Free() error {
	mem := a.mem
	a.mem, a.words = nil, nil
	return sysFree(mem)
}

func (a *Arena) Size() base.Bytes { return base.Bytes(len(a.mem)) }

func (a *Arena) word(addr Addr) *uint64 {
	if addr%Addr(base.WordSize) != 0 || uint64(addr) >= uint64(len(a.mem)) {
		base.Throwf("heap: bad word address %v", addr)
	}
	return &a.words[addr/Addr(base.WordSize)]
}

func (a *Arena) Load(addr Addr) uint64 { return atomic.LoadUint64(a.word(addr)) }

func (a *Arena) Store(addr Addr, v uint64) { atomic.StoreUint64(a.word(addr), v) }

func (a *Arena) LoadAddr(addr Addr) Addr { return Addr(a.Load(addr)) }

func (a *Arena) StoreAddr(addr, v Addr) { a.Store(addr, uint64(v)) }

// SwapAddr stores v at addr and returns the previous value.
func (a *Arena) SwapAddr(addr, v Addr) Addr {
	return Addr(atomic.SwapUint64(a.word(addr), uint64(v)))
}

// Zero clears n bytes starting at addr. Both must be word aligned.
func (a *Arena) Zero(addr Addr, n base.Bytes) {
	for p, end := addr, addr.Add(n); p < end; p += Addr(base.WordSize) {
		atomic.StoreUint64(a.word(p), 0)
	}
}
