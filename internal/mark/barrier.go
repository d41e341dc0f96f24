// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mark

import (
	"sync"
	"sync/atomic"

	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// A RememberedSet collects the objects recorded by write barriers.
// Mutators hand it whole buffers; the marker takes them all at once.
type RememberedSet struct {
	mu    sync.Mutex
	bufs  [][]heap.Addr
	count atomic.Int64
}

func NewRememberedSet() *RememberedSet { return new(RememberedSet) }

// Add takes ownership of buf.
func (rs *RememberedSet) Add(buf []heap.Addr) {
	if len(buf) == 0 {
		return
	}
	rs.mu.Lock()
	rs.bufs = append(rs.bufs, buf)
	rs.mu.Unlock()
	rs.count.Add(int64(len(buf)))
}

// Take removes and returns every buffer.
func (rs *RememberedSet) Take() [][]heap.Addr {
	rs.mu.Lock()
	bufs := rs.bufs
	rs.bufs = nil
	rs.mu.Unlock()
	for _, b := range bufs {
		rs.count.Add(-int64(len(b)))
	}
	return bufs
}

func (rs *RememberedSet) IsEmpty() bool { return rs.count.Load() == 0 }

// Len returns the number of recorded objects.
func (rs *RememberedSet) Len() int { return int(rs.count.Load()) }

// A Barrier is one mutator's write barrier. While enabled it records
// the value a reference store overwrites (snapshot at the beginning).
// While the double barrier is also on it records the stored value too;
// that covers the window between the root snapshot and the scan of the
// mutator's own stack.
//
// Only the owning mutator records; the collector flips the flags and
// flushes the buffer while the mutator is stopped.
type Barrier struct {
	rs      *RememberedSet
	size    int
	buf     []heap.Addr
	enabled atomic.Bool
	double  atomic.Bool
}

func NewBarrier(rs *RememberedSet, size int) *Barrier {
	return &Barrier{rs: rs, size: size, buf: make([]heap.Addr, 0, size)}
}

// Enable turns the barrier on, with the double barrier if double is set.
func (b *Barrier) Enable(double bool) {
	b.double.Store(double)
	b.enabled.Store(true)
}

// DisableDouble turns off the double barrier once the mutator's stack
// has been scanned.
func (b *Barrier) DisableDouble() { b.double.Store(false) }

// Disable turns the barrier off.
func (b *Barrier) Disable() {
	b.enabled.Store(false)
	b.double.Store(false)
}

func (b *Barrier) Enabled() bool { return b.enabled.Load() }

func (b *Barrier) Double() bool { return b.double.Load() }

// WriteRef is called before a reference store replaces old with new.
func (b *Barrier) WriteRef(old, new heap.Addr) {
	if !b.enabled.Load() {
		return
	}
	b.record(old)
	if b.double.Load() {
		b.record(new)
	}
}

// ReadWeak is called when a mutator reads the referent of a reference
// object. While marking is active the referent must survive the cycle.
func (b *Barrier) ReadWeak(referent heap.Addr) {
	if b.enabled.Load() {
		b.record(referent)
	}
}

func (b *Barrier) record(obj heap.Addr) {
	if obj == heap.Nil {
		return
	}
	b.buf = append(b.buf, obj)
	if len(b.buf) >= b.size {
		b.Flush()
	}
}

// Flush hands the recorded objects to the remembered set.
func (b *Barrier) Flush() {
	if len(b.buf) == 0 {
		return
	}
	b.rs.Add(b.buf)
	b.buf = make([]heap.Addr, 0, b.size)
}

// Pending returns the number of recorded objects not yet flushed.
func (b *Barrier) Pending() int { return len(b.buf) }
