// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work

import (
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// Status is the outcome of waiting for input.
type Status int

const (
	// Got means a packet of input was returned.
	Got Status = iota
	// Retry means overflowed work exists and the caller should refill
	// from it before waiting again.
	Retry
	// Done means every worker of the drain is idle and no work is
	// left anywhere.
	Done
	// Interrupted means the drain must stop for a yield.
	Interrupted
)

var statusNames = [...]string{"got", "retry", "done", "interrupted"}

func (s Status) String() string { return statusNames[s] }

// A Pool owns every packet. Full and partly full packets wait on the
// input list; empty ones on the empty list. The pool creates packets
// lazily up to its bound.
type Pool struct {
	size int
	max  int
	ovf  Overflow

	_           cpu.CacheLinePad
	mu          sync.Mutex
	cond        sync.Cond
	empty       []*Packet
	input       []*Packet
	npackets    int
	nproc       int
	nwait       int
	done        bool
	interrupted bool
	_           cpu.CacheLinePad
}

// NewPool returns a pool of at most opts.MaxPackets packets of
// opts.PacketSize items. ovf is consulted when no input is available.
func NewPool(opts *base.Options, ovf Overflow) *Pool {
	p := &Pool{size: opts.PacketSize, max: opts.MaxPackets, ovf: ovf}
	p.cond.L = &p.mu
	return p
}

// PacketSize returns the capacity of every packet.
func (p *Pool) PacketSize() int { return p.size }

// GetEmpty returns an empty packet, or nil if every packet is in use.
func (p *Pool) GetEmpty() *Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.empty); n > 0 {
		b := p.empty[n-1]
		p.empty = p.empty[:n-1]
		b.checkempty()
		return b
	}
	if p.npackets < p.max {
		p.npackets++
		return newPacket(p.size)
	}
	return nil
}

// PutEmpty returns an empty packet to the pool.
func (p *Pool) PutEmpty(b *Packet) {
	b.checkempty()
	p.mu.Lock()
	p.empty = append(p.empty, b)
	p.mu.Unlock()
}

// PutInput publishes a non-empty packet for any worker to scan.
func (p *Pool) PutInput(b *Packet) {
	b.checknonempty()
	p.mu.Lock()
	p.input = append(p.input, b)
	if p.nwait > 0 {
		p.cond.Signal()
	}
	p.mu.Unlock()
}

// TryGetInput returns a packet from the input list without waiting, or
// nil.
func (p *Pool) TryGetInput() *Packet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.popInput()
}

func (p *Pool) popInput() *Packet {
	n := len(p.input)
	if n == 0 {
		return nil
	}
	b := p.input[n-1]
	p.input = p.input[:n-1]
	b.checknonempty()
	return b
}

// BeginDrain prepares the pool for a drain by nproc workers. Every
// worker of the drain must call GetInput until it returns Done or
// Interrupted.
func (p *Pool) BeginDrain(nproc int) {
	p.mu.Lock()
	p.nproc = nproc
	p.nwait = 0
	p.done = false
	p.interrupted = false
	p.mu.Unlock()
}

// Interrupt ends the current drain: waiting workers return
// Interrupted. Called when a beat expires or exclusive access is
// requested.
func (p *Pool) Interrupt() {
	p.mu.Lock()
	p.interrupted = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Notify wakes waiting workers after overflowed work was published.
func (p *Pool) Notify() {
	p.mu.Lock()
	if p.nwait > 0 {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// GetInput returns a packet of input, blocking while other workers may
// still produce work. It acts as a barrier for the drain's nproc
// workers: it returns Done only once all of them are waiting here and
// neither the input list nor the overflow list holds work. The caller
// must hold no packets with items and must have flushed its overflow
// cache.
func (p *Pool) GetInput(yp base.YieldPoint) (*Packet, Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if b := p.popInput(); b != nil {
			return b, Got
		}
		if p.done {
			return nil, Done
		}
		if p.interrupted || yp.ShouldYield() {
			return nil, Interrupted
		}
		if !p.ovf.IsEmpty() {
			return nil, Retry
		}
		p.nwait++
		if p.nwait > p.nproc {
			println("work: nwait=", p.nwait, "nproc=", p.nproc)
			base.Throw("work: nwait > nproc")
		}
		if p.nwait == p.nproc {
			p.done = true
			p.nwait--
			p.cond.Broadcast()
			return nil, Done
		}
		p.cond.Wait()
		p.nwait--
	}
}

// Waiting reports whether some worker is blocked waiting for input.
func (p *Pool) Waiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nwait > 0
}

// IsEmpty reports whether the input list holds no work.
func (p *Pool) IsEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.input) == 0
}

// InputItems returns the number of items on the input list.
func (p *Pool) InputItems() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.input {
		n += b.n
	}
	return n
}

// Packets returns the number of packets created and the number on the
// empty list.
func (p *Pool) Packets() (created, empty int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.npackets, len(p.empty)
}
