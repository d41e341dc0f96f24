// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package work implements the marker's work distribution: bounded
// packets of grey objects exchanged through a global pool, and the
// region-granularity overflow path used when the pool runs out of
// packets.
//
// A grey object is one that is marked and queued for scanning. Marking
// produces grey objects; scanning consumes them, possibly producing
// more. Each worker holds at most one input and one output packet, so
// the global lists are touched once per packet rather than once per
// object.
package work

import (
	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// An Item is one unit of mark work: an object to scan from slot From.
// From > 0 marks a continuation of a split reference array.
type Item struct {
	Obj  heap.Addr
	From int32
}

// Continuation reports whether it resumes a partly scanned array.
func (it Item) Continuation() bool { return it.From > 0 }

// A Packet is a fixed-capacity stack of items. It is owned by exactly
// one worker, or by one of the pool's lists.
type Packet struct {
	items []Item
	n     int
}

func newPacket(size int) *Packet {
	return &Packet{items: make([]Item, size)}
}

func (p *Packet) Len() int { return p.n }

func (p *Packet) Cap() int { return len(p.items) }

func (p *Packet) Full() bool { return p.n == len(p.items) }

func (p *Packet) Empty() bool { return p.n == 0 }

func (p *Packet) push(it Item) {
	if p.n == len(p.items) {
		base.Throw("work: push to full packet")
	}
	p.items[p.n] = it
	p.n++
}

func (p *Packet) pop() Item {
	if p.n == 0 {
		base.Throw("work: pop from empty packet")
	}
	p.n--
	it := p.items[p.n]
	p.items[p.n] = Item{}
	return it
}

// Items returns the packet's items, most recently pushed last.
func (p *Packet) Items() []Item { return p.items[:p.n] }

func (p *Packet) checkempty() {
	if p.n != 0 {
		println("packet n=", p.n)
		base.Throw("work: packet not empty")
	}
}

func (p *Packet) checknonempty() {
	if p.n == 0 {
		base.Throw("work: packet empty")
	}
}
