// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package work

import "github.com/eclipse-openj9/openj9-sub077/internal/base"

// A WorkStack is one worker's view of the pool. It caches an input
// packet to pop from and an output packet to push to, so the global
// lists are only touched when a packet fills or empties.
//
//	ws := work.NewWorkStack(pool, ovf)
//	.. call ws.Push() to produce and ws.Pop() to consume ..
//	ws.Flush()
//
// A WorkStack must be flushed before its worker stops: cached packets
// hold work the termination barrier cannot see.
type WorkStack struct {
	pool  *Pool
	ovf   Overflow
	cache OverflowCache
	in    *Packet
	out   *Packet

	// Overflowed counts items this stack sent down the overflow path.
	Overflowed int64
}

func NewWorkStack(pool *Pool, ovf Overflow) *WorkStack {
	return &WorkStack{pool: pool, ovf: ovf}
}

// Push queues it for scanning. If the output packet is full and the
// pool has no empty packet, the output packet's items, or failing that
// it alone, go to the overflow path.
func (w *WorkStack) Push(it Item) {
	if w.out == nil || w.out.Full() {
		if !w.newOutput() {
			w.Overflowed++
			w.ovf.OverflowItem(it, &w.cache)
			return
		}
	}
	w.out.push(it)
}

func (w *WorkStack) newOutput() bool {
	if w.out == nil && w.in != nil && w.in.Empty() {
		w.out, w.in = w.in, nil
		return true
	}
	if b := w.pool.GetEmpty(); b != nil {
		if w.out != nil {
			w.pool.PutInput(w.out)
		}
		w.out = b
		return true
	}
	if w.out == nil {
		return false
	}
	w.Overflowed += int64(w.out.Len())
	w.ovf.EmptyToOverflow(w.pool, w.out, &w.cache)
	w.out = w.pool.GetEmpty()
	return w.out != nil
}

// Pop returns the next item from the local packets or, failing that,
// from the pool's input list without waiting.
func (w *WorkStack) Pop() (Item, bool) {
	if w.in != nil && !w.in.Empty() {
		return w.in.pop(), true
	}
	if w.out != nil && !w.out.Empty() {
		w.in, w.out = w.out, w.in
		return w.in.pop(), true
	}
	if b := w.pool.TryGetInput(); b != nil {
		w.setInput(b)
		return w.in.pop(), true
	}
	return Item{}, false
}

func (w *WorkStack) setInput(b *Packet) {
	if w.in != nil {
		w.pool.PutEmpty(w.in)
	}
	w.in = b
}

// Wait blocks until more input arrives, refilling from the overflow
// path when it holds work. It returns Got when Pop will succeed, Done
// when the drain has terminated, or Interrupted. Call it only after Pop
// fails.
func (w *WorkStack) Wait(yp base.YieldPoint) Status {
	w.ovf.FlushCache(&w.cache)
	for {
		if !w.ovf.IsEmpty() && w.refill(yp) {
			return Got
		}
		b, st := w.pool.GetInput(yp)
		switch st {
		case Got:
			w.setInput(b)
			return Got
		case Retry:
			continue
		}
		return st
	}
}

func (w *WorkStack) refill(yp base.YieldPoint) bool {
	if w.in == nil {
		if w.in = w.pool.GetEmpty(); w.in == nil {
			return false
		}
	}
	return w.ovf.FillFromOverflow(w.in, yp) > 0
}

// Balance hands half of a well-stocked input packet to the pool when
// some other worker is starved.
func (w *WorkStack) Balance() {
	if w.in == nil || w.in.Len() <= 4 || !w.pool.Waiting() {
		return
	}
	b := w.pool.GetEmpty()
	if b == nil {
		return
	}
	for n := w.in.Len() / 2; n > 0; n-- {
		b.push(w.in.pop())
	}
	w.pool.PutInput(b)
}

// Flush returns the cached packets to the pool and publishes the
// overflow cache.
func (w *WorkStack) Flush() {
	for _, b := range [...]*Packet{w.in, w.out} {
		if b == nil {
			continue
		}
		if b.Empty() {
			w.pool.PutEmpty(b)
		} else {
			w.pool.PutInput(b)
		}
	}
	w.in, w.out = nil, nil
	w.ovf.FlushCache(&w.cache)
}

// Empty reports whether the stack holds no local work.
func (w *WorkStack) Empty() bool {
	return (w.in == nil || w.in.Empty()) && (w.out == nil || w.out.Empty())
}

// Len returns the number of locally cached items.
func (w *WorkStack) Len() int {
	n := 0
	if w.in != nil {
		n += w.in.Len()
	}
	if w.out != nil {
		n += w.out.Len()
	}
	return n
}
