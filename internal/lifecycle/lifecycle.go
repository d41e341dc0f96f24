// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lifecycle stages objects that need processing after marking:
// objects with finalizers, reference objects and continuations.
// Threads collect them in private buffers and hand full buffers to one
// of several global lists chosen round-robin, so discovery takes no
// lock per object.
package lifecycle

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

type list struct {
	mu   sync.Mutex
	objs []heap.Addr
	_    cpu.CacheLinePad
}

// Lists is a set of global lists of one kind.
type Lists struct {
	lists []list
	next  atomic.Uint32
	count atomic.Int64
}

func NewLists(n int) *Lists {
	return &Lists{lists: make([]list, n)}
}

// Add appends objs to the next list in round-robin order.
func (l *Lists) Add(objs []heap.Addr) {
	if len(objs) == 0 {
		return
	}
	i := int(l.next.Add(1)-1) % len(l.lists)
	g := &l.lists[i]
	g.mu.Lock()
	g.objs = append(g.objs, objs...)
	g.mu.Unlock()
	l.count.Add(int64(len(objs)))
}

// Take removes and returns every object on every list.
func (l *Lists) Take() []heap.Addr {
	var all []heap.Addr
	for i := range l.lists {
		g := &l.lists[i]
		g.mu.Lock()
		all = append(all, g.objs...)
		l.count.Add(-int64(len(g.objs)))
		g.objs = nil
		g.mu.Unlock()
	}
	return all
}

// Len returns the number of objects on all lists.
func (l *Lists) Len() int { return int(l.count.Load()) }

// A Buffer is a thread's private staging area for one kind of list.
type Buffer struct {
	lists *Lists
	objs  []heap.Addr
	max   int
}

func NewBuffer(lists *Lists, size int) *Buffer {
	return &Buffer{lists: lists, objs: make([]heap.Addr, 0, size), max: size}
}

// Add stages obj, flushing the buffer when it fills.
func (b *Buffer) Add(obj heap.Addr) {
	b.objs = append(b.objs, obj)
	if len(b.objs) >= b.max {
		b.Flush()
	}
}

// Flush hands the staged objects to the global lists.
func (b *Buffer) Flush() {
	b.lists.Add(b.objs)
	b.objs = b.objs[:0]
}

// Len returns the number of staged objects.
func (b *Buffer) Len() int { return len(b.objs) }

// Set holds the global lists of every kind.
type Set struct {
	Unfinalized   *Lists // objects with finalizers not yet due
	References    *Lists // reference objects found this cycle
	Continuations *Lists // registered continuations
}

func NewSet(n int) *Set {
	return &Set{
		Unfinalized:   NewLists(n),
		References:    NewLists(n),
		Continuations: NewLists(n),
	}
}

// Buffers is one thread's set of staging buffers.
type Buffers struct {
	Unfinalized   *Buffer
	References    *Buffer
	Continuations *Buffer
}

func (s *Set) NewBuffers(size int) *Buffers {
	return &Buffers{
		Unfinalized:   NewBuffer(s.Unfinalized, size),
		References:    NewBuffer(s.References, size),
		Continuations: NewBuffer(s.Continuations, size),
	}
}

// Flush flushes every buffer.
func (b *Buffers) Flush() {
	b.Unfinalized.Flush()
	b.References.Flush()
	b.Continuations.Flush()
}
