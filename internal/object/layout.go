// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// Layout is the default object encoding. An object starts with one
// header word:
//
//	bits 0-7   kind
//	bits 8-63  slot count, or payload bytes for a leaf
//
// Reference slots follow the header. A leaf's payload follows the
// header and is never scanned.
type Layout struct {
	Arena *heap.Arena
}

const (
	kindBits   = 8
	kindMask   = 1<<kindBits - 1
	headerSize = base.WordSize
)

// SizeOf returns the bytes needed for an object of kind with n slots
// (or n payload bytes for a leaf).
func SizeOf(kind Kind, n int) base.Bytes {
	if kind == Leaf {
		return headerSize + base.Bytes(n).RoundUp(base.WordSize)
	}
	return headerSize + base.WordSize.Mul(n)
}

// SizeOf is the package SizeOf, making Layout a Builder.
func (Layout) SizeOf(kind Kind, n int) base.Bytes { return SizeOf(kind, n) }

// Init writes the header of a new object. The rest of the object must
// already be zero.
func (l Layout) Init(obj heap.Addr, kind Kind, n int) {
	if kind >= numKinds || n < 0 {
		base.Throwf("object: bad header kind=%v n=%d", kind, n)
	}
	if kind == Reference && n < 1 {
		base.Throw("object: reference object without referent slot")
	}
	l.Arena.Store(obj, uint64(kind)|uint64(n)<<kindBits)
}

func (l Layout) header(obj heap.Addr) (Kind, int) {
	h := l.Arena.Load(obj)
	k := Kind(h & kindMask)
	if k >= numKinds {
		println("object", uint64(obj), "header", h)
		base.Throw("object: corrupt header")
	}
	return k, int(h >> kindBits)
}

func (l Layout) Kind(obj heap.Addr) Kind {
	k, _ := l.header(obj)
	return k
}

func (l Layout) Slots(obj heap.Addr) (heap.Addr, int) {
	k, n := l.header(obj)
	if k == Leaf {
		return obj.Add(headerSize), 0
	}
	return obj.Add(headerSize), n
}

func (l Layout) Size(obj heap.Addr) base.Bytes {
	k, n := l.header(obj)
	return SizeOf(k, n)
}

// Load returns slot i of obj.
func (l Layout) Load(obj heap.Addr, i int) heap.Addr {
	first, _ := l.Slots(obj)
	return l.Arena.LoadAddr(SlotAddr(first, i))
}
