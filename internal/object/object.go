// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object defines what the collector needs to know about heap
// objects: their kind and where their reference slots are. The
// embedding runtime owns the header encoding; Layout is the encoding
// used when the collector runs standalone.
package object

import (
	"fmt"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
)

// Kind classifies an object for scanning.
type Kind uint8

const (
	// Leaf objects hold no references and are never queued for scanning.
	Leaf Kind = iota
	// Plain objects hold a fixed number of reference slots.
	Plain
	// RefArray objects hold a variable number of reference slots and
	// are scanned in bounded index ranges.
	RefArray
	// Reference objects hold a weak referent in slot 0 and strong
	// references in the remaining slots.
	Reference
	numKinds
)

var kindNames = [...]string{
	Leaf:      "leaf",
	Plain:     "plain",
	RefArray:  "refarray",
	Reference: "reference",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// A Model describes objects to the collector.
type Model interface {
	// Kind returns obj's kind.
	Kind(obj heap.Addr) Kind
	// Slots returns the address of obj's first reference slot and the
	// number of slots. Slots are consecutive words.
	Slots(obj heap.Addr) (first heap.Addr, n int)
	// Size returns the number of bytes obj occupies.
	Size(obj heap.Addr) base.Bytes
}

// A Builder is a Model that can also lay out new objects.
type Builder interface {
	Model
	// SizeOf returns the bytes needed for an object of kind with n
	// slots.
	SizeOf(kind Kind, n int) base.Bytes
	// Init writes the header of the zeroed object at obj.
	Init(obj heap.Addr, kind Kind, n int)
}

// SlotAddr returns the address of slot i given the first slot.
func SlotAddr(first heap.Addr, i int) heap.Addr {
	return first.Add(base.WordSize.Mul(i))
}
