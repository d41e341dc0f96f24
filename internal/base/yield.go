// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"sync/atomic"
	"time"
)

// A YieldPoint is polled by every bounded-work loop in the collector.
// ShouldYield reports whether the loop must suspend before its next
// unit of work. It never blocks; the caller unwinds, releasing any
// monitor it holds, and the scheduler resumes the work later.
type YieldPoint interface {
	ShouldYield() bool
}

type never struct{}

func (never) ShouldYield() bool { return false }

// Never is a YieldPoint that never asks to yield. It drives
// synchronous (fallback) collection and tests.
var Never YieldPoint = never{}

// A Beat is the YieldPoint of one collector increment. It expires at a
// deadline, when the increment is interrupted, or when some thread
// requests exclusive access. Once a Beat has asked to yield it keeps
// asking: a yield request is never dropped.
type Beat struct {
	clock     Clock
	deadline  int64
	exclusive *atomic.Bool
	expired   atomic.Bool
}

// NewBeat returns a beat of length d starting now. If exclusive is not
// nil, the beat also expires as soon as *exclusive becomes true.
func NewBeat(clock Clock, d time.Duration, exclusive *atomic.Bool) *Beat {
	return &Beat{
		clock:     clock,
		deadline:  clock.Nanotime() + int64(d),
		exclusive: exclusive,
	}
}

func (b *Beat) ShouldYield() bool {
	if b.expired.Load() {
		return true
	}
	if (b.exclusive != nil && b.exclusive.Load()) || b.clock.Nanotime() >= b.deadline {
		b.expired.Store(true)
		return true
	}
	return false
}

// Expire forces the beat to end.
func (b *Beat) Expire() {
	b.expired.Store(true)
}

// Remaining returns the time left before the deadline.
func (b *Beat) Remaining() time.Duration {
	return time.Duration(b.deadline - b.clock.Nanotime())
}
