// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"time"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// A pacer keeps collector time within (1-TargetUtilization) of every
// sliding window. It remembers the increments that ran in the last
// window and, before each new increment, reports how long to wait so
// that one more full beat still fits the budget.
//
// The budget is never below one beat, so the collector always makes
// progress, even at a target utilization of 1.
type pacer struct {
	window int64
	beat   int64
	budget int64
	spans  []span // oldest first
}

type span struct{ start, end int64 }

func newPacer(opts *base.Options) *pacer {
	budget := int64(float64(opts.Window) * (1 - opts.TargetUtilization))
	if budget < int64(opts.Beat) {
		budget = int64(opts.Beat)
	}
	return &pacer{window: int64(opts.Window), beat: int64(opts.Beat), budget: budget}
}

// record notes an increment that ran from start to end.
func (p *pacer) record(start, end int64) {
	p.spans = append(p.spans, span{start, end})
}

// busy returns the collector time in the window ending at now, after
// forgetting increments that left it.
func (p *pacer) busy(now int64) int64 {
	ws := now - p.window
	i := 0
	for i < len(p.spans) && p.spans[i].end <= ws {
		i++
	}
	p.spans = append(p.spans[:0], p.spans[i:]...)
	var busy int64
	for _, s := range p.spans {
		busy += s.end - max(s.start, ws)
	}
	return busy
}

// delay returns how long to wait, from now, before the next increment.
func (p *pacer) delay(now int64) time.Duration {
	excess := p.busy(now) + p.beat - p.budget
	if excess <= 0 {
		return 0
	}
	// The window start must slide far enough past old increments to
	// forget excess nanoseconds of collector time.
	ws := now - p.window
	var freed int64
	for _, s := range p.spans {
		start := max(s.start, ws)
		n := s.end - start
		if freed+n >= excess {
			return time.Duration(start + (excess - freed) - ws)
		}
		freed += n
	}
	return time.Duration(p.window)
}
