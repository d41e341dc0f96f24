// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aclements/go-moremath/stats"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/mark"
	"github.com/eclipse-openj9/openj9-sub077/internal/sweep"
)

// CycleStats describes a finished cycle.
type CycleStats struct {
	Cycle  uint64
	Reason string
	Sync   bool // finished in synchronous fallback

	Start         time.Duration // since the collector started
	RootPause     time.Duration // root snapshot
	Trace         time.Duration // stack scans and concurrent tracing
	CompletePause time.Duration // completion attempts, world stopped
	UnloadPause   time.Duration
	SweepPause    time.Duration // sweep setup
	Sweep         time.Duration
	Total         time.Duration

	Increments      int
	CompleteRetries int // completions that found new work

	HeapBefore, HeapAfter base.Bytes
	FreeRegions           int

	Finalizable       int // objects queued for finalization
	DeadContinuations int

	Mark      mark.Stats
	SweepWork sweep.Stats
}

// TraceLine formats s like the runtime's gctrace output:
//
//	gc 7 @1.204s: 0.031+2.110+0.042+0.010+1.530 ms clock, 12->3 MB, 40 free, 18 inc (trigger)
//
// The clock times are the root pause, tracing, completion pauses,
// unloading and sweep setup pauses, and sweeping.
func (s *CycleStats) TraceLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gc %d @%.3fs: ", s.Cycle, s.Start.Seconds())
	for i, d := range []time.Duration{s.RootPause, s.Trace, s.CompletePause, s.UnloadPause + s.SweepPause, s.Sweep} {
		if i > 0 {
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "%.3f", float64(d)/1e6)
	}
	fmt.Fprintf(&b, " ms clock, %d->%d MB, %d free, %d inc (%s)",
		s.HeapBefore>>20, s.HeapAfter>>20, s.FreeRegions, s.Increments, s.Reason)
	if s.Sync {
		b.WriteString(" (sync)")
	}
	return b.String()
}

// Stats summarizes the collector's history.
type Stats struct {
	Cycles      uint64
	Increments  int64
	Pauses      int64
	AllocStalls int64 // allocations that waited for a cycle

	// Over the most recent increments.
	IncrementMean time.Duration
	IncrementP50  time.Duration
	IncrementP99  time.Duration
	IncrementMax  time.Duration

	// Over the most recent stop-the-world pauses.
	PauseP99 time.Duration
	PauseMax time.Duration

	Last CycleStats
}

// ringSize bounds the history kept for percentiles.
const ringSize = 1024

type ring struct {
	xs   []float64
	next int
}

func (r *ring) add(d time.Duration) {
	if len(r.xs) < ringSize {
		r.xs = append(r.xs, float64(d))
		return
	}
	r.xs[r.next] = float64(d)
	r.next = (r.next + 1) % ringSize
}

func (r *ring) sample() *stats.Sample {
	s := &stats.Sample{Xs: append([]float64(nil), r.xs...)}
	return s.Sort()
}

func dur(x float64) time.Duration {
	if math.IsNaN(x) {
		return 0
	}
	return time.Duration(x)
}

type recorder struct {
	mu         sync.Mutex
	cycles     uint64
	increments int64
	pauses     int64
	incs       ring
	stws       ring
	last       CycleStats
}

func (r *recorder) increment(d time.Duration) {
	r.mu.Lock()
	r.increments++
	r.incs.add(d)
	r.mu.Unlock()
}

func (r *recorder) pause(d time.Duration) {
	r.mu.Lock()
	r.pauses++
	r.stws.add(d)
	r.mu.Unlock()
}

func (r *recorder) cycle(s *CycleStats) {
	r.mu.Lock()
	r.cycles++
	r.last = *s
	r.mu.Unlock()
}

func (r *recorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Stats{
		Cycles:     r.cycles,
		Increments: r.increments,
		Pauses:     r.pauses,
		Last:       r.last,
	}
	if len(r.incs.xs) > 0 {
		s := r.incs.sample()
		_, max := s.Bounds()
		st.IncrementMean = dur(s.Mean())
		st.IncrementP50 = dur(s.Quantile(0.5))
		st.IncrementP99 = dur(s.Quantile(0.99))
		st.IncrementMax = dur(max)
	}
	if len(r.stws.xs) > 0 {
		s := r.stws.sample()
		_, max := s.Bounds()
		st.PauseP99 = dur(s.Quantile(0.99))
		st.PauseMax = dur(max)
	}
	return st
}
