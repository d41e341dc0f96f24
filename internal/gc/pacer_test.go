// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"testing"
	"time"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

const ms = int64(time.Millisecond)

func TestPacer(t *testing.T) {
	o := base.DefaultOptions()
	o.Window = 10 * time.Millisecond
	o.Beat = time.Millisecond
	o.TargetUtilization = 0.7
	p := newPacer(&o)
	if p.budget != 3*ms {
		t.Fatalf("budget = %v, want 3ms", time.Duration(p.budget))
	}

	for i := int64(0); i < 2; i++ {
		if d := p.delay(i * ms); d != 0 {
			t.Fatalf("increment %d delayed %v within budget", i, d)
		}
		p.record(i*ms, (i+1)*ms)
	}
	if d := p.delay(2 * ms); d != 0 {
		t.Fatalf("third increment delayed %v, want 0", d)
	}
	p.record(2*ms, 3*ms)

	// The window holds 3ms of collector time; one more beat fits once
	// the first increment leaves the window at 11ms.
	if d := p.delay(3 * ms); d != 8*time.Millisecond {
		t.Fatalf("delay = %v, want 8ms", d)
	}
	if d := p.delay(11 * ms); d != 0 {
		t.Fatalf("delay at 11ms = %v, want 0", d)
	}
	if len(p.spans) != 2 {
		t.Fatalf("pacer remembers %d increments, want 2", len(p.spans))
	}

	// Half of an increment can leave the window.
	p = newPacer(&o)
	p.record(0, 4*ms)
	if d := p.delay(4 * ms); d != 8*time.Millisecond {
		t.Fatalf("delay after a long increment = %v, want 8ms", d)
	}
}

func TestPacerFullUtilization(t *testing.T) {
	o := base.DefaultOptions()
	o.Window = 10 * time.Millisecond
	o.Beat = time.Millisecond
	o.TargetUtilization = 1
	p := newPacer(&o)
	if p.budget != ms {
		t.Fatalf("budget = %v, want one beat", time.Duration(p.budget))
	}
	p.record(0, ms)
	if d := p.delay(ms); d != 10*time.Millisecond {
		t.Fatalf("delay = %v, want a full window", d)
	}
}

func TestPhaseString(t *testing.T) {
	for p, want := range map[Phase]string{
		PhaseIdle:                  "idle",
		PhaseConcurrentTrace:       "concurrent-trace",
		PhaseUnloadingClassLoaders: "unloading",
		Phase(42):                  "Phase(42)",
	} {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}

func TestTraceLine(t *testing.T) {
	s := CycleStats{
		Cycle:         3,
		Reason:        "forced",
		Start:         1500 * time.Millisecond,
		RootPause:     100 * time.Microsecond,
		Trace:         2 * time.Millisecond,
		CompletePause: 50 * time.Microsecond,
		Sweep:         time.Millisecond,
		HeapBefore:    12 * base.MiB,
		HeapAfter:     3 * base.MiB,
		FreeRegions:   40,
		Increments:    9,
		Sync:          true,
	}
	want := "gc 3 @1.500s: 0.100+2.000+0.050+0.000+1.000 ms clock, 12->3 MB, 40 free, 9 inc (forced) (sync)"
	if got := s.TraceLine(); got != want {
		t.Fatalf("TraceLine:\n got %s\nwant %s", got, want)
	}
}

func TestRecorder(t *testing.T) {
	var r recorder
	for i := 1; i <= 100; i++ {
		r.increment(time.Duration(i) * time.Microsecond)
	}
	r.pause(time.Millisecond)
	st := r.snapshot()
	if st.Increments != 100 || st.Pauses != 1 {
		t.Fatalf("counts = %d, %d", st.Increments, st.Pauses)
	}
	if st.IncrementMax != 100*time.Microsecond || st.PauseMax != time.Millisecond {
		t.Fatalf("max = %v, %v", st.IncrementMax, st.PauseMax)
	}
	if st.IncrementMean < 50*time.Microsecond || st.IncrementMean > 51*time.Microsecond {
		t.Fatalf("mean = %v, want 50.5µs", st.IncrementMean)
	}
	if st.IncrementP50 < 49*time.Microsecond || st.IncrementP50 > 52*time.Microsecond {
		t.Fatalf("p50 = %v", st.IncrementP50)
	}
	if st.IncrementP99 < 98*time.Microsecond || st.IncrementP99 > 100*time.Microsecond {
		t.Fatalf("p99 = %v", st.IncrementP99)
	}
	if st.PauseP99 != time.Millisecond {
		t.Fatalf("pause p99 = %v, want the only pause", st.PauseP99)
	}
}
