// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workload_test

import (
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/gc"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	. "github.com/eclipse-openj9/openj9-sub077/internal/workload"
)

func TestSource(t *testing.T) {
	a, b, c := NewSource(7), NewSource(7), NewSource(8)
	same := true
	for i := 0; i < 1000; i++ {
		x, y, z := a.Uint64(), b.Uint64(), c.Uint64()
		if x != y {
			t.Fatalf("value %d: seed 7 gave %#x and %#x", i, x, y)
		}
		if x != z {
			same = false
		}
	}
	if same {
		t.Fatalf("seeds 7 and 8 produced the same stream")
	}

	s := NewSource(1)
	var seen [10]int
	for i := 0; i < 10000; i++ {
		n := s.Intn(10)
		if n < 0 || n >= 10 {
			t.Fatalf("Intn(10) = %d", n)
		}
		seen[n]++
		if f := s.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64() = %v", f)
		}
		if e := s.Exp(4); e < 0 || e > 64 {
			t.Fatalf("Exp(4) = %v", e)
		}
	}
	for n, k := range seen {
		if k < 800 || k > 1200 {
			t.Errorf("Intn(10) returned %d %d times in 10000", n, k)
		}
	}
}

func TestParseMix(t *testing.T) {
	tests := []struct {
		in   string
		want Mix
		ok   bool
	}{
		{"alloc=3,link=1", Mix{OpAlloc: 3, OpLink: 1}, true},
		{" leaf=2 , drop=0,descend=5,", Mix{OpLeaf: 2, OpDescend: 5}, true},
		{"alloc", Mix{}, false},
		{"bogus=1", Mix{}, false},
		{"alloc=-1", Mix{}, false},
		{"alloc=0", Mix{}, false},
		{"", Mix{}, false},
	}
	for _, tt := range tests {
		got, err := ParseMix(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseMix(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseMix(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOpString(t *testing.T) {
	if s := OpReference.String(); s != "reference" {
		t.Errorf("OpReference = %q", s)
	}
	if s := Op(99).String(); s != "Op(99)" {
		t.Errorf("Op(99) = %q", s)
	}
}

func run(t *testing.T, cfg Config, ops int64) (*gc.Collector, *Runner, Result) {
	o := base.DefaultOptions()
	o.HeapSize = 4 * base.MiB
	o.Workers = 2
	o.Verify = true
	c, err := gc.New(gc.Config{Options: o})
	if err != nil {
		t.Fatalf("gc.New: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	th, err := c.NewThread()
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}
	t.Cleanup(th.Detach)

	r, err := NewRunner(th, c.Model(), cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	res, err := r.Run(ctx, ops)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	c.Finalizable()
	if err := th.Collect(ctx); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return c, r, res
}

func TestRunner(t *testing.T) {
	convey.Convey("Given a workload driving a collector", t, func() {
		cfg := DefaultConfig()
		cfg.Roots = 64
		c, r, res := run(t, cfg, 20000)

		convey.Convey("every op is counted", func() {
			var n int64
			for _, k := range res.Counts {
				n += k
			}
			convey.So(n, convey.ShouldEqual, res.Ops)
			convey.So(res.Ops, convey.ShouldEqual, 20000)
			convey.So(res.Objects, convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("the roots survive a collection", func() {
			m := c.Heap()
			for i := 0; i < cfg.Roots; i++ {
				if a := r.Root(i); a != heap.Nil {
					convey.So(m.IsMarked(a), convey.ShouldBeTrue)
				}
			}
		})

		convey.Convey("the same seed gives the same run", func() {
			_, _, again := run(t, cfg, 20000)
			convey.So(again.Counts, convey.ShouldResemble, res.Counts)
			convey.So(again.Objects, convey.ShouldEqual, res.Objects)
			convey.So(again.Bytes, convey.ShouldEqual, res.Bytes)
		})

		convey.Convey("closing drops the roots", func() {
			r.Close()
			convey.So(c.Cycles(), convey.ShouldBeGreaterThan, 0)
		})
	})
}

func TestRunnerCanceled(t *testing.T) {
	o := base.DefaultOptions()
	o.HeapSize = 2 * base.MiB
	c, err := gc.New(gc.Config{Options: o})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	th, err := c.NewThread()
	if err != nil {
		t.Fatal(err)
	}
	defer th.Detach()
	r, err := NewRunner(th, c.Model(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Run(ctx, 100)
	if err != context.Canceled || res.Ops != 0 {
		t.Fatalf("Run on canceled context = %d ops, %v", res.Ops, err)
	}
	if _, err := NewRunner(th, c.Model(), Config{Roots: 1}); err == nil {
		t.Fatalf("NewRunner accepted a single root")
	}
}
