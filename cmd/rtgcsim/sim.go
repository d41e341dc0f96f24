// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eclipse-openj9/openj9-sub077"
	"github.com/eclipse-openj9/openj9-sub077/internal/workload"
)

type simConfig struct {
	Options  rtgc.Options
	Hooks    rtgc.Hooks
	Threads  int
	Ops      int64
	Workload workload.Config
}

type report struct {
	Results   []workload.Result
	Finalized int
	Elapsed   time.Duration
	Stats     rtgc.Stats
}

// simulate runs sc.Threads mutators to completion, or until ctx is
// done, and returns what they did. A canceled run is not an error.
func simulate(ctx context.Context, sc simConfig) (*report, error) {
	if sc.Threads < 1 {
		return nil, fmt.Errorf("need at least one thread, have %d", sc.Threads)
	}
	c, err := rtgc.New(rtgc.Config{Options: sc.Options, Hooks: sc.Hooks})
	if err != nil {
		return nil, err
	}
	defer c.Close()

	rep := &report{Results: make([]workload.Result, sc.Threads)}
	start := time.Now()

	// Drain finalizable objects so that they stop being roots.
	done := make(chan struct{})
	drained := make(chan int)
	go func() {
		n := 0
		tick := time.NewTicker(5 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				n += len(c.Finalizable())
			case <-done:
				drained <- n + len(c.Finalizable())
				return
			}
		}
	}()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := range sc.Threads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := mutate(ctx, c, sc, i)
			rep.Results[i] = res
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				mu.Lock()
				errs = append(errs, fmt.Errorf("thread %d: %w", i, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(done)
	rep.Finalized = <-drained
	rep.Elapsed = time.Since(start)
	rep.Stats = c.Stats()
	return rep, errors.Join(errs...)
}

func mutate(ctx context.Context, c *rtgc.Collector, sc simConfig, i int) (workload.Result, error) {
	m, err := c.Attach()
	if err != nil {
		return workload.Result{}, err
	}
	defer m.Detach()
	cfg := sc.Workload
	cfg.Seed += uint64(i)
	r, err := workload.NewRunner(m.Thread, c.Model(), cfg)
	if err != nil {
		return workload.Result{}, err
	}
	defer r.Close()
	return r.Run(ctx, sc.Ops)
}

func (r *report) print(w io.Writer) {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "thread\tops\tobjects\tallocated\telapsed\t\n")
	var ops, objs int64
	for i, res := range r.Results {
		p.Fprintf(tw, "%d\t%d\t%d\t%v\t%v\t\n", i, res.Ops, res.Objects, res.Bytes, res.Elapsed.Round(time.Millisecond))
		ops += res.Ops
		objs += res.Objects
	}
	p.Fprintf(tw, "total\t%d\t%d\t\t%v\t\n", ops, objs, r.Elapsed.Round(time.Millisecond))
	tw.Flush()

	s := &r.Stats
	p.Fprintf(w, "\n%d cycles, %d increments, %d pauses, %d allocation stalls, %d finalized\n",
		s.Cycles, s.Increments, s.Pauses, s.AllocStalls, r.Finalized)
	p.Fprintf(w, "increment mean %v p50 %v p99 %v max %v\n",
		s.IncrementMean, s.IncrementP50, s.IncrementP99, s.IncrementMax)
	p.Fprintf(w, "pause p99 %v max %v\n", s.PauseP99, s.PauseMax)
	if s.Cycles > 0 {
		fmt.Fprintf(w, "last: %s\n", s.Last.TraceLine())
	}
}
