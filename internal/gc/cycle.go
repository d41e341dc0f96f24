// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"sync"
	"time"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/mark"
	"github.com/eclipse-openj9/openj9-sub077/internal/verify"
	"github.com/eclipse-openj9/openj9-sub077/internal/work"
)

// maxCompleteRetries bounds the completion attempts that go back to
// concurrent tracing because the remembered set held new work. After
// that, completion drains the remaining work with the world stopped.
const maxCompleteRetries = 4

// cycle runs one collection cycle from the root snapshot to the end of
// sweep. A cycle is never abandoned part way.
func (c *Collector) cycle(n uint64, reason string) {
	t0 := c.clock.Nanotime()
	cs := &CycleStats{
		Cycle:      n,
		Reason:     reason,
		Start:      time.Duration(t0 - c.start),
		HeapBefore: c.heap.LiveBytes(),
	}
	c.cur = cs
	c.hooks.OnCycleStart(CycleInfo{
		Cycle:       n,
		Reason:      reason,
		HeapLive:    cs.HeapBefore,
		FreeRegions: c.heap.FreeRegions(),
		Threads:     len(c.world.Threads()),
	})

	cs.RootPause = c.pause(c.markRoots)

	t1 := c.clock.Nanotime()
	tracePhase := PhaseTrace
	if c.opts.Concurrent {
		tracePhase = PhaseConcurrentTrace
	}
	for !c.increment(tracePhase, c.scanThreads) {
	}
	for !c.increment(tracePhase, c.trace) {
	}
	cs.Trace = time.Duration(c.clock.Nanotime()-t1) - cs.CompletePause

	cs.UnloadPause = c.pause(c.unload)
	cs.SweepPause = c.pause(c.beginSweep)

	t2 := c.clock.Nanotime()
	sweepPhase := PhaseSweep
	if c.opts.Concurrent {
		sweepPhase = PhaseConcurrentSweep
	}
	for !c.increment(sweepPhase, c.sweepStep) {
	}
	cs.Sweep = c.since(t2)

	c.sweeping.Store(false)
	c.mark.SetState(mark.StateInit)
	c.setPhase(PhaseIdle)
	cs.Sync = c.sync.Swap(false)
	cs.Total = c.since(t0)
	cs.HeapAfter = c.heap.LiveBytes()
	cs.FreeRegions = c.heap.FreeRegions()
	cs.Mark = c.mark.Stats()
	cs.SweepWork = c.sweep.Stats()
	c.rec.cycle(cs)
	c.hooks.OnCycleEnd(*cs)
	c.cur = nil
}

// pause runs f with the world stopped and returns the pause length.
func (c *Collector) pause(f func()) time.Duration {
	c.incMu.Lock()
	defer c.incMu.Unlock()
	return c.stw(f)
}

// stw runs f with the world stopped. If the world is already stopped
// by this goroutine, f runs as part of that pause and stw returns 0.
func (c *Collector) stw(f func()) time.Duration {
	if c.stopped {
		f()
		return 0
	}
	start := c.clock.Nanotime()
	c.world.StopTheWorld()
	c.stopped = true
	f()
	c.stopped = false
	c.world.StartTheWorld()
	d := c.since(start)
	c.rec.pause(d)
	return d
}

// increment runs one bounded step of phase p and reports whether the
// phase is finished. Outside synchronous fallback the step gets a beat
// and waits first for the pacer; in classic mode the world is stopped
// around it.
func (c *Collector) increment(p Phase, step func(yp base.YieldPoint) bool) bool {
	synchronous := c.synchronous()
	if !synchronous {
		c.pace()
		synchronous = c.synchronous()
	}
	c.incMu.Lock()
	defer c.incMu.Unlock()

	var yp base.YieldPoint = base.Never
	if !synchronous {
		beat := base.NewBeat(c.clock, c.opts.Beat, &c.exclusive)
		yp = beat
		// Workers blocked waiting for input do not poll the beat.
		timer := time.AfterFunc(c.opts.Beat, func() {
			beat.Expire()
			c.mark.Pool().Interrupt()
		})
		defer timer.Stop()
	}

	info := IncrementInfo{Cycle: c.cur.Cycle, Seq: c.cur.Increments, Phase: p, Sync: synchronous}
	c.cur.Increments++
	c.hooks.OnIncrementStart(info)
	start := c.clock.Nanotime()
	var done bool
	if c.opts.Concurrent {
		done = step(yp)
	} else {
		c.stw(func() { done = step(yp) })
	}
	end := c.clock.Nanotime()
	c.pacer.record(start, end)
	info.Duration = time.Duration(end - start)
	info.Done = done
	c.rec.increment(info.Duration)
	c.hooks.OnIncrementEnd(info)
	return done
}

// pace waits until the pacer allows another increment, or until an
// allocation failure switches the cycle to synchronous fallback.
func (c *Collector) pace() {
	d := c.pacer.delay(c.clock.Nanotime())
	for d > 0 && !c.synchronous() {
		s := min(d, c.opts.Beat)
		time.Sleep(s)
		d -= s
	}
}

func (c *Collector) markFunc(w *mark.Worker) func(heap.Addr) {
	return func(a heap.Addr) { w.MarkObject(a) }
}

// markRoots takes the root snapshot. The world is stopped.
func (c *Collector) markRoots() {
	c.setPhase(PhaseRoot)
	c.heap.Marks().Flip()
	c.mark.BeginCycle()

	threads := c.world.Threads()
	for _, t := range threads {
		t.barrier.Enable(true)
	}
	c.barriers.Store(true)
	c.black.Store(true)

	w := c.workers[0]
	markRoot := c.markFunc(w)
	c.globals.scan(markRoot)
	c.finq.scan(markRoot)
	if c.cfg.Roots != nil {
		c.cfg.Roots.ScanRoots(markRoot)
	}
	w.Flush()
	c.toScan = threads
	if c.opts.Concurrent {
		c.setPhase(PhaseConcurrentTrace)
	} else {
		c.setPhase(PhaseTrace)
	}
}

// scanThreads scans the stacks of the threads in the snapshot, halting
// each in turn, and turns off its double barrier.
func (c *Collector) scanThreads(yp base.YieldPoint) bool {
	w := c.workers[0]
	markRoot := c.markFunc(w)
	for len(c.toScan) > 0 {
		t := c.toScan[0]
		c.toScan = c.toScan[1:]
		c.world.Halt(t)
		t.scanStack(markRoot)
		if c.cfg.Roots != nil {
			c.cfg.Roots.ScanThread(t, markRoot)
		}
		t.barrier.DisableDouble()
		c.world.Resume(t)
		if yp.ShouldYield() {
			break
		}
	}
	w.Flush()
	return len(c.toScan) == 0
}

// trace drains mark work and, once none is left, attempts completion.
func (c *Collector) trace(yp base.YieldPoint) bool {
	if !c.mark.RememberedSet().IsEmpty() {
		c.mark.ProcessRememberedSet(c.workers[0])
	}
	if c.mark.Drain(c.workers, yp) != work.Done {
		return false
	}
	var done bool
	c.cur.CompletePause += c.stw(func() { done = c.completeMark() })
	return done
}

// drainAll drains every mark work item with the world stopped.
func (c *Collector) drainAll() {
	// A stray interrupt can end a drain early; drain again.
	for c.mark.Drain(c.workers, base.Never) != work.Done {
	}
}

// completeMark finishes marking if no work is left. The world is
// stopped. If the write barriers recorded objects that marking had not
// reached, it reports false so that tracing resumes concurrently,
// unless it has done so too often already.
func (c *Collector) completeMark() bool {
	threads := c.world.Threads()
	for _, t := range threads {
		t.flush()
	}
	w := c.workers[0]
	if c.mark.ProcessRememberedSet(w) {
		c.cur.CompleteRetries++
		if c.cur.CompleteRetries < maxCompleteRetries && !c.synchronous() {
			return false
		}
		c.drainAll()
	}
	if c.mark.HasWork() {
		base.Throw("gc: mark work left at completion")
	}

	for {
		n := c.mark.ProcessUnfinalized(w, c.finq.add)
		if n == 0 {
			break
		}
		c.cur.Finalizable += n
		c.drainAll()
	}

	if c.opts.Verify {
		c.verify(threads)
	}

	c.mark.ProcessReferences(c.cfg.ReferenceCleared)
	c.cur.DeadContinuations += c.mark.ProcessContinuations(c.cfg.ContinuationDead)
	c.mark.SetState(mark.StateComplete)

	for _, t := range threads {
		t.barrier.Disable()
	}
	c.barriers.Store(false)
	c.setPhase(PhaseUnloadingClassLoaders)
	return true
}

// verify checks that every object reachable from the roots is marked.
// The world is stopped.
func (c *Collector) verify(threads []*Thread) {
	roots := func(mark func(heap.Addr)) {
		c.globals.scan(mark)
		c.finq.scan(mark)
		for _, t := range threads {
			t.scanStack(mark)
		}
		if c.cfg.Roots != nil {
			c.cfg.Roots.ScanRoots(mark)
			for _, t := range threads {
				c.cfg.Roots.ScanThread(t, mark)
			}
		}
	}
	if err := verify.Check(c.heap, c.model, roots); err != nil {
		base.Throwf("gc: verify: %v", err)
	}
}

// unload runs the class unloading callback. The world is stopped.
func (c *Collector) unload() {
	c.setPhase(PhaseUnloadingClassLoaders)
	if c.cfg.ClassUnloader != nil {
		c.cfg.ClassUnloader(c.heap.IsMarked)
	}
}

// beginSweep flushes every allocation context and starts the sweep.
// The world is stopped.
func (c *Collector) beginSweep() {
	for _, t := range c.world.Threads() {
		t.ctx.Flush()
	}
	c.black.Store(false)
	c.sweep.Begin()
	c.sweeping.Store(true)
	if c.opts.Concurrent {
		c.setPhase(PhaseConcurrentSweep)
	} else {
		c.setPhase(PhaseSweep)
	}
}

// sweepStep runs a sweeper per worker until the beat ends or the sweep
// is done.
func (c *Collector) sweepStep(yp base.YieldPoint) bool {
	var wg sync.WaitGroup
	for range c.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.sweep.Sweep(yp)
		}()
	}
	wg.Wait()
	return c.sweep.Done()
}
