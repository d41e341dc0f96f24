// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gc drives collection cycles. A single collector goroutine
// moves each cycle through its phases:
//
//	idle -> root -> (concurrent) trace -> unloading -> (concurrent) sweep -> idle
//
// The root snapshot, trace completion, class unloading and sweep setup
// run with the world stopped. Everything else runs in increments no
// longer than a beat, spaced so that mutators keep their target share
// of every window. Mutators attach as Threads; they allocate, store
// references through the write barrier and poll safepoints.
package gc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/lifecycle"
	"github.com/eclipse-openj9/openj9-sub077/internal/mark"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
	"github.com/eclipse-openj9/openj9-sub077/internal/sweep"
)

// Phase is the collector's position in a cycle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRoot
	PhaseTrace
	PhaseConcurrentTrace
	PhaseUnloadingClassLoaders
	PhaseSweep
	PhaseConcurrentSweep
)

var phaseNames = [...]string{
	PhaseIdle:                  "idle",
	PhaseRoot:                  "root",
	PhaseTrace:                 "trace",
	PhaseConcurrentTrace:       "concurrent-trace",
	PhaseUnloadingClassLoaders: "unloading",
	PhaseSweep:                 "sweep",
	PhaseConcurrentSweep:       "concurrent-sweep",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// DefaultGlobals is the size of the global root table when Config
// leaves it zero.
const DefaultGlobals = 256

const errNoBuilder = base.Error("gc: object model cannot build objects")

// Config configures a Collector.
type Config struct {
	Options base.Options

	// Model describes objects. If nil, objects use object.Layout.
	Model object.Model

	// Roots adds roots to the collector's own global table and
	// shadow stacks. Optional.
	Roots RootScanner

	// Globals is the size of the global root table.
	Globals int

	// Hooks observe the collector. LogHooks are added when
	// Options.GCTrace is positive.
	Hooks Hooks

	// Clock times increments. If nil, base.SystemClock.
	Clock base.Clock

	// ClassUnloader runs in the unloading phase with the world
	// stopped. live reports whether an object survived marking.
	ClassUnloader func(live func(heap.Addr) bool)

	// ReferenceCleared is called, with the world stopped, for each
	// reference object whose referent was cleared.
	ReferenceCleared func(ref heap.Addr)

	// ContinuationDead is called, with the world stopped, for each
	// registered continuation found unreachable.
	ContinuationDead func(obj heap.Addr)
}

// A Collector manages one heap.
type Collector struct {
	opts    base.Options
	cfg     Config
	clock   base.Clock
	start   int64
	heap    *heap.Manager
	model   object.Model
	builder object.Builder
	life    *lifecycle.Set
	mark    *mark.Scheme
	sweep   *sweep.Scheme
	world   *World
	workers []*mark.Worker
	globals globals
	finq    finq
	hooks   Hooks
	pacer   *pacer
	rec     recorder

	phase     atomic.Int32
	barriers  atomic.Bool // write barriers on
	black     atomic.Bool // allocate black
	sweeping  atomic.Bool
	sync      atomic.Bool // finish the cycle without yielding
	exclusive atomic.Bool
	closed    atomic.Bool

	// incMu is held by a running increment or pause, and by an
	// exclusive-access holder. Holding it is required to stop the
	// world.
	incMu sync.Mutex

	// Owned by the collector goroutine.
	stopped bool
	toScan  []*Thread
	cur     *CycleStats

	mu        sync.Mutex
	cond      sync.Cond
	pending   bool
	reason    string
	running   bool
	shutdown  bool
	cycles    uint64
	cycleDone chan struct{}
	done      chan struct{}

	allocStalls atomic.Int64
	memWait     atomic.Int32 // threads in waitForMemory
}

// New reserves the heap and starts the collector goroutine.
func New(cfg Config) (*Collector, error) {
	opts := cfg.Options
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("gc: invalid options: %w", err)
	}
	h, err := heap.NewManager(&opts)
	if err != nil {
		return nil, err
	}
	c := &Collector{
		opts:      opts,
		cfg:       cfg,
		clock:     cfg.Clock,
		heap:      h,
		model:     cfg.Model,
		world:     newWorld(),
		pacer:     newPacer(&opts),
		cycleDone: make(chan struct{}),
		done:      make(chan struct{}),
	}
	c.cond.L = &c.mu
	if c.clock == nil {
		c.clock = base.SystemClock
	}
	c.start = c.clock.Nanotime()
	if c.model == nil {
		l := object.Layout{Arena: h.Arena()}
		c.model = l
	}
	c.builder, _ = c.model.(object.Builder)
	c.life = lifecycle.NewSet(opts.LifecycleLists)
	c.mark = mark.NewScheme(h, c.model, c.life, &opts)
	c.sweep = sweep.NewScheme(h, &opts)
	c.workers = make([]*mark.Worker, opts.Workers)
	for i := range c.workers {
		c.workers[i] = c.mark.NewWorker()
	}
	n := cfg.Globals
	if n <= 0 {
		n = DefaultGlobals
	}
	c.globals.slots = make([]atomic.Uint64, n)

	base.SetGCTrace(opts.GCTrace)
	var hooks multiHooks
	if opts.GCTrace > 0 {
		hooks = append(hooks, LogHooks{})
	}
	if cfg.Hooks != nil {
		hooks = append(hooks, cfg.Hooks)
	}
	c.hooks = hooks

	go c.run()
	return c, nil
}

// Close stops the collector after any cycle in progress and releases
// the heap. Threads must not be used afterwards.
func (c *Collector) Close() error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return base.ErrClosed
	}
	c.shutdown = true
	c.closed.Store(true)
	c.cond.Broadcast()
	close(c.cycleDone)
	c.cycleDone = make(chan struct{})
	c.mu.Unlock()
	<-c.done
	return c.heap.Close()
}

func (c *Collector) Options() base.Options { return c.opts }

func (c *Collector) Heap() *heap.Manager { return c.heap }

func (c *Collector) Model() object.Model { return c.model }

func (c *Collector) World() *World { return c.world }

func (c *Collector) Phase() Phase { return Phase(c.phase.Load()) }

func (c *Collector) setPhase(p Phase) { c.phase.Store(int32(p)) }

// Global returns global root i.
func (c *Collector) Global(i int) heap.Addr { return c.globals.load(i) }

// NumGlobals returns the size of the global root table.
func (c *Collector) NumGlobals() int { return len(c.globals.slots) }

// Finalizable removes and returns the objects whose finalizers are due.
// Until taken they are roots; afterwards the caller must keep them
// reachable for as long as it uses them.
func (c *Collector) Finalizable() []heap.Addr { return c.finq.take() }

// Stats returns a summary of the collector's history.
func (c *Collector) Stats() Stats {
	st := c.rec.snapshot()
	st.AllocStalls = c.allocStalls.Load()
	return st
}

// Cycles returns the number of completed cycles.
func (c *Collector) Cycles() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

// AllocateBlack, Sweeping and Trigger make the collector the
// allocation contexts' environment.

func (c *Collector) AllocateBlack() bool { return c.black.Load() }

func (c *Collector) Sweeping() bool { return c.sweeping.Load() }

// Starved reports whether a thread is waiting for a collection to free
// memory.
func (c *Collector) Starved() bool { return c.memWait.Load() > 0 }

// synchronous reports whether the cycle must run without pacing or
// yielding.
func (c *Collector) synchronous() bool { return c.sync.Load() || c.Starved() }

// Trigger asks for a cycle unless one is running or already pending.
// It does not wait.
func (c *Collector) Trigger() {
	c.mu.Lock()
	if !c.running && !c.pending && !c.shutdown {
		c.pending = true
		c.reason = "trigger"
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// Collect runs a full cycle that starts after the call and waits for
// it to finish. The calling goroutine must not hold thread access.
func (c *Collector) Collect(ctx context.Context) error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return base.ErrClosed
	}
	target := c.cycles + 1
	if c.running {
		target++
	}
	if !c.pending {
		c.pending = true
		c.reason = "forced"
	}
	c.cond.Broadcast()
	c.mu.Unlock()
	return c.wait(ctx, target)
}

// waitForMemory waits for a synchronous cycle that starts after the
// call. A running cycle is finished synchronously first; it cannot
// reclaim what was allocated black since its snapshot.
func (c *Collector) waitForMemory() {
	c.memWait.Add(1)
	defer c.memWait.Add(-1)
	c.mu.Lock()
	target := c.cycles + 1
	if c.running {
		target++
	}
	c.sync.Store(true)
	if !c.pending {
		c.pending = true
		c.reason = "alloc"
	}
	c.cond.Broadcast()
	c.mu.Unlock()
	c.wait(context.Background(), target)
}

func (c *Collector) wait(ctx context.Context, target uint64) error {
	for {
		c.mu.Lock()
		if c.cycles >= target {
			c.mu.Unlock()
			return nil
		}
		if c.shutdown {
			c.mu.Unlock()
			return base.ErrClosed
		}
		ch := c.cycleDone
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AcquireExclusive stops the world and the collector. Running
// increments yield promptly. The caller must not hold thread access
// and must call ReleaseExclusive.
func (c *Collector) AcquireExclusive() {
	c.exclusive.Store(true)
	c.mark.Pool().Interrupt()
	c.incMu.Lock()
	c.world.StopTheWorld()
}

// ReleaseExclusive undoes AcquireExclusive.
func (c *Collector) ReleaseExclusive() {
	c.world.StartTheWorld()
	c.exclusive.Store(false)
	c.incMu.Unlock()
}

// run is the collector goroutine.
func (c *Collector) run() {
	defer close(c.done)
	for {
		c.mu.Lock()
		for !c.pending && !c.shutdown {
			c.cond.Wait()
		}
		if c.shutdown {
			c.mu.Unlock()
			return
		}
		reason := c.reason
		c.pending, c.reason = false, ""
		c.running = true
		n := c.cycles + 1
		c.mu.Unlock()

		c.cycle(n, reason)

		c.mu.Lock()
		c.running = false
		c.cycles = n
		close(c.cycleDone)
		c.cycleDone = make(chan struct{})
		c.mu.Unlock()
	}
}

func (c *Collector) since(t int64) time.Duration {
	return time.Duration(c.clock.Nanotime() - t)
}
