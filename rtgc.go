// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rtgc is an incremental, pause-bounded mark-sweep garbage
// collector for a managed heap.
//
// Collection work is cut into short increments, each no longer than
// the configured beat, and paced so that mutators keep at least the
// target share of every utilization window. Marking is
// snapshot-at-the-beginning: a deletion write barrier records every
// overwritten reference, and objects allocated during a cycle are
// allocated black.
//
// A minimal embedding attaches a mutator per goroutine and allocates
// through it:
//
//	c, err := rtgc.New(rtgc.Config{Options: rtgc.DefaultOptions()})
//	...
//	m, err := c.Attach()
//	defer m.Detach()
//	obj, err := m.New(rtgc.Plain, 2)
//	m.Push(obj) // keep obj reachable
//
// Mutators must call Safepoint regularly, and Release before blocking.
//
// Behavior can be adjusted through the RTGCDEBUG environment variable,
// a comma-separated list of name=value pairs such as
// "gctrace=1,beat=250us,verify=1".
package rtgc

import (
	"context"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/gc"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
)

type (
	// Options configures a collector.
	Options = base.Options
	// Bytes is a size in bytes.
	Bytes = base.Bytes

	// Addr is a heap address. The zero Addr is Nil.
	Addr = heap.Addr

	// Kind classifies objects for scanning.
	Kind = object.Kind
	// Model describes object layout to the collector.
	Model = object.Model
	// Layout is the default object model.
	Layout = object.Layout

	// Config configures New.
	Config = gc.Config
	// RootScanner reports roots the collector does not own.
	RootScanner = gc.RootScanner
	// Hooks observe collector progress.
	Hooks = gc.Hooks

	CycleInfo     = gc.CycleInfo
	IncrementInfo = gc.IncrementInfo
	CycleStats    = gc.CycleStats
	Stats         = gc.Stats
	Phase         = gc.Phase
)

const Nil = heap.Nil

const (
	Leaf      = object.Leaf
	Plain     = object.Plain
	RefArray  = object.RefArray
	Reference = object.Reference
)

const (
	KiB = base.KiB
	MiB = base.MiB
)

var (
	// ErrOutOfMemory is returned by allocation when collections could
	// not free enough memory.
	ErrOutOfMemory error = base.ErrOutOfMemory
	// ErrClosed is returned when attaching to a closed collector.
	ErrClosed error = base.ErrClosed
)

// DefaultOptions returns the default configuration.
func DefaultOptions() Options { return base.DefaultOptions() }

// LoadOptions reads options from the [gc] section of an ini file.
func LoadOptions(path string) (Options, error) { return base.LoadOptions(path) }

// ApplyEnv applies the RTGCDEBUG environment variable to o.
func ApplyEnv(o *Options) error { return base.ApplyEnv(o) }

// SetLogFile sends collector logging to the named file.
func SetLogFile(path string) error { return base.SetLogFile(path) }

// NewEventLogHooks returns hooks that log each cycle to an
// x/net/trace event log of the given family.
func NewEventLogHooks(family string) Hooks { return gc.NewEventLogHooks(family) }

// A Collector owns a heap and collects it in the background.
type Collector struct {
	c *gc.Collector
}

// New creates a collector and starts its background goroutine.
func New(cfg Config) (*Collector, error) {
	c, err := gc.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Collector{c: c}, nil
}

// Close stops the collector, waiting for a running cycle, and frees
// the heap. Mutators must be detached first.
func (c *Collector) Close() error { return c.c.Close() }

// Attach registers a mutator for the calling goroutine.
func (c *Collector) Attach() (*Mutator, error) {
	t, err := c.c.NewThread()
	if err != nil {
		return nil, err
	}
	return &Mutator{Thread: t}, nil
}

// Collect runs a complete cycle that starts after the call. The caller
// must not hold mutator access; use Mutator.Collect from a mutator.
func (c *Collector) Collect(ctx context.Context) error { return c.c.Collect(ctx) }

// Trigger requests a cycle without waiting for it.
func (c *Collector) Trigger() { c.c.Trigger() }

// Stats summarizes the collector's history.
func (c *Collector) Stats() Stats { return c.c.Stats() }

// Phase returns the current collector phase.
func (c *Collector) Phase() Phase { return c.c.Phase() }

// Cycles returns the number of completed cycles.
func (c *Collector) Cycles() uint64 { return c.c.Cycles() }

// Finalizable drains the objects whose finalizers are due. They stay
// reachable until drained.
func (c *Collector) Finalizable() []Addr { return c.c.Finalizable() }

// Global returns global root i.
func (c *Collector) Global(i int) Addr { return c.c.Global(i) }

// NumGlobals returns the number of global root slots.
func (c *Collector) NumGlobals() int { return c.c.NumGlobals() }

// Model returns the collector's object model.
func (c *Collector) Model() Model { return c.c.Model() }

// LiveBytes returns the bytes allocated and not yet swept.
func (c *Collector) LiveBytes() Bytes { return c.c.Heap().LiveBytes() }

// FreeRegions returns the number of unused heap regions.
func (c *Collector) FreeRegions() int { return c.c.Heap().FreeRegions() }

// IsMarked reports whether obj was found live by the latest cycle.
func (c *Collector) IsMarked(obj Addr) bool { return c.c.Heap().IsMarked(obj) }

// Load returns slot i of obj without a barrier, or Nil if obj has no
// slot i. It is meant for inspecting the heap while the world is
// stopped.
func (c *Collector) Load(obj Addr, i int) Addr {
	first, n := c.c.Model().Slots(obj)
	if i < 0 || i >= n {
		return Nil
	}
	return c.c.Heap().Arena().LoadAddr(object.SlotAddr(first, i))
}

// AcquireExclusive stops the world and preempts any running increment.
// The caller must not hold mutator access.
func (c *Collector) AcquireExclusive() { c.c.AcquireExclusive() }

// ReleaseExclusive restarts the world.
func (c *Collector) ReleaseExclusive() { c.c.ReleaseExclusive() }

// A Mutator is one attached mutator thread. It is not safe for
// concurrent use; each goroutine attaches its own.
type Mutator struct {
	*gc.Thread
}
