// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workload

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
)

// A Mutator is the view of a mutator thread the workload drives.
type Mutator interface {
	New(kind object.Kind, n int) (heap.Addr, error)
	ReadRef(obj heap.Addr, i int) heap.Addr
	WriteRef(obj heap.Addr, i int, v heap.Addr)
	WriteGlobal(i int, v heap.Addr)
	Push(a heap.Addr) int
	Local(i int) heap.Addr
	SetLocal(i int, a heap.Addr)
	Depth() int
	Truncate(n int)
	RegisterFinalizer(obj heap.Addr)
	Safepoint()
}

// An Op is one kind of mutator action.
type Op int

const (
	OpAlloc     Op = iota // allocate a plain object into a root
	OpLeaf                // allocate a leaf object into a root
	OpArray               // allocate a reference array into a root
	OpReference           // allocate a reference object whose referent is another root
	OpFinalizer           // allocate a plain object with a finalizer
	OpLink                // store one root into a slot of another
	OpDrop                // clear a root
	OpDescend             // replace a root by one of its children
	OpGlobal              // store a root into a global slot
	NumOps
)

var opNames = [...]string{
	OpAlloc:     "alloc",
	OpLeaf:      "leaf",
	OpArray:     "array",
	OpReference: "reference",
	OpFinalizer: "finalizer",
	OpLink:      "link",
	OpDrop:      "drop",
	OpDescend:   "descend",
	OpGlobal:    "global",
}

func (o Op) String() string {
	if o >= 0 && o < NumOps {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// A Mix gives the relative weight of each op.
type Mix [NumOps]int

// DefaultMix allocates heavily and keeps mutating the object graph.
var DefaultMix = Mix{
	OpAlloc:     30,
	OpLeaf:      15,
	OpArray:     2,
	OpReference: 3,
	OpFinalizer: 1,
	OpLink:      25,
	OpDrop:      10,
	OpDescend:   10,
	OpGlobal:    4,
}

// ParseMix parses a comma-separated list of op=weight pairs, such as
// "alloc=10,link=5". Ops not named get weight 0.
func ParseMix(s string) (Mix, error) {
	var m Mix
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		name, val, ok := strings.Cut(f, "=")
		if !ok {
			return m, fmt.Errorf("workload: mix entry %q is not op=weight", f)
		}
		op := Op(-1)
		for i, n := range opNames {
			if n == name {
				op = Op(i)
			}
		}
		if op < 0 {
			return m, fmt.Errorf("workload: unknown op %q", name)
		}
		w, err := strconv.Atoi(val)
		if err != nil || w < 0 {
			return m, fmt.Errorf("workload: bad weight %q for %s", val, name)
		}
		m[op] = w
	}
	if m.total() == 0 {
		return m, fmt.Errorf("workload: mix %q has no weight", s)
	}
	return m, nil
}

func (m *Mix) total() int {
	n := 0
	for _, w := range m {
		n += w
	}
	return n
}

func (m *Mix) pick(r int) Op {
	for op, w := range m {
		if r < w {
			return Op(op)
		}
		r -= w
	}
	return NumOps - 1
}

// Config describes a workload.
type Config struct {
	Seed       uint64
	Roots      int     // stack slots the workload owns
	Globals    int     // global slots it writes; 0 writes none
	MeanSlots  float64 // mean reference slots per plain object
	MeanLeaf   float64 // mean payload bytes per leaf object
	ArraySlots int     // slots per reference array
	Mix        Mix
}

// DefaultConfig returns a small general-purpose workload.
func DefaultConfig() Config {
	return Config{
		Seed:       1,
		Roots:      256,
		Globals:    16,
		MeanSlots:  3,
		MeanLeaf:   48,
		ArraySlots: 300,
		Mix:        DefaultMix,
	}
}

// Result counts what a run did.
type Result struct {
	Ops     int64
	Counts  [NumOps]int64
	Objects int64
	Bytes   base.Bytes
	Elapsed time.Duration
}

func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d ops, %d objects, %v allocated in %v:", r.Ops, r.Objects, r.Bytes, r.Elapsed)
	for op, n := range r.Counts {
		if n > 0 {
			fmt.Fprintf(&b, " %v=%d", Op(op), n)
		}
	}
	return b.String()
}

// A Runner applies a workload to one mutator. It keeps its roots in
// Roots consecutive stack slots of the mutator.
type Runner struct {
	m     Mutator
	model object.Model
	cfg   Config
	src   *Source
	base  int // first stack slot
	total int
}

// NewRunner pushes cfg.Roots empty stack slots onto m and returns a
// runner over them. model must describe the objects m allocates.
func NewRunner(m Mutator, model object.Model, cfg Config) (*Runner, error) {
	if cfg.Roots < 2 {
		return nil, fmt.Errorf("workload: need at least 2 roots, have %d", cfg.Roots)
	}
	if cfg.Mix.total() == 0 {
		cfg.Mix = DefaultMix
	}
	if cfg.Globals == 0 {
		cfg.Mix[OpGlobal] = 0
	}
	r := &Runner{
		m:     m,
		model: model,
		cfg:   cfg,
		src:   NewSource(cfg.Seed),
		base:  m.Depth(),
		total: cfg.Mix.total(),
	}
	for range cfg.Roots {
		m.Push(heap.Nil)
	}
	return r, nil
}

// Root returns root i.
func (r *Runner) Root(i int) heap.Addr { return r.m.Local(r.base + i) }

// Close drops the runner's roots from the mutator's stack.
func (r *Runner) Close() { r.m.Truncate(r.base) }

// Run performs n ops, stopping early if ctx is done or an allocation
// fails.
func (r *Runner) Run(ctx context.Context, n int64) (res Result, err error) {
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()
	for ; res.Ops < n; res.Ops++ {
		if res.Ops%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		r.m.Safepoint()
		op := r.cfg.Mix.pick(r.src.Intn(r.total))
		// Every op draws the same amount from the stream so that the
		// op sequence does not depend on heap contents.
		i, j, u := r.src.Intn(r.cfg.Roots), r.src.Intn(r.cfg.Roots), r.src.Uint64()
		res.Counts[op]++
		if err := r.step(op, i, j, u, &res); err != nil {
			return res, fmt.Errorf("workload: op %d (%v): %w", res.Ops, op, err)
		}
	}
	return res, nil
}

func (r *Runner) step(op Op, i, j int, u uint64, res *Result) error {
	switch op {
	case OpAlloc, OpFinalizer:
		return r.alloc(i, object.Plain, int(exp(u, r.cfg.MeanSlots)), op == OpFinalizer, res)
	case OpLeaf:
		return r.alloc(i, object.Leaf, int(exp(u, r.cfg.MeanLeaf))+1, false, res)
	case OpArray:
		return r.alloc(i, object.RefArray, r.cfg.ArraySlots, false, res)
	case OpReference:
		if err := r.alloc(i, object.Reference, 2, false, res); err != nil {
			return err
		}
		if i != j {
			r.m.WriteRef(r.Root(i), 0, r.Root(j))
		}
	case OpLink:
		if n := r.slots(i); n > 0 {
			r.m.WriteRef(r.Root(i), int(u%uint64(n)), r.Root(j))
		}
	case OpDrop:
		r.m.SetLocal(r.base+i, heap.Nil)
	case OpDescend:
		if n := r.slots(i); n > 0 {
			if child := r.m.ReadRef(r.Root(i), int(u%uint64(n))); child != heap.Nil {
				r.m.SetLocal(r.base+i, child)
			}
		}
	case OpGlobal:
		r.m.WriteGlobal(int(u%uint64(r.cfg.Globals)), r.Root(j))
	}
	return nil
}

func (r *Runner) alloc(i int, kind object.Kind, n int, finalize bool, res *Result) error {
	a, err := r.m.New(kind, n)
	if err != nil {
		return err
	}
	res.Objects++
	res.Bytes += r.model.Size(a)
	if finalize {
		r.m.RegisterFinalizer(a)
	}
	r.m.SetLocal(r.base+i, a)
	return nil
}

// slots returns the number of reference slots of root i.
func (r *Runner) slots(i int) int {
	a := r.Root(i)
	if a == heap.Nil || r.model.Kind(a) == object.Leaf {
		return 0
	}
	_, n := r.model.Slots(a)
	return n
}
