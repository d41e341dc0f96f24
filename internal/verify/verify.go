// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify checks the result of marking against an independent
// walk of the heap. It builds a graph of every object reachable from
// the roots, following strong references only, and reports objects
// that are reachable but not marked.
package verify

import (
	"fmt"
	"strings"

	"github.com/aclements/go-moremath/graph"

	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	"github.com/eclipse-openj9/openj9-sub077/internal/object"
)

// A HeapGraph is the object graph reachable from a root set. Node 0 is
// the root set itself; node i > 0 is the object Objs[i].
//
// HeapGraph satisfies the graph.Graph interface.
type HeapGraph struct {
	Objs []heap.Addr
	To   [][]int // node ID -> successor node IDs
}

var _ graph.Graph = (*HeapGraph)(nil)

func (g *HeapGraph) NumNodes() int { return len(g.Objs) }

func (g *HeapGraph) Out(i int) []int { return g.To[i] }

// Build walks the heap from roots. The world must be stopped.
func Build(m *heap.Manager, model object.Model, roots func(mark func(heap.Addr))) *HeapGraph {
	g := &HeapGraph{Objs: []heap.Addr{heap.Nil}, To: [][]int{nil}}
	ids := make(map[heap.Addr]int)
	node := func(a heap.Addr) int {
		if id, ok := ids[a]; ok {
			return id
		}
		id := len(g.Objs)
		ids[a] = id
		g.Objs = append(g.Objs, a)
		g.To = append(g.To, nil)
		return id
	}
	roots(func(a heap.Addr) {
		if a != heap.Nil {
			g.To[0] = append(g.To[0], node(a))
		}
	})
	arena := m.Arena()
	for id := 1; id < len(g.Objs); id++ {
		obj := g.Objs[id]
		if !inUse(m, obj) {
			continue
		}
		kind := model.Kind(obj)
		if kind == object.Leaf {
			continue
		}
		first, n := model.Slots(obj)
		i := 0
		if kind == object.Reference {
			// The referent is weak.
			i = 1
		}
		for ; i < n; i++ {
			if ref := arena.LoadAddr(object.SlotAddr(first, i)); ref != heap.Nil {
				succ := node(ref)
				g.To[id] = append(g.To[id], succ)
			}
		}
	}
	return g
}

func inUse(m *heap.Manager, obj heap.Addr) bool {
	k := m.RegionOf(obj).Kind
	return k != heap.RegionFree && k != heap.RegionReserved
}

// A Failure is a reachable object that marking missed, or a reference
// into memory the heap does not hold.
type Failure struct {
	Obj    heap.Addr
	Path   []heap.Addr // from a root to Obj
	Reason string
}

func (f Failure) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v %s; path:", f.Obj, f.Reason)
	for _, a := range f.Path {
		fmt.Fprintf(&b, " %v", a)
	}
	return b.String()
}

// Error lists verification failures.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	const max = 5
	var b strings.Builder
	fmt.Fprintf(&b, "%d reachable objects not live", len(e.Failures))
	for i, f := range e.Failures {
		if i == max {
			b.WriteString("\n\t...")
			break
		}
		b.WriteString("\n\t")
		b.WriteString(f.String())
	}
	return b.String()
}

// Walk visits the nodes of g reachable from node 0 in depth-first order,
// passing each node and the path of nodes that led to it. The path is
// only valid during the call.
func Walk(g graph.Graph, visit func(node int, path []int)) {
	if g.NumNodes() == 0 {
		return
	}
	seen := make([]bool, g.NumNodes())
	type frame struct {
		node, next int
	}
	var (
		stack []frame
		path  []int
	)
	push := func(node int) {
		seen[node] = true
		stack = append(stack, frame{node: node})
		path = append(path, node)
		visit(node, path)
	}
	push(0)
	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		out := g.Out(f.node)
		if f.next == len(out) {
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			continue
		}
		succ := out[f.next]
		f.next++
		if !seen[succ] {
			push(succ)
		}
	}
}

// Check reports an *Error if any object reachable from roots is
// unmarked or lies outside an in-use region. The world must be stopped
// and marking complete.
func Check(m *heap.Manager, model object.Model, roots func(mark func(heap.Addr))) error {
	g := Build(m, model, roots)
	var fails []Failure
	Walk(g, func(node int, path []int) {
		if node == 0 {
			return
		}
		obj := g.Objs[node]
		reason := ""
		if !inUse(m, obj) {
			reason = fmt.Sprintf("in %v", m.RegionOf(obj))
		} else if !m.IsMarked(obj) {
			reason = "not marked"
		}
		if reason == "" {
			return
		}
		f := Failure{Obj: obj, Reason: reason}
		for _, id := range path[1:] {
			f.Path = append(f.Path, g.Objs[id])
		}
		fails = append(fails, f)
	})
	if len(fails) > 0 {
		return &Error{Failures: fails}
	}
	return nil
}

// Reachable returns the objects reachable from roots.
func Reachable(m *heap.Manager, model object.Model, roots func(mark func(heap.Addr))) []heap.Addr {
	g := Build(m, model, roots)
	return g.Objs[1:]
}
