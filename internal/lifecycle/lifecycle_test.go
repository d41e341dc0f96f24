// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lifecycle_test

import (
	"sync"
	"testing"

	"github.com/eclipse-openj9/openj9-sub077/internal/heap"
	. "github.com/eclipse-openj9/openj9-sub077/internal/lifecycle"
)

func TestBufferFlushesWhenFull(t *testing.T) {
	l := NewLists(3)
	b := NewBuffer(l, 4)
	for i := 1; i <= 10; i++ {
		b.Add(heap.Addr(i * 16))
	}
	if l.Len() != 8 || b.Len() != 2 {
		t.Fatalf("global %d staged %d, want 8 and 2", l.Len(), b.Len())
	}
	b.Flush()
	got := l.Take()
	if len(got) != 10 || l.Len() != 0 {
		t.Fatalf("Take returned %d objects, %d left", len(got), l.Len())
	}
}

func TestConcurrentBuffers(t *testing.T) {
	s := NewSet(4)
	const threads, per = 8, 1000
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := s.NewBuffers(32)
			for j := 0; j < per; j++ {
				b.References.Add(heap.Addr((i*per + j + 1) * 16))
			}
			b.Flush()
		}(i)
	}
	wg.Wait()
	seen := map[heap.Addr]bool{}
	for _, a := range s.References.Take() {
		if seen[a] {
			t.Fatalf("%v taken twice", a)
		}
		seen[a] = true
	}
	if len(seen) != threads*per {
		t.Fatalf("took %d objects, want %d", len(seen), threads*per)
	}
	if s.Unfinalized.Len() != 0 || s.Continuations.Len() != 0 {
		t.Fatalf("objects leaked into other kinds")
	}
}
