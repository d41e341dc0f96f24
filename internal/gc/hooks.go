// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gc

import (
	"fmt"
	"time"

	"golang.org/x/net/trace"

	"github.com/eclipse-openj9/openj9-sub077/internal/base"
)

// CycleInfo describes a cycle as it starts.
type CycleInfo struct {
	Cycle       uint64
	Reason      string
	HeapLive    base.Bytes
	FreeRegions int
	Threads     int
}

// IncrementInfo describes one increment. Duration and Done are set only
// when the increment ends.
type IncrementInfo struct {
	Cycle    uint64
	Seq      int
	Phase    Phase
	Sync     bool // ran without yielding
	Duration time.Duration
	Done     bool // the phase finished
}

// Hooks observe the collector. They run on the collector goroutine,
// sometimes with the world stopped, and must not block or touch the
// heap.
type Hooks interface {
	OnCycleStart(CycleInfo)
	OnCycleEnd(CycleStats)
	OnIncrementStart(IncrementInfo)
	OnIncrementEnd(IncrementInfo)
}

// NopHooks ignores every event. Embed it to implement a subset.
type NopHooks struct{}

func (NopHooks) OnCycleStart(CycleInfo)         {}
func (NopHooks) OnCycleEnd(CycleStats)          {}
func (NopHooks) OnIncrementStart(IncrementInfo) {}
func (NopHooks) OnIncrementEnd(IncrementInfo)   {}

type multiHooks []Hooks

func (m multiHooks) OnCycleStart(i CycleInfo) {
	for _, h := range m {
		h.OnCycleStart(i)
	}
}

func (m multiHooks) OnCycleEnd(s CycleStats) {
	for _, h := range m {
		h.OnCycleEnd(s)
	}
}

func (m multiHooks) OnIncrementStart(i IncrementInfo) {
	for _, h := range m {
		h.OnIncrementStart(i)
	}
}

func (m multiHooks) OnIncrementEnd(i IncrementInfo) {
	for _, h := range m {
		h.OnIncrementEnd(i)
	}
}

// LogHooks writes gctrace lines to the collector logger: one per cycle
// at the informational level and one per increment at the debug level.
type LogHooks struct{}

func (LogHooks) OnCycleStart(i CycleInfo) {
	base.Logger().Debug("gc %d start (%s): %v live, %d free regions, %d threads",
		i.Cycle, i.Reason, i.HeapLive, i.FreeRegions, i.Threads)
}

func (LogHooks) OnCycleEnd(s CycleStats) {
	base.Logger().Informational("%s", s.TraceLine())
}

func (LogHooks) OnIncrementStart(IncrementInfo) {}

func (LogHooks) OnIncrementEnd(i IncrementInfo) {
	base.Logger().Debug("gc %d inc %d %v: %v%s", i.Cycle, i.Seq, i.Phase, i.Duration, incFlags(i))
}

func incFlags(i IncrementInfo) string {
	s := ""
	if i.Sync {
		s += " sync"
	}
	if i.Done {
		s += " done"
	}
	return s
}

// EventLogHooks records every cycle in a golang.org/x/net/trace event
// log, visible at /debug/events when the trace handlers are served.
type EventLogHooks struct {
	Family string

	ev trace.EventLog
}

func NewEventLogHooks(family string) *EventLogHooks {
	return &EventLogHooks{Family: family}
}

func (h *EventLogHooks) OnCycleStart(i CycleInfo) {
	h.ev = trace.NewEventLog(h.Family, fmt.Sprintf("cycle %d", i.Cycle))
	h.ev.Printf("start (%s): %v live, %d free regions, %d threads",
		i.Reason, i.HeapLive, i.FreeRegions, i.Threads)
}

func (h *EventLogHooks) OnCycleEnd(s CycleStats) {
	if h.ev == nil {
		return
	}
	if s.Sync {
		h.ev.Errorf("finished synchronously")
	}
	h.ev.Printf("%s", s.TraceLine())
	h.ev.Finish()
	h.ev = nil
}

func (h *EventLogHooks) OnIncrementStart(IncrementInfo) {}

func (h *EventLogHooks) OnIncrementEnd(i IncrementInfo) {
	if h.ev != nil {
		h.ev.Printf("inc %d %v: %v%s", i.Seq, i.Phase, i.Duration, incFlags(i))
	}
}
