// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DebugEnv is the environment variable holding collector debug
// settings, in GODEBUG form: "gctrace=1,beat=250us,workers=4".
const DebugEnv = "RTGCDEBUG"

type dbgVar struct {
	name string
	set  func(o *Options, value string) error
}

func intVar(p func(*Options) *int) func(*Options, string) error {
	return func(o *Options, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*p(o) = n
		return nil
	}
}

func boolVar(p func(*Options) *bool) func(*Options, string) error {
	return func(o *Options, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*p(o) = b
		return nil
	}
}

func durationVar(p func(*Options) *time.Duration) func(*Options, string) error {
	return func(o *Options, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*p(o) = d
		return nil
	}
}

func bytesVar(p func(*Options) *Bytes) func(*Options, string) error {
	return func(o *Options, v string) error {
		b, err := ParseBytes(v)
		if err != nil {
			return err
		}
		*p(o) = b
		return nil
	}
}

var dbgvars = []dbgVar{
	{"heapsize", bytesVar(func(o *Options) *Bytes { return &o.HeapSize })},
	{"regionsize", bytesVar(func(o *Options) *Bytes { return &o.RegionSize })},
	{"beat", durationVar(func(o *Options) *time.Duration { return &o.Beat })},
	{"window", durationVar(func(o *Options) *time.Duration { return &o.Window })},
	{"utilization", func(o *Options, v string) error {
		u, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		o.TargetUtilization = u
		return nil
	}},
	{"workers", intVar(func(o *Options) *int { return &o.Workers })},
	{"packetsize", intVar(func(o *Options) *int { return &o.PacketSize })},
	{"maxpackets", intVar(func(o *Options) *int { return &o.MaxPackets })},
	{"overflowcache", intVar(func(o *Options) *int { return &o.OverflowCacheSize })},
	{"overfloworder", func(o *Options, v string) error {
		switch v {
		case "lifo":
			o.OverflowOrder = OverflowLIFO
		case "fifo":
			o.OverflowOrder = OverflowFIFO
		default:
			return fmt.Errorf("unknown order %q", v)
		}
		return nil
	}},
	{"yieldcheck", intVar(func(o *Options) *int { return &o.YieldCheckInterval })},
	{"arraysplit", intVar(func(o *Options) *int { return &o.ArraySplitSize })},
	{"sweeprun", intVar(func(o *Options) *int { return &o.SweepMaxRunCells })},
	{"ndsweep", intVar(func(o *Options) *int { return &o.NDSweepMaxAttempts })},
	{"trigger", intVar(func(o *Options) *int { return &o.TriggerFreeRegions })},
	{"lifecyclelists", intVar(func(o *Options) *int { return &o.LifecycleLists })},
	{"lifecyclebuf", intVar(func(o *Options) *int { return &o.LifecycleBufferSize })},
	{"barrierbuf", intVar(func(o *Options) *int { return &o.BarrierBufferSize })},
	{"allocretries", intVar(func(o *Options) *int { return &o.AllocRetries })},
	{"concurrent", boolVar(func(o *Options) *bool { return &o.Concurrent })},
	{"verify", boolVar(func(o *Options) *bool { return &o.Verify })},
	{"gctrace", intVar(func(o *Options) *int { return &o.GCTrace })},
}

func lookupVar(name string) *dbgVar {
	for i := range dbgvars {
		if dbgvars[i].name == name {
			return &dbgvars[i]
		}
	}
	return nil
}

// ParseDebug applies a comma-separated list of name=value settings to
// o. Unknown names and fields without '=' are ignored, as GODEBUG
// does; malformed values are errors.
func ParseDebug(o *Options, s string) error {
	for p := s; p != ""; {
		field := ""
		i := strings.Index(p, ",")
		if i < 0 {
			field, p = p, ""
		} else {
			field, p = p[:i], p[i+1:]
		}
		i = strings.Index(field, "=")
		if i < 0 {
			continue
		}
		key, value := strings.TrimSpace(field[:i]), strings.TrimSpace(field[i+1:])
		v := lookupVar(key)
		if v == nil {
			continue
		}
		if err := v.set(o, value); err != nil {
			return fmt.Errorf("%s: %s=%s: %w", DebugEnv, key, value, err)
		}
	}
	return nil
}

// ApplyEnv applies the settings in $RTGCDEBUG to o.
func ApplyEnv(o *Options) error {
	return ParseDebug(o, os.Getenv(DebugEnv))
}
