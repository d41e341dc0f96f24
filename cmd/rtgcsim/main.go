// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rtgcsim runs synthetic mutator workloads against the collector and
// reports pause and increment statistics.
//
// Usage:
//
//	rtgcsim [flags]
//
// Collector options are taken, in increasing precedence, from the
// defaults, the [gc] section of the -config file, $RTGCDEBUG and the
// command line flags. With -http, cycle event logs are served at
// /debug/events while the simulation runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/eclipse-openj9/openj9-sub077"
	"github.com/eclipse-openj9/openj9-sub077/internal/base"
	"github.com/eclipse-openj9/openj9-sub077/internal/workload"
)

var (
	configFile = flag.String("config", "", "read collector options from `file`")
	heapSize   = flag.String("heap", "", "heap `size`, such as 64M")
	gctrace    = flag.Int("gctrace", -1, "gctrace `level` (default from options)")
	logFile    = flag.String("log", "", "write collector logging to `file`")
	threads    = flag.Int("threads", 4, "number of mutator threads")
	ops        = flag.Int64("ops", 200000, "ops per mutator thread")
	seed       = flag.Uint64("seed", 1, "workload seed; thread i uses seed+i")
	roots      = flag.Int("roots", 256, "stack roots per mutator thread")
	mixFlag    = flag.String("mix", "", "op weights such as alloc=30,link=25 (default mix if empty)")
	duration   = flag.Duration("duration", 0, "stop after this long (0 runs every op)")
	httpAddr   = flag.String("http", "", "serve /debug/events on `addr`")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: rtgcsim [flags]\n\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("rtgcsim: ")

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		usage()
	}

	opts, err := options()
	if err != nil {
		log.Fatal(err)
	}
	if *logFile != "" {
		if err := rtgc.SetLogFile(*logFile); err != nil {
			log.Fatal(err)
		}
	}

	sc := simConfig{
		Options:  opts,
		Threads:  *threads,
		Ops:      *ops,
		Workload: workload.DefaultConfig(),
	}
	sc.Workload.Seed = *seed
	sc.Workload.Roots = *roots
	if *mixFlag != "" {
		if sc.Workload.Mix, err = workload.ParseMix(*mixFlag); err != nil {
			log.Fatal(err)
		}
	}
	if *httpAddr != "" {
		sc.Hooks = rtgc.NewEventLogHooks("rtgc")
		go func() {
			// golang.org/x/net/trace registers /debug/events on the
			// default mux.
			log.Printf("serving /debug/events on %s", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, nil); err != nil {
				log.Printf("http: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	rep, err := simulate(ctx, sc)
	if rep != nil {
		rep.print(os.Stdout)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// options assembles the collector options from every source.
func options() (rtgc.Options, error) {
	opts := rtgc.DefaultOptions()
	if *configFile != "" {
		var err error
		if opts, err = rtgc.LoadOptions(*configFile); err != nil {
			return opts, err
		}
	}
	if err := rtgc.ApplyEnv(&opts); err != nil {
		return opts, err
	}
	if *heapSize != "" {
		n, err := base.ParseBytes(*heapSize)
		if err != nil {
			return opts, fmt.Errorf("-heap: %w", err)
		}
		opts.HeapSize = n
	}
	if *gctrace >= 0 {
		opts.GCTrace = *gctrace
	}
	return opts, nil
}
