// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"fmt"
	"sync/atomic"

	"github.com/astaxie/beego/logs"
)

var (
	logger   atomic.Pointer[logs.BeeLogger]
	logLevel atomic.Int32
)

func init() {
	l, err := newLogger(logs.AdapterConsole, `{"color":false}`)
	if err != nil {
		panic(err)
	}
	logger.Store(l)
	SetGCTrace(0)
}

func newLogger(adapter, config string) (*logs.BeeLogger, error) {
	l := logs.NewLogger()
	if err := l.SetLogger(adapter, config); err != nil {
		return nil, fmt.Errorf("rtgc: log adapter %s: %w", adapter, err)
	}
	return l, nil
}

// Logger returns the collector's logger. gctrace output, fatal
// diagnostics and configuration warnings all go through it.
func Logger() *logs.BeeLogger {
	return logger.Load()
}

// SetGCTrace sets the logging level from a gctrace value:
// 0 reports warnings only, 1 adds one line per cycle, 2 and above add
// one line per increment.
func SetGCTrace(n int) {
	level := logs.LevelDebug
	switch {
	case n <= 0:
		level = logs.LevelWarning
	case n == 1:
		level = logs.LevelInformational
	}
	logLevel.Store(int32(level))
	Logger().SetLevel(level)
}

// SetLogFile redirects collector logging to the named file.
func SetLogFile(path string) error {
	l, err := newLogger(logs.AdapterFile, fmt.Sprintf(`{"filename":%q}`, path))
	if err != nil {
		return err
	}
	l.SetLevel(int(logLevel.Load()))
	old := logger.Swap(l)
	old.Close()
	return nil
}
