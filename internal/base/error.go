// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import "fmt"

// An Error is a condition the collector reports to the embedding
// runtime. The only user-visible one is resource exhaustion.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrOutOfMemory is returned when no free cell, region or
	// bookkeeping memory can be found even after collecting.
	ErrOutOfMemory Error = "rtgc: out of memory"

	// ErrClosed is returned by operations on a collector that has
	// been shut down.
	ErrClosed Error = "rtgc: collector closed"
)

// A FatalError is the panic value used by Throw. Continuing after an
// invariant violation risks silent heap corruption, so callers must
// not recover from it except in tests.
type FatalError struct {
	Msg string
}

func (e FatalError) Error() string {
	return "fatal error: " + e.Msg
}

// Throw reports a broken collector invariant and does not return.
func Throw(s string) {
	Logger().Critical("fatal error: %s", s)
	Logger().Flush()
	panic(FatalError{s})
}

// Throwf is Throw with formatting. Use it for diagnostics that would
// otherwise need a println before the throw.
func Throwf(format string, args ...any) {
	Throw(fmt.Sprintf(format, args...))
}
