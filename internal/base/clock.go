// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import "time"

// A Clock supplies monotonic time in nanoseconds. Tests substitute a
// mock clock to drive beat expiry deterministically.
type Clock interface {
	Nanotime() int64
}

type systemClock struct {
	start time.Time
}

// SystemClock is a Clock backed by the monotonic wall clock.
var SystemClock Clock = systemClock{time.Now()}

func (c systemClock) Nanotime() int64 {
	return int64(time.Since(c.start))
}
