// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

import (
	"fmt"
	"strconv"
	"strings"
)

// Bytes is a count of bytes or a byte offset.
type Bytes uint64

const (
	KiB Bytes = 1 << 10
	MiB Bytes = 1 << 20
	GiB Bytes = 1 << 30
)

func (a Bytes) Div(b Bytes) int {
	return int(a / b)
}

func (a Bytes) CeilDiv(b Bytes) int {
	return int((a + b - 1) / b)
}

func (a Bytes) Mul(b int) Bytes {
	return a * Bytes(b)
}

// RoundUp rounds a up to a multiple of align, which must be a power of two.
func (a Bytes) RoundUp(align Bytes) Bytes {
	return (a + align - 1) &^ (align - 1)
}

func (a Bytes) String() string {
	if a == 0 {
		return "0 bytes"
	} else if a%GiB == 0 {
		return fmt.Sprintf("%d GiB", a/GiB)
	} else if a%MiB == 0 {
		return fmt.Sprintf("%d MiB", a/MiB)
	} else if a%KiB == 0 {
		return fmt.Sprintf("%d KiB", a/KiB)
	}
	return fmt.Sprintf("%d bytes", a)
}

// ParseBytes parses a size such as "4096", "64K", "64KiB" or "2M".
func ParseBytes(s string) (Bytes, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(strings.TrimSuffix(t, "iB"), "B")
	mult := Bytes(1)
	if n := len(t); n > 0 {
		switch t[n-1] {
		case 'k', 'K':
			mult, t = KiB, t[:n-1]
		case 'm', 'M':
			mult, t = MiB, t[:n-1]
		case 'g', 'G':
			mult, t = GiB, t[:n-1]
		}
	}
	v, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad size %q: %w", s, err)
	}
	return Bytes(v) * mult, nil
}
