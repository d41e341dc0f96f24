// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package heap

import "unsafe"

func sysReserve(n int) ([]byte, error) {
	// Allocate words so the memory is 8-byte aligned.
	w := make([]uint64, (n+7)/8)
	b := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(w))), len(w)*8)
	return b[:n], nil
}

func sysFree(b []byte) error {
	return nil
}
