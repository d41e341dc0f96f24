// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workload generates reproducible mutator activity: object
// allocation, reference stores and root churn driven by a seeded
// stream, so that a collector run can be repeated exactly.
package workload

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/chacha20"
)

// A Source is a deterministic random stream. The chacha20 keystream of
// a key derived from the seed supplies the bits.
type Source struct {
	stream *chacha20.Cipher
	buf    [512]byte
	pos    int
}

// NewSource returns the stream for seed.
func NewSource(seed uint64) *Source {
	var key [chacha20.KeySize]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// Only wrong key or nonce lengths fail.
		panic("workload: " + err.Error())
	}
	s := &Source{stream: stream}
	s.pos = len(s.buf)
	return s
}

func (s *Source) Uint64() uint64 {
	if s.pos+8 > len(s.buf) {
		clear(s.buf[:])
		s.stream.XORKeyStream(s.buf[:], s.buf[:])
		s.pos = 0
	}
	v := binary.LittleEndian.Uint64(s.buf[s.pos:])
	s.pos += 8
	return v
}

// Intn returns a value in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("workload: invalid argument to Intn")
	}
	return int(s.Uint64() % uint64(n))
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 { return unit(s.Uint64()) }

// Exp returns an exponentially distributed value with the given mean,
// capped at 16 times the mean.
func (s *Source) Exp(mean float64) float64 { return exp(s.Uint64(), mean) }

func unit(u uint64) float64 { return float64(u>>11) / (1 << 53) }

func exp(u uint64, mean float64) float64 {
	v := -math.Log(1-unit(u)) * mean
	return min(v, 16*mean)
}
