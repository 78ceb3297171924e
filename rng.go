// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import "math/rand"

// RNG is the contract the Driver requires of its random source: one
// float64 draw per retransmission-timeout computation, one byte-fill
// per TransactionID generation. It is held by the Driver and mutated
// only during dispatch, never read concurrently with a call in flight.
//
// Production callers should seed NewRNG from a real entropy source;
// tests should supply a deterministic stub.
type RNG interface {
	// Float64 returns a value drawn uniformly from [0, 1).
	Float64() float64
	// ReadTransactionID fills b (len(b) == TransactionIDLen) with random
	// bytes.
	ReadTransactionID(b []byte)
}

// mathRandRNG adapts *rand.Rand to RNG.
type mathRandRNG struct {
	r *rand.Rand
}

// NewRNG returns an RNG backed by math/rand, seeded from seed. Production
// callers should pass a seed derived from a real entropy source (e.g.
// time.Now().UnixNano(), or crypto/rand for the initial seed); this
// package never reads the clock itself.
func NewRNG(seed int64) RNG {
	return mathRandRNG{r: rand.New(rand.NewSource(seed))}
}

func (m mathRandRNG) Float64() float64 {
	return m.r.Float64()
}

func (m mathRandRNG) ReadTransactionID(b []byte) {
	if _, err := m.r.Read(b); err != nil {
		// math/rand.Rand.Read never returns an error.
		panic(err)
	}
}

// randInRange draws a value uniformly from the half-open interval
// [lo, hi) using rng.
func randInRange(rng RNG, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
