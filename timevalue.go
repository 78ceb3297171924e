// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"math"
	"time"
)

// infinityValue is the wire sentinel (0xFFFFFFFF) meaning "no expiry", per
// RFC 8415 Section 7.7.
const infinityValue uint32 = math.MaxUint32

// timeValueKind discriminates the tri-state TimeValue.
type timeValueKind uint8

const (
	timeValueZero timeValueKind = iota
	timeValueFinite
	timeValueInfinity
)

// TimeValue is the tri-state lifetime/timer value from the wire format:
// Zero, a Finite number of seconds in [1, 0xFFFFFFFE], or Infinity (the
// 0xFFFFFFFF sentinel). It is used for preferred/valid lifetimes and for
// T1/T2.
type TimeValue struct {
	kind    timeValueKind
	seconds uint32 // meaningful iff kind == timeValueFinite
}

// ZeroTimeValue is the TimeValue meaning "no value given" (wire value 0).
var ZeroTimeValue = TimeValue{kind: timeValueZero}

// InfiniteTimeValue is the TimeValue meaning "never expires" (wire value
// 0xFFFFFFFF).
var InfiniteTimeValue = TimeValue{kind: timeValueInfinity}

// NewTimeValue converts a raw wire value (seconds) into a TimeValue.
func NewTimeValue(seconds uint32) TimeValue {
	switch seconds {
	case 0:
		return ZeroTimeValue
	case infinityValue:
		return InfiniteTimeValue
	default:
		return TimeValue{kind: timeValueFinite, seconds: seconds}
	}
}

// IsZero reports whether tv is the Zero state.
func (tv TimeValue) IsZero() bool { return tv.kind == timeValueZero }

// IsInfinite reports whether tv is the Infinity state.
func (tv TimeValue) IsInfinite() bool { return tv.kind == timeValueInfinity }

// IsNonZero reports whether tv is Finite or Infinity (i.e. not Zero).
func (tv TimeValue) IsNonZero() bool { return tv.kind != timeValueZero }

// FiniteSeconds returns the finite second count and true iff tv is Finite.
func (tv TimeValue) FiniteSeconds() (uint32, bool) {
	if tv.kind != timeValueFinite {
		return 0, false
	}
	return tv.seconds, true
}

// Duration converts tv to a time.Duration, saturating: Zero maps to 0,
// Infinity and any value that would overflow time.Duration map to
// time.Duration(math.MaxInt64).
func (tv TimeValue) Duration() time.Duration {
	switch tv.kind {
	case timeValueZero:
		return 0
	case timeValueInfinity:
		return time.Duration(math.MaxInt64)
	default:
		secs := int64(tv.seconds)
		if secs > int64(math.MaxInt64/int64(time.Second)) {
			return time.Duration(math.MaxInt64)
		}
		return time.Duration(secs) * time.Second
	}
}

// Less reports whether tv orders strictly before other, ordering Zero as
// the smallest value; callers that need "unset loses" must filter Zero
// out first (as minNonZero does).
func (tv TimeValue) Less(other TimeValue) bool {
	return tv.rank() < other.rank()
}

// rank gives TimeValue a total order for comparison: Zero < Finite(n) <
// Infinity, with Finite values ordered by seconds.
func (tv TimeValue) rank() uint64 {
	switch tv.kind {
	case timeValueZero:
		return 0
	case timeValueFinite:
		return uint64(tv.seconds) + 1
	default:
		return math.MaxUint64
	}
}

// minNonZero returns the smaller of a and b, treating Zero as "absent":
// if exactly one of a, b is non-zero, that one wins; if both are
// non-zero, the smaller wins; if both are zero, Zero is returned. This is
// the earliest-T1/T2 selection from RFC 8415 Section 18.2.4.
func minNonZero(a, b TimeValue) TimeValue {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Less(a):
		return b
	default:
		return a
	}
}

// computeT computes a derived timer value from base using the rational
// multiplier num/den, rounded to the nearest integer second. Infinity
// propagates; overflow saturates to Infinity rather than wrapping or
// panicking.
func computeT(base TimeValue, num, den uint32) TimeValue {
	switch base.kind {
	case timeValueZero:
		return ZeroTimeValue
	case timeValueInfinity:
		return InfiniteTimeValue
	default:
		// base.seconds * num / den, rounded to nearest, computed in
		// float64 to mirror Ratio<u32> semantics without risking a
		// uint64 overflow panic; anything that would not fit in a
		// valid Finite value saturates to Infinity.
		product := float64(base.seconds) * float64(num) / float64(den)
		rounded := math.Round(product)
		if rounded <= 0 {
			return ZeroTimeValue
		}
		if rounded >= float64(infinityValue) {
			return InfiniteTimeValue
		}
		return NewTimeValue(uint32(rounded))
	}
}
