// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"math"
	"time"
)

// Per-phase retransmission constants, RFC 8415 Section 7.6.
const (
	initialInfoReqTimeout = time.Second
	maxInfoReqTimeout     = 3600 * time.Second
	irtDefault            = 86400 * time.Second

	initialSolicitTimeout = time.Second
	maxSolicitTimeout     = 3600 * time.Second

	initialRequestTimeout = time.Second
	maxRequestTimeout     = 30 * time.Second
	requestMaxRC          = 10

	initialRenewTimeout = 10 * time.Second
	maxRenewTimeout     = 600 * time.Second
)

// solMaxRTRange is the valid range for SOL_MAX_RT, RFC 8415 Section 21.24.
const (
	solMaxRTMin = 60 * time.Second
	solMaxRTMax = 86400 * time.Second
)

const (
	randFactorMin = -0.1
	randFactorMax = 0.1
)

// maxDuration is the largest duration this package will ever schedule;
// saturating conversions clamp to it so timer arithmetic cannot
// overflow.
const maxDuration = time.Duration(math.MaxInt64)

// retransmissionTimeout computes the next retransmission timeout RT from
// the previous one, per RFC 8415 Section 15:
//
//	RT = IRT + RAND*IRT                  (prevRT == 0)
//	RT = 2*prevRT + RAND*prevRT          (prevRT != 0)
//	RT = MRT + RAND*MRT                  (if the above exceeds MRT, MRT != 0)
//
// RAND is drawn once from [-0.1, 0.1) and reused for both the base
// computation and the MRT clamp, matching the reference implementation.
// mrt == 0 means "no upper bound". The result saturates at 0 on the low
// end and at maxDuration on the high end; it never panics on overflow.
func retransmissionTimeout(prevRT, irt, mrt time.Duration, rng RNG) time.Duration {
	rand := randInRange(rng, randFactorMin, randFactorMax)

	var nextSecs float64
	if prevRT <= 0 {
		irtSecs := irt.Seconds()
		nextSecs = irtSecs + rand*irtSecs
	} else {
		prevSecs := prevRT.Seconds()
		nextSecs = 2*prevSecs + rand*prevSecs
	}

	if mrt <= 0 || nextSecs < mrt.Seconds() {
		return clippedDuration(nextSecs)
	}
	mrtSecs := mrt.Seconds()
	return clippedDuration(mrtSecs + rand*mrtSecs)
}

// clippedDuration converts a (possibly negative, possibly huge) number of
// seconds into a time.Duration, saturating rather than wrapping or
// panicking.
func clippedDuration(secs float64) time.Duration {
	switch {
	case secs <= 0:
		return 0
	case secs >= maxDuration.Seconds():
		return maxDuration
	default:
		return time.Duration(secs * float64(time.Second))
	}
}

// elapsedCentiseconds computes the ElapsedTime option value: centiseconds
// since start, saturating at uint16 max, per RFC 8415 Section 21.9.
func elapsedCentiseconds(now, start time.Time) uint16 {
	if !now.After(start) {
		return 0
	}
	millis := now.Sub(start).Milliseconds()
	cs := millis / int64(elapsedTimeDenominator)
	if cs > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(cs)
}

const elapsedTimeDenominator = 10
