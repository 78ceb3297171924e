// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"bytes"
	"fmt"

	"github.com/golang/glog"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// ExchangeType names the two generic validation profiles the Option
// Processor runs. Reply-to-Request is validated inline by the Requesting
// phase (its IA sub-option semantics differ enough from Advertise's to not
// fit this generic shape) but shares the helpers below. Reply-to-Renew is
// not validated: no message is dispatched to the Renewing phase.
type ExchangeType uint8

const (
	ExchangeAdvertiseToSolicit ExchangeType = iota
	ExchangeReplyToInformationRequest
)

// optionError is a drop-message error: the whole inbound datagram must
// be discarded, silently, by the caller. It never crosses the Driver's
// public API.
type optionError struct {
	reason string
}

func (e *optionError) Error() string { return "dhcpv6: " + e.reason }

func optErrorf(format string, args ...interface{}) error {
	return &optionError{reason: fmt.Sprintf(format, args...)}
}

// ProcessedOptions is the validated, typed result of running the Option
// Processor over a parsed message.
type ProcessedOptions struct {
	ServerID []byte
	ClientID []byte

	// Preference is the server's Preference option value. Only
	// meaningful for ExchangeAdvertiseToSolicit.
	Preference uint8

	// InformationRefreshTime is set iff the message carried one. Only
	// meaningful for ExchangeReplyToInformationRequest.
	InformationRefreshTime    TimeValue
	HasInformationRefreshTime bool

	// SolMaxRT is the new SOL_MAX_RT value iff the message carried one
	// in the valid range; it is extracted even from a failure reply,
	// per RFC 8415 Section 18.2.10.
	SolMaxRT    TimeValue
	HasSolMaxRT bool

	DNSServers []Address

	// IANAs holds the message's validated IA_NA results, one per
	// surviving IA_NA (IAs discarded for T1>T2 do not appear here).
	// Only meaningful for ExchangeAdvertiseToSolicit.
	IANAs []IaNaResult

	// StatusCode/StatusMessage are the message's top-level status;
	// absent is treated as Success, RFC 8415 Section 21.13.
	StatusCode    wire.StatusCode
	StatusMessage string
}

// Failed reports whether the top-level status indicates failure.
func (p *ProcessedOptions) Failed() bool { return p.StatusCode != wire.StatusSuccess }

// singletonOptionCodes are the options that may appear at most once at
// message level.
var singletonOptionCodes = []wire.OptionCode{
	wire.OptionClientID,
	wire.OptionServerID,
	wire.OptionSolMaxRT,
	wire.OptionPreference,
	wire.OptionStatusCode,
	wire.OptionInformationRefreshTime,
	wire.OptionDNSServers,
}

// ProcessOptions validates msg under exch's rules and extracts the
// typed ProcessedOptions, or returns a drop-message error.
func ProcessOptions(msg *wire.Message, exch ExchangeType, expectedClientID *ClientID) (*ProcessedOptions, error) {
	for _, code := range singletonOptionCodes {
		if n := msg.Count(code); n > 1 {
			return nil, optErrorf("option %s appears %d times, want at most 1", code, n)
		}
	}

	allowIANA := exch == ExchangeAdvertiseToSolicit
	allowPreference := exch == ExchangeAdvertiseToSolicit
	allowInfRefresh := exch == ExchangeReplyToInformationRequest

	if !allowIANA && len(msg.IANAs()) > 0 {
		return nil, optErrorf("unexpected IA_NA option for exchange type %v", exch)
	}
	if !allowPreference {
		if _, ok := msg.GetOption(wire.OptionPreference); ok {
			return nil, optErrorf("unexpected Preference option for exchange type %v", exch)
		}
	}
	if !allowInfRefresh {
		if _, ok := msg.GetOption(wire.OptionInformationRefreshTime); ok {
			return nil, optErrorf("unexpected InformationRefreshTime option for exchange type %v", exch)
		}
	}

	if err := checkDuplicateIAIDs(msg); err != nil {
		return nil, err
	}

	serverID, err := extractServerID(msg)
	if err != nil {
		return nil, err
	}

	clientID, err := extractAndCheckClientID(msg, expectedClientID)
	if err != nil {
		return nil, err
	}

	out := &ProcessedOptions{ServerID: serverID, ClientID: clientID}

	if opt, ok := msg.GetOption(wire.OptionPreference); ok {
		out.Preference = opt.(wire.PreferenceOption).Value
	}

	if opt, ok := msg.GetOption(wire.OptionInformationRefreshTime); ok {
		out.InformationRefreshTime = NewTimeValue(opt.(wire.InformationRefreshTimeOption).Seconds)
		out.HasInformationRefreshTime = true
	}

	if tv, ok := extractSolMaxRT(msg); ok {
		out.SolMaxRT = tv
		out.HasSolMaxRT = true
	}

	if opt, ok := msg.GetOption(wire.OptionDNSServers); ok {
		out.DNSServers = opt.(wire.DNSServersOption).Servers
	}

	status, message, err := extractTopLevelStatus(msg)
	if err != nil {
		return nil, err
	}
	out.StatusCode = status
	out.StatusMessage = message

	if allowIANA {
		out.IANAs = processIANAs(msg)
	}

	return out, nil
}

// checkDuplicateIAIDs rejects the message if two IA_NA options share an
// IAID.
func checkDuplicateIAIDs(msg *wire.Message) error {
	seen := make(map[uint32]struct{})
	for _, iana := range msg.IANAs() {
		if _, ok := seen[iana.IAID]; ok {
			return optErrorf("duplicate IA_NA for IAID %d", iana.IAID)
		}
		seen[iana.IAID] = struct{}{}
	}
	return nil
}

// extractServerID returns the mandatory Server ID, or a drop-message
// error if absent.
func extractServerID(msg *wire.Message) ([]byte, error) {
	opt, ok := msg.GetOption(wire.OptionServerID)
	if !ok {
		return nil, optErrorf("missing mandatory ServerID option")
	}
	return opt.(wire.ServerIDOption).DUID, nil
}

// extractAndCheckClientID enforces the ClientId rules: absent
// when expected, present when not expected, and value mismatch are all
// drop-message errors.
func extractAndCheckClientID(msg *wire.Message, expected *ClientID) ([]byte, error) {
	opt, ok := msg.GetOption(wire.OptionClientID)
	switch {
	case ok && expected == nil:
		return nil, optErrorf("unexpected ClientID option present")
	case !ok && expected != nil:
		return nil, optErrorf("missing expected ClientID option")
	case !ok:
		return nil, nil
	default:
		duid := opt.(wire.ClientIDOption).DUID
		if !bytes.Equal(duid, expected[:]) {
			return nil, optErrorf("ClientID mismatch")
		}
		return duid, nil
	}
}

// extractSolMaxRT returns the message's SolMaxRT value and true iff it
// is present and within [60, 86400] seconds; out-of-range values are
// silently ignored (a warning, not a reject), RFC 8415 Section 21.24.
func extractSolMaxRT(msg *wire.Message) (TimeValue, bool) {
	opt, ok := msg.GetOption(wire.OptionSolMaxRT)
	if !ok {
		return TimeValue{}, false
	}
	seconds := opt.(wire.SolMaxRTOption).Seconds
	d := NewTimeValue(seconds).Duration()
	if d < solMaxRTMin || d > solMaxRTMax {
		glog.Warningf("dhcpv6: ignoring out-of-range SOL_MAX_RT %ds (want [%s, %s])", seconds, solMaxRTMin, solMaxRTMax)
		return TimeValue{}, false
	}
	return NewTimeValue(seconds), true
}

// extractTopLevelStatus returns the message's top-level status code and
// message, defaulting to Success when absent; an unrecognized numeric
// code is a drop-message error.
func extractTopLevelStatus(msg *wire.Message) (wire.StatusCode, string, error) {
	opt, ok := msg.GetOption(wire.OptionStatusCode)
	if !ok {
		return wire.StatusSuccess, "", nil
	}
	sc := opt.(wire.StatusCodeOption)
	if !wire.KnownStatusCode(sc.Status) {
		glog.Warningf("dhcpv6: dropping message with unknown top-level status code %d", sc.Status)
		return 0, "", optErrorf("unknown status code %d", sc.Status)
	}
	return sc.Status, sc.Message, nil
}

// IaNaResult is the Option Processor's per-IA_NA verdict: either a
// usable success (possibly without an address) or a server-reported
// failure for that IA alone.
type IaNaResult struct {
	IAID IAID
	Ok   bool

	// Meaningful iff !Ok.
	StatusCode    wire.StatusCode
	StatusMessage string

	// Meaningful iff Ok.
	T1, T2            TimeValue
	HasAddress        bool
	Address           Address
	PreferredLifetime TimeValue
	ValidLifetime     TimeValue
}

// processIANAs validates every IA_NA in msg: an IA with
// T1 > T2 (both non-zero) is discarded outright (does not appear in the
// result); others become a Success or Failure IaNaResult, with an
// ill-formed IA Address sub-option (preferred > valid, or valid == 0)
// dropped from a Success result rather than discarding the whole IA.
func processIANAs(msg *wire.Message) []IaNaResult {
	var out []IaNaResult
	for _, iana := range msg.IANAs() {
		result, keep := processIANA(iana)
		if keep {
			out = append(out, result)
		}
	}
	return out
}

// processIANA validates a single IA_NA option. keep is false iff the IA
// must be discarded entirely (T1 > T2, both non-zero).
func processIANA(o wire.IANAOption) (result IaNaResult, keep bool) {
	t1 := NewTimeValue(o.T1)
	t2 := NewTimeValue(o.T2)
	if t1.IsNonZero() && t2.IsNonZero() && t2.Less(t1) {
		glog.Warningf("dhcpv6: dropping IA_NA %d with T1 > T2", o.IAID)
		return IaNaResult{}, false
	}

	result = IaNaResult{IAID: IAID(o.IAID), T1: t1, T2: t2}

	if sc, ok := o.StatusCode(); ok && sc.Status != wire.StatusSuccess {
		result.Ok = false
		result.StatusCode = sc.Status
		result.StatusMessage = sc.Message
		return result, true
	}

	result.Ok = true
	if addr, ok := o.Address(); ok {
		preferred := NewTimeValue(addr.PreferredLifetime)
		valid := NewTimeValue(addr.ValidLifetime)
		// Discard the address (but not the IA) if valid_lifetime == 0
		// or preferred_lifetime > valid_lifetime.
		discard := valid.IsZero() || valid.Less(preferred)
		if !discard {
			result.HasAddress = true
			result.Address = addr.Address
			result.PreferredLifetime = preferred
			result.ValidLifetime = valid
		} else {
			glog.Warningf("dhcpv6: dropping ill-formed IA Address for IA_NA %d (preferred=%v valid=%v)", o.IAID, preferred, valid)
		}
	}
	return result, true
}
