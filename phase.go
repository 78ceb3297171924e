// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"time"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// The Driver's phase field holds exactly one of the six struct types
// below at a time: a closed, finite set of variants dispatched with a
// type switch, not virtual method dispatch.

// informationRequestingPhase is the Information-Request exchange,
// RFC 8415 Section 18.2.6.
type informationRequestingPhase struct {
	firstRequestTime time.Time
	retransTimeout   time.Duration
}

// informationReceivedPhase holds stateless configuration between
// refreshes, RFC 8415 Section 18.2.12.
type informationReceivedPhase struct {
	dnsServers []Address
}

// serverDiscoveryPhase is the Solicit/Advertise exchange, RFC 8415
// Section 18.2.1.
type serverDiscoveryPhase struct {
	firstSolicitTime time.Time
	retransTimeout   time.Duration
	configured       ConfiguredAddresses
	collected        *advertiseCollection
	solMaxRT         TimeValue
}

// requestingPhase is the Request/Reply exchange, RFC 8415
// Section 18.2.2.
type requestingPhase struct {
	serverID         []byte
	addresses        map[IAID]AddressEntry
	firstRequestTime time.Time
	retransTimeout   time.Duration
	retransCount     int
	// collected/configured are carried so a Request failure can fall
	// back to another Advertise, or restart ServerDiscovery.
	collected  *advertiseCollection
	configured ConfiguredAddresses
	solMaxRT   TimeValue
}

// addressAssignedPhase holds leased IAs until the Renew timer fires.
type addressAssignedPhase struct {
	serverID   []byte
	addresses  map[IAID]AddressEntry
	dnsServers []Address
	solMaxRT   TimeValue
}

// renewingPhase is the Renew exchange, RFC 8415 Section 18.2.4.
type renewingPhase struct {
	serverID       []byte
	addresses      map[IAID]AddressEntry
	dnsServers     []Address
	solMaxRT       TimeValue
	firstRenewTime time.Time
	retransTimeout time.Duration
}

// configuredAddressesFromEntries rebuilds a ConfiguredAddresses map from
// the current per-IAID AddressEntry state, used when Requesting falls
// back to restarting ServerDiscovery: the hints carried forward are
// each entry's originally configured hint, not its current address.
func configuredAddressesFromEntries(entries map[IAID]AddressEntry) ConfiguredAddresses {
	out := make(ConfiguredAddresses, len(entries))
	for iaid, e := range entries {
		out[iaid] = e.Hint()
	}
	return out
}

// buildORO prepends wire.OptionSolMaxRT to extra: every stateful
// exchange's ORO asks for SOL_MAX_RT first. extra must not already
// contain it.
func buildORO(extra []wire.OptionCode) wire.OroOption {
	for _, c := range extra {
		if c == wire.OptionSolMaxRT {
			panic("dhcpv6: options_to_request must not contain SolMaxRT")
		}
	}
	codes := make([]wire.OptionCode, 0, len(extra)+1)
	codes = append(codes, wire.OptionSolMaxRT)
	codes = append(codes, extra...)
	return wire.OroOption{Codes: codes}
}

// buildIANAOptionsFromEntries builds one IA_NA option per current
// AddressEntry, carrying the entry's current address as an IA Address
// sub-option hint with zero lifetimes (the client never proposes
// lifetimes; the server decides them).
func buildIANAOptionsFromEntries(addresses map[IAID]AddressEntry) []wire.Option {
	opts := make([]wire.Option, 0, len(addresses))
	for iaid, e := range addresses {
		iana := wire.IANAOption{IAID: uint32(iaid)}
		if addr, ok := e.CurrentAddress(); ok {
			iana.Options = append(iana.Options, wire.IAAddrOption{Address: addr})
		}
		opts = append(opts, iana)
	}
	return opts
}

// buildIANAOptionsFromConfigured builds one empty (or hinted) IA_NA
// option per configured IAID, for the initial Solicit where there is no
// AddressEntry yet, only a configured hint.
func buildIANAOptionsFromConfigured(configured ConfiguredAddresses) []wire.Option {
	opts := make([]wire.Option, 0, len(configured))
	for iaid, hint := range configured {
		iana := wire.IANAOption{IAID: uint32(iaid)}
		if addr, ok := hint.Get(); ok {
			iana.Options = append(iana.Options, wire.IAAddrOption{Address: addr})
		}
		opts = append(opts, iana)
	}
	return opts
}
