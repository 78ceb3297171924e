// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"fmt"

	"gvisor.dev/gvisor/pkg/tcpip"
)

// Address is an IPv6 address. It is the 16-byte tcpip.Address used
// throughout the Fuchsia netstack, rather than net.IP/netip.Addr, so that
// values here compare and zero the same way they do in the surrounding
// service that ultimately installs them on a NIC.
type Address = tcpip.Address

// AddressHint is either a preferred address hint the caller configured
// for an IAID, or the absence of one ("any address").
type AddressHint struct {
	addr    Address
	present bool
}

// Hint wraps addr as a present hint.
func Hint(addr Address) AddressHint { return AddressHint{addr: addr, present: true} }

// NoHint is the absent hint ("any address").
var NoHint = AddressHint{}

// Get returns the wrapped address and whether it is present.
func (h AddressHint) Get() (Address, bool) { return h.addr, h.present }

// Satisfies reports whether addr satisfies h: true if h is absent (any
// address satisfies "no hint"), or if h is present and equals addr.
func (h AddressHint) Satisfies(addr Address) bool {
	return !h.present || h.addr == addr
}

// ConfiguredAddresses maps each IAID the client will negotiate to an
// optional preferred-address hint. The key set defines how many IA_NAs
// the client negotiates; it does not change for the life of a Driver.
type ConfiguredAddresses map[IAID]AddressHint

// Clone returns a shallow copy, since ConfiguredAddresses is carried
// across ServerDiscovery restarts and must not alias the map a caller
// continues to hold.
func (c ConfiguredAddresses) Clone() ConfiguredAddresses {
	out := make(ConfiguredAddresses, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// IdentityAssociation is the content of a leased IA_NA: an address and
// its two lifetimes. The invariant
// preferred_lifetime <= valid_lifetime and valid_lifetime != 0 is
// enforced by NewIdentityAssociation; violations are reported, not
// panicked on, because they arise from untrusted server input.
type IdentityAssociation struct {
	Address           Address
	PreferredLifetime TimeValue
	ValidLifetime     TimeValue
}

// errInvalidIA is returned by NewIdentityAssociation when the lifetime
// invariant does not hold.
var errInvalidIA = fmt.Errorf("invalid IA: preferred lifetime must be <= valid lifetime, and valid lifetime must be non-zero")

// NewIdentityAssociation validates and constructs an IdentityAssociation.
// Callers must discard (not propagate) an IA that fails this check.
func NewIdentityAssociation(addr Address, preferred, valid TimeValue) (IdentityAssociation, error) {
	if valid.IsZero() {
		return IdentityAssociation{}, errInvalidIA
	}
	if preferred.IsNonZero() && valid.IsNonZero() && valid.Less(preferred) {
		return IdentityAssociation{}, errInvalidIA
	}
	return IdentityAssociation{Address: addr, PreferredLifetime: preferred, ValidLifetime: valid}, nil
}

// addressEntryKind discriminates AddressEntry's two variants.
type addressEntryKind uint8

const (
	addressEntryAssigned addressEntryKind = iota
	addressEntryToRequest
)

// AddressEntry is the per-IAID state the client tracks from
// ServerDiscovery onward: either a currently-leased IA (Assigned), or an
// address the client is still trying to obtain (ToRequest). Exactly one
// AddressEntry exists per configured IAID in every phase after
// ServerDiscovery.
type AddressEntry struct {
	kind addressEntryKind
	// assigned is meaningful iff kind == addressEntryAssigned.
	assigned IdentityAssociation
	// desired is meaningful iff kind == addressEntryToRequest: the
	// address currently being asked for, if any.
	desired AddressHint
	// hint is the IAID's originally configured preferred-address hint,
	// always carried regardless of kind.
	hint AddressHint
}

// AssignedEntry returns an AddressEntry in the Assigned state.
func AssignedEntry(lease IdentityAssociation, hint AddressHint) AddressEntry {
	return AddressEntry{kind: addressEntryAssigned, assigned: lease, hint: hint}
}

// ToRequestEntry returns an AddressEntry in the ToRequest state.
func ToRequestEntry(desired, hint AddressHint) AddressEntry {
	return AddressEntry{kind: addressEntryToRequest, desired: desired, hint: hint}
}

// IsAssigned reports whether e currently holds a lease.
func (e AddressEntry) IsAssigned() bool { return e.kind == addressEntryAssigned }

// Assigned returns the leased IA and true iff e.IsAssigned().
func (e AddressEntry) Assigned() (IdentityAssociation, bool) {
	if !e.IsAssigned() {
		return IdentityAssociation{}, false
	}
	return e.assigned, true
}

// Hint returns the IAID's originally configured preferred-address hint.
func (e AddressEntry) Hint() AddressHint { return e.hint }

// CurrentAddress returns the address this entry would offer as an IA
// Address sub-option hint in an outgoing Request/Renew: the leased
// address if Assigned, else the address currently being requested, if
// any.
func (e AddressEntry) CurrentAddress() (Address, bool) {
	if e.IsAssigned() {
		return e.assigned.Address, true
	}
	return e.desired.Get()
}

// clearAddress returns a copy of e with its address cleared but its
// configured hint preserved, used by the Reply-NotOnLink handler.
func (e AddressEntry) clearAddress() AddressEntry {
	return ToRequestEntry(NoHint, e.hint)
}
