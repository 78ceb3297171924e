// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// Driver is the DHCPv6 client core state machine. It is a pure,
// single-threaded, event-driven object: every call to
// HandleTimeout or HandleMessage runs to completion and returns
// synchronously, with the entirety of its side effects expressed as the
// returned []Action. The Driver owns no socket, no timer and no clock;
// callers must not invoke it re-entrantly.
type Driver struct {
	clientID         *ClientID
	transactionID    TransactionID
	optionsToRequest []wire.OptionCode
	rng              RNG

	phase interface{}
}

// StartStateless begins RFC 8415 Section 18.2.6 stateless configuration:
// Information-Request/Reply only, no IA_NA negotiation. tid is the
// transaction ID of the first Information-Request; the Driver generates
// a fresh one for every subsequent exchange.
func StartStateless(tid TransactionID, optionsToRequest []wire.OptionCode, rng RNG, now time.Time) (*Driver, []Action) {
	d := &Driver{
		transactionID:    tid,
		optionsToRequest: optionsToRequest,
		rng:              rng,
	}
	var b actionBuilder
	d.phase = enterInformationRequesting(d, now, &b)
	return d, b.build()
}

// StartStateful begins RFC 8415 Section 18.2.1 address assignment:
// ServerDiscovery
// (Solicit/Advertise) followed by Requesting (Request/Reply) for every
// IAID in configured. tid is the transaction ID of the first Solicit.
func StartStateful(tid TransactionID, clientID ClientID, configured ConfiguredAddresses, optionsToRequest []wire.OptionCode, rng RNG, now time.Time) (*Driver, []Action) {
	d := &Driver{
		clientID:         &clientID,
		transactionID:    tid,
		optionsToRequest: optionsToRequest,
		rng:              rng,
	}
	var b actionBuilder
	d.phase = enterServerDiscovery(d, configured.Clone(), solMaxRTInitial(), now, &b)
	return d, b.build()
}

// solMaxRTInitial is SOL_MAX_RT's initial value, RFC 8415 Section 7.6.
func solMaxRTInitial() TimeValue {
	return NewTimeValue(uint32(maxSolicitTimeout / time.Second))
}

// GetDNSServers returns the most recently published DNS server set; it
// is empty except in InformationReceived and AddressAssigned.
func (d *Driver) GetDNSServers() []Address {
	switch p := d.phase.(type) {
	case informationReceivedPhase:
		return p.dnsServers
	case addressAssignedPhase:
		return p.dnsServers
	default:
		return nil
	}
}

// HandleTimeout dispatches a fired timer of the given kind to the
// current phase. It panics if kind is not one the current phase uses;
// that is a programming error in the caller.
func (d *Driver) HandleTimeout(kind TimerKind, now time.Time) []Action {
	var b actionBuilder
	switch p := d.phase.(type) {
	case informationRequestingPhase:
		if kind != TimerRetransmission {
			panic(fmt.Sprintf("dhcpv6: unexpected timer %s in InformationRequesting", kind))
		}
		d.phase = informationRequestingOnRetransmission(d, p, now, &b)
	case informationReceivedPhase:
		if kind != TimerRefresh {
			panic(fmt.Sprintf("dhcpv6: unexpected timer %s in InformationReceived", kind))
		}
		d.phase = informationReceivedOnRefresh(d, p, now, &b)
	case serverDiscoveryPhase:
		if kind != TimerRetransmission {
			panic(fmt.Sprintf("dhcpv6: unexpected timer %s in ServerDiscovery", kind))
		}
		d.phase = serverDiscoveryOnRetransmission(d, p, now, &b)
	case requestingPhase:
		if kind != TimerRetransmission {
			panic(fmt.Sprintf("dhcpv6: unexpected timer %s in Requesting", kind))
		}
		d.phase = requestingOnRetransmission(d, p, now, &b)
	case addressAssignedPhase:
		if kind != TimerRenew {
			panic(fmt.Sprintf("dhcpv6: unexpected timer %s in AddressAssigned", kind))
		}
		d.phase = addressAssignedOnRenew(d, p, now, &b)
	case renewingPhase:
		if kind != TimerRetransmission {
			panic(fmt.Sprintf("dhcpv6: unexpected timer %s in Renewing", kind))
		}
		d.phase = renewingOnRetransmission(d, p, now, &b)
	default:
		panic(fmt.Sprintf("dhcpv6: unknown phase %T", d.phase))
	}
	return b.build()
}

// HandleMessage decodes data and, if it is a well-formed, matching
// Advertise or Reply, dispatches it to the current phase. Malformed
// datagrams, transaction-id mismatches, and message types other than
// Advertise/Reply produce an empty action list and no state change.
func (d *Driver) HandleMessage(data []byte, now time.Time) []Action {
	msg, err := wire.Decode(data)
	if err != nil {
		glog.Warningf("dhcpv6: dropping malformed message: %s", err)
		return []Action{}
	}
	if msg.TransactionID != [3]byte(d.transactionID) {
		return []Action{}
	}
	switch msg.Type {
	case wire.MessageTypeAdvertise, wire.MessageTypeReply:
	default:
		return []Action{}
	}

	var b actionBuilder
	switch p := d.phase.(type) {
	case informationRequestingPhase:
		if msg.Type == wire.MessageTypeReply {
			d.phase = informationRequestingOnReply(d, p, msg, now, &b)
		}
	case serverDiscoveryPhase:
		if msg.Type == wire.MessageTypeAdvertise {
			d.phase = serverDiscoveryOnAdvertise(d, p, msg, now, &b)
		}
	case requestingPhase:
		if msg.Type == wire.MessageTypeReply {
			d.phase = requestingOnReply(d, p, msg, now, &b)
		}
	default:
		// InformationReceived, AddressAssigned and Renewing have no
		// message handler (Reply-to-Renew semantics are unresolved);
		// a matching message here is simply not actionable.
	}
	return b.build()
}

// newTransactionID regenerates the Driver's current transaction ID from
// its RNG. Called on every client-initiated exchange that is not a bare
// retransmission.
func (d *Driver) newTransactionID() TransactionID {
	d.transactionID = genTransactionID(d.rng)
	return d.transactionID
}
