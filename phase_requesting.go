// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"bytes"
	"time"

	"github.com/golang/glog"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// enterRequesting builds the AddressEntry map from the winning
// AdvertiseRecord and the configured IAID set, generates a fresh
// transaction ID, and sends the first Request, RFC 8415 Section 18.2.2.
func enterRequesting(d *Driver, rec *AdvertiseRecord, configured ConfiguredAddresses, collected *advertiseCollection, solMaxRT TimeValue, now time.Time, b *actionBuilder) requestingPhase {
	addresses := make(map[IAID]AddressEntry, len(configured))
	for iaid, hint := range configured {
		if ia, ok := rec.Addresses[iaid]; ok {
			addresses[iaid] = ToRequestEntry(Hint(ia.Address), hint)
		} else {
			addresses[iaid] = ToRequestEntry(NoHint, hint)
		}
	}

	d.newTransactionID()
	p := requestingPhase{
		serverID:   rec.ServerID,
		addresses:  addresses,
		collected:  collected,
		configured: configured,
		solMaxRT:   solMaxRT,
	}
	return requestingSendAndReschedule(d, p, now, b, true /* cancelFirst */)
}

// requestingSendAndReschedule (re)sends the Request and reschedules its
// retransmission timer. cancelFirst emits a CancelTimer(Retransmission)
// before sending, used whenever a still-pending timer from a different
// event needs replacing, never for the Request's own retransmission
// firing.
func requestingSendAndReschedule(d *Driver, p requestingPhase, now time.Time, b *actionBuilder, cancelFirst bool) requestingPhase {
	firstRequestTime := now
	var elapsed uint16
	retransCount := p.retransCount
	if !p.firstRequestTime.IsZero() {
		firstRequestTime = p.firstRequestTime
		elapsed = elapsedCentiseconds(now, p.firstRequestTime)
		retransCount++
	}

	rt := retransmissionTimeout(p.retransTimeout, initialRequestTimeout, maxRequestTimeout, d.rng)

	if cancelFirst {
		b.cancelTimer(TimerRetransmission)
	}
	b.sendMessage(wire.Encode(requestMessage(d, p, elapsed)))
	b.scheduleTimer(TimerRetransmission, rt)

	return requestingPhase{
		serverID:         p.serverID,
		addresses:        p.addresses,
		firstRequestTime: firstRequestTime,
		retransTimeout:   rt,
		retransCount:     retransCount,
		collected:        p.collected,
		configured:       p.configured,
		solMaxRT:         p.solMaxRT,
	}
}

// requestMessage builds a Request: ServerId, ClientId, per-IAID IA_NA
// carrying the entry's current address as a hint, ElapsedTime, and an
// ORO prepending SolMaxRt.
func requestMessage(d *Driver, p requestingPhase, elapsed uint16) *wire.Message {
	var options []wire.Option
	options = append(options, wire.ServerIDOption{DUID: p.serverID})
	options = append(options, wire.ClientIDOption{DUID: d.clientID[:]})
	options = append(options, buildIANAOptionsFromEntries(p.addresses)...)
	options = append(options, wire.ElapsedTimeOption{Centiseconds: elapsed})
	options = append(options, buildORO(d.optionsToRequest))
	return &wire.Message{
		Type:          wire.MessageTypeRequest,
		TransactionID: [3]byte(d.transactionID),
		Options:       options,
	}
}

// requestingOnRetransmission retransmits the Request while under
// REQUEST_MAX_RC; once exhausted it falls back to another collected
// Advertise or restarts ServerDiscovery.
func requestingOnRetransmission(d *Driver, p requestingPhase, now time.Time, b *actionBuilder) interface{} {
	if p.retransCount < requestMaxRC {
		return requestingSendAndReschedule(d, p, now, b, false)
	}
	return requestingFallback(d, p, p.solMaxRT, now, b)
}

// requestingFallback implements the shared exchange-failure policy: try
// another collected Advertise, else restart ServerDiscovery with a
// fresh transaction ID, preserving ClientId and SOL_MAX_RT.
func requestingFallback(d *Driver, p requestingPhase, solMaxRT TimeValue, now time.Time, b *actionBuilder) interface{} {
	if rec := p.collected.popMax(); rec != nil {
		glog.Infof("dhcpv6: requesting: exchange failed, trying next collected Advertise from %x", rec.ServerID)
		return enterRequesting(d, rec, p.configured, p.collected, solMaxRT, now, b)
	}
	glog.Infof("dhcpv6: requesting: exchange failed, no collected Advertise left, restarting ServerDiscovery")
	d.newTransactionID()
	return enterServerDiscovery(d, configuredAddressesFromEntries(p.addresses), solMaxRT, now, b)
}

// requestingOnReply processes a candidate Reply to a Request inline:
// its IA sub-option semantics differ enough from Advertise's that the
// generic Option Processor doesn't fit.
func requestingOnReply(d *Driver, p requestingPhase, msg *wire.Message, now time.Time, b *actionBuilder) interface{} {
	_, hasServerID := msg.GetOption(wire.OptionServerID)
	clientIDOpt, hasClientID := msg.GetOption(wire.OptionClientID)
	if !hasServerID || !hasClientID {
		glog.Warningf("dhcpv6: requesting: dropping Reply missing ServerID or ClientID")
		return p
	}
	if !bytes.Equal(clientIDOpt.(wire.ClientIDOption).DUID, d.clientID[:]) {
		glog.Warningf("dhcpv6: requesting: dropping Reply with mismatched ClientID")
		return p
	}

	// SOL_MAX_RT is always adopted, even from a failure Reply, per
	// RFC 8415 Section 18.2.10.
	solMaxRT := p.solMaxRT
	if tv, ok := extractSolMaxRT(msg); ok {
		solMaxRT = tv
	}
	p.solMaxRT = solMaxRT

	status := wire.StatusSuccess
	if opt, ok := msg.GetOption(wire.OptionStatusCode); ok {
		sc := opt.(wire.StatusCodeOption)
		if wire.KnownStatusCode(sc.Status) {
			status = sc.Status
		}
	}

	switch status {
	case wire.StatusUnspecFail:
		glog.Infof("dhcpv6: requesting: server reported UnspecFail, retrying Request")
		return requestingSendAndReschedule(d, p, now, b, true)
	case wire.StatusNotOnLink:
		glog.Infof("dhcpv6: requesting: server reported NotOnLink, clearing address hints and retrying Request")
		cleared := make(map[IAID]AddressEntry, len(p.addresses))
		for iaid, e := range p.addresses {
			cleared[iaid] = e.clearAddress()
		}
		p.addresses = cleared
		return requestingSendAndReschedule(d, p, now, b, true)
	case wire.StatusUseMulticast, wire.StatusNoAddrsAvail, wire.StatusNoPrefixAvail, wire.StatusNoBinding:
		glog.Warningf("dhcpv6: requesting: server reported %v, falling back", status)
		return requestingFallback(d, p, solMaxRT, now, b)
	}

	accepted, t1, t2, minPreferred, minValid := processRequestingIANAs(msg, p.addresses)
	if len(accepted) == 0 {
		glog.Warningf("dhcpv6: requesting: no IA_NA in Reply could be accepted, falling back")
		return requestingFallback(d, p, solMaxRT, now, b)
	}

	final := make(map[IAID]AddressEntry, len(p.addresses))
	for iaid, e := range accepted {
		final[iaid] = e
	}
	for iaid, e := range p.addresses {
		if _, ok := final[iaid]; !ok {
			final[iaid] = e
		}
	}

	hasAssigned := false
	for _, e := range final {
		if e.IsAssigned() {
			hasAssigned = true
			break
		}
	}
	if !hasAssigned {
		glog.Warningf("dhcpv6: requesting: no assigned address survived Reply processing, falling back")
		return requestingFallback(d, p, solMaxRT, now, b)
	}

	t1, t2 = deriveT1T2(t1, t2, minPreferred, minValid)
	glog.V(2).Infof("dhcpv6: requesting: derived T1=%v T2=%v", t1, t2)

	var dnsServers []Address
	if opt, ok := msg.GetOption(wire.OptionDNSServers); ok {
		dnsServers = opt.(wire.DNSServersOption).Servers
	}

	b.cancelTimer(TimerRetransmission)
	b.updateDNSServers(dnsServers)
	if secs, ok := t1.FiniteSeconds(); ok {
		b.scheduleTimer(TimerRenew, time.Duration(secs)*time.Second)
	}

	return addressAssignedPhase{
		serverID:   p.serverID,
		addresses:  final,
		dnsServers: dnsServers,
		solMaxRT:   solMaxRT,
	}
}

// processRequestingIANAs validates each IA_NA in msg against the
// currently-requested IAIDs: a Success sub-status with a usable address
// becomes Assigned; NotOnLink clears the address but keeps requesting;
// any other sub-status, an unrequested or duplicate IAID, or T1 > T2
// (both non-zero) drops that IA only. t1 and t2 are the running
// min-nonzero T1/T2 across surviving IAs whose T1 and T2 are both
// non-zero (RFC 8415 Section 18.2.4); minPreferred and minValid are the
// smallest lifetimes of the assigned addresses, from which deriveT1T2
// derives T1 when t1 is Zero.
func processRequestingIANAs(msg *wire.Message, current map[IAID]AddressEntry) (accepted map[IAID]AddressEntry, t1, t2, minPreferred, minValid TimeValue) {
	accepted = make(map[IAID]AddressEntry)
	for _, iana := range msg.IANAs() {
		iaid := IAID(iana.IAID)
		entry, known := current[iaid]
		if !known {
			glog.Warningf("dhcpv6: requesting: dropping IA_NA for unrequested IAID %d", iaid)
			continue
		}
		if _, dup := accepted[iaid]; dup {
			glog.Warningf("dhcpv6: requesting: dropping duplicate IA_NA for IAID %d", iaid)
			continue
		}

		it1 := NewTimeValue(iana.T1)
		it2 := NewTimeValue(iana.T2)
		if it1.IsNonZero() && it2.IsNonZero() {
			if it2.Less(it1) {
				glog.Warningf("dhcpv6: requesting: dropping IA_NA %d with T1 > T2", iaid)
				continue
			}
			t1 = minNonZero(t1, it1)
			t2 = minNonZero(t2, it2)
		}

		status := wire.StatusSuccess
		if sc, ok := iana.StatusCode(); ok {
			if !wire.KnownStatusCode(sc.Status) {
				glog.Warningf("dhcpv6: requesting: dropping IA_NA %d with unknown status code %d", iaid, sc.Status)
				continue
			}
			status = sc.Status
		}

		switch status {
		case wire.StatusSuccess:
			addr, ok := iana.Address()
			if !ok {
				glog.Warningf("dhcpv6: requesting: dropping IA_NA %d with Success status but no usable address", iaid)
				continue
			}
			preferred := NewTimeValue(addr.PreferredLifetime)
			valid := NewTimeValue(addr.ValidLifetime)
			if valid.IsZero() || valid.Less(preferred) {
				glog.Warningf("dhcpv6: requesting: dropping IA_NA %d with invalid lifetimes", iaid)
				continue
			}
			lease, err := NewIdentityAssociation(addr.Address, preferred, valid)
			if err != nil {
				glog.Warningf("dhcpv6: requesting: dropping IA_NA %d: %s", iaid, err)
				continue
			}
			accepted[iaid] = AssignedEntry(lease, entry.Hint())
			minPreferred = minNonZero(minPreferred, preferred)
			minValid = minNonZero(minValid, valid)
		case wire.StatusNotOnLink:
			accepted[iaid] = ToRequestEntry(NoHint, entry.Hint())
		default:
			glog.Warningf("dhcpv6: requesting: dropping IA_NA %d with status %v", iaid, status)
		}
	}
	return accepted, t1, t2, minPreferred, minValid
}

// deriveT1T2 computes the Reply's final T1/T2 from the accumulated
// per-IA minimums and the min observed lifetimes. T2 is always computed
// (T2 >= T1 must hold), but only T1 drives the Renew timer; Rebind/T2
// handling is out of scope, so nothing downstream consumes T2's value.
func deriveT1T2(t1, t2, minPreferred, minValid TimeValue) (TimeValue, TimeValue) {
	if t1.IsZero() {
		base := minPreferred
		if base.IsZero() {
			base = minValid
		}
		t1 = computeT(base, 1, 2)
	}
	if t2.IsZero() || t2.Less(t1) {
		t2 = computeT(t1, 8, 5)
	}
	return t1, t2
}
