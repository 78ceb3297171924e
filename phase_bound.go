// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"time"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// addressAssignedOnRenew regenerates the transaction ID and enters
// Renewing, RFC 8415 Section 18.2.4. Rebind (T2) is not implemented:
// this is the only transition out of AddressAssigned.
func addressAssignedOnRenew(d *Driver, p addressAssignedPhase, now time.Time, b *actionBuilder) interface{} {
	d.newTransactionID()
	rp := renewingPhase{
		serverID:   p.serverID,
		addresses:  p.addresses,
		dnsServers: p.dnsServers,
		solMaxRT:   p.solMaxRT,
	}
	return renewingSendAndSchedule(d, rp, now, b)
}

// renewingSendAndSchedule (re)sends the Renew and reschedules its
// retransmission timer. There is no retransmission-count bound (MRC=0):
// the exchange retries indefinitely until a Reply arrives, since
// Rebind/T2 handling is not implemented.
func renewingSendAndSchedule(d *Driver, p renewingPhase, now time.Time, b *actionBuilder) renewingPhase {
	firstRenewTime := now
	var elapsed uint16
	if !p.firstRenewTime.IsZero() {
		firstRenewTime = p.firstRenewTime
		elapsed = elapsedCentiseconds(now, p.firstRenewTime)
	}

	rt := retransmissionTimeout(p.retransTimeout, initialRenewTimeout, maxRenewTimeout, d.rng)

	b.sendMessage(wire.Encode(renewMessage(d, p, elapsed)))
	b.scheduleTimer(TimerRetransmission, rt)

	return renewingPhase{
		serverID:       p.serverID,
		addresses:      p.addresses,
		dnsServers:     p.dnsServers,
		solMaxRT:       p.solMaxRT,
		firstRenewTime: firstRenewTime,
		retransTimeout: rt,
	}
}

// renewMessage builds a Renew mirroring the Request format, but
// including every current AddressEntry's address (if any) as a hint per
// IAID.
func renewMessage(d *Driver, p renewingPhase, elapsed uint16) *wire.Message {
	var options []wire.Option
	options = append(options, wire.ServerIDOption{DUID: p.serverID})
	options = append(options, wire.ClientIDOption{DUID: d.clientID[:]})
	options = append(options, wire.ElapsedTimeOption{Centiseconds: elapsed})
	options = append(options, buildORO(d.optionsToRequest))
	options = append(options, buildIANAOptionsFromEntries(p.addresses)...)
	return &wire.Message{
		Type:          wire.MessageTypeRenew,
		TransactionID: [3]byte(d.transactionID),
		Options:       options,
	}
}

// renewingOnRetransmission resends the Renew unconditionally.
func renewingOnRetransmission(d *Driver, p renewingPhase, now time.Time, b *actionBuilder) renewingPhase {
	return renewingSendAndSchedule(d, p, now, b)
}

// Reply-to-Renew has no handler. HandleMessage in client.go does not
// dispatch to Renewing, so a Reply arriving here is silently ignored
// and the phase does not change.
// TODO: extend lease lifetimes on Reply-to-Renew once Rebind exists to
// pick up the T2 path.
