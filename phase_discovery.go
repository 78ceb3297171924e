// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"time"

	"github.com/golang/glog"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// enterServerDiscovery builds and sends the first Solicit and schedules
// its retransmission timer, RFC 8415 Section 18.2.1.
func enterServerDiscovery(d *Driver, configured ConfiguredAddresses, solMaxRT TimeValue, now time.Time, b *actionBuilder) serverDiscoveryPhase {
	p := serverDiscoveryPhase{
		configured: configured,
		collected:  newAdvertiseCollection(),
		solMaxRT:   solMaxRT,
	}
	return serverDiscoverySendAndSchedule(d, p, now, b)
}

// serverDiscoverySendAndSchedule (re)sends the Solicit and reschedules the
// retransmission timer against the phase's current SOL_MAX_RT.
func serverDiscoverySendAndSchedule(d *Driver, p serverDiscoveryPhase, now time.Time, b *actionBuilder) serverDiscoveryPhase {
	firstSolicitTime := now
	var elapsed uint16
	if !p.firstSolicitTime.IsZero() {
		firstSolicitTime = p.firstSolicitTime
		elapsed = elapsedCentiseconds(now, p.firstSolicitTime)
	}

	rt := retransmissionTimeout(p.retransTimeout, initialSolicitTimeout, p.solMaxRT.Duration(), d.rng)

	b.sendMessage(wire.Encode(solicitMessage(d, p.configured, elapsed)))
	b.scheduleTimer(TimerRetransmission, rt)

	return serverDiscoveryPhase{
		firstSolicitTime: firstSolicitTime,
		retransTimeout:   rt,
		configured:       p.configured,
		collected:        p.collected,
		solMaxRT:         p.solMaxRT,
	}
}

// solicitMessage builds a Solicit: ClientId, ElapsedTime, one IA_NA per
// configured IAID (with its hint, if any), and an ORO prepending
// SolMaxRt to the options-to-request list.
func solicitMessage(d *Driver, configured ConfiguredAddresses, elapsed uint16) *wire.Message {
	var options []wire.Option
	options = append(options, wire.ClientIDOption{DUID: d.clientID[:]})
	options = append(options, wire.ElapsedTimeOption{Centiseconds: elapsed})
	options = append(options, buildIANAOptionsFromConfigured(configured)...)
	options = append(options, buildORO(d.optionsToRequest))
	return &wire.Message{
		Type:          wire.MessageTypeSolicit,
		TransactionID: [3]byte(d.transactionID),
		Options:       options,
	}
}

// serverDiscoveryOnRetransmission handles a fired Retransmission timer:
// select the best collected Advertise if any, else resend the Solicit.
// SOL_MAX_RT is refreshed from the collected batch either way.
func serverDiscoveryOnRetransmission(d *Driver, p serverDiscoveryPhase, now time.Time, b *actionBuilder) interface{} {
	solMaxRT := p.collected.updateSolMaxRT(p.solMaxRT)
	p.solMaxRT = solMaxRT

	if rec := p.collected.popMax(); rec != nil {
		return enterRequesting(d, rec, p.configured, p.collected, solMaxRT, now, b)
	}
	return serverDiscoverySendAndSchedule(d, p, now, b)
}

// dnsServersRequested reports whether codes asks for the DNS Servers
// option, used by the Advertise Selector's completeness check.
func dnsServersRequested(codes []wire.OptionCode) bool {
	for _, c := range codes {
		if c == wire.OptionDNSServers {
			return true
		}
	}
	return false
}

// serverDiscoveryOnAdvertise validates and, if it carries any usable IA,
// collects an incoming Advertise. It may immediately
// select the Advertise and transition to Requesting rather than
// collecting it, per the immediate-select rule.
func serverDiscoveryOnAdvertise(d *Driver, p serverDiscoveryPhase, msg *wire.Message, now time.Time, b *actionBuilder) interface{} {
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, d.clientID)
	if err != nil {
		glog.Warningf("dhcpv6: discovery: dropping Advertise: %s", err)
		return p
	}
	if processed.HasSolMaxRT {
		p.collected.observeSolMaxRT(processed.SolMaxRT)
	}
	if processed.Failed() {
		glog.Warningf("dhcpv6: discovery: dropping Advertise with failure status %v", processed.StatusCode)
		return p
	}

	rec := buildAdvertiseRecord(processed, p.configured, now)
	if rec == nil {
		return p
	}

	threshold := clippedDuration(initialSolicitTimeout.Seconds() * (1 + randFactorMax))
	isRetransmitting := p.retransTimeout >= threshold

	if (rec.Preference == advertiseMaxPreference && rec.Complete(p.configured, dnsServersRequested(d.optionsToRequest))) || isRetransmitting {
		solMaxRT := p.collected.updateSolMaxRT(p.solMaxRT)
		return enterRequesting(d, rec, p.configured, p.collected, solMaxRT, now, b)
	}

	p.collected.push(rec)
	return p
}

// advertiseMaxPreference is the Preference value that triggers immediate
// selection, RFC 8415 Section 18.2.1.
const advertiseMaxPreference = 255

// buildAdvertiseRecord filters processed's IA_NA results down to the
// addresses this client can actually use and builds the AdvertiseRecord,
// or returns nil if none survive, RFC 8415 Section 18.2.9.
func buildAdvertiseRecord(processed *ProcessedOptions, configured ConfiguredAddresses, now time.Time) *AdvertiseRecord {
	addresses := make(map[IAID]IdentityAssociation)
	for _, ia := range processed.IANAs {
		if !ia.Ok {
			glog.Warningf("dhcpv6: discovery: dropping IA_NA %d with status %v", ia.IAID, ia.StatusCode)
			continue
		}
		if !ia.HasAddress {
			glog.Infof("dhcpv6: discovery: IA_NA %d carried no usable address", ia.IAID)
			continue
		}
		lease, err := NewIdentityAssociation(ia.Address, ia.PreferredLifetime, ia.ValidLifetime)
		if err != nil {
			glog.Warningf("dhcpv6: discovery: dropping IA_NA %d: %s", ia.IAID, err)
			continue
		}
		addresses[ia.IAID] = lease
	}
	if len(addresses) == 0 {
		return nil
	}
	return &AdvertiseRecord{
		ServerID:                processed.ServerID,
		Addresses:               addresses,
		DNSServers:              processed.DNSServers,
		Preference:              processed.Preference,
		ReceiveTime:             now,
		PreferredAddressesCount: countPreferredAddresses(addresses, configured),
	}
}

// countPreferredAddresses counts how many configured hints the advertised
// addresses satisfy exactly.
func countPreferredAddresses(addresses map[IAID]IdentityAssociation, configured ConfiguredAddresses) int {
	count := 0
	for iaid, hint := range configured {
		addr, present := hint.Get()
		if !present {
			continue
		}
		if ia, ok := addresses[iaid]; ok && ia.Address == addr {
			count++
		}
	}
	return count
}
