// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"time"

	"github.com/golang/glog"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

// enterInformationRequesting builds and sends the first Information-Request
// of an exchange and schedules its retransmission timer, RFC 8415
// Section 18.2.6. The caller's current transaction ID is used verbatim;
// only a refresh restart (informationReceivedOnRefresh) regenerates one
// first.
func enterInformationRequesting(d *Driver, now time.Time, b *actionBuilder) informationRequestingPhase {
	rt := retransmissionTimeout(0, initialInfoReqTimeout, maxInfoReqTimeout, d.rng)
	b.sendMessage(wire.Encode(informationRequestMessage(d)))
	b.scheduleTimer(TimerRetransmission, rt)
	return informationRequestingPhase{firstRequestTime: now, retransTimeout: rt}
}

// informationRequestMessage builds the Information-Request: an ORO
// listing options_to_request, omitted entirely if that list is empty;
// unlike the stateful exchanges, SOL_MAX_RT is never prepended here.
func informationRequestMessage(d *Driver) *wire.Message {
	msg := &wire.Message{
		Type:          wire.MessageTypeInformationRequest,
		TransactionID: [3]byte(d.transactionID),
	}
	if len(d.optionsToRequest) > 0 {
		msg.Options = append(msg.Options, wire.OroOption{Codes: d.optionsToRequest})
	}
	return msg
}

// informationRequestingOnRetransmission resends the same Information-
// Request with a freshly computed RT.
func informationRequestingOnRetransmission(d *Driver, p informationRequestingPhase, now time.Time, b *actionBuilder) informationRequestingPhase {
	rt := retransmissionTimeout(p.retransTimeout, initialInfoReqTimeout, maxInfoReqTimeout, d.rng)
	b.sendMessage(wire.Encode(informationRequestMessage(d)))
	b.scheduleTimer(TimerRetransmission, rt)
	return informationRequestingPhase{firstRequestTime: p.firstRequestTime, retransTimeout: rt}
}

// informationRequestingOnReply processes a candidate Reply. On any
// processor error or failure status the phase does not change and no
// actions are emitted; on success it cancels the retransmission timer,
// schedules the Refresh timer (IRT_DEFAULT if the server omitted
// InformationRefreshTime) and publishes DNS servers, entering
// InformationReceived.
func informationRequestingOnReply(d *Driver, p informationRequestingPhase, msg *wire.Message, now time.Time, b *actionBuilder) interface{} {
	processed, err := ProcessOptions(msg, ExchangeReplyToInformationRequest, nil)
	if err != nil {
		glog.Warningf("dhcpv6: information-requesting: dropping Reply: %s", err)
		return p
	}
	if processed.Failed() {
		glog.Warningf("dhcpv6: information-requesting: dropping Reply with failure status %v", processed.StatusCode)
		return p
	}

	refresh := irtDefault
	if processed.HasInformationRefreshTime {
		refresh = processed.InformationRefreshTime.Duration()
	}

	b.cancelTimer(TimerRetransmission)
	b.scheduleTimer(TimerRefresh, refresh)
	b.updateDNSServers(processed.DNSServers)

	return informationReceivedPhase{dnsServers: processed.DNSServers}
}

// informationReceivedOnRefresh regenerates the transaction ID and
// restarts a fresh Information-Request exchange, RFC 8415 Section 18.2.12.
func informationReceivedOnRefresh(d *Driver, p informationReceivedPhase, now time.Time, b *actionBuilder) interface{} {
	d.newTransactionID()
	return enterInformationRequesting(d, now, b)
}
