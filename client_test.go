// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"testing"
	"time"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

func actionKinds(actions []Action) []ActionKind {
	out := make([]ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.ActionKind()
	}
	return out
}

func wantKinds(t *testing.T, actions []Action, want ...ActionKind) {
	t.Helper()
	got := actionKinds(actions)
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("actions[%d] = %v, want %v (full: %v, want %v)", i, got[i], k, got, want)
		}
	}
}

func sentMessage(t *testing.T, actions []Action) *wire.Message {
	t.Helper()
	for _, a := range actions {
		if a.ActionKind() == ActionSendMessage {
			msg, err := wire.Decode(a.Message)
			if err != nil {
				t.Fatalf("wire.Decode(sent message): %s", err)
			}
			return msg
		}
	}
	t.Fatal("no SendMessage action found")
	return nil
}

func scheduledDuration(t *testing.T, actions []Action, kind TimerKind) time.Duration {
	t.Helper()
	for _, a := range actions {
		if a.ActionKind() == ActionScheduleTimer && a.Kind == kind {
			return a.Duration
		}
	}
	t.Fatalf("no ScheduleTimer(%v) action found in %v", kind, actions)
	return 0
}

// TestScenarioStatelessHappyPath: StartStateless
// immediately sends an Information-Request with the requested ORO and
// schedules a Retransmission timer; the server's Reply then cancels that
// timer, schedules Refresh from the server's InformationRefreshTime, and
// publishes the DNS servers.
func TestScenarioStatelessHappyPath(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	oro := []wire.OptionCode{wire.OptionDNSServers}
	d, actions := StartStateless(TransactionID{0, 1, 2}, oro, rng, now)

	wantKinds(t, actions, ActionSendMessage, ActionScheduleTimer)
	sent := sentMessage(t, actions)
	if sent.Type != wire.MessageTypeInformationRequest {
		t.Errorf("sent.Type = %v, want InformationRequest", sent.Type)
	}
	if sent.TransactionID != [3]byte{0, 1, 2} {
		t.Errorf("sent.TransactionID = %v, want [0 1 2]", sent.TransactionID)
	}
	oroOpt, ok := sent.GetOption(wire.OptionOro)
	if !ok || len(oroOpt.(wire.OroOption).Codes) != 1 || oroOpt.(wire.OroOption).Codes[0] != wire.OptionDNSServers {
		t.Errorf("sent ORO = %v, want [DnsServers]", oroOpt)
	}

	reply := &wire.Message{
		Type:          wire.MessageTypeReply,
		TransactionID: [3]byte{0, 1, 2},
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.InformationRefreshTimeOption{Seconds: 42},
			wire.DNSServersOption{Servers: []Address{addr(8)}},
		},
	}
	replyActions := d.HandleMessage(wire.Encode(reply), now.Add(time.Second))
	wantKinds(t, replyActions, ActionCancelTimer, ActionScheduleTimer, ActionUpdateDNSServers)
	if got := scheduledDuration(t, replyActions, TimerRefresh); got != 42*time.Second {
		t.Errorf("Refresh duration = %s, want 42s", got)
	}
	if got := d.GetDNSServers(); len(got) != 1 || got[0] != addr(8) {
		t.Errorf("GetDNSServers() = %v, want [addr(8)]", got)
	}
}

// TestScenarioStatelessRetransmit: a fired Retransmission
// timer resends the same Information-Request under the same transaction ID.
func TestScenarioStatelessRetransmit(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	d, actions := StartStateless(TransactionID{9, 9, 9}, nil, rng, now)
	firstRT := scheduledDuration(t, actions, TimerRetransmission)

	retransActions := d.HandleTimeout(TimerRetransmission, now.Add(firstRT))
	wantKinds(t, retransActions, ActionSendMessage, ActionScheduleTimer)
	sent := sentMessage(t, retransActions)
	if sent.TransactionID != [3]byte{9, 9, 9} {
		t.Errorf("retransmitted sent.TransactionID = %v, want unchanged [9 9 9]", sent.TransactionID)
	}
}

// TestScenarioStatefulImmediateSelect: an Advertise with
// Preference 255 that satisfies every configured hint triggers an
// immediate transition to Requesting without waiting for the Solicit's
// retransmission timer.
func TestScenarioStatefulImmediateSelect(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	clientID := testClientID(1)
	configured := ConfiguredAddresses{1: Hint(addr(1))}
	d, actions := StartStateful(TransactionID{0, 0, 1}, clientID, configured, nil, rng, now)
	wantKinds(t, actions, ActionSendMessage, ActionScheduleTimer)

	advertise := &wire.Message{
		Type:          wire.MessageTypeAdvertise,
		TransactionID: [3]byte{0, 0, 1},
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.PreferenceOption{Value: 255},
			wire.IANAOption{IAID: 1, Options: []wire.Option{
				wire.IAAddrOption{Address: addr(1), PreferredLifetime: 50, ValidLifetime: 100},
			}},
		},
	}
	advActions := d.HandleMessage(wire.Encode(advertise), now.Add(10*time.Millisecond))
	wantKinds(t, advActions, ActionCancelTimer, ActionSendMessage, ActionScheduleTimer)
	sent := sentMessage(t, advActions)
	if sent.Type != wire.MessageTypeRequest {
		t.Errorf("sent.Type = %v, want Request", sent.Type)
	}
	if sent.TransactionID == [3]byte{0, 0, 1} {
		t.Error("Requesting should have generated a fresh transaction ID, got the Solicit's")
	}
}

// TestScenarioRequestExhaustionFallsBackToServerDiscovery: once a
// Request's retransmission count exceeds REQUEST_MAX_RC with no other
// collected Advertise, the client restarts ServerDiscovery.
func TestScenarioRequestExhaustionFallsBackToServerDiscovery(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	clientID := testClientID(2)
	configured := ConfiguredAddresses{1: NoHint}
	d, _ := StartStateful(TransactionID{0, 0, 2}, clientID, configured, nil, rng, now)

	advertise := &wire.Message{
		Type:          wire.MessageTypeAdvertise,
		TransactionID: [3]byte{0, 0, 2},
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.PreferenceOption{Value: 255},
			wire.IANAOption{IAID: 1, Options: []wire.Option{
				wire.IAAddrOption{Address: addr(1), PreferredLifetime: 50, ValidLifetime: 100},
			}},
		},
	}
	t_ := now.Add(time.Second)
	reqActions := d.HandleMessage(wire.Encode(advertise), t_)
	wantKinds(t, reqActions, ActionCancelTimer, ActionSendMessage, ActionScheduleTimer)
	if sentMessage(t, reqActions).Type != wire.MessageTypeRequest {
		t.Fatal("expected a Request after immediately selecting the only Advertise")
	}

	var last []Action
	for i := 0; i < requestMaxRC; i++ {
		t_ = t_.Add(30 * time.Second)
		last = d.HandleTimeout(TimerRetransmission, t_)
		if sentMessage(t, last).Type != wire.MessageTypeRequest {
			t.Fatalf("retransmission %d: expected Request, got something else", i)
		}
	}

	t_ = t_.Add(30 * time.Second)
	fallback := d.HandleTimeout(TimerRetransmission, t_)
	if sentMessage(t, fallback).Type != wire.MessageTypeSolicit {
		t.Errorf("after REQUEST_MAX_RC retransmissions, expected a fresh Solicit, got %v", sentMessage(t, fallback).Type)
	}
}

// TestScenarioRequestExhaustionFallsBackToNextAdvertise covers the
// two-server exhaustion case: with a second collected Advertise
// remembered from discovery, exhausting REQUEST_MAX_RC against the first
// server restarts Requesting against the second, under a fresh
// transaction ID and a reset retransmission count.
func TestScenarioRequestExhaustionFallsBackToNextAdvertise(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	clientID := testClientID(5)
	configured := ConfiguredAddresses{1: NoHint}
	d, _ := StartStateful(TransactionID{0, 0, 5}, clientID, configured, nil, rng, now)

	advertiseFrom := func(serverID []byte, preference uint8) *wire.Message {
		return &wire.Message{
			Type:          wire.MessageTypeAdvertise,
			TransactionID: [3]byte{0, 0, 5},
			Options: []wire.Option{
				wire.ServerIDOption{DUID: serverID},
				wire.ClientIDOption{DUID: clientID[:]},
				wire.PreferenceOption{Value: preference},
				wire.IANAOption{IAID: 1, Options: []wire.Option{
					wire.IAAddrOption{Address: addr(preference), PreferredLifetime: 50, ValidLifetime: 100},
				}},
			},
		}
	}

	// Neither Advertise triggers immediate selection (preference < 255,
	// first RT not yet elapsed), so both are collected.
	if actions := d.HandleMessage(wire.Encode(advertiseFrom([]byte{1, 2, 3}, 100)), now.Add(100*time.Millisecond)); len(actions) != 0 {
		t.Fatalf("collecting first Advertise: actions = %v, want empty", actions)
	}
	if actions := d.HandleMessage(wire.Encode(advertiseFrom([]byte{4, 5, 6}, 50)), now.Add(200*time.Millisecond)); len(actions) != 0 {
		t.Fatalf("collecting second Advertise: actions = %v, want empty", actions)
	}

	t_ := now.Add(time.Second)
	reqActions := d.HandleTimeout(TimerRetransmission, t_)
	firstRequest := sentMessage(t, reqActions)
	if firstRequest.Type != wire.MessageTypeRequest {
		t.Fatalf("after solicit timeout, sent %v, want Request", firstRequest.Type)
	}
	if opt, ok := firstRequest.GetOption(wire.OptionServerID); !ok || opt.(wire.ServerIDOption).DUID[0] != 1 {
		t.Fatalf("first Request ServerID = %v, want the preference-100 server [1 2 3]", opt)
	}

	for i := 0; i < requestMaxRC; i++ {
		t_ = t_.Add(30 * time.Second)
		d.HandleTimeout(TimerRetransmission, t_)
	}
	t_ = t_.Add(30 * time.Second)
	fallback := d.HandleTimeout(TimerRetransmission, t_)
	secondRequest := sentMessage(t, fallback)
	if secondRequest.Type != wire.MessageTypeRequest {
		t.Fatalf("after exhaustion, sent %v, want Request against the next Advertise", secondRequest.Type)
	}
	if opt, ok := secondRequest.GetOption(wire.OptionServerID); !ok || opt.(wire.ServerIDOption).DUID[0] != 4 {
		t.Errorf("fallback Request ServerID = %v, want the remembered server [4 5 6]", opt)
	}
	if secondRequest.TransactionID == firstRequest.TransactionID {
		t.Error("fallback Request reused the exhausted exchange's transaction ID, want a fresh one")
	}
}

// TestRequestingReplyUnspecFailResendsRequest: an
// UnspecFail Reply makes the client resend the same Request (with its
// retransmission timer replaced) rather than falling back.
func TestRequestingReplyUnspecFailResendsRequest(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	clientID := testClientID(6)
	configured := ConfiguredAddresses{1: NoHint}
	d, _ := StartStateful(TransactionID{0, 0, 6}, clientID, configured, nil, rng, now)

	advertise := &wire.Message{
		Type:          wire.MessageTypeAdvertise,
		TransactionID: [3]byte{0, 0, 6},
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.PreferenceOption{Value: 255},
			wire.IANAOption{IAID: 1, Options: []wire.Option{
				wire.IAAddrOption{Address: addr(1), PreferredLifetime: 50, ValidLifetime: 100},
			}},
		},
	}
	reqActions := d.HandleMessage(wire.Encode(advertise), now.Add(time.Second))
	request := sentMessage(t, reqActions)

	reply := &wire.Message{
		Type:          wire.MessageTypeReply,
		TransactionID: request.TransactionID,
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.StatusCodeOption{Status: wire.StatusUnspecFail},
		},
	}
	retryActions := d.HandleMessage(wire.Encode(reply), now.Add(2*time.Second))
	wantKinds(t, retryActions, ActionCancelTimer, ActionSendMessage, ActionScheduleTimer)
	retry := sentMessage(t, retryActions)
	if retry.Type != wire.MessageTypeRequest {
		t.Errorf("retry.Type = %v, want Request", retry.Type)
	}
	if retry.TransactionID != request.TransactionID {
		t.Error("UnspecFail retry changed the transaction ID, want the same exchange")
	}
}

// TestScenarioReplyNotOnLinkClearsAddressAndRetries: a
// Reply with top-level status NotOnLink clears every address but keeps
// retrying the same IAIDs rather than falling back.
func TestScenarioReplyNotOnLinkClearsAddressAndRetries(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	clientID := testClientID(3)
	configured := ConfiguredAddresses{1: Hint(addr(1))}
	d, _ := StartStateful(TransactionID{0, 0, 3}, clientID, configured, nil, rng, now)

	advertise := &wire.Message{
		Type:          wire.MessageTypeAdvertise,
		TransactionID: [3]byte{0, 0, 3},
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.PreferenceOption{Value: 255},
			wire.IANAOption{IAID: 1, Options: []wire.Option{
				wire.IAAddrOption{Address: addr(1), PreferredLifetime: 50, ValidLifetime: 100},
			}},
		},
	}
	reqActions := d.HandleMessage(wire.Encode(advertise), now.Add(time.Second))
	requestMsg := sentMessage(t, reqActions)

	reply := &wire.Message{
		Type:          wire.MessageTypeReply,
		TransactionID: requestMsg.TransactionID,
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.StatusCodeOption{Status: wire.StatusNotOnLink},
		},
	}
	retryActions := d.HandleMessage(wire.Encode(reply), now.Add(2*time.Second))
	wantKinds(t, retryActions, ActionCancelTimer, ActionSendMessage, ActionScheduleTimer)
	retry := sentMessage(t, retryActions)
	if retry.Type != wire.MessageTypeRequest {
		t.Fatalf("retry.Type = %v, want Request", retry.Type)
	}
	iana := retry.IANAs()
	if len(iana) != 1 {
		t.Fatalf("retry IANAs = %v, want exactly 1", iana)
	}
	if _, ok := iana[0].Address(); ok {
		t.Error("retry IA_NA carries an address hint, want none (cleared by NotOnLink)")
	}
}

// TestScenarioRenewLaunch: the Renew timer firing in
// AddressAssigned sends a Renew carrying the leased address and
// reschedules its own retransmission timer, with no CancelTimer (the Renew
// timer already fired and is not pending).
func TestScenarioRenewLaunch(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	clientID := testClientID(4)
	configured := ConfiguredAddresses{1: Hint(addr(1))}
	d, _ := StartStateful(TransactionID{0, 0, 4}, clientID, configured, nil, rng, now)

	advertise := &wire.Message{
		Type:          wire.MessageTypeAdvertise,
		TransactionID: [3]byte{0, 0, 4},
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.PreferenceOption{Value: 255},
			wire.IANAOption{IAID: 1, Options: []wire.Option{
				wire.IAAddrOption{Address: addr(1), PreferredLifetime: 50, ValidLifetime: 100},
			}},
		},
	}
	reqActions := d.HandleMessage(wire.Encode(advertise), now.Add(time.Second))
	requestMsg := sentMessage(t, reqActions)

	reply := &wire.Message{
		Type:          wire.MessageTypeReply,
		TransactionID: requestMsg.TransactionID,
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("server-1")},
			wire.ClientIDOption{DUID: clientID[:]},
			wire.IANAOption{IAID: 1, T1: 30, T2: 48, Options: []wire.Option{
				wire.IAAddrOption{Address: addr(1), PreferredLifetime: 50, ValidLifetime: 100},
			}},
		},
	}
	boundActions := d.HandleMessage(wire.Encode(reply), now.Add(2*time.Second))
	renewDelay := scheduledDuration(t, boundActions, TimerRenew)
	if renewDelay != 30*time.Second {
		t.Fatalf("Renew delay = %s, want 30s (server T1)", renewDelay)
	}

	renewActions := d.HandleTimeout(TimerRenew, now.Add(32*time.Second))
	wantKinds(t, renewActions, ActionSendMessage, ActionScheduleTimer)
	renew := sentMessage(t, renewActions)
	if renew.Type != wire.MessageTypeRenew {
		t.Errorf("renew.Type = %v, want Renew", renew.Type)
	}
	iana := renew.IANAs()
	if len(iana) != 1 {
		t.Fatalf("renew IANAs = %v, want exactly 1", iana)
	}
	if a, ok := iana[0].Address(); !ok || a.Address != addr(1) {
		t.Errorf("renew IA_NA address = %v, %v, want %v, true", a, ok, addr(1))
	}
}

// TestHandleTimeoutPanicsOnMismatchedKind covers the programming
// error guard: a timer kind the current phase does not use panics rather
// than silently doing nothing.
func TestHandleTimeoutPanicsOnMismatchedKind(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	d, _ := StartStateless(TransactionID{1, 2, 3}, nil, rng, now)

	defer func() {
		if recover() == nil {
			t.Error("HandleTimeout(TimerRenew) in InformationRequesting did not panic")
		}
	}()
	d.HandleTimeout(TimerRenew, now)
}

// TestHandleMessageDropsTransactionIDMismatch: a
// message whose transaction ID does not match the Driver's current one is
// dropped with no state change.
func TestHandleMessageDropsTransactionIDMismatch(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	d, _ := StartStateless(TransactionID{1, 2, 3}, nil, rng, now)

	reply := &wire.Message{
		Type:          wire.MessageTypeReply,
		TransactionID: [3]byte{9, 9, 9},
		Options:       []wire.Option{wire.ServerIDOption{DUID: []byte("s")}},
	}
	actions := d.HandleMessage(wire.Encode(reply), now)
	if len(actions) != 0 {
		t.Errorf("actions = %v, want empty for transaction ID mismatch", actions)
	}
	if len(d.GetDNSServers()) != 0 {
		t.Error("GetDNSServers() non-empty after a dropped message, want no state change")
	}
}

func TestHandleMessageDropsMalformedDatagram(t *testing.T) {
	now := time.Unix(1000, 0)
	rng := newFakeRNG(0)
	d, _ := StartStateless(TransactionID{1, 2, 3}, nil, rng, now)
	actions := d.HandleMessage([]byte{0xff}, now)
	if len(actions) != 0 {
		t.Errorf("actions = %v, want empty for malformed datagram", actions)
	}
}
