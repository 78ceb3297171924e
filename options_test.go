// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"testing"

	"fuchsia.googlesource.com/dhcpv6/wire"
)

func testClientID(b byte) ClientID {
	var id ClientID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestProcessOptionsRejectsDuplicateSingleton(t *testing.T) {
	msg := &wire.Message{
		Type: wire.MessageTypeAdvertise,
		Options: []wire.Option{
			wire.ServerIDOption{DUID: []byte("s")},
			wire.ServerIDOption{DUID: []byte("s2")},
		},
	}
	if _, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil); err == nil {
		t.Error("ProcessOptions(duplicate ServerID) = nil error, want error")
	}
}

func TestProcessOptionsRequiresServerID(t *testing.T) {
	msg := &wire.Message{Type: wire.MessageTypeAdvertise}
	if _, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil); err == nil {
		t.Error("ProcessOptions(missing ServerID) = nil error, want error")
	}
}

func TestProcessOptionsClientIDRules(t *testing.T) {
	id := testClientID(7)
	serverID := wire.ServerIDOption{DUID: []byte("s")}

	unexpected := &wire.Message{Options: []wire.Option{serverID, wire.ClientIDOption{DUID: id[:]}}}
	if _, err := ProcessOptions(unexpected, ExchangeAdvertiseToSolicit, nil); err == nil {
		t.Error("ProcessOptions(unexpected ClientID) = nil error, want error")
	}

	missing := &wire.Message{Options: []wire.Option{serverID}}
	if _, err := ProcessOptions(missing, ExchangeAdvertiseToSolicit, &id); err == nil {
		t.Error("ProcessOptions(missing expected ClientID) = nil error, want error")
	}

	other := testClientID(8)
	mismatch := &wire.Message{Options: []wire.Option{serverID, wire.ClientIDOption{DUID: other[:]}}}
	if _, err := ProcessOptions(mismatch, ExchangeAdvertiseToSolicit, &id); err == nil {
		t.Error("ProcessOptions(ClientID mismatch) = nil error, want error")
	}

	match := &wire.Message{Options: []wire.Option{serverID, wire.ClientIDOption{DUID: id[:]}}}
	if _, err := ProcessOptions(match, ExchangeAdvertiseToSolicit, &id); err != nil {
		t.Errorf("ProcessOptions(matching ClientID): %s", err)
	}
}

func TestProcessOptionsRejectsUnexpectedIANA(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.IANAOption{IAID: 1},
	}}
	if _, err := ProcessOptions(msg, ExchangeReplyToInformationRequest, nil); err == nil {
		t.Error("ProcessOptions(IA_NA in Information-Request exchange) = nil error, want error")
	}
}

func TestProcessOptionsRejectsDuplicateIAID(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.IANAOption{IAID: 1},
		wire.IANAOption{IAID: 1},
	}}
	if _, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil); err == nil {
		t.Error("ProcessOptions(duplicate IAID) = nil error, want error")
	}
}

func TestProcessOptionsUnknownStatusCodeRejects(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.StatusCodeOption{Status: wire.StatusCode(999)},
	}}
	if _, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil); err == nil {
		t.Error("ProcessOptions(unknown status code) = nil error, want error")
	}
}

func TestProcessOptionsExtractsSolMaxRTInRange(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.SolMaxRTOption{Seconds: 120},
	}}
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !processed.HasSolMaxRT || processed.SolMaxRT != NewTimeValue(120) {
		t.Errorf("processed.SolMaxRT = %v, %v, want 120, true", processed.SolMaxRT, processed.HasSolMaxRT)
	}
}

func TestProcessOptionsIgnoresOutOfRangeSolMaxRT(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.SolMaxRTOption{Seconds: 10},
	}}
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if processed.HasSolMaxRT {
		t.Error("processed.HasSolMaxRT = true for out-of-range value, want false")
	}
}

// TestProcessIANADiscardsOnT1GreaterThanT2 covers the "discard the
// whole IA" rule for inconsistent T1/T2.
func TestProcessIANADiscardsOnT1GreaterThanT2(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.IANAOption{IAID: 1, T1: 200, T2: 100},
	}}
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed.IANAs) != 0 {
		t.Errorf("processed.IANAs = %v, want empty (T1>T2 discards the IA)", processed.IANAs)
	}
}

func TestProcessIANADiscardsIllFormedAddressButKeepsIA(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.IANAOption{IAID: 1, Options: []wire.Option{
			wire.IAAddrOption{Address: addr(1), PreferredLifetime: 100, ValidLifetime: 0},
		}},
	}}
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed.IANAs) != 1 {
		t.Fatalf("processed.IANAs = %v, want 1 surviving IA", processed.IANAs)
	}
	if processed.IANAs[0].HasAddress {
		t.Error("processed.IANAs[0].HasAddress = true, want false (valid_lifetime == 0)")
	}
	if !processed.IANAs[0].Ok {
		t.Error("processed.IANAs[0].Ok = false, want true (no status code means success)")
	}
}

func TestProcessIANAFailureStatus(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.IANAOption{IAID: 1, Options: []wire.Option{
			wire.StatusCodeOption{Status: wire.StatusNoAddrsAvail, Message: "none left"},
		}},
	}}
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(processed.IANAs) != 1 || processed.IANAs[0].Ok {
		t.Fatalf("processed.IANAs = %v, want one Ok=false result", processed.IANAs)
	}
	if processed.IANAs[0].StatusCode != wire.StatusNoAddrsAvail {
		t.Errorf("processed.IANAs[0].StatusCode = %v, want NoAddrsAvail", processed.IANAs[0].StatusCode)
	}
}

func TestProcessOptionsFailed(t *testing.T) {
	msg := &wire.Message{Options: []wire.Option{
		wire.ServerIDOption{DUID: []byte("s")},
		wire.StatusCodeOption{Status: wire.StatusUnspecFail},
	}}
	processed, err := ProcessOptions(msg, ExchangeAdvertiseToSolicit, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !processed.Failed() {
		t.Error("processed.Failed() = false, want true")
	}
}
