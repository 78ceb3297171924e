// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wire is the byte-exact RFC 8415 codec: it parses inbound
// DHCPv6 datagrams into typed Options and serializes outgoing messages
// built from the same Option vocabulary. It is the "wire codec"
// collaborator the core state machine (package dhcpv6) treats as
// external: the core never touches a byte beyond the buffers this
// package emits and the Option values it yields.
//
// Only the options the client core actually uses, plus the empty Rapid
// Commit marker, are modeled as typed options; any other option is kept as
// an UnknownOption. Prefix Delegation, Reconfigure-Accept and relay
// framing are not implemented.
package wire

import "gvisor.dev/gvisor/pkg/tcpip"

// Address is the 16-byte IPv6 address representation shared with the
// core package.
type Address = tcpip.Address

// MessageType is the DHCPv6 message type octet, RFC 8415 Section 7.3.
type MessageType uint8

const (
	MessageTypeSolicit            MessageType = 1
	MessageTypeAdvertise          MessageType = 2
	MessageTypeRequest            MessageType = 3
	MessageTypeConfirm            MessageType = 4
	MessageTypeRenew              MessageType = 5
	MessageTypeRebind             MessageType = 6
	MessageTypeReply              MessageType = 7
	MessageTypeRelease            MessageType = 8
	MessageTypeDecline            MessageType = 9
	MessageTypeReconfigure        MessageType = 10
	MessageTypeInformationRequest MessageType = 11
	MessageTypeRelayForward       MessageType = 12
	MessageTypeRelayReply         MessageType = 13
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeSolicit:
		return "Solicit"
	case MessageTypeAdvertise:
		return "Advertise"
	case MessageTypeRequest:
		return "Request"
	case MessageTypeConfirm:
		return "Confirm"
	case MessageTypeRenew:
		return "Renew"
	case MessageTypeRebind:
		return "Rebind"
	case MessageTypeReply:
		return "Reply"
	case MessageTypeRelease:
		return "Release"
	case MessageTypeDecline:
		return "Decline"
	case MessageTypeReconfigure:
		return "Reconfigure"
	case MessageTypeInformationRequest:
		return "InformationRequest"
	case MessageTypeRelayForward:
		return "RelayForward"
	case MessageTypeRelayReply:
		return "RelayReply"
	default:
		return "Unknown"
	}
}

// OptionCode is a DHCPv6 option code, RFC 8415 Section 24.3.
type OptionCode uint16

const (
	OptionClientID               OptionCode = 1
	OptionServerID               OptionCode = 2
	OptionIANA                   OptionCode = 3
	OptionIATA                   OptionCode = 4
	OptionIAAddr                 OptionCode = 5
	OptionOro                    OptionCode = 6
	OptionPreference             OptionCode = 7
	OptionElapsedTime            OptionCode = 8
	OptionStatusCode             OptionCode = 13
	OptionRapidCommit            OptionCode = 14
	OptionDNSServers             OptionCode = 23
	OptionInformationRefreshTime OptionCode = 32
	OptionSolMaxRT               OptionCode = 82
	OptionInfMaxRT               OptionCode = 83
)

func (c OptionCode) String() string {
	switch c {
	case OptionClientID:
		return "ClientID"
	case OptionServerID:
		return "ServerID"
	case OptionIANA:
		return "IA_NA"
	case OptionIATA:
		return "IA_TA"
	case OptionIAAddr:
		return "IAAddr"
	case OptionOro:
		return "ORO"
	case OptionPreference:
		return "Preference"
	case OptionElapsedTime:
		return "ElapsedTime"
	case OptionStatusCode:
		return "StatusCode"
	case OptionRapidCommit:
		return "RapidCommit"
	case OptionDNSServers:
		return "DNSServers"
	case OptionInformationRefreshTime:
		return "InformationRefreshTime"
	case OptionSolMaxRT:
		return "SolMaxRT"
	case OptionInfMaxRT:
		return "InfMaxRT"
	default:
		return "Unknown"
	}
}

// StatusCode is a DHCPv6 status code, RFC 8415 Section 21.13.
type StatusCode uint16

const (
	StatusSuccess       StatusCode = 0
	StatusUnspecFail    StatusCode = 1
	StatusNoAddrsAvail  StatusCode = 2
	StatusNoBinding     StatusCode = 3
	StatusNotOnLink     StatusCode = 4
	StatusUseMulticast  StatusCode = 5
	StatusNoPrefixAvail StatusCode = 6
)

func (s StatusCode) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusUnspecFail:
		return "UnspecFail"
	case StatusNoAddrsAvail:
		return "NoAddrsAvail"
	case StatusNoBinding:
		return "NoBinding"
	case StatusNotOnLink:
		return "NotOnLink"
	case StatusUseMulticast:
		return "UseMulticast"
	case StatusNoPrefixAvail:
		return "NoPrefixAvail"
	default:
		return "Unknown"
	}
}

// KnownStatusCode reports whether s is one of the status codes defined
// above; an unrecognized numeric status code is a decode-level concern
// the Option Processor must reject a message for.
func KnownStatusCode(s StatusCode) bool {
	switch s {
	case StatusSuccess, StatusUnspecFail, StatusNoAddrsAvail, StatusNoBinding, StatusNotOnLink, StatusUseMulticast, StatusNoPrefixAvail:
		return true
	default:
		return false
	}
}

// Option is any DHCPv6 option. Concrete types below implement it; a
// caller processing a Message's Options switches on the concrete type.
type Option interface {
	Code() OptionCode
}

// ClientIDOption carries the client's DUID (Section 21.2).
type ClientIDOption struct{ DUID []byte }

func (ClientIDOption) Code() OptionCode { return OptionClientID }

// ServerIDOption carries a server's DUID (Section 21.3).
type ServerIDOption struct{ DUID []byte }

func (ServerIDOption) Code() OptionCode { return OptionServerID }

// IAAddrOption is an IA Address sub-option of an IANAOption (Section 21.6).
type IAAddrOption struct {
	Address           Address
	PreferredLifetime uint32
	ValidLifetime     uint32
	Options           []Option
}

func (IAAddrOption) Code() OptionCode { return OptionIAAddr }

// IANAOption is an Identity Association for Non-temporary Addresses
// (Section 21.4).
type IANAOption struct {
	IAID    uint32
	T1      uint32
	T2      uint32
	Options []Option
}

func (IANAOption) Code() OptionCode { return OptionIANA }

// Address returns the option's single IA Address sub-option, if present.
// This client never sends or expects more than one address per IA_NA.
func (o IANAOption) Address() (IAAddrOption, bool) {
	for _, sub := range o.Options {
		if addr, ok := sub.(IAAddrOption); ok {
			return addr, true
		}
	}
	return IAAddrOption{}, false
}

// StatusCode returns the option's Status Code sub-option, if present.
func (o IANAOption) StatusCode() (StatusCodeOption, bool) {
	for _, sub := range o.Options {
		if sc, ok := sub.(StatusCodeOption); ok {
			return sc, true
		}
	}
	return StatusCodeOption{}, false
}

// OroOption is an Option Request Option / ORO (Section 21.7).
type OroOption struct{ Codes []OptionCode }

func (OroOption) Code() OptionCode { return OptionOro }

// PreferenceOption is a server's Preference option (Section 21.8).
type PreferenceOption struct{ Value uint8 }

func (PreferenceOption) Code() OptionCode { return OptionPreference }

// ElapsedTimeOption is the client's Elapsed Time option, in centiseconds
// (Section 21.9).
type ElapsedTimeOption struct{ Centiseconds uint16 }

func (ElapsedTimeOption) Code() OptionCode { return OptionElapsedTime }

// StatusCodeOption is a Status Code option (Section 21.13), usable at
// message level or nested in an IANAOption/IAAddrOption.
type StatusCodeOption struct {
	Status  StatusCode
	Message string
}

func (StatusCodeOption) Code() OptionCode { return OptionStatusCode }

// RapidCommitOption is the empty Rapid Commit marker option. It is only
// decoded and encoded; the core never emits it and ignores it in inbound
// messages.
type RapidCommitOption struct{}

func (RapidCommitOption) Code() OptionCode { return OptionRapidCommit }

// DNSServersOption is the DNS Recursive Name Server option
// (RFC 3646 Section 3).
type DNSServersOption struct{ Servers []Address }

func (DNSServersOption) Code() OptionCode { return OptionDNSServers }

// InformationRefreshTimeOption is the Information Refresh Time option
// (RFC 8415 Section 21.23).
type InformationRefreshTimeOption struct{ Seconds uint32 }

func (InformationRefreshTimeOption) Code() OptionCode { return OptionInformationRefreshTime }

// SolMaxRTOption is the SOL_MAX_RT option (RFC 8415 Section 21.24).
type SolMaxRTOption struct{ Seconds uint32 }

func (SolMaxRTOption) Code() OptionCode { return OptionSolMaxRT }

// UnknownOption is any option code this package does not model; its raw
// payload is preserved so a caller can log it but is otherwise ignored.
type UnknownOption struct {
	code OptionCode
	Data []byte
}

func (o UnknownOption) Code() OptionCode { return o.code }

// Message is a fully decoded (inbound) or not-yet-serialized (outbound)
// DHCPv6 message.
type Message struct {
	Type          MessageType
	TransactionID [3]byte
	Options       []Option
}

// GetOption returns the first option in m with the given code.
func (m *Message) GetOption(code OptionCode) (Option, bool) {
	for _, o := range m.Options {
		if o.Code() == code {
			return o, true
		}
	}
	return nil, false
}

// Count returns how many options in m have the given code, so a caller
// can detect duplicate singleton options.
func (m *Message) Count(code OptionCode) int {
	n := 0
	for _, o := range m.Options {
		if o.Code() == code {
			n++
		}
	}
	return n
}

// IANAs returns every IANAOption in m, in order.
func (m *Message) IANAs() []IANAOption {
	var out []IANAOption
	for _, o := range m.Options {
		if iana, ok := o.(IANAOption); ok {
			out = append(out, iana)
		}
	}
	return out
}
