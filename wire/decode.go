// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
)

// Decode parses a raw DHCPv6 datagram payload into a Message. It only
// validates wire-format well-formedness (lengths, TLV framing); semantic
// validation (singleton/duplicate options, mandatory options, status
// code legality) is the Option Processor's job, not this package's.
func Decode(data []byte) (*Message, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("wire: message too short: %d bytes", len(data))
	}
	msg := &Message{Type: MessageType(data[0])}
	copy(msg.TransactionID[:], data[1:4])

	rest := data[4:]
	for len(rest) > 0 {
		opt, n, err := decodeOption(rest)
		if err != nil {
			return nil, err
		}
		msg.Options = append(msg.Options, opt)
		rest = rest[n:]
	}
	return msg, nil
}

// decodeOption parses a single TLV option from the front of data and
// returns it along with the number of bytes consumed.
func decodeOption(data []byte) (Option, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("wire: truncated option header: %d bytes", len(data))
	}
	code := OptionCode(binary.BigEndian.Uint16(data))
	length := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < 4+length {
		return nil, 0, fmt.Errorf("wire: option %s: declared length %d exceeds remaining %d bytes", code, length, len(data)-4)
	}
	payload := data[4 : 4+length]
	opt, err := decodeOptionPayload(code, payload)
	if err != nil {
		return nil, 0, err
	}
	return opt, 4 + length, nil
}

func decodeOptionPayload(code OptionCode, payload []byte) (Option, error) {
	switch code {
	case OptionClientID:
		return ClientIDOption{DUID: append([]byte(nil), payload...)}, nil
	case OptionServerID:
		return ServerIDOption{DUID: append([]byte(nil), payload...)}, nil
	case OptionIANA:
		return decodeIANA(payload)
	case OptionIAAddr:
		return decodeIAAddr(payload)
	case OptionOro:
		if len(payload)%2 != 0 {
			return nil, fmt.Errorf("wire: ORO: odd length %d", len(payload))
		}
		codes := make([]OptionCode, 0, len(payload)/2)
		for i := 0; i < len(payload); i += 2 {
			codes = append(codes, OptionCode(binary.BigEndian.Uint16(payload[i:])))
		}
		return OroOption{Codes: codes}, nil
	case OptionPreference:
		if len(payload) != 1 {
			return nil, fmt.Errorf("wire: Preference: want 1 byte, got %d", len(payload))
		}
		return PreferenceOption{Value: payload[0]}, nil
	case OptionElapsedTime:
		if len(payload) != 2 {
			return nil, fmt.Errorf("wire: ElapsedTime: want 2 bytes, got %d", len(payload))
		}
		return ElapsedTimeOption{Centiseconds: binary.BigEndian.Uint16(payload)}, nil
	case OptionStatusCode:
		if len(payload) < 2 {
			return nil, fmt.Errorf("wire: StatusCode: want >= 2 bytes, got %d", len(payload))
		}
		return StatusCodeOption{
			Status:  StatusCode(binary.BigEndian.Uint16(payload)),
			Message: string(payload[2:]),
		}, nil
	case OptionRapidCommit:
		return RapidCommitOption{}, nil
	case OptionDNSServers:
		if len(payload)%16 != 0 {
			return nil, fmt.Errorf("wire: DNSServers: length %d not a multiple of 16", len(payload))
		}
		servers := make([]Address, 0, len(payload)/16)
		for i := 0; i < len(payload); i += 16 {
			servers = append(servers, Address(string(payload[i:i+16])))
		}
		return DNSServersOption{Servers: servers}, nil
	case OptionInformationRefreshTime:
		if len(payload) != 4 {
			return nil, fmt.Errorf("wire: InformationRefreshTime: want 4 bytes, got %d", len(payload))
		}
		return InformationRefreshTimeOption{Seconds: binary.BigEndian.Uint32(payload)}, nil
	case OptionSolMaxRT:
		if len(payload) != 4 {
			return nil, fmt.Errorf("wire: SolMaxRT: want 4 bytes, got %d", len(payload))
		}
		return SolMaxRTOption{Seconds: binary.BigEndian.Uint32(payload)}, nil
	default:
		return UnknownOption{code: code, Data: append([]byte(nil), payload...)}, nil
	}
}

func decodeIANA(payload []byte) (Option, error) {
	if len(payload) < 12 {
		return nil, fmt.Errorf("wire: IA_NA: want >= 12 bytes, got %d", len(payload))
	}
	o := IANAOption{
		IAID: binary.BigEndian.Uint32(payload),
		T1:   binary.BigEndian.Uint32(payload[4:]),
		T2:   binary.BigEndian.Uint32(payload[8:]),
	}
	rest := payload[12:]
	for len(rest) > 0 {
		sub, n, err := decodeOption(rest)
		if err != nil {
			return nil, err
		}
		o.Options = append(o.Options, sub)
		rest = rest[n:]
	}
	return o, nil
}

func decodeIAAddr(payload []byte) (Option, error) {
	if len(payload) < 24 {
		return nil, fmt.Errorf("wire: IAAddr: want >= 24 bytes, got %d", len(payload))
	}
	o := IAAddrOption{
		Address:           Address(string(payload[0:16])),
		PreferredLifetime: binary.BigEndian.Uint32(payload[16:]),
		ValidLifetime:     binary.BigEndian.Uint32(payload[20:]),
	}
	rest := payload[24:]
	for len(rest) > 0 {
		sub, n, err := decodeOption(rest)
		if err != nil {
			return nil, err
		}
		o.Options = append(o.Options, sub)
		rest = rest[n:]
	}
	return o, nil
}
