// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wire

import (
	"encoding/binary"
)

// Encode serializes msg into the byte-exact RFC 8415 wire format: a
// 4-byte header (1-byte message type, 3-byte transaction ID) followed by
// the TLV-encoded options, in the order given.
func Encode(msg *Message) []byte {
	buf := make([]byte, 4, 64)
	buf[0] = byte(msg.Type)
	copy(buf[1:4], msg.TransactionID[:])
	for _, opt := range msg.Options {
		buf = appendOption(buf, opt)
	}
	return buf
}

// appendOption appends the TLV encoding of opt (2-byte code, 2-byte
// length, payload) to buf and returns the extended slice.
func appendOption(buf []byte, opt Option) []byte {
	start := len(buf)
	buf = append(buf, 0, 0, 0, 0) // code + length placeholder
	buf = appendOptionPayload(buf, opt)
	payloadLen := len(buf) - start - 4
	binary.BigEndian.PutUint16(buf[start:], uint16(opt.Code()))
	binary.BigEndian.PutUint16(buf[start+2:], uint16(payloadLen))
	return buf
}

func appendOptionPayload(buf []byte, opt Option) []byte {
	switch o := opt.(type) {
	case ClientIDOption:
		return append(buf, o.DUID...)
	case ServerIDOption:
		return append(buf, o.DUID...)
	case IANAOption:
		buf = appendUint32(buf, o.IAID)
		buf = appendUint32(buf, o.T1)
		buf = appendUint32(buf, o.T2)
		for _, sub := range o.Options {
			buf = appendOption(buf, sub)
		}
		return buf
	case IAAddrOption:
		buf = append(buf, []byte(o.Address)...)
		buf = appendUint32(buf, o.PreferredLifetime)
		buf = appendUint32(buf, o.ValidLifetime)
		for _, sub := range o.Options {
			buf = appendOption(buf, sub)
		}
		return buf
	case OroOption:
		for _, c := range o.Codes {
			buf = appendUint16(buf, uint16(c))
		}
		return buf
	case PreferenceOption:
		return append(buf, o.Value)
	case ElapsedTimeOption:
		return appendUint16(buf, o.Centiseconds)
	case StatusCodeOption:
		buf = appendUint16(buf, uint16(o.Status))
		return append(buf, []byte(o.Message)...)
	case RapidCommitOption:
		return buf
	case DNSServersOption:
		for _, addr := range o.Servers {
			buf = append(buf, []byte(addr)...)
		}
		return buf
	case InformationRefreshTimeOption:
		return appendUint32(buf, o.Seconds)
	case SolMaxRTOption:
		return appendUint32(buf, o.Seconds)
	case UnknownOption:
		return append(buf, o.Data...)
	default:
		return buf
	}
}

func appendUint16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
