// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import "fmt"

// TransactionIDLen is the length in bytes of a DHCPv6 transaction ID, per
// RFC 8415 Section 8.
const TransactionIDLen = 3

// ClientIDLen is the length in bytes of the client identifier (DUID) this
// package requires, per RFC 8415 Section 21.2.
const ClientIDLen = 18

// TransactionID is the 3-byte value that correlates a client-initiated
// message with its response. A fresh TransactionID is generated for every
// client-initiated exchange (Solicit, Information-Request, Request
// restarted against a new server, Renew); it is reused verbatim across
// retransmissions of the same message.
type TransactionID [TransactionIDLen]byte

// String implements fmt.Stringer.
func (t TransactionID) String() string {
	return fmt.Sprintf("%02x%02x%02x", t[0], t[1], t[2])
}

// ClientID is the client's DUID (DHCP Unique Identifier), stable for the
// lifetime of the Driver. It is opaque to this package beyond its length
// and byte-exact equality.
type ClientID [ClientIDLen]byte

// IAID is the 32-bit, locally-scoped identifier for an Identity
// Association, as defined in RFC 8415 Section 21.4. The client picks it;
// this package treats the set of configured IAIDs as given by the caller
// at Driver construction time.
type IAID uint32

// genTransactionID draws a fresh TransactionID from rng. It is the only
// place new transaction IDs are minted.
func genTransactionID(rng RNG) TransactionID {
	var id TransactionID
	rng.ReadTransactionID(id[:])
	return id
}
