// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import (
	"container/heap"
	"time"
)

// AdvertiseRecord summarizes a single collected Advertise message.
type AdvertiseRecord struct {
	ServerID                []byte
	Addresses               map[IAID]IdentityAssociation
	DNSServers              []Address
	Preference              uint8
	ReceiveTime             time.Time
	PreferredAddressesCount int
}

// Complete reports whether r satisfies every configured IAID (and its
// hint, if any) and, if DNS servers were requested, carries a non-empty
// DNS server set.
func (r *AdvertiseRecord) Complete(cfg ConfiguredAddresses, dnsRequested bool) bool {
	for iaid, hint := range cfg {
		ia, ok := r.Addresses[iaid]
		if !ok {
			return false
		}
		if !hint.Satisfies(ia.Address) {
			return false
		}
	}
	if dnsRequested && len(r.DNSServers) == 0 {
		return false
	}
	return true
}

// compareAdvertise orders two AdvertiseRecords under the tuple
//
//	(|addresses|, preferred_addresses_count, preference, |dns_servers|, -receive_time)
//
// lexicographically descending. It returns a positive number if a
// ranks strictly better than b, negative if worse, 0 if equivalent,
// which only happens for distinct records when their receive times are
// equal; the order is otherwise total.
func compareAdvertise(a, b *AdvertiseRecord) int {
	if d := len(a.Addresses) - len(b.Addresses); d != 0 {
		return d
	}
	if d := a.PreferredAddressesCount - b.PreferredAddressesCount; d != 0 {
		return d
	}
	if d := int(a.Preference) - int(b.Preference); d != 0 {
		return d
	}
	if d := len(a.DNSServers) - len(b.DNSServers); d != 0 {
		return d
	}
	switch {
	case a.ReceiveTime.Before(b.ReceiveTime):
		// Earlier arrival ranks better (descending -receive_time).
		return 1
	case a.ReceiveTime.After(b.ReceiveTime):
		return -1
	default:
		return 0
	}
}

// advertiseHeap is a max-heap of AdvertiseRecords ordered by
// compareAdvertise, implementing container/heap.Interface. container/heap
// always pops the element Less reports as smallest, so Less is inverted
// here to make the heap a max-heap.
type advertiseHeap []*AdvertiseRecord

func (h advertiseHeap) Len() int { return len(h) }
func (h advertiseHeap) Less(i, j int) bool {
	return compareAdvertise(h[i], h[j]) > 0
}
func (h advertiseHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *advertiseHeap) Push(x interface{}) {
	*h = append(*h, x.(*AdvertiseRecord))
}

func (h *advertiseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// advertiseCollection is the state a discovery round accumulates: a
// max-heap of AdvertiseRecords, plus the SOL_MAX_RT values observed across
// the Advertises processed since the last retransmission boundary
// (callers only ever push values ProcessOptions already range-checked).
type advertiseCollection struct {
	heap         advertiseHeap
	solMaxRTSeen []TimeValue
}

func newAdvertiseCollection() *advertiseCollection {
	return &advertiseCollection{}
}

// push adds rec to the collection.
func (c *advertiseCollection) push(rec *AdvertiseRecord) {
	heap.Push(&c.heap, rec)
}

// len reports how many AdvertiseRecords are currently collected.
func (c *advertiseCollection) len() int { return c.heap.Len() }

// popMax removes and returns the best collected AdvertiseRecord, or nil
// if none are collected.
func (c *advertiseCollection) popMax() *AdvertiseRecord {
	if c.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&c.heap).(*AdvertiseRecord)
}

// observeSolMaxRT records a validated SOL_MAX_RT value seen in an
// Advertise.
func (c *advertiseCollection) observeSolMaxRT(tv TimeValue) {
	c.solMaxRTSeen = append(c.solMaxRTSeen, tv)
}

// updateSolMaxRT applies RFC 8415 Section 18.2.9's SOL_MAX_RT update
// rule: the batch of values observed since the last
// retransmission boundary replaces previous iff the batch is non-empty
// and every value in it is equal; otherwise previous is kept. The
// collection's pending batch is cleared either way.
func (c *advertiseCollection) updateSolMaxRT(previous TimeValue) TimeValue {
	defer func() { c.solMaxRTSeen = nil }()
	if len(c.solMaxRTSeen) == 0 {
		return previous
	}
	first := c.solMaxRTSeen[0]
	for _, v := range c.solMaxRTSeen[1:] {
		if v != first {
			return previous
		}
	}
	return first
}
