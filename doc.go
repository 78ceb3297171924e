// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package dhcpv6 implements the client-side state machine for DHCPv6
// (RFC 8415): stateless information acquisition and stateful address
// assignment for one or more IA_NAs, against one or more servers on a
// link.
//
// The package is a pure, event-driven core. It owns no socket, no timer
// and no clock: callers deliver timeouts and inbound messages through
// Driver.HandleTimeout and Driver.HandleMessage, and the Driver replies
// with a list of Actions (send this, (re)schedule that timer, publish
// these DNS servers) for the caller to execute. See Driver for the full
// contract.
package dhcpv6
