// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dhcpv6

import "time"

// TimerKind identifies which of the client's timers an action or
// timeout refers to.
type TimerKind uint8

const (
	TimerRetransmission TimerKind = iota
	TimerRefresh
	TimerRenew
)

func (k TimerKind) String() string {
	switch k {
	case TimerRetransmission:
		return "Retransmission"
	case TimerRefresh:
		return "Refresh"
	case TimerRenew:
		return "Renew"
	default:
		return "Unknown"
	}
}

// ActionKind discriminates the four action variants the Driver emits.
type ActionKind uint8

const (
	ActionSendMessage ActionKind = iota
	ActionScheduleTimer
	ActionCancelTimer
	ActionUpdateDNSServers
)

// Action is one directive the Driver hands back to the caller after a
// dispatch. The entirety of the boundary with the calling shell is this
// list: the Driver never performs I/O, starts a timer, or touches a
// clock itself.
//
// Ordering matters: actions for a single dispatch must be executed by
// the caller in list order. In particular, a CancelTimer for a kind
// followed by a ScheduleTimer of the same kind is intentional (replacing
// a timer), not a meaningless cancel-then-reschedule pair the caller may
// reorder or coalesce.
type Action struct {
	Kind TimerKind // meaningful for ScheduleTimer/CancelTimer
	kind ActionKind

	// Message is the opaque byte buffer to transmit, set iff
	// ActionKind() == ActionSendMessage.
	Message []byte

	// Duration is the timer length to (re)schedule, set iff
	// ActionKind() == ActionScheduleTimer.
	Duration time.Duration

	// DNSServers is the new DNS server set to publish, set iff
	// ActionKind() == ActionUpdateDNSServers.
	DNSServers []Address
}

// ActionKind reports which variant an Action is.
func (a Action) ActionKind() ActionKind { return a.kind }

func sendMessageAction(msg []byte) Action {
	return Action{kind: ActionSendMessage, Message: msg}
}

func scheduleTimerAction(kind TimerKind, d time.Duration) Action {
	return Action{kind: ActionScheduleTimer, Kind: kind, Duration: d}
}

func cancelTimerAction(kind TimerKind) Action {
	return Action{kind: ActionCancelTimer, Kind: kind}
}

func updateDNSServersAction(servers []Address) Action {
	return Action{kind: ActionUpdateDNSServers, DNSServers: servers}
}

// actionBuilder accumulates actions within a single dispatch. It is
// never exposed mid-transition; only the final, complete slice is
// returned from HandleTimeout/HandleMessage.
type actionBuilder struct {
	actions []Action
}

func (b *actionBuilder) sendMessage(msg []byte) {
	b.actions = append(b.actions, sendMessageAction(msg))
}

func (b *actionBuilder) scheduleTimer(kind TimerKind, d time.Duration) {
	b.actions = append(b.actions, scheduleTimerAction(kind, d))
}

// cancelAndSchedule appends CancelTimer(kind) followed by
// ScheduleTimer(kind, d); the pair is intentional and observable when
// replacing a pending timer of the same kind.
func (b *actionBuilder) cancelAndSchedule(kind TimerKind, d time.Duration) {
	b.actions = append(b.actions, cancelTimerAction(kind), scheduleTimerAction(kind, d))
}

func (b *actionBuilder) cancelTimer(kind TimerKind) {
	b.actions = append(b.actions, cancelTimerAction(kind))
}

func (b *actionBuilder) updateDNSServers(servers []Address) {
	if len(servers) == 0 {
		return
	}
	b.actions = append(b.actions, updateDNSServersAction(servers))
}

func (b *actionBuilder) build() []Action {
	if b.actions == nil {
		return []Action{}
	}
	return b.actions
}
