// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package takion

import (
	"sync/atomic"
	"time"
)

// HeartbeatInterval is the maximum gap between heartbeats in either
// direction (spec.md §4.4).
const HeartbeatInterval = 32 * time.Millisecond

// HeartbeatStaleFactor: absence for this many intervals triggers emergency
// recovery (spec.md §4.4).
const HeartbeatStaleFactor = 3

// HeartbeatMonitor tracks the last time a heartbeat (or any message, which
// counts as liveness) was received from the peer.
type HeartbeatMonitor struct {
	lastSeenUnixNano atomic.Int64
}

// NewHeartbeatMonitor starts the monitor as if a heartbeat had just arrived,
// so a freshly established session isn't immediately stale.
func NewHeartbeatMonitor() *HeartbeatMonitor {
	h := &HeartbeatMonitor{}
	h.Touch()
	return h
}

// Touch records that a message was just received from the peer.
func (h *HeartbeatMonitor) Touch() {
	h.lastSeenUnixNano.Store(time.Now().UnixNano())
}

// Stale reports whether the peer has been silent for at least
// HeartbeatStaleFactor intervals, the emergency-recovery trigger condition.
func (h *HeartbeatMonitor) Stale(now time.Time) bool {
	last := time.Unix(0, h.lastSeenUnixNano.Load())
	return now.Sub(last) >= HeartbeatStaleFactor*HeartbeatInterval
}

// LastSeen returns the last recorded liveness timestamp.
func (h *HeartbeatMonitor) LastSeen() time.Time {
	return time.Unix(0, h.lastSeenUnixNano.Load())
}
