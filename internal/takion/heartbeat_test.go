// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package takion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeatMonitorFreshIsNotStale(t *testing.T) {
	h := NewHeartbeatMonitor()
	require.False(t, h.Stale(time.Now()))
}

func TestHeartbeatMonitorStaleAfterThreshold(t *testing.T) {
	h := NewHeartbeatMonitor()
	base := h.LastSeen()

	justUnder := base.Add(HeartbeatStaleFactor*HeartbeatInterval - time.Millisecond)
	require.False(t, h.Stale(justUnder))

	atThreshold := base.Add(HeartbeatStaleFactor * HeartbeatInterval)
	require.True(t, h.Stale(atThreshold))
}

func TestHeartbeatMonitorTouchResetsStaleness(t *testing.T) {
	h := NewHeartbeatMonitor()
	base := h.LastSeen()

	h.Touch()
	afterTouch := h.LastSeen()
	require.True(t, afterTouch.After(base) || afterTouch.Equal(base))

	require.False(t, h.Stale(afterTouch.Add(time.Millisecond)))
}
