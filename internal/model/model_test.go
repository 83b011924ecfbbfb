// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeviceCredentialsValid(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	creds := DeviceCredentials{ExpiresAt: now.Add(time.Hour)}
	require.True(t, creds.Valid(now))

	expired := DeviceCredentials{ExpiresAt: now.Add(-time.Hour)}
	require.False(t, expired.Valid(now))
}

func TestRemoteSessionSignalReadyIdempotent(t *testing.T) {
	s := NewRemoteSession("sess-1", "10.0.0.5", HostTypePS5)
	require.Equal(t, SessionInit, s.State)
	require.Equal(t, defaultMTU, s.MTUIn)

	select {
	case <-s.WaitReady():
		t.Fatal("should not be ready yet")
	default:
	}

	s.SignalReady()
	s.SignalReady() // must not panic on double-close

	select {
	case <-s.WaitReady():
	default:
		t.Fatal("expected ready signal")
	}
}

func TestFrameBefore(t *testing.T) {
	require.True(t, Before(5, 10))
	require.False(t, Before(10, 5))
	// wraparound: 0 is "after" 0xFFFFFFFF
	require.True(t, Before(^uint32(0), 0))
}

func TestFrameSourceCompleteAndFEC(t *testing.T) {
	f := NewFrame(1, 4, 2, time.Now())
	require.False(t, f.SourceComplete())
	require.Equal(t, 4, f.MissingSourceCount())

	require.True(t, f.PutUnit(0, []byte("aaaa")))
	require.True(t, f.PutUnit(1, []byte("bbbb")))
	require.True(t, f.PutUnit(2, []byte("cccc")))
	require.True(t, f.PutUnit(3, []byte("dddd")))
	require.True(t, f.SourceComplete())
	require.Equal(t, 0, f.MissingSourceCount())
	require.Equal(t, []byte("aaaabbbbccccdddd"), f.Concat())

	// duplicate put is rejected
	require.False(t, f.PutUnit(0, []byte("zzzz")))
	// out of range is rejected
	require.False(t, f.PutUnit(99, []byte("zzzz")))
}

func TestControllerStateIdleDefaults(t *testing.T) {
	s := CreateIdle()
	require.Equal(t, uint64(0), s.Buttons)
	require.Equal(t, Vector3{X: 0, Y: 0, Z: 1.0}, s.Accel)
	require.Equal(t, Quaternion{X: 0, Y: 0, Z: 0, W: 1.0}, s.Orient)
}

func TestControllerStateButtonRoundTrip(t *testing.T) {
	s := CreateIdle()
	require.False(t, s.ButtonPressed(ButtonCross))
	s = s.WithButton(ButtonCross, true)
	require.True(t, s.ButtonPressed(ButtonCross))
	s = s.WithButton(ButtonCross, false)
	require.False(t, s.ButtonPressed(ButtonCross))
}

func TestClampHelpers(t *testing.T) {
	require.Equal(t, int16(32767), ClampAxis(2.0))
	require.Equal(t, int16(-32767), ClampAxis(-2.0))
	require.Equal(t, uint8(255), ClampTrigger(2.0))
	require.Equal(t, uint8(0), ClampTrigger(-1.0))
}

func TestFeedbackEventBufferCapAndOrder(t *testing.T) {
	var buf FeedbackEventBuffer
	for i := 0; i < 7; i++ {
		buf.Push(FeedbackEvent{Button: ButtonCross, IsActive: i%2 == 0})
	}
	require.Equal(t, FeedbackEventCap, buf.Len())

	events := buf.Drain()
	require.Len(t, events, FeedbackEventCap)
	// newest-first: the last pushed event (i=6, IsActive=true) is at front.
	require.True(t, events[0].IsActive)
	require.Equal(t, 0, buf.Len())
}

func TestReorderWindowClassification(t *testing.T) {
	w := NewReorderWindow(4)
	w.NextToEmit = 10

	require.True(t, w.IsLate(9))
	require.False(t, w.IsLate(10))
	require.True(t, w.InWindow(10))
	require.True(t, w.InWindow(13))
	require.False(t, w.InWindow(14))
	require.True(t, w.IsBeyond(14))
}
