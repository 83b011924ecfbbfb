// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package controller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/feedback"
	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/takion"
)

type fakeTransport struct{}

func (fakeTransport) Send(takion.MessageType, []byte) error { return nil }

func newTestSender(t *testing.T) (*feedback.Sender, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	return feedback.New("sess", ft), ft
}

func TestConnectThenButtonSucceeds(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-1", sender)

	err := c.Button(context.Background(), "sess-1", model.ButtonCross, model.ActionPress, 0)
	require.NoError(t, err)
	require.True(t, sender.State().ButtonPressed(model.ButtonCross))
}

func TestButtonOnUnknownSessionFails(t *testing.T) {
	c := New()
	err := c.Button(context.Background(), "missing", model.ButtonCross, model.ActionPress, 0)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestDisconnectReleasesSource(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-2", sender)
	c.Disconnect("sess-2")

	err := c.Button(context.Background(), "sess-2", model.ButtonCross, model.ActionPress, 0)
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestTapBlocksForDelay(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-3", sender)

	start := time.Now()
	err := c.Tap(context.Background(), "sess-3", model.ButtonSquare, 15*time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	require.False(t, sender.State().ButtonPressed(model.ButtonSquare))
}

func TestSetSticksClampsBothPairs(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-4", sender)

	require.NoError(t, c.SetSticks("sess-4", -2, 2, 0.5, -0.5))

	got := sender.State()
	require.Equal(t, model.ClampAxis(-1), got.LeftX)
	require.Equal(t, model.ClampAxis(1), got.LeftY)
	require.Equal(t, model.ClampAxis(0.5), got.RightX)
	require.Equal(t, model.ClampAxis(-0.5), got.RightY)
}

func TestSetTriggersClamps(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-5", sender)

	l2 := 2.0
	require.NoError(t, c.SetTriggers("sess-5", &l2, nil))
	require.Equal(t, uint8(255), sender.State().L2)
}

func TestRateLimitRejectsBurstAboveCapacity(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-6", sender)

	var lastErr error
	for i := 0; i < commandBurst+10; i++ {
		lastErr = c.Button(context.Background(), "sess-6", model.ButtonCross, model.ActionPress, 0)
		if lastErr != nil {
			break
		}
	}
	require.ErrorIs(t, lastErr, ErrRateLimited)
}

func TestOnRumbleDispatchesToSubscribers(t *testing.T) {
	sender, _ := newTestSender(t)
	c := New()
	c.Connect("sess-7", sender)

	received := make(chan model.RumbleEvent, 1)
	require.NoError(t, c.OnRumble("sess-7", func(ev model.RumbleEvent) { received <- ev }))

	c.DispatchRumble("sess-7", model.RumbleEvent{RawLeft: 200, RawRight: 100})

	select {
	case ev := <-received:
		require.Equal(t, uint8(200), ev.RawLeft)
	case <-time.After(time.Second):
		t.Fatal("rumble callback was not invoked")
	}
}

func TestDispatchRumbleToUnknownSessionIsNoop(t *testing.T) {
	c := New()
	require.NotPanics(t, func() {
		c.DispatchRumble("missing", model.RumbleEvent{})
	})
}
