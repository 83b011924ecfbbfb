// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/metrics"
	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/takion"
)

const (
	minStateInterval = 8 * time.Millisecond
	maxStateInterval = 16 * time.Millisecond
	defaultTapDelay  = 100 * time.Millisecond
)

// Transport is the subset of *takion.Conn the sender needs. Accepting the
// interface rather than the concrete type lets callers outside this
// package (the controller, tests) supply a fake without a real UDP socket.
type Transport interface {
	Send(msgType takion.MessageType, plaintext []byte) error
}

// Sender owns one session's controller state, emits FEEDBACK_EVENT messages
// immediately on button mutation, and runs a throttled FEEDBACK_STATE loop
// (spec.md §4.10).
type Sender struct {
	sessionID string
	transport Transport

	mu     sync.Mutex
	state  model.ControllerState
	events model.FeedbackEventBuffer
	seq    uint16
	dirty  bool

	logger zerolog.Logger
}

// New constructs a Sender bound to transport, starting from the idle
// controller state.
func New(sessionID string, transport Transport) *Sender {
	return &Sender{
		sessionID: sessionID,
		transport: transport,
		state:     model.CreateIdle(),
		logger:    log.WithComponent("feedback"),
	}
}

// Press sets a button's bit, queues an event, and sends it immediately.
func (s *Sender) Press(b model.Button) { s.setButton(b, true) }

// Release clears a button's bit, queues an event, and sends it immediately.
func (s *Sender) Release(b model.Button) { s.setButton(b, false) }

// Tap presses, waits delay (defaultTapDelay if zero), then releases.
// It blocks for the duration of delay; callers invoke it from a goroutine
// that is not the receive loop.
func (s *Sender) Tap(ctx context.Context, b model.Button, delay time.Duration) {
	if delay <= 0 {
		delay = defaultTapDelay
	}
	s.Press(b)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
	s.Release(b)
}

func (s *Sender) setButton(b model.Button, pressed bool) {
	s.mu.Lock()
	s.state = s.state.WithButton(b, pressed)
	action := model.ActionRelease
	if pressed {
		action = model.ActionPress
	}
	s.events.Push(model.FeedbackEvent{Button: b, IsActive: pressed})
	s.seq++
	payload := encodeEvents(s.seq, s.events.Drain())
	s.mu.Unlock()

	if err := s.transport.Send(takion.MsgFeedbackEvent, payload); err != nil {
		s.logger.Warn().Err(err).Str("session", s.sessionID).Str("action", string(action)).Msg("feedback event send failed")
		return
	}
	metrics.RecordFeedbackMessage(s.sessionID, "event")
}

// SetStick sets one axis (AxisX or AxisY) of a thumbstick to value, clamped
// to [-1, 1], and marks the sender dirty so the next state tick sends it.
func (s *Sender) SetStick(side model.StickSide, axis model.StickAxis, value float64) {
	v := model.ClampAxis(value)
	s.mu.Lock()
	switch {
	case side == model.StickLeft && axis == model.AxisX:
		s.state.LeftX = v
	case side == model.StickLeft && axis == model.AxisY:
		s.state.LeftY = v
	case side == model.StickRight && axis == model.AxisX:
		s.state.RightX = v
	case side == model.StickRight && axis == model.AxisY:
		s.state.RightY = v
	}
	s.dirty = true
	s.mu.Unlock()
}

// SetStickPoint sets both axes of a thumbstick in one call.
func (s *Sender) SetStickPoint(side model.StickSide, x, y float64) {
	s.SetStick(side, model.AxisX, x)
	s.SetStick(side, model.AxisY, y)
}

// SetTriggers updates L2/R2 pressure. A nil pointer leaves that trigger
// unchanged.
func (s *Sender) SetTriggers(l2, r2 *float64) {
	s.mu.Lock()
	if l2 != nil {
		s.state.L2 = model.ClampTrigger(*l2)
		s.dirty = true
	}
	if r2 != nil {
		s.state.R2 = model.ClampTrigger(*r2)
		s.dirty = true
	}
	s.mu.Unlock()
}

// ApplyState replaces the entire controller state in one call, for external
// input sources that already assemble a full snapshot (spec.md §4.11
// "update_controller_state"). Button transitions relative to the previous
// state are still queued as individual events, so console-side edge
// detection keeps working.
func (s *Sender) ApplyState(next model.ControllerState) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	for _, b := range model.AllButtons {
		was := prev.ButtonPressed(b)
		is := next.ButtonPressed(b)
		if was != is {
			s.events.Push(model.FeedbackEvent{Button: b, IsActive: is})
		}
	}
	s.dirty = true
	hasEvents := s.events.Len() > 0
	var payload []byte
	if hasEvents {
		s.seq++
		payload = encodeEvents(s.seq, s.events.Drain())
	}
	s.mu.Unlock()

	if !hasEvents {
		return
	}
	if err := s.transport.Send(takion.MsgFeedbackEvent, payload); err != nil {
		s.logger.Warn().Err(err).Str("session", s.sessionID).Msg("feedback event send failed")
		return
	}
	metrics.RecordFeedbackMessage(s.sessionID, "event")
}

// SetMotion updates the gyro/accelerometer/orientation sensor fields and
// marks the sender dirty.
func (s *Sender) SetMotion(gyro, accel model.Vector3, orient model.Quaternion) {
	s.mu.Lock()
	s.state.Gyro = gyro
	s.state.Accel = accel
	s.state.Orient = orient
	s.dirty = true
	s.mu.Unlock()
}

// Run drives the throttled FEEDBACK_STATE loop until ctx is canceled: it
// sends at most once per minStateInterval, at least once per
// maxStateInterval, and only when dirty or the ceiling fires.
func (s *Sender) Run(ctx context.Context) {
	ticker := time.NewTicker(minStateInterval)
	defer ticker.Stop()

	var lastSent time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			elapsed := now.Sub(lastSent)
			shouldSend := (s.dirty && elapsed >= minStateInterval) || elapsed >= maxStateInterval
			if !shouldSend {
				s.mu.Unlock()
				continue
			}
			payload := encodeState(s.state)
			s.dirty = false
			s.mu.Unlock()

			if err := s.transport.Send(takion.MsgFeedbackState, payload); err != nil {
				s.logger.Warn().Err(err).Str("session", s.sessionID).Msg("feedback state send failed")
				continue
			}
			metrics.RecordFeedbackMessage(s.sessionID, "state")
			lastSent = now
		}
	}
}

// State returns a copy of the current controller state, mainly for tests
// and diagnostics.
func (s *Sender) State() model.ControllerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
