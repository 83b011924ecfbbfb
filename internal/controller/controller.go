// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package controller implements the outward controller interface
// (spec.md §6.3): connect/disconnect, button actions, stick and trigger
// updates, and rumble subscription, rate-limited per session.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/o1298098/remote-play-sub005/internal/feedback"
	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/model"
)

// ErrUnknownSession is returned by every method when session_id has no
// connected controller source.
var ErrUnknownSession = errors.New("controller: unknown session")

// ErrRateLimited is returned when a session's command rate limit is
// exceeded.
var ErrRateLimited = errors.New("controller: command rate limit exceeded")

const (
	commandRate  rate.Limit = 120 // commands/sec, generous headroom over 16ms state cadence
	commandBurst            = 30
)

// RumbleCallback receives one haptic event.
type RumbleCallback func(model.RumbleEvent)

type source struct {
	sender  *feedback.Sender
	limiter *rate.Limiter

	mu        sync.Mutex
	listeners []RumbleCallback
}

// Controller is the process-wide outward controller surface. One Controller
// serves every connected session.
type Controller struct {
	mu      sync.RWMutex
	sources map[string]*source

	logger zerolog.Logger
}

// New constructs an empty Controller.
func New() *Controller {
	return &Controller{
		sources: make(map[string]*source),
		logger:  log.WithComponent("controller"),
	}
}

// Connect binds a controller source for sessionID. Reconnecting an already
// connected session replaces its sender.
func (c *Controller) Connect(sessionID string, sender *feedback.Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[sessionID] = &source{
		sender:  sender,
		limiter: rate.NewLimiter(commandRate, commandBurst),
	}
}

// Disconnect releases sessionID's controller source.
func (c *Controller) Disconnect(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, sessionID)
}

func (c *Controller) get(sessionID string) (*source, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.sources[sessionID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return src, nil
}

func (c *Controller) admit(src *source) error {
	if !src.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

// Button issues a press or release for name on sessionID. action must be
// model.ActionPress or model.ActionRelease; any other action returns an
// error, and taps go through Tap. Button does not use delay.
func (c *Controller) Button(ctx context.Context, sessionID string, name model.Button, action model.FeedbackAction, delay time.Duration) error {
	src, err := c.get(sessionID)
	if err != nil {
		return err
	}
	if err := c.admit(src); err != nil {
		return err
	}
	switch action {
	case model.ActionPress:
		src.sender.Press(name)
	case model.ActionRelease:
		src.sender.Release(name)
	default:
		// "tap" is not a model.FeedbackAction (press/release only describe a
		// single event); callers request it via Tap directly.
		return errors.New("controller: unsupported action, use Tap for tap")
	}
	return nil
}

// Tap presses name, waits delay (100ms default), then releases it.
func (c *Controller) Tap(ctx context.Context, sessionID string, name model.Button, delay time.Duration) error {
	src, err := c.get(sessionID)
	if err != nil {
		return err
	}
	if err := c.admit(src); err != nil {
		return err
	}
	src.sender.Tap(ctx, name, delay)
	return nil
}

// SetLeftStick sets both axes of the left thumbstick, clamped to [-1, 1].
func (c *Controller) SetLeftStick(sessionID string, x, y float64) error {
	return c.setStick(sessionID, model.StickLeft, x, y)
}

// SetRightStick sets both axes of the right thumbstick, clamped to [-1, 1].
func (c *Controller) SetRightStick(sessionID string, x, y float64) error {
	return c.setStick(sessionID, model.StickRight, x, y)
}

// SetSticks sets both thumbsticks in one call.
func (c *Controller) SetSticks(sessionID string, lx, ly, rx, ry float64) error {
	if err := c.setStick(sessionID, model.StickLeft, lx, ly); err != nil {
		return err
	}
	return c.setStick(sessionID, model.StickRight, rx, ry)
}

func (c *Controller) setStick(sessionID string, side model.StickSide, x, y float64) error {
	src, err := c.get(sessionID)
	if err != nil {
		return err
	}
	if err := c.admit(src); err != nil {
		return err
	}
	src.sender.SetStickPoint(side, x, y)
	return nil
}

// SetTriggers updates L2/R2 pressure, each clamped to [0, 1]. A nil pointer
// leaves that trigger unchanged.
func (c *Controller) SetTriggers(sessionID string, l2, r2 *float64) error {
	src, err := c.get(sessionID)
	if err != nil {
		return err
	}
	if err := c.admit(src); err != nil {
		return err
	}
	src.sender.SetTriggers(l2, r2)
	return nil
}

// OnRumble subscribes cb to haptic events delivered for sessionID. It does
// not rate-limit, since rumble delivery is inbound, not a command a client
// can flood.
func (c *Controller) OnRumble(sessionID string, cb RumbleCallback) error {
	src, err := c.get(sessionID)
	if err != nil {
		return err
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	src.listeners = append(src.listeners, cb)
	return nil
}

// DispatchRumble fans out one haptic event to every subscriber of
// sessionID. Called by the stream orchestrator when it decodes a rumble
// message off the Takion connection; a no-op for an unknown or
// unsubscribed session.
func (c *Controller) DispatchRumble(sessionID string, ev model.RumbleEvent) {
	src, err := c.get(sessionID)
	if err != nil {
		return
	}
	src.mu.Lock()
	listeners := append([]RumbleCallback(nil), src.listeners...)
	src.mu.Unlock()

	for _, cb := range listeners {
		cb(ev)
	}
}
