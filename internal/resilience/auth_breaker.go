// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience detects sustained Takion GMAC authentication failure
// on a stream's receive path and escalates to emergency recovery before a
// console gives up on the session entirely (spec.md §4.11).
package resilience

import (
	"sync"
	"time"

	"github.com/o1298098/remote-play-sub005/internal/metrics"
)

// BreakerState is the lifecycle of an AuthFailureBreaker.
type BreakerState int

const (
	// BreakerClosed lets the receive loop run undisturbed.
	BreakerClosed BreakerState = iota
	// BreakerOpen means GMAC failures exceeded the threshold inside the
	// window; the caller should trigger emergency stream recovery.
	BreakerOpen
	// BreakerHalfOpen is the cooldown probe state following BreakerOpen:
	// a run of clean auth successes closes the breaker again.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	eventAttempt eventKind = iota
	eventSuccess
	eventAuthFailure
)

type authEvent struct {
	ts   time.Time
	kind eventKind
}

// clock abstracts time.Now for deterministic tests.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// AuthFailureBreaker watches one Takion stream's receive path for GMAC
// auth failure bursts. RecordAttempt/RecordSuccess/RecordTechnicalFailure
// are called from receiveLoop for every processed datagram; once
// failureThreshold failures land inside window (with at least
// minAttempts total datagrams observed), GetState reports BreakerOpen and
// the caller escalates to emergency recovery. After resetTimeout the
// breaker moves to BreakerHalfOpen; a run of successCloseCount clean
// receives then closes it again, and any failure reopens it.
type AuthFailureBreaker struct {
	mu sync.Mutex

	label string
	state BreakerState

	openedAt time.Time
	events   []authEvent

	window            time.Duration
	failureThreshold  int
	minAttempts       int
	resetTimeout      time.Duration
	successCloseCount int

	halfOpenSuccesses int

	clock clock
}

// Option configures an AuthFailureBreaker at construction.
type Option func(*AuthFailureBreaker)

// WithClock overrides the breaker's time source, for deterministic tests.
func WithClock(c clock) Option {
	return func(b *AuthFailureBreaker) { b.clock = c }
}

// WithSuccessCloseCount overrides how many consecutive half-open
// successes are required to fully close the breaker. Default is 3.
func WithSuccessCloseCount(n int) Option {
	return func(b *AuthFailureBreaker) { b.successCloseCount = n }
}

// NewAuthFailureBreaker builds a breaker labeled for one session's Takion
// transport (label is typically "takion-auth-"+sessionID, used only for
// the exported metric series). failureThreshold auth failures inside
// window, with at least minAttempts datagrams observed in that window,
// trips the breaker open; resetTimeout later it probes half-open.
func NewAuthFailureBreaker(label string, failureThreshold, minAttempts int, window, resetTimeout time.Duration, opts ...Option) *AuthFailureBreaker {
	b := &AuthFailureBreaker{
		label:             label,
		state:             BreakerClosed,
		window:            window,
		failureThreshold:  failureThreshold,
		minAttempts:       minAttempts,
		resetTimeout:      resetTimeout,
		successCloseCount: 3,
		clock:             realClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.SetCircuitBreakerState(b.label, b.state.String())
	metrics.SetCircuitBreakerStatus(b.label, 0)
	return b
}

// RecordAttempt counts one datagram reaching the receive path, regardless
// of whether it authenticated.
func (b *AuthFailureBreaker) RecordAttempt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(eventAttempt)
}

// RecordSuccess counts one datagram that authenticated cleanly. In
// BreakerHalfOpen, a run of successCloseCount consecutive successes
// closes the breaker.
func (b *AuthFailureBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(eventSuccess)
	if b.state != BreakerHalfOpen {
		return
	}
	b.halfOpenSuccesses++
	if b.halfOpenSuccesses >= b.successCloseCount {
		b.transitionInto(BreakerClosed)
	}
}

// RecordTechnicalFailure counts one GMAC auth failure (a forged or
// corrupted datagram rejected by Conn.Receive). Any failure observed
// while half-open immediately reopens the breaker.
func (b *AuthFailureBreaker) RecordTechnicalFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(eventAuthFailure)
	if b.state == BreakerHalfOpen {
		b.transitionInto(BreakerOpen)
		return
	}
	b.evaluate()
}

// GetState reports the breaker's current lifecycle state, transitioning
// BreakerOpen to BreakerHalfOpen once resetTimeout has elapsed.
func (b *AuthFailureBreaker) GetState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.clock.Now().Sub(b.openedAt) >= b.resetTimeout {
		b.transitionInto(BreakerHalfOpen)
	}
	return b.state
}

func (b *AuthFailureBreaker) record(kind eventKind) {
	now := b.clock.Now()
	b.events = append(b.events, authEvent{ts: now, kind: kind})
	b.prune(now)
}

func (b *AuthFailureBreaker) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.events) && b.events[i].ts.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}

func (b *AuthFailureBreaker) evaluate() {
	if b.state != BreakerClosed {
		return
	}
	var attempts, failures int
	for _, e := range b.events {
		switch e.kind {
		case eventAttempt:
			attempts++
		case eventAuthFailure:
			failures++
		}
	}
	if attempts >= b.minAttempts && failures >= b.failureThreshold {
		b.transitionInto(BreakerOpen)
	}
}

func (b *AuthFailureBreaker) transitionInto(next BreakerState) {
	if b.state == next {
		return
	}
	b.state = next
	switch next {
	case BreakerOpen:
		b.openedAt = b.clock.Now()
		metrics.RecordCircuitBreakerTrip(b.label, "auth_failure_burst")
		metrics.SetCircuitBreakerStatus(b.label, 1)
	case BreakerHalfOpen:
		b.halfOpenSuccesses = 0
		metrics.SetCircuitBreakerStatus(b.label, 2)
	case BreakerClosed:
		b.events = nil
		b.halfOpenSuccesses = 0
		metrics.SetCircuitBreakerStatus(b.label, 0)
	}
	metrics.SetCircuitBreakerState(b.label, b.state.String())
}
