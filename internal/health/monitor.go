// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package health accumulates per-frame outcomes into a rolling window and
// drives the emergency-recovery state machine that watches for a stalled
// stream (spec.md §4.9).
package health

import (
	"sync"
	"time"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// DefaultWindow is the rolling aggregation window for Snapshot.
const DefaultWindow = 10 * time.Second

type frameEvent struct {
	at      time.Time
	outcome model.FrameOutcome
}

// Monitor aggregates frame outcomes, FEC attempts, and IDR requests over a
// rolling window, exposing a HealthSnapshot on demand.
type Monitor struct {
	mu     sync.Mutex
	window time.Duration

	events []frameEvent

	idrRequests int
	fecAttempts int
	fecSuccess  int
	fecFailure  int

	bitrateMbps    float64
	pendingPackets int
	rttMicros      float64

	lastOutcome model.FrameOutcome
}

// NewMonitor constructs a Monitor with the given rolling window (0 uses
// DefaultWindow).
func NewMonitor(window time.Duration) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{window: window}
}

// RecordFrame appends one frame outcome to the window.
func (m *Monitor) RecordFrame(now time.Time, outcome model.FrameOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, frameEvent{at: now, outcome: outcome})
	m.lastOutcome = outcome
	m.prune(now)
}

// RecordFEC records one Reed-Solomon recovery attempt's result.
func (m *Monitor) RecordFEC(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fecAttempts++
	if success {
		m.fecSuccess++
	} else {
		m.fecFailure++
	}
}

// RecordIDRRequest counts one keyframe request sent to the console.
func (m *Monitor) RecordIDRRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idrRequests++
}

// SetBitrateMbps records the externally-measured receive bitrate.
func (m *Monitor) SetBitrateMbps(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bitrateMbps = v
}

// SetPendingPackets records the reassembler's current buffered-frame count.
func (m *Monitor) SetPendingPackets(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingPackets = n
}

// SetRTTMicros records the most recently measured round-trip time.
func (m *Monitor) SetRTTMicros(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rttMicros = v
}

// prune drops events older than the rolling window. Caller holds m.mu.
func (m *Monitor) prune(now time.Time) {
	cutoff := now.Add(-m.window)
	i := 0
	for i < len(m.events) && m.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.events = m.events[i:]
	}
}

// Snapshot returns the current rolling-window aggregate.
func (m *Monitor) Snapshot(now time.Time) model.HealthSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune(now)

	var s model.HealthSnapshot
	for _, e := range m.events {
		switch e.outcome {
		case model.FrameSucceeded:
			s.FramesSucceeded++
		case model.FrameRecovered:
			s.FramesRecovered++
		case model.FrameFrozen:
			s.FramesFrozen++
		case model.FrameDropped:
			s.FramesDropped++
		}
	}

	delivered := s.FramesSucceeded + s.FramesRecovered
	windowSeconds := m.window.Seconds()
	if windowSeconds > 0 {
		s.FPS = float64(delivered) / windowSeconds
	}
	if delivered > 0 {
		s.AvgIntervalMS = m.window.Seconds() * 1000 / float64(delivered)
	}

	s.BitrateMbps = m.bitrateMbps
	s.PendingPackets = m.pendingPackets
	s.IDRRequests = m.idrRequests
	s.FECAttempts = m.fecAttempts
	s.FECSuccess = m.fecSuccess
	s.FECFailure = m.fecFailure
	if m.lastOutcome != "" {
		s.LastStatus = string(m.lastOutcome)
	} else {
		s.LastStatus = "unknown"
	}
	return s
}
