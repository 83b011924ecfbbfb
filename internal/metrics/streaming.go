// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus instrumentation for the Remote Play
// streaming core: per-session frame outcomes, FEC results, crypto auth
// failures, and emergency-recovery state transitions. It mirrors the
// HealthSnapshot fields defined in internal/model so operators can graph the
// same rolling-window counters the core computes internally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remoteplay_frames_total",
		Help: "Access units observed by the reassembler, by outcome.",
	}, []string{"session", "outcome"}) // outcome: succeeded|recovered|frozen|dropped|dropped_late

	fecAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remoteplay_fec_attempts_total",
		Help: "Reed-Solomon recovery attempts, by result.",
	}, []string{"session", "result"}) // result: success|failure

	idrRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remoteplay_idr_requests_total",
		Help: "Keyframe (IDR) requests sent to the console.",
	}, []string{"session"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remoteplay_takion_auth_failures_total",
		Help: "Takion datagrams dropped for GMAC verification failure.",
	}, []string{"session"})

	pendingPackets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "remoteplay_reassembler_pending_packets",
		Help: "Frames currently buffered in the reorder windows awaiting completion.",
	}, []string{"session"})

	bitrateMbps = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "remoteplay_stream_bitrate_mbps",
		Help: "Measured receive bitrate over the rolling health window.",
	}, []string{"session"})

	fpsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "remoteplay_stream_fps",
		Help: "Measured frames-per-second over the rolling health window.",
	}, []string{"session"})

	rttMicros = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "remoteplay_session_rtt_microseconds",
		Help: "Measured round-trip time to the console.",
	}, []string{"session"})

	recoveryState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "remoteplay_recovery_state",
		Help: "Emergency recovery state machine state (0=idle,1=triggered,2=recovering,3=silent_period,4=circuit_breaker).",
	}, []string{"session"})

	feedbackMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remoteplay_feedback_messages_total",
		Help: "Feedback messages sent to the console, by type.",
	}, []string{"session", "type"}) // type: state|event

	receiverDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remoteplay_receiver_drops_total",
		Help: "Access units dropped because a receiver's delivery queue was full.",
	}, []string{"session", "kind"}) // kind: video|audio
)

// RecordFrameOutcome increments the frame-outcome counter for a session.
func RecordFrameOutcome(sessionID, outcome string) {
	framesTotal.WithLabelValues(sessionID, outcome).Inc()
}

// RecordFECAttempt increments the FEC-attempt counter for a session.
func RecordFECAttempt(sessionID string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	fecAttemptsTotal.WithLabelValues(sessionID, result).Inc()
}

// RecordIDRRequest increments the IDR-request counter for a session.
func RecordIDRRequest(sessionID string) {
	idrRequestsTotal.WithLabelValues(sessionID).Inc()
}

// RecordAuthFailure increments the Takion GMAC-auth-failure counter for a session.
func RecordAuthFailure(sessionID string) {
	authFailuresTotal.WithLabelValues(sessionID).Inc()
}

// SetPendingPackets records the reorder window's current occupancy.
func SetPendingPackets(sessionID string, n int) {
	pendingPackets.WithLabelValues(sessionID).Set(float64(n))
}

// SetBitrateMbps records the rolling-window measured bitrate.
func SetBitrateMbps(sessionID string, mbps float64) {
	bitrateMbps.WithLabelValues(sessionID).Set(mbps)
}

// SetFPS records the rolling-window measured frame rate.
func SetFPS(sessionID string, fps float64) {
	fpsGauge.WithLabelValues(sessionID).Set(fps)
}

// SetRTTMicros records the measured round trip time in microseconds.
func SetRTTMicros(sessionID string, us float64) {
	rttMicros.WithLabelValues(sessionID).Set(us)
}

// SetRecoveryState records the emergency recovery state machine's current state.
func SetRecoveryState(sessionID string, state int) {
	recoveryState.WithLabelValues(sessionID).Set(float64(state))
}

// RecordFeedbackMessage increments the feedback message counter for a session.
func RecordFeedbackMessage(sessionID, kind string) {
	feedbackMessagesTotal.WithLabelValues(sessionID, kind).Inc()
}

// RecordReceiverDrop increments the receiver-backpressure drop counter.
func RecordReceiverDrop(sessionID, kind string) {
	receiverDropsTotal.WithLabelValues(sessionID, kind).Inc()
}
