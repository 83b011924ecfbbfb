// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/o1298098/remote-play-sub005/internal/metrics"
	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/reassembler"
	"github.com/o1298098/remote-play-sub005/internal/resilience"
	"github.com/o1298098/remote-play-sub005/internal/takion"
)

// receiveLoop is the receive task (spec.md §5.1): it blocks on UDP recv
// with a short deadline so it can observe ctx cancellation within
// receiveReadTimeout, parses the Takion header, and dispatches to the
// reassemblers or the control handler.
func (s *RPStream) receiveLoop(ctx context.Context) error {
	buf := make([]byte, receiveDatagramMaxSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(receiveReadTimeout))
		msg, err := s.conn.Receive(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			// GMAC mismatch or malformed datagram: drop and keep reading,
			// but count it toward the repeated-auth-failure breaker.
			s.authBreaker.RecordAttempt()
			s.authBreaker.RecordTechnicalFailure()
			if s.authBreaker.GetState() == resilience.BreakerOpen {
				s.triggerRecoveryAsync()
			}
			continue
		}

		s.authBreaker.RecordAttempt()
		s.authBreaker.RecordSuccess()
		s.handleMessage(msg)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *RPStream) handleMessage(msg *takion.Message) {
	s.heartbeat.Touch()

	switch msg.Type {
	case takion.MsgVideo:
		s.putUnit(true, msg.Payload)
	case takion.MsgAudio:
		s.putUnit(false, msg.Payload)
	case takion.MsgClientInfo:
		ev, err := decodeRumble(msg.Payload)
		if err != nil {
			s.logger.Debug().Err(err).Str("session", s.session.ID).Msg("malformed client_info payload")
			return
		}
		if s.onRumble != nil {
			s.onRumble(ev)
		}
	case takion.MsgInit:
		if takion.IsBye(msg.Payload) {
			s.logger.Info().Str("session", s.session.ID).Msg("peer sent bye")
			go s.Stop()
		}
	case takion.MsgHeartbeat, takion.MsgCongestion, takion.MsgBig, takion.MsgBang,
		takion.MsgFeedbackState, takion.MsgFeedbackEvent:
		// Liveness-only or send-direction-only types; Touch above already
		// recorded the liveness signal.
	}
}

func (s *RPStream) putUnit(isVideo bool, payload []byte) {
	frameCodec := s.audioFrameCodec
	reasm := s.audio
	if isVideo {
		frameCodec = s.videoFrameCodec
		reasm = s.video
	}

	u, err := parseUnit(frameCodec, payload, time.Now())
	if err != nil {
		s.logger.Debug().Err(err).Str("session", s.session.ID).Bool("video", isVideo).Msg("malformed unit payload")
		return
	}
	s.handleEmissions(time.Now(), isVideo, reasm.PutUnit(u))
}

// handleEmissions records every emitted frame into the health monitor and
// fans successfully decoded access units out to receivers. Frozen/Dropped
// outcomes are recorded for health purposes but never delivered: the
// receiver never sees a frame it cannot decode.
func (s *RPStream) handleEmissions(now time.Time, isVideo bool, emissions []reassembler.Emission) {
	for _, e := range emissions {
		s.healthMon.RecordFrame(now, e.Outcome)
		if e.Outcome != model.FrameSucceeded && e.Outcome != model.FrameRecovered {
			continue
		}
		if isVideo {
			if e.IsKeyframe {
				s.observeVideoHeader(e.Payload)
			}
			s.broadcast(receiverJob{kind: jobVideo, a: e.Payload}, "video")
		} else {
			s.observeAudioHeader(e.Payload)
			s.broadcast(receiverJob{kind: jobAudio, a: e.Payload}, "audio")
		}
	}
}

// observeVideoHeader and observeAudioHeader latch the first keyframe/first
// audio packet as stream_info extradata (spec.md §6.2). Whichever arrives
// first fires OnStreamInfo immediately, carrying whatever header the other
// stream has (possibly none yet); it only ever fires once.
func (s *RPStream) observeVideoHeader(payload []byte) {
	s.mu.Lock()
	if s.videoHeader != nil {
		s.mu.Unlock()
		return
	}
	s.videoHeader = payload
	fire := !s.streamInfoSent
	s.streamInfoSent = s.streamInfoSent || fire
	vh, ah := s.videoHeader, s.audioHeader
	s.mu.Unlock()
	if fire {
		s.broadcast(receiverJob{kind: jobStreamInfo, a: vh, b: ah}, "stream_info")
	}
}

func (s *RPStream) observeAudioHeader(payload []byte) {
	s.mu.Lock()
	if s.audioHeader != nil {
		s.mu.Unlock()
		return
	}
	s.audioHeader = payload
	fire := !s.streamInfoSent
	s.streamInfoSent = s.streamInfoSent || fire
	vh, ah := s.videoHeader, s.audioHeader
	s.mu.Unlock()
	if fire {
		s.broadcast(receiverJob{kind: jobStreamInfo, a: vh, b: ah}, "stream_info")
	}
}

func (s *RPStream) broadcast(job receiverJob, dropKind string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, slot := range s.receivers {
		slot.enqueue(job, dropKind)
	}
}

// heartbeatLoop is the heartbeat task (spec.md §5.2): emits a HEARTBEAT
// message every HeartbeatInterval until ctx is canceled.
func (s *RPStream) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(takion.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.Send(takion.MsgHeartbeat, nil); err != nil {
				s.logger.Warn().Err(err).Str("session", s.session.ID).Msg("heartbeat send failed")
			}
		}
	}
}

// healthLoop is the health check task (spec.md §5.4): every second it
// forces both reassemblers to resolve stale head frames, refreshes the
// rolling-window health snapshot, and checks heartbeat staleness as a
// second, independent emergency-recovery trigger (spec.md §4.4's
// 3x-interval silence rule).
func (s *RPStream) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.handleEmissions(now, true, s.video.Tick(now))
			s.handleEmissions(now, false, s.audio.Tick(now))

			s.healthMon.SetPendingPackets(s.video.PendingCount() + s.audio.PendingCount())
			snap := s.healthMon.Snapshot(now)

			metrics.SetPendingPackets(s.session.ID, snap.PendingPackets)
			metrics.SetFPS(s.session.ID, snap.FPS)
			metrics.SetBitrateMbps(s.session.ID, snap.BitrateMbps)
			metrics.SetRTTMicros(s.session.ID, float64(s.session.RTTMicros))

			if s.heartbeat.Stale(now) {
				s.triggerRecoveryAsync()
			}
		}
	}
}
