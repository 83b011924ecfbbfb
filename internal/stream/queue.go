// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"github.com/rs/zerolog"

	"github.com/o1298098/remote-play-sub005/internal/metrics"
)

// receiverQueueCapacity bounds how many pending jobs a single slow receiver
// may accumulate before the orchestrator starts dropping its oldest
// undelivered work (spec.md §5 "Backpressure").
const receiverQueueCapacity = 64

type jobKind int

const (
	jobVideo jobKind = iota
	jobAudio
	jobStreamInfo
	jobVideoCodec
	jobAudioCodec
	jobWaitForIDR
)

type receiverJob struct {
	kind jobKind
	a, b []byte
	name string
}

// receiverSlot owns one Receiver's delivery queue and the goroutine that
// drains it, so a receiver that blocks or panics never touches the receive
// task (spec.md §4.11 "must be safe to call from the transport thread;
// heavy work must be moved off that thread").
type receiverSlot struct {
	receiver  Receiver
	sessionID string
	queue     chan receiverJob
	logger    zerolog.Logger
}

func newReceiverSlot(sessionID string, r Receiver, logger zerolog.Logger) *receiverSlot {
	return &receiverSlot{
		receiver:  r,
		sessionID: sessionID,
		queue:     make(chan receiverJob, receiverQueueCapacity),
		logger:    logger,
	}
}

func (s *receiverSlot) run() {
	for job := range s.queue {
		s.dispatch(job)
	}
}

func (s *receiverSlot) dispatch(job receiverJob) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("session", s.sessionID).Msg("receiver callback panicked")
		}
	}()
	switch job.kind {
	case jobVideo:
		s.receiver.OnVideoPacket(job.a)
	case jobAudio:
		s.receiver.OnAudioPacket(job.a)
	case jobStreamInfo:
		s.receiver.OnStreamInfo(job.a, job.b)
	case jobVideoCodec:
		s.receiver.SetVideoCodec(job.name)
	case jobAudioCodec:
		s.receiver.SetAudioCodec(job.name)
	case jobWaitForIDR:
		s.receiver.EnterWaitForIDR()
	}
}

// enqueue implements the try-send, drop-oldest-on-full contract: a full
// queue loses its oldest undelivered job to make room for the newest one,
// rather than blocking the caller (spec.md §9 REDESIGN FLAG).
func (s *receiverSlot) enqueue(job receiverJob, dropKind string) {
	select {
	case s.queue <- job:
		return
	default:
	}
	select {
	case <-s.queue:
		metrics.RecordReceiverDrop(s.sessionID, dropKind)
	default:
	}
	select {
	case s.queue <- job:
	default:
		// The drain goroutine raced us and drained concurrently; the queue
		// has room again on a subsequent call. Dropping this one job is
		// within the documented backpressure contract.
		metrics.RecordReceiverDrop(s.sessionID, dropKind)
	}
}

func (s *receiverSlot) close() {
	close(s.queue)
}
