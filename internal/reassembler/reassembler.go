// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reassembler

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/o1298098/remote-play-sub005/internal/codec"
	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/metrics"
	"github.com/o1298098/remote-play-sub005/internal/model"
)

// Unit is one Takion video/audio payload after transport-layer decode, the
// reassembler's input (spec.md §4.7).
type Unit struct {
	FrameIndex uint32
	UnitIndex  uint16
	UnitsSrc   uint8
	UnitsFEC   uint8
	Codec      model.FrameCodec
	Timestamp  uint32
	Payload    []byte
	Arrival    time.Time
}

// Emission is one finished access unit ready for delivery to the Receiver.
type Emission struct {
	FrameIndex uint32
	Codec      model.FrameCodec
	Timestamp  uint32
	IsKeyframe bool
	Payload    []byte
	Outcome    model.FrameOutcome
}

// Reassembler holds the reorder window and keyframe-recovery policy state
// for one session's video or audio stream. An internal mutex serializes
// PutUnit, Tick, Reset and PendingCount, so they may be called from
// different goroutines (RPStream calls PutUnit from its receive loop and
// Tick from its health loop).
type Reassembler struct {
	sessionID string
	window    *model.ReorderWindow
	cfg       Config

	mu sync.Mutex

	lastIDRRequest    time.Time
	consecutiveSevere int
	lastFrameAt       time.Time
	inRecovery        bool

	// headSince is when window.NextToEmit last became the window's head,
	// whether or not a Frame has ever been allocated for it. It is what
	// lets Tick evict a head index that never received a single unit.
	headSince time.Time

	// resuming is set by Reset and cleared by the next PutUnit, which
	// retargets the window head to that unit's frame_index instead of
	// whatever NextToEmit Reset left behind.
	resuming bool

	onIDRRequest func()
	onEmergency  func()

	logger zerolog.Logger
}

// New constructs a Reassembler for one stream. onIDRRequest is called
// (subject to cfg's cooldown) whenever a dropped frame or FEC failure
// demands a fresh keyframe; onEmergency is called once the severe-failure
// or no-frames threshold escalates to recovery (spec.md §4.9). Either
// callback may be nil.
func New(sessionID string, cfg Config, onIDRRequest, onEmergency func()) *Reassembler {
	cfg = cfg.withDefaults()
	now := time.Now()
	return &Reassembler{
		sessionID:    sessionID,
		window:       model.NewReorderWindow(cfg.WindowSize),
		cfg:          cfg,
		lastFrameAt:  now,
		headSince:    now,
		onIDRRequest: onIDRRequest,
		onEmergency:  onEmergency,
		logger:       log.WithComponent("reassembler"),
	}
}

// advanceNextToEmit moves the window head forward by one and resets the
// staleness clock on the new head.
func (r *Reassembler) advanceNextToEmit(now time.Time) {
	r.window.NextToEmit++
	r.headSince = now
}

// PutUnit admits one arrived unit and returns every access unit the window
// can now emit in frame_index order, up to the first gap.
func (r *Reassembler) PutUnit(u Unit) []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resuming {
		r.resuming = false
		r.window.NextToEmit = u.FrameIndex
		r.headSince = u.Arrival
	}

	switch {
	case r.window.IsLate(u.FrameIndex):
		metrics.RecordFrameOutcome(r.sessionID, "dropped_late")
		return nil
	case r.window.IsBeyond(u.FrameIndex):
		r.advanceHeadTo(u.FrameIndex)
	}

	f, ok := r.window.Frames[u.FrameIndex]
	if !ok {
		f = model.NewFrame(u.FrameIndex, u.UnitsSrc, u.UnitsFEC, u.Arrival)
		f.Codec = u.Codec
		f.Timestamp = u.Timestamp
		r.window.Frames[u.FrameIndex] = f
	}
	f.PutUnit(u.UnitIndex, u.Payload)

	return r.drain(u.Arrival)
}

// Tick forces stale head frames to resolve even if no further units arrive,
// so one lost datagram (or a head index that never received a single unit)
// doesn't stall the window indefinitely. A stale head frame that had
// received units is returned as a Dropped emission with no payload. Call
// it periodically; RPStream's health loop calls it once per health check.
func (r *Reassembler) Tick(now time.Time) []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Emission
	if now.Sub(r.headSince) >= r.cfg.StaleFrameTimeout {
		head, ok := r.window.Frames[r.window.NextToEmit]
		if ok {
			r.finalize(head, model.FrameDropped)
			delete(r.window.Frames, head.FrameIndex)
			out = append(out, Emission{
				FrameIndex: head.FrameIndex,
				Codec:      head.Codec,
				Timestamp:  head.Timestamp,
				Outcome:    model.FrameDropped,
			})
		} else {
			metrics.RecordFrameOutcome(r.sessionID, "dropped")
		}
		r.advanceNextToEmit(now)
	}

	out = append(out, r.drain(now)...)

	if now.Sub(r.lastFrameAt) >= r.cfg.NoFramesTimeout {
		r.escalate(now)
	}
	return out
}

// drain walks forward from the window head, finalizing every frame that is
// either already source-complete or FEC-recoverable, stopping at the first
// gap (an absent or not-yet-resolvable frame_index).
func (r *Reassembler) drain(now time.Time) []Emission {
	var out []Emission
	for {
		f, ok := r.window.Frames[r.window.NextToEmit]
		if !ok {
			break
		}

		var outcome model.FrameOutcome
		switch {
		case f.SourceComplete():
			outcome = model.FrameSucceeded
		case f.ReceivedCount() >= int(f.UnitsSrc) && f.UnitsFEC > 0:
			recovered, err := recoverSource(f)
			switch {
			case err != nil:
				r.logger.Debug().Err(err).Uint32("frame_index", f.FrameIndex).Msg("fec recovery failed")
				metrics.RecordFECAttempt(r.sessionID, false)
				outcome = model.FrameFrozen
			case recovered:
				metrics.RecordFECAttempt(r.sessionID, true)
				outcome = model.FrameRecovered
			default:
				outcome = model.FrameFrozen
			}
		default:
			return out // gap: wait for more units or Tick's stale eviction
		}

		r.finalize(f, outcome)
		out = append(out, r.emit(f, outcome))
		delete(r.window.Frames, f.FrameIndex)
		r.advanceNextToEmit(now)
	}
	return out
}

// advanceHeadTo moves the window so frameIndex falls inside it, marking any
// frames skipped over as Dropped (spec.md §4.7's "above window head"
// clause).
func (r *Reassembler) advanceHeadTo(frameIndex uint32) {
	now := time.Now()
	newHead := frameIndex - r.cfg.WindowSize + 1
	for idx := r.window.NextToEmit; model.Before(idx, newHead); idx++ {
		if f, ok := r.window.Frames[idx]; ok {
			r.finalize(f, model.FrameDropped)
			delete(r.window.Frames, idx)
		} else {
			metrics.RecordFrameOutcome(r.sessionID, "dropped")
		}
	}
	r.window.NextToEmit = newHead
	r.headSince = now
}

// finalize records the keyframe-recovery policy side effects of one
// frame's terminal outcome: IDR requests on failure, escalation after
// repeated failures (spec.md §4.7 "Keyframe policy").
func (r *Reassembler) finalize(f *model.Frame, outcome model.FrameOutcome) {
	f.Outcome = outcome
	metrics.RecordFrameOutcome(r.sessionID, string(outcome))

	now := time.Now()
	if outcome == model.FrameSucceeded || outcome == model.FrameRecovered {
		r.consecutiveSevere = 0
		r.lastFrameAt = now
		r.inRecovery = false
		return
	}

	r.consecutiveSevere++
	r.requestIDR(now)
	if r.consecutiveSevere >= r.cfg.SevereFailureThreshold {
		r.escalate(now)
	}
}

func (r *Reassembler) requestIDR(now time.Time) {
	if now.Sub(r.lastIDRRequest) < r.cfg.IDRCooldown {
		return
	}
	r.lastIDRRequest = now
	metrics.RecordIDRRequest(r.sessionID)
	if r.onIDRRequest != nil {
		r.onIDRRequest()
	}
}

func (r *Reassembler) escalate(now time.Time) {
	if r.inRecovery {
		return
	}
	r.inRecovery = true
	r.consecutiveSevere = 0
	if r.onEmergency != nil {
		r.onEmergency()
	}
}

// emit converts a finalized Frame into its delivery form: Annex-B framed
// for video, concatenated as-is for audio.
func (r *Reassembler) emit(f *model.Frame, outcome model.FrameOutcome) Emission {
	var payload []byte
	isKeyframe := f.IsKeyframe

	switch f.Codec {
	case model.FrameCodecH264, model.FrameCodecHEVC:
		payload, isKeyframe = codec.AnnexBFrame(f.Codec, f.Units[:f.UnitsSrc])
	default:
		payload = codec.PassthroughAudio(f.Units[:f.UnitsSrc])
	}

	return Emission{
		FrameIndex: f.FrameIndex,
		Codec:      f.Codec,
		Timestamp:  f.Timestamp,
		IsKeyframe: isKeyframe,
		Payload:    payload,
		Outcome:    outcome,
	}
}

// PendingCount returns how many frames are currently buffered in the
// reorder window, for the health monitor's pending-packets gauge.
func (r *Reassembler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.window.Frames)
}

// Reset wipes the reorder window and all keyframe-recovery bookkeeping and
// arms resuming so the window head retargets itself to whatever
// frame_index the next unit carries, rather than resuming at whatever
// NextToEmit happened to be (spec.md §4.11 "force_reset_reorder_queue":
// "lets the stream resume from the next access unit"). It does not request
// a keyframe itself; the caller is expected to do that alongside the
// reset.
func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.window.Frames = make(map[uint32]*model.Frame)
	r.consecutiveSevere = 0
	r.lastFrameAt = now
	r.headSince = now
	r.inRecovery = false
	r.resuming = true
}
