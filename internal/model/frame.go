// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "time"

// FrameCodec identifies the elementary-stream payload inside a Frame.
type FrameCodec string

const (
	FrameCodecH264 FrameCodec = "h264"
	FrameCodecHEVC FrameCodec = "hevc"
	FrameCodecOpus FrameCodec = "opus"
	FrameCodecAAC  FrameCodec = "aac"
)

// FrameOutcome is the terminal disposition of a Frame as it leaves the
// reorder window, mirrored into HealthSnapshot counters.
type FrameOutcome string

const (
	FrameSucceeded FrameOutcome = "succeeded"
	FrameRecovered FrameOutcome = "recovered"
	FrameFrozen    FrameOutcome = "frozen"
	FrameDropped   FrameOutcome = "dropped"
)

// Frame is one decoded video or audio access unit before delivery. It is
// allocated on first unit arrival, mutated as units arrive out of order, and
// finalized on completion, FEC recovery, timeout, or eviction from the
// reorder window.
type Frame struct {
	FrameIndex uint32
	UnitsSrc   uint8
	UnitsFEC   uint8

	// Units holds units_src+units_fec payload slots, indexed by unit_index.
	// Entries are nil until that unit arrives.
	Units [][]byte

	// ReceivedMask has one bit set per arrived unit_index.
	ReceivedMask []bool

	FirstArrival time.Time
	Codec        FrameCodec
	Timestamp    uint32
	IsKeyframe   bool

	Outcome FrameOutcome
}

// NewFrame allocates a Frame with units_src+units_fec empty slots.
func NewFrame(frameIndex uint32, unitsSrc, unitsFEC uint8, arrival time.Time) *Frame {
	total := int(unitsSrc) + int(unitsFEC)
	return &Frame{
		FrameIndex:   frameIndex,
		UnitsSrc:     unitsSrc,
		UnitsFEC:     unitsFEC,
		Units:        make([][]byte, total),
		ReceivedMask: make([]bool, total),
		FirstArrival: arrival,
	}
}

// ReceivedCount returns how many of the total src+fec slots have arrived.
func (f *Frame) ReceivedCount() int {
	n := 0
	for _, got := range f.ReceivedMask {
		if got {
			n++
		}
	}
	return n
}

// SourceComplete reports whether every source slot (index < UnitsSrc) has
// arrived, i.e. the frame is ready to emit without FEC recovery.
func (f *Frame) SourceComplete() bool {
	for i := 0; i < int(f.UnitsSrc); i++ {
		if !f.ReceivedMask[i] {
			return false
		}
	}
	return true
}

// MissingSourceCount returns how many of the UnitsSrc source slots are
// still absent.
func (f *Frame) MissingSourceCount() int {
	missing := 0
	for i := 0; i < int(f.UnitsSrc); i++ {
		if !f.ReceivedMask[i] {
			missing++
		}
	}
	return missing
}

// PutUnit records a unit's payload at unit_index, returning false if the
// index is out of range or already populated.
func (f *Frame) PutUnit(unitIndex uint16, payload []byte) bool {
	idx := int(unitIndex)
	if idx < 0 || idx >= len(f.Units) {
		return false
	}
	if f.ReceivedMask[idx] {
		return false
	}
	f.Units[idx] = payload
	f.ReceivedMask[idx] = true
	return true
}

// Concat concatenates the UnitsSrc source slots in unit_index order, the
// access-unit payload once the frame is complete.
func (f *Frame) Concat() []byte {
	var total int
	for i := 0; i < int(f.UnitsSrc); i++ {
		total += len(f.Units[i])
	}
	out := make([]byte, 0, total)
	for i := 0; i < int(f.UnitsSrc); i++ {
		out = append(out, f.Units[i]...)
	}
	return out
}

// Before implements the modular u32 frame-index "older than" comparison:
// (a - b) as i32 < 0.
func Before(a, b uint32) bool {
	return int32(a-b) < 0
}
