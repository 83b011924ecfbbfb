// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package feedback sends controller state and button events back to the
// console over the Takion transport (spec.md §4.10).
package feedback

import (
	"encoding/binary"
	"math"
	"math/bits"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// stateSize is the encoded length of one FEEDBACK_STATE payload: buttons(8)
// + l2(1) + r2(1) + 4 sticks(2 each) + gyro(3*4) + accel(3*4) + orient(4*4).
const stateSize = 8 + 1 + 1 + 4*2 + 3*4 + 3*4 + 4*4

// encodeState serializes a ControllerState into a fixed-length FEEDBACK_STATE
// payload, big-endian throughout to match the rest of the Takion wire codec.
func encodeState(s model.ControllerState) []byte {
	buf := make([]byte, stateSize)
	i := 0
	binary.BigEndian.PutUint64(buf[i:], s.Buttons)
	i += 8
	buf[i] = s.L2
	i++
	buf[i] = s.R2
	i++
	for _, v := range []int16{s.LeftX, s.LeftY, s.RightX, s.RightY} {
		binary.BigEndian.PutUint16(buf[i:], uint16(v))
		i += 2
	}
	for _, v := range []float64{s.Gyro.X, s.Gyro.Y, s.Gyro.Z, s.Accel.X, s.Accel.Y, s.Accel.Z} {
		binary.BigEndian.PutUint32(buf[i:], math.Float32bits(float32(v)))
		i += 4
	}
	for _, v := range []float64{s.Orient.X, s.Orient.Y, s.Orient.Z, s.Orient.W} {
		binary.BigEndian.PutUint32(buf[i:], math.Float32bits(float32(v)))
		i += 4
	}
	return buf
}

// eventSize is the encoded length of one button event: button id(1) +
// is_active(1).
const eventSize = 2

// encodeEvents serializes up to FeedbackEventCap events, newest first, as a
// sequence number followed by one eventSize record per event.
func encodeEvents(seq uint16, events []model.FeedbackEvent) []byte {
	buf := make([]byte, 2+len(events)*eventSize)
	binary.BigEndian.PutUint16(buf, seq)
	off := 2
	for _, e := range events {
		id, _ := model.BitFor(e.Button)
		buf[off] = byte(bits.TrailingZeros64(id))
		if e.IsActive {
			buf[off+1] = 1
		}
		off += eventSize
	}
	return buf
}
