// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"encoding/binary"
	"fmt"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// rumbleEventSize is the eight uint8 fields spec.md names for a haptic
// event (the first is the unknown/reserved byte), plus an 8-byte big-endian
// timestamp. The
// inbound message carrying rumble is CLIENT_INFO: spec.md names the field
// tuple but not which Takion type delivers it or its byte layout; both are
// this module's choice, consistent with the other originally-designed
// control payloads in this package.
const rumbleEventSize = 16

func decodeRumble(payload []byte) (model.RumbleEvent, error) {
	if len(payload) < rumbleEventSize {
		return model.RumbleEvent{}, fmt.Errorf("stream: rumble payload too short (%d bytes)", len(payload))
	}
	return model.RumbleEvent{
		Unknown:             payload[0],
		RawLeft:             payload[1],
		RawRight:            payload[2],
		AdjustedLeft:        payload[3],
		AdjustedRight:       payload[4],
		Multiplier:          payload[5],
		PS5RumbleIntensity:  payload[6],
		PS5TriggerIntensity: payload[7],
		TimestampMicros:     int64(binary.BigEndian.Uint64(payload[8:16])),
	}, nil
}
