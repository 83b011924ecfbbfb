// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/reassembler"
)

// unitHeaderSize is the fixed prefix on every decrypted VIDEO/AUDIO
// payload, ahead of the reassembler's per-unit fields named in spec.md
// §4.7: frame_index (u32), unit_index (u16), units_src (u8), units_fec
// (u8), flags (u8). The spec names the fields and their widths but not a
// byte layout; big-endian, in field order, is this module's choice.
const unitHeaderSize = 9

// parseUnit decodes one VIDEO/AUDIO payload into a reassembler.Unit tagged
// with the stream's negotiated codec. Byte 8 (flags) is reserved; nothing
// in this module's keyframe detection depends on it, since the reassembler
// derives IsKeyframe itself by scanning NAL types on emit.
func parseUnit(codec model.FrameCodec, raw []byte, arrival time.Time) (reassembler.Unit, error) {
	if len(raw) < unitHeaderSize {
		return reassembler.Unit{}, fmt.Errorf("stream: unit payload too short (%d bytes)", len(raw))
	}
	u := reassembler.Unit{
		FrameIndex: binary.BigEndian.Uint32(raw[0:4]),
		UnitIndex:  binary.BigEndian.Uint16(raw[4:6]),
		UnitsSrc:   raw[6],
		UnitsFEC:   raw[7],
		Codec:      codec,
		Payload:    raw[unitHeaderSize:],
		Arrival:    arrival,
	}
	return u, nil
}

// streamTypeForCodec maps the negotiated StreamCodec to spec.md §4.8's
// stream_type enum.
func streamTypeForCodec(c model.StreamCodec) int {
	switch c {
	case model.CodecH264:
		return 1
	case model.CodecHEVC:
		return 2
	case model.CodecHEVCHDR:
		return 3
	default:
		return 0
	}
}
