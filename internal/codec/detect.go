// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"fmt"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// StreamTypeToFrameCodec maps the negotiated stream_type enum (spec.md
// §4.8: 1=h264, 2=hevc, 3=hevc+hdr) to the FrameCodec the reassembler
// tags each unit with. HDR is carried separately on model.StreamParams;
// stream_type 3 still yields FrameCodecHEVC here.
func StreamTypeToFrameCodec(streamType int) (model.FrameCodec, error) {
	switch streamType {
	case 1:
		return model.FrameCodecH264, nil
	case 2, 3:
		return model.FrameCodecHEVC, nil
	default:
		return "", fmt.Errorf("codec: unknown stream_type %d", streamType)
	}
}

// AudioCodecFromName maps the negotiated audio codec name
// (set_audio_codec's "opus"|"aac") to the FrameCodec tag used on the
// resulting Frame.
func AudioCodecFromName(name string) (model.FrameCodec, error) {
	switch name {
	case "opus":
		return model.FrameCodecOpus, nil
	case "aac":
		return model.FrameCodecAAC, nil
	default:
		return "", fmt.Errorf("codec: unknown audio codec %q", name)
	}
}
