// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package codec frames raw elementary-stream units into Annex-B byte
// sequences a browser-side decoder can parse, and classifies access units as
// keyframes for the reassembler's IDR/recovery policy (spec.md §4.8).
package codec

import "github.com/o1298098/remote-play-sub005/internal/model"

var annexBStartCode = []byte{0x00, 0x00, 0x00, 0x01}

// H264NALType extracts the NAL unit type from an H.264 NAL's header byte.
func H264NALType(header byte) int {
	return int(header & 0x1F)
}

// HEVCNALType extracts the NAL unit type from an HEVC NAL's header byte.
func HEVCNALType(header byte) int {
	return int((header >> 1) & 0x3F)
}

const (
	h264NALSPS = 7
	h264NALPPS = 8
	h264NALIDR = 5

	hevcNALVPS = 32
	hevcNALSPS = 33
	hevcNALPPS = 34
	hevcNALIDRW = 19
	hevcNALIDRN = 20
)

// IsH264Keyframe reports whether an H.264 NAL type marks the access unit
// containing it as a keyframe (an IDR slice).
func IsH264Keyframe(nalType int) bool { return nalType == h264NALIDR }

// IsHEVCKeyframe reports whether an HEVC NAL type marks the access unit
// containing it as a keyframe (an IDR slice, either W or N RADL variant).
func IsHEVCKeyframe(nalType int) bool { return nalType == hevcNALIDRW || nalType == hevcNALIDRN }

// AnnexBFrame assembles an access unit's elementary-stream bytes from its
// individually-delivered NAL units (one Takion unit per NAL, per the
// reassembler's unit_index slots), inserting a start code before each NAL
// per spec.md §4.7's emission rule, and reports whether any NAL inside
// marks the unit as a keyframe.
func AnnexBFrame(streamCodec model.FrameCodec, units [][]byte) (frame []byte, isKeyframe bool) {
	total := 0
	for _, u := range units {
		total += len(annexBStartCode) + len(u)
	}
	frame = make([]byte, 0, total)
	for _, u := range units {
		if len(u) == 0 {
			continue
		}
		frame = append(frame, annexBStartCode...)
		frame = append(frame, u...)
		switch streamCodec {
		case model.FrameCodecH264:
			t := H264NALType(u[0])
			if IsH264Keyframe(t) {
				isKeyframe = true
			}
		case model.FrameCodecHEVC:
			t := HEVCNALType(u[0])
			if IsHEVCKeyframe(t) {
				isKeyframe = true
			}
		}
	}
	return frame, isKeyframe
}
