// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func TestH264NALTypeExtraction(t *testing.T) {
	require.Equal(t, 7, H264NALType(0x67)) // SPS, nal_ref_idc=3, type=7
	require.Equal(t, 5, H264NALType(0x65)) // IDR
	require.Equal(t, 1, H264NALType(0x41)) // non-IDR slice
}

func TestHEVCNALTypeExtraction(t *testing.T) {
	// HEVC header: forbidden_zero_bit(1) | nal_unit_type(6) | layer_id high(1)
	vps := byte(32 << 1)
	idr := byte(19 << 1)
	require.Equal(t, 32, HEVCNALType(vps))
	require.Equal(t, 19, HEVCNALType(idr))
}

func TestAnnexBFrameH264DetectsKeyframe(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00}
	pps := []byte{0x68, 0xce}
	idr := []byte{0x65, 0x88, 0x99}

	frame, isKeyframe := AnnexBFrame(model.FrameCodecH264, [][]byte{sps, pps, idr})
	require.True(t, isKeyframe)
	require.Equal(t, 3, bytes.Count(frame, []byte{0x00, 0x00, 0x00, 0x01}))
	require.True(t, bytes.Contains(frame, sps))
	require.True(t, bytes.Contains(frame, idr))
}

func TestAnnexBFrameH264NonKeyframe(t *testing.T) {
	slice := []byte{0x41, 0x9a}
	_, isKeyframe := AnnexBFrame(model.FrameCodecH264, [][]byte{slice})
	require.False(t, isKeyframe)
}

func TestAnnexBFrameHEVCDetectsKeyframe(t *testing.T) {
	vps := []byte{32 << 1, 0x01}
	idrW := []byte{19 << 1, 0x01}
	_, isKeyframe := AnnexBFrame(model.FrameCodecHEVC, [][]byte{vps, idrW})
	require.True(t, isKeyframe)
}

func TestAnnexBFrameSkipsEmptyUnits(t *testing.T) {
	idr := []byte{0x65, 0x01}
	frame, isKeyframe := AnnexBFrame(model.FrameCodecH264, [][]byte{nil, idr, nil})
	require.True(t, isKeyframe)
	require.Equal(t, 1, bytes.Count(frame, []byte{0x00, 0x00, 0x00, 0x01}))
}

func TestStreamTypeToFrameCodec(t *testing.T) {
	c, err := StreamTypeToFrameCodec(1)
	require.NoError(t, err)
	require.Equal(t, model.FrameCodecH264, c)

	c, err = StreamTypeToFrameCodec(3)
	require.NoError(t, err)
	require.Equal(t, model.FrameCodecHEVC, c)

	_, err = StreamTypeToFrameCodec(99)
	require.Error(t, err)
}

func TestAudioCodecFromName(t *testing.T) {
	c, err := AudioCodecFromName("opus")
	require.NoError(t, err)
	require.Equal(t, model.FrameCodecOpus, c)

	c, err = AudioCodecFromName("aac")
	require.NoError(t, err)
	require.Equal(t, model.FrameCodecAAC, c)

	_, err = AudioCodecFromName("mp3")
	require.Error(t, err)
}

func TestPassthroughAudioConcatenates(t *testing.T) {
	out := PassthroughAudio([][]byte{{1, 2}, {3}, {4, 5, 6}})
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, out)
}
