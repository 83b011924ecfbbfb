// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpsession

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func TestBuildAndParseBigPayloadRawRoundTrip(t *testing.T) {
	params := model.StreamParams{
		Resolution:  "1920x1080",
		FPS:         60,
		BitrateKbps: 15000,
		Codec:       model.CodecHEVC,
		HDR:         true,
	}
	var encKey [16]byte
	for i := range encKey {
		encKey[i] = byte(i)
	}
	pub := []byte("uncompressed-pubkey-placeholder-65-bytes-xxxxxxxxxxxxxxxxxxxxxx")
	sig := []byte("32-byte-hmac-signature-xxxxxxxx")

	raw := BuildBigPayloadRaw("1.2.3", []byte("session-key-material"), params, encKey, pub, sig)

	parsed, err := parseBigPayloadRaw(raw)
	require.NoError(t, err)
	require.Equal(t, "1.2.3", parsed.clientVersion)
	require.Equal(t, []byte("session-key-material"), parsed.sessionKey)
	require.Equal(t, params.Resolution, parsed.resolution)
	require.Equal(t, params.FPS, parsed.fps)
	require.Equal(t, params.BitrateKbps, parsed.bitrateKbps)
	require.Equal(t, byte(3), parsed.codec) // hevc+hdr
	require.True(t, parsed.hdr)
	require.Equal(t, encKey, parsed.encKey)
	require.Equal(t, pub, parsed.ecdhPub)
	require.Equal(t, sig, parsed.ecdhSig)
}

func TestCodecByteMapping(t *testing.T) {
	require.Equal(t, byte(1), codecByte(model.StreamParams{Codec: model.CodecH264}))
	require.Equal(t, byte(2), codecByte(model.StreamParams{Codec: model.CodecHEVC}))
	require.Equal(t, byte(3), codecByte(model.StreamParams{Codec: model.CodecHEVC, HDR: true}))
}
