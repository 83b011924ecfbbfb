// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package takion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/rpcrypto"
)

func newTestCipherPair(t *testing.T) (*rpcrypto.StreamCipher, *rpcrypto.StreamCipher) {
	t.Helper()
	var handshakeKey [16]byte
	var secret [32]byte
	for i := range handshakeKey {
		handshakeKey[i] = byte(i + 1)
	}
	for i := range secret {
		secret[i] = byte(i + 50)
	}
	a, err := rpcrypto.NewStreamCipher(handshakeKey, secret)
	require.NoError(t, err)
	b, err := rpcrypto.NewStreamCipher(handshakeKey, secret)
	require.NoError(t, err)
	return a, b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sender, receiver := newTestCipherPair(t)

	plaintext := []byte("video-payload-bytes")
	wire, err := Encode(sender.Local, MsgVideo, 0, plaintext)
	require.NoError(t, err)

	// Local/Remote are fixed per base index (2/3), not per peer: anyone
	// who knows (secret, handshake_key) derives the identical index-2 key.
	// A real peer decodes our Local-encrypted traffic with its own
	// index-2 derivation, which here is receiver.Local, not receiver.Remote
	// (receiver.Remote is index 3, a different key entirely).
	msg, err := Decode(receiver.Local, wire)
	require.NoError(t, err)
	require.Equal(t, MsgVideo, msg.Type)
	require.Equal(t, uint32(0), msg.KeyPos)
	require.Equal(t, plaintext, msg.Payload)
}

func TestDecodeRejectsForgedTag(t *testing.T) {
	sender, _ := newTestCipherPair(t)
	wire, err := Encode(sender.Local, MsgHeartbeat, 0, []byte("ping"))
	require.NoError(t, err)
	wire[5] ^= 0xFF // corrupt the tag

	_, err = Decode(sender.Local, wire)
	require.Error(t, err)
}

func TestDecodeRejectsShortDatagram(t *testing.T) {
	_, err := Decode(nil, []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestMessageTypeString(t *testing.T) {
	require.Equal(t, "VIDEO", MsgVideo.String())
	require.Equal(t, "UNKNOWN", MessageType(0xEE).String())
}
