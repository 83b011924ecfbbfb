// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package takion

import (
	"encoding/binary"
	"fmt"

	"github.com/o1298098/remote-play-sub005/internal/rpcrypto"
)

// Encode assembles and encrypts one outgoing datagram (spec.md §4.4
// "Sending"): XOR the plaintext with the keystream at keyPos, compute the
// GMAC tag over the assembled header, and return the wire bytes. It does
// not advance keyPos; the caller advances it by len(plaintext) after a
// successful write, per the key_pos advancement invariant.
func Encode(cipher *rpcrypto.BaseCipher, msgType MessageType, keyPos uint32, plaintext []byte) ([]byte, error) {
	ciphertext, tag, err := cipher.Encrypt(byte(msgType), keyPos, plaintext)
	if err != nil {
		return nil, fmt.Errorf("takion: encode %s: %w", msgType, err)
	}
	out := make([]byte, headerSize+len(ciphertext))
	out[0] = byte(msgType)
	binary.BigEndian.PutUint32(out[1:5], keyPos)
	copy(out[5:9], tag[:])
	copy(out[9:], ciphertext)
	return out, nil
}

// Decode parses and authenticates one incoming datagram (spec.md §4.4
// "Receiving"). On GMAC mismatch it returns the wrapped
// rpcrypto.ErrGMACMismatch and the caller must drop the packet without
// advancing any state.
func Decode(cipher *rpcrypto.BaseCipher, raw []byte) (*Message, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("takion: datagram too short (%d bytes)", len(raw))
	}
	msgType := MessageType(raw[0])
	keyPos := binary.BigEndian.Uint32(raw[1:5])
	var tag [4]byte
	copy(tag[:], raw[5:9])
	ciphertext := raw[9:]

	plaintext, err := cipher.Decrypt(byte(msgType), keyPos, ciphertext, tag)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, KeyPos: keyPos, Payload: plaintext}, nil
}
