// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

const (
	localBaseIndex  = 2
	remoteBaseIndex = 3
)

// deriveBase implements spec.md §4.5's base-key/base-iv derivation:
// HMAC_SHA256(secret, 0x01||index||0x00||handshake_key||0x01||0x00), split
// into a 16-byte key and 16-byte IV.
func deriveBase(secret, handshakeKey []byte, index byte) ([]byte, [16]byte) {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte{0x01, index, 0x00})
	mac.Write(handshakeKey)
	mac.Write([]byte{0x01, 0x00})
	sum := mac.Sum(nil)
	var iv [16]byte
	copy(iv[:], sum[16:32])
	return append([]byte(nil), sum[:16]...), iv
}

// BaseCipher is one side (local or remote) of the Takion stream cipher: a
// keystream generator plus a GMAC keyring, both derived from the same
// (secret, handshake_key, index) triple.
type BaseCipher struct {
	keystream *KeystreamCache
	gmac      *gmacKeyring
}

func newBaseCipher(secret, handshakeKey []byte, index byte) (*BaseCipher, error) {
	key, iv := deriveBase(secret, handshakeKey, index)
	ks, err := NewKeystreamCache(key, iv)
	if err != nil {
		return nil, err
	}
	return &BaseCipher{
		keystream: ks,
		gmac:      newGMACKeyring(key, iv),
	}, nil
}

// assembleHeader builds type||key_pos(BE,4)||zeroed_tag(4)||plaintext, the
// byte sequence GMAC is computed over (spec.md §4.4).
func assembleHeader(msgType byte, keyPos uint32, plaintext []byte) []byte {
	out := make([]byte, 9+len(plaintext))
	out[0] = msgType
	binary.BigEndian.PutUint32(out[1:5], keyPos)
	// out[5:9] stays zero (zeroed_tag)
	copy(out[9:], plaintext)
	return out
}

// Encrypt XORs plaintext with the keystream at keyPos and computes its GMAC
// tag. It does not mutate keyPos; callers advance it by len(plaintext) after
// a successful send, per the key_pos advancement invariant (spec.md §8).
func (b *BaseCipher) Encrypt(msgType byte, keyPos uint32, plaintext []byte) (ciphertext []byte, tag [4]byte, err error) {
	assembled := assembleHeader(msgType, keyPos, plaintext)
	tag, err = b.gmac.Tag(keyPos, assembled)
	if err != nil {
		return nil, tag, err
	}
	return b.keystream.XOR(keyPos, plaintext), tag, nil
}

// Decrypt verifies tag against the recomputed GMAC and, if it matches,
// returns the XOR-decrypted plaintext. On mismatch it returns
// ErrGMACMismatch and the caller must drop the packet without advancing
// any state.
func (b *BaseCipher) Decrypt(msgType byte, keyPos uint32, ciphertext []byte, tag [4]byte) ([]byte, error) {
	plaintext := b.keystream.XOR(keyPos, ciphertext)
	assembled := assembleHeader(msgType, keyPos, plaintext)
	expected, err := b.gmac.Tag(keyPos, assembled)
	if err != nil {
		return nil, err
	}
	if expected != tag {
		return nil, authFailure(ErrGMACMismatch)
	}
	return plaintext, nil
}

// StreamCipher is the compound of LocalCipher (send) and RemoteCipher
// (receive), both seeded from the same (handshake_key, secret) pair with
// component index 2 (local) or 3 (remote), per spec.md §3.
type StreamCipher struct {
	Local  *BaseCipher
	Remote *BaseCipher
}

// NewStreamCipher derives both sides of the stream cipher pair.
func NewStreamCipher(handshakeKey [16]byte, secret [32]byte) (*StreamCipher, error) {
	local, err := newBaseCipher(secret[:], handshakeKey[:], localBaseIndex)
	if err != nil {
		return nil, err
	}
	remote, err := newBaseCipher(secret[:], handshakeKey[:], remoteBaseIndex)
	if err != nil {
		return nil, err
	}
	return &StreamCipher{Local: local, Remote: remote}, nil
}
