// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"sync"
)

const gmacRekeyInterval = 45000
const gmacRekeyStride = 44910

// gmacKeyring derives and caches the truncated-AES-GCM tag key used per
// spec.md §4.5, regenerating it only when the rekeying index advances.
type gmacKeyring struct {
	baseGMACKey []byte
	baseIV      [16]byte

	mu    sync.Mutex
	index int64
	key   []byte
}

func newGMACKeyring(baseGMACKey []byte, baseIV [16]byte) *gmacKeyring {
	return &gmacKeyring{baseGMACKey: baseGMACKey, baseIV: baseIV, index: -1}
}

// rekeyIndex implements spec.md's "max(0, (key_pos - 1) / 45000)".
func rekeyIndex(keyPos uint32) int64 {
	if keyPos == 0 {
		return 0
	}
	idx := int64(keyPos-1) / gmacRekeyInterval
	if idx < 0 {
		idx = 0
	}
	return idx
}

func (g *gmacKeyring) keyFor(idx int64) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index == idx {
		return g.key
	}
	ivBase := counterAdd(g.baseIV, uint64(idx)*gmacRekeyStride)
	h := sha256.Sum256(append(append([]byte(nil), g.baseGMACKey...), ivBase[:]...))
	var folded [16]byte
	for i := 0; i < 16; i++ {
		folded[i] = h[i] ^ h[i+16]
	}
	g.key = append([]byte(nil), folded[:]...)
	g.index = idx
	return g.key
}

// Tag computes the first 4 bytes of AES-GCM(key, nonce=counter_add(key_pos/16, base_iv), aad=data, plaintext="").
func (g *gmacKeyring) Tag(keyPos uint32, data []byte) ([4]byte, error) {
	var tag [4]byte
	key := g.keyFor(rekeyIndex(keyPos))
	block, err := aes.NewCipher(key)
	if err != nil {
		return tag, newError("crypto", "gmac cipher init", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, 16)
	if err != nil {
		return tag, newError("crypto", "gmac gcm init", err)
	}
	iv := counterAdd(g.baseIV, uint64(keyPos)/16)
	full := gcm.Seal(nil, iv[:], nil, data)
	copy(tag[:], full[:4])
	return tag, nil
}
