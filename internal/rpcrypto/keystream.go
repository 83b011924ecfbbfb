// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/aes"
	"encoding/binary"
	"sync"
)

const (
	keystreamBlockSize = 4096
	aesBlockSize       = 16
	blocksPerKeystream = keystreamBlockSize / aesBlockSize
	keystreamCacheDepth = 3
)

// counterAdd implements the spec's "16-bit little-endian increment with
// carry": n is added into iv treated as a sequence of 16-bit little-endian
// words, carrying into successive words.
func counterAdd(iv [16]byte, n uint64) [16]byte {
	out := iv
	carry := n
	for i := 0; i < 16 && carry > 0; i += 2 {
		word := uint64(binary.LittleEndian.Uint16(out[i:i+2])) + carry
		binary.LittleEndian.PutUint16(out[i:i+2], uint16(word))
		carry = word >> 16
	}
	return out
}

// KeystreamCache produces keystream bytes in 4096-byte blocks (block index n
// uses counter = n*4096/16 + 1, AES-encrypting successive counter-added IVs)
// and caches up to three consecutive blocks so requests spanning a block
// boundary can be served without regenerating the earlier block.
type KeystreamCache struct {
	block cipherBlock
	baseIV [16]byte

	mu      sync.Mutex
	entries map[uint64][]byte
	order   []uint64
}

// cipherBlock is the subset of cipher.Block used here, kept narrow so tests
// can substitute a fake.
type cipherBlock interface {
	Encrypt(dst, src []byte)
}

// NewKeystreamCache constructs a cache over the given base key/IV.
func NewKeystreamCache(baseKey []byte, baseIV [16]byte) (*KeystreamCache, error) {
	block, err := aes.NewCipher(baseKey)
	if err != nil {
		return nil, newError("crypto", "keystream cipher init", err)
	}
	return &KeystreamCache{
		block:   block,
		baseIV:  baseIV,
		entries: make(map[uint64][]byte),
	}, nil
}

func (c *KeystreamCache) generateBlock(blockIndex uint64) []byte {
	counter := blockIndex*blocksPerKeystream + 1
	out := make([]byte, keystreamBlockSize)
	for i := 0; i < blocksPerKeystream; i++ {
		ivN := counterAdd(c.baseIV, counter+uint64(i))
		c.block.Encrypt(out[i*aesBlockSize:(i+1)*aesBlockSize], ivN[:])
	}
	return out
}

func (c *KeystreamCache) blockFor(blockIndex uint64) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.entries[blockIndex]; ok {
		return b
	}
	b := c.generateBlock(blockIndex)
	c.entries[blockIndex] = b
	c.order = append(c.order, blockIndex)
	if len(c.order) > keystreamCacheDepth {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evict)
	}
	return b
}

// Bytes returns length keystream bytes starting at the given key position,
// concatenating across block boundaries as needed. pos is a uint32 cursor;
// arithmetic on it is modular, so callers may pass a wrapped value directly.
func (c *KeystreamCache) Bytes(pos uint32, length int) []byte {
	out := make([]byte, 0, length)
	p := uint64(pos)
	for len(out) < length {
		blockIdx := p / keystreamBlockSize
		offset := int(p % keystreamBlockSize)
		block := c.blockFor(blockIdx)
		take := keystreamBlockSize - offset
		if remain := length - len(out); take > remain {
			take = remain
		}
		out = append(out, block[offset:offset+take]...)
		p += uint64(take)
	}
	return out
}

// XOR encrypts or decrypts data (the operation is its own inverse) against
// the keystream starting at pos.
func (c *KeystreamCache) XOR(pos uint32, data []byte) []byte {
	ks := c.Bytes(pos, len(data))
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ ks[i]
	}
	return out
}
