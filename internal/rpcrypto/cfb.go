// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// deriveCFBIV computes IV = HMAC_SHA256(hmacKey, nonce||counter64)[:16], the
// IV derivation shared by the registration cipher (§4.2 step 5) and the
// session-layer control cipher (§4.6).
func deriveCFBIV(hmacKey, nonce []byte, counter uint64) [16]byte {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(nonce)
	var ctrBytes [8]byte
	binary.BigEndian.PutUint64(ctrBytes[:], counter)
	mac.Write(ctrBytes[:])
	sum := mac.Sum(nil)
	var iv [16]byte
	copy(iv[:], sum[:16])
	return iv
}

// cfbCrypt runs AES-CFB(128) encryption with the given key/iv over src,
// returning the result. cfbDecrypt below is its inverse.
func cfbCrypt(key []byte, iv [16]byte, src []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, newError("crypto", "aes-cfb init", err)
	}
	stream := cipher.NewCFBEncrypter(block, iv[:])
	dst := make([]byte, len(src))
	stream.XORKeyStream(dst, src)
	return dst, nil
}

func cfbDecrypt(key []byte, iv [16]byte, src []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, newError("crypto", "aes-cfb init", err)
	}
	stream := cipher.NewCFBDecrypter(block, iv[:])
	dst := make([]byte, len(src))
	stream.XORKeyStream(dst, src)
	return dst, nil
}

// SessionCipher implements the session-layer AES-CFB(128) control-message
// cipher (spec.md §4.6): a 64-bit monotonic counter incremented separately
// for encrypt and decrypt, driving the per-message IV derivation.
type SessionCipher struct {
	key     []byte
	hmacKey []byte
	nonce   []byte

	encCounter uint64
	decCounter uint64
}

// NewSessionCipher constructs a session-layer cipher from the registration
// key, the host-specific HMAC key (see DeriveHostHMACKey), and the session
// nonce received during establishment.
func NewSessionCipher(key, hmacKey, nonce []byte) *SessionCipher {
	return &SessionCipher{key: key, hmacKey: hmacKey, nonce: nonce}
}

// Encrypt advances the encrypt counter and returns ciphertext for plaintext.
func (c *SessionCipher) Encrypt(plaintext []byte) ([]byte, error) {
	iv := deriveCFBIV(c.hmacKey, c.nonce, c.encCounter)
	c.encCounter++
	return cfbCrypt(c.key, iv, plaintext)
}

// Decrypt advances the decrypt counter and returns plaintext for ciphertext.
func (c *SessionCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	iv := deriveCFBIV(c.hmacKey, c.nonce, c.decCounter)
	c.decCounter++
	return cfbDecrypt(c.key, iv, ciphertext)
}

// EncCounter returns the next encrypt counter value (for tests/diagnostics).
func (c *SessionCipher) EncCounter() uint64 { return c.encCounter }

// DecCounter returns the next decrypt counter value (for tests/diagnostics).
func (c *SessionCipher) DecCounter() uint64 { return c.decCounter }
