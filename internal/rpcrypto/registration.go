// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	key0XORPS4Offset = 41
	key0XORPS5Offset = -45

	registrationPayloadSize = 480
	key1SpliceOffsetA       = 199
	key1SpliceOffsetB       = 401
	key1Size                = 16
)

// key1Offset returns the per-host-type offset folded into key1 derivation
// (+41 for PS4, -45 for PS5, per spec.md §4.2 step 3).
func key1Offset(hostType HostType) int {
	if hostType == HostTypePS5 {
		return key0XORPS5Offset
	}
	return key0XORPS4Offset
}

// DeriveKey0 implements spec.md §4.2 step 2: pick byte [i*32+1] for i in
// 0..16 from the vendor key-0 table, then XOR the trailing 4 bytes with the
// PIN (parsed as a decimal integer, encoded big-endian). A PIN with leading
// zeros still derives the correct key because it is parsed as an integer,
// not copied byte-for-byte.
func DeriveKey0(hostType HostType, pin string) ([16]byte, error) {
	var pinValue uint32
	if _, err := fmt.Sscanf(pin, "%d", &pinValue); err != nil {
		return [16]byte{}, newError("protocol", "invalid pin", err)
	}

	key0Table, _ := vendorKeysFor(hostType)
	var key0 [16]byte
	for i := 0; i < 16; i++ {
		key0[i] = key0Table[i*vendorKeyStride+1]
	}

	var pinBytes [4]byte
	binary.BigEndian.PutUint32(pinBytes[:], pinValue)
	for i := 0; i < 4; i++ {
		key0[12+i] ^= pinBytes[i]
	}
	return key0, nil
}

// DeriveKey1 implements spec.md §4.2 step 3: per index,
// (nonce[i] ^ vendor_key_1[i*32+8] + offset + i) mod 256.
func DeriveKey1(hostType HostType, nonce [16]byte) [key1Size]byte {
	_, key1Table := vendorKeysFor(hostType)
	offset := key1Offset(hostType)
	var key1 [key1Size]byte
	for i := 0; i < key1Size; i++ {
		v := int(nonce[i]^key1Table[i*vendorKeyStride+8]) + offset + i
		key1[i] = byte(((v % 256) + 256) % 256)
	}
	return key1
}

// GenerateNonce returns 16 cryptographically random bytes for use as the
// registration nonce (spec.md §4.2 step 3).
func GenerateNonce() ([16]byte, error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, newError("crypto", "nonce generation", err)
	}
	return nonce, nil
}

// BuildRegistrationPayload implements spec.md §4.2 step 4: 480 bytes of 'A'
// with key1 spliced at offsets 199..207 and 401..409 (first 8 bytes of
// key1, per the source's splice width).
func BuildRegistrationPayload(key1 [key1Size]byte) [registrationPayloadSize]byte {
	var payload [registrationPayloadSize]byte
	for i := range payload {
		payload[i] = 'A'
	}
	copy(payload[key1SpliceOffsetA:key1SpliceOffsetA+8], key1[:8])
	copy(payload[key1SpliceOffsetB:key1SpliceOffsetB+8], key1[:8])
	return payload
}

// EncryptPSNHeader implements spec.md §4.2 step 5: AES-CFB(128) of the PSN
// header using key0, with IV derived from the host HMAC key, nonce, and the
// given counter (0 for the request, 1 for the response per the protocol).
func EncryptPSNHeader(key0 [16]byte, hmacKey []byte, nonce [16]byte, counter uint64, header string) ([]byte, error) {
	iv := deriveCFBIV(hmacKey, nonce[:], counter)
	return cfbCrypt(key0[:], iv, []byte(header))
}

// DecryptPSNBody implements spec.md §4.2 step 7 (symmetric to step 5, with
// counter=1 for the response body).
func DecryptPSNBody(key0 [16]byte, hmacKey []byte, nonce [16]byte, counter uint64, body []byte) ([]byte, error) {
	iv := deriveCFBIV(hmacKey, nonce[:], counter)
	return cfbDecrypt(key0[:], iv, body)
}
