// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveHostHMACKey derives the per-credential HMAC key referenced by
// spec.md §4.2 step 5 and §4.6: the registration/session-layer CFB IV
// derivation needs a host-specific key distinct from the AES key itself.
// The source material is the AES key the caller pairs it with (key0 during
// registration, the credentials' server key for the session-layer cipher);
// the salt isolates this derived key from any other use of that secret.
func DeriveHostHMACKey(serverKey []byte, hostID string) ([]byte, error) {
	reader := hkdf.New(sha256.New, serverKey, []byte("remoteplay-host-hmac"), []byte(hostID))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("rpcrypto: hkdf derivation failed: %w", err)
	}
	return key, nil
}
