// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpcrypto

import (
	"crypto/hmac"
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ECDHKeyPair wraps a secp256k1 key pair for the session-establishment
// Diffie-Hellman exchange (spec.md §4.3 steps 3 and 5). The library exposes
// only low-level curve primitives, so the shared-secret computation is done
// directly against JacobianPoint/ModNScalar rather than through a
// higher-level ECDH helper.
type ECDHKeyPair struct {
	priv *secp256k1.PrivateKey
}

// GenerateECDHKeyPair generates a fresh key pair.
func GenerateECDHKeyPair() (*ECDHKeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, newError("crypto", "ecdh keygen", err)
	}
	return &ECDHKeyPair{priv: priv}, nil
}

// PublicKeyUncompressed returns the 65-byte uncompressed public point.
func (k *ECDHKeyPair) PublicKeyUncompressed() []byte {
	return k.priv.PubKey().SerializeUncompressed()
}

// Sign returns HMAC-SHA256(handshakeKey, pubkey) over this key pair's own
// uncompressed public key, sent alongside it per spec.md §4.3 step 3.
func (k *ECDHKeyPair) Sign(handshakeKey []byte) []byte {
	mac := hmac.New(sha256.New, handshakeKey)
	mac.Write(k.PublicKeyUncompressed())
	return mac.Sum(nil)
}

// VerifyRemotePublicKey checks the remote's HMAC-SHA256 signature over its
// own uncompressed public key under the shared handshake key, and parses
// the key on success.
func VerifyRemotePublicKey(handshakeKey, remotePubBytes, remoteSig []byte) (*secp256k1.PublicKey, error) {
	mac := hmac.New(sha256.New, handshakeKey)
	mac.Write(remotePubBytes)
	expected := mac.Sum(nil)
	if !hmac.Equal(expected, remoteSig) {
		return nil, authFailure(ErrInvalidSignature)
	}
	pub, err := secp256k1.ParsePubKey(remotePubBytes)
	if err != nil {
		return nil, newError("protocol", "invalid ecdh public key", err)
	}
	return pub, nil
}

// SharedSecret computes ECDH(local, remote).x, left-padded to 32 bytes
// (spec.md §4.3 step 5).
func (k *ECDHKeyPair) SharedSecret(remote *secp256k1.PublicKey) [32]byte {
	var remoteJacobian secp256k1.JacobianPoint
	remote.AsJacobian(&remoteJacobian)

	var result secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(&k.priv.Key, &remoteJacobian, &result)
	result.ToAffine()
	result.X.Normalize()

	var secret [32]byte
	xBytes := result.X.Bytes()
	copy(secret[:], xBytes[:])
	return secret
}
