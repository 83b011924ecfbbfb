// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpsession

import "fmt"

// Takion message types relevant to session establishment (spec.md §4.4);
// the full type enum lives in internal/takion once the stream cipher is
// active. BANG and the establishment BIG are exchanged before either side
// has a shared secret, so they carry no GMAC and are framed directly here.
const (
	msgTypeBIG  = 1
	msgTypeBANG = 0x20
)

const (
	ecdhPubKeyLen = 65
	ecdhSigLen    = 32
)

// buildBangMessage frames the local ECDH public key and signature for the
// UDP BANG exchange (spec.md §4.3 step 5).
func buildBangMessage(pub, sig []byte) []byte {
	out := make([]byte, 1+1+len(pub)+len(sig))
	out[0] = msgTypeBANG
	out[1] = byte(len(pub))
	copy(out[2:], pub)
	copy(out[2+len(pub):], sig)
	return out
}

// parseBangMessage extracts the remote ECDH public key and signature from a
// BANG datagram.
func parseBangMessage(data []byte) (pub, sig []byte, err error) {
	if len(data) < 2 || data[0] != msgTypeBANG {
		return nil, nil, fmt.Errorf("rpsession: not a BANG message")
	}
	pubLen := int(data[1])
	if len(data) < 2+pubLen+ecdhSigLen {
		return nil, nil, fmt.Errorf("rpsession: truncated BANG message")
	}
	pub = data[2 : 2+pubLen]
	sig = data[2+pubLen : 2+pubLen+ecdhSigLen]
	return pub, sig, nil
}

// parseBigSessionID extracts the 16-byte session id from the UDP BIG message
// (spec.md §4.3 step 7).
func parseBigSessionID(data []byte) ([16]byte, error) {
	var sessionID [16]byte
	if len(data) < 1+16 || data[0] != msgTypeBIG {
		return sessionID, fmt.Errorf("rpsession: not a BIG session-id message")
	}
	copy(sessionID[:], data[1:17])
	return sessionID, nil
}

// buildBigSessionIDMessage frames a 16-byte session id as a BIG datagram;
// used by tests simulating the console side of the handshake.
func buildBigSessionIDMessage(sessionID [16]byte) []byte {
	out := make([]byte, 1+16)
	out[0] = msgTypeBIG
	copy(out[1:], sessionID[:])
	return out
}
