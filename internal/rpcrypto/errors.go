// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rpcrypto implements the cryptographic primitives the Remote Play
// protocol layers on top of AES: the registration cipher, the Takion stream
// cipher pair with its keystream cache and GMAC tagging, the session-layer
// control cipher, and the secp256k1 ECDH used during session establishment.
package rpcrypto

import "errors"

// Error is a classified crypto failure, per the taxonomy in spec.md §7.
type Error struct {
	kind string
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind classifies the failure for callers that branch on error category
// without string matching.
func (e *Error) Kind() string { return e.kind }

func newError(kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

// Sentinel errors tested with errors.Is.
var (
	ErrGMACMismatch      = errors.New("rpcrypto: gmac verification failed")
	ErrInvalidSignature  = errors.New("rpcrypto: ecdh signature invalid")
	ErrMalformedCiphertext = errors.New("rpcrypto: cfb ciphertext malformed")
)

func authFailure(err error) *Error {
	return newError("crypto", "auth failure", err)
}
