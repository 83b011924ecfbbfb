// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rpsession establishes the encrypted Takion session from persisted
// credentials (spec.md §4.3): the TCP handshake over the control port, the
// ECDH exchange over UDP, and the resulting StreamCipher and session id.
package rpsession

import "errors"

// Failure is the session-establishment failure taxonomy: a Kind the caller
// can branch on without string matching, plus the wrapped cause.
type Failure struct {
	kind string
	msg  string
	err  error
}

func (f *Failure) Error() string {
	if f.err != nil {
		return f.msg + ": " + f.err.Error()
	}
	return f.msg
}

func (f *Failure) Unwrap() error { return f.err }

// Kind returns one of: "protocol_error", "timeout", "io_error", "auth_error".
func (f *Failure) Kind() string { return f.kind }

func newFailure(kind, msg string, err error) *Failure {
	return &Failure{kind: kind, msg: msg, err: err}
}

// ErrEdgeTimeout names a state-machine edge exceeding its per-edge deadline
// (spec.md §4.3: 5 s default). Establish does not return it: its timeout
// Failures wrap the network error from the expired deadline.
var ErrEdgeTimeout = errors.New("rpsession: edge timeout")
