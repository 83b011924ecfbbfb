// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package registration implements the PIN-based pairing flow that turns
// (host_ip, host_type, account_id, pin) into durable DeviceCredentials
// (spec.md §4.2).
package registration

import (
	"errors"
	"strings"
)

// Failure is the registration failure taxonomy (spec.md §4.2): a Kind the
// caller can branch on without string matching, plus the wrapped cause.
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

// Kind returns one of: "not_in_registration_mode", "bad_pin",
// "protocol_error", "timeout", "io_error".
func (f *Failure) Kind() string { return f.kind }

func newFailure(kind, msg string, err error) *Failure {
	return &Failure{kind: kind, msg: msg, err: err}
}

var (
	// ErrDeviceNotRegistering is returned when the console does not reply
	// RES2/RES3 to the SRC2/SRC3 probe within the probe timeout.
	ErrDeviceNotRegistering = errors.New("registration: device not in registration mode")
	// ErrBadPin is returned when the console rejects the PIN.
	ErrBadPin = errors.New("registration: incorrect pin")
)

// classifyHTTPFailure maps a registration response status line to a
// Failure, or nil if the line indicates success. Precedence: an explicit
// pin-rejection status takes priority over a generic protocol error.
func classifyHTTPFailure(statusLine string) *Failure {
	switch {
	case statusLine == "":
		return newFailure("protocol_error", "empty status line", nil)
	case strings.Contains(statusLine, "400"), strings.Contains(statusLine, "401"):
		return newFailure("bad_pin", "console rejected pin", ErrBadPin)
	case strings.Contains(statusLine, "200"):
		return nil
	default:
		return newFailure("protocol_error", "unexpected status: "+statusLine, nil)
	}
}
