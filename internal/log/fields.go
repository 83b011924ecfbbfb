// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldHostID        = "host_id"
	FieldAccountID     = "account_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Takion transport fields
	FieldKeyPos       = "key_pos"
	FieldAuthFailures = "auth_failures"
	FieldBreakerState = "breaker_state"

	// Stream health fields
	FieldCodec          = "codec"
	FieldResolution     = "resolution"
	FieldFPS            = "fps"
	FieldBitrateMbps    = "bitrate_mbps"
	FieldPendingPackets = "pending_packets"
	FieldRTTMicros      = "rtt_micros"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Discovery / pairing fields
	FieldHostIP   = "host_ip"
	FieldHostType = "host_type"

	// Network fields
	FieldStreamPort = "stream_port"
)
