// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package takion

// Control messages reuse the CONGESTION and INIT message types with a
// single discriminator byte, rather than introducing new wire types: the
// orchestrator only ever needs to ask for a keyframe or say goodbye, and
// both fit in one flag byte.

const (
	congestionFlagIDRRequest byte = 0x01
	initFlagBye              byte = 0x01
)

// BuildIDRRequest returns the CONGESTION payload asking the console for a
// fresh keyframe (spec.md §4.11 "request_keyframe").
func BuildIDRRequest() []byte {
	return []byte{congestionFlagIDRRequest}
}

// IsIDRRequest reports whether payload is an IDR-request CONGESTION
// message.
func IsIDRRequest(payload []byte) bool {
	return len(payload) == 1 && payload[0] == congestionFlagIDRRequest
}

// BuildBye returns the INIT payload sent on orchestrator shutdown
// (spec.md §4.11 "stop").
func BuildBye() []byte {
	return []byte{initFlagBye}
}

// IsBye reports whether payload is a BYE INIT message.
func IsBye(payload []byte) bool {
	return len(payload) == 1 && payload[0] == initFlagBye
}
