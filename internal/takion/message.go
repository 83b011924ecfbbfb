// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package takion implements the single-UDP-socket Takion transport
// (spec.md §4.4): typed messages protected by a per-keystream XOR cipher
// and a 4-byte GMAC tag over the message header.
package takion

// MessageType is the 1-byte wire discriminator (spec.md §4.4).
type MessageType byte

const (
	MsgInit          MessageType = 0x30
	MsgBig           MessageType = 0x01
	MsgVideo         MessageType = 0x02
	MsgAudio         MessageType = 0x03
	MsgCongestion    MessageType = 0x05
	MsgFeedbackState MessageType = 0x06
	MsgFeedbackEvent MessageType = 0x07
	MsgClientInfo    MessageType = 0x08
	MsgHeartbeat     MessageType = 0x09
	MsgBang          MessageType = 0x20
)

func (t MessageType) String() string {
	switch t {
	case MsgInit:
		return "INIT"
	case MsgBig:
		return "BIG"
	case MsgVideo:
		return "VIDEO"
	case MsgAudio:
		return "AUDIO"
	case MsgCongestion:
		return "CONGESTION"
	case MsgFeedbackState:
		return "FEEDBACK_STATE"
	case MsgFeedbackEvent:
		return "FEEDBACK_EVENT"
	case MsgClientInfo:
		return "CLIENT_INFO"
	case MsgHeartbeat:
		return "HEARTBEAT"
	case MsgBang:
		return "BANG"
	default:
		return "UNKNOWN"
	}
}

// headerSize is the fixed prefix before the encrypted payload: 1-byte type,
// 4-byte key_pos, 4-byte gmac.
const headerSize = 9

// Message is one decoded Takion datagram: its type, sender-side key_pos,
// and plaintext payload.
type Message struct {
	Type    MessageType
	KeyPos  uint32
	Payload []byte
}
