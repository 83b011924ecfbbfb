// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "sync"

// SessionState is the session-establishment and lifecycle state machine
// shared between session establishment and the stream orchestrator.
type SessionState int

const (
	SessionInit SessionState = iota
	SessionTCPOpen
	SessionNonceReceived
	SessionLaunchSent
	SessionUDPBang
	SessionReady
	SessionStreaming
	SessionStopping
	SessionStopped
)

func (s SessionState) String() string {
	switch s {
	case SessionInit:
		return "INIT"
	case SessionTCPOpen:
		return "TCP_OPEN"
	case SessionNonceReceived:
		return "NONCE_RECEIVED"
	case SessionLaunchSent:
		return "LAUNCH_SENT"
	case SessionUDPBang:
		return "UDP_BANG"
	case SessionReady:
		return "SESSION_READY"
	case SessionStreaming:
		return "STREAMING"
	case SessionStopping:
		return "STOPPING"
	case SessionStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// StreamCodec is the negotiated video codec.
type StreamCodec string

const (
	CodecH264    StreamCodec = "h264"
	CodecHEVC    StreamCodec = "hevc"
	CodecHEVCHDR StreamCodec = "hevc_hdr"
	CodecOpus    StreamCodec = "opus"
	CodecAAC     StreamCodec = "aac"
)

// StreamParams is the negotiated set of stream parameters exchanged during
// session establishment.
type StreamParams struct {
	Resolution  string
	FPS         int
	BitrateKbps int
	Codec       StreamCodec
	HDR         bool
}

const defaultMTU = 1454

// RemoteSession is one active streaming conversation. RPStream exclusively
// mutates this value; the feedback sender holds it read-only.
type RemoteSession struct {
	ID       string // UUID
	HostIP   string
	HostType HostType
	HostID   string
	HostName string

	SessionID [16]byte // assigned by the console during BIG

	HandshakeKey [16]byte
	Secret       [32]byte
	SessionIV    [16]byte // AES-CFB nonce for session-layer control messages

	EncCounter uint64 // session-layer CFB encrypt counter
	DecCounter uint64 // session-layer CFB decrypt counter

	VideoKeyPos uint32
	InputKeyPos uint32

	Params StreamParams

	RTTMicros int64
	MTUIn     int
	MTUOut    int

	State SessionState

	ready     chan struct{}
	readyOnce sync.Once
}

// NewRemoteSession constructs a session in the INIT state with default MTU.
func NewRemoteSession(id, hostIP string, hostType HostType) *RemoteSession {
	return &RemoteSession{
		ID:       id,
		HostIP:   hostIP,
		HostType: hostType,
		State:    SessionInit,
		MTUIn:    defaultMTU,
		MTUOut:   defaultMTU,
		ready:    make(chan struct{}),
	}
}

// SignalReady fires the edge-triggered SessionReady signal exactly once.
func (s *RemoteSession) SignalReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// WaitReady returns a channel that is closed once SignalReady has fired.
func (s *RemoteSession) WaitReady() <-chan struct{} {
	return s.ready
}
