// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream wires a RemoteSession's Takion transport, reassemblers,
// health monitor, and feedback sender into the RPStream orchestrator
// (spec.md §4.11): one goroutine group per session driving receive,
// heartbeat, feedback, and health tasks, fanning decoded access units out
// to any number of Receivers.
package stream

// Receiver is the inward delivery contract implemented by the
// browser-bridging component (spec.md §6.2). Implementations must return
// quickly; heavy decoding work must be moved off the calling goroutine by
// the receiver itself. A panicking Receiver is logged and skipped, not
// allowed to stop the stream.
type Receiver interface {
	OnVideoPacket(payload []byte)
	OnAudioPacket(payload []byte)
	OnStreamInfo(videoHeader, audioHeader []byte)
	SetVideoCodec(codec string)
	SetAudioCodec(codec string)
	EnterWaitForIDR()
}

// NoopReceiver implements Receiver with no-op methods. Embed it to satisfy
// the interface while overriding only the capabilities a collaborator
// cares about.
type NoopReceiver struct{}

func (NoopReceiver) OnVideoPacket([]byte)             {}
func (NoopReceiver) OnAudioPacket([]byte)             {}
func (NoopReceiver) OnStreamInfo([]byte, []byte)      {}
func (NoopReceiver) SetVideoCodec(string)             {}
func (NoopReceiver) SetAudioCodec(string)             {}
func (NoopReceiver) EnterWaitForIDR()                 {}
