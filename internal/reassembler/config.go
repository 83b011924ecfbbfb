// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package reassembler turns out-of-order Takion video/audio units into
// ordered elementary-stream access units, recovering missing source shards
// with Reed-Solomon FEC where possible and driving the IDR/emergency-
// recovery keyframe policy (spec.md §4.7).
package reassembler

import "time"

// Config tunes the reorder window and keyframe-recovery policy. Zero values
// are replaced by DefaultConfig's values in New.
type Config struct {
	WindowSize uint32

	// IDRCooldown is the minimum interval between IDR requests.
	IDRCooldown time.Duration

	// SevereFailureThreshold is the number of consecutive dropped frames or
	// FEC failures that escalates to emergency recovery.
	SevereFailureThreshold int

	// NoFramesTimeout escalates to emergency recovery if no frame has
	// completed in this long, independent of the severe-failure counter.
	NoFramesTimeout time.Duration

	// StaleFrameTimeout forces a head frame that cannot complete to be
	// dropped and the window advanced, so one missing console datagram
	// doesn't stall the stream forever.
	StaleFrameTimeout time.Duration
}

// DefaultConfig matches spec.md §4.7/§4.9's named defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize:             32,
		IDRCooldown:            time.Second,
		SevereFailureThreshold: 3,
		NoFramesTimeout:        5 * time.Second,
		StaleFrameTimeout:      500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize == 0 {
		c.WindowSize = d.WindowSize
	}
	if c.IDRCooldown == 0 {
		c.IDRCooldown = d.IDRCooldown
	}
	if c.SevereFailureThreshold == 0 {
		c.SevereFailureThreshold = d.SevereFailureThreshold
	}
	if c.NoFramesTimeout == 0 {
		c.NoFramesTimeout = d.NoFramesTimeout
	}
	if c.StaleFrameTimeout == 0 {
		c.StaleFrameTimeout = d.StaleFrameTimeout
	}
	return c
}

func alignUp8(n int) int {
	if n%8 == 0 {
		return n
	}
	return n + (8 - n%8)
}
