// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model defines the data types shared across the Remote Play
// streaming core: discovered consoles, registration credentials, the active
// session record, reassembled frames, health snapshots, and the controller
// feedback types. These are plain data; the packages that mutate them own
// the behavior.
package model

import "net"

// HostType distinguishes PS4 from PS5 consoles, whose registration and
// control-channel behavior differ in constants and transport placement.
type HostType string

const (
	HostTypePS4 HostType = "PS4"
	HostTypePS5 HostType = "PS5"
)

// ConsoleStatus is the discovery status token reported by a console.
type ConsoleStatus string

const (
	ConsoleStatusOK      ConsoleStatus = "OK"
	ConsoleStatusStandby ConsoleStatus = "STANDBY"
	ConsoleStatusOffline ConsoleStatus = "OFFLINE"
)

// Console is a discovered peer on the LAN. It is owned by the discovery
// service: created on a broadcast reply, mutated on subsequent probes, and
// discarded when not seen in a scan.
type Console struct {
	IP                      net.IP
	HostID                  string
	HostName                string
	HostType                HostType
	SystemVersion           string
	DiscoverProtocolVersion string
	Status                  ConsoleStatus
}

// IsReachable reports whether the console can accept a registration or
// session-establishment attempt right now.
func (c Console) IsReachable() bool {
	return c.Status == ConsoleStatusOK
}
