// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package discovery implements the Device Discovery Protocol (DDP): a UDP
// broadcast/unicast probe on port 9302 that collects ASCII replies on port
// 9303 describing consoles reachable on the LAN.
package discovery

import (
	"bufio"
	"net"
	"strings"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

const (
	protocolVersion = "00030010"
	replyPort       = 9303
)

// buildProbe returns the fixed DDP probe body (spec.md §6.1). The probe is
// host-type-agnostic: it asks "what's out there", not "are you a PS4/PS5".
func buildProbe() []byte {
	return []byte("SRC2 0x" + protocolVersion + " 0x00000000\n" +
		"device-discovery-protocol-version: " + protocolVersion + "\n")
}

// parseReply parses an ASCII HTTP-like DDP reply into a Console. It returns
// ok=false if the reply does not look like a DDP response at all (malformed
// or unrelated traffic on the reply port).
func parseReply(ip net.IP, data []byte) (model.Console, bool) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return model.Console{}, false
	}
	statusLine := scanner.Text()
	status := statusFromLine(statusLine)
	if status == "" {
		return model.Console{}, false
	}

	c := model.Console{
		IP:                      ip,
		DiscoverProtocolVersion: protocolVersion,
		Status:                  status,
	}

	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := splitHeader(line)
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "host-id":
			c.HostID = value
		case "host-name":
			c.HostName = value
		case "host-type":
			c.HostType = model.HostType(value)
		case "system-version":
			c.SystemVersion = value
		}
	}

	if c.HostID == "" {
		return model.Console{}, false
	}
	return c, true
}

func statusFromLine(line string) model.ConsoleStatus {
	switch {
	case strings.Contains(line, "200 OK"):
		return model.ConsoleStatusOK
	case strings.Contains(line, "620") && strings.Contains(strings.ToLower(line), "standby"):
		return model.ConsoleStatusStandby
	default:
		return ""
	}
}

func splitHeader(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	return key, value, key != "" && value != ""
}
