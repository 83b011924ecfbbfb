// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for the Remote Play
// streaming core: the option surface is exactly the table in spec.md §6.4,
// loaded from YAML with environment-variable overrides, and hot-reloaded
// when the backing file changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Discovery covers DDP probe behavior (spec.md §4.1).
type Discovery struct {
	TimeoutMS int `yaml:"timeout_ms"`
	Port      int `yaml:"port"`
}

// Registration covers the PIN-based pairing flow (spec.md §4.2).
type Registration struct {
	TimeoutMS             int `yaml:"timeout_ms"`
	CredentialExpiryDays  int `yaml:"credential_expiry_days"`
}

// TURNServer is one entry in webrtc.turn_servers.
type TURNServer struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Credential string `yaml:"credential"`
}

// WebRTC describes the downstream transport's port range and TURN servers.
// The core never speaks WebRTC itself (it is an external collaborator), but
// carries this configuration through so the Receiver bridge can be wired up
// from the same file.
type WebRTC struct {
	ICEPortMin  int          `yaml:"ice_port_min"`
	ICEPortMax  int          `yaml:"ice_port_max"`
	TURNServers []TURNServer `yaml:"turn_servers"`
}

// Stream covers the negotiated stream defaults (spec.md §6.4).
type Stream struct {
	DefaultResolution   string `yaml:"default_resolution"`
	DefaultFPS          int    `yaml:"default_fps"`
	DefaultBitrateKbps  int    `yaml:"default_bitrate_kbps"`
	Codec               string `yaml:"codec"`
	StallTimeoutMS      int    `yaml:"stall_timeout_ms"`
	ReorderWindowFrames int    `yaml:"reorder_window_frames"`
}

// Logging covers the two diagnostics switches spec.md names explicitly.
type Logging struct {
	EnableDebug       bool `yaml:"enable_debug"`
	LogNetworkTraffic bool `yaml:"log_network_traffic"`
}

// Config is the complete option surface for the core.
type Config struct {
	Discovery    Discovery    `yaml:"discovery"`
	Registration Registration `yaml:"registration"`
	WebRTC       WebRTC       `yaml:"webrtc"`
	Stream       Stream       `yaml:"stream"`
	Logging      Logging      `yaml:"logging"`
}

// Default returns the configuration with every spec.md §6.4 default applied.
func Default() Config {
	return Config{
		Discovery: Discovery{
			TimeoutMS: ParseInt("RP_DISCOVERY_TIMEOUT_MS", 2000),
			Port:      ParseInt("RP_DISCOVERY_PORT", 9302),
		},
		Registration: Registration{
			TimeoutMS:            ParseInt("RP_REGISTRATION_TIMEOUT_MS", 30000),
			CredentialExpiryDays: ParseInt("RP_CREDENTIAL_EXPIRY_DAYS", 30),
		},
		WebRTC: WebRTC{
			ICEPortMin: ParseInt("RP_WEBRTC_ICE_PORT_MIN", 50000),
			ICEPortMax: ParseInt("RP_WEBRTC_ICE_PORT_MAX", 50100),
		},
		Stream: Stream{
			DefaultResolution:   ParseString("RP_STREAM_RESOLUTION", "1080p"),
			DefaultFPS:          ParseInt("RP_STREAM_FPS", 60),
			DefaultBitrateKbps:  ParseInt("RP_STREAM_BITRATE_KBPS", 10000),
			Codec:               ParseString("RP_STREAM_CODEC", "h264"),
			StallTimeoutMS:      ParseInt("RP_STALL_TIMEOUT_MS", 5000),
			ReorderWindowFrames: ParseInt("RP_REORDER_WINDOW", 32),
		},
		Logging: Logging{
			EnableDebug:       ParseBool("RP_LOG_DEBUG", false),
			LogNetworkTraffic: ParseBool("RP_LOG_NETWORK_TRAFFIC", false),
		},
	}
}

// Load reads a YAML config file, starting from Default() and overlaying
// whatever fields the file sets. A missing file is not an error: the
// defaults (with environment overrides already applied) are returned as-is,
// matching the teacher's "auto-load if present" convention.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// StallTimeout returns the configured stall-detection threshold as a Duration.
func (c Config) StallTimeout() time.Duration {
	if c.Stream.StallTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Stream.StallTimeoutMS) * time.Millisecond
}

// DiscoveryTimeout returns the per-interface DDP probe timeout.
func (c Config) DiscoveryTimeout() time.Duration {
	if c.Discovery.TimeoutMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Discovery.TimeoutMS) * time.Millisecond
}

// RegistrationTimeout returns the registration flow timeout.
func (c Config) RegistrationTimeout() time.Duration {
	if c.Registration.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Registration.TimeoutMS) * time.Millisecond
}

// CredentialExpiry returns the credential lifetime as a Duration.
func (c Config) CredentialExpiry() time.Duration {
	days := c.Registration.CredentialExpiryDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}
