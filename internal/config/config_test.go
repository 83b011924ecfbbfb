// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, 9302, cfg.Discovery.Port)
	require.Equal(t, "h264", cfg.Stream.Codec)
	require.Equal(t, 30, cfg.Registration.CredentialExpiryDays)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	const yamlBody = `
stream:
  default_resolution: "720p"
  default_fps: 30
  codec: hevc
discovery:
  port: 9303
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "720p", cfg.Stream.DefaultResolution)
	require.Equal(t, 30, cfg.Stream.DefaultFPS)
	require.Equal(t, "hevc", cfg.Stream.Codec)
	require.Equal(t, 9303, cfg.Discovery.Port)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{
		Stream:       Stream{StallTimeoutMS: 7500},
		Discovery:    Discovery{TimeoutMS: 1500},
		Registration: Registration{TimeoutMS: 20000, CredentialExpiryDays: 14},
	}
	require.Equal(t, 7500*time.Millisecond, cfg.StallTimeout())
	require.Equal(t, 1500*time.Millisecond, cfg.DiscoveryTimeout())
	require.Equal(t, 20000*time.Millisecond, cfg.RegistrationTimeout())
	require.Equal(t, 14*24*time.Hour, cfg.CredentialExpiry())
}

func TestDurationHelpersFallBackWhenZero(t *testing.T) {
	var cfg Config
	require.Equal(t, 5*time.Second, cfg.StallTimeout())
	require.Equal(t, 2*time.Second, cfg.DiscoveryTimeout())
	require.Equal(t, 30*time.Second, cfg.RegistrationTimeout())
	require.Equal(t, 30*24*time.Hour, cfg.CredentialExpiry())
}
