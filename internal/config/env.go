// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/o1298098/remote-play-sub005/internal/log"
)

func sourceLog(key, source, value string) {
	lowerKey := strings.ToLower(key)
	display := value
	if strings.Contains(lowerKey, "token") || strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "credential") {
		display = "***"
	}
	log.WithComponent("config").Debug().
		Str("key", key).
		Str("source", source).
		Str("value", display).
		Msg("config value resolved")
}

// ParseString returns the environment override for key, or def if unset.
func ParseString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		sourceLog(key, "environment", v)
		return v
	}
	sourceLog(key, "default", def)
	return def
}

// ParseInt returns the environment override for key parsed as an int, or def
// if unset or unparsable.
func ParseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.WithComponent("config").Warn().
				Str("key", key).
				Str("value", v).
				Err(err).
				Msg("invalid integer env override, using default")
			sourceLog(key, "default", strconv.Itoa(def))
			return def
		}
		sourceLog(key, "environment", v)
		return n
	}
	sourceLog(key, "default", strconv.Itoa(def))
	return def
}

// ParseBool returns the environment override for key parsed as a bool, or def
// if unset or unparsable.
func ParseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.WithComponent("config").Warn().
				Str("key", key).
				Str("value", v).
				Err(err).
				Msg("invalid bool env override, using default")
			sourceLog(key, "default", strconv.FormatBool(def))
			return def
		}
		sourceLog(key, "environment", v)
		return b
	}
	sourceLog(key, "default", strconv.FormatBool(def))
	return def
}
