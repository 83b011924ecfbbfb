// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRumbleParsesFields(t *testing.T) {
	payload := make([]byte, rumbleEventSize)
	payload[0] = 0x00
	payload[1] = 10
	payload[2] = 20
	payload[3] = 30
	payload[4] = 40
	payload[5] = 50
	payload[6] = 60
	payload[7] = 70
	binary.BigEndian.PutUint64(payload[8:16], 123456789)

	ev, err := decodeRumble(payload)
	require.NoError(t, err)
	require.Equal(t, uint8(10), ev.RawLeft)
	require.Equal(t, uint8(20), ev.RawRight)
	require.Equal(t, uint8(30), ev.AdjustedLeft)
	require.Equal(t, uint8(40), ev.AdjustedRight)
	require.Equal(t, uint8(50), ev.Multiplier)
	require.Equal(t, uint8(60), ev.PS5RumbleIntensity)
	require.Equal(t, uint8(70), ev.PS5TriggerIntensity)
	require.Equal(t, int64(123456789), ev.TimestampMicros)
}

func TestDecodeRumbleRejectsShortPayload(t *testing.T) {
	_, err := decodeRumble(make([]byte, rumbleEventSize-1))
	require.Error(t, err)
}
