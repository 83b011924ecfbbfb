// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reassembler

import (
	"testing"
	"time"

	"github.com/klauspost/reedsolomon"
	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func TestPutUnitEmitsOnSourceComplete(t *testing.T) {
	r := New("sess-1", DefaultConfig(), nil, nil)
	now := time.Now()

	emissions := r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("ab"), Arrival: now})
	require.Empty(t, emissions)

	emissions = r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 1, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("cd"), Arrival: now})
	require.Len(t, emissions, 1)
	require.Equal(t, model.FrameSucceeded, emissions[0].Outcome)
	require.Equal(t, []byte("abcd"), emissions[0].Payload)
}

func TestPutUnitOutOfOrderUnitsWithinFrame(t *testing.T) {
	r := New("sess-2", DefaultConfig(), nil, nil)
	now := time.Now()

	r.PutUnit(Unit{FrameIndex: 5, UnitIndex: 2, UnitsSrc: 3, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("ghi"), Arrival: now})
	r.PutUnit(Unit{FrameIndex: 5, UnitIndex: 0, UnitsSrc: 3, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("abc"), Arrival: now})
	emissions := r.PutUnit(Unit{FrameIndex: 5, UnitIndex: 1, UnitsSrc: 3, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("def"), Arrival: now})
	require.Len(t, emissions, 1)
	require.Equal(t, []byte("abcdefghi"), emissions[0].Payload)
}

func TestPutUnitEmitsInOrderAcrossMultipleFrames(t *testing.T) {
	r := New("sess-3", DefaultConfig(), nil, nil)
	now := time.Now()

	r.PutUnit(Unit{FrameIndex: 1, UnitIndex: 0, UnitsSrc: 1, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("B"), Arrival: now})
	emissions := r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 1, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("A"), Arrival: now})
	require.Len(t, emissions, 2)
	require.Equal(t, uint32(0), emissions[0].FrameIndex)
	require.Equal(t, uint32(1), emissions[1].FrameIndex)
}

func TestPutUnitLateFrameDropped(t *testing.T) {
	r := New("sess-4", DefaultConfig(), nil, nil)
	now := time.Now()

	emissions := r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 1, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("x"), Arrival: now})
	require.Len(t, emissions, 1)

	late := r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 1, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("y"), Arrival: now})
	require.Empty(t, late)
}

func TestPutUnitBeyondWindowAdvancesAndDropsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 1
	var idrCalls int
	r := New("sess-5", cfg, func() { idrCalls++ }, nil)
	now := time.Now()

	// Frame 0 partially arrives but never completes.
	r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("a"), Arrival: now})

	// With a window of size 1, frame 10 is beyond head+1; admitting it must
	// advance the head straight to 10 (dropping frame 0 along the way) and
	// then emit frame 10 itself, since it is now the sole in-window slot
	// and already complete.
	emissions := r.PutUnit(Unit{FrameIndex: 10, UnitIndex: 0, UnitsSrc: 1, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("z"), Arrival: now})
	require.Len(t, emissions, 1)
	require.Equal(t, uint32(10), emissions[0].FrameIndex)
	require.Equal(t, model.FrameSucceeded, emissions[0].Outcome)
	require.Greater(t, idrCalls, 0)
}

// buildRSShards encodes unitsSrc source payloads (padded to a common,
// align_up_8'd length) into unitsSrc+unitsFEC shards via the same
// reedsolomon codec the package uses to decode, mirroring how a real
// console-side encoder would produce FEC shards.
func buildRSShards(t *testing.T, payloads [][]byte, unitsFEC int) [][]byte {
	t.Helper()
	maxLen := 0
	for _, p := range payloads {
		if len(p) > maxLen {
			maxLen = len(p)
		}
	}
	shardLen := alignUp8(maxLen)

	enc, err := reedsolomon.New(len(payloads), unitsFEC)
	require.NoError(t, err)

	shards := make([][]byte, len(payloads)+unitsFEC)
	for i, p := range payloads {
		s := make([]byte, shardLen)
		copy(s, p)
		shards[i] = s
	}
	for i := len(payloads); i < len(shards); i++ {
		shards[i] = make([]byte, shardLen)
	}
	require.NoError(t, enc.Encode(shards))
	return shards
}

func TestPutUnitRecoversMissingSourceViaFEC(t *testing.T) {
	payloads := [][]byte{[]byte("AAAA"), []byte("BBBB"), []byte("CCCC")}
	shards := buildRSShards(t, payloads, 1)

	r := New("sess-6", DefaultConfig(), nil, nil)
	now := time.Now()

	// Unit 1 (source) is lost; deliver units 0, 2 at their real wire length
	// (unpadded) plus the fec shard (already shard-length by construction,
	// same as it would arrive over the wire from a real FEC encoder).
	r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 3, UnitsFEC: 1, Codec: model.FrameCodecOpus, Payload: payloads[0], Arrival: now})
	r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 2, UnitsSrc: 3, UnitsFEC: 1, Codec: model.FrameCodecOpus, Payload: payloads[2], Arrival: now})
	emissions := r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 3, UnitsSrc: 3, UnitsFEC: 1, Codec: model.FrameCodecOpus, Payload: shards[3], Arrival: now})

	require.Len(t, emissions, 1)
	require.Equal(t, model.FrameRecovered, emissions[0].Outcome)
	require.Equal(t, []byte("AAAABBBBCCCC"), emissions[0].Payload)
}

func TestPutUnitEscalatesAfterConsecutiveSevereFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 2
	cfg.SevereFailureThreshold = 2
	cfg.IDRCooldown = 0
	var emergencyCalls int
	r := New("sess-7", cfg, nil, func() { emergencyCalls++ })
	now := time.Now()

	// Drive two consecutive forced drops via window-advance eviction.
	r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("a"), Arrival: now})
	r.PutUnit(Unit{FrameIndex: 5, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("b"), Arrival: now})
	r.PutUnit(Unit{FrameIndex: 10, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("c"), Arrival: now})

	require.Greater(t, emergencyCalls, 0)
}

func TestTickEvictsStaleHeadFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaleFrameTimeout = 10 * time.Millisecond
	r := New("sess-8", cfg, nil, nil)
	now := time.Now()

	r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("a"), Arrival: now})

	emissions := r.Tick(now.Add(20 * time.Millisecond))
	require.Len(t, emissions, 1)
	require.Equal(t, model.FrameDropped, emissions[0].Outcome)
}

func TestPendingCountReflectsBufferedFrames(t *testing.T) {
	r := New("sess-9", DefaultConfig(), nil, nil)
	now := time.Now()
	r.PutUnit(Unit{FrameIndex: 0, UnitIndex: 0, UnitsSrc: 2, UnitsFEC: 0, Codec: model.FrameCodecOpus, Payload: []byte("a"), Arrival: now})
	require.Equal(t, 1, r.PendingCount())
}
