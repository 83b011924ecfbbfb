// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reassembler

import (
	"bytes"
	"fmt"

	"github.com/klauspost/reedsolomon"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// recoverSource attempts Reed-Solomon recovery of f's missing source slots
// from whatever src+fec shards have arrived (spec.md §4.7). Shards are
// right-padded to align_up_8(max_payload_len) before reconstruction; a
// recovered source slot is right-trimmed of its padding zeros and written
// back with PutUnit before returning. Returns false if too few shards
// arrived to reconstruct, or reedsolomon itself rejects the codeword.
func recoverSource(f *model.Frame) (bool, error) {
	if f.UnitsFEC == 0 {
		return false, fmt.Errorf("reassembler: frame %d has no FEC shards", f.FrameIndex)
	}

	maxLen := 0
	for _, u := range f.Units {
		if len(u) > maxLen {
			maxLen = len(u)
		}
	}
	shardLen := alignUp8(maxLen)
	if shardLen == 0 {
		return false, fmt.Errorf("reassembler: frame %d has no arrived shards", f.FrameIndex)
	}

	enc, err := reedsolomon.New(int(f.UnitsSrc), int(f.UnitsFEC))
	if err != nil {
		return false, fmt.Errorf("reassembler: construct RS(%d,%d): %w", f.UnitsSrc, f.UnitsFEC, err)
	}

	shards := make([][]byte, len(f.Units))
	for i, u := range f.Units {
		if !f.ReceivedMask[i] {
			continue
		}
		shard := make([]byte, shardLen)
		copy(shard, u)
		shards[i] = shard
	}

	if err := enc.ReconstructData(shards); err != nil {
		return false, fmt.Errorf("reassembler: frame %d RS reconstruct: %w", f.FrameIndex, err)
	}

	for i := 0; i < int(f.UnitsSrc); i++ {
		if f.ReceivedMask[i] {
			continue
		}
		trimmed := bytes.TrimRight(shards[i], "\x00")
		if !f.PutUnit(uint16(i), trimmed) {
			return false, fmt.Errorf("reassembler: frame %d failed to place recovered unit %d", f.FrameIndex, i)
		}
	}
	return true, nil
}
