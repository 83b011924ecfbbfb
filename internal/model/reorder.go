// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// DefaultWindowSize is the negotiated reorder window size when none is
// configured (spec.md §3 suggests 16-64).
const DefaultWindowSize = 32

// ReorderWindow tracks the sliding window of in-flight frames, indexed by
// frame_index and clamped to WindowSize frames ahead of the next-to-emit
// index. The reassembler package owns the behavior built on top of this
// bookkeeping (admission, emission, eviction).
type ReorderWindow struct {
	WindowSize  uint32
	NextToEmit  uint32
	Frames      map[uint32]*Frame
}

// NewReorderWindow constructs an empty window starting at frame index 0.
func NewReorderWindow(windowSize uint32) *ReorderWindow {
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	return &ReorderWindow{
		WindowSize: windowSize,
		Frames:     make(map[uint32]*Frame),
	}
}

// InWindow reports whether frameIndex falls within [NextToEmit, NextToEmit+WindowSize).
func (w *ReorderWindow) InWindow(frameIndex uint32) bool {
	offset := frameIndex - w.NextToEmit
	return offset < w.WindowSize
}

// IsLate reports whether frameIndex is below the window head (already passed).
func (w *ReorderWindow) IsLate(frameIndex uint32) bool {
	return Before(frameIndex, w.NextToEmit)
}

// IsBeyond reports whether frameIndex is more than WindowSize ahead of the head.
func (w *ReorderWindow) IsBeyond(frameIndex uint32) bool {
	return !w.IsLate(frameIndex) && !w.InWindow(frameIndex)
}
