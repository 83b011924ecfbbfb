// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package codec

// PassthroughAudio returns audio units concatenated with no framing applied.
// Opus and AAC packets are delivered to the Receiver exactly as the console
// sent them (spec.md §4.8): there is no start-code or length-prefix
// transform analogous to Annex-B for either codec.
func PassthroughAudio(units [][]byte) []byte {
	total := 0
	for _, u := range units {
		total += len(u)
	}
	out := make([]byte, 0, total)
	for _, u := range units {
		out = append(out, u...)
	}
	return out
}
