// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpsession

import (
	"encoding/binary"
	"fmt"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// codecByte maps a negotiated codec to the wire enum used in the BIG launch
// spec (spec.md §4.8's stream_type: 1=h264, 2=hevc, 3=hevc+hdr).
func codecByte(p model.StreamParams) byte {
	switch {
	case p.Codec == model.CodecHEVC && p.HDR:
		return 3
	case p.Codec == model.CodecHEVC:
		return 2
	default:
		return 1
	}
}

func putLenPrefixed(dst []byte, offset int, data []byte) int {
	binary.BigEndian.PutUint16(dst[offset:], uint16(len(data)))
	offset += 2
	copy(dst[offset:], data)
	return offset + len(data)
}

// BuildBigPayloadRaw assembles the flat binary BIG payload sent in the
// session-control POST body (spec.md §4.3 step 4): client version, session
// key, launch spec, encryption key, and the local ECDH public key and
// signature, each length-prefixed except the fixed-size encryption key.
func BuildBigPayloadRaw(clientVersion string, sessionKey []byte, launchSpec model.StreamParams, encKey [16]byte, ecdhPub, ecdhSig []byte) []byte {
	size := 2 + len(clientVersion) +
		2 + len(sessionKey) +
		2 + len(launchSpec.Resolution) + 4 + 4 + 1 + 1 +
		16 +
		2 + len(ecdhPub) +
		2 + len(ecdhSig)

	out := make([]byte, size)
	off := 0
	off = putLenPrefixed(out, off, []byte(clientVersion))
	off = putLenPrefixed(out, off, sessionKey)

	off = putLenPrefixed(out, off, []byte(launchSpec.Resolution))
	binary.BigEndian.PutUint32(out[off:], uint32(launchSpec.FPS))
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(launchSpec.BitrateKbps))
	off += 4
	out[off] = codecByte(launchSpec)
	off++
	if launchSpec.HDR {
		out[off] = 1
	}
	off++

	off += copy(out[off:], encKey[:])

	off = putLenPrefixed(out, off, ecdhPub)
	_ = putLenPrefixed(out, off, ecdhSig)

	return out
}

func readLenPrefixed(src []byte, offset int) ([]byte, int, error) {
	if offset+2 > len(src) {
		return nil, 0, fmt.Errorf("rpsession: truncated length prefix at %d", offset)
	}
	n := int(binary.BigEndian.Uint16(src[offset:]))
	offset += 2
	if offset+n > len(src) {
		return nil, 0, fmt.Errorf("rpsession: truncated field at %d (len %d)", offset, n)
	}
	return src[offset : offset+n], offset + n, nil
}

// parsedBigPayload is BuildBigPayloadRaw's inverse, used by tests standing
// in for the console side of the handshake.
type parsedBigPayload struct {
	clientVersion string
	sessionKey    []byte
	resolution    string
	fps           int
	bitrateKbps   int
	codec         byte
	hdr           bool
	encKey        [16]byte
	ecdhPub       []byte
	ecdhSig       []byte
}

func parseBigPayloadRaw(data []byte) (*parsedBigPayload, error) {
	var p parsedBigPayload
	var field []byte
	var off int
	var err error

	if field, off, err = readLenPrefixed(data, 0); err != nil {
		return nil, err
	}
	p.clientVersion = string(field)

	if field, off, err = readLenPrefixed(data, off); err != nil {
		return nil, err
	}
	p.sessionKey = field

	if field, off, err = readLenPrefixed(data, off); err != nil {
		return nil, err
	}
	p.resolution = string(field)

	if off+4+4+1+1+16 > len(data) {
		return nil, fmt.Errorf("rpsession: truncated launch spec")
	}
	p.fps = int(binary.BigEndian.Uint32(data[off:]))
	off += 4
	p.bitrateKbps = int(binary.BigEndian.Uint32(data[off:]))
	off += 4
	p.codec = data[off]
	off++
	p.hdr = data[off] != 0
	off++
	copy(p.encKey[:], data[off:off+16])
	off += 16

	if field, off, err = readLenPrefixed(data, off); err != nil {
		return nil, err
	}
	p.ecdhPub = field

	if field, _, err = readLenPrefixed(data, off); err != nil {
		return nil, err
	}
	p.ecdhSig = field

	return &p, nil
}
