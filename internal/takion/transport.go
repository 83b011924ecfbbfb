// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package takion

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/metrics"
	"github.com/o1298098/remote-play-sub005/internal/rpcrypto"
)

// Conn is the single UDP socket shared by every Takion message type for one
// session. Sending is serialized by sendMu so key_pos advances exactly once
// per message; receiving has no shared mutable state beyond the GMAC
// keyring inside StreamCipher.Remote, which is itself internally
// synchronized.
type Conn struct {
	udp        *net.UDPConn
	remoteAddr *net.UDPAddr
	cipher     *rpcrypto.StreamCipher
	sessionID  string

	sendMu     sync.Mutex
	sendKeyPos uint32

	authFailures atomic.Uint64

	logger zerolog.Logger
}

// NewConn wraps an already-bound UDP socket and a session's derived stream
// cipher into a Takion transport. sessionID labels the auth-failure metric.
func NewConn(udp *net.UDPConn, remoteAddr *net.UDPAddr, cipher *rpcrypto.StreamCipher, sessionID string) *Conn {
	return &Conn{
		udp:        udp,
		remoteAddr: remoteAddr,
		cipher:     cipher,
		sessionID:  sessionID,
		logger:     log.WithComponent("takion"),
	}
}

// Send encrypts and writes one message, advancing the local key_pos by
// len(plaintext) on success (spec.md §4.4 step 4). It does not advance
// key_pos on write failure, since the datagram never reached the wire.
// The full read-encode-write-advance sequence runs under sendMu so
// concurrent callers (heartbeat, feedback, keyframe requests, BYE on Stop)
// never encode two messages against the same key_pos.
func (c *Conn) Send(msgType MessageType, plaintext []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	keyPos := c.sendKeyPos
	wire, err := Encode(c.cipher.Local, msgType, keyPos, plaintext)
	if err != nil {
		return err
	}
	if _, err := c.udp.WriteToUDP(wire, c.remoteAddr); err != nil {
		return err
	}

	c.sendKeyPos = keyPos + uint32(len(plaintext))
	return nil
}

// Receive reads and authenticates one datagram into buf. On GMAC mismatch
// it counts the failure and returns the wrapped error; the caller should
// drop the packet and keep reading, per spec.md §4.4 step 2.
func (c *Conn) Receive(buf []byte) (*Message, error) {
	n, _, err := c.udp.ReadFromUDP(buf)
	if err != nil {
		return nil, err
	}
	msg, err := Decode(c.cipher.Remote, buf[:n])
	if err != nil {
		c.authFailures.Add(1)
		metrics.RecordAuthFailure(c.sessionID)
		return nil, err
	}
	return msg, nil
}

// AuthFailures returns the count of GMAC mismatches observed on Receive.
func (c *Conn) AuthFailures() uint64 { return c.authFailures.Load() }

// SetReadDeadline bounds the next Receive call, letting a cooperatively
// cancelled receive loop poll its context instead of blocking forever on
// the socket.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.udp.SetReadDeadline(t) }

// Close releases the underlying socket.
func (c *Conn) Close() error { return c.udp.Close() }
