// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpsession

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/rpcrypto"
)

const defaultEdgeTimeout = 5 * time.Second

const clientVersion = "1.0.0"

// Establisher drives spec.md §4.3's state machine: INIT → TCP_OPEN →
// NONCE_RECEIVED → LAUNCH_SENT → UDP_BANG → SESSION_READY. Every edge is
// bounded by EdgeTimeout; a timed-out edge drives the session to STOPPING
// and returns a timeout Failure.
type Establisher struct {
	HostIP      string
	HostType    model.HostType
	Creds       model.DeviceCredentials
	Params      model.StreamParams
	EdgeTimeout time.Duration

	tcpPort int // overridable by tests
	udpPort int

	// lastUDPConn is the socket opened by udpBang and reused by
	// waitSessionID: both BANG and the session-id BIG arrive on the same
	// ephemeral UDP port. On success it is handed to the caller in Result
	// for reuse as the Takion transport; Establish closes it only on a
	// failure path.
	lastUDPConn   *net.UDPConn
	remoteUDPAddr *net.UDPAddr

	logger zerolog.Logger
}

// Result bundles everything the stream orchestrator needs to start a
// Takion session after a successful handshake: the populated
// RemoteSession, the derived stream cipher, and the already-bound UDP
// socket (plus the console's observed source address) that received BANG
// and the session-id BIG and will carry every subsequent Takion datagram.
type Result struct {
	Session    *model.RemoteSession
	Cipher     *rpcrypto.StreamCipher
	UDPConn    *net.UDPConn
	RemoteAddr *net.UDPAddr
}

// NewEstablisher constructs an Establisher with the real console ports and
// the default per-edge timeout.
func NewEstablisher(hostIP string, hostType model.HostType, creds model.DeviceCredentials, params model.StreamParams) *Establisher {
	return &Establisher{
		HostIP:      hostIP,
		HostType:    hostType,
		Creds:       creds,
		Params:      params,
		EdgeTimeout: defaultEdgeTimeout,
		tcpPort:     controlTCPPort,
		udpPort:     bangUDPPort,
		logger:      log.WithComponent("rpsession"),
	}
}

func (e *Establisher) edgeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(e.EdgeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

// Establish runs the full handshake and returns a Result carrying the
// populated RemoteSession (state SESSION_READY, ready signal fired), the
// derived StreamCipher, and the live UDP socket the orchestrator must reuse
// as the Takion transport. On any failure path the UDP socket, if opened,
// is closed before returning.
func (e *Establisher) Establish(ctx context.Context, sessionUUID string) (Result, error) {
	sess := model.NewRemoteSession(sessionUUID, e.HostIP, e.HostType)
	sess.HostID = e.Creds.HostID
	sess.Params = e.Params

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(e.HostIP, itoa(e.tcpPort)), e.EdgeTimeout)
	if err != nil {
		sess.State = model.SessionStopping
		if isTimeoutErr(err) {
			return Result{Session: sess}, newFailure("timeout", "tcp dial", err)
		}
		return Result{Session: sess}, newFailure("io_error", "tcp dial", err)
	}
	defer conn.Close()
	sess.State = model.SessionTCPOpen

	nonce, err := e.exchangeNonce(ctx, conn)
	if err != nil {
		sess.State = model.SessionStopping
		return Result{Session: sess}, err
	}
	sess.State = model.SessionNonceReceived

	var handshakeKey [16]byte
	if _, err := rand.Read(handshakeKey[:]); err != nil {
		sess.State = model.SessionStopping
		return Result{Session: sess}, newFailure("io_error", "handshake key generation", err)
	}
	sess.HandshakeKey = handshakeKey

	ecdh, err := rpcrypto.GenerateECDHKeyPair()
	if err != nil {
		sess.State = model.SessionStopping
		return Result{Session: sess}, newFailure("protocol_error", "ecdh keygen", err)
	}
	sig := ecdh.Sign(handshakeKey[:])

	big := BuildBigPayloadRaw(clientVersion, e.Creds.ServerKey[:], e.Params, handshakeKey, ecdh.PublicKeyUncompressed(), sig)

	if err := e.sendLaunchSpec(ctx, conn, nonce, big); err != nil {
		sess.State = model.SessionStopping
		return Result{Session: sess}, err
	}
	sess.State = model.SessionLaunchSent

	remotePub, remoteSig, err := e.udpBang(ctx)
	if err != nil {
		sess.State = model.SessionStopping
		return Result{Session: sess}, err
	}
	// From here on every failure path must close e.lastUDPConn itself:
	// only the success path hands it to the caller.
	remotePubKey, err := rpcrypto.VerifyRemotePublicKey(handshakeKey[:], remotePub, remoteSig)
	if err != nil {
		e.lastUDPConn.Close()
		sess.State = model.SessionStopping
		return Result{Session: sess}, newFailure("auth_error", "bang signature verification", err)
	}
	secret := ecdh.SharedSecret(remotePubKey)
	sess.Secret = secret
	sess.State = model.SessionUDPBang

	cipher, err := rpcrypto.NewStreamCipher(handshakeKey, secret)
	if err != nil {
		e.lastUDPConn.Close()
		sess.State = model.SessionStopping
		return Result{Session: sess}, newFailure("protocol_error", "stream cipher derivation", err)
	}

	sessionID, err := e.waitSessionID(ctx)
	if err != nil {
		e.lastUDPConn.Close()
		sess.State = model.SessionStopping
		return Result{Session: sess}, err
	}
	sess.SessionID = sessionID
	sess.State = model.SessionReady
	sess.SignalReady()

	// The socket now carries no read deadline: the Takion receive loop
	// owns it for the lifetime of the stream.
	_ = e.lastUDPConn.SetDeadline(time.Time{})

	e.logger.Info().Str("session_id", sessionUUID).Msg("session established")
	return Result{Session: sess, Cipher: cipher, UDPConn: e.lastUDPConn, RemoteAddr: e.remoteUDPAddr}, nil
}

func (e *Establisher) exchangeNonce(ctx context.Context, conn net.Conn) ([16]byte, error) {
	var nonce [16]byte
	_ = conn.SetDeadline(e.edgeDeadline(ctx))

	req := buildSessionGetRequest(e.HostIP, e.HostType, e.Creds)
	if _, err := conn.Write(req); err != nil {
		return nonce, newFailure("io_error", "write session get", err)
	}
	resp, err := readHTTPResponse(bufio.NewReader(conn))
	if err != nil {
		if isTimeoutErr(err) {
			return nonce, newFailure("timeout", "read session get response", err)
		}
		return nonce, newFailure("io_error", "read session get response", err)
	}
	if resp.statusLine == "" || !strings.Contains(resp.statusLine, "200") {
		return nonce, newFailure("protocol_error", "unexpected status: "+resp.statusLine, nil)
	}
	nonceB64, ok := resp.headers["rp-nonce"]
	if !ok {
		return nonce, newFailure("protocol_error", "missing rp-nonce header", nil)
	}
	decoded, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(decoded) != 16 {
		return nonce, newFailure("protocol_error", "malformed rp-nonce header", err)
	}
	copy(nonce[:], decoded)
	return nonce, nil
}

func (e *Establisher) sendLaunchSpec(ctx context.Context, conn net.Conn, nonce [16]byte, big []byte) error {
	hmacKey, err := rpcrypto.DeriveHostHMACKey(e.Creds.ServerKey[:], e.HostIP)
	if err != nil {
		return newFailure("protocol_error", "hmac key derivation", err)
	}
	ciphertext, err := rpcrypto.EncryptPSNHeader(e.Creds.ServerKey, hmacKey, nonce, 0, string(big))
	if err != nil {
		return newFailure("protocol_error", "launch spec encryption", err)
	}

	_ = conn.SetDeadline(e.edgeDeadline(ctx))
	req := buildSessionCtrlRequest(e.HostIP, e.HostType, ciphertext)
	if _, err := conn.Write(req); err != nil {
		return newFailure("io_error", "write session ctrl", err)
	}
	resp, err := readHTTPResponse(bufio.NewReader(conn))
	if err != nil {
		if isTimeoutErr(err) {
			return newFailure("timeout", "read session ctrl response", err)
		}
		return newFailure("io_error", "read session ctrl response", err)
	}
	if !strings.Contains(resp.statusLine, "200") {
		return newFailure("protocol_error", "unexpected ctrl status: "+resp.statusLine, nil)
	}
	return nil
}

// udpBang opens the UDP channel, waits for the console's BANG, and returns
// its ECDH public key and signature (spec.md §4.3 step 5). It does not send
// a BANG of its own: the client's public key already traveled in the ctrl
// POST body.
func (e *Establisher) udpBang(ctx context.Context) (remotePub, remoteSig []byte, err error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: e.udpPort})
	if err != nil {
		return nil, nil, newFailure("io_error", "udp listen", err)
	}
	// conn stays open for waitSessionID, which reuses it for the
	// session-id BIG that follows BANG on the same socket; Establish
	// closes it if a later step fails and otherwise hands it to the caller
	// in Result.
	_ = conn.SetDeadline(e.edgeDeadline(ctx))

	buf := make([]byte, 256)
	n, from, err := conn.ReadFromUDP(buf)
	if err != nil {
		conn.Close()
		return nil, nil, newFailure("timeout", "no bang received", err)
	}
	pub, sig, perr := parseBangMessage(buf[:n])
	if perr != nil {
		conn.Close()
		return nil, nil, newFailure("protocol_error", "malformed bang", perr)
	}
	e.lastUDPConn = conn
	e.remoteUDPAddr = from
	return pub, sig, nil
}

// waitSessionID blocks for the UDP BIG message carrying the 16-byte session
// id (spec.md §4.3 step 7), reusing the socket opened by udpBang.
func (e *Establisher) waitSessionID(ctx context.Context) ([16]byte, error) {
	var sessionID [16]byte
	if e.lastUDPConn == nil {
		return sessionID, newFailure("protocol_error", "no udp socket open", nil)
	}
	_ = e.lastUDPConn.SetDeadline(e.edgeDeadline(ctx))
	buf := make([]byte, 32)
	n, _, err := e.lastUDPConn.ReadFromUDP(buf)
	if err != nil {
		return sessionID, newFailure("timeout", "no session-id bang received", err)
	}
	return parseBigSessionID(buf[:n])
}

func isTimeoutErr(err error) bool {
	type timeoutErr interface{ Timeout() bool }
	te, ok := err.(timeoutErr)
	return ok && te.Timeout()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
