// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registration

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/rpcrypto"
)

const probeTimeout = 3 * time.Second
const maxTimeoutRetries = 3

// Request describes the pairing attempt: everything turn(host_ip, host_type,
// account_id, pin) into durable credentials needs (spec.md §4.2).
type Request struct {
	HostIP         string
	HostType       model.HostType
	AccountIDBase64 string
	PIN            string
}

// Client runs the registration flow over TCP/UDP 9295.
type Client struct {
	timeout          time.Duration
	credentialExpiry time.Duration

	// tcpPort/udpPort default to 9295 (the real console port); tests
	// override them to point at a local fake console.
	tcpPort int
	udpPort int
}

// NewClient constructs a registration Client.
func NewClient(timeout, credentialExpiry time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if credentialExpiry <= 0 {
		credentialExpiry = 30 * 24 * time.Hour
	}
	return &Client{
		timeout:          timeout,
		credentialExpiry: credentialExpiry,
		tcpPort:          registrationTCPPort,
		udpPort:          registrationUDPPort,
	}
}

// Register runs the full flow, making up to 3 attempts and retrying only
// after a timeout failure (spec.md §4.2's failure taxonomy and retry policy).
func (c *Client) Register(ctx context.Context, req Request) (model.DeviceCredentials, error) {
	logger := log.WithComponent("registration")

	var lastErr error
	for attempt := 1; attempt <= maxTimeoutRetries; attempt++ {
		creds, err := c.registerOnce(ctx, req)
		if err == nil {
			log.AuditInfo(ctx, "registration_success", "registration succeeded", map[string]any{
				"host_id": creds.HostID,
				"attempt": attempt,
			})
			return creds, nil
		}
		lastErr = err
		if !isRetryable(err) {
			log.AuditInfo(ctx, "registration_failure", "registration failed", map[string]any{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return model.DeviceCredentials{}, err
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("registration timed out, retrying")
	}
	return model.DeviceCredentials{}, lastErr
}

func isRetryable(err error) bool {
	f, ok := err.(*Failure)
	return ok && f.Kind() == "timeout"
}

func (c *Client) registerOnce(ctx context.Context, req Request) (model.DeviceCredentials, error) {
	if err := c.probe(ctx, req.HostIP, req.HostType); err != nil {
		return model.DeviceCredentials{}, err
	}

	key0, err := rpcrypto.DeriveKey0(req.HostType, req.PIN)
	if err != nil {
		return model.DeviceCredentials{}, newFailure("protocol_error", "key0 derivation", err)
	}
	nonce, err := rpcrypto.GenerateNonce()
	if err != nil {
		return model.DeviceCredentials{}, newFailure("io_error", "nonce generation", err)
	}
	key1 := rpcrypto.DeriveKey1(req.HostType, nonce)
	payload := rpcrypto.BuildRegistrationPayload(key1)

	hmacKey, err := rpcrypto.DeriveHostHMACKey(key0[:], req.HostIP)
	if err != nil {
		return model.DeviceCredentials{}, newFailure("protocol_error", "hmac key derivation", err)
	}

	header := fmt.Sprintf("Client-Type: dabfa2ec\r\nNp-AccountId: %s\r\n", req.AccountIDBase64)
	ciphertext, err := rpcrypto.EncryptPSNHeader(key0, hmacKey, nonce, 0, header)
	if err != nil {
		return model.DeviceCredentials{}, newFailure("protocol_error", "psn header encryption", err)
	}

	body := append(append([]byte(nil), payload[:]...), ciphertext...)
	request := buildHTTPRequest(req.HostIP, req.HostType, body)

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(req.HostIP, fmt.Sprintf("%d", c.tcpPort)), c.timeout)
	if err != nil {
		if isTimeoutErr(err) {
			return model.DeviceCredentials{}, newFailure("timeout", "tcp dial", err)
		}
		return model.DeviceCredentials{}, newFailure("io_error", "tcp dial", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(request); err != nil {
		return model.DeviceCredentials{}, newFailure("io_error", "write request", err)
	}

	resp, err := readHTTPResponse(bufio.NewReader(conn))
	if err != nil {
		if isTimeoutErr(err) {
			return model.DeviceCredentials{}, newFailure("timeout", "read response", err)
		}
		return model.DeviceCredentials{}, newFailure("io_error", "read response", err)
	}
	if f := classifyHTTPFailure(resp.statusLine); f != nil {
		return model.DeviceCredentials{}, f
	}

	plaintext, err := rpcrypto.DecryptPSNBody(key0, hmacKey, nonce, 1, resp.body)
	if err != nil {
		return model.DeviceCredentials{}, newFailure("protocol_error", "response decryption", err)
	}
	fields := parseKeyValueBody(plaintext)

	hostID, ok := fields["host-id"]
	if !ok {
		return model.DeviceCredentials{}, newFailure("protocol_error", "missing host-id in response", nil)
	}

	creds := model.DeviceCredentials{
		AccountID: req.AccountIDBase64,
		HostID:    hostID,
		HostIP:    req.HostIP,
		CreatedAt: time.Now(),
	}
	creds.ExpiresAt = creds.CreatedAt.Add(c.credentialExpiry)

	if regKeyHex, ok := fields["rp-regist-key"]; ok {
		if err := decodeHexInto(creds.RegistrationKey[:], regKeyHex); err != nil {
			return model.DeviceCredentials{}, newFailure("protocol_error", "malformed rp-regist-key", err)
		}
	}
	if serverKeyHex, ok := fields["rp-key"]; ok {
		if err := decodeHexInto(creds.ServerKey[:], serverKeyHex); err != nil {
			return model.DeviceCredentials{}, newFailure("protocol_error", "malformed rp-key", err)
		}
	}

	return creds, nil
}

func decodeHexInto(dst []byte, s string) error {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	n := copy(dst, decoded)
	if n != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), n)
	}
	return nil
}

// probe sends SRC2/SRC3 to console:9295 and expects RES2/RES3 within
// probeTimeout.
func (c *Client) probe(ctx context.Context, hostIP string, hostType model.HostType) error {
	addr := net.JoinHostPort(hostIP, fmt.Sprintf("%d", c.udpPort))
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return newFailure("protocol_error", "resolve udp address", err)
	}

	conn, err := net.DialUDP("udp4", nil, udpAddr)
	if err != nil {
		return newFailure("io_error", "udp dial", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(probeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(probeRequest(hostType)); err != nil {
		return newFailure("io_error", "udp probe send", err)
	}

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		return newFailure("timeout", "no registration probe reply", ErrDeviceNotRegistering)
	}
	if !strings.HasPrefix(string(buf[:n]), expectedProbeReply(hostType)) {
		return newFailure("protocol_error", "unexpected probe reply", nil)
	}
	return nil
}

func isTimeoutErr(err error) bool {
	type timeoutErr interface{ Timeout() bool }
	te, ok := err.(timeoutErr)
	return ok && te.Timeout()
}
