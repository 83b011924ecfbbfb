// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpsession

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func TestBuildSessionGetRequest(t *testing.T) {
	creds := model.DeviceCredentials{HostID: "AABBCC", RegistrationKey: [16]byte{1, 2, 3}}
	req := buildSessionGetRequest("10.0.2.15", model.HostTypePS4, creds)
	s := string(req)
	require.Contains(t, s, "GET /sce/rp/session HTTP/1.1\r\n")
	require.Contains(t, s, "RP-Version: 10.0\r\n")
	require.Contains(t, s, "RP-Did: AABBCC\r\n")
	require.Contains(t, s, "RP-RegistKey: 01020300000000000000000000000000\r\n")
}

func TestBuildSessionCtrlRequest(t *testing.T) {
	req := buildSessionCtrlRequest("10.0.2.15", model.HostTypePS5, []byte("ctrl-body"))
	s := string(req)
	require.Contains(t, s, "POST /sce/rp/session/ctrl HTTP/1.1\r\n")
	require.Contains(t, s, "RP-Version: 1.0\r\n")
	require.Contains(t, s, "Content-Length: 9\r\n")
	require.True(t, strings.HasSuffix(s, "ctrl-body"))
}

func TestReadHTTPResponseWithNonceHeader(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nRP-Nonce: AAAAAAAAAAAAAAAAAAAAAA==\r\nContent-Length: 0\r\n\r\n"
	resp, err := readHTTPResponse(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200 OK", resp.statusLine)
	require.Equal(t, "AAAAAAAAAAAAAAAAAAAAAA==", resp.headers["rp-nonce"])
}
