// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registration

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func TestBuildHTTPRequestPS4(t *testing.T) {
	req := buildHTTPRequest("10.0.2.15", model.HostTypePS4, []byte("body-bytes"))
	s := string(req)
	require.Contains(t, s, "POST /sie/ps4/rp/sess/rgst HTTP/1.1\r\n")
	require.Contains(t, s, "HOST: 10.0.2.15\r\n")
	require.Contains(t, s, "RP-Version: 10.0\r\n")
	require.Contains(t, s, "Content-Length: 10\r\n")
	require.True(t, strings.HasSuffix(s, "body-bytes"))
}

func TestBuildHTTPRequestPS5UsesRPVersion1(t *testing.T) {
	req := buildHTTPRequest("10.0.2.15", model.HostTypePS5, nil)
	require.Contains(t, string(req), "RP-Version: 1.0\r\n")
	require.Contains(t, string(req), "POST /sie/ps5/rp/sess/rgst HTTP/1.1\r\n")
}

func TestReadHTTPResponseParsesStatusHeadersAndBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	resp, err := readHTTPResponse(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200 OK", resp.statusLine)
	require.Equal(t, "5", resp.headers["content-length"])
	require.Equal(t, []byte("hello"), resp.body)
}

func TestParseKeyValueBody(t *testing.T) {
	fields := parseKeyValueBody([]byte("host-id: H1\r\nrp-key: aabbcc\r\n"))
	require.Equal(t, "H1", fields["host-id"])
	require.Equal(t, "aabbcc", fields["rp-key"])
}

func TestClassifyHTTPFailure(t *testing.T) {
	require.Nil(t, classifyHTTPFailure("HTTP/1.1 200 OK"))

	f := classifyHTTPFailure("HTTP/1.1 400 Bad Request")
	require.NotNil(t, f)
	require.Equal(t, "bad_pin", f.Kind())

	f = classifyHTTPFailure("HTTP/1.1 500 Internal Server Error")
	require.NotNil(t, f)
	require.Equal(t, "protocol_error", f.Kind())
}
