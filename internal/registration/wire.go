// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registration

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

const (
	registrationTCPPort = 9295
	registrationUDPPort = 9295
)

func probeRequest(hostType model.HostType) []byte {
	if hostType == model.HostTypePS5 {
		return []byte("SRC3")
	}
	return []byte("SRC2")
}

func expectedProbeReply(hostType model.HostType) string {
	if hostType == model.HostTypePS5 {
		return "RES3"
	}
	return "RES2"
}

func registrationPath(hostType model.HostType) string {
	if hostType == model.HostTypePS5 {
		return "/sie/ps5/rp/sess/rgst"
	}
	return "/sie/ps4/rp/sess/rgst"
}

func rpVersion(hostType model.HostType) string {
	if hostType == model.HostTypePS5 {
		return "1.0"
	}
	return "10.0"
}

// buildHTTPRequest assembles the POST request line and headers described in
// spec.md §6.1, followed by body.
func buildHTTPRequest(hostIP string, hostType model.HostType, body []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", registrationPath(hostType))
	fmt.Fprintf(&b, "HOST: %s\r\n", hostIP)
	b.WriteString("User-Agent: remoteplay Windows\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	fmt.Fprintf(&b, "RP-Version: %s\r\n", rpVersion(hostType))
	b.WriteString("\r\n")
	return append([]byte(b.String()), body...)
}

// httpResponse is the parsed status line, headers, and raw body of a
// registration TCP response.
type httpResponse struct {
	statusLine string
	headers    map[string]string
	body       []byte
}

func readHTTPResponse(r *bufio.Reader) (*httpResponse, error) {
	statusLine, err := readLine(r)
	if err != nil {
		return nil, err
	}
	resp := &httpResponse{statusLine: statusLine, headers: map[string]string{}}
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		resp.headers[key] = value
	}
	n, err := strconv.Atoi(resp.headers["content-length"])
	if err != nil {
		return resp, nil // no body expected
	}
	body := make([]byte, n)
	if _, err := readFull(r, body); err != nil {
		return nil, err
	}
	resp.body = body
	return resp, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// parseKeyValueBody parses the decrypted "key: value\r\n" response body
// (spec.md §4.2 step 7) into a map.
func parseKeyValueBody(body []byte) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(string(body), "\r\n") {
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if key != "" {
			out[key] = value
		}
	}
	return out
}
