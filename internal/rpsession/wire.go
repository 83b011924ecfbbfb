// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rpsession

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

const (
	controlTCPPort = 9295
	bangUDPPort    = 9296
)

func sessionPath(hostType model.HostType) string {
	return "/sce/rp/session"
}

func sessionCtrlPath(hostType model.HostType) string {
	return "/sce/rp/session/ctrl"
}

func rpVersion(hostType model.HostType) string {
	if hostType == model.HostTypePS5 {
		return "1.0"
	}
	return "10.0"
}

// buildSessionGetRequest implements spec.md §4.3 step 1: GET with handshake
// headers identifying the registered device.
func buildSessionGetRequest(hostIP string, hostType model.HostType, creds model.DeviceCredentials) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", sessionPath(hostType))
	fmt.Fprintf(&b, "HOST: %s\r\n", hostIP)
	fmt.Fprintf(&b, "RP-Version: %s\r\n", rpVersion(hostType))
	fmt.Fprintf(&b, "RP-RegistKey: %s\r\n", hex.EncodeToString(creds.RegistrationKey[:]))
	fmt.Fprintf(&b, "RP-Did: %s\r\n", creds.HostID)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// buildSessionCtrlRequest implements spec.md §4.3 step 4: POST carrying the
// flat binary BIG launch-spec payload.
func buildSessionCtrlRequest(hostIP string, hostType model.HostType, body []byte) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", sessionCtrlPath(hostType))
	fmt.Fprintf(&b, "HOST: %s\r\n", hostIP)
	fmt.Fprintf(&b, "RP-Version: %s\r\n", rpVersion(hostType))
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("\r\n")
	return append([]byte(b.String()), body...)
}

// httpResponse is the parsed status line, headers, and raw body of a
// session-establishment TCP response.
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
		return resp, nil
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
