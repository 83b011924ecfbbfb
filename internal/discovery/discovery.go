// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package discovery

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/model"
)

// Prober emits DDP probes and collects Console replies.
type Prober struct {
	port    int
	timeout time.Duration
}

// New constructs a Prober. port defaults to 9302, timeout to 2s.
func New(port int, timeout time.Duration) *Prober {
	if port == 0 {
		port = 9302
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Prober{port: port, timeout: timeout}
}

// Scan broadcasts on every up, non-loopback, broadcast-capable interface in
// parallel and collects replies for the configured timeout. It never
// returns an error for "no consoles found": absence of replies yields an
// empty slice (spec.md §4.1, §8).
func (p *Prober) Scan(ctx context.Context) ([]model.Console, error) {
	return p.probe(ctx, nil)
}

// ProbeHost sends a unicast probe to a single known IP.
func (p *Prober) ProbeHost(ctx context.Context, ip net.IP) ([]model.Console, error) {
	return p.probe(ctx, ip)
}

func (p *Prober) probe(ctx context.Context, target net.IP) ([]model.Console, error) {
	logger := log.WithComponent("discovery")

	replyConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: replyPort})
	if err != nil {
		return nil, err
	}
	defer replyConn.Close()

	deadline := time.Now().Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = replyConn.SetReadDeadline(deadline)

	sendConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}
	defer sendConn.Close()

	probe := buildProbe()

	if target != nil {
		dst := &net.UDPAddr{IP: target, Port: p.port}
		if _, err := sendConn.WriteToUDP(probe, dst); err != nil {
			logger.Warn().Err(err).Str("target", target.String()).Msg("ddp unicast probe send failed")
		}
	} else {
		p.broadcastAllInterfaces(ctx, sendConn, probe, logger)
	}

	return p.collectReplies(replyConn), nil
}

// broadcastAllInterfaces sends the probe out every usable interface in
// parallel, explicitly selecting the egress interface via an IPv4 control
// message so multi-homed hosts reach every LAN segment. A socket error on
// one interface is non-fatal for the scan as a whole (spec.md §4.1).
func (p *Prober) broadcastAllInterfaces(ctx context.Context, sendConn *net.UDPConn, probe []byte, logger zerolog.Logger) {
	ifaces, err := net.Interfaces()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to enumerate network interfaces")
		return
	}

	pconn := ipv4.NewPacketConn(sendConn)

	eg, _ := errgroup.WithContext(ctx)
	for _, iface := range ifaces {
		iface := iface
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		bcast, ok := broadcastAddr(iface)
		if !ok {
			continue
		}
		eg.Go(func() error {
			cm := &ipv4.ControlMessage{IfIndex: iface.Index}
			dst := &net.UDPAddr{IP: bcast, Port: p.port}
			if _, err := pconn.WriteTo(probe, cm, dst); err != nil {
				logger.Warn().Err(err).Str("interface", iface.Name).Msg("ddp broadcast probe send failed")
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// broadcastAddr computes the IPv4 broadcast address for an interface's
// first IPv4 address, or ok=false if it has none.
func broadcastAddr(iface net.Interface) (net.IP, bool) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, false
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		bcast := make(net.IP, len(ip4))
		for i := range ip4 {
			bcast[i] = ip4[i] | ^ipNet.Mask[i]
		}
		return bcast, true
	}
	return nil, false
}

func (p *Prober) collectReplies(conn *net.UDPConn) []model.Console {
	seen := make(map[string]model.Console)
	buf := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			break // deadline exceeded: return whatever arrived, per spec.md §8
		}
		c, ok := parseReply(addr.IP, buf[:n])
		if !ok {
			continue
		}
		seen[c.HostID] = c
	}
	out := make([]model.Console, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	return out
}
