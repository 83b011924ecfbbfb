// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager composes discovery, registration, session establishment
// and the stream orchestrator into the single entity cmd/rpstreamd drives:
// one call per console turns into a registered, running RPStream. It is the
// in-process analogue of the teacher's internal/daemon.Manager, rebuilt
// around Remote Play's on-demand per-console session lifecycle instead of a
// single always-on gateway process.
package manager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/o1298098/remote-play-sub005/internal/config"
	"github.com/o1298098/remote-play-sub005/internal/controller"
	"github.com/o1298098/remote-play-sub005/internal/discovery"
	"github.com/o1298098/remote-play-sub005/internal/feedback"
	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/model"
	"github.com/o1298098/remote-play-sub005/internal/registration"
	"github.com/o1298098/remote-play-sub005/internal/registry"
	"github.com/o1298098/remote-play-sub005/internal/rpsession"
	"github.com/o1298098/remote-play-sub005/internal/stream"
	"github.com/o1298098/remote-play-sub005/internal/takion"
)

// ErrUnknownSession is returned when a session id has no active stream.
var ErrUnknownSession = errors.New("manager: unknown session")

// MemCredentialStore is an in-memory model.CredentialStore. Durable
// credential storage is an external collaborator (spec.md §3); this
// implementation exists only so cmd/rpstreamd can re-pair a console once
// per process lifetime instead of on every StartSession call.
type MemCredentialStore struct {
	mu    sync.RWMutex
	byKey map[string]model.DeviceCredentials
}

// NewMemCredentialStore constructs an empty in-memory credential store.
func NewMemCredentialStore() *MemCredentialStore {
	return &MemCredentialStore{byKey: make(map[string]model.DeviceCredentials)}
}

func (s *MemCredentialStore) Save(creds model.DeviceCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[creds.HostID] = creds
	return nil
}

func (s *MemCredentialStore) Load(hostID string) (model.DeviceCredentials, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKey[hostID]
	return c, ok, nil
}

func (s *MemCredentialStore) Delete(hostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, hostID)
	return nil
}

var _ model.CredentialStore = (*MemCredentialStore)(nil)

// entry tracks one running session alongside the stream and controller
// handles StopSession needs to tear it down cleanly.
type entry struct {
	stream *stream.RPStream
	cancel context.CancelFunc
}

// Manager owns the registry of active sessions and the shared discovery,
// registration and controller collaborators they are built from.
type Manager struct {
	cfg   config.Config
	creds model.CredentialStore

	prober     *discovery.Prober
	registrar  *registration.Client
	controller *controller.Controller
	sessionReg *registry.SessionRegistry

	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs a Manager from a loaded configuration. creds may be nil, in
// which case an in-memory store is used.
func New(cfg config.Config, creds model.CredentialStore) *Manager {
	if creds == nil {
		creds = NewMemCredentialStore()
	}
	return &Manager{
		cfg:        cfg,
		creds:      creds,
		prober:     discovery.New(cfg.Discovery.Port, cfg.DiscoveryTimeout()),
		registrar:  registration.NewClient(cfg.RegistrationTimeout(), cfg.CredentialExpiry()),
		controller: controller.New(),
		sessionReg: registry.New(),
		entries:    make(map[string]*entry),
	}
}

// Scan runs a LAN discovery sweep.
func (m *Manager) Scan(ctx context.Context) ([]model.Console, error) {
	return m.prober.Scan(ctx)
}

// Registry exposes the session registry for read-only inspection (admin
// endpoints, /healthz).
func (m *Manager) Registry() *registry.SessionRegistry {
	return m.sessionReg
}

// Controller exposes the shared controller-input dispatcher so an outer
// caller (an admin endpoint, a browser bridge) can forward button/stick
// input for a running session.
func (m *Manager) Controller() *controller.Controller {
	return m.controller
}

// StartRequest describes everything needed to pair with and start
// streaming from one console.
type StartRequest struct {
	HostIP          string
	HostType        model.HostType
	AccountIDBase64 string
	PIN             string // required only on first pairing with this host
}

// StartSession registers (if no valid stored credentials exist), performs
// session establishment, and starts the RPStream orchestrator, registering
// the session and returning the running RPStream and its RemoteSession.
// Receivers are attached to the returned RPStream with AddReceiver.
func (m *Manager) StartSession(ctx context.Context, req StartRequest) (*stream.RPStream, *model.RemoteSession, error) {
	logger := log.WithComponent("manager")

	creds, ok, err := m.creds.Load(req.HostIP)
	if err != nil {
		return nil, nil, fmt.Errorf("manager: load credentials: %w", err)
	}
	if !ok || !creds.Valid(time.Now()) {
		if req.PIN == "" {
			return nil, nil, fmt.Errorf("manager: no valid credentials for %s and no PIN supplied", req.HostIP)
		}
		creds, err = m.registrar.Register(ctx, registration.Request{
			HostIP:          req.HostIP,
			HostType:        req.HostType,
			AccountIDBase64: req.AccountIDBase64,
			PIN:             req.PIN,
		})
		if err != nil {
			log.AuditInfo(ctx, "registration.failed", "console registration failed", map[string]any{
				"host_ip": req.HostIP,
			})
			return nil, nil, fmt.Errorf("manager: register: %w", err)
		}
		if err := m.creds.Save(creds); err != nil {
			logger.Warn().Err(err).Str("host_ip", req.HostIP).Msg("failed to persist credentials")
		}
		log.AuditInfo(ctx, "registration.succeeded", "console paired", map[string]any{
			"host_ip": req.HostIP,
			"host_id": creds.HostID,
		})
	}

	params := model.StreamParams{
		Resolution:  m.cfg.Stream.DefaultResolution,
		FPS:         m.cfg.Stream.DefaultFPS,
		BitrateKbps: m.cfg.Stream.DefaultBitrateKbps,
		Codec:       model.StreamCodec(m.cfg.Stream.Codec),
	}

	sessionID := uuid.NewString()
	establisher := rpsession.NewEstablisher(req.HostIP, req.HostType, creds, params)
	result, err := establisher.Establish(ctx, sessionID)
	if err != nil {
		log.AuditInfo(ctx, "session.establish_failed", "session establishment failed", map[string]any{
			"host_ip": req.HostIP,
		})
		return nil, nil, fmt.Errorf("manager: establish: %w", err)
	}

	conn := takion.NewConn(result.UDPConn, result.RemoteAddr, result.Cipher, sessionID)
	sender := feedback.New(sessionID, conn)
	m.controller.Connect(sessionID, sender)

	// The stream orchestrator decodes inbound rumble off the Takion
	// connection and hands it to the controller, which fans it out to
	// whatever subscribed via Controller().OnRumble (e.g. a browser bridge).
	rps := stream.New(result.Session, conn, sender, func(ev model.RumbleEvent) {
		m.controller.DispatchRumble(sessionID, ev)
	})

	streamCtx, cancel := context.WithCancel(context.Background())
	if err := rps.Start(streamCtx); err != nil {
		cancel()
		_ = result.UDPConn.Close()
		return nil, nil, fmt.Errorf("manager: start stream: %w", err)
	}

	m.sessionReg.Add(result.Session)
	m.mu.Lock()
	m.entries[sessionID] = &entry{stream: rps, cancel: cancel}
	m.mu.Unlock()

	log.AuditInfo(ctx, "session.started", "streaming session started", map[string]any{
		"session_id": sessionID,
		"host_ip":    req.HostIP,
	})

	return rps, result.Session, nil
}

// StopSession stops the RPStream for id, disconnects its controller source,
// and removes it from the registry. It is a no-op with ErrUnknownSession if
// id is not active.
func (m *Manager) StopSession(id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrUnknownSession
	}

	e.stream.Stop()
	e.cancel()
	m.controller.Disconnect(id)
	m.sessionReg.Remove(id)
	log.AuditInfo(context.Background(), "session.stopped", "streaming session stopped", map[string]any{
		"session_id": id,
	})
	return nil
}

// Stream returns the running RPStream for id, if any.
func (m *Manager) Stream(id string) (*stream.RPStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return e.stream, nil
}

// Shutdown stops every active session. It is called once, at process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.StopSession(id); err != nil {
			log.WithComponent("manager").Warn().Err(err).Str("session_id", id).Msg("error stopping session during shutdown")
		}
	}
}

// ResolveHostType probes a single host and returns its advertised host
// type, used by admin endpoints that only have an IP to go on.
func (m *Manager) ResolveHostType(ctx context.Context, ip string) (model.HostType, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("manager: invalid ip %q", ip)
	}
	consoles, err := m.prober.ProbeHost(ctx, parsed)
	if err != nil {
		return "", fmt.Errorf("manager: probe %s: %w", ip, err)
	}
	if len(consoles) == 0 {
		return "", fmt.Errorf("manager: no reply from %s", ip)
	}
	return consoles[0].HostType, nil
}
