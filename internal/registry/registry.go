// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package registry centralizes session lookup behind one lock with a
// documented short-critical-section discipline, replacing the
// per-subsystem ConcurrentDictionary sprawl spec.md §9 flags as a
// REDESIGN target.
package registry

import (
	"sync"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

// ErrNotFound is returned by Get and Remove for an unknown session ID.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "registry: session not found" }

// SessionRegistry is the single lock-guarded map of active sessions.
// Methods never invoke a caller-supplied callback while holding mu: Range
// copies the snapshot slice before iterating, so a callback is free to
// call back into Add/Remove/Get without deadlocking.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*model.RemoteSession
}

// New constructs an empty SessionRegistry.
func New() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*model.RemoteSession)}
}

// Add inserts or replaces the session under its ID.
func (r *SessionRegistry) Add(s *model.RemoteSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Get returns the session for id, or ErrNotFound.
func (r *SessionRegistry) Get(id string) (*model.RemoteSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove deletes the session for id. It is a no-op if id is unknown.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of active sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Range calls fn once per session, in no particular order. fn is invoked
// outside the lock: Range takes a snapshot of the current sessions first,
// so fn may safely call Add/Get/Remove on this registry.
func (r *SessionRegistry) Range(fn func(*model.RemoteSession)) {
	r.mu.RLock()
	snapshot := make([]*model.RemoteSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}
