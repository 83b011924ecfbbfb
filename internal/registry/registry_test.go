// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func TestAddGetRoundTrip(t *testing.T) {
	r := New()
	s := model.NewRemoteSession("sess-1", "10.0.2.15", model.HostTypePS5)
	r.Add(s)

	got, err := r.Get("sess-1")
	require.NoError(t, err)
	require.Same(t, s, got)
}

func TestGetUnknownReturnsErrNotFound(t *testing.T) {
	r := New()
	_, err := r.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveDeletesSession(t *testing.T) {
	r := New()
	r.Add(model.NewRemoteSession("sess-2", "10.0.2.15", model.HostTypePS5))
	r.Remove("sess-2")

	_, err := r.Get("sess-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	r := New()
	require.NotPanics(t, func() { r.Remove("missing") })
}

func TestLenReflectsActiveSessions(t *testing.T) {
	r := New()
	require.Equal(t, 0, r.Len())
	r.Add(model.NewRemoteSession("a", "10.0.2.15", model.HostTypePS5))
	r.Add(model.NewRemoteSession("b", "10.0.2.15", model.HostTypePS4))
	require.Equal(t, 2, r.Len())
	r.Remove("a")
	require.Equal(t, 1, r.Len())
}

func TestRangeVisitsEverySession(t *testing.T) {
	r := New()
	r.Add(model.NewRemoteSession("a", "10.0.2.15", model.HostTypePS5))
	r.Add(model.NewRemoteSession("b", "10.0.2.15", model.HostTypePS5))

	seen := make(map[string]bool)
	r.Range(func(s *model.RemoteSession) { seen[s.ID] = true })

	require.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}

func TestRangeCallbackCanMutateRegistryWithoutDeadlock(t *testing.T) {
	r := New()
	r.Add(model.NewRemoteSession("a", "10.0.2.15", model.HostTypePS5))
	r.Add(model.NewRemoteSession("b", "10.0.2.15", model.HostTypePS5))

	done := make(chan struct{})
	go func() {
		r.Range(func(s *model.RemoteSession) {
			r.Remove(s.ID)
			r.Add(model.NewRemoteSession(s.ID+"-replaced", "10.0.2.15", model.HostTypePS5))
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Range deadlocked when callback mutated the registry")
	}
}

func TestConcurrentAddGetRemove(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "sess"
			r.Add(model.NewRemoteSession(id, "10.0.2.15", model.HostTypePS5))
			_, _ = r.Get(id)
			r.Remove(id)
		}(i)
	}
	wg.Wait()
}
