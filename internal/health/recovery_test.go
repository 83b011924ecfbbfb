// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/o1298098/remote-play-sub005/internal/model"
)

func succeedStep(calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		return nil
	}
}

func TestRecoverySucceedsWithoutOptionalStep(t *testing.T) {
	var step0, step1 int
	r := NewRecovery("sess-1", nil, Callbacks{
		RequestKeyframe:  succeedStep(&step0),
		ResetStreamState: succeedStep(&step1),
	})

	r.Trigger(context.Background())

	require.Equal(t, 1, step0)
	require.Equal(t, 1, step1)
	require.Equal(t, model.RecoveryIdle, r.State(time.Now()))
}

func TestRecoveryRunsOptionalStepWhenProvided(t *testing.T) {
	var step0, step1, step2 int
	r := NewRecovery("sess-2", nil, Callbacks{
		RequestKeyframe:  succeedStep(&step0),
		ResetStreamState: succeedStep(&step1),
		ReconnectTakion:  succeedStep(&step2),
	})

	r.Trigger(context.Background())
	require.Equal(t, 1, step2)
}

func TestRecoveryFailureEntersSilentPeriod(t *testing.T) {
	r := NewRecovery("sess-3", nil, Callbacks{
		RequestKeyframe: func(context.Context) error { return errors.New("keyframe request failed") },
		ResetStreamState: func(context.Context) error {
			t.Fatal("step1 should not run after step0 fails")
			return nil
		},
	})

	r.Trigger(context.Background())
	require.Equal(t, model.RecoverySilentPeriod, r.State(time.Now()))

	// Far enough in the future that the 60s silent period has elapsed.
	require.Equal(t, model.RecoveryIdle, r.State(time.Now().Add(2*time.Minute)))
}

func TestRecoverySuppressesTriggerDuringSilentPeriod(t *testing.T) {
	var step0Calls int
	r := NewRecovery("sess-4", nil, Callbacks{
		RequestKeyframe:  func(context.Context) error { step0Calls++; return errors.New("fail") },
		ResetStreamState: succeedStep(new(int)),
	})

	r.Trigger(context.Background())
	require.Equal(t, 1, step0Calls)
	require.Equal(t, model.RecoverySilentPeriod, r.State(time.Now()))

	// A second trigger while still suppressed must not invoke any callback.
	r.Trigger(context.Background())
	require.Equal(t, 1, step0Calls)
}

func TestRecoveryCircuitBreakerAfterThreeConsecutiveFailures(t *testing.T) {
	var notified int
	r := NewRecovery("sess-5", nil, Callbacks{
		RequestKeyframe:  func(context.Context) error { return errors.New("fail") },
		ResetStreamState: succeedStep(new(int)),
		NotifyRebuild:    func() { notified++ },
	})

	farFuture := time.Now().Add(2 * time.Minute)
	for i := 0; i < 2; i++ {
		r.Trigger(context.Background())
		require.Equal(t, model.RecoverySilentPeriod, r.State(time.Now()))
		r.State(farFuture) // force the silent period to expire before retrying
	}

	r.Trigger(context.Background())
	require.Equal(t, model.RecoveryCircuitBreaker, r.State(time.Now()))
	require.Equal(t, 1, notified)
}

func TestRecoveryResetClearsState(t *testing.T) {
	r := NewRecovery("sess-6", nil, Callbacks{
		RequestKeyframe:  func(context.Context) error { return errors.New("fail") },
		ResetStreamState: succeedStep(new(int)),
	})
	r.Trigger(context.Background())
	require.Equal(t, model.RecoverySilentPeriod, r.State(time.Now()))

	r.Reset()
	require.Equal(t, model.RecoveryIdle, r.State(time.Now()))
}
