// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/o1298098/remote-play-sub005/internal/log"
	"github.com/o1298098/remote-play-sub005/internal/metrics"
	"github.com/o1298098/remote-play-sub005/internal/model"
)

const (
	semaphoreAcquireTimeout = 100 * time.Millisecond
	step0Timeout            = 2 * time.Second
	step1Timeout            = 3 * time.Second
	step2Timeout            = 12 * time.Second
	totalRecoveryTimeout    = 15 * time.Second
	silentPeriod            = 60 * time.Second
	circuitBreakerPeriod    = 5 * time.Minute
	circuitBreakerThreshold = 3
)

// Callbacks are the recovery steps a session supplies; RequestKeyframe and
// ResetStreamState are required, ReconnectTakion is optional (step2 in
// spec.md §4.9 is marked optional) and may be nil to skip straight to
// success once step1 completes.
type Callbacks struct {
	RequestKeyframe  func(ctx context.Context) error
	ResetStreamState func(ctx context.Context) error
	ReconnectTakion  func(ctx context.Context) error
	NotifyRebuild    func()
}

// Recovery drives one session's emergency-recovery state machine
// (spec.md §4.9). sem gates concurrent RECOVERING phases; pass a shared
// *semaphore.Weighted(1) across sessions to cap how many recover at once
// process-wide, or nil to let Recovery own a private one.
type Recovery struct {
	sessionID string
	sem       *semaphore.Weighted
	cb        Callbacks

	mu                  sync.Mutex
	state               model.RecoveryState
	consecutiveFailures int
	suppressedUntil     time.Time // SILENT_PERIOD or CIRCUIT_BREAKER expiry

	logger zerolog.Logger
}

// NewRecovery constructs a Recovery for one session.
func NewRecovery(sessionID string, sem *semaphore.Weighted, cb Callbacks) *Recovery {
	if sem == nil {
		sem = semaphore.NewWeighted(1)
	}
	return &Recovery{
		sessionID: sessionID,
		sem:       sem,
		cb:        cb,
		state:     model.RecoveryIdle,
		logger:    log.WithComponent("health"),
	}
}

// State returns the current state, lazily expiring SILENT_PERIOD or
// CIRCUIT_BREAKER back to IDLE if their window has passed.
func (r *Recovery) State(now time.Time) model.RecoveryState {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIfDue(now)
	return r.state
}

func (r *Recovery) expireIfDue(now time.Time) {
	if (r.state == model.RecoverySilentPeriod || r.state == model.RecoveryCircuitBreaker) && !now.Before(r.suppressedUntil) {
		r.state = model.RecoveryIdle
		metrics.SetRecoveryState(r.sessionID, int(r.state))
	}
}

// Reset returns the machine to IDLE and clears all counters, per spec.md
// §4.9's "Reset on Dispose or on explicit Reset()".
func (r *Recovery) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = model.RecoveryIdle
	r.consecutiveFailures = 0
	r.suppressedUntil = time.Time{}
	metrics.SetRecoveryState(r.sessionID, int(r.state))
}

// Trigger is called when the reassembler or health monitor observes 3
// consecutive severe failures or 5s without frames. While suppressed
// (SILENT_PERIOD or CIRCUIT_BREAKER not yet expired) this is a silent
// no-op, per spec.md §4.9. Trigger blocks for up to totalRecoveryTimeout
// while the RECOVERING phase runs; callers should invoke it from a
// dedicated goroutine, not the receive loop.
func (r *Recovery) Trigger(ctx context.Context) {
	now := time.Now()

	r.mu.Lock()
	r.expireIfDue(now)
	if r.state != model.RecoveryIdle {
		r.mu.Unlock()
		return
	}
	r.state = model.RecoveryTriggered
	metrics.SetRecoveryState(r.sessionID, int(r.state))
	r.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, semaphoreAcquireTimeout)
	err := r.sem.Acquire(acquireCtx, 1)
	cancel()
	if err != nil {
		r.logger.Warn().Str("session", r.sessionID).Msg("recovery semaphore acquire timed out")
		r.onFailure()
		return
	}
	defer r.sem.Release(1)

	r.mu.Lock()
	r.state = model.RecoveryRecovering
	metrics.SetRecoveryState(r.sessionID, int(r.state))
	r.mu.Unlock()

	recoverCtx, cancel := context.WithTimeout(ctx, totalRecoveryTimeout)
	defer cancel()

	if err := r.runStep(recoverCtx, step0Timeout, r.cb.RequestKeyframe); err != nil {
		r.onFailure()
		return
	}
	if err := r.runStep(recoverCtx, step1Timeout, r.cb.ResetStreamState); err != nil {
		r.onFailure()
		return
	}
	if r.cb.ReconnectTakion != nil {
		if err := r.runStep(recoverCtx, step2Timeout, r.cb.ReconnectTakion); err != nil {
			r.onFailure()
			return
		}
	}

	r.onSuccess()
}

// runStep executes one recovery step bounded by the smaller of stepTimeout
// and parent's remaining deadline. A nil callback is treated as an
// immediate no-op success.
func (r *Recovery) runStep(parent context.Context, stepTimeout time.Duration, step func(context.Context) error) error {
	if step == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()
	return step(ctx)
}

func (r *Recovery) onSuccess() {
	r.mu.Lock()
	r.state = model.RecoveryIdle
	r.consecutiveFailures = 0
	r.suppressedUntil = time.Time{}
	metrics.SetRecoveryState(r.sessionID, int(r.state))
	r.mu.Unlock()
}

func (r *Recovery) onFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.consecutiveFailures++
	if r.consecutiveFailures >= circuitBreakerThreshold {
		r.state = model.RecoveryCircuitBreaker
		r.suppressedUntil = time.Now().Add(circuitBreakerPeriod)
		metrics.SetRecoveryState(r.sessionID, int(r.state))
		if r.cb.NotifyRebuild != nil {
			r.cb.NotifyRebuild()
		}
		return
	}

	r.state = model.RecoverySilentPeriod
	r.suppressedUntil = time.Now().Add(silentPeriod)
	metrics.SetRecoveryState(r.sessionID, int(r.state))
}
