package prank

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

// WorkerRegistry owns the per-session timeout workers. Each worker sleeps
// for the configured call duration, then forcibly hangs up both legs and
// completes the session if it is still playing audio.
//
// The registry keeps at most one worker per session and holds references to
// all live workers so graceful shutdown can abort and await them.
type WorkerRegistry struct {
	duration time.Duration
	calls    CallController

	// newService builds a session service on an independent database scope.
	// A worker outlives the HTTP request that spawned it and must not share
	// the request's repository state.
	newService func() *Service

	mu     sync.Mutex
	active map[uuid.UUID]struct{}
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// NewWorkerRegistry creates a registry whose workers fire after duration.
func NewWorkerRegistry(duration time.Duration, calls CallController, newService func() *Service) *WorkerRegistry {
	return &WorkerRegistry{
		duration:   duration,
		calls:      calls,
		newService: newService,
		active:     make(map[uuid.UUID]struct{}),
		closed:     make(chan struct{}),
	}
}

// Spawn starts the timeout worker for a session. It reports false if a
// worker for this session is already running or the registry is shut down;
// at most one worker ever exists per session.
func (r *WorkerRegistry) Spawn(sessionID uuid.UUID) bool {
	select {
	case <-r.closed:
		return false
	default:
	}

	r.mu.Lock()
	if _, running := r.active[sessionID]; running {
		r.mu.Unlock()
		return false
	}
	r.active[sessionID] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(sessionID)

	slog.Info("timeout worker spawned", "session_id", sessionID, "fires_in", r.duration)
	return true
}

// ActiveCount returns the number of live workers.
func (r *WorkerRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Shutdown aborts pending timers and waits for running workers to finish,
// or until ctx is done. Timers lost this way are not persisted; sessions
// stuck in PLAYING_AUDIO after a restart are reconciled manually.
func (r *WorkerRegistry) Shutdown(ctx context.Context) error {
	r.once.Do(func() { close(r.closed) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the worker body. It must never propagate a failure: every error is
// logged and swallowed so a misbehaving provider or database cannot crash
// the process from a detached goroutine.
func (r *WorkerRegistry) run(sessionID uuid.UUID) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.active, sessionID)
		r.mu.Unlock()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("timeout worker panic", "session_id", sessionID, "panic", rec)
		}
	}()

	select {
	case <-time.After(r.duration):
	case <-r.closed:
		return
	}

	// The spawning request is long gone; the worker owns its own context
	// and database scope.
	ctx := context.Background()
	service := r.newService()

	sess, err := service.GetSession(ctx, sessionID)
	if err != nil {
		slog.Error("timeout worker: loading session", "session_id", sessionID, "error", err)
		return
	}

	// Hang up whichever legs exist, independently. "Already terminated"
	// responses from the provider are expected here and only logged.
	for _, leg := range []models.Leg{models.LegSender, models.LegRecipient} {
		legID := sess.LegID(leg)
		if legID == nil {
			continue
		}
		if err := r.calls.HangupLeg(ctx, *legID); err != nil {
			slog.Warn("timeout worker: hangup failed", "session_id", sessionID, "leg", leg, "error", err)
		}
	}

	// Re-read before completing: a hangup webhook may have raced us past
	// PLAYING_AUDIO already.
	sess, err = service.GetSession(ctx, sessionID)
	if err != nil {
		slog.Error("timeout worker: reloading session", "session_id", sessionID, "error", err)
		return
	}
	if sess.State != models.StatePlayingAudio {
		slog.Debug("timeout worker: session no longer playing audio",
			"session_id", sessionID, "state", sess.State)
		return
	}

	if err := service.TransitionState(ctx, sess, models.StateCompleted); err != nil {
		slog.Error("timeout worker: completing session", "session_id", sessionID, "error", err)
		return
	}

	slog.Info("session completed by timeout worker", "session_id", sessionID)
}
