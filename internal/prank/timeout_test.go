package prank

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

// waitForState polls until the session reaches want or the deadline passes.
func waitForState(t *testing.T, svc *Service, id uuid.UUID, want models.SessionState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := svc.GetSession(context.Background(), id)
		if err != nil {
			t.Fatalf("GetSession() error: %v", err)
		}
		if sess.State == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	sess, _ := svc.GetSession(context.Background(), id)
	t.Fatalf("session never reached %s, still %s", want, sess.State)
}

func TestWorkerHangsUpAndCompletes(t *testing.T) {
	svc, _ := newTestService(t)
	calls := &fakeCalls{}
	workers := NewWorkerRegistry(30*time.Millisecond, calls, func() *Service { return svc })
	orch := NewOrchestrator(svc, calls, workers)

	id := answerBothLegs(t, orch)

	waitForState(t, svc, id, models.StateCompleted)

	hungup := calls.hangups()
	if len(hungup) != 2 {
		t.Fatalf("hangups = %v, want both legs", hungup)
	}
	seen := map[string]bool{hungup[0]: true, hungup[1]: true}
	if !seen["cc-sender"] || !seen["cc-recipient"] {
		t.Errorf("hangups = %v, want cc-sender and cc-recipient", hungup)
	}

	// The worker must deregister itself once done.
	deadline := time.Now().Add(time.Second)
	for workers.ActiveCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if workers.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after completion, want 0", workers.ActiveCount())
	}
}

func TestWorkerLeavesAlreadyCompletedSession(t *testing.T) {
	svc, _ := newTestService(t)
	calls := &fakeCalls{}
	workers := NewWorkerRegistry(50*time.Millisecond, calls, func() *Service { return svc })
	orch := NewOrchestrator(svc, calls, workers)

	id := answerBothLegs(t, orch)

	// A hangup webhook wins the race against the timer.
	if err := orch.HandleEvent(context.Background(), Event{
		SessionID: id, Type: EventLegHangup, Leg: models.LegSender,
	}); err != nil {
		t.Fatalf("HandleEvent() error: %v", err)
	}

	time.Sleep(150 * time.Millisecond)

	mustState(t, svc, id, models.StateCompleted)
}

func TestSpawnDeduplicates(t *testing.T) {
	svc, _ := newTestService(t)
	workers := NewWorkerRegistry(time.Hour, &fakeCalls{}, func() *Service { return svc })
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		workers.Shutdown(ctx)
	})

	id := uuid.New()
	if !workers.Spawn(id) {
		t.Fatal("first Spawn() = false")
	}
	if workers.Spawn(id) {
		t.Fatal("duplicate Spawn() = true")
	}
	if workers.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", workers.ActiveCount())
	}
}

func TestShutdownAbortsPendingTimers(t *testing.T) {
	svc, _ := newTestService(t)
	workers := NewWorkerRegistry(time.Hour, &fakeCalls{}, func() *Service { return svc })

	workers.Spawn(uuid.New())
	workers.Spawn(uuid.New())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := workers.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if workers.Spawn(uuid.New()) {
		t.Error("Spawn() = true after shutdown")
	}
}
