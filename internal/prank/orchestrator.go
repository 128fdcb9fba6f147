package prank

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

// EventType is a normalized provider call event.
type EventType string

const (
	EventLegAnswered EventType = "LEG_ANSWERED"
	EventLegFailed   EventType = "LEG_FAILED"
	EventLegHangup   EventType = "LEG_HANGUP"
)

// Event is one normalized call notification for a session leg. LegID is the
// provider call-control handle and is required for LEG_ANSWERED.
type Event struct {
	SessionID uuid.UUID
	Type      EventType
	Leg       models.Leg
	LegID     string
}

// CallController is the provider-facing surface the orchestrator drives.
// Implementations place calls, bridge established legs, start playback, and
// hang legs up; none of the operations is retried by the caller.
type CallController interface {
	CreateOutboundCall(ctx context.Context, to, from string, sessionID uuid.UUID, leg models.Leg) error
	BridgeLegs(ctx context.Context, legID, otherLegID string) error
	StartPlayback(ctx context.Context, legID string) error
	HangupLeg(ctx context.Context, legID string) error
}

// Orchestrator consumes normalized call events and drives the session state
// machine: pick the next state, commit it, then issue the follow-up provider
// action. The commit-before-action order means a crash leaves the session in
// a state an operator can reason about rather than ahead of reality.
type Orchestrator struct {
	service *Service
	calls   CallController
	workers *WorkerRegistry
}

// NewOrchestrator wires the orchestrator to its session service, call
// controller, and timeout worker registry.
func NewOrchestrator(service *Service, calls CallController, workers *WorkerRegistry) *Orchestrator {
	return &Orchestrator{service: service, calls: calls, workers: workers}
}

// StartPrank creates a session and dials the sender leg, presenting
// callerID. The CALLING_SENDER commit precedes the outbound call, so a
// session that dies here is left in a state operators can diagnose.
func (o *Orchestrator) StartPrank(ctx context.Context, senderNumber, recipientNumber, callerID string) (*models.PrankSession, error) {
	sess, err := o.service.CreateSession(ctx, senderNumber, recipientNumber)
	if err != nil {
		return nil, err
	}
	if err := o.service.TransitionState(ctx, sess, models.StateCallingSender); err != nil {
		return nil, err
	}
	if err := o.calls.CreateOutboundCall(ctx, sess.SenderNumber, callerID, sess.ID, models.LegSender); err != nil {
		return nil, fmt.Errorf("dialing sender: %w", err)
	}
	return sess, nil
}

// HandleEvent dispatches one event against the session's current state.
// Events in terminal states are silently ignored; combinations outside the
// dispatch table return ErrUnexpectedEvent.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev Event) error {
	if !ev.Leg.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeg, ev.Leg)
	}

	sess, err := o.service.GetSession(ctx, ev.SessionID)
	if err != nil {
		return err
	}

	switch sess.State {
	case models.StateCompleted, models.StateFailed:
		// Late webhooks for legs that answered or hung up after the session
		// ended. Absorb without error so the provider is never retried.
		slog.Debug("event ignored in terminal state",
			"session_id", sess.ID, "state", sess.State, "event", ev.Type, "leg", ev.Leg)
		return nil

	case models.StateCallingSender:
		return o.handleCallingSender(ctx, sess, ev)

	case models.StateCallingRecipient:
		return o.handleCallingRecipient(ctx, sess, ev)

	case models.StatePlayingAudio:
		return o.handlePlayingAudio(ctx, sess, ev)

	default:
		// Includes BRIDGED, which is transient and receives no events in
		// practice, and CREATED, which precedes any outbound call.
		return o.unexpected(sess, ev)
	}
}

// handleCallingSender waits for the sender leg. When the sender answers, the
// recipient is dialed with the sender's number as caller ID.
func (o *Orchestrator) handleCallingSender(ctx context.Context, sess *models.PrankSession, ev Event) error {
	switch {
	case ev.Type == EventLegAnswered && ev.Leg == models.LegSender:
		if ev.LegID == "" {
			return fmt.Errorf("missing leg id on %s for session %s", ev.Type, sess.ID)
		}
		if err := o.service.SetLegID(ctx, sess, models.LegSender, ev.LegID); err != nil {
			return err
		}
		if err := o.service.TransitionState(ctx, sess, models.StateCallingRecipient); err != nil {
			return err
		}
		return o.calls.CreateOutboundCall(ctx, sess.RecipientNumber, sess.SenderNumber, sess.ID, models.LegRecipient)

	case ev.Type == EventLegFailed && ev.Leg == models.LegSender:
		return o.service.TransitionState(ctx, sess, models.StateFailed)

	default:
		return o.unexpected(sess, ev)
	}
}

// handleCallingRecipient waits for the recipient leg. When the recipient
// answers, both legs are bridged, playback starts on the sender leg (heard
// on both ends of the bridge), and the timeout worker is spawned. A sender
// hangup while the recipient is still ringing fails the session.
func (o *Orchestrator) handleCallingRecipient(ctx context.Context, sess *models.PrankSession, ev Event) error {
	switch {
	case ev.Type == EventLegAnswered && ev.Leg == models.LegRecipient:
		if ev.LegID == "" {
			return fmt.Errorf("missing leg id on %s for session %s", ev.Type, sess.ID)
		}
		if err := o.service.SetLegID(ctx, sess, models.LegRecipient, ev.LegID); err != nil {
			return err
		}
		if err := o.service.TransitionState(ctx, sess, models.StateBridged); err != nil {
			return err
		}

		if err := o.calls.BridgeLegs(ctx, *sess.SenderLegID, *sess.RecipientLegID); err != nil {
			slog.Error("bridging legs failed, failing session",
				"session_id", sess.ID, "error", err)
			if terr := o.service.TransitionState(ctx, sess, models.StateFailed); terr != nil {
				slog.Error("failed to mark session FAILED after bridge error",
					"session_id", sess.ID, "error", terr)
			}
			// Handled: no playback, no timeout worker.
			return nil
		}

		if err := o.service.TransitionState(ctx, sess, models.StatePlayingAudio); err != nil {
			return err
		}
		if err := o.calls.StartPlayback(ctx, *sess.SenderLegID); err != nil {
			return err
		}

		o.workers.Spawn(sess.ID)
		return nil

	case ev.Type == EventLegFailed && ev.Leg == models.LegRecipient:
		return o.service.TransitionState(ctx, sess, models.StateFailed)

	case ev.Type == EventLegHangup && ev.Leg == models.LegSender:
		return o.service.TransitionState(ctx, sess, models.StateFailed)

	default:
		return o.unexpected(sess, ev)
	}
}

// handlePlayingAudio completes the session when either party leaves the
// bridged call.
func (o *Orchestrator) handlePlayingAudio(ctx context.Context, sess *models.PrankSession, ev Event) error {
	if ev.Type == EventLegHangup || ev.Type == EventLegFailed {
		return o.service.TransitionState(ctx, sess, models.StateCompleted)
	}
	return o.unexpected(sess, ev)
}

func (o *Orchestrator) unexpected(sess *models.PrankSession, ev Event) error {
	return fmt.Errorf("%w: %s + leg=%s in state %s", ErrUnexpectedEvent, ev.Type, ev.Leg, sess.State)
}
