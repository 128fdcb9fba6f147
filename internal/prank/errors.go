// Package prank implements the prank-call session state machine: the
// session service that guards all mutations, the orchestrator that turns
// provider call events into transitions and provider actions, and the
// timeout workers that cap call duration.
package prank

import "errors"

// Domain error kinds. Callers classify failures with errors.Is; the webhook
// ingress logs and acknowledges most of these rather than surfacing them to
// the provider.
var (
	// ErrSessionNotFound is returned when no session exists for an ID.
	ErrSessionNotFound = errors.New("prank session not found")

	// ErrInvalidTransition is returned when a requested state change is not
	// an edge of the session state machine, including when a concurrent
	// writer moved the session first.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidPrecondition is returned when a target state requires both
	// leg handles but at least one is missing.
	ErrInvalidPrecondition = errors.New("state requires both leg ids")

	// ErrInvalidLeg is returned for a leg tag other than sender/recipient.
	ErrInvalidLeg = errors.New("invalid leg")

	// ErrUnexpectedEvent is returned for a well-formed event that has no row
	// in the dispatch table for the session's current state.
	ErrUnexpectedEvent = errors.New("unexpected event for session state")
)
