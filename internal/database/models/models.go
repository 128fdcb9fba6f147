// Package models defines the database entities shared by the repositories
// and the domain services.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of a prank session. States advance
// monotonically along a single forward path; FAILED is reachable from any
// non-terminal state.
type SessionState string

const (
	StateCreated          SessionState = "CREATED"
	StateCallingSender    SessionState = "CALLING_SENDER"
	StateCallingRecipient SessionState = "CALLING_RECIPIENT"
	StateBridged          SessionState = "BRIDGED"
	StatePlayingAudio     SessionState = "PLAYING_AUDIO"
	StateCompleted        SessionState = "COMPLETED"
	StateFailed           SessionState = "FAILED"
)

// forwardTransitions maps each state to its unique forward successor.
// FAILED is handled separately (allowed from any non-COMPLETED, non-FAILED
// state) so it does not appear as a value here.
var forwardTransitions = map[SessionState]SessionState{
	StateCreated:          StateCallingSender,
	StateCallingSender:    StateCallingRecipient,
	StateCallingRecipient: StateBridged,
	StateBridged:          StatePlayingAudio,
	StatePlayingAudio:     StateCompleted,
}

// Terminal reports whether the state has no outgoing edges. COMPLETED does
// not transition to FAILED.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransitionTo reports whether moving from s to next is a legal edge of
// the session state machine. Forward moves advance by exactly one edge;
// skipping is never allowed.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if next == StateFailed {
		return !s.Terminal()
	}
	return forwardTransitions[s] == next
}

// RequiresBothLegs reports whether the state may only be entered once both
// call legs have been established with the provider.
func (s SessionState) RequiresBothLegs() bool {
	switch s {
	case StateBridged, StatePlayingAudio, StateCompleted:
		return true
	}
	return false
}

// AllSessionStates returns every session state in lifecycle order.
func AllSessionStates() []SessionState {
	return []SessionState{
		StateCreated, StateCallingSender, StateCallingRecipient,
		StateBridged, StatePlayingAudio, StateCompleted, StateFailed,
	}
}

// Valid reports whether s is a known session state.
func (s SessionState) Valid() bool {
	switch s {
	case StateCreated, StateCallingSender, StateCallingRecipient,
		StateBridged, StatePlayingAudio, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Leg identifies one end of the two-party call.
type Leg string

const (
	LegSender    Leg = "sender"
	LegRecipient Leg = "recipient"
)

// Valid reports whether l is a known leg tag.
func (l Leg) Valid() bool {
	return l == LegSender || l == LegRecipient
}

// PrankSession is the durable record of one prank flow. Leg IDs are the
// provider-assigned call-control handles; each is set exactly once when its
// leg answers and never cleared.
type PrankSession struct {
	ID              uuid.UUID
	SenderNumber    string
	RecipientNumber string
	SenderLegID     *string
	RecipientLegID  *string
	State           SessionState
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LegID returns the provider handle for the given leg, or nil if the leg has
// not answered yet.
func (s *PrankSession) LegID(leg Leg) *string {
	if leg == LegSender {
		return s.SenderLegID
	}
	return s.RecipientLegID
}

// User is a registered API user.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
