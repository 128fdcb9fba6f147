package prank

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database"
	"github.com/prankline/prankline/internal/database/models"
)

// Service guards all mutations of prank sessions. It validates transitions
// against the state machine before writing and relies on the repository's
// conditional updates to resolve races between concurrent event handlers:
// the loser of a race gets ErrInvalidTransition instead of clobbering state.
type Service struct {
	sessions database.PrankSessionRepository
}

// NewService creates a session service on top of the given repository.
func NewService(sessions database.PrankSessionRepository) *Service {
	return &Service{sessions: sessions}
}

// CreateSession inserts a new session in state CREATED with no legs
// established.
func (s *Service) CreateSession(ctx context.Context, senderNumber, recipientNumber string) (*models.PrankSession, error) {
	sess := &models.PrankSession{
		ID:              uuid.New(),
		SenderNumber:    senderNumber,
		RecipientNumber: recipientNumber,
		State:           models.StateCreated,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession loads a session by ID. Returns ErrSessionNotFound when absent.
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*models.PrankSession, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// TransitionState moves the session to next after validating the edge and
// its preconditions. On success the in-memory session is updated to match.
func (s *Service) TransitionState(ctx context.Context, sess *models.PrankSession, next models.SessionState) error {
	if !sess.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sess.State, next)
	}
	if next.RequiresBothLegs() && (sess.SenderLegID == nil || sess.RecipientLegID == nil) {
		return fmt.Errorf("%w: cannot enter %s", ErrInvalidPrecondition, next)
	}

	ok, err := s.sessions.UpdateState(ctx, sess.ID, sess.State, next)
	if err != nil {
		return err
	}
	if !ok {
		// The stored state changed between our read and this write.
		return fmt.Errorf("%w: session %s left state %s concurrently", ErrInvalidTransition, sess.ID, sess.State)
	}

	sess.State = next
	return nil
}

// SetLegID records the provider handle for a leg. Handles are write-once;
// a duplicate answer webhook for an already-established leg fails here
// instead of overwriting the handle.
func (s *Service) SetLegID(ctx context.Context, sess *models.PrankSession, leg models.Leg, legID string) error {
	if !leg.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLeg, leg)
	}

	ok, err := s.sessions.SetLegID(ctx, sess.ID, leg, legID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s leg id already set for session %s", leg, sess.ID)
	}

	if leg == models.LegSender {
		sess.SenderLegID = &legID
	} else {
		sess.RecipientLegID = &legID
	}
	return nil
}
