package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

// PrankSessionRepository persists prank sessions. Both mutating calls are
// conditional writes: they report false instead of writing when the row no
// longer satisfies the guard, which lets callers detect races between
// concurrently delivered webhooks without explicit locking.
type PrankSessionRepository interface {
	Create(ctx context.Context, s *models.PrankSession) error
	// GetByID returns nil, nil when no session exists with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.PrankSession, error)
	// UpdateState moves the session from one state to another. It writes only
	// if the stored state still equals from, and reports whether a row changed.
	UpdateState(ctx context.Context, id uuid.UUID, from, to models.SessionState) (bool, error)
	// SetLegID records the provider handle for a leg. The write succeeds only
	// while the column is still NULL; handles are write-once.
	SetLegID(ctx context.Context, id uuid.UUID, leg models.Leg, legID string) (bool, error)
	// CountByState returns the number of sessions per state.
	CountByState(ctx context.Context) (map[models.SessionState]int64, error)
}

// UserRepository manages registered API users.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	// GetByEmail returns nil, nil when no user exists with the given email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByID returns nil, nil when no user exists with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
