package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prankline/prankline/internal/database/models"
)

// prankSessionRepo implements PrankSessionRepository.
type prankSessionRepo struct {
	db *DB
}

// NewPrankSessionRepository creates a new PrankSessionRepository.
func NewPrankSessionRepository(db *DB) PrankSessionRepository {
	return &prankSessionRepo{db: db}
}

// Create inserts a new session. The caller provides the ID; timestamps are
// set here and written back to the struct.
func (r *prankSessionRepo) Create(ctx context.Context, s *models.PrankSession) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO prank_sessions
		 (id, sender_number, recipient_number, sender_leg_id, recipient_leg_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID.String(), s.SenderNumber, s.RecipientNumber,
		s.SenderLegID, s.RecipientLegID, string(s.State),
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting prank session: %w", err)
	}
	return nil
}

// GetByID returns a session by ID, or nil, nil when absent.
func (r *prankSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PrankSession, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, sender_number, recipient_number, sender_leg_id, recipient_leg_id,
		        state, created_at, updated_at
		 FROM prank_sessions WHERE id = ?`), id.String(),
	)

	var (
		s     models.PrankSession
		idStr string
		state string
	)
	err := row.Scan(&idStr, &s.SenderNumber, &s.RecipientNumber,
		&s.SenderLegID, &s.RecipientLegID, &state, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying prank session: %w", err)
	}

	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing prank session id %q: %w", idStr, err)
	}
	s.State = models.SessionState(state)
	return &s, nil
}

// UpdateState performs a compare-and-set on the state column. A false return
// means the stored state no longer matched from (a concurrent writer won).
func (r *prankSessionRepo) UpdateState(ctx context.Context, id uuid.UUID, from, to models.SessionState) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE prank_sessions SET state = ?, updated_at = ? WHERE id = ? AND state = ?`),
		string(to), time.Now().UTC(), id.String(), string(from),
	)
	if err != nil {
		return false, fmt.Errorf("updating prank session state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

// SetLegID records a provider call-control handle. The guard keeps handles
// write-once: a second write for the same leg affects zero rows.
func (r *prankSessionRepo) SetLegID(ctx context.Context, id uuid.UUID, leg models.Leg, legID string) (bool, error) {
	var query string
	switch leg {
	case models.LegSender:
		query = `UPDATE prank_sessions SET sender_leg_id = ?, updated_at = ? WHERE id = ? AND sender_leg_id IS NULL`
	case models.LegRecipient:
		query = `UPDATE prank_sessions SET recipient_leg_id = ?, updated_at = ? WHERE id = ? AND recipient_leg_id IS NULL`
	default:
		return false, fmt.Errorf("unknown leg %q", leg)
	}

	result, err := r.db.ExecContext(ctx, r.db.rebind(query), legID, time.Now().UTC(), id.String())
	if err != nil {
		return false, fmt.Errorf("setting %s leg id: %w", leg, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByState returns session counts grouped by state. Served by the index
// on state; used by the metrics collector at scrape time.
func (r *prankSessionRepo) CountByState(ctx context.Context) (map[models.SessionState]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT state, COUNT(*) FROM prank_sessions GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("counting prank sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SessionState]int64)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scanning session count: %w", err)
		}
		counts[models.SessionState(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session counts: %w", err)
	}
	return counts, nil
}
