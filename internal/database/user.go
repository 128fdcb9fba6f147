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

// userRepo implements UserRepository.
type userRepo struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) UserRepository {
	return &userRepo{db: db}
}

// Create inserts a new user.
func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`),
		u.ID.String(), u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetByEmail returns a user by email, or nil, nil when absent.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`), email))
}

// GetByID returns a user by ID, or nil, nil when absent.
func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`), id.String()))
}

func (r *userRepo) scanOne(row *sql.Row) (*models.User, error) {
	var (
		u     models.User
		idStr string
	)
	err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing user id %q: %w", idStr, err)
	}
	return &u, nil
}
