package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

const insertSessionQuery = `
	INSERT INTO sessions (account_id, session_token, expires_at, ip_address, is_active)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

// Create inserts a new session record.
func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	err := r.pool.QueryRow(ctx, insertSessionQuery,
		s.AccountID,
		s.Token,
		s.ExpiresAt,
		s.IPAddress,
		s.Active,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	return nil
}

// FindActiveByToken returns the active session holding the exact token string.
func (r *PostgresRepository) FindActiveByToken(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT id, account_id, session_token, expires_at, ip_address, is_active, created_at
		FROM sessions
		WHERE session_token = $1 AND is_active`

	var s Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.ID, &s.AccountID, &s.Token, &s.ExpiresAt, &s.IPAddress, &s.Active, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}

	return &s, nil
}

// Deactivate marks the active session holding the token as inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, token string) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE session_token = $1 AND is_active`, token)
	if err != nil {
		return false, fmt.Errorf("deactivating session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Rotate deactivates the old session and inserts its replacement atomically.
func (r *PostgresRepository) Rotate(ctx context.Context, oldToken string, next *Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning rotation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx,
		`UPDATE sessions SET is_active = FALSE WHERE session_token = $1 AND is_active`, oldToken)
	if err != nil {
		return fmt.Errorf("deactivating old session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	err = tx.QueryRow(ctx, insertSessionQuery,
		next.AccountID,
		next.Token,
		next.ExpiresAt,
		next.IPAddress,
		next.Active,
	).Scan(&next.ID, &next.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting replacement session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rotation: %w", err)
	}

	return nil
}
