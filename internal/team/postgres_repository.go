package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
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

// relTable maps a Relation to its table name. Relation values come from the
// package constants, never from user input.
func relTable(rel Relation) string {
	if rel == RelationManagers {
		return "team_managers"
	}
	return "team_members"
}

// Create inserts a new team record.
func (r *PostgresRepository) Create(ctx context.Context, t *Team) error {
	query := `
		INSERT INTO teams (name, avatar_url, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, t.Name, t.AvatarURL, t.OwnerID).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting team: %w", err)
	}

	return nil
}

// GetByID retrieves a single team by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Team, error) {
	query := `
		SELECT id, name, avatar_url, owner_id, created_at, updated_at
		FROM teams
		WHERE id = $1`

	var t Team
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&t.ID, &t.Name, &t.AvatarURL, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("querying team: %w", err)
	}

	return &t, nil
}

func scanSummaries(rows pgx.Rows) ([]Summary, error) {
	defer rows.Close()

	var teams []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.AvatarURL, &s.OwnerID, &s.MemberCount); err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team rows: %w", err)
	}

	if teams == nil {
		teams = []Summary{}
	}

	return teams, nil
}

// List returns team summaries with member counts, optionally filtered by owner.
func (r *PostgresRepository) List(ctx context.Context, ownerID *uuid.UUID, offset, limit int) ([]Summary, error) {
	query := `
		SELECT t.id, t.name, t.avatar_url, t.owner_id, COUNT(m.account_id)
		FROM teams t
		LEFT JOIN team_members m ON t.id = m.team_id
		WHERE ($1::uuid IS NULL OR t.owner_id = $1)
		GROUP BY t.id
		ORDER BY t.created_at ASC
		OFFSET $2 LIMIT $3`

	rows, err := r.pool.Query(ctx, query, ownerID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	return scanSummaries(rows)
}

// ListByAccount returns the union of teams the account owns, belongs to, or
// manages, each with its member count.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Summary, error) {
	query := `
		SELECT t.id, t.name, t.avatar_url, t.owner_id, COUNT(m.account_id)
		FROM teams t
		LEFT JOIN team_members m ON t.id = m.team_id
		WHERE t.owner_id = $1
		   OR t.id IN (SELECT team_id FROM team_members WHERE account_id = $1)
		   OR t.id IN (SELECT team_id FROM team_managers WHERE account_id = $1)
		GROUP BY t.id
		ORDER BY t.created_at ASC`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing teams for account: %w", err)
	}

	return scanSummaries(rows)
}

// Update applies the non-nil fields and bumps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, name, avatarURL *string) (*Team, error) {
	query := `
		UPDATE teams
		SET name = COALESCE($2, name),
		    avatar_url = COALESCE($3, avatar_url),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, avatar_url, owner_id, created_at, updated_at`

	var t Team
	err := r.pool.QueryRow(ctx, query, id, name, avatarURL).
		Scan(&t.ID, &t.Name, &t.AvatarURL, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("updating team: %w", err)
	}

	return &t, nil
}

// UpdateOwner reassigns the team's owner.
func (r *PostgresRepository) UpdateOwner(ctx context.Context, id, ownerID uuid.UUID) (*Team, error) {
	query := `
		UPDATE teams
		SET owner_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, avatar_url, owner_id, created_at, updated_at`

	var t Team
	err := r.pool.QueryRow(ctx, query, id, ownerID).
		Scan(&t.ID, &t.Name, &t.AvatarURL, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("updating team owner: %w", err)
	}

	return &t, nil
}

// Delete removes a team by its UUID; membership rows cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTeamNotFound
	}

	return nil
}

// Add inserts the pair into the relation if absent.
func (r *PostgresRepository) Add(ctx context.Context, rel Relation, teamID, accountID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (team_id, account_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		relTable(rel))

	result, err := r.pool.Exec(ctx, query, teamID, accountID)
	if err != nil {
		return false, fmt.Errorf("adding to %s: %w", rel, err)
	}

	return result.RowsAffected() > 0, nil
}

// Remove deletes the pairs from the relation, returning how many existed.
func (r *PostgresRepository) Remove(ctx context.Context, rel Relation, teamID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE team_id = $1 AND account_id = ANY($2)`,
		relTable(rel))

	result, err := r.pool.Exec(ctx, query, teamID, accountIDs)
	if err != nil {
		return 0, fmt.Errorf("removing from %s: %w", rel, err)
	}

	return int(result.RowsAffected()), nil
}

// Contains reports whether the pair is present in the relation.
func (r *PostgresRepository) Contains(ctx context.Context, rel Relation, teamID, accountID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(
		`SELECT EXISTS(SELECT 1 FROM %s WHERE team_id = $1 AND account_id = $2)`,
		relTable(rel))

	var exists bool
	if err := r.pool.QueryRow(ctx, query, teamID, accountID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking %s: %w", rel, err)
	}

	return exists, nil
}

// ListAccounts returns the account ids in the relation.
func (r *PostgresRepository) ListAccounts(ctx context.Context, rel Relation, teamID uuid.UUID) ([]uuid.UUID, error) {
	query := fmt.Sprintf(
		`SELECT account_id FROM %s WHERE team_id = $1`,
		relTable(rel))

	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", rel, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", rel, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", rel, err)
	}

	if ids == nil {
		ids = []uuid.UUID{}
	}

	return ids, nil
}
