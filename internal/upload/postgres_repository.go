package upload

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

// Create inserts a new upload record.
func (r *PostgresRepository) Create(ctx context.Context, u *FileUpload) error {
	query := `
		INSERT INTO file_uploads (file_name, file_type, uploaded_by, status, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at`

	err := r.pool.QueryRow(ctx, query,
		u.FileName,
		u.FileType,
		u.UploadedBy,
		u.Status,
		u.URL,
	).Scan(&u.ID, &u.UploadedAt)
	if err != nil {
		return fmt.Errorf("inserting upload: %w", err)
	}

	return nil
}

// GetByID retrieves a single upload by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*FileUpload, error) {
	query := `
		SELECT id, file_name, file_type, uploaded_by, uploaded_at, status, url
		FROM file_uploads
		WHERE id = $1`

	var u FileUpload
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.FileName, &u.FileType, &u.UploadedBy, &u.UploadedAt, &u.Status, &u.URL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("querying upload: %w", err)
	}

	return &u, nil
}

// SetResult records the terminal status of an upload.
func (r *PostgresRepository) SetResult(ctx context.Context, id uuid.UUID, status Status, url *string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE file_uploads SET status = $2, url = $3 WHERE id = $1`, id, status, url)
	if err != nil {
		return fmt.Errorf("updating upload status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

// ListByAccount retrieves uploads for an account, newest first, optionally
// filtered by file type.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, fileType *FileType, offset, limit int) ([]FileUpload, error) {
	query := `
		SELECT id, file_name, file_type, uploaded_by, uploaded_at, status, url
		FROM file_uploads
		WHERE uploaded_by = $1 AND ($2::varchar IS NULL OR file_type = $2)
		ORDER BY uploaded_at DESC
		OFFSET $3 LIMIT $4`

	rows, err := r.pool.Query(ctx, query, accountID, fileType, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	var uploads []FileUpload
	for rows.Next() {
		var u FileUpload
		err := rows.Scan(&u.ID, &u.FileName, &u.FileType, &u.UploadedBy, &u.UploadedAt, &u.Status, &u.URL)
		if err != nil {
			return nil, fmt.Errorf("scanning upload row: %w", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating upload rows: %w", err)
	}

	if uploads == nil {
		uploads = []FileUpload{}
	}

	return uploads, nil
}

// Delete removes an upload record.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM file_uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}
