package upload

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUploadNotFound is returned when an upload record is not found.
var ErrUploadNotFound = errors.New("upload not found")

// ErrNotOwner is returned when an account operates on another account's upload.
var ErrNotOwner = errors.New("upload belongs to another account")

// Repository provides operations on the file_uploads table.
type Repository interface {
	Create(ctx context.Context, u *FileUpload) error
	GetByID(ctx context.Context, id uuid.UUID) (*FileUpload, error)
	// SetResult records the terminal status of an upload and its URL on success.
	SetResult(ctx context.Context, id uuid.UUID, status Status, url *string) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, fileType *FileType, offset, limit int) ([]FileUpload, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
