package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize is the largest accepted upload: 10 MiB.
const MaxFileSize = 10 << 20

// ErrUnsupportedFileType is returned when the file extension is not allowed.
var ErrUnsupportedFileType = errors.New("file type not allowed")

// ErrFileTooLarge is returned when the upload exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file size exceeds maximum allowed size")

// allowedExtensions maps file extensions to their FileType.
var allowedExtensions = map[string]FileType{
	"png":  TypePNG,
	"jpg":  TypeJPEG,
	"jpeg": TypeJPEG,
	"pdf":  TypePDF,
	"csv":  TypeCSV,
	"xls":  TypeExcel,
	"xlsx": TypeExcel,
	"doc":  TypeDocx,
	"docx": TypeDocx,
}

// Validate classifies a filename by extension, or rejects it.
func Validate(filename string) (FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	ft, ok := allowedExtensions[ext]
	if !ok {
		return "", ErrUnsupportedFileType
	}
	return ft, nil
}

// resourceType maps a FileType to the storage provider's resource class.
func resourceType(ft FileType) string {
	if ft == TypePNG || ft == TypeJPEG {
		return "image"
	}
	return "raw"
}

// Service coordinates upload metadata rows with the external object store.
type Service struct {
	repo    Repository
	storage Storage
}

// NewService creates a new upload Service.
func NewService(repo Repository, storage Storage) *Service {
	return &Service{repo: repo, storage: storage}
}

// Upload validates the file, records a pending row, pushes the bytes to the
// object store, and marks the row success or failed. The failed row is kept.
func (s *Service) Upload(ctx context.Context, filename string, data []byte, ownerID uuid.UUID) (*FileUpload, error) {
	slog.Info("upload started", "file", filename, "accountId", ownerID)

	ft, err := Validate(filename)
	if err != nil {
		return nil, err
	}

	if len(data) > MaxFileSize {
		slog.Error("upload rejected, too large", "file", filename, "size", len(data))
		return nil, ErrFileTooLarge
	}

	record := &FileUpload{
		FileName:   filename,
		FileType:   ft,
		UploadedBy: ownerID,
		Status:     StatusPending,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	url, err := s.storage.Upload(ctx, bytes.NewReader(data), publicID(record), resourceType(ft))
	if err != nil {
		slog.Error("upload failed", "file", filename, "error", err)
		if setErr := s.repo.SetResult(ctx, record.ID, StatusFailed, nil); setErr != nil {
			slog.Error("failed to mark upload as failed", "uploadId", record.ID, "error", setErr)
		}
		record.Status = StatusFailed
		return nil, fmt.Errorf("storing file: %w", err)
	}

	if err := s.repo.SetResult(ctx, record.ID, StatusSuccess, &url); err != nil {
		return nil, err
	}
	record.Status = StatusSuccess
	record.URL = &url

	slog.Info("upload completed", "file", filename, "uploadId", record.ID)

	return record, nil
}

// ListMine returns the account's uploads, optionally filtered by type.
func (s *Service) ListMine(ctx context.Context, accountID uuid.UUID, fileType *FileType, offset, limit int) ([]FileUpload, error) {
	return s.repo.ListByAccount(ctx, accountID, fileType, offset, limit)
}

// Delete removes an upload record and its remote object. Only the uploader
// may delete it.
func (s *Service) Delete(ctx context.Context, id, accountID uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if record.UploadedBy != accountID {
		return ErrNotOwner
	}

	if record.Status == StatusSuccess {
		if err := s.storage.Destroy(ctx, publicID(record), resourceType(record.FileType)); err != nil {
			slog.Warn("failed to destroy remote object", "uploadId", id, "error", err)
		}
	}

	return s.repo.Delete(ctx, id)
}

// publicID derives the stable object-store identifier for an upload.
func publicID(u *FileUpload) string {
	base := strings.TrimSuffix(u.FileName, path.Ext(u.FileName))
	return fmt.Sprintf("uploads/%s/%s_%s", u.UploadedBy, u.ID, base)
}
