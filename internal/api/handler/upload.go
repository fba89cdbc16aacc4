package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kosix/kosix/internal/api/middleware"
	"github.com/kosix/kosix/internal/api/response"
	"github.com/kosix/kosix/internal/upload"
)

type uploadResponse struct {
	ID         string  `json:"id"`
	FileName   string  `json:"fileName"`
	FileType   string  `json:"fileType"`
	UploadedBy string  `json:"uploadedBy"`
	UploadedAt string  `json:"uploadedAt"`
	Status     string  `json:"status"`
	URL        *string `json:"url,omitempty"`
}

func toUploadResponse(u *upload.FileUpload) uploadResponse {
	return uploadResponse{
		ID:         u.ID.String(),
		FileName:   u.FileName,
		FileType:   string(u.FileType),
		UploadedBy: u.UploadedBy.String(),
		UploadedAt: u.UploadedAt.UTC().Format(time.RFC3339),
		Status:     string(u.Status),
		URL:        u.URL,
	}
}

// UploadHandler handles the /uploads endpoints.
type UploadHandler struct {
	uploadService *upload.Service
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService *upload.Service) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Create handles POST /uploads (multipart form, field "file").
func (h *UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	// One extra MiB of slack for the multipart framing around the 10 MiB file cap.
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxFileSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_UPLOAD", "Request must include a \"file\" form field", requestID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_UPLOAD", "Failed to read uploaded file", requestID)
		return
	}

	record, err := h.uploadService.Upload(r.Context(), header.Filename, data, acct.ID)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedFileType):
			response.Err(w, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "File type not allowed", requestID)
		case errors.Is(err, upload.ErrFileTooLarge):
			response.Err(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File size exceeds maximum allowed size of 10MB", requestID)
		default:
			slog.Error("failed to upload file", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to upload file to cloud storage", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toUploadResponse(record), requestID)
}

// List handles GET /uploads.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	offset := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	var fileType *upload.FileType
	if raw := r.URL.Query().Get("fileType"); raw != "" {
		ft, ok := upload.ParseFileType(raw)
		if !ok {
			response.Err(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Unknown fileType filter", requestID)
			return
		}
		fileType = &ft
	}

	uploads, err := h.uploadService.ListMine(r.Context(), acct.ID, fileType, offset, limit)
	if err != nil {
		slog.Error("failed to list uploads", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list uploads", requestID)
		return
	}

	items := make([]uploadResponse, 0, len(uploads))
	for i := range uploads {
		items = append(items, toUploadResponse(&uploads[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Delete handles DELETE /uploads/{id}.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	acct := middleware.GetIdentity(r.Context())
	if acct == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", requestID)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	if err := h.uploadService.Delete(r.Context(), id, acct.ID); err != nil {
		switch {
		case errors.Is(err, upload.ErrUploadNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Upload not found", requestID)
		case errors.Is(err, upload.ErrNotOwner):
			response.Err(w, http.StatusForbidden, "FORBIDDEN", "You can only delete your own uploads", requestID)
		default:
			slog.Error("failed to delete upload", "error", err, "id", id)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete upload", requestID)
		}
		return
	}

	response.NoContent(w)
}
