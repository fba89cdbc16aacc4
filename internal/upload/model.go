package upload

import (
	"time"

	"github.com/google/uuid"
)

// FileType classifies an uploaded file by its extension.
type FileType string

const (
	TypePNG   FileType = "png"
	TypeJPEG  FileType = "jpeg"
	TypePDF   FileType = "pdf"
	TypeCSV   FileType = "csv"
	TypeExcel FileType = "excel"
	TypeDocx  FileType = "docx"
)

// ParseFileType converts a string to a known FileType.
func ParseFileType(s string) (FileType, bool) {
	switch FileType(s) {
	case TypePNG, TypeJPEG, TypePDF, TypeCSV, TypeExcel, TypeDocx:
		return FileType(s), true
	}
	return "", false
}

// Status tracks the lifecycle of an upload: a row starts pending and moves to
// success or failed based on the storage provider's response.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// FileUpload represents a row in the file_uploads table.
type FileUpload struct {
	ID         uuid.UUID
	FileName   string
	FileType   FileType
	UploadedBy uuid.UUID
	UploadedAt time.Time
	Status     Status
	URL        *string
}
