package documents

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Document is the metadata row of an uploaded file. The payload lives in
// the blob store under FilePath.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	FilePath    string    `db:"file_path" json:"file_path"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	FileType    string    `db:"file_type" json:"file_type"`
	Description *string   `db:"description" json:"description,omitempty"`
	UploadedBy  uuid.UUID `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Upload is a file received from a client. Size is the size the client
// declared; the stored size is measured while streaming.
type Upload struct {
	PatientID   uuid.UUID
	Description *string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// allowedTypes lists the media types accepted for upload.
var allowedTypes = map[string]bool{
	"application/pdf":   true,
	"image/png":         true,
	"image/jpeg":        true,
	"application/dicom": true,
	"text/plain":        true,
}
