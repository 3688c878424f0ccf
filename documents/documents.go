// Package documents owns the tenant-scoped document lifecycle: upload,
// text extraction, listing, and deletion.
package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status tracks the upload/extraction lifecycle.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusParsed   Status = "parsed"
	StatusFailed   Status = "failed"
)

// IndexStatus tracks the chunk-indexing lifecycle.
type IndexStatus string

const (
	IndexNotIndexed IndexStatus = "not_indexed"
	IndexIndexing   IndexStatus = "indexing"
	IndexIndexed    IndexStatus = "indexed"
	IndexFailed     IndexStatus = "failed"
)

// ErrNotFound covers both a missing document and a tenant mismatch. The two
// cases must stay indistinguishable to callers so tenants cannot probe for
// other tenants' document ids.
var ErrNotFound = errors.New("document not found")

// ErrValidation marks rejected input (bad extension, empty file, oversize).
var ErrValidation = errors.New("invalid document")

type Document struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	FilenameOriginal string
	FilenameStored   string
	MimeType         string
	FileSizeBytes    int64
	StoragePath      string
	TextExtracted    string
	Status           Status
	ErrorMessage     string
	IndexStatus      IndexStatus
	IndexError       string
	CreatedAt        time.Time
}
