package documents

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Service orchestrates upload validation, file storage, record creation, and
// text extraction.
type Service struct {
	store     Store
	uploadDir string
	maxBytes  int64
	logger    *log.Logger
}

func NewService(store Store, uploadDir string, maxBytes int64, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:     store,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// Upload validates and stores an uploaded file, creates the document record,
// and runs text extraction. Extraction failure is recorded on the document
// (status=failed) rather than returned as an error: the upload itself
// succeeded.
func (s *Service) Upload(ctx context.Context, companyID uuid.UUID, filename, mimeType string, data []byte) (Document, error) {
	format := DetectFormat(filename)
	if format == FormatUnknown {
		return Document{}, fmt.Errorf("%w: unsupported file extension %q", ErrValidation, filepath.Ext(filename))
	}
	if len(data) == 0 {
		return Document{}, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Document{}, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.maxBytes)
	}

	docID := uuid.New()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	storedName := "source." + ext
	docDir := filepath.Join(s.uploadDir, companyID.String(), docID.String())
	storagePath := filepath.Join(docDir, storedName)

	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return Document{}, fmt.Errorf("create upload directory: %w", err)
	}
	if err := os.WriteFile(storagePath, data, 0o644); err != nil {
		return Document{}, fmt.Errorf("store uploaded file: %w", err)
	}

	doc := Document{
		ID:               docID,
		CompanyID:        companyID,
		FilenameOriginal: filename,
		FilenameStored:   storedName,
		MimeType:         mimeType,
		FileSizeBytes:    int64(len(data)),
		StoragePath:      storagePath,
		Status:           StatusUploaded,
		IndexStatus:      IndexNotIndexed,
	}
	if err := s.store.Insert(ctx, doc); err != nil {
		return Document{}, err
	}

	text, err := ExtractText(data, format)
	if err != nil {
		s.logger.Printf("text extraction failed for document %s: %v", docID, err)
		doc.Status = StatusFailed
		doc.ErrorMessage = err.Error()
		if markErr := s.store.MarkExtractFailed(ctx, docID, err.Error()); markErr != nil {
			return Document{}, markErr
		}
		return doc, nil
	}

	doc.Status = StatusParsed
	doc.TextExtracted = text
	if err := s.store.MarkParsed(ctx, docID, text); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, companyID, docID uuid.UUID) (Document, error) {
	return s.store.Get(ctx, companyID, docID)
}

func (s *Service) List(ctx context.Context, companyID uuid.UUID) ([]Document, error) {
	return s.store.List(ctx, companyID)
}

// Delete removes the document record with its chunks, then unlinks the stored
// file. File removal is best effort: the database is already consistent, so
// filesystem errors are logged rather than surfaced.
func (s *Service) Delete(ctx context.Context, companyID, docID uuid.UUID) (int64, error) {
	chunksDeleted, storagePath, err := s.store.Delete(ctx, companyID, docID)
	if err != nil {
		return 0, err
	}

	if storagePath != "" {
		if err := os.Remove(storagePath); err != nil && !os.IsNotExist(err) {
			s.logger.Printf("remove stored file %s: %v", storagePath, err)
		} else {
			// Clean up now-empty document and company directories.
			docDir := filepath.Dir(storagePath)
			if rmErr := os.Remove(docDir); rmErr == nil {
				_ = os.Remove(filepath.Dir(docDir))
			}
		}
	}

	return chunksDeleted, nil
}
