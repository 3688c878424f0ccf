package documents

import (
	"context"
	"io"
	"log"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	inserted      []Document
	parsedText    string
	failedMessage string

	doc           Document
	getErr        error
	chunksDeleted int64
	storagePath   string
	deleteErr     error
}

func (s *stubStore) Insert(ctx context.Context, doc Document) error {
	s.inserted = append(s.inserted, doc)
	return nil
}

func (s *stubStore) Get(ctx context.Context, companyID, docID uuid.UUID) (Document, error) {
	if s.getErr != nil {
		return Document{}, s.getErr
	}
	return s.doc, nil
}

func (s *stubStore) List(ctx context.Context, companyID uuid.UUID) ([]Document, error) {
	return []Document{s.doc}, nil
}

func (s *stubStore) Delete(ctx context.Context, companyID, docID uuid.UUID) (int64, string, error) {
	if s.deleteErr != nil {
		return 0, "", s.deleteErr
	}
	return s.chunksDeleted, s.storagePath, nil
}

func (s *stubStore) MarkParsed(ctx context.Context, docID uuid.UUID, text string) error {
	s.parsedText = text
	return nil
}

func (s *stubStore) MarkExtractFailed(ctx context.Context, docID uuid.UUID, message string) error {
	s.failedMessage = message
	return nil
}

func (s *stubStore) SetIndexStatus(ctx context.Context, docID uuid.UUID, status IndexStatus, indexError string) error {
	return nil
}

var _ Store = (*stubStore)(nil)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestUploadStoresFileAndExtractsText(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, t.TempDir(), 1<<20, discardLogger())
	companyID := uuid.New()

	doc, err := svc.Upload(context.Background(), companyID, "notes.txt", "text/plain", []byte("hello  \r\nworld"))
	require.NoError(t, err)

	require.Equal(t, StatusParsed, doc.Status)
	require.Equal(t, "hello\nworld", doc.TextExtracted)
	require.Equal(t, "hello\nworld", store.parsedText)
	require.Equal(t, companyID, doc.CompanyID)
	require.Equal(t, "source.txt", doc.FilenameStored)
	require.Equal(t, IndexNotIndexed, doc.IndexStatus)

	require.Len(t, store.inserted, 1)
	require.Equal(t, StatusUploaded, store.inserted[0].Status)

	stored, err := os.ReadFile(doc.StoragePath)
	require.NoError(t, err)
	require.Equal(t, []byte("hello  \r\nworld"), stored)
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	svc := NewService(&stubStore{}, t.TempDir(), 1<<20, discardLogger())

	_, err := svc.Upload(context.Background(), uuid.New(), "virus.exe", "", []byte("data"))
	require.ErrorIs(t, err, ErrValidation)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc := NewService(&stubStore{}, t.TempDir(), 1<<20, discardLogger())

	_, err := svc.Upload(context.Background(), uuid.New(), "empty.txt", "", nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	svc := NewService(&stubStore{}, t.TempDir(), 10, discardLogger())

	_, err := svc.Upload(context.Background(), uuid.New(), "big.txt", "", make([]byte, 11))
	require.ErrorIs(t, err, ErrValidation)
}

func TestUploadRecordsExtractionFailure(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, t.TempDir(), 1<<20, discardLogger())

	// Not a valid PDF, so extraction fails while the upload itself succeeds.
	doc, err := svc.Upload(context.Background(), uuid.New(), "broken.pdf", "", []byte("not a pdf"))
	require.NoError(t, err)
	require.Equal(t, StatusFailed, doc.Status)
	require.NotEmpty(t, doc.ErrorMessage)
	require.NotEmpty(t, store.failedMessage)
}

func TestDeleteRemovesStoredFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/source.txt"
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store := &stubStore{chunksDeleted: 4, storagePath: path}
	svc := NewService(store, dir, 1<<20, discardLogger())

	deleted, err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestDeletePropagatesNotFound(t *testing.T) {
	store := &stubStore{deleteErr: ErrNotFound}
	svc := NewService(store, t.TempDir(), 1<<20, discardLogger())

	_, err := svc.Delete(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
