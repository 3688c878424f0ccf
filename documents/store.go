package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists documents. All reads are scoped by company id; a lookup for
// another tenant's document returns ErrNotFound.
type Store interface {
	Insert(ctx context.Context, doc Document) error
	Get(ctx context.Context, companyID, docID uuid.UUID) (Document, error)
	List(ctx context.Context, companyID uuid.UUID) ([]Document, error)
	Delete(ctx context.Context, companyID, docID uuid.UUID) (chunksDeleted int64, storagePath string, err error)
	MarkParsed(ctx context.Context, docID uuid.UUID, text string) error
	MarkExtractFailed(ctx context.Context, docID uuid.UUID, message string) error
	SetIndexStatus(ctx context.Context, docID uuid.UUID, status IndexStatus, indexError string) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

const documentColumns = `
	id, company_id, filename_original, filename_stored, mime_type,
	file_size_bytes, storage_path, COALESCE(text_extracted, ''), status,
	COALESCE(error_message, ''), index_status, COALESCE(index_error, ''),
	created_at`

func (s *PostgresStore) Insert(ctx context.Context, doc Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (
			id, company_id, filename_original, filename_stored, mime_type,
			file_size_bytes, storage_path, status, index_status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`, doc.ID, doc.CompanyID, doc.FilenameOriginal, doc.FilenameStored, doc.MimeType,
		doc.FileSizeBytes, doc.StoragePath, doc.Status, doc.IndexStatus)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, companyID, docID uuid.UUID) (Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = $1 AND company_id = $2
	`, docID, companyID)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("query document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context, companyID uuid.UUID) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		doc, scanErr := scanDocument(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan document: %w", scanErr)
		}
		docs = append(docs, doc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return docs, nil
}

// Delete removes the document and its chunks in one transaction and returns
// the storage path so the caller can unlink the stored file.
func (s *PostgresStore) Delete(ctx context.Context, companyID, docID uuid.UUID) (int64, string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var storagePath string
	err = tx.QueryRow(ctx, `
		SELECT storage_path FROM documents WHERE id = $1 AND company_id = $2
	`, docID, companyID).Scan(&storagePath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", ErrNotFound
		}
		return 0, "", fmt.Errorf("query document: %w", err)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", docID)
	if err != nil {
		return 0, "", fmt.Errorf("delete chunks: %w", err)
	}
	chunksDeleted := tag.RowsAffected()

	if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE id = $1", docID); err != nil {
		return 0, "", fmt.Errorf("delete document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, "", fmt.Errorf("commit delete: %w", err)
	}
	return chunksDeleted, storagePath, nil
}

func (s *PostgresStore) MarkParsed(ctx context.Context, docID uuid.UUID, text string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, text_extracted = $3, error_message = NULL
		WHERE id = $1
	`, docID, StatusParsed, text)
	if err != nil {
		return fmt.Errorf("mark document parsed: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkExtractFailed(ctx context.Context, docID uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, error_message = $3
		WHERE id = $1
	`, docID, StatusFailed, message)
	if err != nil {
		return fmt.Errorf("mark document failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetIndexStatus(ctx context.Context, docID uuid.UUID, status IndexStatus, indexError string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET index_status = $2, index_error = NULLIF($3, '')
		WHERE id = $1
	`, docID, status, indexError)
	if err != nil {
		return fmt.Errorf("set index status: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.CompanyID, &doc.FilenameOriginal, &doc.FilenameStored,
		&doc.MimeType, &doc.FileSizeBytes, &doc.StoragePath, &doc.TextExtracted,
		&doc.Status, &doc.ErrorMessage, &doc.IndexStatus, &doc.IndexError,
		&doc.CreatedAt,
	)
	return doc, err
}
