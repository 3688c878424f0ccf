package indexing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PostgresChunkStore struct {
	pool *pgxpool.Pool
}

func NewPostgresChunkStore(pool *pgxpool.Pool) *PostgresChunkStore {
	return &PostgresChunkStore{pool: pool}
}

var _ ChunkStore = (*PostgresChunkStore)(nil)

// Clear deletes every chunk of the document.
func (s *PostgresChunkStore) Clear(ctx context.Context, docID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}
	return nil
}

// Replace swaps the document's chunk set inside a single transaction. The
// delete is a no-op after Clear but keeps Replace safe on its own.
func (s *PostgresChunkStore) Replace(ctx context.Context, companyID, docID uuid.UUID, chunks []Chunk) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for _, chunk := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO document_chunks (
				id, company_id, document_id, chunk_index, text,
				token_estimate, embedding, heading, char_start, char_end, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, NOW())
		`, uuid.New(), companyID, docID, chunk.Index, chunk.Text,
			chunk.TokenEstimate, pgvector.NewVector(chunk.Embedding), chunk.Heading,
			chunk.CharStart, chunk.CharEnd); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunk replacement: %w", err)
	}
	return nil
}
