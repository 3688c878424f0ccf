package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tenant, document, and chunk tables along with the
// vector and full-text indexes retrieval depends on. Statements are idempotent
// so the bootstrap can run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS companies (
			id UUID PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL REFERENCES companies(id),
			filename_original TEXT NOT NULL,
			filename_stored TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			file_size_bytes BIGINT NOT NULL,
			storage_path TEXT NOT NULL,
			text_extracted TEXT,
			status TEXT NOT NULL DEFAULT 'uploaded',
			error_message TEXT,
			index_status TEXT NOT NULL DEFAULT 'not_indexed',
			index_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			company_id UUID NOT NULL REFERENCES companies(id),
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			text TEXT NOT NULL,
			token_estimate INT,
			embedding VECTOR(%d) NOT NULL,
			heading TEXT,
			char_start INT,
			char_end INT,
			text_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', text)) STORED,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_documents_company ON documents(company_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_company ON document_chunks(company_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding ON document_chunks USING ivfflat (embedding vector_cosine_ops)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_tsv ON document_chunks USING gin (text_tsv)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}

// EnsureCompany registers a tenant if it does not exist yet. Used by the CLI
// commands; the HTTP API assumes tenants are provisioned out of band.
func EnsureCompany(ctx context.Context, pool *pgxpool.Pool, id, name string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO companies (id, name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO NOTHING
	`, id, name)
	if err != nil {
		return fmt.Errorf("ensure company: %w", err)
	}
	return nil
}
