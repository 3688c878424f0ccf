package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Candidates returns the top candidates by cosine similarity, each carrying
// a ts_rank_cd lexical score of its indexed text against the query.
func (s *PostgresStore) Candidates(ctx context.Context, companyID uuid.UUID, query string, embedding []float32, limit int, documentID *uuid.UUID) ([]Candidate, error) {
	sql := `
		SELECT
			dc.id,
			dc.document_id,
			d.filename_original,
			dc.chunk_index,
			dc.text,
			COALESCE(dc.heading, ''),
			COALESCE(dc.token_estimate, 0),
			1 - (dc.embedding <=> $1::vector) AS semantic_score,
			COALESCE(ts_rank_cd(dc.text_tsv, plainto_tsquery('english', $2)), 0) AS lexical_score
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE dc.company_id = $3`
	args := []any{pgvector.NewVector(embedding), query, companyID}
	if documentID != nil {
		sql += " AND dc.document_id = $4"
		args = append(args, *documentID)
	}
	sql += fmt.Sprintf(`
		ORDER BY dc.embedding <=> $1::vector
		LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query hybrid candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, true)
}

// SemanticOnly ranks by cosine similarity alone. Used as the fallback when
// the lexical leg of the hybrid query is unavailable.
func (s *PostgresStore) SemanticOnly(ctx context.Context, companyID uuid.UUID, embedding []float32, limit int, documentID *uuid.UUID) ([]Candidate, error) {
	sql := `
		SELECT
			dc.id,
			dc.document_id,
			d.filename_original,
			dc.chunk_index,
			dc.text,
			COALESCE(dc.heading, ''),
			COALESCE(dc.token_estimate, 0),
			1 - (dc.embedding <=> $1::vector) AS semantic_score
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE dc.company_id = $2`
	args := []any{pgvector.NewVector(embedding), companyID}
	if documentID != nil {
		sql += " AND dc.document_id = $3"
		args = append(args, *documentID)
	}
	sql += fmt.Sprintf(`
		ORDER BY dc.embedding <=> $1::vector
		LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query semantic candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, false)
}

func scanCandidates(rows pgx.Rows, withLexical bool) ([]Candidate, error) {
	candidates := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		dest := []any{
			&c.ChunkID, &c.DocumentID, &c.DocumentFilename, &c.ChunkIndex,
			&c.Text, &c.Heading, &c.TokenEstimate, &c.Semantic,
		}
		if withLexical {
			dest = append(dest, &c.Lexical)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return candidates, nil
}
