// Package indexing turns a parsed document into its persisted chunk set:
// heading-aware chunking, batch embedding, and atomic replacement of any
// previous generation of chunks.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/companyai/rag-backend/chunking"
	"github.com/companyai/rag-backend/documents"
	"github.com/companyai/rag-backend/embeddings"
)

var (
	// ErrNoChunks means the extracted text produced no chunks at all.
	ErrNoChunks = errors.New("no chunks generated")
	// ErrEmbeddingsUnavailable means every embedding call failed.
	ErrEmbeddingsUnavailable = errors.New("embeddings unavailable")
	// ErrNoText means the document has no extracted text to index.
	ErrNoText = errors.New("document has no extracted text")
)

// Chunk is one persisted chunk record.
type Chunk struct {
	Index         int
	Text          string
	Heading       string
	CharStart     int
	CharEnd       int
	TokenEstimate int
	Embedding     []float32
}

// DocumentStore is the slice of the documents store the indexer needs.
type DocumentStore interface {
	Get(ctx context.Context, companyID, docID uuid.UUID) (documents.Document, error)
	SetIndexStatus(ctx context.Context, docID uuid.UUID, status documents.IndexStatus, indexError string) error
}

// ChunkStore persists a document's chunk set. Clear drops the previous
// generation as soon as indexing starts; Replace writes the new generation in
// one transaction, so readers never see a partial overlap of two generations.
type ChunkStore interface {
	Clear(ctx context.Context, docID uuid.UUID) error
	Replace(ctx context.Context, companyID, docID uuid.UUID, chunks []Chunk) error
}

type Service struct {
	docs      DocumentStore
	chunks    ChunkStore
	embedder  embeddings.Embedder
	logger    *log.Logger
	dimension int
	chunkSize int
	overlap   int
}

func NewService(docs DocumentStore, chunks ChunkStore, embedder embeddings.Embedder, logger *log.Logger, dimension, chunkSize, overlap int) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		docs:      docs,
		chunks:    chunks,
		embedder:  embedder,
		logger:    logger,
		dimension: dimension,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// EstimateTokens approximates the token count as one token per four
// characters.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Index chunks, embeds, and persists one document. It returns the number of
// chunks created. Every failure path records a terminal index status; a
// document is never left in the transient "indexing" state.
func (s *Service) Index(ctx context.Context, companyID, docID uuid.UUID) (int, error) {
	doc, err := s.docs.Get(ctx, companyID, docID)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(doc.TextExtracted) == "" {
		return 0, ErrNoText
	}

	if err := s.docs.SetIndexStatus(ctx, docID, documents.IndexIndexing, ""); err != nil {
		return 0, err
	}

	// Drop the previous generation before chunking. A failed re-index leaves
	// the document with zero chunks, never a stale retrievable set.
	if err := s.chunks.Clear(ctx, docID); err != nil {
		clearErr := fmt.Errorf("clear previous chunks: %w", err)
		if statusErr := s.docs.SetIndexStatus(ctx, docID, documents.IndexFailed, clearErr.Error()); statusErr != nil {
			s.logger.Printf("record index failure for document %s: %v", docID, statusErr)
		}
		return 0, clearErr
	}

	count, err := s.index(ctx, doc)
	if err != nil {
		// Make sure a failure never leaves the document in "indexing".
		status := documents.IndexFailed
		if errors.Is(err, ErrNoChunks) {
			status = documents.IndexNotIndexed
		}
		if statusErr := s.docs.SetIndexStatus(ctx, docID, status, err.Error()); statusErr != nil {
			s.logger.Printf("record index failure for document %s: %v", docID, statusErr)
		}
		return 0, err
	}

	if err := s.docs.SetIndexStatus(ctx, docID, documents.IndexIndexed, ""); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) index(ctx context.Context, doc documents.Document) (int, error) {
	pieces := chunking.ChunkWithHeadings(doc.TextExtracted, s.chunkSize, s.overlap)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("%w from document text", ErrNoChunks)
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Text
	}

	vectors := embeddings.EmbedBatch(ctx, s.embedder, texts, s.logger)

	failed := 0
	for _, vec := range vectors {
		if vec == nil {
			failed++
		}
	}
	if failed == len(vectors) {
		return 0, ErrEmbeddingsUnavailable
	}

	// Chunks whose embedding failed or came back with the wrong
	// dimensionality are dropped; the survivors are renumbered sequentially
	// so ordinals stay contiguous from 0.
	records := make([]Chunk, 0, len(pieces))
	for i, piece := range pieces {
		vec := vectors[i]
		if vec == nil {
			s.logger.Printf("skipping chunk %d of document %s: embedding failed", i, doc.ID)
			continue
		}
		if len(vec) != s.dimension {
			s.logger.Printf("skipping chunk %d of document %s: expected dimension %d, got %d", i, doc.ID, s.dimension, len(vec))
			continue
		}
		records = append(records, Chunk{
			Index:         len(records),
			Text:          piece.Text,
			Heading:       piece.Heading,
			CharStart:     piece.Start,
			CharEnd:       piece.End,
			TokenEstimate: EstimateTokens(piece.Text),
			Embedding:     vec,
		})
	}

	if len(records) == 0 {
		return 0, fmt.Errorf("no chunks were successfully indexed")
	}

	if err := s.chunks.Replace(ctx, doc.CompanyID, doc.ID, records); err != nil {
		return 0, fmt.Errorf("replace chunks: %w", err)
	}

	if failed > 0 {
		s.logger.Printf("indexed %d chunks for document %s, %d failed", len(records), doc.ID, failed)
	}
	return len(records), nil
}
