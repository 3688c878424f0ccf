// Package search ranks a tenant's chunks against a query with a weighted
// blend of vector similarity and lexical full-text rank.
package search

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/companyai/rag-backend/embeddings"
)

const (
	semanticWeight = 0.7
	lexicalWeight  = 0.3

	minCandidates       = 20
	candidateMultiplier = 4
)

// Candidate is a chunk row scored by the store: semantic similarity from the
// vector index plus the lexical rank of its indexed text against the query.
type Candidate struct {
	ChunkID          uuid.UUID
	DocumentID       uuid.UUID
	DocumentFilename string
	ChunkIndex       int
	Text             string
	Heading          string
	TokenEstimate    int
	Semantic         float64
	Lexical          float64
}

// Result is a retrieved chunk with its score breakdown. Hybrid is false when
// the lexical leg was unavailable and the result carries a semantic-only
// similarity.
type Result struct {
	ChunkID          uuid.UUID
	DocumentID       uuid.UUID
	DocumentFilename string
	ChunkIndex       int
	Text             string
	Heading          string
	TokenEstimate    int
	Similarity       float64
	Semantic         float64
	Lexical          float64
	Final            float64
	Hybrid           bool
}

// Store fetches scored candidates for one tenant. Every query carries the
// company id; the store must never return another tenant's chunks.
type Store interface {
	Candidates(ctx context.Context, companyID uuid.UUID, query string, embedding []float32, limit int, documentID *uuid.UUID) ([]Candidate, error)
	SemanticOnly(ctx context.Context, companyID uuid.UUID, embedding []float32, limit int, documentID *uuid.UUID) ([]Candidate, error)
}

type Service struct {
	embedder  embeddings.Embedder
	store     Store
	dimension int
	logger    *log.Logger
}

func NewService(embedder embeddings.Embedder, store Store, dimension int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		embedder:  embedder,
		store:     store,
		dimension: dimension,
		logger:    logger,
	}
}

// Search embeds the query, pulls an oversized semantic candidate pool, blends
// in lexical rank, and returns the topK chunks by final score. Embedding
// failure fails closed with an empty result. If the hybrid query cannot
// execute, retrieval falls back transparently to semantic-only ranking.
func (s *Service) Search(ctx context.Context, companyID uuid.UUID, query string, topK int, documentID *uuid.UUID) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Printf("query embedding failed: %v", err)
		return nil, nil
	}
	if len(vec) != s.dimension {
		s.logger.Printf("query embedding has dimension %d, expected %d", len(vec), s.dimension)
		return nil, nil
	}

	candidateLimit := topK * candidateMultiplier
	if candidateLimit < minCandidates {
		candidateLimit = minCandidates
	}

	candidates, err := s.store.Candidates(ctx, companyID, query, vec, candidateLimit, documentID)
	if err != nil {
		s.logger.Printf("hybrid search failed, falling back to semantic-only: %v", err)
		return s.semanticFallback(ctx, companyID, vec, topK, documentID)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		final := semanticWeight*c.Semantic + lexicalWeight*c.Lexical
		results = append(results, Result{
			ChunkID:          c.ChunkID,
			DocumentID:       c.DocumentID,
			DocumentFilename: c.DocumentFilename,
			ChunkIndex:       c.ChunkIndex,
			Text:             c.Text,
			Heading:          c.Heading,
			TokenEstimate:    c.TokenEstimate,
			Similarity:       final,
			Semantic:         c.Semantic,
			Lexical:          c.Lexical,
			Final:            final,
			Hybrid:           true,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Final > results[j].Final
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Service) semanticFallback(ctx context.Context, companyID uuid.UUID, vec []float32, topK int, documentID *uuid.UUID) ([]Result, error) {
	candidates, err := s.store.SemanticOnly(ctx, companyID, vec, topK, documentID)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{
			ChunkID:          c.ChunkID,
			DocumentID:       c.DocumentID,
			DocumentFilename: c.DocumentFilename,
			ChunkIndex:       c.ChunkIndex,
			Text:             c.Text,
			Heading:          c.Heading,
			TokenEstimate:    c.TokenEstimate,
			Similarity:       c.Semantic,
			Semantic:         c.Semantic,
			Hybrid:           false,
		})
	}
	return results, nil
}
