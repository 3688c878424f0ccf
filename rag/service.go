package rag

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/companyai/rag-backend/llm"
	"github.com/companyai/rag-backend/search"
)

// Retriever is the hybrid retrieval dependency (see package search).
type Retriever interface {
	Search(ctx context.Context, companyID uuid.UUID, query string, topK int, documentID *uuid.UUID) ([]search.Result, error)
}

type Service struct {
	retriever Retriever
	llm       llm.Client
	logger    *log.Logger

	topK            int
	maxContextChars int
	minSimilarity   float64
}

func NewService(retriever Retriever, llmClient llm.Client, logger *log.Logger, topK, maxContextChars int, minSimilarity float64) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		retriever:       retriever,
		llm:             llmClient,
		logger:          logger,
		topK:            topK,
		maxContextChars: maxContextChars,
		minSimilarity:   minSimilarity,
	}
}

// Answer retrieves context for the question and generates a grounded answer.
// When retrieval returns nothing, matches too weakly, or generation fails,
// the response carries a fixed fallback answer; model output never reaches
// the caller unfiltered.
func (s *Service) Answer(ctx context.Context, companyID uuid.UUID, question string, topK int) (Response, error) {
	if topK <= 0 {
		topK = s.topK
	}

	chunks, err := s.retriever.Search(ctx, companyID, question, topK, nil)
	if err != nil {
		return Response{}, err
	}

	if len(chunks) == 0 {
		return Response{
			Answer:     answerNoInformation,
			Citations:  []Citation{},
			Sources:    []Source{},
			Confidence: ConfidenceNone,
		}, nil
	}

	// Relevance gate: weak matches must not be handed to the model, where
	// they would invite inference from tangential content.
	maxSimilarity := 0.0
	for _, chunk := range chunks {
		if chunk.Similarity > maxSimilarity {
			maxSimilarity = chunk.Similarity
		}
	}
	if maxSimilarity < s.minSimilarity {
		return Response{
			Answer:     answerLowRelevance,
			Citations:  []Citation{},
			Sources:    []Source{},
			Confidence: ConfidenceLow,
		}, nil
	}

	prompt := buildPrompt(chunks, question, s.maxContextChars)

	raw, err := s.llm.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			s.logger.Printf("answer generation failed: %v", err)
		}
		return Response{
			Answer:     answerGenerationError,
			Citations:  []Citation{},
			Sources:    []Source{},
			Confidence: ConfidenceError,
		}, nil
	}

	cleaned := cleanAnswer(raw)
	citations, sources := s.groundSources(chunks, cleaned)

	return Response{
		Answer:     cleaned,
		Citations:  citations,
		Sources:    sources,
		Confidence: confidenceFor(chunks),
		UsedChunks: len(chunks),
	}, nil
}

// confidenceFor labels retrieval quality by average similarity. Independent
// of the relevance gate, which blocks generation outright.
func confidenceFor(chunks []search.Result) string {
	total := 0.0
	for _, chunk := range chunks {
		total += chunk.Similarity
	}
	avg := total / float64(len(chunks))

	switch {
	case avg >= 0.7:
		return ConfidenceHigh
	case avg >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

type sourceKey struct {
	documentID uuid.UUID
	heading    string
}

type sourceGroup struct {
	documentID uuid.UUID
	filename   string
	heading    string
	quotes     []string
	chunkIndex int
	similarity float64
}

// groundSources derives citations from the chunks that were handed to the
// model. Each chunk contributes up to two verbatim quotes; quotes that share
// no keyword with the cleaned answer are dropped, and a chunk with zero
// surviving quotes is excluded entirely. Survivors are grouped by
// (document, heading), deduplicated, capped, and ordered by best similarity.
func (s *Service) groundSources(chunks []search.Result, answer string) ([]Citation, []Source) {
	keywords := answerKeywords(answer)

	groups := make(map[sourceKey]*sourceGroup)
	var order []sourceKey

	for _, chunk := range chunks {
		candidates := extractQuotes(chunk.Text, maxQuotesPerChunk, maxQuoteLength)

		relevant := make([]string, 0, len(candidates))
		for _, quote := range candidates {
			if quoteIsRelevant(quote, keywords) {
				relevant = append(relevant, quote)
			}
		}
		if len(relevant) == 0 {
			continue
		}

		key := sourceKey{documentID: chunk.DocumentID, heading: chunk.Heading}
		group, ok := groups[key]
		if !ok {
			groups[key] = &sourceGroup{
				documentID: chunk.DocumentID,
				filename:   chunk.DocumentFilename,
				heading:    chunk.Heading,
				quotes:     relevant,
				chunkIndex: chunk.ChunkIndex,
				similarity: chunk.Similarity,
			}
			order = append(order, key)
			continue
		}

		for _, quote := range relevant {
			duplicate := false
			for _, existing := range group.quotes {
				if quotesNearDuplicate(quote, existing) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				group.quotes = append(group.quotes, quote)
			}
		}
		if len(group.quotes) > maxQuotesPerSource {
			// Prefer shorter, more concise quotes when trimming.
			sort.SliceStable(group.quotes, func(i, j int) bool {
				return len(group.quotes[i]) < len(group.quotes[j])
			})
			group.quotes = group.quotes[:maxQuotesPerSource]
		}
		if chunk.Similarity > group.similarity {
			group.similarity = chunk.Similarity
		}
	}

	sorted := make([]*sourceGroup, 0, len(groups))
	for _, key := range order {
		sorted = append(sorted, groups[key])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].similarity > sorted[j].similarity
	})

	citations := make([]Citation, 0, len(sorted))
	sources := make([]Source, 0, len(sorted))
	for _, group := range sorted {
		citations = append(citations, Citation{
			DocumentID:       group.documentID,
			DocumentFilename: group.filename,
			Heading:          group.heading,
			ChunkIndex:       group.chunkIndex,
		})
		sources = append(sources, Source{
			DocumentID: group.documentID,
			Filename:   group.filename,
			Heading:    group.heading,
			Quotes:     group.quotes,
		})
	}
	return citations, sources
}
