// Package rag answers questions from retrieved chunks under a strict
// answer-only-from-context policy, emitting citations whose quotes are
// lexically verified against the retrieved text.
package rag

import (
	"github.com/google/uuid"
)

// Confidence labels derived from retrieval quality.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
	ConfidenceNone   = "none"
	ConfidenceError  = "error"
)

// Fixed user-facing answers. Nothing else may reach the user when retrieval
// or generation cannot be grounded.
const (
	answerNoInformation = "I don't have enough information in the uploaded documents to answer this question."
	answerLowRelevance  = "I don't have enough information in the uploaded documents to answer this question. " +
		"The available documents do not contain information directly related to this topic."
	answerGenerationError = "I encountered an error while generating a response. Please try again."
)

// Citation points at the document section a chunk came from. Kept for
// backward compatibility; Sources carry the quotes.
type Citation struct {
	DocumentID       uuid.UUID
	DocumentFilename string
	Heading          string
	ChunkIndex       int
}

// Source groups verified verbatim quotes by (document, heading).
type Source struct {
	DocumentID uuid.UUID
	Filename   string
	Heading    string
	Quotes     []string
}

type Response struct {
	Answer     string
	Citations  []Citation
	Sources    []Source
	Confidence string
	UsedChunks int
}
