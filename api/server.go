// Package api exposes the HTTP surface: document upload and management,
// hybrid search, and grounded question answering. Authentication is handled
// upstream; the tenant arrives as an X-Company-ID header.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/companyai/rag-backend/documents"
	"github.com/companyai/rag-backend/rag"
	"github.com/companyai/rag-backend/search"
)

const (
	companyHeader    = "X-Company-ID"
	maxMultipartMem  = 8 << 20
	textPreviewChars = 2000
)

type DocumentService interface {
	Upload(ctx context.Context, companyID uuid.UUID, filename, mimeType string, data []byte) (documents.Document, error)
	Get(ctx context.Context, companyID, docID uuid.UUID) (documents.Document, error)
	List(ctx context.Context, companyID uuid.UUID) ([]documents.Document, error)
	Delete(ctx context.Context, companyID, docID uuid.UUID) (int64, error)
}

type Indexer interface {
	Index(ctx context.Context, companyID, docID uuid.UUID) (int, error)
}

type Searcher interface {
	Search(ctx context.Context, companyID uuid.UUID, query string, topK int, documentID *uuid.UUID) ([]search.Result, error)
}

type Answerer interface {
	Answer(ctx context.Context, companyID uuid.UUID, question string, topK int) (rag.Response, error)
}

type Server struct {
	docs     DocumentService
	indexer  Indexer
	searcher Searcher
	answerer Answerer
	logger   *log.Logger
	handler  http.Handler
}

func New(docs DocumentService, indexer Indexer, searcher Searcher, answerer Answerer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		docs:     docs,
		indexer:  indexer,
		searcher: searcher,
		answerer: answerer,
		logger:   logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /v1/documents", s.handleUpload)
	mux.HandleFunc("GET /v1/documents", s.handleList)
	mux.HandleFunc("GET /v1/documents/{id}", s.handleGet)
	mux.HandleFunc("DELETE /v1/documents/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/documents/{id}/index", s.handleIndex)
	mux.HandleFunc("POST /v1/search", s.handleSearch)
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type documentResponse struct {
	ID               string `json:"id"`
	FilenameOriginal string `json:"filename_original"`
	MimeType         string `json:"mime_type"`
	FileSizeBytes    int64  `json:"file_size_bytes"`
	Status           string `json:"status"`
	ErrorMessage     string `json:"error_message,omitempty"`
	IndexStatus      string `json:"index_status"`
	IndexError       string `json:"index_error,omitempty"`
	CreatedAt        string `json:"created_at"`
	TextPreview      string `json:"text_preview,omitempty"`
	TextLength       int    `json:"text_length,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMem); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read uploaded file")
		return
	}

	doc, err := s.docs.Upload(r.Context(), companyID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc, false))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}

	docs, err := s.docs.List(r.Context(), companyID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toDocumentResponse(doc, false))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	doc, err := s.docs.Get(r.Context(), companyID, docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc, true))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	chunksDeleted, err := s.docs.Delete(r.Context(), companyID, docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    docID.String(),
		"status":         "deleted",
		"chunks_deleted": chunksDeleted,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	chunksCreated, err := s.indexer.Index(r.Context(), companyID, docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":    docID.String(),
		"index_status":   string(documents.IndexIndexed),
		"chunks_created": chunksCreated,
	})
}

type searchRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id,omitempty"`
}

type searchResult struct {
	ChunkID          string  `json:"chunk_id"`
	DocumentID       string  `json:"document_id"`
	DocumentFilename string  `json:"document_filename"`
	ChunkIndex       int     `json:"chunk_index"`
	Text             string  `json:"text"`
	Heading          string  `json:"heading,omitempty"`
	TokenEstimate    int     `json:"token_estimate"`
	SimilarityScore  float64 `json:"similarity_score"`
	SemanticScore    float64 `json:"semantic_score,omitempty"`
	LexicalScore     float64 `json:"lexical_score,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}
	if req.TopK > 50 {
		req.TopK = 50
	}

	var docFilter *uuid.UUID
	if req.DocumentID != "" {
		parsed, err := uuid.Parse(req.DocumentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid document_id format")
			return
		}
		docFilter = &parsed
	}

	results, err := s.searcher.Search(r.Context(), companyID, req.Query, req.TopK, docFilter)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		item := searchResult{
			ChunkID:          res.ChunkID.String(),
			DocumentID:       res.DocumentID.String(),
			DocumentFilename: res.DocumentFilename,
			ChunkIndex:       res.ChunkIndex,
			Text:             res.Text,
			Heading:          res.Heading,
			TokenEstimate:    res.TokenEstimate,
			SimilarityScore:  res.Similarity,
		}
		if res.Hybrid {
			item.SemanticScore = res.Semantic
			item.LexicalScore = res.Lexical
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":       out,
		"total_results": len(out),
	})
}

type chatRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type chatCitation struct {
	DocumentID       string `json:"document_id"`
	DocumentFilename string `json:"document_filename"`
	Heading          string `json:"heading,omitempty"`
	ChunkIndex       int    `json:"chunk_index"`
}

type chatSource struct {
	DocumentID string   `json:"document_id"`
	Filename   string   `json:"filename"`
	Heading    string   `json:"heading,omitempty"`
	Quotes     []string `json:"quotes"`
}

type chatResponse struct {
	Answer     string         `json:"answer"`
	Citations  []chatCitation `json:"citations"`
	Sources    []chatSource   `json:"sources"`
	Confidence string         `json:"confidence"`
	UsedChunks int            `json:"used_chunks"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	companyID, ok := s.tenant(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.TopK > 20 {
		req.TopK = 20
	}

	resp, err := s.answerer.Answer(r.Context(), companyID, req.Question, req.TopK)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	citations := make([]chatCitation, 0, len(resp.Citations))
	for _, c := range resp.Citations {
		citations = append(citations, chatCitation{
			DocumentID:       c.DocumentID.String(),
			DocumentFilename: c.DocumentFilename,
			Heading:          c.Heading,
			ChunkIndex:       c.ChunkIndex,
		})
	}
	sources := make([]chatSource, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		sources = append(sources, chatSource{
			DocumentID: src.DocumentID.String(),
			Filename:   src.Filename,
			Heading:    src.Heading,
			Quotes:     src.Quotes,
		})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:     resp.Answer,
		Citations:  citations,
		Sources:    sources,
		Confidence: resp.Confidence,
		UsedChunks: resp.UsedChunks,
	})
}

// tenant extracts and validates the calling company id. Requests without a
// well-formed tenant are rejected before touching any service.
func (s *Server) tenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(companyHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing "+companyHeader+" header")
		return uuid.Nil, false
	}
	companyID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+companyHeader+" header")
		return uuid.Nil, false
	}
	return companyID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id format")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service failures onto HTTP statuses. Absent and
// foreign-tenant documents produce identical 404s.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, documents.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func toDocumentResponse(doc documents.Document, includePreview bool) documentResponse {
	resp := documentResponse{
		ID:               doc.ID.String(),
		FilenameOriginal: doc.FilenameOriginal,
		MimeType:         doc.MimeType,
		FileSizeBytes:    doc.FileSizeBytes,
		Status:           string(doc.Status),
		ErrorMessage:     doc.ErrorMessage,
		IndexStatus:      string(doc.IndexStatus),
		IndexError:       doc.IndexError,
		CreatedAt:        doc.CreatedAt.Format(time.RFC3339),
	}
	if includePreview && doc.TextExtracted != "" {
		preview := doc.TextExtracted
		if len(preview) > textPreviewChars {
			preview = preview[:textPreviewChars] + "... (truncated)"
		}
		resp.TextPreview = preview
		resp.TextLength = len(doc.TextExtracted)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
