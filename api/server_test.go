package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/companyai/rag-backend/documents"
	"github.com/companyai/rag-backend/rag"
	"github.com/companyai/rag-backend/search"
)

type stubDocs struct {
	doc     documents.Document
	docs    []documents.Document
	deleted int64
	err     error
}

func (s *stubDocs) Upload(ctx context.Context, companyID uuid.UUID, filename, mimeType string, data []byte) (documents.Document, error) {
	if s.err != nil {
		return documents.Document{}, s.err
	}
	return s.doc, nil
}

func (s *stubDocs) Get(ctx context.Context, companyID, docID uuid.UUID) (documents.Document, error) {
	if s.err != nil {
		return documents.Document{}, s.err
	}
	return s.doc, nil
}

func (s *stubDocs) List(ctx context.Context, companyID uuid.UUID) ([]documents.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

func (s *stubDocs) Delete(ctx context.Context, companyID, docID uuid.UUID) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.deleted, nil
}

type stubIndexer struct {
	chunks int
	err    error
}

func (s *stubIndexer) Index(ctx context.Context, companyID, docID uuid.UUID) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.chunks, nil
}

type stubSearcher struct {
	results []search.Result
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, companyID uuid.UUID, query string, topK int, documentID *uuid.UUID) ([]search.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubAnswerer struct {
	resp rag.Response
	err  error
}

func (s *stubAnswerer) Answer(ctx context.Context, companyID uuid.UUID, question string, topK int) (rag.Response, error) {
	if s.err != nil {
		return rag.Response{}, s.err
	}
	return s.resp, nil
}

func newTestServer(docs *stubDocs, indexer *stubIndexer, searcher *stubSearcher, answerer *stubAnswerer) *Server {
	if docs == nil {
		docs = &stubDocs{}
	}
	if indexer == nil {
		indexer = &stubIndexer{}
	}
	if searcher == nil {
		searcher = &stubSearcher{}
	}
	if answerer == nil {
		answerer = &stubAnswerer{}
	}
	return New(docs, indexer, searcher, answerer, log.New(io.Discard, "", 0))
}

func doRequest(t *testing.T, server *Server, method, path, companyID string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if companyID != "" {
		req.Header.Set(companyHeader, companyID)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestMissingCompanyHeader(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodGet, "/v1/documents", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidCompanyHeader(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodGet, "/v1/documents", "not-a-uuid", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzNeedsNoTenant(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodGet, "/healthz", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListDocuments(t *testing.T) {
	docs := &stubDocs{docs: []documents.Document{{
		ID:               uuid.New(),
		FilenameOriginal: "handbook.pdf",
		Status:           documents.StatusParsed,
		IndexStatus:      documents.IndexIndexed,
	}}}
	server := newTestServer(docs, nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/v1/documents", uuid.NewString(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload, 1)
	require.Equal(t, "handbook.pdf", payload[0]["filename_original"])
	require.Equal(t, "indexed", payload[0]["index_status"])
}

func TestGetDocumentNotFound(t *testing.T) {
	server := newTestServer(&stubDocs{err: documents.ErrNotFound}, nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/v1/documents/"+uuid.NewString(), uuid.NewString(), nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDocumentInvalidID(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodGet, "/v1/documents/nope", uuid.NewString(), nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocumentIncludesPreview(t *testing.T) {
	doc := documents.Document{
		ID:               uuid.New(),
		FilenameOriginal: "notes.txt",
		Status:           documents.StatusParsed,
		IndexStatus:      documents.IndexNotIndexed,
		TextExtracted:    strings.Repeat("x", 2500),
	}
	server := newTestServer(&stubDocs{doc: doc}, nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/v1/documents/"+uuid.NewString(), uuid.NewString(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	preview, ok := payload["text_preview"].(string)
	require.True(t, ok)
	require.True(t, strings.HasSuffix(preview, "... (truncated)"))
	require.EqualValues(t, 2500, payload["text_length"])
}

func TestUploadDocument(t *testing.T) {
	doc := documents.Document{
		ID:               uuid.New(),
		FilenameOriginal: "notes.txt",
		Status:           documents.StatusParsed,
		IndexStatus:      documents.IndexNotIndexed,
	}
	server := newTestServer(&stubDocs{doc: doc}, nil, nil, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := doRequest(t, server, http.MethodPost, "/v1/documents", uuid.NewString(), body, writer.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "notes.txt", payload["filename_original"])
}

func TestUploadMissingFileField(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	rec := doRequest(t, server, http.MethodPost, "/v1/documents", uuid.NewString(), body, writer.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDocument(t *testing.T) {
	server := newTestServer(&stubDocs{deleted: 12}, nil, nil, nil)

	rec := doRequest(t, server, http.MethodDelete, "/v1/documents/"+uuid.NewString(), uuid.NewString(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.EqualValues(t, 12, payload["chunks_deleted"])
}

func TestIndexDocument(t *testing.T) {
	server := newTestServer(nil, &stubIndexer{chunks: 7}, nil, nil)

	rec := doRequest(t, server, http.MethodPost, "/v1/documents/"+uuid.NewString()+"/index", uuid.NewString(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.EqualValues(t, 7, payload["chunks_created"])
	require.Equal(t, "indexed", payload["index_status"])
}

func TestSearchRequiresQuery(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodPost, "/v1/search", uuid.NewString(), strings.NewReader(`{"query":""}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchInvalidBody(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodPost, "/v1/search", uuid.NewString(), strings.NewReader(`{not json`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchReturnsScoredResults(t *testing.T) {
	searcher := &stubSearcher{results: []search.Result{{
		ChunkID:          uuid.New(),
		DocumentID:       uuid.New(),
		DocumentFilename: "handbook.pdf",
		ChunkIndex:       3,
		Text:             "Employees get 15 vacation days per year.",
		Heading:          "Leave Policy",
		Similarity:       0.72,
		Semantic:         0.6,
		Lexical:          1.0,
		Hybrid:           true,
	}}}
	server := newTestServer(nil, nil, searcher, nil)

	rec := doRequest(t, server, http.MethodPost, "/v1/search", uuid.NewString(), strings.NewReader(`{"query":"vacation days"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Results      []searchResult `json:"results"`
		TotalResults int            `json:"total_results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.TotalResults)
	require.Len(t, payload.Results, 1)
	require.InDelta(t, 0.72, payload.Results[0].SimilarityScore, 1e-9)
	require.InDelta(t, 0.6, payload.Results[0].SemanticScore, 1e-9)
	require.Equal(t, "Leave Policy", payload.Results[0].Heading)
}

func TestChatRequiresQuestion(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)
	rec := doRequest(t, server, http.MethodPost, "/v1/chat", uuid.NewString(), strings.NewReader(`{"question":""}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatReturnsGroundedAnswer(t *testing.T) {
	docID := uuid.New()
	answerer := &stubAnswerer{resp: rag.Response{
		Answer:     "You have 15 vacation days.",
		Confidence: rag.ConfidenceHigh,
		UsedChunks: 2,
		Citations: []rag.Citation{{
			DocumentID:       docID,
			DocumentFilename: "handbook.pdf",
			Heading:          "Leave Policy",
			ChunkIndex:       2,
		}},
		Sources: []rag.Source{{
			DocumentID: docID,
			Filename:   "handbook.pdf",
			Heading:    "Leave Policy",
			Quotes:     []string{"Employees get 15 vacation days per year."},
		}},
	}}
	server := newTestServer(nil, nil, nil, answerer)

	rec := doRequest(t, server, http.MethodPost, "/v1/chat", uuid.NewString(), strings.NewReader(`{"question":"How many vacation days?"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var payload chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "You have 15 vacation days.", payload.Answer)
	require.Equal(t, "high", payload.Confidence)
	require.Equal(t, 2, payload.UsedChunks)
	require.Len(t, payload.Sources, 1)
	require.Equal(t, []string{"Employees get 15 vacation days per year."}, payload.Sources[0].Quotes)
	require.Len(t, payload.Citations, 1)
	require.Equal(t, docID.String(), payload.Citations[0].DocumentID)
}
