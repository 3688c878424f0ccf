package embeddings

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOllamaEmbedderReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embed", r.URL.Path)
		w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: srv.URL, Model: "nomic-embed-text", Dimension: 3})
	vec, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 3)
	require.InDelta(t, 0.2, vec[1], 1e-6)
}

func TestOllamaEmbedderRejectsDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: srv.URL, Model: "m", Dimension: 3})
	_, err := embedder.Embed(context.Background(), "hello")
	require.ErrorContains(t, err, "dimension mismatch")
}

func TestOllamaEmbedderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: srv.URL, Model: "m", Dimension: 3})
	_, err := embedder.Embed(context.Background(), "hello")
	require.ErrorContains(t, err, "model not found")
}

func TestOllamaEmbedderSurfacesErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer srv.Close()

	embedder := NewOllamaEmbedder(Options{OllamaHost: srv.URL, Model: "m", Dimension: 3})
	_, err := embedder.Embed(context.Background(), "hello")
	require.ErrorContains(t, err, "out of memory")
}

func TestOllamaEmbedderRejectsEmptyText(t *testing.T) {
	embedder := NewOllamaEmbedder(Options{OllamaHost: "http://localhost:0", Model: "m"})
	_, err := embedder.Embed(context.Background(), "   ")
	require.Error(t, err)
}

type funcEmbedder struct {
	fn func(text string) ([]float32, error)
}

func (f *funcEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.fn(text)
}

var _ Embedder = (*funcEmbedder)(nil)

func TestEmbedBatchKeepsOrderAndGaps(t *testing.T) {
	embedder := &funcEmbedder{fn: func(text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("boom")
		}
		return []float32{float32(len(text))}, nil
	}}

	results := EmbedBatch(context.Background(), embedder, []string{"good", "bad", "also good"}, log.New(io.Discard, "", 0))

	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	require.Nil(t, results[1])
	require.NotNil(t, results[2])
	require.InDelta(t, 4, results[0][0], 1e-6)
}
