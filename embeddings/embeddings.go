// Package embeddings maps text to fixed-dimension vectors via an external
// model endpoint. Providers validate the returned dimensionality before
// handing vectors to callers.
package embeddings

import (
	"context"
	"fmt"
	"log"

	"github.com/companyai/rag-backend/config"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:      cfg.Embeddings.Provider,
		Model:         cfg.Embeddings.Model,
		Dimension:     cfg.Embeddings.Dimension,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}
}

// EmbedBatch embeds each text independently, returning a slice in input
// order. A failed call yields a nil entry rather than aborting the batch;
// callers decide how to handle the gaps.
func EmbedBatch(ctx context.Context, embedder Embedder, texts []string, logger *log.Logger) [][]float32 {
	if logger == nil {
		logger = log.Default()
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := embedder.Embed(ctx, text)
		if err != nil {
			logger.Printf("embed text %d failed: %v", i, err)
			continue
		}
		results[i] = vec
	}
	return results
}
