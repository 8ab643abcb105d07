package embed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/amishk599/coldmail/internal/config"
)

// Embedder turns text into vectors for similarity search.
// Name identifies the embedding space; vectors from different names are not comparable.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New builds the embedder selected by cfg.
func New(cfg config.EmbeddingConfig, httpClient *http.Client) (Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return NewHashEmbedder(cfg.Dimensions), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, httpClient), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
}
