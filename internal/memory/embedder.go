package memory

import (
	"fmt"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates a langchaingo embedder for an OpenAI-compatible
// endpoint. This covers both OpenAI and a local TEI server.
func NewEmbedder(cfg config.EmbeddingsConfig) (*embeddings.EmbedderImpl, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: embeddings base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embeddings model required", ErrInvalidConfig)
	}

	token := cfg.APIKey.Value()
	if token == "" {
		// langchaingo requires a token, TEI ignores it
		token = "placeholder"
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embeddings client: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return emb, nil
}
