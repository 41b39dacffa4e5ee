// Package llm provides text generation via langchaingo with an LRU
// response cache.
//
// Two backends are supported: "openai" for any OpenAI-compatible endpoint
// and "ollama" for a local Ollama server.
//
//	client, err := llm.NewClient(cfg.LLM, logger)
//	text, err := client.Generate(ctx, "explain this error")
//
// Identical prompts are answered from the cache without calling the model.
// With WithScrubber, secrets are redacted from prompts before they are
// cached or sent.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/fyrsmithlabs/sovereign/internal/secrets"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrEmptyPrompt indicates an empty prompt.
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DefaultCacheSize is the number of cached responses when none is configured.
const DefaultCacheSize = 100

// Client generates text with a langchaingo model.
// It is safe for concurrent use.
type Client struct {
	model    llms.Model
	cache    *lru.Cache[string, string]
	scrubber *secrets.Scrubber
	logger   *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithScrubber redacts secrets from every prompt.
func WithScrubber(s *secrets.Scrubber) Option {
	return func(c *Client) {
		c.scrubber = s
	}
}

// NewClient builds the configured backend and wraps it in a Client.
func NewClient(cfg config.LLMConfig, logger *logging.Logger, opts ...Option) (*Client, error) {
	model, err := newModel(cfg)
	if err != nil {
		return nil, err
	}
	return New(model, cfg.CacheSize, logger, opts...)
}

func newModel(cfg config.LLMConfig) (llms.Model, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}

	switch cfg.Provider {
	case "openai":
		token := cfg.APIKey.Value()
		if token == "" {
			// langchaingo requires a token, local OpenAI-compatible servers ignore it
			token = "placeholder"
		}
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(token),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		m, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating OpenAI client: %w", err)
		}
		return m, nil

	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		m, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating Ollama client: %w", err)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// New wraps model. cacheSize <= 0 selects DefaultCacheSize.
func New(model llms.Model, cacheSize int, logger *logging.Logger, opts ...Option) (*Client, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model is nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}
	c := &Client{model: model, cache: cache, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate returns the model's completion of prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	prompt = c.scrubber.Scrub(prompt)
	if cached, ok := c.cache.Get(prompt); ok {
		c.logger.Debug(ctx, "llm cache hit", zap.Int("prompt_len", len(prompt)))
		return cached, nil
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}
	c.cache.Add(prompt, text)
	return text, nil
}
