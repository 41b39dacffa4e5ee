// Package memory records orchestration context, such as anomalies, in a
// vector store so it can be recalled by similarity later.
//
// Backends:
//
//	qdrant   remote Qdrant over gRPC
//	chromem  embedded chromem-go, optionally persisted to disk
//	none     discards everything
package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/fyrsmithlabs/sovereign/internal/secrets"
)

// Payload keys written by every backend.
const (
	KeyContent   = "content"
	KeyContextID = "context_id"
)

var (
	// ErrEmptyMessage indicates an empty context message.
	ErrEmptyMessage = errors.New("empty message")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Embedder turns text into vectors. langchaingo's embeddings.Embedder
// satisfies it.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Record is one stored context entry.
type Record struct {
	ID        string
	Message   string
	ContextID string
	Payload   map[string]any
	Score     float32
}

// Store persists and recalls context entries.
type Store interface {
	StoreContext(ctx context.Context, message, contextID string, payload map[string]any) error
	SearchSimilar(ctx context.Context, query string, limit int) ([]Record, error)
	Close() error
}

// Option configures NewStore.
type Option func(*storeOptions)

type storeOptions struct {
	scrubber *secrets.Scrubber
}

// WithScrubber redacts secrets from everything written to the backend.
func WithScrubber(s *secrets.Scrubber) Option {
	return func(o *storeOptions) {
		o.scrubber = s
	}
}

// NewStore builds the backend selected by cfg.Provider.
func NewStore(cfg config.MemoryConfig, logger *logging.Logger, opts ...Option) (Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	store, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	if o.scrubber != nil {
		return NewScrubbedStore(store, o.scrubber), nil
	}
	return store, nil
}

func newBackend(cfg config.MemoryConfig, logger *logging.Logger) (Store, error) {
	switch cfg.Provider {
	case "", "none":
		return NopStore{}, nil
	case "qdrant":
		emb, err := NewEmbedder(cfg.Embeddings)
		if err != nil {
			return nil, err
		}
		return NewQdrantStore(cfg.Qdrant, cfg.Collection, emb, logger)
	case "chromem":
		emb, err := NewEmbedder(cfg.Embeddings)
		if err != nil {
			return nil, err
		}
		return NewChromemStore(cfg.ChromemDir, cfg.Collection, emb, logger)
	default:
		return nil, fmt.Errorf("%w: unknown memory provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// NopStore discards all context.
type NopStore struct{}

// StoreContext implements Store.
func (NopStore) StoreContext(context.Context, string, string, map[string]any) error { return nil }

// SearchSimilar implements Store.
func (NopStore) SearchSimilar(context.Context, string, int) ([]Record, error) { return nil, nil }

// Close implements Store.
func (NopStore) Close() error { return nil }

// ScrubbedStore redacts secrets from messages, payload strings and queries
// before they reach the wrapped Store.
type ScrubbedStore struct {
	Store
	scrubber *secrets.Scrubber
}

// NewScrubbedStore wraps store with scrubber.
func NewScrubbedStore(store Store, scrubber *secrets.Scrubber) *ScrubbedStore {
	return &ScrubbedStore{Store: store, scrubber: scrubber}
}

// StoreContext implements Store.
func (s *ScrubbedStore) StoreContext(ctx context.Context, message, contextID string, payload map[string]any) error {
	return s.Store.StoreContext(ctx, s.scrubber.Scrub(message), contextID, s.scrubber.ScrubPayload(payload))
}

// SearchSimilar implements Store.
func (s *ScrubbedStore) SearchSimilar(ctx context.Context, query string, limit int) ([]Record, error) {
	return s.Store.SearchSimilar(ctx, s.scrubber.Scrub(query), limit)
}

// mergePayload returns the caller's payload plus the content and context id.
// Caller keys never override the reserved ones.
func mergePayload(message, contextID string, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out[KeyContent] = message
	out[KeyContextID] = contextID
	return out
}
