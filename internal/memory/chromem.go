package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemStore keeps context entries in an embedded chromem-go database.
// chromem metadata is string-only, so payload values are stored in their
// fmt form.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder
	logger     *logging.Logger
}

// NewChromemStore opens a database persisted under dir, or an in-memory one
// when dir is empty.
func NewChromemStore(dir, collection string, emb Embedder, logger *logging.Logger) (*ChromemStore, error) {
	if emb == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}

	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandHome(dir)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		dir = path
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return emb.EmbedQuery(ctx, text)
	}
	coll, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", collection, err)
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	logger.Info(context.Background(), "chromem memory store initialized",
		zap.String("path", dir),
		zap.String("collection", collection),
	)

	return &ChromemStore{db: db, collection: coll, embedder: emb, logger: logger}, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// StoreContext embeds message and adds it to the collection.
func (s *ChromemStore) StoreContext(ctx context.Context, message, contextID string, payload map[string]any) error {
	if message == "" {
		return ErrEmptyMessage
	}

	vector, err := s.embedder.EmbedQuery(ctx, message)
	if err != nil {
		return fmt.Errorf("embedding message: %w", err)
	}

	metadata := make(map[string]string)
	for k, v := range mergePayload(message, contextID, payload) {
		metadata[k] = fmt.Sprint(v)
	}

	err = s.collection.AddDocument(ctx, chromem.Document{
		ID:        uuid.NewString(),
		Content:   message,
		Metadata:  metadata,
		Embedding: vector,
	})
	if err != nil {
		return fmt.Errorf("adding document: %w", err)
	}
	return nil
}

// SearchSimilar returns up to limit entries closest to query.
func (s *ChromemStore) SearchSimilar(ctx context.Context, query string, limit int) ([]Record, error) {
	// chromem rejects result counts above the collection size.
	n := min(limit, s.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying context: %w", err)
	}

	records := make([]Record, 0, len(results))
	for _, r := range results {
		payload := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			payload[k] = v
		}
		records = append(records, Record{
			ID:        r.ID,
			Message:   r.Content,
			ContextID: r.Metadata[KeyContextID],
			Payload:   payload,
			Score:     r.Similarity,
		})
	}
	return records, nil
}

// Close is a no-op; persistent databases write on every add.
func (s *ChromemStore) Close() error {
	return nil
}
