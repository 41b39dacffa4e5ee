package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/sovereign/internal/config"
	"github.com/fyrsmithlabs/sovereign/internal/logging"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const maxMessageSize = 50 * 1024 * 1024

// qdrantAPI is the subset of *qdrant.Client used by QdrantStore.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// QdrantStore keeps context entries in a Qdrant collection. The collection
// is created on first write.
type QdrantStore struct {
	client     qdrantAPI
	embedder   Embedder
	collection string
	vectorSize uint64
	logger     *logging.Logger

	mu    sync.Mutex
	ready bool
}

// NewQdrantStore connects to Qdrant over gRPC.
func NewQdrantStore(cfg config.QdrantConfig, collection string, emb Embedder, logger *logging.Logger) (*QdrantStore, error) {
	if emb == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if cfg.Host == "" || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: invalid qdrant address %s:%d", ErrInvalidConfig, cfg.Host, cfg.Port)
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey.Value(),
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if logger == nil {
		logger = logging.NewNop()
	}
	logger.Info(context.Background(), "qdrant memory store configured",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("collection", collection),
	)
	return newQdrantStore(client, collection, cfg.VectorSize, emb, logger), nil
}

func newQdrantStore(client qdrantAPI, collection string, vectorSize uint64, emb Embedder, logger *logging.Logger) *QdrantStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &QdrantStore{
		client:     client,
		embedder:   emb,
		collection: collection,
		vectorSize: vectorSize,
		logger:     logger,
	}
}

// StoreContext embeds message and upserts it with payload.
func (s *QdrantStore) StoreContext(ctx context.Context, message, contextID string, payload map[string]any) error {
	if message == "" {
		return ErrEmptyMessage
	}

	vector, err := s.embedder.EmbedQuery(ctx, message)
	if err != nil {
		return fmt.Errorf("embedding message: %w", err)
	}
	if err := s.ensureCollection(ctx, uint64(len(vector))); err != nil {
		return err
	}

	values := make(map[string]*qdrant.Value)
	for k, v := range mergePayload(message, contextID, payload) {
		values[k] = toQdrantValue(v)
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vector...),
			Payload: values,
		}},
	})
	if err != nil {
		return fmt.Errorf("upserting context: %w", err)
	}

	s.logger.Debug(ctx, "stored context", zap.String("collection", s.collection))
	return nil
}

// SearchSimilar returns up to limit entries closest to query.
func (s *QdrantStore) SearchSimilar(ctx context.Context, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying context: %w", err)
	}

	records := make([]Record, 0, len(points))
	for _, p := range points {
		payload := make(map[string]any, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			payload[k] = fromQdrantValue(v)
		}
		rec := Record{
			ID:      p.GetId().GetUuid(),
			Payload: payload,
			Score:   p.GetScore(),
		}
		rec.Message, _ = payload[KeyContent].(string)
		rec.ContextID, _ = payload[KeyContextID].(string)
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dim uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if !exists {
		size := s.vectorSize
		if size == 0 {
			size = dim
		}
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     size,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", s.collection, err)
		}
		s.logger.Info(ctx, "created memory collection",
			zap.String("collection", s.collection),
			zap.Uint64("vector_size", size),
		)
	}
	s.ready = true
	return nil
}

func toQdrantValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", val)}}
	}
}

func fromQdrantValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return nil
	}
}
