package vectordb

import (
	"context"
	"fmt"
	"strings"

	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/embeddings"
)

// QdrantStore implements VectorStore backed by a Qdrant server over gRPC.
type QdrantStore struct {
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	embedder    embeddings.Embedder
	collection  string
}

// NewQdrantStore connects to a Qdrant server and ensures the policy
// collection exists with the embedder's vector size.
func NewQdrantStore(ctx context.Context, host string, port int, embedder embeddings.Embedder) (*QdrantStore, error) {
	conn, err := grpc.Dial(fmt.Sprintf("%s:%d", host, port), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	s := &QdrantStore{
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		embedder:    embedder,
		collection:  collectionName,
	}

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	_, err := s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.embedder.Dimensions()),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, d := range docs {
		points[i] = &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: d.ID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vectors[i]},
				},
			},
			Payload: payloadFromDocument(d),
		}
	}

	_, err = s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vectors[0],
		Limit:          uint64(limit),
		Filter:         buildQdrantFilter(filter),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]SearchResult, 0, len(resp.Result))
	for _, p := range resp.Result {
		results = append(results, SearchResult{
			Document:   documentFromPoint(p),
			Similarity: p.Score,
		})
	}
	return results, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	resp, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.Result.Count), nil
}

func buildQdrantFilter(filter *SearchFilter) *qdrant.Filter {
	if filter == nil {
		return nil
	}
	var must []*qdrant.Condition
	if filter.PolicyNumber != "" {
		must = append(must, keywordCondition("policy_number", filter.PolicyNumber))
	}
	if filter.CustomerID != "" {
		must = append(must, keywordCondition("customer_id", filter.CustomerID))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func payloadFromDocument(d Document) map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"content":       stringValue(d.Content),
		"policy_id":     stringValue(d.Metadata.PolicyID),
		"policy_number": stringValue(d.Metadata.PolicyNumber),
		"customer_id":   stringValue(d.Metadata.CustomerID),
		"chunk_index": {
			Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(d.Metadata.ChunkIndex)},
		},
	}
	if d.Metadata.SourceFile != "" {
		payload["source_file"] = stringValue(d.Metadata.SourceFile)
	}
	return payload
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func documentFromPoint(p *qdrant.ScoredPoint) Document {
	d := Document{}
	if id := p.GetId(); id != nil {
		d.ID = id.GetUuid()
	}
	payload := p.GetPayload()
	if payload == nil {
		return d
	}
	d.Content = payload["content"].GetStringValue()
	d.Metadata = DocumentMetadata{
		PolicyID:     payload["policy_id"].GetStringValue(),
		PolicyNumber: payload["policy_number"].GetStringValue(),
		CustomerID:   payload["customer_id"].GetStringValue(),
		SourceFile:   payload["source_file"].GetStringValue(),
		ChunkIndex:   int(payload["chunk_index"].GetIntegerValue()),
	}
	return d
}
