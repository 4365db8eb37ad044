package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/embeddings"
)

const collectionName = "policies"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedder:   embedder,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}

	// chromem-go requires nResults <= collection size.
	if count := s.collection.Count(); limit > count && count > 0 {
		limit = count
	} else if count == 0 {
		return nil, nil
	}

	where := buildWhereClause(filter)

	results, err := s.collection.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}

	return searchResults, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Persist saves the store's data to the given directory.
func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/policies.gob.gz", true, "")
}

// Load restores the store's data from the given directory.
func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(dir+"/policies.gob.gz", ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func buildWhereClause(filter *SearchFilter) map[string]string {
	if filter == nil {
		return nil
	}
	where := make(map[string]string)
	if filter.PolicyNumber != "" {
		where["policy_number"] = filter.PolicyNumber
	}
	if filter.CustomerID != "" {
		where["customer_id"] = filter.CustomerID
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

// metadataToMap converts DocumentMetadata to a flat map[string]string for chromem.
func metadataToMap(m DocumentMetadata) map[string]string {
	md := map[string]string{
		"policy_id":     m.PolicyID,
		"policy_number": m.PolicyNumber,
		"customer_id":   m.CustomerID,
		"chunk_index":   strconv.Itoa(m.ChunkIndex),
	}
	if m.SourceFile != "" {
		md["source_file"] = m.SourceFile
	}
	if !m.IngestedAt.IsZero() {
		md["ingested_at"] = m.IngestedAt.Format(time.RFC3339)
	}
	return md
}

// mapToMetadata converts a chromem metadata map back into DocumentMetadata.
func mapToMetadata(md map[string]string) DocumentMetadata {
	m := DocumentMetadata{
		PolicyID:     md["policy_id"],
		PolicyNumber: md["policy_number"],
		CustomerID:   md["customer_id"],
		SourceFile:   md["source_file"],
	}
	if v, err := strconv.Atoi(md["chunk_index"]); err == nil {
		m.ChunkIndex = v
	}
	if t, err := time.Parse(time.RFC3339, md["ingested_at"]); err == nil {
		m.IngestedAt = t
	}
	return m
}
