package vectordb

import "context"

// VectorStore defines the interface for storing and searching policy
// documents by embeddings.
type VectorStore interface {
	// AddDocuments adds or updates documents in the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search performs a semantic search using the query text.
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)

	// Count returns the total number of documents in the store.
	Count(ctx context.Context) (int, error)
}
