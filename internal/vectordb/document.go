package vectordb

import "time"

// Document represents a policy text chunk stored and searched by embedding.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata holds structured information about a policy chunk.
type DocumentMetadata struct {
	PolicyID     string
	PolicyNumber string
	CustomerID   string
	SourceFile   string
	ChunkIndex   int
	IngestedAt   time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}

// SearchFilter narrows search results to a single policy holder.
// PolicyNumber is matched exactly; CustomerID is matched against the
// uppercased patient identifier stored at ingestion time.
type SearchFilter struct {
	PolicyNumber string
	CustomerID   string
}
