// Package ingest loads policy documents into the vector store so the
// adjudicator can retrieve them as evidence.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/vectordb"
)

// maxChunkChars bounds chunk size. Paragraphs are merged until the next one
// would overflow; a single paragraph longer than the bound becomes its own
// chunk rather than being split mid-sentence.
const maxChunkChars = 1200

// Request describes one policy document to ingest.
type Request struct {
	PolicyID     string
	PolicyNumber string
	CustomerID   string
	SourceFile   string
	Text         string
}

// Ingestor chunks policy text and writes it to the vector store.
type Ingestor struct {
	store  vectordb.VectorStore
	logger *slog.Logger
}

func New(store vectordb.VectorStore) *Ingestor {
	return &Ingestor{
		store:  store,
		logger: slog.Default().With("component", "ingest"),
	}
}

// Ingest chunks the policy text and stores every chunk with policy holder
// metadata. CustomerID is stored uppercased; searches uppercase the patient
// identifier the same way. Returns the number of chunks written.
func (in *Ingestor) Ingest(ctx context.Context, req Request) (int, error) {
	if strings.TrimSpace(req.PolicyNumber) == "" {
		return 0, fmt.Errorf("policy number is required")
	}
	chunks := Chunk(req.Text, maxChunkChars)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("policy %s: no text to ingest", req.PolicyNumber)
	}

	now := time.Now()
	docs := make([]vectordb.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, vectordb.Document{
			ID:      fmt.Sprintf("policy:%s:%d", req.PolicyNumber, i),
			Content: chunk,
			Metadata: vectordb.DocumentMetadata{
				PolicyID:     req.PolicyID,
				PolicyNumber: req.PolicyNumber,
				CustomerID:   strings.ToUpper(strings.TrimSpace(req.CustomerID)),
				SourceFile:   req.SourceFile,
				ChunkIndex:   i,
				IngestedAt:   now,
			},
		})
	}

	if err := in.store.AddDocuments(ctx, docs); err != nil {
		return 0, fmt.Errorf("storing policy %s: %w", req.PolicyNumber, err)
	}

	in.logger.Info("ingested policy",
		"policy", req.PolicyNumber,
		"customer", req.CustomerID,
		"chunks", len(docs))
	return len(docs), nil
}

// IngestFile reads a plain-text policy file and ingests it.
func (in *Ingestor) IngestFile(ctx context.Context, path, policyID, policyNumber, customerID string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading policy file: %w", err)
	}
	return in.Ingest(ctx, Request{
		PolicyID:     policyID,
		PolicyNumber: policyNumber,
		CustomerID:   customerID,
		SourceFile:   filepath.Base(path),
		Text:         string(data),
	})
}

// Chunk splits text on blank lines and merges paragraphs up to maxChars.
func Chunk(text string, maxChars int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()
	return chunks
}
