package vectordb

import (
	"context"
	"math"
	"testing"
	"time"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text.
// Similar texts will produce similar vectors because shared characters contribute
// to the same positions in the vector.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	// Normalize
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func policyDocs() []Document {
	now := time.Now()
	return []Document{
		{
			ID:      "policy:ASPL-HI-784512:0",
			Content: "Room charges are covered up to 5000 per day of hospitalization",
			Metadata: DocumentMetadata{
				PolicyID:     "pol-1",
				PolicyNumber: "ASPL-HI-784512",
				CustomerID:   "ROHAN MEHTA",
				SourceFile:   "policy.txt",
				ChunkIndex:   0,
				IngestedAt:   now,
			},
		},
		{
			ID:      "policy:ASPL-HI-784512:1",
			Content: "A deductible of 500 applies per claim before co-payment",
			Metadata: DocumentMetadata{
				PolicyID:     "pol-1",
				PolicyNumber: "ASPL-HI-784512",
				CustomerID:   "ROHAN MEHTA",
				SourceFile:   "policy.txt",
				ChunkIndex:   1,
				IngestedAt:   now,
			},
		},
		{
			ID:      "policy:OTHER-1:0",
			Content: "Dental procedures are excluded from coverage entirely",
			Metadata: DocumentMetadata{
				PolicyID:     "pol-2",
				PolicyNumber: "OTHER-1",
				CustomerID:   "PRIYA NAIR",
				ChunkIndex:   0,
				IngestedAt:   now,
			},
		},
	}
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.AddDocuments(ctx, policyDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	results, err := store.Search(ctx, "room charges covered per day", 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Document.Metadata.PolicyNumber == "" {
		t.Error("metadata lost in round trip")
	}
}

func TestChromemStore_SearchFilterByPolicy(t *testing.T) {
	ctx := context.Background()

	store, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.AddDocuments(ctx, policyDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	results, err := store.Search(ctx, "coverage", 3, &SearchFilter{PolicyNumber: "ASPL-HI-784512"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 filtered results, got %d", len(results))
	}
	for _, r := range results {
		if r.Document.Metadata.PolicyNumber != "ASPL-HI-784512" {
			t.Errorf("filter leaked: %q", r.Document.Metadata.PolicyNumber)
		}
	}
}

func TestChromemStore_SearchEmpty(t *testing.T) {
	store, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	results, err := store.Search(context.Background(), "anything", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil, got %v", results)
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := store.AddDocuments(ctx, policyDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if err := store.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	count, err := restored.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("count after load = %d, want 3", count)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	in := DocumentMetadata{
		PolicyID:     "pol-1",
		PolicyNumber: "P-1",
		CustomerID:   "X",
		SourceFile:   "f.txt",
		ChunkIndex:   7,
		IngestedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	out := mapToMetadata(metadataToMap(in))
	if out != in {
		t.Errorf("round trip mismatch:\n in %+v\nout %+v", in, out)
	}
}

func TestBuildWhereClause(t *testing.T) {
	if got := buildWhereClause(nil); got != nil {
		t.Errorf("nil filter: %v", got)
	}
	if got := buildWhereClause(&SearchFilter{}); got != nil {
		t.Errorf("empty filter: %v", got)
	}
	got := buildWhereClause(&SearchFilter{PolicyNumber: "P-1", CustomerID: "X"})
	if got["policy_number"] != "P-1" || got["customer_id"] != "X" {
		t.Errorf("where = %v", got)
	}
}
