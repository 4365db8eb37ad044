package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/agent"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/claims"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/db"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/ingest"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/invoice"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/vectordb"
)

type mockVectorStore struct {
	mu      sync.Mutex
	docs    []vectordb.Document
	results []vectordb.SearchResult
}

func (m *mockVectorStore) AddDocuments(_ context.Context, docs []vectordb.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, _ string, _ int, _ *vectordb.SearchFilter) ([]vectordb.SearchResult, error) {
	return m.results, nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) { return len(m.docs), nil }

// scriptProvider mirrors the agent test double: canned JSON for extraction
// and adjudication, scripted agent turns otherwise.
type scriptProvider struct {
	mu     sync.Mutex
	script []string
	turn   int
}

func (p *scriptProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	system := req.Messages[0].Content
	switch {
	case strings.Contains(system, "header fields"):
		return &llm.CompletionResponse{Content: `{"patientName":"Rohan Mehta","invoiceNumber":"INV-1","dateOfService":"2023-06-23","totalAmount":6200,"currency":"INR","hospitalName":"City Care"}`}, nil
	case strings.Contains(system, "itemized service lines"):
		return &llm.CompletionResponse{Content: `{"lineItems":[{"desc":"Room Charges","amount":5000,"confidence":0.95}]}`}, nil
	case strings.Contains(system, "MANDATORY POLICY-DRIVEN PROCESS"):
		return &llm.CompletionResponse{Content: `{"decision":"APPROVED","payableAmount":5700,"reasons":["Covered"],"letter":"Dear claimant","itemizedDecisions":[]}`}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.turn >= len(p.script) {
		return &llm.CompletionResponse{Content: "FINAL ANSWER: done"}, nil
	}
	resp := p.script[p.turn]
	p.turn++
	return &llm.CompletionResponse{Content: resp}, nil
}

func (p *scriptProvider) Name() string { return "script" }

func setupTestServer(t *testing.T, store vectordb.VectorStore) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	provider := &scriptProvider{script: []string{
		"ACTION: extract()",
		"ACTION: adjudicate()",
		"ACTION: save_claim_decision()",
		"FINAL ANSWER: approved",
	}}

	retriever := adjudicate.NewRetriever(store, 5, time.Second)
	engine := adjudicate.NewEngine(provider, "test-model", retriever)
	extractor := invoice.NewExtractor(provider, "test-model", 2)
	dispatcher := agent.NewDispatcher(extractor, engine, claims.NewStore(database), 5*time.Second, 2)
	loop := agent.NewLoop(provider, "test-model", dispatcher, 15)

	return New(Config{Port: 0}, loop, ingest.New(store))
}

func coveredStore() *mockVectorStore {
	return &mockVectorStore{results: []vectordb.SearchResult{
		{Document: vectordb.Document{Content: "All services covered."}, Similarity: 0.9},
	}}
}

func TestHealthz(t *testing.T) {
	srv := setupTestServer(t, coveredStore())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProcessClaim(t *testing.T) {
	srv := setupTestServer(t, coveredStore())

	body := `{"invoiceText":"Patient: Rohan\nRoom Charges 5000","policyNumber":"ASPL-HI-784512","patientName":"Rohan Mehta"}`
	req := httptest.NewRequest(http.MethodPost, "/claims/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var result agent.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.Status != agent.StatusSuccess {
		t.Errorf("status = %q (%s)", result.Status, result.ErrorMessage)
	}
	if result.Decision != adjudicate.DecisionApproved {
		t.Errorf("decision = %q", result.Decision)
	}
}

func TestProcessClaimValidation(t *testing.T) {
	srv := setupTestServer(t, coveredStore())

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"invoiceText":`},
		{"missing invoice text", `{"policyNumber":"P-1"}`},
		{"missing policy number", `{"invoiceText":"some text"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/claims/process", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d", rec.Code)
			}
		})
	}
}

func TestProcessClaimPolicyNotFound(t *testing.T) {
	srv := setupTestServer(t, &mockVectorStore{})

	body := `{"invoiceText":"Patient: Rohan","policyNumber":"MISSING-1","patientName":"Rohan Mehta"}`
	req := httptest.NewRequest(http.MethodPost, "/claims/process", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProcessFile(t *testing.T) {
	srv := setupTestServer(t, coveredStore())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "invoice.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("Patient: Rohan\nRoom Charges 5000"))
	w.WriteField("policyNumber", "ASPL-HI-784512")
	w.WriteField("patientName", "Rohan Mehta")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/claims/process-file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProcessFileMissingFile(t *testing.T) {
	srv := setupTestServer(t, coveredStore())

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("policyNumber", "P-1")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/claims/process-file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIngestPolicy(t *testing.T) {
	store := coveredStore()
	srv := setupTestServer(t, store)

	body := `{"policyId":"pol-1","policyNumber":"ASPL-HI-784512","customerId":"rohan","text":"Room charges covered.\n\nDeductible 500."}`
	req := httptest.NewRequest(http.MethodPost, "/policies/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		PolicyNumber string `json:"policyNumber"`
		Chunks       int    `json:"chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Chunks == 0 {
		t.Error("expected chunks")
	}
	if len(store.docs) != resp.Chunks {
		t.Errorf("stored %d docs, reported %d", len(store.docs), resp.Chunks)
	}
}

func TestIngestPolicyMissingNumber(t *testing.T) {
	srv := setupTestServer(t, coveredStore())

	req := httptest.NewRequest(http.MethodPost, "/policies/ingest", strings.NewReader(`{"text":"something"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
