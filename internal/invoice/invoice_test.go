package invoice

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
)

// --- Mock LLM Provider ---

// mockProvider answers metadata and line-item calls differently by looking at
// the system prompt.
type mockProvider struct {
	metadataResponse  string
	lineItemsResponse string
	err               error
	calls             atomic.Int64
}

func (m *mockProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	content := m.lineItemsResponse
	if strings.Contains(req.Messages[0].Content, "header fields") {
		content = m.metadataResponse
	}
	return &llm.CompletionResponse{Content: content}, nil
}

func (m *mockProvider) Name() string { return "mock" }

const sampleInvoice = `CITY CARE HOSPITAL
Patient Name: Rohan Mehta
Invoice No: INV-2023-0042
Date: 2023-06-23

ITEMIZED SERVICES
Room Charges ........ 5000
X-Ray ............... 1200

Total: 6200`

func TestExtract(t *testing.T) {
	provider := &mockProvider{
		metadataResponse: `{"patientName":"Rohan Mehta","invoiceNumber":"INV-2023-0042","dateOfService":"2023-06-23","totalAmount":6200,"currency":"INR","hospitalName":"City Care Hospital"}`,
		lineItemsResponse: `{"lineItems":[
			{"desc":"Room Charges","amount":5000,"confidence":0.95},
			{"desc":"X-Ray","amount":1200,"confidence":0.9}
		]}`,
	}
	extractor := NewExtractor(provider, "test-model", 2)

	res, err := extractor.Extract(context.Background(), sampleInvoice)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Valid {
		t.Errorf("expected valid extraction, issues: %v", res.Issues)
	}
	if res.Invoice.PatientName != "Rohan Mehta" {
		t.Errorf("patient name = %q", res.Invoice.PatientName)
	}
	if len(res.Invoice.LineItems) != 2 {
		t.Errorf("expected 2 line items, got %d", len(res.Invoice.LineItems))
	}
	if res.Invoice.TotalAmount != 6200 {
		t.Errorf("total = %v", res.Invoice.TotalAmount)
	}
}

func TestExtractMissingPatientNameIsFatal(t *testing.T) {
	provider := &mockProvider{
		metadataResponse:  `{"patientName":"","invoiceNumber":"INV-1","dateOfService":"2023-01-01","totalAmount":100,"currency":"INR","hospitalName":"H"}`,
		lineItemsResponse: `{"lineItems":[{"desc":"Consult","amount":100,"confidence":0.9}]}`,
	}
	extractor := NewExtractor(provider, "test-model", 2)

	_, err := extractor.Extract(context.Background(), sampleInvoice)
	if !errors.Is(err, ErrMissingPatientName) {
		t.Fatalf("expected ErrMissingPatientName, got %v", err)
	}
}

func TestExtractLowConfidenceIsSoftIssue(t *testing.T) {
	provider := &mockProvider{
		metadataResponse:  `{"patientName":"Rohan Mehta","invoiceNumber":"INV-1","dateOfService":"2023-01-01","totalAmount":100,"currency":"INR","hospitalName":"H"}`,
		lineItemsResponse: `{"lineItems":[{"desc":"Smudged line","amount":40,"confidence":0.4}]}`,
	}
	extractor := NewExtractor(provider, "test-model", 2)

	res, err := extractor.Extract(context.Background(), sampleInvoice)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Valid {
		t.Error("expected invalid result")
	}
	found := false
	for _, issue := range res.Issues {
		if strings.Contains(issue, "Low confidence for line item 'Smudged line'") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing low-confidence issue, got %v", res.Issues)
	}
}

func TestExtractProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("rate limited")}
	extractor := NewExtractor(provider, "test-model", 2)

	if _, err := extractor.Extract(context.Background(), sampleInvoice); err == nil {
		t.Fatal("expected error")
	}
}

func TestGate(t *testing.T) {
	inv := &Invoice{
		PatientName:   "Rohan Mehta",
		InvoiceNumber: "INV-1",
		DateOfService: "2023-06-23",
		TotalAmount:   6200,
		LineItems: []LineItem{
			{Description: "Room Charges", Amount: 5000, Confidence: 0.95},
		},
		Confidence: map[string]float64{},
	}
	if issues := Gate(inv); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestGateReportsAllIssues(t *testing.T) {
	inv := &Invoice{
		Confidence: map[string]float64{
			"totalAmount":   0.5,
			"invoiceNumber": 0.3,
		},
	}
	issues := Gate(inv)

	want := []string{
		IssueMissingPatientName,
		IssueMissingInvoiceNumber,
		IssueInvalidTotalAmount,
		IssueMissingDateOfService,
		"Low confidence for field 'invoiceNumber': 0.30",
		"Low confidence for field 'totalAmount': 0.50",
	}
	if len(issues) != len(want) {
		t.Fatalf("expected %d issues, got %d: %v", len(want), len(issues), issues)
	}
	for i, w := range want {
		if issues[i] != w {
			t.Errorf("issue[%d] = %q, want %q", i, issues[i], w)
		}
	}
	if !HasFatalIssue(issues) {
		t.Error("expected fatal issue")
	}
}

func TestGateThresholdBoundary(t *testing.T) {
	inv := &Invoice{
		PatientName:   "A",
		InvoiceNumber: "B",
		DateOfService: "C",
		TotalAmount:   1,
		LineItems:     []LineItem{{Description: "exactly at threshold", Amount: 1, Confidence: 0.70}},
	}
	if issues := Gate(inv); len(issues) != 0 {
		t.Errorf("0.70 must pass the gate, got %v", issues)
	}
}

func TestGateIdempotent(t *testing.T) {
	inv := &Invoice{Confidence: map[string]float64{"totalAmount": 0.2}}
	first := Gate(inv)
	second := Gate(inv)
	if len(first) != len(second) {
		t.Fatalf("gate changed between runs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("issue[%d] differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestMergeLineItemsDeduplicates(t *testing.T) {
	parts := []lineItemsOnly{
		{LineItems: []LineItem{
			{Description: "Room Charges", Amount: 5000, Confidence: 0.9},
			{Description: "X-Ray", Amount: 1200, Confidence: 0.8},
		}},
		{LineItems: []LineItem{
			{Description: "  room charges ", Amount: 5000, Confidence: 0.7},
			{Description: "Pharmacy", Amount: 300, Confidence: 0.85},
		}},
	}
	merged := mergeLineItems(parts)
	if len(merged) != 3 {
		t.Fatalf("expected 3 items, got %d: %v", len(merged), merged)
	}
	// First occurrence wins.
	if merged[0].Confidence != 0.9 {
		t.Errorf("expected first occurrence kept, got confidence %v", merged[0].Confidence)
	}
}

func TestMergeLineItemsKeepsSameDescriptionDifferentAmount(t *testing.T) {
	parts := []lineItemsOnly{
		{LineItems: []LineItem{
			{Description: "Consultation", Amount: 500, Confidence: 0.9},
			{Description: "Consultation", Amount: 700, Confidence: 0.9},
		}},
	}
	if merged := mergeLineItems(parts); len(merged) != 2 {
		t.Errorf("distinct amounts must both survive, got %d", len(merged))
	}
}

func TestItemizedSection(t *testing.T) {
	text := "Header stuff\nPatient: X\n\nLINE ITEMS\nConsult 100\n"
	got := itemizedSection(text)
	if !strings.HasPrefix(got, "LINE ITEMS") {
		t.Errorf("section start = %q", got[:20])
	}
}

func TestItemizedSectionLowercaseMarker(t *testing.T) {
	text := "Header\n\nline items\nConsult 100\n"
	if got := itemizedSection(text); !strings.HasPrefix(got, "line items") {
		t.Errorf("section start = %q", got)
	}
}

func TestItemizedSectionNonASCIIPrefix(t *testing.T) {
	// Dotless i uppercases to single-byte "I", so an uppercased copy of the
	// text is shorter than the original. The marker offset must still index
	// the original text correctly.
	text := "Hastane Faturası\nHasta: Yılmaz\n\nITEMIZED SERVICES\nMuayene 100\n"
	got := itemizedSection(text)
	if !strings.HasPrefix(got, "ITEMIZED SERVICES") {
		t.Errorf("section start = %q", got)
	}
}

func TestItemizedSectionNoMarker(t *testing.T) {
	text := "just some text without any markers at all"
	if got := itemizedSection(text); got != text {
		t.Errorf("expected full text, got %q", got)
	}
}

func TestChunkByLines(t *testing.T) {
	text := strings.TrimSuffix(strings.Repeat("line\n", 200), "\n")
	chunks := chunkByLines(text, 80)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestSummary(t *testing.T) {
	inv := &Invoice{
		PatientName:   "Rohan Mehta",
		InvoiceNumber: "INV-1",
		DateOfService: "2023-06-23",
		HospitalName:  "City Care",
		TotalAmount:   6200,
		LineItems: []LineItem{
			{Description: "Room Charges", Amount: 5000},
			{Description: "", Amount: 1200},
		},
	}
	s := inv.Summary()
	for _, want := range []string{
		"Patient: Rohan Mehta",
		"Total Line Items: 2",
		"- Room Charges: INR 5000.00",
		"- No Description: INR 1200.00",
		"Total Amount: INR 6200.00",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}
