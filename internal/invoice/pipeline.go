package invoice

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llmjson"
)

// Extractor turns raw invoice text into a validated Invoice using two
// parallel extraction phases: one metadata call and one line-item call per
// 80-line chunk of the itemized section.
type Extractor struct {
	provider    llm.Provider
	model       string
	concurrency int
	logger      *slog.Logger
}

// NewExtractor creates an Extractor. concurrency bounds the number of
// simultaneous model calls across both phases.
func NewExtractor(provider llm.Provider, model string, concurrency int) *Extractor {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Extractor{
		provider:    provider,
		model:       model,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "extractor"),
	}
}

// Extract runs both phases concurrently, merges the results, and applies the
// confidence gate. A blank patient name fails the whole extraction with
// ErrMissingPatientName; every other problem is reported as a soft issue.
func (e *Extractor) Extract(ctx context.Context, rawText string) (*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	var meta metadataOnly
	g.Go(func() error {
		m, err := e.extractMetadata(ctx, rawText)
		if err != nil {
			return fmt.Errorf("metadata phase: %w", err)
		}
		meta = m
		return nil
	})

	chunks := chunkByLines(itemizedSection(rawText), maxChunkLines)
	parts := make([]lineItemsOnly, len(chunks))
	for i, chunk := range chunks {
		g.Go(func() error {
			part, err := e.extractLineItems(ctx, chunk)
			if err != nil {
				return fmt.Errorf("line items chunk %d: %w", i, err)
			}
			parts[i] = part
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting invoice: %w", err)
	}

	inv := &Invoice{
		PatientName:   meta.PatientName,
		InvoiceNumber: meta.InvoiceNumber,
		DateOfService: meta.DateOfService,
		TotalAmount:   meta.TotalAmount,
		Currency:      meta.Currency,
		HospitalName:  meta.HospitalName,
		LineItems:     mergeLineItems(parts),
		Confidence:    map[string]float64{},
	}

	e.logger.Info("extracted invoice",
		"patient", inv.PatientName,
		"invoice_number", inv.InvoiceNumber,
		"line_items", len(inv.LineItems))

	issues := Gate(inv)
	if HasFatalIssue(issues) {
		return nil, fmt.Errorf("extraction aborted: %w", ErrMissingPatientName)
	}

	return &Result{
		Invoice: inv,
		Valid:   len(issues) == 0,
		Issues:  issues,
	}, nil
}

func (e *Extractor) extractMetadata(ctx context.Context, rawText string) (metadataOnly, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: metadataSystemPrompt},
			{Role: llm.RoleUser, Content: "INVOICE TEXT:\n" + rawText},
		},
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return metadataOnly{}, err
	}

	var meta metadataOnly
	if err := llmjson.Unmarshal(resp.Content, &meta); err != nil {
		return metadataOnly{}, err
	}
	return meta, nil
}

func (e *Extractor) extractLineItems(ctx context.Context, chunk string) (lineItemsOnly, error) {
	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: lineItemsSystemPrompt},
			{Role: llm.RoleUser, Content: "ITEMIZED SERVICES SECTION:\n" + chunk},
		},
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return lineItemsOnly{}, err
	}

	var items lineItemsOnly
	if err := llmjson.Unmarshal(resp.Content, &items); err != nil {
		return lineItemsOnly{}, err
	}
	return items, nil
}

// mergeLineItems builds an ordered, deduplicated item list across chunk
// results. Chunk boundaries can make adjacent chunks report the same line;
// the first occurrence of a (description, amount) pair wins.
func mergeLineItems(parts []lineItemsOnly) []LineItem {
	var merged []LineItem
	seen := make(map[string]bool)

	for _, part := range parts {
		for _, item := range part.LineItems {
			key := dedupKey(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}
	return merged
}

func dedupKey(item LineItem) string {
	return strings.TrimSpace(strings.ToLower(item.Description)) + "|" +
		strconv.FormatFloat(item.Amount, 'f', -1, 64)
}

// buildSummary renders the invoice for the adjudication prompt: header
// fields, every line item, and the total.
func buildSummary(inv *Invoice) string {
	currency := inv.Currency
	if currency == "" {
		currency = "INR"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Patient: %s\n", inv.PatientName)
	fmt.Fprintf(&sb, "Invoice Number: %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&sb, "Date of Service: %s\n", inv.DateOfService)
	fmt.Fprintf(&sb, "Hospital: %s\n", inv.HospitalName)

	if len(inv.LineItems) > 0 {
		fmt.Fprintf(&sb, "\nTotal Line Items: %d\n", len(inv.LineItems))
		sb.WriteString("\nServices Breakdown:\n")
		for _, item := range inv.LineItems {
			desc := item.Description
			if strings.TrimSpace(desc) == "" {
				desc = "No Description"
			}
			fmt.Fprintf(&sb, "- %s: %s %.2f\n", desc, currency, item.Amount)
		}
	}

	fmt.Fprintf(&sb, "\nTotal Amount: %s %.2f", currency, inv.TotalAmount)
	return sb.String()
}
