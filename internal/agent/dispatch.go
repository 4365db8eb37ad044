package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/claims"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/invoice"
)

// Tool names. The parser only guarantees a lowercase word, so lookup strips
// separators first: save_claim_decision and saveclaimdecision both resolve.
const (
	ToolExtract         = "extract"
	ToolAdjudicate      = "adjudicate"
	ToolSaveDecision    = "save_claim_decision"
	ToolGetDecisionData = "get_claim_decision_data"
)

var availableTools = strings.Join([]string{
	ToolExtract, ToolAdjudicate, ToolSaveDecision, ToolGetDecisionData,
}, ", ")

// Dispatcher routes parsed actions to tool handlers. A tool failure becomes
// a failed ToolResult fed back to the model as an observation; it never
// panics or propagates out of Dispatch.
type Dispatcher struct {
	extractor *invoice.Extractor
	engine    *adjudicate.Engine
	store     *claims.Store

	adjudicateTimeout time.Duration
	workers           chan struct{}
	logger            *slog.Logger
}

// NewDispatcher creates a Dispatcher. maxWorkers bounds how many
// adjudications run at once across all executions.
func NewDispatcher(extractor *invoice.Extractor, engine *adjudicate.Engine, store *claims.Store, adjudicateTimeout time.Duration, maxWorkers int) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Dispatcher{
		extractor:         extractor,
		engine:            engine,
		store:             store,
		adjudicateTimeout: adjudicateTimeout,
		workers:           make(chan struct{}, maxWorkers),
		logger:            slog.Default().With("component", "dispatcher"),
	}
}

// Dispatch executes one tool call against the execution state.
func (d *Dispatcher) Dispatch(ctx context.Context, exec *Execution, action *ParsedAction) (result ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", action.Tool, "panic", r)
			result = failure(fmt.Errorf("tool %s panicked: %v", action.Tool, r),
				fmt.Sprintf("Tool %s failed unexpectedly.", action.Tool))
		}
	}()

	switch canonicalTool(action.Tool) {
	case ToolExtract:
		return d.runExtract(ctx, exec, action)
	case ToolAdjudicate:
		return d.runAdjudicate(ctx, exec, action)
	case ToolSaveDecision:
		return d.runSaveDecision(ctx, exec, action)
	case ToolGetDecisionData:
		return d.runGetDecisionData(ctx, exec, action)
	default:
		return failure(fmt.Errorf("unknown tool %q", action.Tool),
			fmt.Sprintf("Unknown tool %q. Available tools: %s.", action.Tool, availableTools))
	}
}

// canonicalTool normalizes separator spelling before lookup.
func canonicalTool(name string) string {
	stripped := strings.NewReplacer("_", "", "-", "").Replace(name)
	for _, tool := range []string{ToolExtract, ToolAdjudicate, ToolSaveDecision, ToolGetDecisionData} {
		if stripped == strings.ReplaceAll(tool, "_", "") {
			return tool
		}
	}
	return name
}

func (d *Dispatcher) runExtract(ctx context.Context, exec *Execution, action *ParsedAction) ToolResult {
	// The model tends to re-send a truncated copy of the invoice; prefer the
	// text the caller submitted.
	text := exec.RawInvoiceText()
	if strings.TrimSpace(text) == "" {
		text = action.Parameters
	}
	if strings.TrimSpace(text) == "" {
		return failure(errors.New("no invoice text"),
			"No invoice text available. Provide the invoice text as the extract parameter.")
	}

	res, err := d.extractor.Extract(ctx, text)
	if err != nil {
		if errors.Is(err, invoice.ErrMissingPatientName) {
			return failure(err, "Extraction failed: "+invoice.IssueMissingPatientName+". This claim cannot be processed.")
		}
		return failure(err, "Extraction failed: "+err.Error())
	}

	exec.SetInvoice(res.Invoice)

	obs, _ := json.Marshal(struct {
		Success       bool     `json:"success"`
		PatientName   string   `json:"patientName"`
		InvoiceNumber string   `json:"invoiceNumber"`
		DateOfService string   `json:"dateOfService"`
		TotalAmount   float64  `json:"totalAmount"`
		LineItems     int      `json:"lineItems"`
		Valid         bool     `json:"valid"`
		Issues        []string `json:"issues,omitempty"`
	}{
		Success:       true,
		PatientName:   res.Invoice.PatientName,
		InvoiceNumber: res.Invoice.InvoiceNumber,
		DateOfService: res.Invoice.DateOfService,
		TotalAmount:   res.Invoice.TotalAmount,
		LineItems:     len(res.Invoice.LineItems),
		Valid:         res.Valid,
		Issues:        res.Issues,
	})
	return ToolResult{Success: true, Observation: string(obs), Payload: res}
}

func (d *Dispatcher) runAdjudicate(ctx context.Context, exec *Execution, action *ParsedAction) ToolResult {
	inv := exec.Invoice()
	if inv == nil {
		return failure(errors.New("no extracted invoice"),
			"No extracted invoice available. Call extract first.")
	}

	select {
	case d.workers <- struct{}{}:
	case <-ctx.Done():
		return failure(ctx.Err(), "Adjudication cancelled before it could start.")
	}

	runCtx, cancel := context.WithTimeout(ctx, d.adjudicateTimeout)
	defer cancel()

	req := adjudicate.Request{
		ClaimID:        ClaimID(inv.InvoiceNumber),
		PatientName:    action.PatientName,
		PolicyNumber:   action.PolicyNumber,
		InvoiceSummary: inv.Summary(),
	}

	type outcome struct {
		evidence *adjudicate.ClaimEvidence
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() { <-d.workers }()
		ev, err := d.engine.Adjudicate(runCtx, req)
		done <- outcome{ev, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		// Abandon the worker; cancel tells the engine to stop.
		return failure(runCtx.Err(),
			fmt.Sprintf("Adjudication did not finish within %s.", d.adjudicateTimeout))
	}

	if out.err != nil {
		if errors.Is(out.err, adjudicate.ErrPolicyNotFound) {
			return failure(out.err,
				fmt.Sprintf("No policy found for policy number %s. This claim cannot be processed.", action.PolicyNumber))
		}
		return failure(out.err, "Adjudication failed: "+out.err.Error())
	}

	exec.SetEvidence(action.PatientName, out.evidence)

	obs, _ := json.Marshal(struct {
		Success       bool     `json:"success"`
		ClaimID       int64    `json:"claimId"`
		Decision      string   `json:"decision"`
		PayableAmount *float64 `json:"payableAmount"`
		Reasons       []string `json:"reasons"`
	}{
		Success:       true,
		ClaimID:       out.evidence.Decision.ClaimID,
		Decision:      out.evidence.Decision.Decision,
		PayableAmount: out.evidence.Decision.PayableAmount,
		Reasons:       out.evidence.Decision.Reasons,
	})
	return ToolResult{Success: true, Observation: string(obs), Payload: out.evidence}
}

func (d *Dispatcher) runSaveDecision(ctx context.Context, exec *Execution, action *ParsedAction) ToolResult {
	ev := exec.Evidence(action.PatientName)
	if ev == nil {
		return failure(errors.New("no adjudication result"),
			"No adjudication result available. Call adjudicate first.")
	}

	if err := d.store.SaveInvoice(ctx, action.PolicyNumber, exec.Invoice()); err != nil {
		return failure(err, "Saving the claim failed: "+err.Error())
	}

	saved, err := d.store.SaveDecision(ctx, ev.Decision)
	if err != nil {
		return failure(err, "Saving the claim decision failed: "+err.Error())
	}
	ev.Decision = saved
	exec.SetEvidence(action.PatientName, ev)

	if err := d.store.SaveEvidence(ctx, saved.ID, ev); err != nil {
		return failure(err, "Saving the decision evidence failed: "+err.Error())
	}

	obs, _ := json.Marshal(struct {
		Success    bool   `json:"success"`
		ClaimID    int64  `json:"claimId"`
		DecisionID string `json:"decisionId"`
		Evidence   int    `json:"evidenceChunks"`
	}{true, saved.ClaimID, saved.ID, len(ev.EvidenceChunks)})
	return ToolResult{Success: true, Observation: string(obs), Payload: saved}
}

func (d *Dispatcher) runGetDecisionData(ctx context.Context, exec *Execution, action *ParsedAction) ToolResult {
	ev := exec.Evidence(action.PatientName)
	if ev == nil {
		return failure(errors.New("no adjudication result"),
			"No claim decision available. Call adjudicate first.")
	}

	decision := ev.Decision
	if decision.ID != "" {
		stored, err := d.store.GetDecision(ctx, decision.ID)
		if err != nil {
			return failure(err, "Loading the claim decision failed: "+err.Error())
		}
		if stored != nil {
			decision = stored
		}
	}

	obs, _ := json.Marshal(struct {
		Success       bool     `json:"success"`
		ClaimID       int64    `json:"claimId"`
		Decision      string   `json:"decision"`
		PayableAmount *float64 `json:"payableAmount"`
		Reasons       []string `json:"reasons"`
		Letter        string   `json:"letter"`
	}{true, decision.ClaimID, decision.Decision, decision.PayableAmount, decision.Reasons, decision.Letter})
	return ToolResult{Success: true, Observation: string(obs), Payload: decision}
}

// ClaimID derives a stable positive claim id from the invoice number, so
// re-processing the same invoice maps to the same claim.
func ClaimID(invoiceNumber string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.TrimSpace(strings.ToUpper(invoiceNumber))))
	return int64(h.Sum64() & (1<<63 - 1))
}

func failure(err error, observation string) ToolResult {
	return ToolResult{Success: false, Observation: observation, Err: err}
}
