package adjudicate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llmjson"
)

// Request carries everything the engine needs to adjudicate one claim.
type Request struct {
	ClaimID        int64
	PatientName    string
	PolicyNumber   string
	InvoiceSummary string
}

// Engine produces a grounded claim decision: it retrieves policy evidence,
// asks the model to derive coverage rules strictly from that evidence, and
// parses the decision with a safe fallback on malformed output.
type Engine struct {
	provider  llm.Provider
	model     string
	retriever *Retriever
	logger    *slog.Logger
}

// NewEngine creates an adjudication engine.
func NewEngine(provider llm.Provider, model string, retriever *Retriever) *Engine {
	return &Engine{
		provider:  provider,
		model:     model,
		retriever: retriever,
		logger:    slog.Default().With("component", "adjudicator"),
	}
}

// decisionPayload is the wire shape the model is instructed to return.
type decisionPayload struct {
	Decision          string             `json:"decision"`
	PayableAmount     *float64           `json:"payableAmount"`
	Reasons           []string           `json:"reasons"`
	Letter            string             `json:"letter"`
	ItemizedDecisions []ItemizedDecision `json:"itemizedDecisions"`
}

// Adjudicate retrieves evidence for the policy and asks the model for a
// decision at temperature zero. Malformed model output never propagates as
// an error: it degrades to a NEEDS_INFO decision carrying the raw text as
// the letter. ErrPolicyNotFound from retrieval does propagate; it is the
// one fatal condition.
func (e *Engine) Adjudicate(ctx context.Context, req Request) (*ClaimEvidence, error) {
	evidence, err := e.retriever.Retrieve(ctx, req.PolicyNumber, req.PatientName, req.InvoiceSummary)
	if err != nil {
		return nil, err
	}

	var bullets []string
	for _, chunk := range evidence.Chunks {
		bullets = append(bullets, "- "+chunk)
	}
	user := fmt.Sprintf(adjudicationUserPromptFormat, req.InvoiceSummary, strings.Join(bullets, "\n"))

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: adjudicationSystemPrompt},
			{Role: llm.RoleUser, Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("adjudication completion: %w", err)
	}

	payload := parseDecision(resp.Content)
	e.logger.Info("adjudicated claim",
		"claim_id", req.ClaimID,
		"policy", req.PolicyNumber,
		"decision", payload.Decision)

	decision := &ClaimDecision{
		ClaimID:   req.ClaimID,
		Decision:  payload.Decision,
		Reasons:   payload.Reasons,
		Letter:    payload.Letter,
		CreatedAt: time.Now(),
	}
	if payload.PayableAmount != nil {
		rounded := RoundHalfUp(*payload.PayableAmount, 2)
		decision.PayableAmount = &rounded
	}

	return &ClaimEvidence{
		Matches:           evidence.Matches,
		Decision:          decision,
		EvidenceChunks:    evidence.Chunks,
		ItemizedDecisions: payload.ItemizedDecisions,
	}, nil
}

// parseDecision parses the model response, tolerating code fences and
// arithmetic in number positions. Anything unparseable becomes a NEEDS_INFO
// payload with the raw text preserved as the letter.
func parseDecision(raw string) decisionPayload {
	var payload decisionPayload
	if err := llmjson.Unmarshal(raw, &payload); err != nil {
		return decisionPayload{
			Decision:      DecisionNeedsInfo,
			PayableAmount: nil,
			Reasons:       []string{"Model output was not valid JSON"},
			Letter:        raw,
		}
	}

	if payload.Decision == "" {
		payload.Decision = DecisionNeedsInfo
	}
	if payload.Reasons == nil {
		payload.Reasons = []string{}
	}
	return payload
}
