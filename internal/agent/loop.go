package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/invoice"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
)

// DefaultMaxIterations bounds the reasoning loop when no limit is
// configured.
const DefaultMaxIterations = 15

// Loop drives the Thought/Action/Observation cycle for one claim at a time.
// It owns the conversation with the model; all side effects go through the
// dispatcher.
type Loop struct {
	provider      llm.Provider
	model         string
	dispatcher    *Dispatcher
	maxIterations int
	logger        *slog.Logger
}

// NewLoop creates an agent loop.
func NewLoop(provider llm.Provider, model string, dispatcher *Dispatcher, maxIterations int) *Loop {
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{
		provider:      provider,
		model:         model,
		dispatcher:    dispatcher,
		maxIterations: maxIterations,
		logger:        slog.Default().With("component", "agent"),
	}
}

// Process runs one claim through the full loop. The returned Result is
// always non-nil when err is nil; recoverable problems surface as an error
// Result, while ErrPolicyNotFound propagates as an error so callers can map
// it distinctly.
func (l *Loop) Process(ctx context.Context, rawInvoiceText, policyNumber, patientName string) (*Result, error) {
	exec := NewExecution(rawInvoiceText)
	mem := NewMemory()
	mem.Append(llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("%s\n\nPolicy Number: %s\nPatient: %s\n\n%s", taskMessagePrefix, policyNumber, patientName, rawInvoiceText),
	})

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		resp, err := l.complete(ctx, mem)
		if err != nil {
			return nil, fmt.Errorf("agent completion (iteration %d): %w", iteration, err)
		}

		l.logger.Debug("model turn", "iteration", iteration, "chars", len(resp))

		if containsFinalAnswer(resp) {
			l.logger.Info("agent finished", "iteration", iteration)
			return l.finish(exec, policyNumber, patientName)
		}

		action := ParseAction(resp, policyNumber, patientName)
		if action == nil {
			mem.Append(llm.Message{Role: llm.RoleAssistant, Content: resp})
			mem.Append(llm.Message{Role: llm.RoleUser, Content: clarificationObservation})
			mem.Compact(exec.Extracted())
			continue
		}

		l.logger.Info("agent action", "iteration", iteration, "tool", action.Tool)
		result := l.dispatcher.Dispatch(ctx, exec, action)

		if result.Err != nil {
			if errors.Is(result.Err, adjudicate.ErrPolicyNotFound) {
				return nil, fmt.Errorf("policy %s: %w", policyNumber, adjudicate.ErrPolicyNotFound)
			}
			if errors.Is(result.Err, invoice.ErrMissingPatientName) {
				return errorResult(invoice.IssueMissingPatientName), nil
			}
		}

		mem.Append(llm.Message{Role: llm.RoleAssistant, Content: resp})
		mem.Append(llm.Message{Role: llm.RoleUser, Content: "OBSERVATION: " + result.Observation})
		mem.Compact(exec.Extracted())
	}

	// Iteration limit reached. If adjudication finished before the model got
	// around to a final answer, still report its decision.
	if ev := exec.Evidence(patientName); ev != nil {
		l.logger.Warn("iteration limit reached, returning stored decision")
		return successResult(policyNumber, ev), nil
	}
	return errorResult(fmt.Sprintf("Claim processing did not complete within %d iterations", l.maxIterations)), nil
}

func (l *Loop) complete(ctx context.Context, mem *Memory) (string, error) {
	messages := append([]llm.Message{{Role: llm.RoleSystem, Content: reactSystemPrompt}}, mem.Messages()...)
	resp, err := l.provider.Complete(ctx, llm.CompletionRequest{
		Model:       l.model,
		Messages:    messages,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (l *Loop) finish(exec *Execution, policyNumber, patientName string) (*Result, error) {
	ev := exec.Evidence(patientName)
	if ev == nil || ev.Decision == nil {
		return errorResult("Processing completed but no claim decision was generated"), nil
	}
	return successResult(policyNumber, ev), nil
}
