package agent

import (
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
)

// ParsedAction is one tool invocation parsed from model output. It carries
// the ambient policy number and patient identifier through the loop so tool
// handlers never depend on the model echoing them correctly.
type ParsedAction struct {
	Tool         string
	Parameters   string
	PolicyNumber string
	PatientName  string
}

// ToolResult is what a tool hands back to the loop. Observation is the text
// fed to the model as the next OBSERVATION; Err carries the underlying
// error for failure classification and is never shown verbatim when
// Observation is set.
type ToolResult struct {
	Success     bool
	Observation string
	Payload     any
	Err         error
}

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the final outcome of one claim-processing execution.
type Result struct {
	Status            string                        `json:"status"`
	ClaimID           int64                         `json:"claimId,omitempty"`
	PolicyNumber      string                        `json:"policyNumber,omitempty"`
	Decision          string                        `json:"decision,omitempty"`
	PayableAmount     *float64                      `json:"payableAmount,omitempty"`
	Reasons           []string                      `json:"reasons,omitempty"`
	ItemizedDecisions []adjudicate.ItemizedDecision `json:"itemizedDecisions,omitempty"`
	Letter            string                        `json:"letter,omitempty"`
	ErrorMessage      string                        `json:"errorMessage,omitempty"`
}

func successResult(policyNumber string, ev *adjudicate.ClaimEvidence) *Result {
	d := ev.Decision
	return &Result{
		Status:            StatusSuccess,
		ClaimID:           d.ClaimID,
		PolicyNumber:      policyNumber,
		Decision:          d.Decision,
		PayableAmount:     d.PayableAmount,
		Reasons:           d.Reasons,
		ItemizedDecisions: ev.ItemizedDecisions,
		Letter:            d.Letter,
	}
}

func errorResult(message string) *Result {
	return &Result{Status: StatusError, ErrorMessage: message}
}
