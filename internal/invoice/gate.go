package invoice

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ConfidenceThreshold is the minimum per-field confidence the gate accepts.
// Values strictly below it are flagged; exactly 0.70 passes.
const ConfidenceThreshold = 0.70

// ErrMissingPatientName marks the one extraction failure that aborts the
// whole claim instead of degrading to a soft issue.
var ErrMissingPatientName = errors.New("missing patient name")

// Gate issue strings. Stable text: the agent loop and the dispatcher match
// on them to classify failures.
const (
	IssueMissingPatientName   = "Missing patient name"
	IssueMissingInvoiceNumber = "Missing invoice number"
	IssueInvalidTotalAmount   = "Invalid or missing total amount"
	IssueMissingDateOfService = "Missing date of service"
)

// Gate runs the deterministic validation rules over an extracted invoice and
// returns all issues found. It never trusts the model's own confidence
// claims in prose; only the numeric confidence values are considered. All
// rules are checked, none short-circuits. An empty result means the invoice
// is valid.
func Gate(inv *Invoice) []string {
	var issues []string

	if strings.TrimSpace(inv.PatientName) == "" {
		issues = append(issues, IssueMissingPatientName)
	}
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		issues = append(issues, IssueMissingInvoiceNumber)
	}
	if inv.TotalAmount <= 0 {
		issues = append(issues, IssueInvalidTotalAmount)
	}
	if strings.TrimSpace(inv.DateOfService) == "" {
		issues = append(issues, IssueMissingDateOfService)
	}

	// Top-level confidence entries, sorted so output does not depend on map
	// traversal order.
	fields := make([]string, 0, len(inv.Confidence))
	for field := range inv.Confidence {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if v := inv.Confidence[field]; v < ConfidenceThreshold {
			issues = append(issues, fmt.Sprintf("Low confidence for field '%s': %.2f", field, v))
		}
	}

	for _, item := range inv.LineItems {
		if item.Confidence < ConfidenceThreshold {
			issues = append(issues, fmt.Sprintf("Low confidence for line item '%s': %.2f", item.Description, item.Confidence))
		}
	}

	return issues
}

// HasFatalIssue reports whether the issue list contains the condition that
// must abort the claim.
func HasFatalIssue(issues []string) bool {
	for _, issue := range issues {
		if issue == IssueMissingPatientName {
			return true
		}
	}
	return false
}
