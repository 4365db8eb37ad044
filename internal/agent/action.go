package agent

import (
	"regexp"
	"strings"
)

// actionPattern matches one ACTION line in model output. Case-insensitive,
// dot matches newline so multi-line parameters survive, and the greedy group
// runs to the last closing paren so nested calls like foo(bar(baz)) keep
// their inner parens intact. Only the first match is used.
var actionPattern = regexp.MustCompile(`(?is)action:\s*(\w+)\s*\((.*)\)`)

// ParseAction extracts the first tool invocation from a model response.
// Returns nil when the response contains no recognizable ACTION line.
func ParseAction(response, policyNumber, patientName string) *ParsedAction {
	m := actionPattern.FindStringSubmatch(response)
	if m == nil {
		return nil
	}
	return &ParsedAction{
		Tool:         strings.ToLower(strings.TrimSpace(m[1])),
		Parameters:   strings.TrimSpace(m[2]),
		PolicyNumber: policyNumber,
		PatientName:  patientName,
	}
}

// containsFinalAnswer reports whether the model has terminated the loop.
func containsFinalAnswer(response string) bool {
	return strings.Contains(strings.ToUpper(response), "FINAL ANSWER:")
}
