package adjudicate

import (
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/vectordb"
)

// Decision labels. NEEDS_INFO is also the safe fallback when the model
// returns something unparseable.
const (
	DecisionApproved  = "APPROVED"
	DecisionDenied    = "DENIED"
	DecisionPartial   = "PARTIAL"
	DecisionNeedsInfo = "NEEDS_INFO"
)

// ErrPolicyNotFound is raised when the very first evidence lookup for a
// policy matches zero documents. It is fatal and non-retryable: the agent
// loop aborts instead of iterating further.
var ErrPolicyNotFound = errors.New("policy not found")

// ClaimDecision is the adjudication outcome for one claim. PayableAmount is
// nil only when the decision carries no monetary resolution (NEEDS_INFO) or
// is an explicit zero denial.
type ClaimDecision struct {
	ID            string    `json:"id,omitempty"`
	ClaimID       int64     `json:"claimId"`
	Decision      string    `json:"decision"`
	PayableAmount *float64  `json:"payableAmount"`
	Reasons       []string  `json:"reasons"`
	Letter        string    `json:"letter"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ItemizedDecision is the per-service coverage breakdown accompanying the
// overall decision.
type ItemizedDecision struct {
	Description   string  `json:"description"`
	Amount        float64 `json:"amount"`
	Covered       bool    `json:"covered"`
	PayableAmount float64 `json:"payableAmount"`
	Reason        string  `json:"reason"`
}

// ClaimEvidence bundles the retrieved policy documents, the decision they
// grounded, the flattened evidence text, and the itemized breakdown. Keyed
// by patient within a single execution so concurrent claims cannot clobber
// each other.
type ClaimEvidence struct {
	Matches           []vectordb.SearchResult `json:"-"`
	Decision          *ClaimDecision          `json:"claimDecision"`
	EvidenceChunks    []string                `json:"evidenceChunks"`
	ItemizedDecisions []ItemizedDecision      `json:"itemizedDecisions"`
}

// RoundHalfUp rounds v to the given number of decimal places using
// round-half-up over v's shortest decimal representation. Plain
// math.Round(v*100)/100 mis-rounds values like 1234.555 whose binary form
// sits just below the half; going through the decimal string matches how
// the amounts were written in the first place.
func RoundHalfUp(v float64, places int) float64 {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
	if !ok {
		return v
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if r.Sign() >= 0 {
		r.Add(r, big.NewRat(1, 2))
	} else {
		r.Sub(r, big.NewRat(1, 2))
	}

	scaled := new(big.Int).Quo(r.Num(), r.Denom())
	out := new(big.Rat).SetFrac(scaled, scale)
	f, _ := out.Float64()
	return f
}
