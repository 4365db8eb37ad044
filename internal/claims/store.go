// Package claims persists extraction results, claim decisions, and the
// evidence chunks each decision was grounded on.
package claims

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/db"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/invoice"
)

// Store manages claim persistence.
type Store struct {
	db *db.DB
}

// NewStore creates a new claims store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// SaveInvoice stores an extracted invoice as a claim AI result row. The
// confidence score column holds the average of the top-level confidence
// values, and ai_status records whether required fields cleared the gate.
func (s *Store) SaveInvoice(ctx context.Context, policyNumber string, inv *invoice.Invoice) error {
	if inv == nil {
		return fmt.Errorf("no extracted invoice to save")
	}

	raw, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshalling invoice: %w", err)
	}

	status := "COMPLETED"
	if len(invoice.Gate(inv)) > 0 {
		status = adjudicate.DecisionNeedsInfo
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO claim_ai_result (patient_name, policy_number, hospital_name, invoice_number, total_amount, currency, confidence_score, ai_status, ai_output, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.PatientName, policyNumber, inv.HospitalName, inv.InvoiceNumber,
		adjudicate.RoundHalfUp(inv.TotalAmount, 2), inv.Currency,
		averageConfidence(inv.Confidence), status, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting claim ai result: %w", err)
	}
	return nil
}

// SaveDecision stores a claim decision and returns a copy carrying the
// generated id, so evidence rows can reference it.
func (s *Store) SaveDecision(ctx context.Context, decision *adjudicate.ClaimDecision) (*adjudicate.ClaimDecision, error) {
	saved := *decision
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}

	reasons, err := json.Marshal(saved.Reasons)
	if err != nil {
		return nil, fmt.Errorf("marshalling reasons: %w", err)
	}

	var payable any
	if saved.PayableAmount != nil {
		payable = *saved.PayableAmount
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO claim_decision (id, claim_id, decision, payable_amount, reasons, letter, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.ClaimID, saved.Decision, payable, string(reasons), saved.Letter, saved.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting claim decision: %w", err)
	}
	return &saved, nil
}

// SaveEvidence stores the evidence chunks behind a saved decision. Scores
// are rounded half-up to 4 decimal places.
func (s *Store) SaveEvidence(ctx context.Context, decisionID string, evidence *adjudicate.ClaimEvidence) error {
	if decisionID == "" {
		return fmt.Errorf("decision id is required to link evidence")
	}

	for _, match := range evidence.Matches {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO claim_decision_evidence (id, decision_id, chunk_text, score, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), decisionID, match.Document.Content,
			adjudicate.RoundHalfUp(float64(match.Similarity), 4), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting decision evidence: %w", err)
		}
	}
	return nil
}

// GetDecision retrieves a stored decision by its generated id. Returns
// (nil, nil) when absent.
func (s *Store) GetDecision(ctx context.Context, id string) (*adjudicate.ClaimDecision, error) {
	var d adjudicate.ClaimDecision
	var payable sql.NullFloat64
	var reasons string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, decision, payable_amount, reasons, letter, created_at
		 FROM claim_decision WHERE id = ?`, id,
	).Scan(&d.ID, &d.ClaimID, &d.Decision, &payable, &reasons, &d.Letter, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim decision: %w", err)
	}

	if payable.Valid {
		d.PayableAmount = &payable.Float64
	}
	if err := json.Unmarshal([]byte(reasons), &d.Reasons); err != nil {
		d.Reasons = []string{reasons}
	}
	return &d, nil
}

// EvidenceCount returns the number of evidence rows linked to a decision.
func (s *Store) EvidenceCount(ctx context.Context, decisionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_decision_evidence WHERE decision_id = ?`, decisionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting decision evidence: %w", err)
	}
	return n, nil
}

func averageConfidence(confidence map[string]float64) float64 {
	if len(confidence) == 0 {
		return 0
	}
	var sum float64
	for _, v := range confidence {
		sum += v
	}
	return adjudicate.RoundHalfUp(sum/float64(len(confidence)), 2)
}
