package agent

import (
	"sync"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/invoice"
)

// Execution holds the state of a single claim-processing run. Each run gets
// its own Execution so concurrent requests never see each other's invoice or
// evidence. Tool handlers may run on worker goroutines, hence the mutex.
type Execution struct {
	mu sync.Mutex

	rawInvoiceText string
	invoice        *invoice.Invoice
	extracted      bool
	evidence       map[string]*adjudicate.ClaimEvidence
}

func NewExecution(rawInvoiceText string) *Execution {
	return &Execution{
		rawInvoiceText: rawInvoiceText,
		evidence:       make(map[string]*adjudicate.ClaimEvidence),
	}
}

func (e *Execution) RawInvoiceText() string {
	return e.rawInvoiceText
}

func (e *Execution) SetInvoice(inv *invoice.Invoice) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invoice = inv
	e.extracted = true
}

func (e *Execution) Invoice() *invoice.Invoice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.invoice
}

// Extracted reports whether an extraction has completed during this run. The
// memory compactor uses it to decide when the raw invoice text can be
// replaced with a pointer message.
func (e *Execution) Extracted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extracted
}

func (e *Execution) SetEvidence(patientName string, ev *adjudicate.ClaimEvidence) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evidence[patientName] = ev
}

func (e *Execution) Evidence(patientName string) *adjudicate.ClaimEvidence {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evidence[patientName]
}
