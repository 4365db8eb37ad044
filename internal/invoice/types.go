package invoice

// LineItem is a single billed service on an invoice. Confidence is scored
// by the extraction model per item and re-checked deterministically by the
// gate; an absent confidence unmarshals to 0 and fails the threshold.
type LineItem struct {
	Description string  `json:"desc"`
	Amount      float64 `json:"amount"`
	Confidence  float64 `json:"confidence"`
}

// Invoice is the structured form of a raw medical invoice. It is produced
// once per claim by the extraction pipeline and never mutated afterwards.
type Invoice struct {
	PatientName   string             `json:"patientName"`
	InvoiceNumber string             `json:"invoiceNumber"`
	DateOfService string             `json:"dateOfService"`
	TotalAmount   float64            `json:"totalAmount"`
	Currency      string             `json:"currency"`
	HospitalName  string             `json:"hospitalName"`
	LineItems     []LineItem         `json:"lineItems"`
	Confidence    map[string]float64 `json:"confidence"`
}

// metadataOnly is the first extraction phase: header fields only.
type metadataOnly struct {
	PatientName   string  `json:"patientName"`
	InvoiceNumber string  `json:"invoiceNumber"`
	DateOfService string  `json:"dateOfService"`
	TotalAmount   float64 `json:"totalAmount"`
	Currency      string  `json:"currency"`
	HospitalName  string  `json:"hospitalName"`
}

// lineItemsOnly is the second extraction phase: itemized services only.
type lineItemsOnly struct {
	LineItems []LineItem `json:"lineItems"`
}

// Result is the outcome of an extraction run. Valid is true iff Issues is
// empty. A fatal condition (blank patient name) is returned as an error from
// Extract instead, never as a Result.
type Result struct {
	Invoice *Invoice
	Valid   bool
	Issues  []string
}

// Summary renders the invoice as the plain-text summary handed to the
// adjudication prompt.
func (inv *Invoice) Summary() string {
	return buildSummary(inv)
}
