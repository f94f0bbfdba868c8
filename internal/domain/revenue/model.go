package revenue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Revenue sources. An invoice tied to an appointment is appointment revenue,
// one tied only to an admission encounter is ipd, a walk-in invoice is opd.
const (
	SourceAppointment = "appointment"
	SourceIPD         = "ipd"
	SourceOPD         = "opd"
)

// MethodUnknown buckets payment methods the reporting side does not
// recognize. Historical rows may carry methods that were since retired.
const MethodUnknown = "unknown"

// Stats are the headline revenue figures for a hospital, summed over the
// effective payment date in the reporting timezone.
type Stats struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
	Total   decimal.Decimal `json:"total"`
}

// Range bounds a reporting query on the effective payment date. A nil end is
// open-ended.
type Range struct {
	From *time.Time
	To   *time.Time
}

// TransactionFilter narrows the transaction listing.
type TransactionFilter struct {
	Range
	Method string
	Source string
}

// Transaction is one payment enriched with its invoice context, as shown on
// the revenue report.
type Transaction struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	Method        string          `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Source        string          `json:"source"`
	EffectiveAt   time.Time       `json:"effective_at"`
}
