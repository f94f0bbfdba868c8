package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses. Paid and void are terminal for incoming payments; a
// refund can move a paid invoice back to partially_paid or open.
const (
	StatusOpen          = "open"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusVoid          = "void"
)

// Recognized payment methods.
var validPaymentMethods = map[string]bool{
	"cash":   true,
	"card":   true,
	"upi":    true,
	"online": true,
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool { return validPaymentMethods[m] }

// Invoice maps to the invoices table. All monetary amounts are fixed-precision
// decimals; paid_amount + balance_amount always equals total_amount.
type Invoice struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	HospitalID      uuid.UUID        `db:"hospital_id" json:"hospital_id"`
	PatientID       uuid.UUID        `db:"patient_id" json:"patient_id"`
	InvoiceNumber   string           `db:"invoice_number" json:"invoice_number"`
	AppointmentID   *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	EncounterID     *uuid.UUID       `db:"encounter_id" json:"encounter_id,omitempty"`
	Status          string           `db:"status" json:"status"`
	Subtotal        decimal.Decimal  `db:"subtotal" json:"subtotal"`
	DiscountAmount  decimal.Decimal  `db:"discount_amount" json:"discount_amount"`
	DiscountPercent *decimal.Decimal `db:"discount_percent" json:"discount_percent,omitempty"`
	DiscountReason  *string          `db:"discount_reason" json:"discount_reason,omitempty"`
	TaxAmount       decimal.Decimal  `db:"tax_amount" json:"tax_amount"`
	TotalAmount     decimal.Decimal  `db:"total_amount" json:"total_amount"`
	PaidAmount      decimal.Decimal  `db:"paid_amount" json:"paid_amount"`
	BalanceAmount   decimal.Decimal  `db:"balance_amount" json:"balance_amount"`
	Notes           *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// InvoiceItem is a single line on an invoice. Amount = Quantity * UnitPrice.
type InvoiceItem struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	InvoiceID   uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	ItemType    string          `db:"item_type" json:"item_type"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}

// Payment is an immutable record of money received against an invoice.
// ReceivedAt, when set, carries the external settlement time (e.g. the
// gateway timestamp for online payments); reporting uses it over CreatedAt.
type Payment struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	InvoiceID  uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	HospitalID uuid.UUID       `db:"hospital_id" json:"hospital_id"`
	Method     string          `db:"method" json:"method"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	Reference  *string         `db:"reference" json:"reference,omitempty"`
	Notes      *string         `db:"notes" json:"notes,omitempty"`
	ReceivedAt *time.Time      `db:"received_at" json:"received_at,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// EffectiveAt is the timestamp reporting buckets a payment under.
func (p *Payment) EffectiveAt() time.Time {
	if p.ReceivedAt != nil {
		return *p.ReceivedAt
	}
	return p.CreatedAt
}

// Refund is an immutable record of money returned against an invoice.
type Refund struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	InvoiceID uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reason    string          `db:"reason" json:"reason"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Source classifies the invoice for revenue reporting: an invoice tied to an
// appointment is appointment revenue, one tied only to an admission encounter
// is ipd, and a walk-in invoice with neither is opd.
func (i *Invoice) Source() string {
	switch {
	case i.AppointmentID != nil:
		return "appointment"
	case i.EncounterID != nil:
		return "ipd"
	default:
		return "opd"
	}
}

// ApplyPaid re-derives paid/balance/status from a new cumulative paid amount.
// Void is terminal and never recomputed.
func (i *Invoice) ApplyPaid(paid decimal.Decimal) {
	i.PaidAmount = paid
	i.BalanceAmount = i.TotalAmount.Sub(paid)
	if i.Status == StatusVoid {
		return
	}
	switch {
	case i.BalanceAmount.IsZero():
		i.Status = StatusPaid
	case paid.IsPositive():
		i.Status = StatusPartiallyPaid
	default:
		i.Status = StatusOpen
	}
}

// FormatInvoiceNumber renders the sequential invoice number for a hospital
// year, e.g. HOSP-2026-000042.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("HOSP-%d-%06d", year, seq)
}
