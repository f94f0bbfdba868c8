package workflow

import (
	"time"

	"github.com/google/uuid"
)

// Recognized clinical order types for the pay-before-confirm flow.
var validOrderTypes = map[string]bool{
	"lab":       true,
	"radiology": true,
	"procedure": true,
	"pharmacy":  true,
}

// ValidOrderType reports whether t is an accepted order type.
func ValidOrderType(t string) bool { return validOrderTypes[t] }

// PaymentOrder links an external clinical order to the ledger invoice raised
// for it. One order maps to exactly one invoice; ConfirmedAt records that the
// order system acknowledged the payment.
type PaymentOrder struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	HospitalID  uuid.UUID  `db:"hospital_id" json:"hospital_id"`
	OrderType   string     `db:"order_type" json:"order_type"`
	OrderID     uuid.UUID  `db:"order_id" json:"order_id"`
	InvoiceID   uuid.UUID  `db:"invoice_id" json:"invoice_id"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Confirmed reports whether the order system has acknowledged the payment.
func (o *PaymentOrder) Confirmed() bool { return o.ConfirmedAt != nil }
