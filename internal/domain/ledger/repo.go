package ledger

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	PatientID *uuid.UUID
	Status    string
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice, items []*InvoiceItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// GetByIDForUpdate locks the invoice row for the duration of the
	// surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)
	UpdateTotals(ctx context.Context, inv *Invoice) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error)
	// NextSequence reserves the next invoice number for a hospital year.
	NextSequence(ctx context.Context, hospitalID uuid.UUID, year int) (int, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
}

type RefundRepository interface {
	Create(ctx context.Context, r *Refund) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Refund, error)
}
