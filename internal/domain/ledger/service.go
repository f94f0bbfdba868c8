package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/billing/internal/platform/apperr"
	"github.com/hms/billing/internal/platform/db"
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	invoices InvoiceRepository
	payments PaymentRepository
	refunds  RefundRepository
	tx       db.TxRunner
	logger   zerolog.Logger
	retryMax int
}

func NewService(inv InvoiceRepository, pay PaymentRepository, ref RefundRepository, tx db.TxRunner, logger zerolog.Logger, retryMax int) *Service {
	if retryMax < 1 {
		retryMax = 1
	}
	return &Service{invoices: inv, payments: pay, refunds: ref, tx: tx, logger: logger, retryMax: retryMax}
}

// ItemInput is one requested invoice line.
type ItemInput struct {
	ItemType    string          `json:"item_type"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceInput carries everything needed to open an invoice.
type CreateInvoiceInput struct {
	PatientID       uuid.UUID        `json:"patient_id"`
	AppointmentID   *uuid.UUID       `json:"appointment_id"`
	EncounterID     *uuid.UUID       `json:"encounter_id"`
	Items           []ItemInput      `json:"items"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	DiscountReason  *string          `json:"discount_reason"`
	TaxAmount       decimal.Decimal  `json:"tax_amount"`
	Notes           *string          `json:"notes"`
}

// CreateInvoice opens a new invoice. The total is the item subtotal less the
// discount plus tax, floored at zero. A flat discount and a percent discount
// are mutually exclusive.
func (s *Service) CreateInvoice(ctx context.Context, hospitalID uuid.UUID, in CreateInvoiceInput) (*Invoice, []*InvoiceItem, error) {
	if in.PatientID == uuid.Nil {
		return nil, nil, apperr.Validation("patient_id is required")
	}
	if len(in.Items) == 0 {
		return nil, nil, apperr.Validation("at least one invoice item is required")
	}
	if in.DiscountPercent != nil && in.DiscountAmount.IsPositive() {
		return nil, nil, apperr.Validation("discount_amount and discount_percent are mutually exclusive")
	}
	if in.DiscountPercent != nil && (in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred)) {
		return nil, nil, apperr.Validation("discount_percent must be between 0 and 100")
	}
	if in.DiscountAmount.IsNegative() {
		return nil, nil, apperr.InvalidAmount("discount_amount must not be negative")
	}
	if in.TaxAmount.IsNegative() {
		return nil, nil, apperr.InvalidAmount("tax_amount must not be negative")
	}

	subtotal := decimal.Zero
	items := make([]*InvoiceItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Description == "" {
			return nil, nil, apperr.Validation("item description is required")
		}
		if it.Quantity <= 0 {
			return nil, nil, apperr.Validation("item quantity must be positive")
		}
		if !it.UnitPrice.IsPositive() {
			return nil, nil, apperr.InvalidAmount("item unit_price must be positive")
		}
		itemType := it.ItemType
		if itemType == "" {
			itemType = "service"
		}
		amount := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		subtotal = subtotal.Add(amount)
		items = append(items, &InvoiceItem{
			ItemType:    itemType,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      amount,
		})
	}

	discount := in.DiscountAmount
	if in.DiscountPercent != nil {
		discount = subtotal.Mul(*in.DiscountPercent).Div(hundred).Round(2)
	}

	total := subtotal.Sub(discount).Add(in.TaxAmount).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	inv := &Invoice{
		HospitalID:      hospitalID,
		PatientID:       in.PatientID,
		AppointmentID:   in.AppointmentID,
		EncounterID:     in.EncounterID,
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		DiscountPercent: in.DiscountPercent,
		DiscountReason:  in.DiscountReason,
		TaxAmount:       in.TaxAmount,
		TotalAmount:     total,
		Notes:           in.Notes,
	}
	inv.ApplyPaid(decimal.Zero)

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		year := time.Now().UTC().Year()
		seq, err := s.invoices.NextSequence(ctx, hospitalID, year)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = FormatInvoiceNumber(year, seq)
		return s.invoices.Create(ctx, inv, items)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("invoice_id", inv.ID.String()).
		Str("invoice_number", inv.InvoiceNumber).
		Str("total", inv.TotalAmount.String()).
		Msg("invoice created")
	return inv, items, nil
}

// PaymentInput carries a requested payment against an invoice.
type PaymentInput struct {
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  *string         `json:"reference"`
	Notes      *string         `json:"notes"`
	ReceivedAt *time.Time      `json:"received_at"`
}

// RecordPayment applies a payment to an invoice. The payment insert and the
// derived paid/balance/status update commit atomically, with the invoice row
// locked for the duration; a lost race is retried a bounded number of times.
func (s *Service) RecordPayment(ctx context.Context, hospitalID, invoiceID uuid.UUID, in PaymentInput) (*Payment, *Invoice, error) {
	if !ValidPaymentMethod(in.Method) {
		return nil, nil, apperr.Validation("unknown payment method: %s", in.Method)
	}
	if !in.Amount.IsPositive() {
		return nil, nil, apperr.InvalidAmount("payment amount must be positive")
	}

	var (
		payment *Payment
		invoice *Invoice
		err     error
	)
	for attempt := 1; attempt <= s.retryMax; attempt++ {
		payment, invoice, err = s.applyPayment(ctx, hospitalID, invoiceID, in)
		if !apperr.IsKind(err, apperr.KindConflict) {
			break
		}
		s.logger.Warn().
			Str("invoice_id", invoiceID.String()).
			Int("attempt", attempt).
			Msg("payment conflict, retrying")
	}
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("payment_id", payment.ID.String()).
		Str("amount", payment.Amount.String()).
		Str("status", invoice.Status).
		Msg("payment recorded")
	return payment, invoice, nil
}

func (s *Service) applyPayment(ctx context.Context, hospitalID, invoiceID uuid.UUID, in PaymentInput) (*Payment, *Invoice, error) {
	var payment *Payment
	var invoice *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.HospitalID != hospitalID {
			return apperr.NotFound("invoice not found")
		}
		if inv.Status == StatusVoid {
			return apperr.Validation("invoice is void and cannot accept payments")
		}
		if in.Amount.GreaterThan(inv.BalanceAmount) {
			return apperr.InvalidAmount("payment amount %s exceeds outstanding balance %s",
				in.Amount.String(), inv.BalanceAmount.String())
		}

		p := &Payment{
			InvoiceID:  inv.ID,
			HospitalID: inv.HospitalID,
			Method:     in.Method,
			Amount:     in.Amount,
			Reference:  in.Reference,
			Notes:      in.Notes,
			ReceivedAt: in.ReceivedAt,
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}

		inv.ApplyPaid(inv.PaidAmount.Add(in.Amount))
		if err := s.invoices.UpdateTotals(ctx, inv); err != nil {
			return err
		}

		payment, invoice = p, inv
		return nil
	})
	return payment, invoice, err
}

// RefundInput carries a requested refund against an invoice.
type RefundInput struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// RecordRefund returns money against an invoice and re-derives the paid
// amount, balance and status under the same locking discipline as payments.
func (s *Service) RecordRefund(ctx context.Context, hospitalID, invoiceID uuid.UUID, in RefundInput) (*Refund, *Invoice, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, apperr.InvalidAmount("refund amount must be positive")
	}
	if in.Reason == "" {
		return nil, nil, apperr.Validation("refund reason is required")
	}

	var (
		refund  *Refund
		invoice *Invoice
		err     error
	)
	for attempt := 1; attempt <= s.retryMax; attempt++ {
		refund, invoice, err = s.applyRefund(ctx, hospitalID, invoiceID, in)
		if !apperr.IsKind(err, apperr.KindConflict) {
			break
		}
		s.logger.Warn().
			Str("invoice_id", invoiceID.String()).
			Int("attempt", attempt).
			Msg("refund conflict, retrying")
	}
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("refund_id", refund.ID.String()).
		Str("amount", refund.Amount.String()).
		Msg("refund recorded")
	return refund, invoice, nil
}

func (s *Service) applyRefund(ctx context.Context, hospitalID, invoiceID uuid.UUID, in RefundInput) (*Refund, *Invoice, error) {
	var refund *Refund
	var invoice *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.HospitalID != hospitalID {
			return apperr.NotFound("invoice not found")
		}
		if in.Amount.GreaterThan(inv.PaidAmount) {
			return apperr.InvalidAmount("refund amount %s exceeds paid amount %s",
				in.Amount.String(), inv.PaidAmount.String())
		}

		rf := &Refund{InvoiceID: inv.ID, Amount: in.Amount, Reason: in.Reason}
		if err := s.refunds.Create(ctx, rf); err != nil {
			return err
		}

		inv.ApplyPaid(inv.PaidAmount.Sub(in.Amount))
		if err := s.invoices.UpdateTotals(ctx, inv); err != nil {
			return err
		}

		refund, invoice = rf, inv
		return nil
	})
	return refund, invoice, err
}

// VoidInvoice marks an invoice void. Void is terminal; the invoice stays in
// the ledger and rejects any further payments.
func (s *Service) VoidInvoice(ctx context.Context, hospitalID, invoiceID uuid.UUID) (*Invoice, error) {
	var invoice *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.HospitalID != hospitalID {
			return apperr.NotFound("invoice not found")
		}
		if inv.Status == StatusVoid {
			invoice = inv
			return nil
		}
		inv.Status = StatusVoid
		if err := s.invoices.UpdateTotals(ctx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("invoice_id", invoice.ID.String()).Msg("invoice voided")
	return invoice, nil
}

func (s *Service) GetInvoice(ctx context.Context, hospitalID, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.HospitalID != hospitalID {
		return nil, apperr.NotFound("invoice not found")
	}
	return inv, nil
}

func (s *Service) GetInvoiceItems(ctx context.Context, hospitalID, id uuid.UUID) ([]*InvoiceItem, error) {
	if _, err := s.GetInvoice(ctx, hospitalID, id); err != nil {
		return nil, err
	}
	return s.invoices.GetItems(ctx, id)
}

// GetBalance returns the outstanding balance of an invoice.
func (s *Service) GetBalance(ctx context.Context, hospitalID, id uuid.UUID) (decimal.Decimal, error) {
	inv, err := s.GetInvoice(ctx, hospitalID, id)
	if err != nil {
		return decimal.Zero, err
	}
	return inv.BalanceAmount, nil
}

func (s *Service) ListInvoices(ctx context.Context, hospitalID uuid.UUID, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error) {
	if f.Status != "" && f.Status != StatusOpen && f.Status != StatusPartiallyPaid &&
		f.Status != StatusPaid && f.Status != StatusVoid {
		return nil, 0, apperr.Validation("unknown invoice status: %s", f.Status)
	}
	return s.invoices.ListByHospital(ctx, hospitalID, f, limit, offset)
}

func (s *Service) ListPayments(ctx context.Context, hospitalID, invoiceID uuid.UUID) ([]*Payment, error) {
	if _, err := s.GetInvoice(ctx, hospitalID, invoiceID); err != nil {
		return nil, err
	}
	return s.payments.ListByInvoice(ctx, invoiceID)
}

func (s *Service) ListRefunds(ctx context.Context, hospitalID, invoiceID uuid.UUID) ([]*Refund, error) {
	if _, err := s.GetInvoice(ctx, hospitalID, invoiceID); err != nil {
		return nil, err
	}
	return s.refunds.ListByInvoice(ctx, invoiceID)
}
