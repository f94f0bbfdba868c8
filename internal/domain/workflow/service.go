package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/billing/internal/domain/ledger"
	"github.com/hms/billing/internal/platform/apperr"
)

// Ledger is the slice of the billing ledger the workflow drives.
type Ledger interface {
	CreateInvoice(ctx context.Context, hospitalID uuid.UUID, in ledger.CreateInvoiceInput) (*ledger.Invoice, []*ledger.InvoiceItem, error)
	RecordPayment(ctx context.Context, hospitalID, invoiceID uuid.UUID, in ledger.PaymentInput) (*ledger.Payment, *ledger.Invoice, error)
	GetInvoice(ctx context.Context, hospitalID, id uuid.UUID) (*ledger.Invoice, error)
}

// OrderConfirmer notifies the order system that its order has been paid for.
// Implementations must tolerate repeated confirmation of the same order.
type OrderConfirmer interface {
	Confirm(ctx context.Context, orderType string, orderID uuid.UUID) error
}

type Service struct {
	orders    OrderRepository
	ledger    Ledger
	confirmer OrderConfirmer
	logger    zerolog.Logger
}

func NewService(orders OrderRepository, l Ledger, confirmer OrderConfirmer, logger zerolog.Logger) *Service {
	return &Service{orders: orders, ledger: l, confirmer: confirmer, logger: logger}
}

// PayAndConfirmInput describes one pay-before-confirm request.
type PayAndConfirmInput struct {
	PatientID uuid.UUID          `json:"patient_id"`
	OrderType string             `json:"order_type"`
	OrderID   uuid.UUID          `json:"order_id"`
	Items     []ledger.ItemInput `json:"items"`
	Method    string             `json:"method"`
	Amount    decimal.Decimal    `json:"amount"`
	Reference *string            `json:"reference"`
}

// PayAndConfirmResult reports how far the flow got. Confirmed false with a
// nil error never happens; a confirmation failure surfaces as Upstream while
// the invoice and payment stand.
type PayAndConfirmResult struct {
	Order   *PaymentOrder   `json:"order"`
	Invoice *ledger.Invoice `json:"invoice"`
	Payment *ledger.Payment `json:"payment,omitempty"`
}

// PayAndConfirm runs the three-step flow: raise an invoice for the order,
// collect the payment, confirm the order upstream. Each step commits on its
// own, and every step is idempotent so a failed run can be retried with the
// same request.
func (s *Service) PayAndConfirm(ctx context.Context, hospitalID uuid.UUID, in PayAndConfirmInput) (*PayAndConfirmResult, error) {
	if !ValidOrderType(in.OrderType) {
		return nil, apperr.Validation("unknown order type: %s", in.OrderType)
	}
	if in.OrderID == uuid.Nil {
		return nil, apperr.Validation("order_id is required")
	}

	order, err := s.resolveOrder(ctx, hospitalID, in)
	if err != nil {
		return nil, err
	}

	invoice, err := s.ledger.GetInvoice(ctx, hospitalID, order.InvoiceID)
	if err != nil {
		return nil, err
	}

	result := &PayAndConfirmResult{Order: order, Invoice: invoice}

	// Step 2: collect, unless a previous run already settled the invoice.
	if invoice.Status != ledger.StatusPaid {
		payment, inv, err := s.ledger.RecordPayment(ctx, hospitalID, invoice.ID, ledger.PaymentInput{
			Method:    in.Method,
			Amount:    in.Amount,
			Reference: in.Reference,
		})
		if err != nil {
			return nil, err
		}
		result.Payment = payment
		result.Invoice = inv
		invoice = inv
	}

	// Step 3: confirm upstream once the invoice is settled.
	if invoice.Status == ledger.StatusPaid {
		if err := s.confirm(ctx, order); err != nil {
			return result, err
		}
	}
	return result, nil
}

// resolveOrder finds the workflow record for the order or raises the invoice
// and creates it. A concurrent creator losing the unique-constraint race
// falls back to the winner's record.
func (s *Service) resolveOrder(ctx context.Context, hospitalID uuid.UUID, in PayAndConfirmInput) (*PaymentOrder, error) {
	order, err := s.orders.GetByOrder(ctx, hospitalID, in.OrderType, in.OrderID)
	if err == nil {
		return order, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	invoice, _, err := s.ledger.CreateInvoice(ctx, hospitalID, ledger.CreateInvoiceInput{
		PatientID: in.PatientID,
		Items:     in.Items,
	})
	if err != nil {
		return nil, err
	}

	order = &PaymentOrder{
		HospitalID: hospitalID,
		OrderType:  in.OrderType,
		OrderID:    in.OrderID,
		InvoiceID:  invoice.ID,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return s.orders.GetByOrder(ctx, hospitalID, in.OrderType, in.OrderID)
		}
		return nil, err
	}

	s.logger.Info().
		Str("order_type", order.OrderType).
		Str("order_id", order.OrderID.String()).
		Str("invoice_id", order.InvoiceID.String()).
		Msg("order invoiced")
	return order, nil
}

func (s *Service) confirm(ctx context.Context, order *PaymentOrder) error {
	if order.Confirmed() {
		return nil
	}
	if err := s.confirmer.Confirm(ctx, order.OrderType, order.OrderID); err != nil {
		s.logger.Error().Err(err).
			Str("order_type", order.OrderType).
			Str("order_id", order.OrderID.String()).
			Msg("order confirmation failed, payment stands")
		return apperr.Wrap(apperr.KindUpstream, err, "order confirmation failed")
	}
	if err := s.orders.SetConfirmed(ctx, order); err != nil {
		return err
	}

	s.logger.Info().
		Str("order_type", order.OrderType).
		Str("order_id", order.OrderID.String()).
		Msg("order confirmed")
	return nil
}

// RetryConfirm re-runs only the confirmation step for an order whose invoice
// is already settled. A confirmed order is a no-op.
func (s *Service) RetryConfirm(ctx context.Context, hospitalID uuid.UUID, orderType string, orderID uuid.UUID) (*PaymentOrder, error) {
	if !ValidOrderType(orderType) {
		return nil, apperr.Validation("unknown order type: %s", orderType)
	}

	order, err := s.orders.GetByOrder(ctx, hospitalID, orderType, orderID)
	if err != nil {
		return nil, err
	}
	if order.Confirmed() {
		return order, nil
	}

	invoice, err := s.ledger.GetInvoice(ctx, hospitalID, order.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != ledger.StatusPaid {
		return nil, apperr.Validation("invoice %s is not fully paid", invoice.InvoiceNumber)
	}

	if err := s.confirm(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, hospitalID uuid.UUID, orderType string, orderID uuid.UUID) (*PaymentOrder, error) {
	return s.orders.GetByOrder(ctx, hospitalID, orderType, orderID)
}

func (s *Service) ListOrders(ctx context.Context, hospitalID uuid.UUID, pendingOnly bool, limit, offset int) ([]*PaymentOrder, int, error) {
	return s.orders.ListByHospital(ctx, hospitalID, pendingOnly, limit, offset)
}
