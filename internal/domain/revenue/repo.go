package revenue

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the read-side over payments joined with invoices. All range
// arguments apply to the effective payment date, COALESCE(received_at,
// created_at). Voided invoices keep their payments on the report.
type Repository interface {
	// Sum totals payment amounts in the range.
	Sum(ctx context.Context, hospitalID uuid.UUID, r Range) (decimal.Decimal, error)
	// SumBySource groups payment amounts by revenue source.
	SumBySource(ctx context.Context, hospitalID uuid.UUID, r Range) (map[string]decimal.Decimal, error)
	// SumByMethod groups payment amounts by raw payment method as stored.
	SumByMethod(ctx context.Context, hospitalID uuid.UUID, r Range) (map[string]decimal.Decimal, error)
	// Transactions lists payments newest-effective first.
	Transactions(ctx context.Context, hospitalID uuid.UUID, f TransactionFilter, limit, offset int) ([]*Transaction, int, error)
}
