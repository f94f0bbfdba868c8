package workflow

import (
	"context"

	"github.com/google/uuid"
)

type OrderRepository interface {
	Create(ctx context.Context, o *PaymentOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*PaymentOrder, error)
	// GetByOrder resolves the workflow record for an external order, if one
	// exists.
	GetByOrder(ctx context.Context, hospitalID uuid.UUID, orderType string, orderID uuid.UUID) (*PaymentOrder, error)
	// SetConfirmed stamps the confirmation time. It is a no-op when the
	// record is already confirmed.
	SetConfirmed(ctx context.Context, o *PaymentOrder) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, pendingOnly bool, limit, offset int) ([]*PaymentOrder, int, error)
}
