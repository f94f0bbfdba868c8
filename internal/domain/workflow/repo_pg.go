package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/billing/internal/platform/apperr"
	"github.com/hms/billing/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository { return &orderRepoPG{pool: pool} }

func (r *orderRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const orderCols = `id, hospital_id, order_type, order_id, invoice_id, confirmed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*PaymentOrder, error) {
	var o PaymentOrder
	err := row.Scan(&o.ID, &o.HospitalID, &o.OrderType, &o.OrderID, &o.InvoiceID,
		&o.ConfirmedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("payment order not found")
	}
	return &o, err
}

// Create inserts the workflow record. The unique constraint on
// (hospital_id, order_type, order_id) keeps one invoice per order; a
// duplicate insert surfaces as Conflict for the caller to re-resolve.
func (r *orderRepoPG) Create(ctx context.Context, o *PaymentOrder) error {
	o.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payment_orders (id, hospital_id, order_type, order_id, invoice_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		o.ID, o.HospitalID, o.OrderType, o.OrderID, o.InvoiceID).
		Scan(&o.CreatedAt, &o.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Wrap(apperr.KindConflict, err, "order %s/%s already has an invoice", o.OrderType, o.OrderID)
	}
	return err
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PaymentOrder, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM payment_orders WHERE id = $1`, id))
}

func (r *orderRepoPG) GetByOrder(ctx context.Context, hospitalID uuid.UUID, orderType string, orderID uuid.UUID) (*PaymentOrder, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx, `
		SELECT `+orderCols+` FROM payment_orders
		WHERE hospital_id = $1 AND order_type = $2 AND order_id = $3`,
		hospitalID, orderType, orderID))
}

func (r *orderRepoPG) SetConfirmed(ctx context.Context, o *PaymentOrder) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE payment_orders
		SET confirmed_at = COALESCE(confirmed_at, NOW()), updated_at = NOW()
		WHERE id = $1
		RETURNING confirmed_at`, o.ID).Scan(&o.ConfirmedAt)
}

func (r *orderRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, pendingOnly bool, limit, offset int) ([]*PaymentOrder, int, error) {
	where := `WHERE hospital_id = $1`
	args := []interface{}{hospitalID}
	if pendingOnly {
		where += ` AND confirmed_at IS NULL`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payment_orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM payment_orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderCols, where, len(args)-1, len(args))

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PaymentOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}
