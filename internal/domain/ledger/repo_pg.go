package ledger

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

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invoiceCols = `id, hospital_id, patient_id, invoice_number, appointment_id, encounter_id,
	status, subtotal, discount_amount, discount_percent, discount_reason, tax_amount,
	total_amount, paid_amount, balance_amount, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var i Invoice
	err := row.Scan(&i.ID, &i.HospitalID, &i.PatientID, &i.InvoiceNumber, &i.AppointmentID, &i.EncounterID,
		&i.Status, &i.Subtotal, &i.DiscountAmount, &i.DiscountPercent, &i.DiscountReason, &i.TaxAmount,
		&i.TotalAmount, &i.PaidAmount, &i.BalanceAmount, &i.Notes, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice not found")
	}
	return &i, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice, items []*InvoiceItem) error {
	inv.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoices (id, hospital_id, patient_id, invoice_number, appointment_id, encounter_id,
			status, subtotal, discount_amount, discount_percent, discount_reason, tax_amount,
			total_amount, paid_amount, balance_amount, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		inv.ID, inv.HospitalID, inv.PatientID, inv.InvoiceNumber, inv.AppointmentID, inv.EncounterID,
		inv.Status, inv.Subtotal, inv.DiscountAmount, inv.DiscountPercent, inv.DiscountReason, inv.TaxAmount,
		inv.TotalAmount, inv.PaidAmount, inv.BalanceAmount, inv.Notes).
		Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return err
	}

	for _, item := range items {
		item.ID = uuid.New()
		item.InvoiceID = inv.ID
		if _, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, item_type, description, quantity, unit_price, amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, item.InvoiceID, item.ItemType, item.Description, item.Quantity, item.UnitPrice, item.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
}

func (r *invoiceRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
}

func (r *invoiceRepoPG) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, item_type, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY description`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemType, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *invoiceRepoPG) UpdateTotals(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoices SET status=$2, paid_amount=$3, balance_amount=$4, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Status, inv.PaidAmount, inv.BalanceAmount)
	return err
}

func (r *invoiceRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error) {
	where := `WHERE hospital_id = $1`
	args := []interface{}{hospitalID}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		invoiceCols, where, len(args)-1, len(args))

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

// NextSequence reserves a per-hospital, per-year counter used for invoice
// numbering. The upsert serializes concurrent reservations on the row.
func (r *invoiceRepoPG) NextSequence(ctx context.Context, hospitalID uuid.UUID, year int) (int, error) {
	var seq int
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoice_counters (hospital_id, year, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (hospital_id, year)
		DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		RETURNING last_seq`, hospitalID, year).Scan(&seq)
	return seq, err
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const paymentCols = `id, invoice_id, hospital_id, method, amount, reference, notes, received_at, created_at`

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, invoice_id, hospital_id, method, amount, reference, notes, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		p.ID, p.InvoiceID, p.HospitalID, p.Method, p.Amount, p.Reference, p.Notes, p.ReceivedAt).
		Scan(&p.CreatedAt)
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE invoice_id = $1 ORDER BY created_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.HospitalID, &p.Method, &p.Amount,
			&p.Reference, &p.Notes, &p.ReceivedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

// =========== Refund Repository ===========

type refundRepoPG struct{ pool *pgxpool.Pool }

func NewRefundRepoPG(pool *pgxpool.Pool) RefundRepository { return &refundRepoPG{pool: pool} }

func (r *refundRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *refundRepoPG) Create(ctx context.Context, rf *Refund) error {
	rf.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO refunds (id, invoice_id, amount, reason)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at`,
		rf.ID, rf.InvoiceID, rf.Amount, rf.Reason).Scan(&rf.CreatedAt)
}

func (r *refundRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Refund, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, amount, reason, created_at
		FROM refunds WHERE invoice_id = $1 ORDER BY created_at`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Refund
	for rows.Next() {
		var rf Refund
		if err := rows.Scan(&rf.ID, &rf.InvoiceID, &rf.Amount, &rf.Reason, &rf.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &rf)
	}
	return items, rows.Err()
}
