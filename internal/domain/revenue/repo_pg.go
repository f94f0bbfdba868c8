package revenue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const effectiveAt = `COALESCE(p.received_at, p.created_at)`

const sourceExpr = `CASE
	WHEN i.appointment_id IS NOT NULL THEN 'appointment'
	WHEN i.encounter_id IS NOT NULL THEN 'ipd'
	ELSE 'opd'
END`

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func rangeClause(r Range, args []interface{}) (string, []interface{}) {
	clause := ""
	if r.From != nil {
		args = append(args, *r.From)
		clause += fmt.Sprintf(` AND %s >= $%d`, effectiveAt, len(args))
	}
	if r.To != nil {
		args = append(args, *r.To)
		clause += fmt.Sprintf(` AND %s < $%d`, effectiveAt, len(args))
	}
	return clause, args
}

func (r *repoPG) Sum(ctx context.Context, hospitalID uuid.UUID, rng Range) (decimal.Decimal, error) {
	args := []interface{}{hospitalID}
	clause, args := rangeClause(rng, args)

	var sum decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payments p
		WHERE p.hospital_id = $1`+clause, args...).Scan(&sum)
	return sum, err
}

func (r *repoPG) SumBySource(ctx context.Context, hospitalID uuid.UUID, rng Range) (map[string]decimal.Decimal, error) {
	args := []interface{}{hospitalID}
	clause, args := rangeClause(rng, args)

	rows, err := r.pool.Query(ctx, `
		SELECT `+sourceExpr+` AS source, COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE p.hospital_id = $1`+clause+`
		GROUP BY source`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var source string
		var sum decimal.Decimal
		if err := rows.Scan(&source, &sum); err != nil {
			return nil, err
		}
		sums[source] = sum
	}
	return sums, rows.Err()
}

func (r *repoPG) SumByMethod(ctx context.Context, hospitalID uuid.UUID, rng Range) (map[string]decimal.Decimal, error) {
	args := []interface{}{hospitalID}
	clause, args := rangeClause(rng, args)

	rows, err := r.pool.Query(ctx, `
		SELECT p.method, COALESCE(SUM(p.amount), 0)
		FROM payments p
		WHERE p.hospital_id = $1`+clause+`
		GROUP BY p.method`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var method string
		var sum decimal.Decimal
		if err := rows.Scan(&method, &sum); err != nil {
			return nil, err
		}
		sums[method] = sum
	}
	return sums, rows.Err()
}

func (r *repoPG) Transactions(ctx context.Context, hospitalID uuid.UUID, f TransactionFilter, limit, offset int) ([]*Transaction, int, error) {
	where := `WHERE p.hospital_id = $1`
	args := []interface{}{hospitalID}

	var clause string
	clause, args = rangeClause(f.Range, args)
	where += clause

	if f.Method != "" {
		args = append(args, f.Method)
		where += fmt.Sprintf(` AND p.method = $%d`, len(args))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where += fmt.Sprintf(` AND %s = $%d`, sourceExpr, len(args))
	}

	from := `FROM payments p JOIN invoices i ON i.id = p.invoice_id `

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT p.id, i.id, i.invoice_number, i.patient_id, p.method, p.amount,
			%s AS source, %s AS effective_at
		%s%s
		ORDER BY effective_at DESC, p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		sourceExpr, effectiveAt, from, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.PaymentID, &t.InvoiceID, &t.InvoiceNumber, &t.PatientID,
			&t.Method, &t.Amount, &t.Source, &t.EffectiveAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &t)
	}
	return items, total, rows.Err()
}
