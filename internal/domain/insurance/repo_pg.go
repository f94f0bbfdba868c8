package insurance

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Provider Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

const providerCols = `id, hospital_id, name, code, contact_email, contact_phone, active, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.HospitalID, &p.Name, &p.Code, &p.ContactEmail, &p.ContactPhone,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("insurance provider not found")
	}
	return &p, err
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO insurance_providers (id, hospital_id, name, code, contact_email, contact_phone, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.HospitalID, p.Name, p.Code, p.ContactEmail, p.ContactPhone, p.Active).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_providers
		SET name=$2, code=$3, contact_email=$4, contact_phone=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Code, p.ContactEmail, p.ContactPhone, p.Active)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return scanProvider(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+providerCols+` FROM insurance_providers WHERE id = $1`, id))
}

func (r *providerRepoPG) ListForHospital(ctx context.Context, hospitalID uuid.UUID, activeOnly bool) ([]*Provider, error) {
	query := `SELECT ` + providerCols + ` FROM insurance_providers
		WHERE (hospital_id = $1 OR hospital_id IS NULL)`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY name`

	rows, err := conn(ctx, r.pool).Query(ctx, query, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Policy Repository ===========

type policyRepoPG struct{ pool *pgxpool.Pool }

func NewPolicyRepoPG(pool *pgxpool.Pool) PolicyRepository { return &policyRepoPG{pool: pool} }

const policyCols = `id, hospital_id, patient_id, provider_id, policy_number, holder_name,
	coverage_amount, valid_from, valid_to, created_at`

func scanPolicy(row pgx.Row) (*PatientPolicy, error) {
	var p PatientPolicy
	err := row.Scan(&p.ID, &p.HospitalID, &p.PatientID, &p.ProviderID, &p.PolicyNumber, &p.HolderName,
		&p.CoverageAmount, &p.ValidFrom, &p.ValidTo, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("patient policy not found")
	}
	return &p, err
}

func (r *policyRepoPG) Create(ctx context.Context, p *PatientPolicy) error {
	p.ID = uuid.New()
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient_policies (id, hospital_id, patient_id, provider_id, policy_number,
			holder_name, coverage_amount, valid_from, valid_to)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		p.ID, p.HospitalID, p.PatientID, p.ProviderID, p.PolicyNumber,
		p.HolderName, p.CoverageAmount, p.ValidFrom, p.ValidTo).
		Scan(&p.CreatedAt)
}

func (r *policyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientPolicy, error) {
	return scanPolicy(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+policyCols+` FROM patient_policies WHERE id = $1`, id))
}

func (r *policyRepoPG) ListByPatient(ctx context.Context, hospitalID, patientID uuid.UUID) ([]*PatientPolicy, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+policyCols+` FROM patient_policies
		WHERE hospital_id = $1 AND patient_id = $2 ORDER BY created_at DESC`,
		hospitalID, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Preauth Repository ===========

type preauthRepoPG struct{ pool *pgxpool.Pool }

func NewPreauthRepoPG(pool *pgxpool.Pool) PreauthRepository { return &preauthRepoPG{pool: pool} }

const preauthCols = `id, hospital_id, patient_id, encounter_id, policy_id, status,
	estimated_amount, approved_amount, reference_number, remarks, decided_at, created_at, updated_at`

func scanPreauth(row pgx.Row) (*Preauth, error) {
	var p Preauth
	err := row.Scan(&p.ID, &p.HospitalID, &p.PatientID, &p.EncounterID, &p.PolicyID, &p.Status,
		&p.EstimatedAmount, &p.ApprovedAmount, &p.ReferenceNumber, &p.Remarks, &p.DecidedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("preauthorization not found")
	}
	return &p, err
}

func (r *preauthRepoPG) Create(ctx context.Context, p *Preauth) error {
	p.ID = uuid.New()
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO insurance_preauths (id, hospital_id, patient_id, encounter_id, policy_id,
			status, estimated_amount, reference_number, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		p.ID, p.HospitalID, p.PatientID, p.EncounterID, p.PolicyID,
		p.Status, p.EstimatedAmount, p.ReferenceNumber, p.Remarks).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *preauthRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Preauth, error) {
	return scanPreauth(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+preauthCols+` FROM insurance_preauths WHERE id = $1`, id))
}

func (r *preauthRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Preauth, error) {
	return scanPreauth(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+preauthCols+` FROM insurance_preauths WHERE id = $1 FOR UPDATE`, id))
}

func (r *preauthRepoPG) Update(ctx context.Context, p *Preauth) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_preauths
		SET status=$2, approved_amount=$3, remarks=$4, decided_at=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.ApprovedAmount, p.Remarks, p.DecidedAt)
	return err
}

func (r *preauthRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, status string, limit, offset int) ([]*Preauth, int, error) {
	where := `WHERE hospital_id = $1`
	args := []interface{}{hospitalID}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_preauths `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM insurance_preauths %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		preauthCols, where, len(args)-1, len(args))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Preauth
	for rows.Next() {
		p, err := scanPreauth(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

const claimCols = `id, hospital_id, patient_id, policy_id, encounter_id, invoice_id, status,
	submitted_amount, approved_amount, rejection_reason, remarks, submitted_at, decided_at,
	paid_at, created_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.HospitalID, &c.PatientID, &c.PolicyID, &c.EncounterID, &c.InvoiceID,
		&c.Status, &c.SubmittedAmount, &c.ApprovedAmount, &c.RejectionReason, &c.Remarks,
		&c.SubmittedAt, &c.DecidedAt, &c.PaidAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("claim not found")
	}
	return &c, err
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO insurance_claims (id, hospital_id, patient_id, policy_id, encounter_id,
			invoice_id, status, remarks)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		c.ID, c.HospitalID, c.PatientID, c.PolicyID, c.EncounterID,
		c.InvoiceID, c.Status, c.Remarks).
		Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claims WHERE id = $1`, id))
}

func (r *claimRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return scanClaim(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claims WHERE id = $1 FOR UPDATE`, id))
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_claims
		SET status=$2, submitted_amount=$3, approved_amount=$4, rejection_reason=$5,
			remarks=$6, submitted_at=$7, decided_at=$8, paid_at=$9, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status, c.SubmittedAmount, c.ApprovedAmount, c.RejectionReason,
		c.Remarks, c.SubmittedAt, c.DecidedAt, c.PaidAt)
	return err
}

func (r *claimRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, f ClaimFilter, limit, offset int) ([]*Claim, int, error) {
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
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_claims `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM insurance_claims %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		claimCols, where, len(args)-1, len(args))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *claimRepoPG) ListWithVoidedInvoices(ctx context.Context, hospitalID uuid.UUID) ([]*VoidedInvoiceClaim, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT c.id, c.hospital_id, c.patient_id, c.policy_id, c.encounter_id, c.invoice_id,
			c.status, c.submitted_amount, c.approved_amount, c.rejection_reason, c.remarks,
			c.submitted_at, c.decided_at, c.paid_at, c.created_at, c.updated_at,
			i.id, i.invoice_number, i.updated_at
		FROM insurance_claims c
		JOIN invoices i ON i.id = c.invoice_id
		WHERE c.hospital_id = $1 AND i.status = 'void'
		ORDER BY i.updated_at DESC`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*VoidedInvoiceClaim
	for rows.Next() {
		var c Claim
		var v VoidedInvoiceClaim
		if err := rows.Scan(&c.ID, &c.HospitalID, &c.PatientID, &c.PolicyID, &c.EncounterID, &c.InvoiceID,
			&c.Status, &c.SubmittedAmount, &c.ApprovedAmount, &c.RejectionReason, &c.Remarks,
			&c.SubmittedAt, &c.DecidedAt, &c.PaidAt, &c.CreatedAt, &c.UpdatedAt,
			&v.InvoiceID, &v.InvoiceNumber, &v.VoidedAt); err != nil {
			return nil, err
		}
		v.Claim = &c
		items = append(items, &v)
	}
	return items, rows.Err()
}
