package insurance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Preauthorization statuses. Approved and rejected are terminal.
const (
	PreauthRequested = "requested"
	PreauthApproved  = "approved"
	PreauthRejected  = "rejected"
)

// Claim statuses. The lifecycle moves strictly forward:
// draft -> submitted -> approved -> paid, or submitted -> rejected.
const (
	ClaimDraft     = "draft"
	ClaimSubmitted = "submitted"
	ClaimApproved  = "approved"
	ClaimRejected  = "rejected"
	ClaimPaid      = "paid"
)

// Provider is an insurance company. A provider without a hospital scope is
// visible to every hospital.
type Provider struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	HospitalID   *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Code         *string    `db:"code" json:"code,omitempty"`
	ContactEmail *string    `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// PatientPolicy links a patient to a provider policy. A patient may hold any
// number of policies.
type PatientPolicy struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	HospitalID     uuid.UUID        `db:"hospital_id" json:"hospital_id"`
	PatientID      uuid.UUID        `db:"patient_id" json:"patient_id"`
	ProviderID     uuid.UUID        `db:"provider_id" json:"provider_id"`
	PolicyNumber   string           `db:"policy_number" json:"policy_number"`
	HolderName     *string          `db:"holder_name" json:"holder_name,omitempty"`
	CoverageAmount *decimal.Decimal `db:"coverage_amount" json:"coverage_amount,omitempty"`
	ValidFrom      *time.Time       `db:"valid_from" json:"valid_from,omitempty"`
	ValidTo        *time.Time       `db:"valid_to" json:"valid_to,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// Preauth is a pre-treatment authorization request against a policy.
// ApprovedAmount is set only on approval and never exceeds EstimatedAmount.
type Preauth struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	HospitalID      uuid.UUID        `db:"hospital_id" json:"hospital_id"`
	PatientID       uuid.UUID        `db:"patient_id" json:"patient_id"`
	EncounterID     *uuid.UUID       `db:"encounter_id" json:"encounter_id,omitempty"`
	PolicyID        *uuid.UUID       `db:"policy_id" json:"policy_id,omitempty"`
	Status          string           `db:"status" json:"status"`
	EstimatedAmount decimal.Decimal  `db:"estimated_amount" json:"estimated_amount"`
	ApprovedAmount  *decimal.Decimal `db:"approved_amount" json:"approved_amount,omitempty"`
	ReferenceNumber *string          `db:"reference_number" json:"reference_number,omitempty"`
	Remarks         *string          `db:"remarks" json:"remarks,omitempty"`
	DecidedAt       *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// Decided reports whether the preauth reached a terminal status.
func (p *Preauth) Decided() bool {
	return p.Status == PreauthApproved || p.Status == PreauthRejected
}

// Claim is an insurance claim moving through the submission lifecycle.
// RejectionReason is set exactly when the claim is rejected; PaidAt exactly
// when it is paid.
type Claim struct {
	ID              uuid.UUID        `db:"id" json:"id"`
	HospitalID      uuid.UUID        `db:"hospital_id" json:"hospital_id"`
	PatientID       uuid.UUID        `db:"patient_id" json:"patient_id"`
	PolicyID        *uuid.UUID       `db:"policy_id" json:"policy_id,omitempty"`
	EncounterID     *uuid.UUID       `db:"encounter_id" json:"encounter_id,omitempty"`
	InvoiceID       *uuid.UUID       `db:"invoice_id" json:"invoice_id,omitempty"`
	Status          string           `db:"status" json:"status"`
	SubmittedAmount *decimal.Decimal `db:"submitted_amount" json:"submitted_amount,omitempty"`
	ApprovedAmount  *decimal.Decimal `db:"approved_amount" json:"approved_amount,omitempty"`
	RejectionReason *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	Remarks         *string          `db:"remarks" json:"remarks,omitempty"`
	SubmittedAt     *time.Time       `db:"submitted_at" json:"submitted_at,omitempty"`
	DecidedAt       *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	PaidAt          *time.Time       `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// VoidedInvoiceClaim is a reconciliation row: a claim whose referenced ledger
// invoice has been voided after the claim was opened.
type VoidedInvoiceClaim struct {
	Claim         *Claim    `json:"claim"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	VoidedAt      time.Time `json:"voided_at"`
}
