package insurance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hms/billing/internal/platform/apperr"
	"github.com/hms/billing/internal/platform/db"
)

type Service struct {
	providers ProviderRepository
	policies  PolicyRepository
	preauths  PreauthRepository
	claims    ClaimRepository
	tx        db.TxRunner
	logger    zerolog.Logger
}

func NewService(prov ProviderRepository, pol PolicyRepository, pre PreauthRepository, cl ClaimRepository, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{providers: prov, policies: pol, preauths: pre, claims: cl, tx: tx, logger: logger}
}

// -- Providers --

type ProviderInput struct {
	Name         string  `json:"name"`
	Code         *string `json:"code"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	// Global providers are visible to every hospital.
	Global bool  `json:"global"`
	Active *bool `json:"active"`
}

func (s *Service) CreateProvider(ctx context.Context, hospitalID uuid.UUID, in ProviderInput) (*Provider, error) {
	if in.Name == "" {
		return nil, apperr.Validation("provider name is required")
	}
	p := &Provider{
		Name:         in.Name,
		Code:         in.Code,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Active:       true,
	}
	if !in.Global {
		p.HospitalID = &hospitalID
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.providers.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("provider_id", p.ID.String()).Str("name", p.Name).Msg("insurance provider created")
	return p, nil
}

func (s *Service) UpdateProvider(ctx context.Context, hospitalID, id uuid.UUID, in ProviderInput) (*Provider, error) {
	p, err := s.getProvider(ctx, hospitalID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Code != nil {
		p.Code = in.Code
	}
	if in.ContactEmail != nil {
		p.ContactEmail = in.ContactEmail
	}
	if in.ContactPhone != nil {
		p.ContactPhone = in.ContactPhone
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if err := s.providers.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListProviders(ctx context.Context, hospitalID uuid.UUID, activeOnly bool) ([]*Provider, error) {
	return s.providers.ListForHospital(ctx, hospitalID, activeOnly)
}

func (s *Service) getProvider(ctx context.Context, hospitalID, id uuid.UUID) (*Provider, error) {
	p, err := s.providers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.HospitalID != nil && *p.HospitalID != hospitalID {
		return nil, apperr.NotFound("insurance provider not found")
	}
	return p, nil
}

// -- Policies --

type PolicyInput struct {
	PatientID      uuid.UUID        `json:"patient_id"`
	ProviderID     uuid.UUID        `json:"provider_id"`
	PolicyNumber   string           `json:"policy_number"`
	HolderName     *string          `json:"holder_name"`
	CoverageAmount *decimal.Decimal `json:"coverage_amount"`
	ValidFrom      *time.Time       `json:"valid_from"`
	ValidTo        *time.Time       `json:"valid_to"`
}

func (s *Service) CreatePolicy(ctx context.Context, hospitalID uuid.UUID, in PolicyInput) (*PatientPolicy, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.PolicyNumber == "" {
		return nil, apperr.Validation("policy_number is required")
	}
	if in.CoverageAmount != nil && in.CoverageAmount.IsNegative() {
		return nil, apperr.InvalidAmount("coverage_amount must not be negative")
	}
	if _, err := s.getProvider(ctx, hospitalID, in.ProviderID); err != nil {
		return nil, err
	}

	p := &PatientPolicy{
		HospitalID:     hospitalID,
		PatientID:      in.PatientID,
		ProviderID:     in.ProviderID,
		PolicyNumber:   in.PolicyNumber,
		HolderName:     in.HolderName,
		CoverageAmount: in.CoverageAmount,
		ValidFrom:      in.ValidFrom,
		ValidTo:        in.ValidTo,
	}
	if err := s.policies.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPolicies(ctx context.Context, hospitalID, patientID uuid.UUID) ([]*PatientPolicy, error) {
	return s.policies.ListByPatient(ctx, hospitalID, patientID)
}

// -- Preauthorizations --

type PreauthInput struct {
	PatientID       uuid.UUID       `json:"patient_id"`
	EncounterID     *uuid.UUID      `json:"encounter_id"`
	PolicyID        *uuid.UUID      `json:"policy_id"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	ReferenceNumber *string         `json:"reference_number"`
	Remarks         *string         `json:"remarks"`
}

func (s *Service) CreatePreauth(ctx context.Context, hospitalID uuid.UUID, in PreauthInput) (*Preauth, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if !in.EstimatedAmount.IsPositive() {
		return nil, apperr.InvalidAmount("estimated_amount must be positive")
	}
	if in.PolicyID != nil {
		pol, err := s.policies.GetByID(ctx, *in.PolicyID)
		if err != nil {
			return nil, err
		}
		if pol.HospitalID != hospitalID {
			return nil, apperr.NotFound("patient policy not found")
		}
	}

	p := &Preauth{
		HospitalID:      hospitalID,
		PatientID:       in.PatientID,
		EncounterID:     in.EncounterID,
		PolicyID:        in.PolicyID,
		Status:          PreauthRequested,
		EstimatedAmount: in.EstimatedAmount,
		ReferenceNumber: in.ReferenceNumber,
		Remarks:         in.Remarks,
	}
	if err := s.preauths.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("preauth_id", p.ID.String()).Str("estimated", p.EstimatedAmount.String()).Msg("preauthorization requested")
	return p, nil
}

// PreauthDecision carries an insurer decision on a requested preauth.
type PreauthDecision struct {
	Decision       string           `json:"decision"`
	ApprovedAmount *decimal.Decimal `json:"approved_amount"`
	Remarks        *string          `json:"remarks"`
}

// DecidePreauth moves a requested preauth to approved or rejected. Both
// outcomes are terminal. Approval caps the approved amount at the estimate.
func (s *Service) DecidePreauth(ctx context.Context, hospitalID, id uuid.UUID, in PreauthDecision) (*Preauth, error) {
	if in.Decision != "approve" && in.Decision != "reject" {
		return nil, apperr.Validation("decision must be approve or reject")
	}

	var preauth *Preauth
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.preauths.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.HospitalID != hospitalID {
			return apperr.NotFound("preauthorization not found")
		}
		if p.Decided() {
			return apperr.Validation("preauthorization is already %s", p.Status)
		}

		now := time.Now().UTC()
		switch in.Decision {
		case "approve":
			if in.ApprovedAmount == nil || !in.ApprovedAmount.IsPositive() {
				return apperr.InvalidAmount("approved_amount must be positive")
			}
			if in.ApprovedAmount.GreaterThan(p.EstimatedAmount) {
				return apperr.Validation("approved_amount %s exceeds estimated_amount %s",
					in.ApprovedAmount.String(), p.EstimatedAmount.String())
			}
			p.Status = PreauthApproved
			p.ApprovedAmount = in.ApprovedAmount
		case "reject":
			p.Status = PreauthRejected
		}
		if in.Remarks != nil {
			p.Remarks = in.Remarks
		}
		p.DecidedAt = &now
		if err := s.preauths.Update(ctx, p); err != nil {
			return err
		}
		preauth = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("preauth_id", preauth.ID.String()).Str("status", preauth.Status).Msg("preauthorization decided")
	return preauth, nil
}

func (s *Service) GetPreauth(ctx context.Context, hospitalID, id uuid.UUID) (*Preauth, error) {
	p, err := s.preauths.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.HospitalID != hospitalID {
		return nil, apperr.NotFound("preauthorization not found")
	}
	return p, nil
}

func (s *Service) ListPreauths(ctx context.Context, hospitalID uuid.UUID, status string, limit, offset int) ([]*Preauth, int, error) {
	if status != "" && status != PreauthRequested && status != PreauthApproved && status != PreauthRejected {
		return nil, 0, apperr.Validation("unknown preauthorization status: %s", status)
	}
	return s.preauths.ListByHospital(ctx, hospitalID, status, limit, offset)
}

// -- Claims --

type ClaimInput struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	PolicyID    *uuid.UUID `json:"policy_id"`
	EncounterID *uuid.UUID `json:"encounter_id"`
	InvoiceID   *uuid.UUID `json:"invoice_id"`
	Remarks     *string    `json:"remarks"`
}

func (s *Service) CreateClaim(ctx context.Context, hospitalID uuid.UUID, in ClaimInput) (*Claim, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.PolicyID != nil {
		pol, err := s.policies.GetByID(ctx, *in.PolicyID)
		if err != nil {
			return nil, err
		}
		if pol.HospitalID != hospitalID {
			return nil, apperr.NotFound("patient policy not found")
		}
	}

	c := &Claim{
		HospitalID:  hospitalID,
		PatientID:   in.PatientID,
		PolicyID:    in.PolicyID,
		EncounterID: in.EncounterID,
		InvoiceID:   in.InvoiceID,
		Status:      ClaimDraft,
		Remarks:     in.Remarks,
	}
	if err := s.claims.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("claim_id", c.ID.String()).Msg("claim drafted")
	return c, nil
}

// SubmitClaim moves a draft claim to submitted with the amount claimed from
// the insurer.
func (s *Service) SubmitClaim(ctx context.Context, hospitalID, id uuid.UUID, amount decimal.Decimal) (*Claim, error) {
	if !amount.IsPositive() {
		return nil, apperr.InvalidAmount("submitted_amount must be positive")
	}
	return s.transition(ctx, hospitalID, id, func(c *Claim) error {
		if c.Status != ClaimDraft {
			return apperr.Validation("only a draft claim can be submitted, current status: %s", c.Status)
		}
		now := time.Now().UTC()
		c.Status = ClaimSubmitted
		c.SubmittedAmount = &amount
		c.SubmittedAt = &now
		return nil
	})
}

// ApproveClaim records an insurer approval. The approved amount never exceeds
// the submitted amount.
func (s *Service) ApproveClaim(ctx context.Context, hospitalID, id uuid.UUID, amount decimal.Decimal) (*Claim, error) {
	if !amount.IsPositive() {
		return nil, apperr.InvalidAmount("approved_amount must be positive")
	}
	return s.transition(ctx, hospitalID, id, func(c *Claim) error {
		if c.Status != ClaimSubmitted {
			return apperr.Validation("only a submitted claim can be approved, current status: %s", c.Status)
		}
		if c.SubmittedAmount != nil && amount.GreaterThan(*c.SubmittedAmount) {
			return apperr.Validation("approved_amount %s exceeds submitted_amount %s",
				amount.String(), c.SubmittedAmount.String())
		}
		now := time.Now().UTC()
		c.Status = ClaimApproved
		c.ApprovedAmount = &amount
		c.DecidedAt = &now
		return nil
	})
}

// RejectClaim records an insurer rejection with its reason.
func (s *Service) RejectClaim(ctx context.Context, hospitalID, id uuid.UUID, reason string) (*Claim, error) {
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	return s.transition(ctx, hospitalID, id, func(c *Claim) error {
		if c.Status != ClaimSubmitted {
			return apperr.Validation("only a submitted claim can be rejected, current status: %s", c.Status)
		}
		now := time.Now().UTC()
		c.Status = ClaimRejected
		c.RejectionReason = &reason
		c.DecidedAt = &now
		return nil
	})
}

// MarkClaimPaid records receipt of the insurer payout. PaidAt is set exactly
// once; a repeat call fails rather than double-applying.
func (s *Service) MarkClaimPaid(ctx context.Context, hospitalID, id uuid.UUID) (*Claim, error) {
	return s.transition(ctx, hospitalID, id, func(c *Claim) error {
		if c.Status != ClaimApproved {
			return apperr.Validation("only an approved claim can be marked paid, current status: %s", c.Status)
		}
		now := time.Now().UTC()
		c.Status = ClaimPaid
		c.PaidAt = &now
		return nil
	})
}

func (s *Service) transition(ctx context.Context, hospitalID, id uuid.UUID, apply func(*Claim) error) (*Claim, error) {
	var claim *Claim
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if c.HospitalID != hospitalID {
			return apperr.NotFound("claim not found")
		}
		if err := apply(c); err != nil {
			return err
		}
		if err := s.claims.Update(ctx, c); err != nil {
			return err
		}
		claim = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("claim_id", claim.ID.String()).Str("status", claim.Status).Msg("claim transitioned")
	return claim, nil
}

func (s *Service) GetClaim(ctx context.Context, hospitalID, id uuid.UUID) (*Claim, error) {
	c, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.HospitalID != hospitalID {
		return nil, apperr.NotFound("claim not found")
	}
	return c, nil
}

func (s *Service) ListClaims(ctx context.Context, hospitalID uuid.UUID, f ClaimFilter, limit, offset int) ([]*Claim, int, error) {
	if f.Status != "" && f.Status != ClaimDraft && f.Status != ClaimSubmitted &&
		f.Status != ClaimApproved && f.Status != ClaimRejected && f.Status != ClaimPaid {
		return nil, 0, apperr.Validation("unknown claim status: %s", f.Status)
	}
	return s.claims.ListByHospital(ctx, hospitalID, f, limit, offset)
}

// ListClaimsWithVoidedInvoices reports claims whose referenced invoice has
// been voided. The report is informational; claims are never auto-amended.
func (s *Service) ListClaimsWithVoidedInvoices(ctx context.Context, hospitalID uuid.UUID) ([]*VoidedInvoiceClaim, error) {
	return s.claims.ListWithVoidedInvoices(ctx, hospitalID)
}
