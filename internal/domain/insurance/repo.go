package insurance

import (
	"context"

	"github.com/google/uuid"
)

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	Update(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	// ListForHospital returns providers scoped to the hospital plus the
	// global ones.
	ListForHospital(ctx context.Context, hospitalID uuid.UUID, activeOnly bool) ([]*Provider, error)
}

type PolicyRepository interface {
	Create(ctx context.Context, p *PatientPolicy) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientPolicy, error)
	ListByPatient(ctx context.Context, hospitalID, patientID uuid.UUID) ([]*PatientPolicy, error)
}

type PreauthRepository interface {
	Create(ctx context.Context, p *Preauth) error
	GetByID(ctx context.Context, id uuid.UUID) (*Preauth, error)
	// GetByIDForUpdate locks the preauth row for the duration of the
	// surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Preauth, error)
	Update(ctx context.Context, p *Preauth) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, status string, limit, offset int) ([]*Preauth, int, error)
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	PatientID *uuid.UUID
	Status    string
}

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	// GetByIDForUpdate locks the claim row for the duration of the
	// surrounding transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, f ClaimFilter, limit, offset int) ([]*Claim, int, error)
	// ListWithVoidedInvoices returns claims whose referenced invoice is void.
	ListWithVoidedInvoices(ctx context.Context, hospitalID uuid.UUID) ([]*VoidedInvoiceClaim, error)
}
