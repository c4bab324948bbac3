package repository

import (
	"context"

	"github.com/rpattn/visadesk/internal/domain"

	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	Update(ctx context.Context, org domain.Organization) (domain.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CaseRepository defines the interface for case operations. Every lookup is
// scoped to an organization.
type CaseRepository interface {
	Create(ctx context.Context, c domain.Case) (domain.Case, error)
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error)
	// GetForUpdate loads the case and locks its row until the surrounding
	// transaction ends. Callers appending to the case log must hold it.
	GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error)
	List(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, limit int, offset int) ([]domain.Case, int, error)
	Update(ctx context.Context, c domain.Case) (domain.Case, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

// CaseLogRepository appends to and reads the write-once case audit log.
// Append must run in a transaction holding CaseRepository.GetForUpdate on
// the case.
type CaseLogRepository interface {
	Append(ctx context.Context, organizationID, caseID uuid.UUID, records []domain.ChangeRecord) error
	List(ctx context.Context, organizationID, caseID uuid.UUID) ([]domain.CaseLogEntry, error)
}

// PassportFormRepository defines the interface for passport form operations
type PassportFormRepository interface {
	Create(ctx context.Context, form domain.PassportForm) (domain.PassportForm, error)
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.PassportForm, error)
	GetByCaseID(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error)
	// GetForUpdate loads the form and locks its row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.PassportForm, error)
	Save(ctx context.Context, form domain.PassportForm) (domain.PassportForm, error)
}

// ServiceTypeRepository defines the interface for service type operations
type ServiceTypeRepository interface {
	Create(ctx context.Context, st domain.ServiceType) (domain.ServiceType, error)
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.ServiceType, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ServiceType, error)
	List(ctx context.Context, organizationID uuid.UUID, country string) ([]domain.ServiceType, error)
	Update(ctx context.Context, st domain.ServiceType) (domain.ServiceType, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error

	// Sort-order maintenance. LockSiblings serialises concurrent re-indexing
	// of one sibling group for the rest of the transaction.
	LockSiblings(ctx context.Context, organizationID uuid.UUID, country string) error
	CountSiblings(ctx context.Context, organizationID uuid.UUID, country string) (int, error)
	ShiftSortOrder(ctx context.Context, organizationID uuid.UUID, country string, shift domain.SortShift, exclude uuid.UUID) error
}

// PricingRepository stores consular fees and service levels.
type PricingRepository interface {
	CreateConsularFee(ctx context.Context, fee domain.ConsularFee) (domain.ConsularFee, error)
	GetConsularFee(ctx context.Context, organizationID, id uuid.UUID) (domain.ConsularFee, error)
	ListConsularFees(ctx context.Context, organizationID uuid.UUID) ([]domain.ConsularFee, error)
	CreateServiceLevel(ctx context.Context, level domain.ServiceLevel) (domain.ServiceLevel, error)
	GetServiceLevel(ctx context.Context, organizationID, id uuid.UUID) (domain.ServiceLevel, error)
	ListServiceLevels(ctx context.Context, organizationID uuid.UUID) ([]domain.ServiceLevel, error)
}

// Repositories groups every repository bound to the same connection or
// transaction.
type Repositories struct {
	Organizations OrganizationRepository
	Cases         CaseRepository
	CaseLogs      CaseLogRepository
	PassportForms PassportFormRepository
	ServiceTypes  ServiceTypeRepository
	Pricing       PricingRepository
}

// TxManager runs a unit of work against repositories bound to one
// database transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}
