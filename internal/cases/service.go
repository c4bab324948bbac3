package cases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/repository"
)

// Service implements case CRUD. Edits to a case are recorded in its audit log
// with the same change detector used for passport forms.
type Service struct {
	repos    repository.Repositories
	tx       repository.TxManager
	detector *domain.ChangeDetector
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a case service
func NewService(repos repository.Repositories, tx repository.TxManager, opts ...Option) *Service {
	s := &Service{
		repos:  repos,
		tx:     tx,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.detector = domain.NewChangeDetector(domain.WithClock(func() time.Time { return s.now() }))
	return s
}

// CreateInput describes a new case.
type CreateInput struct {
	ApplicantName  string     `json:"applicantName"`
	Email          string     `json:"email"`
	Country        string     `json:"country"`
	ServiceTypeID  *uuid.UUID `json:"serviceTypeId"`
	ServiceLevelID *uuid.UUID `json:"serviceLevelId"`
	ConsularFeeID  *uuid.UUID `json:"consularFeeId"`
}

// Create opens a case in status new.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, input CreateInput) (domain.Case, error) {
	c := domain.NewCase(organizationID, input.ApplicantName, input.Email, input.Country)
	c.ServiceTypeID = input.ServiceTypeID
	c.ServiceLevelID = input.ServiceLevelID
	c.ConsularFeeID = input.ConsularFeeID
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	c.OrderNumber = domain.NewOrderNumber(now)

	if err := c.Validate(); err != nil {
		return domain.Case{}, err
	}
	if err := s.checkReferences(ctx, s.repos, c); err != nil {
		return domain.Case{}, err
	}

	created, err := s.repos.Cases.Create(ctx, c)
	if err != nil {
		return domain.Case{}, err
	}
	s.logger.Info().Str("case_id", created.ID.String()).Str("order_number", created.OrderNumber).Msg("case created")
	return created, nil
}

// Get returns a case with its audit log.
func (s *Service) Get(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	return s.repos.Cases.GetByID(ctx, organizationID, id)
}

// List returns one page of the organization's cases and the total match count.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, limit, offset int) ([]domain.Case, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	return s.repos.Cases.List(ctx, organizationID, filter, limit, offset)
}

// Update applies a partial update and appends one note per changed field to
// the case log, atomically.
func (s *Service) Update(ctx context.Context, organizationID, id uuid.UUID, patch domain.CasePatch) (domain.Case, []domain.ChangeRecord, error) {
	var (
		updated domain.Case
		records []domain.ChangeRecord
	)
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.Cases.GetForUpdate(ctx, organizationID, id)
		if err != nil {
			return err
		}

		next := current.Apply(patch)
		next.UpdatedAt = s.now()
		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, r, next); err != nil {
			return err
		}

		records = s.detector.Detect(current.Snapshot(), next.Snapshot(), domain.CaseSection)

		updated, err = r.Cases.Update(ctx, next)
		if err != nil {
			return err
		}
		if err := r.CaseLogs.Append(ctx, organizationID, id, records); err != nil {
			return err
		}
		updated.Logs = append(append([]domain.ChangeRecord{}, current.Logs...), records...)
		return nil
	})
	if err != nil {
		return domain.Case{}, nil, err
	}
	return updated, records, nil
}

// Delete removes a case together with its form and log.
func (s *Service) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	if err := s.repos.Cases.Delete(ctx, organizationID, id); err != nil {
		return err
	}
	s.logger.Info().Str("case_id", id.String()).Msg("case deleted")
	return nil
}

// checkReferences verifies that catalog references belong to the case's organization.
func (s *Service) checkReferences(ctx context.Context, r repository.Repositories, c domain.Case) error {
	if c.ServiceTypeID != nil {
		if _, err := r.ServiceTypes.GetByID(ctx, c.OrganizationID, *c.ServiceTypeID); err != nil {
			return fmt.Errorf("failed to resolve service type: %w", err)
		}
	}
	if c.ServiceLevelID != nil {
		level, err := r.Pricing.GetServiceLevel(ctx, c.OrganizationID, *c.ServiceLevelID)
		if err != nil {
			return fmt.Errorf("failed to resolve service level: %w", err)
		}
		if c.ServiceTypeID != nil && level.ServiceTypeID != *c.ServiceTypeID {
			return fmt.Errorf("%w: service level does not belong to the selected service type", domain.ErrValidation)
		}
	}
	if c.ConsularFeeID != nil {
		if _, err := r.Pricing.GetConsularFee(ctx, c.OrganizationID, *c.ConsularFeeID); err != nil {
			return fmt.Errorf("failed to resolve consular fee: %w", err)
		}
	}
	return nil
}
