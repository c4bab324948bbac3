package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/repository"
)

// DefaultCurrency is used for quotes that do not name one.
const DefaultCurrency = "USD"

// Service manages the organization's sellable catalog: service types,
// consular fees and service levels.
type Service struct {
	repos  repository.Repositories
	tx     repository.TxManager
	logger zerolog.Logger
	now    func() time.Time
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

// NewService creates a catalog service
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
	return s
}

// ServiceTypeInput describes a new service type. SortOrder 0 appends it.
type ServiceTypeInput struct {
	Country     string       `json:"country"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	BasePrice   domain.Money `json:"basePrice"`
	SortOrder   int          `json:"sortOrder"`
}

// ServiceTypePatch is a partial update; nil fields are left untouched.
type ServiceTypePatch struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	BasePrice   *domain.Money `json:"basePrice"`
	Active      *bool         `json:"active"`
	SortOrder   *int          `json:"sortOrder"`
}

// CreateServiceType inserts a service type at the requested position and
// shifts the siblings below it down by one.
func (s *Service) CreateServiceType(ctx context.Context, organizationID uuid.UUID, input ServiceTypeInput) (domain.ServiceType, error) {
	st := domain.NewServiceType(organizationID, input.Country, input.Name, input.Description, input.BasePrice, input.SortOrder)
	now := s.now()
	st.CreatedAt, st.UpdatedAt = now, now
	if err := st.Validate(); err != nil {
		return domain.ServiceType{}, err
	}

	var created domain.ServiceType
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.ServiceTypes.LockSiblings(ctx, organizationID, st.Country); err != nil {
			return err
		}
		count, err := r.ServiceTypes.CountSiblings(ctx, organizationID, st.Country)
		if err != nil {
			return err
		}
		position, shifts, err := domain.PlanInsert(count, st.SortOrder)
		if err != nil {
			return err
		}
		if err := applyShifts(ctx, r, st, shifts); err != nil {
			return err
		}
		st.SortOrder = position
		created, err = r.ServiceTypes.Create(ctx, st)
		return err
	})
	if err != nil {
		return domain.ServiceType{}, err
	}

	s.logger.Info().
		Str("service_type_id", created.ID.String()).
		Str("country", created.Country).
		Int("sort_order", created.SortOrder).
		Msg("service type created")
	return created, nil
}

// UpdateServiceType applies a patch. Changing SortOrder moves the type and
// re-indexes the siblings in between.
func (s *Service) UpdateServiceType(ctx context.Context, organizationID, id uuid.UUID, patch ServiceTypePatch) (domain.ServiceType, error) {
	var updated domain.ServiceType
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.ServiceTypes.GetByID(ctx, organizationID, id)
		if err != nil {
			return err
		}

		next := current
		if patch.Name != nil {
			next.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			next.Description = *patch.Description
		}
		if patch.BasePrice != nil {
			next.BasePrice = *patch.BasePrice
		}
		if patch.Active != nil {
			next.Active = *patch.Active
		}
		next.UpdatedAt = s.now()

		if patch.SortOrder != nil && *patch.SortOrder != current.SortOrder {
			if err := r.ServiceTypes.LockSiblings(ctx, organizationID, current.Country); err != nil {
				return err
			}
			count, err := r.ServiceTypes.CountSiblings(ctx, organizationID, current.Country)
			if err != nil {
				return err
			}
			position, shifts, err := domain.PlanMove(count, current.SortOrder, *patch.SortOrder)
			if err != nil {
				return err
			}
			if err := applyShifts(ctx, r, current, shifts); err != nil {
				return err
			}
			next.SortOrder = position
		}

		if err := next.Validate(); err != nil {
			return err
		}
		updated, err = r.ServiceTypes.Update(ctx, next)
		return err
	})
	if err != nil {
		return domain.ServiceType{}, err
	}
	return updated, nil
}

// DeleteServiceType removes a service type and closes the gap it leaves.
func (s *Service) DeleteServiceType(ctx context.Context, organizationID, id uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		current, err := r.ServiceTypes.GetByID(ctx, organizationID, id)
		if err != nil {
			return err
		}
		if err := r.ServiceTypes.LockSiblings(ctx, organizationID, current.Country); err != nil {
			return err
		}
		count, err := r.ServiceTypes.CountSiblings(ctx, organizationID, current.Country)
		if err != nil {
			return err
		}
		if err := r.ServiceTypes.Delete(ctx, organizationID, id); err != nil {
			return err
		}
		return applyShifts(ctx, r, current, domain.PlanRemove(count, current.SortOrder))
	})
}

// ListServiceTypes lists service types, optionally for one country.
func (s *Service) ListServiceTypes(ctx context.Context, organizationID uuid.UUID, country string) ([]domain.ServiceType, error) {
	return s.repos.ServiceTypes.List(ctx, organizationID, strings.TrimSpace(country))
}

func applyShifts(ctx context.Context, r repository.Repositories, st domain.ServiceType, shifts []domain.SortShift) error {
	for _, shift := range shifts {
		if err := r.ServiceTypes.ShiftSortOrder(ctx, st.OrganizationID, st.Country, shift, st.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateConsularFee stores a government fee.
func (s *Service) CreateConsularFee(ctx context.Context, organizationID uuid.UUID, fee domain.ConsularFee) (domain.ConsularFee, error) {
	fee.ID = uuid.New()
	fee.OrganizationID = organizationID
	fee.Country = strings.ToUpper(strings.TrimSpace(fee.Country))
	fee.VisaType = strings.TrimSpace(fee.VisaType)
	fee.CreatedAt = s.now()
	if err := fee.Validate(); err != nil {
		return domain.ConsularFee{}, err
	}
	return s.repos.Pricing.CreateConsularFee(ctx, fee)
}

// ListConsularFees lists fees, narrowed by country and visa type when given.
func (s *Service) ListConsularFees(ctx context.Context, organizationID uuid.UUID, country, visaType string) ([]domain.ConsularFee, error) {
	fees, err := s.repos.Pricing.ListConsularFees(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(country) == "" {
		return fees, nil
	}
	return domain.FilterConsularFees(fees, strings.TrimSpace(country), strings.TrimSpace(visaType)), nil
}

// CreateServiceLevel stores a processing speed for one of the organization's service types.
func (s *Service) CreateServiceLevel(ctx context.Context, organizationID uuid.UUID, level domain.ServiceLevel) (domain.ServiceLevel, error) {
	level.ID = uuid.New()
	level.OrganizationID = organizationID
	level.Name = strings.TrimSpace(level.Name)
	level.CreatedAt = s.now()
	if err := level.Validate(); err != nil {
		return domain.ServiceLevel{}, err
	}
	if _, err := s.repos.ServiceTypes.GetByID(ctx, organizationID, level.ServiceTypeID); err != nil {
		return domain.ServiceLevel{}, fmt.Errorf("failed to resolve service type: %w", err)
	}
	return s.repos.Pricing.CreateServiceLevel(ctx, level)
}

// ListServiceLevels lists levels, narrowed to one service type when given.
func (s *Service) ListServiceLevels(ctx context.Context, organizationID uuid.UUID, serviceTypeID uuid.UUID) ([]domain.ServiceLevel, error) {
	levels, err := s.repos.Pricing.ListServiceLevels(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if serviceTypeID == uuid.Nil {
		return levels, nil
	}
	return domain.FilterServiceLevels(levels, serviceTypeID), nil
}

// QuoteRequest selects the catalog items to price.
type QuoteRequest struct {
	ServiceTypeID  uuid.UUID `json:"serviceTypeId"`
	ServiceLevelID uuid.UUID `json:"serviceLevelId"`
	ConsularFeeID  uuid.UUID `json:"consularFeeId"`
	Applicants     int       `json:"applicants"`
	Currency       string    `json:"currency"`
}

// Quote prices an order from catalog items of the organization.
func (s *Service) Quote(ctx context.Context, organizationID uuid.UUID, req QuoteRequest) (domain.Quote, error) {
	serviceType, err := s.repos.ServiceTypes.GetByID(ctx, organizationID, req.ServiceTypeID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to resolve service type: %w", err)
	}
	level, err := s.repos.Pricing.GetServiceLevel(ctx, organizationID, req.ServiceLevelID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to resolve service level: %w", err)
	}
	fee, err := s.repos.Pricing.GetConsularFee(ctx, organizationID, req.ConsularFeeID)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("failed to resolve consular fee: %w", err)
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	return domain.BuildQuote(serviceType, level, fee, req.Applicants, currency)
}
