package passport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/repository"
)

// Service manages passport application forms and records every section
// edit in the owning case's audit log.
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

// WithClock overrides the time source used for form timestamps and notes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDateFields replaces the field names compared as calendar dates.
func WithDateFields(fields ...string) Option {
	return func(s *Service) {
		s.detector = domain.NewChangeDetector(domain.WithDateFields(fields...), domain.WithClock(s.clock))
	}
}

// NewService creates a passport form service. repos serves reads; writes go
// through tx.
func NewService(repos repository.Repositories, tx repository.TxManager, opts ...Option) *Service {
	s := &Service{
		repos:  repos,
		tx:     tx,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	s.detector = domain.NewChangeDetector(domain.WithClock(s.clock))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now()
}

// SectionUpdate is the result of saving one section.
type SectionUpdate struct {
	Form    domain.PassportForm   `json:"form"`
	Section string                `json:"section"`
	Records []domain.ChangeRecord `json:"records"`
}

// CreateForm attaches an empty form to a case. A case has at most one form.
func (s *Service) CreateForm(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error) {
	var created domain.PassportForm
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if _, err := r.Cases.GetByID(ctx, organizationID, caseID); err != nil {
			return err
		}
		if _, err := r.PassportForms.GetByCaseID(ctx, organizationID, caseID); err == nil {
			return fmt.Errorf("%w: case %s already has a passport form", domain.ErrValidation, caseID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		form := domain.NewPassportForm(organizationID, caseID)
		form.CreatedAt = s.now()
		form.UpdatedAt = form.CreatedAt

		var err error
		created, err = r.PassportForms.Create(ctx, form)
		return err
	})
	if err != nil {
		return domain.PassportForm{}, err
	}

	s.logger.Info().Str("form_id", created.ID.String()).Str("case_id", caseID.String()).Msg("passport form created")
	return created, nil
}

// GetForm returns a form of the organization.
func (s *Service) GetForm(ctx context.Context, organizationID, formID uuid.UUID) (domain.PassportForm, error) {
	return s.repos.PassportForms.GetByID(ctx, organizationID, formID)
}

// GetFormByCase returns the form attached to a case.
func (s *Service) GetFormByCase(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error) {
	return s.repos.PassportForms.GetByCaseID(ctx, organizationID, caseID)
}

// UpdateSection replaces one section of a form. The previous section is
// diffed against data and the resulting notes are appended to the case log in
// the same transaction that saves the form, so either both persist or
// neither does. A save without effective changes appends nothing.
func (s *Service) UpdateSection(ctx context.Context, organizationID, formID uuid.UUID, section string, data domain.Snapshot) (SectionUpdate, error) {
	if err := domain.ValidateSection(section); err != nil {
		return SectionUpdate{}, err
	}
	if data == nil {
		data = domain.Snapshot{}
	}

	var result SectionUpdate
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		owner, err := r.PassportForms.GetByID(ctx, organizationID, formID)
		if err != nil {
			return err
		}
		// Case before form, the order a cascading case delete takes them in.
		if _, err := r.Cases.GetForUpdate(ctx, organizationID, owner.CaseID); err != nil {
			return err
		}
		form, err := r.PassportForms.GetForUpdate(ctx, organizationID, formID)
		if err != nil {
			return err
		}

		records := s.detector.Detect(form.Section(section), data, section)

		updated := form.WithSection(section, data)
		updated.UpdatedAt = s.now()
		saved, err := r.PassportForms.Save(ctx, updated)
		if err != nil {
			return err
		}

		if err := r.CaseLogs.Append(ctx, organizationID, form.CaseID, records); err != nil {
			return err
		}

		result = SectionUpdate{Form: saved, Section: section, Records: records}
		return nil
	})
	if err != nil {
		return SectionUpdate{}, fmt.Errorf("failed to update section %s: %w", section, err)
	}

	s.logger.Debug().
		Str("form_id", formID.String()).
		Str("section", section).
		Int("changes", len(result.Records)).
		Msg("passport form section saved")
	return result, nil
}

// ListLogs returns the audit log of a case, oldest first.
func (s *Service) ListLogs(ctx context.Context, organizationID, caseID uuid.UUID) ([]domain.CaseLogEntry, error) {
	if _, err := s.repos.Cases.GetByID(ctx, organizationID, caseID); err != nil {
		return nil, err
	}
	return s.repos.CaseLogs.List(ctx, organizationID, caseID)
}
