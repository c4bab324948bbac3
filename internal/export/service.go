package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/repository"
)

const (
	casesSheet = "Cases"
	logsSheet  = "Audit Log"

	timeLayout = "2006-01-02 15:04:05"
)

var (
	caseHeaders = []any{"Order Number", "Applicant", "Email", "Country", "Status", "Created At", "Updated At"}
	logHeaders  = []any{"Order Number", "Note", "Created At"}
)

// Service renders an organization's cases and their audit logs as an xlsx workbook.
type Service struct {
	cases    repository.CaseRepository
	logs     repository.CaseLogRepository
	pageSize int
	logger   zerolog.Logger
}

type Option func(*Service)

// WithPageSize sets how many cases are read per query.
func WithPageSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(cases repository.CaseRepository, logs repository.CaseLogRepository, opts ...Option) *Service {
	service := &Service{
		cases:    cases,
		logs:     logs,
		pageSize: 500,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Summary reports what a workbook contains.
type Summary struct {
	Cases   int
	Entries int
}

// WriteWorkbook writes every case matching filter, oldest log entry first,
// to w.
func (s *Service) WriteWorkbook(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, w io.Writer) (Summary, error) {
	if organizationID == uuid.Nil {
		return Summary{}, fmt.Errorf("%w: organization ID is required", domain.ErrValidation)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close workbook")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), casesSheet); err != nil {
		return Summary{}, fmt.Errorf("failed to name cases sheet: %w", err)
	}
	if _, err := f.NewSheet(logsSheet); err != nil {
		return Summary{}, fmt.Errorf("failed to create log sheet: %w", err)
	}
	if err := writeRow(f, casesSheet, 1, caseHeaders); err != nil {
		return Summary{}, err
	}
	if err := writeRow(f, logsSheet, 1, logHeaders); err != nil {
		return Summary{}, err
	}

	var summary Summary
	for offset := 0; ; offset += s.pageSize {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		page, total, err := s.cases.List(ctx, organizationID, filter, s.pageSize, offset)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to list cases: %w", err)
		}

		for _, c := range page {
			summary.Cases++
			if err := writeRow(f, casesSheet, summary.Cases+1, caseRow(c)); err != nil {
				return Summary{}, err
			}

			entries, err := s.logs.List(ctx, organizationID, c.ID)
			if err != nil {
				return Summary{}, fmt.Errorf("failed to list logs for %s: %w", c.OrderNumber, err)
			}
			for _, entry := range entries {
				summary.Entries++
				row := []any{c.OrderNumber, entry.Note, formatTime(entry.CreatedAt)}
				if err := writeRow(f, logsSheet, summary.Entries+1, row); err != nil {
					return Summary{}, err
				}
			}
		}

		if len(page) == 0 || offset+len(page) >= total {
			break
		}
	}

	if err := f.SetColWidth(casesSheet, "A", "B", 30); err != nil {
		return Summary{}, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(logsSheet, "B", "B", 80); err != nil {
		return Summary{}, fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return Summary{}, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info().
		Str("organization_id", organizationID.String()).
		Int("cases", summary.Cases).
		Int("entries", summary.Entries).
		Msg("case workbook exported")
	return summary, nil
}

func caseRow(c domain.Case) []any {
	return []any{
		c.OrderNumber,
		c.ApplicantName,
		c.Email,
		c.Country,
		string(c.Status),
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
