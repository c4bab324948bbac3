package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/domain"
)

const caseColumns = `id, organization_id, order_number, applicant_name, email, country, status,
	service_type_id, service_level_id, consular_fee_id, created_at, updated_at`

// caseRepository implements CaseRepository interface
type caseRepository struct {
	q    db.DBTX
	logs CaseLogRepository
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(q db.DBTX) CaseRepository {
	return &caseRepository{q: q, logs: NewCaseLogRepository(q)}
}

func scanCase(row pgx.Row, extra ...any) (domain.Case, error) {
	var (
		c      domain.Case
		status string
	)
	dest := []any{
		&c.ID, &c.OrganizationID, &c.OrderNumber, &c.ApplicantName, &c.Email, &c.Country, &status,
		&c.ServiceTypeID, &c.ServiceLevelID, &c.ConsularFeeID, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Case{}, err
	}
	c.Status = domain.CaseStatus(status)
	c.Logs = []domain.ChangeRecord{}
	return c, nil
}

// Create creates a new case
func (r *caseRepository) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO cases (id, organization_id, order_number, applicant_name, email, country, status,
			service_type_id, service_level_id, consular_fee_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+caseColumns,
		c.ID, c.OrganizationID, c.OrderNumber, c.ApplicantName, c.Email, c.Country, string(c.Status),
		c.ServiceTypeID, c.ServiceLevelID, c.ConsularFeeID, c.CreatedAt, c.UpdatedAt,
	)
	created, err := scanCase(row)
	if err != nil {
		return domain.Case{}, queryError("create case", err)
	}
	return created, nil
}

// GetByID retrieves a case together with its audit log
func (r *caseRepository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	return r.get(ctx, organizationID, id, "")
}

// GetForUpdate retrieves a case and locks its row until the surrounding
// transaction ends. Every audit-log append for the case holds this lock.
func (r *caseRepository) GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	return r.get(ctx, organizationID, id, " FOR UPDATE")
}

func (r *caseRepository) get(ctx context.Context, organizationID, id uuid.UUID, lock string) (domain.Case, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE organization_id = $1 AND id = $2`+lock,
		organizationID, id,
	)
	c, err := scanCase(row)
	if err != nil {
		return domain.Case{}, queryError("get case", err)
	}

	entries, err := r.logs.List(ctx, organizationID, id)
	if err != nil {
		return domain.Case{}, err
	}
	for _, entry := range entries {
		c.Logs = append(c.Logs, entry.Record())
	}
	return c, nil
}

// List returns one page of cases and the total number of matches
func (r *caseRepository) List(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, limit int, offset int) ([]domain.Case, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	conditions := []string{"organization_id = $1"}
	args := []any{organizationID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Country != "" {
		args = append(args, strings.ToUpper(filter.Country))
		conditions = append(conditions, fmt.Sprintf("country = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(applicant_name ILIKE $%[1]d OR email ILIKE $%[1]d OR order_number ILIKE $%[1]d)", len(args)))
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) OVER() AS total
		 FROM cases
		 WHERE %s
		 ORDER BY created_at DESC, id
		 LIMIT $%d OFFSET $%d`,
		caseColumns, strings.Join(conditions, " AND "), len(args)-1, len(args),
	)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	defer rows.Close()

	cases := []domain.Case{}
	total := 0
	for rows.Next() {
		var count int64
		c, err := scanCase(rows, &count)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan case: %w", err)
		}
		total = int(count)
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate cases: %w", err)
	}
	return cases, total, nil
}

// Update updates a case; its audit log is not touched
func (r *caseRepository) Update(ctx context.Context, c domain.Case) (domain.Case, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE cases
		 SET applicant_name = $3, email = $4, country = $5, status = $6,
		     service_type_id = $7, service_level_id = $8, consular_fee_id = $9, updated_at = $10
		 WHERE organization_id = $1 AND id = $2
		 RETURNING `+caseColumns,
		c.OrganizationID, c.ID, c.ApplicantName, c.Email, c.Country, string(c.Status),
		c.ServiceTypeID, c.ServiceLevelID, c.ConsularFeeID, c.UpdatedAt,
	)
	updated, err := scanCase(row)
	if err != nil {
		return domain.Case{}, queryError("update case", err)
	}
	updated.Logs = c.Logs
	return updated, nil
}

// Delete deletes a case, its form and its audit log
func (r *caseRepository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM cases WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	return expectAffected("delete case", tag.RowsAffected())
}
