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

const serviceTypeColumns = `id, organization_id, country, name, description, base_price, sort_order, active, created_at, updated_at`

type serviceTypeRepository struct {
	q db.DBTX
}

// NewServiceTypeRepository creates a new service type repository
func NewServiceTypeRepository(q db.DBTX) ServiceTypeRepository {
	return &serviceTypeRepository{q: q}
}

func scanServiceType(row pgx.Row) (domain.ServiceType, error) {
	var (
		st        domain.ServiceType
		basePrice int64
	)
	err := row.Scan(&st.ID, &st.OrganizationID, &st.Country, &st.Name, &st.Description,
		&basePrice, &st.SortOrder, &st.Active, &st.CreatedAt, &st.UpdatedAt)
	st.BasePrice = domain.Money(basePrice)
	return st, err
}

func collectServiceTypes(rows pgx.Rows) ([]domain.ServiceType, error) {
	defer rows.Close()
	types := []domain.ServiceType{}
	for rows.Next() {
		st, err := scanServiceType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service type: %w", err)
		}
		types = append(types, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate service types: %w", err)
	}
	return types, nil
}

func (r *serviceTypeRepository) Create(ctx context.Context, st domain.ServiceType) (domain.ServiceType, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO service_types (id, organization_id, country, name, description, base_price, sort_order, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+serviceTypeColumns,
		st.ID, st.OrganizationID, st.Country, st.Name, st.Description, int64(st.BasePrice),
		st.SortOrder, st.Active, st.CreatedAt, st.UpdatedAt,
	)
	created, err := scanServiceType(row)
	if err != nil {
		return domain.ServiceType{}, queryError("create service type", err)
	}
	return created, nil
}

func (r *serviceTypeRepository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.ServiceType, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+serviceTypeColumns+` FROM service_types WHERE organization_id = $1 AND id = $2`,
		organizationID, id,
	)
	st, err := scanServiceType(row)
	if err != nil {
		return domain.ServiceType{}, queryError("get service type", err)
	}
	return st, nil
}

// GetByIDs is used by the request-scoped loader; callers re-check the organization.
func (r *serviceTypeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ServiceType, error) {
	if len(ids) == 0 {
		return []domain.ServiceType{}, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+serviceTypeColumns+` FROM service_types WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get service types: %w", err)
	}
	return collectServiceTypes(rows)
}

func (r *serviceTypeRepository) List(ctx context.Context, organizationID uuid.UUID, country string) ([]domain.ServiceType, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if country == "" {
		rows, err = r.q.Query(ctx,
			`SELECT `+serviceTypeColumns+` FROM service_types
			 WHERE organization_id = $1
			 ORDER BY country, sort_order`,
			organizationID,
		)
	} else {
		rows, err = r.q.Query(ctx,
			`SELECT `+serviceTypeColumns+` FROM service_types
			 WHERE organization_id = $1 AND country = $2
			 ORDER BY sort_order`,
			organizationID, strings.ToUpper(country),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	return collectServiceTypes(rows)
}

func (r *serviceTypeRepository) Update(ctx context.Context, st domain.ServiceType) (domain.ServiceType, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE service_types
		 SET name = $3, description = $4, base_price = $5, sort_order = $6, active = $7, updated_at = $8
		 WHERE organization_id = $1 AND id = $2
		 RETURNING `+serviceTypeColumns,
		st.OrganizationID, st.ID, st.Name, st.Description, int64(st.BasePrice), st.SortOrder, st.Active, st.UpdatedAt,
	)
	updated, err := scanServiceType(row)
	if err != nil {
		return domain.ServiceType{}, queryError("update service type", err)
	}
	return updated, nil
}

func (r *serviceTypeRepository) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM service_types WHERE organization_id = $1 AND id = $2`, organizationID, id)
	if err != nil {
		return fmt.Errorf("failed to delete service type: %w", err)
	}
	return expectAffected("delete service type", tag.RowsAffected())
}

func (r *serviceTypeRepository) LockSiblings(ctx context.Context, organizationID uuid.UUID, country string) error {
	_, err := r.q.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		organizationID.String()+"|"+strings.ToUpper(country),
	)
	if err != nil {
		return fmt.Errorf("failed to lock service type siblings: %w", err)
	}
	return nil
}

func (r *serviceTypeRepository) CountSiblings(ctx context.Context, organizationID uuid.UUID, country string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM service_types WHERE organization_id = $1 AND country = $2`,
		organizationID, strings.ToUpper(country),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count service types: %w", err)
	}
	return count, nil
}

func (r *serviceTypeRepository) ShiftSortOrder(ctx context.Context, organizationID uuid.UUID, country string, shift domain.SortShift, exclude uuid.UUID) error {
	_, err := r.q.Exec(ctx,
		`UPDATE service_types
		 SET sort_order = sort_order + $5, updated_at = now()
		 WHERE organization_id = $1 AND country = $2
		   AND sort_order BETWEEN $3 AND $4
		   AND id <> $6`,
		organizationID, strings.ToUpper(country), shift.From, shift.To, shift.Delta, exclude,
	)
	if err != nil {
		return fmt.Errorf("failed to shift service type sort order: %w", err)
	}
	return nil
}
