package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const organizationColumns = `id, name, description, contact_email, created_at, updated_at`

// organizationRepository implements OrganizationRepository interface
type organizationRepository struct {
	q db.DBTX
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(q db.DBTX) OrganizationRepository {
	return &organizationRepository{q: q}
}

func scanOrganization(row pgx.Row) (domain.Organization, error) {
	var org domain.Organization
	err := row.Scan(&org.ID, &org.Name, &org.Description, &org.ContactEmail, &org.CreatedAt, &org.UpdatedAt)
	return org, err
}

// Create creates a new organization
func (r *organizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO organizations (id, name, description, contact_email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+organizationColumns,
		org.ID, org.Name, org.Description, org.ContactEmail, org.CreatedAt, org.UpdatedAt,
	)
	created, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, queryError("create organization", err)
	}
	return created, nil
}

// GetByID retrieves an organization by ID
func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	row := r.q.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
	org, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, queryError("get organization", err)
	}
	return org, nil
}

// List retrieves all organizations
func (r *organizationRepository) List(ctx context.Context) ([]domain.Organization, error) {
	rows, err := r.q.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	organizations := []domain.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		organizations = append(organizations, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}
	return organizations, nil
}

// Update updates an organization
func (r *organizationRepository) Update(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	row := r.q.QueryRow(ctx,
		`UPDATE organizations
		 SET name = $2, description = $3, contact_email = $4, updated_at = $5
		 WHERE id = $1
		 RETURNING `+organizationColumns,
		org.ID, org.Name, org.Description, org.ContactEmail, org.UpdatedAt,
	)
	updated, err := scanOrganization(row)
	if err != nil {
		return domain.Organization{}, queryError("update organization", err)
	}
	return updated, nil
}

// Delete deletes an organization
func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return expectAffected("delete organization", tag.RowsAffected())
}
