package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/domain"
)

const passportFormColumns = `id, organization_id, case_id, sections, created_at, updated_at`

type passportFormRepository struct {
	q db.DBTX
}

// NewPassportFormRepository creates a new passport form repository
func NewPassportFormRepository(q db.DBTX) PassportFormRepository {
	return &passportFormRepository{q: q}
}

func scanPassportForm(row pgx.Row) (domain.PassportForm, error) {
	var (
		form     domain.PassportForm
		sections []byte
	)
	if err := row.Scan(&form.ID, &form.OrganizationID, &form.CaseID, &sections, &form.CreatedAt, &form.UpdatedAt); err != nil {
		return domain.PassportForm{}, err
	}
	decoded, err := domain.DecodeSections(sections)
	if err != nil {
		return domain.PassportForm{}, err
	}
	form.Sections = decoded
	return form, nil
}

func (r *passportFormRepository) Create(ctx context.Context, form domain.PassportForm) (domain.PassportForm, error) {
	sections, err := form.SectionsJSON()
	if err != nil {
		return domain.PassportForm{}, queryError("encode passport form", err)
	}
	row := r.q.QueryRow(ctx,
		`INSERT INTO passport_forms (id, organization_id, case_id, sections, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+passportFormColumns,
		form.ID, form.OrganizationID, form.CaseID, sections, form.CreatedAt, form.UpdatedAt,
	)
	created, err := scanPassportForm(row)
	if err != nil {
		return domain.PassportForm{}, queryError("create passport form", err)
	}
	return created, nil
}

func (r *passportFormRepository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.PassportForm, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+passportFormColumns+` FROM passport_forms WHERE organization_id = $1 AND id = $2`,
		organizationID, id,
	)
	form, err := scanPassportForm(row)
	if err != nil {
		return domain.PassportForm{}, queryError("get passport form", err)
	}
	return form, nil
}

func (r *passportFormRepository) GetByCaseID(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+passportFormColumns+` FROM passport_forms WHERE organization_id = $1 AND case_id = $2`,
		organizationID, caseID,
	)
	form, err := scanPassportForm(row)
	if err != nil {
		return domain.PassportForm{}, queryError("get passport form by case", err)
	}
	return form, nil
}

func (r *passportFormRepository) GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.PassportForm, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+passportFormColumns+` FROM passport_forms WHERE organization_id = $1 AND id = $2 FOR UPDATE`,
		organizationID, id,
	)
	form, err := scanPassportForm(row)
	if err != nil {
		return domain.PassportForm{}, queryError("lock passport form", err)
	}
	return form, nil
}

func (r *passportFormRepository) Save(ctx context.Context, form domain.PassportForm) (domain.PassportForm, error) {
	sections, err := form.SectionsJSON()
	if err != nil {
		return domain.PassportForm{}, queryError("encode passport form", err)
	}
	row := r.q.QueryRow(ctx,
		`UPDATE passport_forms SET sections = $3, updated_at = $4
		 WHERE organization_id = $1 AND id = $2
		 RETURNING `+passportFormColumns,
		form.OrganizationID, form.ID, sections, form.UpdatedAt,
	)
	saved, err := scanPassportForm(row)
	if err != nil {
		return domain.PassportForm{}, queryError("save passport form", err)
	}
	return saved, nil
}
