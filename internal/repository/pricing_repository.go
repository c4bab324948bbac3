package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/domain"
)

const (
	consularFeeColumns  = `id, organization_id, country, visa_type, entries, amount, created_at`
	serviceLevelColumns = `id, organization_id, service_type_id, name, price, processing_days, created_at`
)

type pricingRepository struct {
	q db.DBTX
}

// NewPricingRepository creates a repository for consular fees and service levels.
func NewPricingRepository(q db.DBTX) PricingRepository {
	return &pricingRepository{q: q}
}

func scanConsularFee(row pgx.Row) (domain.ConsularFee, error) {
	var (
		fee    domain.ConsularFee
		amount int64
	)
	err := row.Scan(&fee.ID, &fee.OrganizationID, &fee.Country, &fee.VisaType, &fee.Entries, &amount, &fee.CreatedAt)
	fee.Amount = domain.Money(amount)
	return fee, err
}

func scanServiceLevel(row pgx.Row) (domain.ServiceLevel, error) {
	var (
		level domain.ServiceLevel
		price int64
	)
	err := row.Scan(&level.ID, &level.OrganizationID, &level.ServiceTypeID, &level.Name, &price, &level.ProcessingDays, &level.CreatedAt)
	level.Price = domain.Money(price)
	return level, err
}

func (r *pricingRepository) CreateConsularFee(ctx context.Context, fee domain.ConsularFee) (domain.ConsularFee, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO consular_fees (id, organization_id, country, visa_type, entries, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+consularFeeColumns,
		fee.ID, fee.OrganizationID, fee.Country, fee.VisaType, fee.Entries, int64(fee.Amount), fee.CreatedAt,
	)
	created, err := scanConsularFee(row)
	if err != nil {
		return domain.ConsularFee{}, queryError("create consular fee", err)
	}
	return created, nil
}

func (r *pricingRepository) GetConsularFee(ctx context.Context, organizationID, id uuid.UUID) (domain.ConsularFee, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+consularFeeColumns+` FROM consular_fees WHERE organization_id = $1 AND id = $2`,
		organizationID, id,
	)
	fee, err := scanConsularFee(row)
	if err != nil {
		return domain.ConsularFee{}, queryError("get consular fee", err)
	}
	return fee, nil
}

func (r *pricingRepository) ListConsularFees(ctx context.Context, organizationID uuid.UUID) ([]domain.ConsularFee, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+consularFeeColumns+` FROM consular_fees WHERE organization_id = $1 ORDER BY country, visa_type`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list consular fees: %w", err)
	}
	defer rows.Close()

	fees := []domain.ConsularFee{}
	for rows.Next() {
		fee, err := scanConsularFee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan consular fee: %w", err)
		}
		fees = append(fees, fee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consular fees: %w", err)
	}
	return fees, nil
}

func (r *pricingRepository) CreateServiceLevel(ctx context.Context, level domain.ServiceLevel) (domain.ServiceLevel, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO service_levels (id, organization_id, service_type_id, name, price, processing_days, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+serviceLevelColumns,
		level.ID, level.OrganizationID, level.ServiceTypeID, level.Name, int64(level.Price), level.ProcessingDays, level.CreatedAt,
	)
	created, err := scanServiceLevel(row)
	if err != nil {
		return domain.ServiceLevel{}, queryError("create service level", err)
	}
	return created, nil
}

func (r *pricingRepository) GetServiceLevel(ctx context.Context, organizationID, id uuid.UUID) (domain.ServiceLevel, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+serviceLevelColumns+` FROM service_levels WHERE organization_id = $1 AND id = $2`,
		organizationID, id,
	)
	level, err := scanServiceLevel(row)
	if err != nil {
		return domain.ServiceLevel{}, queryError("get service level", err)
	}
	return level, nil
}

func (r *pricingRepository) ListServiceLevels(ctx context.Context, organizationID uuid.UUID) ([]domain.ServiceLevel, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+serviceLevelColumns+` FROM service_levels WHERE organization_id = $1 ORDER BY price, name`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list service levels: %w", err)
	}
	defer rows.Close()

	levels := []domain.ServiceLevel{}
	for rows.Next() {
		level, err := scanServiceLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service level: %w", err)
		}
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate service levels: %w", err)
	}
	return levels, nil
}
