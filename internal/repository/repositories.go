package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/domain"
)

// New binds every repository to q, which may be a pool or a transaction.
func New(q db.DBTX) Repositories {
	return Repositories{
		Organizations: NewOrganizationRepository(q),
		Cases:         NewCaseRepository(q),
		CaseLogs:      NewCaseLogRepository(q),
		PassportForms: NewPassportFormRepository(q),
		ServiceTypes:  NewServiceTypeRepository(q),
		Pricing:       NewPricingRepository(q),
	}
}

type pgTxManager struct {
	conn *db.Connection
}

// NewTxManager returns a TxManager backed by conn.
func NewTxManager(conn *db.Connection) TxManager {
	return &pgTxManager{conn: conn}
}

func (m *pgTxManager) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(New(tx))
	})
}

// queryError wraps err for the failed action, translating a missing row into
// domain.ErrNotFound.
func queryError(action string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", action, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// expectAffected returns domain.ErrNotFound when a write touched no rows.
func expectAffected(action string, affected int64) error {
	if affected == 0 {
		return fmt.Errorf("failed to %s: %w", action, domain.ErrNotFound)
	}
	return nil
}
