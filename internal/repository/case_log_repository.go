package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/domain"
)

type caseLogRepository struct {
	q db.DBTX
}

// NewCaseLogRepository creates a repository over the append-only case_logs table.
func NewCaseLogRepository(q db.DBTX) CaseLogRepository {
	return &caseLogRepository{q: q}
}

// Append inserts records after the existing entries of the case, keeping
// their order even when timestamps are equal.
func (r *caseLogRepository) Append(ctx context.Context, organizationID, caseID uuid.UUID, records []domain.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	notes := make([]string, len(records))
	createdAt := make([]time.Time, len(records))
	for i, record := range records {
		notes[i] = record.Note
		createdAt[i] = record.CreatedAt
	}

	_, err := r.q.Exec(ctx,
		`INSERT INTO case_logs (case_id, organization_id, position, note, created_at)
		 SELECT $1, $2, base.max_position + entry.ord, entry.note, entry.created_at
		 FROM unnest($3::text[], $4::timestamptz[]) WITH ORDINALITY AS entry(note, created_at, ord),
		      (SELECT COALESCE(MAX(position), 0) AS max_position FROM case_logs WHERE case_id = $1) AS base`,
		caseID, organizationID, notes, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append case logs: %w", err)
	}
	return nil
}

func (r *caseLogRepository) List(ctx context.Context, organizationID, caseID uuid.UUID) ([]domain.CaseLogEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT id, case_id, organization_id, note, created_at
		 FROM case_logs
		 WHERE organization_id = $1 AND case_id = $2
		 ORDER BY position`,
		organizationID, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list case logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.CaseLogEntry{}
	for rows.Next() {
		var entry domain.CaseLogEntry
		if err := rows.Scan(&entry.ID, &entry.CaseID, &entry.OrganizationID, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan case log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate case logs: %w", err)
	}
	return entries, nil
}
