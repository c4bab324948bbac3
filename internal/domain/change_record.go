package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChangeRecord is a single human-readable line of a case audit log.
// Records are written once and never updated or removed.
type ChangeRecord struct {
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// CaseLogEntry is a persisted ChangeRecord together with its owning case.
type CaseLogEntry struct {
	ID             uuid.UUID `json:"id"`
	CaseID         uuid.UUID `json:"caseId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Note           string    `json:"note"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Record strips persistence metadata from the entry.
func (e CaseLogEntry) Record() ChangeRecord {
	return ChangeRecord{Note: e.Note, CreatedAt: e.CreatedAt}
}
