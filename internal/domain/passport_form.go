package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KnownSections are the independently saved steps of the passport wizard.
var KnownSections = []string{
	"personalInfo",
	"contactInfo",
	"addressInfo",
	"emergencyContact",
	"travelPlans",
	"passportHistory",
	"parentInfo",
	"employmentInfo",
}

// ValidateSection returns ErrInvalidSection unless name is one of KnownSections.
func ValidateSection(name string) error {
	for _, known := range KnownSections {
		if known == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidSection, name)
}

// PassportForm is the multi-step application attached to a case.
type PassportForm struct {
	ID             uuid.UUID           `json:"id"`
	OrganizationID uuid.UUID           `json:"organizationId"`
	CaseID         uuid.UUID           `json:"caseId"`
	Sections       map[string]Snapshot `json:"sections"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// NewPassportForm returns an empty form for the given case. Timestamps are
// left for the caller to set.
func NewPassportForm(organizationID, caseID uuid.UUID) PassportForm {
	return PassportForm{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		CaseID:         caseID,
		Sections:       map[string]Snapshot{},
	}
}

// Section returns the stored snapshot for name, or nil when never saved.
func (f PassportForm) Section(name string) Snapshot {
	if f.Sections == nil {
		return nil
	}
	return f.Sections[name]
}

// WithSection returns a copy of the form with one section replaced.
func (f PassportForm) WithSection(name string, data Snapshot) PassportForm {
	sections := make(map[string]Snapshot, len(f.Sections)+1)
	for key, value := range f.Sections {
		sections[key] = value
	}
	sections[name] = data
	f.Sections = sections
	return f
}

// SectionsJSON encodes sections for the JSONB column.
func (f PassportForm) SectionsJSON() ([]byte, error) {
	sections := f.Sections
	if sections == nil {
		sections = map[string]Snapshot{}
	}
	return json.Marshal(sections)
}

// DecodeSections parses the JSONB column back into sections. Numbers are
// kept as json.Number, the same form request bodies decode to.
func DecodeSections(raw []byte) (map[string]Snapshot, error) {
	sections := map[string]Snapshot{}
	if len(raw) == 0 {
		return sections, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&sections); err != nil {
		return nil, fmt.Errorf("failed to decode passport form sections: %w", err)
	}
	return sections, nil
}
