package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ServiceType is a sellable service (e.g. "Tourist e-Visa") offered for a
// destination country. Siblings share organization and country and are
// displayed by SortOrder, which is kept contiguous from 1.
type ServiceType struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Country        string    `json:"country"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	BasePrice      Money     `json:"basePrice"`
	SortOrder      int       `json:"sortOrder"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewServiceType creates an active service type; SortOrder 0 means "append".
func NewServiceType(organizationID uuid.UUID, country, name, description string, basePrice Money, sortOrder int) ServiceType {
	return ServiceType{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Country:        strings.ToUpper(strings.TrimSpace(country)),
		Name:           strings.TrimSpace(name),
		Description:    description,
		BasePrice:      basePrice,
		SortOrder:      sortOrder,
		Active:         true,
	}
}

// Validate checks the fields required to persist a service type.
func (s ServiceType) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: service type name is required", ErrValidation)
	}
	if s.Country == "" {
		return fmt.Errorf("%w: service type country is required", ErrValidation)
	}
	if s.BasePrice < 0 {
		return fmt.Errorf("%w: base price cannot be negative", ErrValidation)
	}
	if s.SortOrder < 0 {
		return ErrInvalidSortOrder
	}
	return nil
}

// SortShift moves every sibling whose SortOrder lies in [From, To] by Delta.
type SortShift struct {
	From  int
	To    int
	Delta int
}

// Contains reports whether position is affected by the shift.
func (s SortShift) Contains(position int) bool {
	return position >= s.From && position <= s.To
}

// PlanInsert returns the final position of a new sibling among count
// existing ones and the shifts that open a slot for it. A position of 0 or
// past the end appends.
func PlanInsert(count, position int) (int, []SortShift, error) {
	if position < 0 {
		return 0, nil, ErrInvalidSortOrder
	}
	if position == 0 || position > count {
		return count + 1, nil, nil
	}
	return position, []SortShift{{From: position, To: count, Delta: 1}}, nil
}

// PlanMove returns the clamped target position for moving a sibling from
// one position to another and the shifts applied to the others.
func PlanMove(count, from, to int) (int, []SortShift, error) {
	if to < 0 || from < 1 {
		return 0, nil, ErrInvalidSortOrder
	}
	if to == 0 || to > count {
		to = count
	}
	switch {
	case to < from:
		return to, []SortShift{{From: to, To: from - 1, Delta: 1}}, nil
	case to > from:
		return to, []SortShift{{From: from + 1, To: to, Delta: -1}}, nil
	default:
		return to, nil, nil
	}
}

// PlanRemove returns the shifts that close the gap left by removing the
// sibling at position.
func PlanRemove(count, position int) []SortShift {
	if position < 1 || position >= count {
		return nil
	}
	return []SortShift{{From: position + 1, To: count, Delta: -1}}
}
