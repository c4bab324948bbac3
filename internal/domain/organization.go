package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant: an agency whose cases, forms and catalog are
// isolated from every other organization.
type Organization struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ContactEmail string    `json:"contactEmail"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewOrganization creates a new organization with immutable pattern
func NewOrganization(name, description, contactEmail string) Organization {
	now := time.Now()
	return Organization{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Description:  description,
		ContactEmail: strings.TrimSpace(contactEmail),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks the fields required to persist an organization.
func (o Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: organization name is required", ErrValidation)
	}
	return nil
}

// WithDetails returns a copy with updated name, description and contact email.
func (o Organization) WithDetails(name, description, contactEmail string) Organization {
	o.Name = strings.TrimSpace(name)
	o.Description = description
	o.ContactEmail = strings.TrimSpace(contactEmail)
	o.UpdatedAt = time.Now()
	return o
}
