package domain

import "errors"

var (
	// ErrNotFound is returned when a record does not exist in the caller's organization.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSection is returned for passport-form sections outside KnownSections.
	ErrInvalidSection = errors.New("invalid passport form section")
	// ErrInvalidSortOrder is returned when a service type position is not positive.
	ErrInvalidSortOrder = errors.New("sort order must be positive")
	// ErrOrganizationScope is returned when a request targets another organization.
	ErrOrganizationScope = errors.New("organization does not match authenticated scope")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("validation failed")
)
