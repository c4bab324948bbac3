package domain

import (
	"crypto/rand"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CaseStatus tracks where a customer's order is in processing.
type CaseStatus string

const (
	CaseStatusNew       CaseStatus = "new"
	CaseStatusInReview  CaseStatus = "in_review"
	CaseStatusSubmitted CaseStatus = "submitted"
	CaseStatusApproved  CaseStatus = "approved"
	CaseStatusRejected  CaseStatus = "rejected"
	CaseStatusCancelled CaseStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusNew, CaseStatusInReview, CaseStatusSubmitted,
		CaseStatusApproved, CaseStatusRejected, CaseStatusCancelled:
		return true
	}
	return false
}

// CaseSection labels audit notes produced by edits to the case itself.
const CaseSection = "case"

// Case is one customer's visa or passport order. Forms and audit records
// hang off it.
type Case struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organizationId"`
	OrderNumber    string         `json:"orderNumber"`
	ApplicantName  string         `json:"applicantName"`
	Email          string         `json:"email"`
	Country        string         `json:"country"`
	Status         CaseStatus     `json:"status"`
	ServiceTypeID  *uuid.UUID     `json:"serviceTypeId,omitempty"`
	ServiceLevelID *uuid.UUID     `json:"serviceLevelId,omitempty"`
	ConsularFeeID  *uuid.UUID     `json:"consularFeeId,omitempty"`
	Logs           []ChangeRecord `json:"logs"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewCase opens a case in status new. The order number and timestamps
// depend on the creation time and are set by the caller.
func NewCase(organizationID uuid.UUID, applicantName, email, country string) Case {
	return Case{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		ApplicantName:  strings.TrimSpace(applicantName),
		Email:          strings.TrimSpace(email),
		Country:        strings.ToUpper(strings.TrimSpace(country)),
		Status:         CaseStatusNew,
		Logs:           []ChangeRecord{},
	}
}

// NewOrderNumber returns a sortable, customer-facing order reference.
func NewOrderNumber(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return "ORD-" + ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// Validate checks the fields required to persist a case.
func (c Case) Validate() error {
	if c.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organizationId is required", ErrValidation)
	}
	if c.ApplicantName == "" {
		return fmt.Errorf("%w: applicantName is required", ErrValidation)
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("%w: invalid email %q", ErrValidation, c.Email)
		}
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, c.Status)
	}
	return nil
}

// Snapshot exposes the editable case fields for change detection.
func (c Case) Snapshot() Snapshot {
	return Snapshot{
		"applicantName":  c.ApplicantName,
		"email":          c.Email,
		"country":        c.Country,
		"status":         string(c.Status),
		"serviceTypeId":  uuidString(c.ServiceTypeID),
		"serviceLevelId": uuidString(c.ServiceLevelID),
		"consularFeeId":  uuidString(c.ConsularFeeID),
	}
}

// CasePatch carries a partial update; nil fields are left untouched.
type CasePatch struct {
	ApplicantName  *string     `json:"applicantName"`
	Email          *string     `json:"email"`
	Country        *string     `json:"country"`
	Status         *CaseStatus `json:"status"`
	ServiceTypeID  *uuid.UUID  `json:"serviceTypeId"`
	ServiceLevelID *uuid.UUID  `json:"serviceLevelId"`
	ConsularFeeID  *uuid.UUID  `json:"consularFeeId"`
}

// Apply returns a copy of c with the patch applied.
func (c Case) Apply(p CasePatch) Case {
	if p.ApplicantName != nil {
		c.ApplicantName = strings.TrimSpace(*p.ApplicantName)
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
	}
	if p.Country != nil {
		c.Country = strings.ToUpper(strings.TrimSpace(*p.Country))
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.ServiceTypeID != nil {
		c.ServiceTypeID = p.ServiceTypeID
	}
	if p.ServiceLevelID != nil {
		c.ServiceLevelID = p.ServiceLevelID
	}
	if p.ConsularFeeID != nil {
		c.ConsularFeeID = p.ConsularFeeID
	}
	return c
}

func uuidString(id *uuid.UUID) string {
	if id == nil || *id == uuid.Nil {
		return ""
	}
	return id.String()
}
