package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Money is an amount in minor units (cents).
type Money int64

// String formats the amount with thousands separators, e.g. "1,234.50".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return sign + humanize.FormatFloat("#,###.##", float64(m)/100)
}

// Display prefixes the formatted amount with a currency symbol or code.
func (m Money) Display(currency string) string {
	switch strings.ToUpper(currency) {
	case "", "USD":
		return "$" + m.String()
	case "EUR":
		return "€" + m.String()
	case "GBP":
		return "£" + m.String()
	default:
		return strings.ToUpper(currency) + " " + m.String()
	}
}

// ConsularFee is the government fee charged by a destination country for a
// visa type.
type ConsularFee struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Country        string    `json:"country"`
	VisaType       string    `json:"visaType"`
	Entries        string    `json:"entries"`
	Amount         Money     `json:"amount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ServiceLevel is a processing speed offered for a service type.
type ServiceLevel struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ServiceTypeID  uuid.UUID `json:"serviceTypeId"`
	Name           string    `json:"name"`
	Price          Money     `json:"price"`
	ProcessingDays int       `json:"processingDays"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Validate checks the fields required to persist a consular fee.
func (f ConsularFee) Validate() error {
	if strings.TrimSpace(f.Country) == "" || strings.TrimSpace(f.VisaType) == "" {
		return fmt.Errorf("%w: consular fee needs country and visaType", ErrValidation)
	}
	if f.Amount < 0 {
		return fmt.Errorf("%w: consular fee amount cannot be negative", ErrValidation)
	}
	return nil
}

// Validate checks the fields required to persist a service level.
func (l ServiceLevel) Validate() error {
	if l.ServiceTypeID == uuid.Nil {
		return fmt.Errorf("%w: service level needs serviceTypeId", ErrValidation)
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: service level name is required", ErrValidation)
	}
	if l.Price < 0 || l.ProcessingDays < 0 {
		return fmt.Errorf("%w: service level price and processingDays cannot be negative", ErrValidation)
	}
	return nil
}

// FilterConsularFees keeps the fees for country and, when visaType is not
// empty, for that visa type. Matching is case-insensitive.
func FilterConsularFees(fees []ConsularFee, country, visaType string) []ConsularFee {
	out := make([]ConsularFee, 0, len(fees))
	for _, fee := range fees {
		if !strings.EqualFold(fee.Country, country) {
			continue
		}
		if visaType != "" && !strings.EqualFold(fee.VisaType, visaType) {
			continue
		}
		out = append(out, fee)
	}
	return out
}

// FilterServiceLevels keeps the levels offered for serviceTypeID.
func FilterServiceLevels(levels []ServiceLevel, serviceTypeID uuid.UUID) []ServiceLevel {
	out := make([]ServiceLevel, 0, len(levels))
	for _, level := range levels {
		if level.ServiceTypeID == serviceTypeID {
			out = append(out, level)
		}
	}
	return out
}

// Quote is the order summary shown before checkout.
type Quote struct {
	ServiceType  ServiceType  `json:"serviceType"`
	ServiceLevel ServiceLevel `json:"serviceLevel"`
	ConsularFee  ConsularFee  `json:"consularFee"`
	Applicants   int          `json:"applicants"`
	PerApplicant Money        `json:"perApplicant"`
	Total        Money        `json:"total"`
	Currency     string       `json:"currency"`
	Display      string       `json:"display"`
}

// BuildQuote prices an order. Each applicant pays the consular fee, the
// service level price and the service type base price.
func BuildQuote(serviceType ServiceType, level ServiceLevel, fee ConsularFee, applicants int, currency string) (Quote, error) {
	if level.ServiceTypeID != serviceType.ID {
		return Quote{}, fmt.Errorf("%w: service level %s does not belong to service type %s", ErrValidation, level.ID, serviceType.ID)
	}
	if !strings.EqualFold(fee.Country, serviceType.Country) {
		return Quote{}, fmt.Errorf("%w: consular fee country %s does not match service type country %s", ErrValidation, fee.Country, serviceType.Country)
	}
	if applicants < 1 {
		applicants = 1
	}
	perApplicant := fee.Amount + level.Price + serviceType.BasePrice
	total := perApplicant * Money(applicants)
	return Quote{
		ServiceType:  serviceType,
		ServiceLevel: level,
		ConsularFee:  fee,
		Applicants:   applicants,
		PerApplicant: perApplicant,
		Total:        total,
		Currency:     strings.ToUpper(currency),
		Display:      total.Display(currency),
	}, nil
}
