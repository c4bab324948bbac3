package domain

// CaseFilter represents filtering options for listing cases.
type CaseFilter struct {
	Status  CaseStatus
	Country string
	Search  string
}
