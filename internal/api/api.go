package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/cases"
	"github.com/rpattn/visadesk/internal/catalog"
	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/passport"
	"github.com/rpattn/visadesk/internal/repository"
)

// ErrInternal is reported to clients in place of unexpected failures.
var ErrInternal = errors.New("internal error")

const idPattern = "{id:[0-9a-fA-F-]{36}}"

// CaseService is the case use-case surface used by the API.
type CaseService interface {
	Create(ctx context.Context, organizationID uuid.UUID, input cases.CreateInput) (domain.Case, error)
	Get(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error)
	List(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, limit, offset int) ([]domain.Case, int, error)
	Update(ctx context.Context, organizationID, id uuid.UUID, patch domain.CasePatch) (domain.Case, []domain.ChangeRecord, error)
	Delete(ctx context.Context, organizationID, id uuid.UUID) error
}

// FormService is the passport form use-case surface used by the API.
type FormService interface {
	CreateForm(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error)
	GetForm(ctx context.Context, organizationID, formID uuid.UUID) (domain.PassportForm, error)
	GetFormByCase(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error)
	UpdateSection(ctx context.Context, organizationID, formID uuid.UUID, section string, data domain.Snapshot) (passport.SectionUpdate, error)
	ListLogs(ctx context.Context, organizationID, caseID uuid.UUID) ([]domain.CaseLogEntry, error)
}

// CatalogService is the catalog use-case surface used by the API.
type CatalogService interface {
	CreateServiceType(ctx context.Context, organizationID uuid.UUID, input catalog.ServiceTypeInput) (domain.ServiceType, error)
	UpdateServiceType(ctx context.Context, organizationID, id uuid.UUID, patch catalog.ServiceTypePatch) (domain.ServiceType, error)
	DeleteServiceType(ctx context.Context, organizationID, id uuid.UUID) error
	ListServiceTypes(ctx context.Context, organizationID uuid.UUID, country string) ([]domain.ServiceType, error)
	CreateConsularFee(ctx context.Context, organizationID uuid.UUID, fee domain.ConsularFee) (domain.ConsularFee, error)
	ListConsularFees(ctx context.Context, organizationID uuid.UUID, country, visaType string) ([]domain.ConsularFee, error)
	CreateServiceLevel(ctx context.Context, organizationID uuid.UUID, level domain.ServiceLevel) (domain.ServiceLevel, error)
	ListServiceLevels(ctx context.Context, organizationID uuid.UUID, serviceTypeID uuid.UUID) ([]domain.ServiceLevel, error)
	Quote(ctx context.Context, organizationID uuid.UUID, req catalog.QuoteRequest) (domain.Quote, error)
}

// API serves the REST surface under /api/v1.
type API struct {
	organizations repository.OrganizationRepository
	cases         CaseService
	forms         FormService
	catalog       CatalogService
	export        http.Handler
	logger        zerolog.Logger
}

// Dependencies groups what the API needs.
type Dependencies struct {
	Organizations repository.OrganizationRepository
	Cases         CaseService
	Forms         FormService
	Catalog       CatalogService
	Export        http.Handler
	Logger        zerolog.Logger
}

func NewAPI(deps Dependencies) *API {
	return &API{
		organizations: deps.Organizations,
		cases:         deps.Cases,
		forms:         deps.Forms,
		catalog:       deps.Catalog,
		export:        deps.Export,
		logger:        deps.Logger,
	}
}

// CreateRoutes registers every route on routes, which is expected to be
// mounted at /api/v1.
func (a *API) CreateRoutes(routes *mux.Router) {
	routes.Path("/health").HandlerFunc(a.Health).Methods("GET")

	routes.Path("/organizations").HandlerFunc(a.CreateOrganization).Methods("POST")
	routes.Path("/organizations").HandlerFunc(a.ListOrganizations).Methods("GET")
	routes.Path("/organizations/" + idPattern).HandlerFunc(a.GetOrganization).Methods("GET")
	routes.Path("/organizations/" + idPattern).HandlerFunc(a.UpdateOrganization).Methods("PUT")
	routes.Path("/organizations/" + idPattern).HandlerFunc(a.DeleteOrganization).Methods("DELETE")

	if a.export != nil {
		routes.Path("/cases/export").Handler(a.export).Methods("GET")
	}
	routes.Path("/cases").HandlerFunc(a.CreateCase).Methods("POST")
	routes.Path("/cases").HandlerFunc(a.ListCases).Methods("GET")
	routes.Path("/cases/" + idPattern).HandlerFunc(a.GetCase).Methods("GET")
	routes.Path("/cases/" + idPattern).HandlerFunc(a.UpdateCase).Methods("PATCH")
	routes.Path("/cases/" + idPattern).HandlerFunc(a.DeleteCase).Methods("DELETE")
	routes.Path("/cases/" + idPattern + "/logs").HandlerFunc(a.ListCaseLogs).Methods("GET")
	routes.Path("/cases/" + idPattern + "/passport-form").HandlerFunc(a.CreatePassportForm).Methods("POST")
	routes.Path("/cases/" + idPattern + "/passport-form").HandlerFunc(a.GetCasePassportForm).Methods("GET")

	routes.Path("/passport-forms/" + idPattern).HandlerFunc(a.GetPassportForm).Methods("GET")
	routes.Path("/passport-forms/" + idPattern + "/sections/{section}").HandlerFunc(a.UpdatePassportSection).Methods("PUT")

	routes.Path("/service-types").HandlerFunc(a.CreateServiceType).Methods("POST")
	routes.Path("/service-types").HandlerFunc(a.ListServiceTypes).Methods("GET")
	routes.Path("/service-types/" + idPattern).HandlerFunc(a.UpdateServiceType).Methods("PUT")
	routes.Path("/service-types/" + idPattern).HandlerFunc(a.DeleteServiceType).Methods("DELETE")

	routes.Path("/consular-fees").HandlerFunc(a.CreateConsularFee).Methods("POST")
	routes.Path("/consular-fees").HandlerFunc(a.ListConsularFees).Methods("GET")
	routes.Path("/service-levels").HandlerFunc(a.CreateServiceLevel).Methods("POST")
	routes.Path("/service-levels").HandlerFunc(a.ListServiceLevels).Methods("GET")

	routes.Path("/quotes").HandlerFunc(a.CreateQuote).Methods("POST")
}

// GET /health
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	a.logError(writeJSON(w, map[string]bool{"ok": true}, http.StatusOK))
}

// Page is the envelope of list responses.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) error {
	return writeJSON(w, map[string]string{"error": message}, statusCode)
}

func (a *API) logError(err error) {
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to write response")
	}
}

// fail maps err to a status code and writes it. Unexpected errors are logged
// and hidden from the client.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := http.StatusInternalServerError
	message := ErrInternal.Error()
	switch {
	case errors.Is(err, domain.ErrNotFound):
		statusCode, message = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidSection),
		errors.Is(err, domain.ErrInvalidSortOrder):
		statusCode, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrOrganizationScope):
		statusCode, message = http.StatusForbidden, err.Error()
	default:
		a.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	a.logError(writeError(w, message, statusCode))
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	return id, nil
}

// scope returns the organization of the request and the id path variable.
func scope(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return orgID, id, nil
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, name)
	}
	return value, nil
}

func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	return id, nil
}
