package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/cases"
	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/middleware"
)

// caseView is a case with its service type resolved for display.
type caseView struct {
	domain.Case
	ServiceType *domain.ServiceType `json:"serviceType,omitempty"`
}

// caseUpdateView is the response to PATCH /cases/{id}.
type caseUpdateView struct {
	Case    caseView              `json:"case"`
	Changes []domain.ChangeRecord `json:"changes"`
}

// withServiceTypes resolves the service types of cs through the request
// loader in one batch. Without a loader the cases are returned bare.
func withServiceTypes(ctx context.Context, cs []domain.Case) ([]caseView, error) {
	views := make([]caseView, len(cs))
	for i, c := range cs {
		views[i] = caseView{Case: c}
	}

	loader := middleware.ServiceTypeLoaderFromContext(ctx)
	if loader == nil {
		return views, nil
	}

	ids := []uuid.UUID{}
	positions := []int{}
	for i, c := range cs {
		if c.ServiceTypeID != nil {
			ids = append(ids, *c.ServiceTypeID)
			positions = append(positions, i)
		}
	}
	if len(ids) == 0 {
		return views, nil
	}

	types, err := loader.LoadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, position := range positions {
		views[position].ServiceType = types[i]
	}
	return views, nil
}

func (a *API) writeCase(w http.ResponseWriter, r *http.Request, c domain.Case, statusCode int) {
	views, err := withServiceTypes(r.Context(), []domain.Case{c})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, views[0], statusCode))
}

// POST /cases
func (a *API) CreateCase(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	var input cases.CreateInput
	if err == nil {
		err = decodeJSON(r, &input)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	created, err := a.cases.Create(r.Context(), orgID, input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeCase(w, r, created, http.StatusCreated)
}

// GET /cases?status=&country=&q=&limit=&offset=
func (a *API) ListCases(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	filter := domain.CaseFilter{
		Status:  domain.CaseStatus(query.Get("status")),
		Country: query.Get("country"),
		Search:  query.Get("q"),
	}
	list, total, err := a.cases.List(r.Context(), orgID, filter, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views, err := withServiceTypes(r.Context(), list)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, Page[caseView]{Items: views, Total: total, Limit: limit, Offset: offset}, http.StatusOK))
}

// GET /cases/{id}
func (a *API) GetCase(w http.ResponseWriter, r *http.Request) {
	orgID, id, err := scope(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.cases.Get(r.Context(), orgID, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.writeCase(w, r, c, http.StatusOK)
}

// PATCH /cases/{id}
func (a *API) UpdateCase(w http.ResponseWriter, r *http.Request) {
	orgID, id, err := scope(r)
	var patch domain.CasePatch
	if err == nil {
		err = decodeJSON(r, &patch)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	updated, changes, err := a.cases.Update(r.Context(), orgID, id, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	views, err := withServiceTypes(r.Context(), []domain.Case{updated})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if changes == nil {
		changes = []domain.ChangeRecord{}
	}
	a.logError(writeJSON(w, caseUpdateView{Case: views[0], Changes: changes}, http.StatusOK))
}

// DELETE /cases/{id}
func (a *API) DeleteCase(w http.ResponseWriter, r *http.Request) {
	orgID, id, err := scope(r)
	if err == nil {
		err = a.cases.Delete(r.Context(), orgID, id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /cases/{id}/logs
func (a *API) ListCaseLogs(w http.ResponseWriter, r *http.Request) {
	orgID, id, err := scope(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	entries, err := a.forms.ListLogs(r.Context(), orgID, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, entries, http.StatusOK))
}
