package api

import (
	"net/http"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/domain"
)

type organizationPayload struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ContactEmail string `json:"contactEmail"`
}

// POST /organizations
func (a *API) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var payload organizationPayload
	if err := decodeJSON(r, &payload); err != nil {
		a.fail(w, r, err)
		return
	}

	org := domain.NewOrganization(payload.Name, payload.Description, payload.ContactEmail)
	if err := org.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := a.organizations.Create(r.Context(), org)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, created, http.StatusCreated))
}

// GET /organizations; a scoped request only sees its own organization.
func (a *API) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	if orgID, ok := auth.OrganizationIDFromContext(r.Context()); ok {
		org, err := a.organizations.GetByID(r.Context(), orgID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.logError(writeJSON(w, []domain.Organization{org}, http.StatusOK))
		return
	}

	orgs, err := a.organizations.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, orgs, http.StatusOK))
}

// GET /organizations/{id}
func (a *API) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = auth.EnforceOrganizationScope(r.Context(), id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	org, err := a.organizations.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, org, http.StatusOK))
}

// PUT /organizations/{id}
func (a *API) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = auth.EnforceOrganizationScope(r.Context(), id)
	}
	var payload organizationPayload
	if err == nil {
		err = decodeJSON(r, &payload)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	current, err := a.organizations.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	next := current.WithDetails(payload.Name, payload.Description, payload.ContactEmail)
	if err := next.Validate(); err != nil {
		a.fail(w, r, err)
		return
	}
	updated, err := a.organizations.Update(r.Context(), next)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, updated, http.StatusOK))
}

// DELETE /organizations/{id}
func (a *API) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = auth.EnforceOrganizationScope(r.Context(), id)
	}
	if err == nil {
		err = a.organizations.Delete(r.Context(), id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
