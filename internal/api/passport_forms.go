package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rpattn/visadesk/internal/domain"
)

// POST /cases/{id}/passport-form
func (a *API) CreatePassportForm(w http.ResponseWriter, r *http.Request) {
	orgID, caseID, err := scope(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	form, err := a.forms.CreateForm(r.Context(), orgID, caseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, form, http.StatusCreated))
}

// GET /cases/{id}/passport-form
func (a *API) GetCasePassportForm(w http.ResponseWriter, r *http.Request) {
	orgID, caseID, err := scope(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	form, err := a.forms.GetFormByCase(r.Context(), orgID, caseID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, form, http.StatusOK))
}

// GET /passport-forms/{id}
func (a *API) GetPassportForm(w http.ResponseWriter, r *http.Request) {
	orgID, formID, err := scope(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	form, err := a.forms.GetForm(r.Context(), orgID, formID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, form, http.StatusOK))
}

// PUT /passport-forms/{id}/sections/{section}
//
// The body is the complete new content of the section.
func (a *API) UpdatePassportSection(w http.ResponseWriter, r *http.Request) {
	orgID, formID, err := scope(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	section := mux.Vars(r)["section"]
	if err := domain.ValidateSection(section); err != nil {
		a.fail(w, r, err)
		return
	}

	var data domain.Snapshot
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		a.fail(w, r, fmt.Errorf("%w: section body must be a JSON object: %v", domain.ErrValidation, err))
		return
	}

	result, err := a.forms.UpdateSection(r.Context(), orgID, formID, section, data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if result.Records == nil {
		result.Records = []domain.ChangeRecord{}
	}
	a.logError(writeJSON(w, result, http.StatusOK))
}
