package api

import (
	"net/http"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/catalog"
	"github.com/rpattn/visadesk/internal/domain"
)

// POST /service-types
func (a *API) CreateServiceType(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	var input catalog.ServiceTypeInput
	if err == nil {
		err = decodeJSON(r, &input)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := a.catalog.CreateServiceType(r.Context(), orgID, input)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, created, http.StatusCreated))
}

// GET /service-types?country=
func (a *API) ListServiceTypes(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	types, err := a.catalog.ListServiceTypes(r.Context(), orgID, r.URL.Query().Get("country"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, types, http.StatusOK))
}

// PUT /service-types/{id}
func (a *API) UpdateServiceType(w http.ResponseWriter, r *http.Request) {
	orgID, id, err := scope(r)
	var patch catalog.ServiceTypePatch
	if err == nil {
		err = decodeJSON(r, &patch)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	updated, err := a.catalog.UpdateServiceType(r.Context(), orgID, id, patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, updated, http.StatusOK))
}

// DELETE /service-types/{id}
func (a *API) DeleteServiceType(w http.ResponseWriter, r *http.Request) {
	orgID, id, err := scope(r)
	if err == nil {
		err = a.catalog.DeleteServiceType(r.Context(), orgID, id)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type consularFeePayload struct {
	Country  string       `json:"country"`
	VisaType string       `json:"visaType"`
	Entries  string       `json:"entries"`
	Amount   domain.Money `json:"amount"`
}

// POST /consular-fees
func (a *API) CreateConsularFee(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	var payload consularFeePayload
	if err == nil {
		err = decodeJSON(r, &payload)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := a.catalog.CreateConsularFee(r.Context(), orgID, domain.ConsularFee{
		Country:  payload.Country,
		VisaType: payload.VisaType,
		Entries:  payload.Entries,
		Amount:   payload.Amount,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, created, http.StatusCreated))
}

// GET /consular-fees?country=&visaType=
func (a *API) ListConsularFees(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	query := r.URL.Query()
	fees, err := a.catalog.ListConsularFees(r.Context(), orgID, query.Get("country"), query.Get("visaType"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, fees, http.StatusOK))
}

type serviceLevelPayload struct {
	ServiceTypeID  string       `json:"serviceTypeId"`
	Name           string       `json:"name"`
	Price          domain.Money `json:"price"`
	ProcessingDays int          `json:"processingDays"`
}

// POST /service-levels
func (a *API) CreateServiceLevel(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	var payload serviceLevelPayload
	if err == nil {
		err = decodeJSON(r, &payload)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	level := domain.ServiceLevel{Name: payload.Name, Price: payload.Price, ProcessingDays: payload.ProcessingDays}
	if payload.ServiceTypeID != "" {
		if err := level.ServiceTypeID.UnmarshalText([]byte(payload.ServiceTypeID)); err != nil {
			a.fail(w, r, domain.ErrValidation)
			return
		}
	}
	created, err := a.catalog.CreateServiceLevel(r.Context(), orgID, level)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, created, http.StatusCreated))
}

// GET /service-levels?serviceTypeId=
func (a *API) ListServiceLevels(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	serviceTypeID, err := queryUUID(r, "serviceTypeId")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	levels, err := a.catalog.ListServiceLevels(r.Context(), orgID, serviceTypeID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, levels, http.StatusOK))
}

// POST /quotes
func (a *API) CreateQuote(w http.ResponseWriter, r *http.Request) {
	orgID, err := auth.RequireOrganizationID(r.Context())
	var req catalog.QuoteRequest
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	quote, err := a.catalog.Quote(r.Context(), orgID, req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logError(writeJSON(w, quote, http.StatusOK))
}
