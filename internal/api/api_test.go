package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rpattn/visadesk/internal/api"
	"github.com/rpattn/visadesk/internal/cases"
	"github.com/rpattn/visadesk/internal/catalog"
	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/passport"
	"github.com/rpattn/visadesk/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

type stubOrganizations struct {
	repository.OrganizationRepository
	orgs map[uuid.UUID]domain.Organization
}

func (s *stubOrganizations) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	s.orgs[org.ID] = org
	return org, nil
}

func (s *stubOrganizations) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return domain.Organization{}, domain.ErrNotFound
	}
	return org, nil
}

type stubCases struct {
	api.CaseService
	mu    sync.Mutex
	cases map[uuid.UUID]domain.Case
}

func (s *stubCases) Create(ctx context.Context, organizationID uuid.UUID, input cases.CreateInput) (domain.Case, error) {
	if input.ApplicantName == "" {
		return domain.Case{}, domain.ErrValidation
	}
	c := domain.NewCase(organizationID, input.ApplicantName, input.Email, input.Country)
	c.ServiceTypeID = input.ServiceTypeID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.ID] = c
	return c, nil
}

func (s *stubCases) Get(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok || c.OrganizationID != organizationID {
		return domain.Case{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *stubCases) List(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, limit, offset int) ([]domain.Case, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Case{}
	for _, c := range s.cases {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (s *stubCases) Update(ctx context.Context, organizationID, id uuid.UUID, patch domain.CasePatch) (domain.Case, []domain.ChangeRecord, error) {
	current, err := s.Get(ctx, organizationID, id)
	if err != nil {
		return domain.Case{}, nil, err
	}
	next := current.Apply(patch)
	records := domain.NewChangeDetector(domain.WithClock(func() time.Time { return fixedNow })).
		Detect(current.Snapshot(), next.Snapshot(), domain.CaseSection)
	return next, records, nil
}

type stubForms struct {
	api.FormService
	form domain.PassportForm
}

func (s *stubForms) GetForm(ctx context.Context, organizationID, formID uuid.UUID) (domain.PassportForm, error) {
	if formID != s.form.ID || organizationID != s.form.OrganizationID {
		return domain.PassportForm{}, domain.ErrNotFound
	}
	return s.form, nil
}

func (s *stubForms) UpdateSection(ctx context.Context, organizationID, formID uuid.UUID, section string, data domain.Snapshot) (passport.SectionUpdate, error) {
	form, err := s.GetForm(ctx, organizationID, formID)
	if err != nil {
		return passport.SectionUpdate{}, err
	}
	records := domain.NewChangeDetector(domain.WithClock(func() time.Time { return fixedNow })).
		Detect(form.Section(section), data, section)
	s.form = form.WithSection(section, data)
	return passport.SectionUpdate{Form: s.form, Section: section, Records: records}, nil
}

type stubCatalog struct {
	api.CatalogService
	quoteErr error
}

func (s *stubCatalog) Quote(ctx context.Context, organizationID uuid.UUID, req catalog.QuoteRequest) (domain.Quote, error) {
	if s.quoteErr != nil {
		return domain.Quote{}, s.quoteErr
	}
	return domain.Quote{Applicants: req.Applicants, Total: 1000, Display: "$10.00"}, nil
}

type stubServiceTypes struct {
	mu    sync.Mutex
	types []domain.ServiceType
	calls int
}

func (s *stubServiceTypes) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.ServiceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.types, nil
}

type testServer struct {
	router       *mux.Router
	orgID        uuid.UUID
	cases        *stubCases
	forms        *stubForms
	catalog      *stubCatalog
	serviceTypes *stubServiceTypes
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	orgID := uuid.New()
	form := domain.NewPassportForm(orgID, uuid.New())

	ts := &testServer{
		orgID:        orgID,
		cases:        &stubCases{cases: map[uuid.UUID]domain.Case{}},
		forms:        &stubForms{form: form},
		catalog:      &stubCatalog{},
		serviceTypes: &stubServiceTypes{},
	}
	organizations := &stubOrganizations{orgs: map[uuid.UUID]domain.Organization{
		orgID: {ID: orgID, Name: "Acme Visas"},
	}}

	a := api.NewAPI(api.Dependencies{
		Organizations: organizations,
		Cases:         ts.cases,
		Forms:         ts.forms,
		Catalog:       ts.catalog,
		Export: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}),
		Logger: zerolog.Nop(),
	})
	ts.router = api.NewRouter(a, ts.serviceTypes, zerolog.Nop())
	return ts
}

func (ts *testServer) do(method, path, body string, scoped bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if scoped {
		req.Header.Set("X-Organization-ID", ts.orgID.String())
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/v1/health", "", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}

func TestTenantRoutesRequireScope(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/cases", "", false)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil)
	req.Header.Set("X-Organization-ID", "not-a-uuid")
	rr = httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrganizationScope(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/organizations/"+ts.orgID.String(), "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Acme Visas", decode[domain.Organization](t, rr).Name)

	rr = ts.do(http.MethodGet, "/api/v1/organizations/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(http.MethodPost, "/api/v1/organizations", `{"name":""}`, false)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/api/v1/organizations", `{"name":"Globe Travel","contactEmail":"ops@globe.test"}`, false)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Globe Travel", decode[domain.Organization](t, rr).Name)
}

func TestCaseLifecycle(t *testing.T) {
	ts := newTestServer(t)
	st := domain.ServiceType{ID: uuid.New(), OrganizationID: ts.orgID, Name: "Tourist e-Visa", Country: "IN"}
	ts.serviceTypes.types = []domain.ServiceType{st}

	rr := ts.do(http.MethodPost, "/api/v1/cases",
		`{"applicantName":"Jane Doe","email":"jane@example.com","country":"IN","serviceTypeId":"`+st.ID.String()+`"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[map[string]any](t, rr)
	caseID := created["id"].(string)
	assert.Equal(t, "Tourist e-Visa", created["serviceType"].(map[string]any)["name"])

	rr = ts.do(http.MethodPost, "/api/v1/cases", `{"applicantName":"Ravi Kumar"}`, true)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.do(http.MethodGet, "/api/v1/cases?limit=10", "", true)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[map[string]any](t, rr)
	assert.EqualValues(t, 2, page["total"])
	assert.EqualValues(t, 10, page["limit"])

	rr = ts.do(http.MethodPatch, "/api/v1/cases/"+caseID, `{"status":"in_review"}`, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	update := decode[map[string]any](t, rr)
	changes := update["changes"].([]any)
	require.Len(t, changes, 1)
	assert.Equal(t, "CASE : Changed field [Status] from 'new' to 'in_review'", changes[0].(map[string]any)["note"])

	rr = ts.do(http.MethodGet, "/api/v1/cases/"+uuid.NewString(), "", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(http.MethodGet, "/api/v1/cases?limit=-1", "", true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/api/v1/cases", `{"applicantName":"X","unknown":1}`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdatePassportSection(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/v1/passport-forms/" + ts.forms.form.ID.String() + "/sections/"

	rr := ts.do(http.MethodPut, path+"personalInfo", `{"firstName":"Jane","children":2,"address":{"zipCode":"10001"}}`, true)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decode[passport.SectionUpdate](t, rr)
	var notes []string
	for _, record := range result.Records {
		notes = append(notes, record.Note)
	}
	assert.Equal(t, []string{
		"PERSONALINFO : Added field [Address : Zip Code] as '10001'",
		"PERSONALINFO : Added field [Children] as '2'",
		"PERSONALINFO : Added field [First Name] as 'Jane'",
	}, notes)

	rr = ts.do(http.MethodPut, path+"personalInfo", `{"firstName":"Jane","children":2.0,"address":{"zipCode":"10001"}}`, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, rr, "records")))

	rr = ts.do(http.MethodPut, path+"billing", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPut, path+"personalInfo", `["not","an","object"]`, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPut, "/api/v1/passport-forms/"+uuid.NewString()+"/sections/personalInfo", `{}`, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func mustField(t *testing.T, rr *httptest.ResponseRecorder, name string) json.RawMessage {
	t.Helper()
	fields := decode[map[string]json.RawMessage](t, rr)
	value, ok := fields[name]
	require.True(t, ok, "missing field %s", name)
	return value
}

func TestQuoteErrors(t *testing.T) {
	ts := newTestServer(t)
	body := `{"serviceTypeId":"` + uuid.NewString() + `","serviceLevelId":"` + uuid.NewString() +
		`","consularFeeId":"` + uuid.NewString() + `","applicants":2}`

	rr := ts.do(http.MethodPost, "/api/v1/quotes", body, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "$10.00", decode[domain.Quote](t, rr).Display)

	ts.catalog.quoteErr = errors.New("connection reset")
	rr = ts.do(http.MethodPost, "/api/v1/quotes", body, true)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rr.Body.String())
}

func TestExportRoute(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(http.MethodGet, "/api/v1/cases/export", "", true)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = ts.do(http.MethodGet, "/api/v1/nothing-here", "", true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
