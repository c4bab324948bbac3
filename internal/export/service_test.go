package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/domain"
)

type stubCases struct {
	cases     []domain.Case
	pageSizes []int
}

func (s *stubCases) Create(ctx context.Context, c domain.Case) (domain.Case, error) { return c, nil }
func (s *stubCases) GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	return domain.Case{}, domain.ErrNotFound
}
func (s *stubCases) GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	return domain.Case{}, domain.ErrNotFound
}
func (s *stubCases) Update(ctx context.Context, c domain.Case) (domain.Case, error) { return c, nil }
func (s *stubCases) Delete(ctx context.Context, organizationID, id uuid.UUID) error {
	return nil
}

func (s *stubCases) List(ctx context.Context, organizationID uuid.UUID, filter domain.CaseFilter, limit, offset int) ([]domain.Case, int, error) {
	s.pageSizes = append(s.pageSizes, limit)
	matched := []domain.Case{}
	for _, c := range s.cases {
		if c.OrganizationID == organizationID && (filter.Status == "" || c.Status == filter.Status) {
			matched = append(matched, c)
		}
	}
	if offset >= len(matched) {
		return []domain.Case{}, len(matched), nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], len(matched), nil
}

type stubLogs struct {
	entries map[uuid.UUID][]domain.CaseLogEntry
}

func (s *stubLogs) Append(ctx context.Context, organizationID, caseID uuid.UUID, records []domain.ChangeRecord) error {
	return nil
}

func (s *stubLogs) List(ctx context.Context, organizationID, caseID uuid.UUID) ([]domain.CaseLogEntry, error) {
	return s.entries[caseID], nil
}

func fixture(orgID uuid.UUID) (*stubCases, *stubLogs) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := &stubCases{}
	logs := &stubLogs{entries: map[uuid.UUID][]domain.CaseLogEntry{}}
	for i, name := range []string{"Jane Doe", "Ravi Kumar", "Li Wei"} {
		c := domain.NewCase(orgID, name, "", "IN")
		c.OrderNumber = domain.NewOrderNumber(created)
		c.CreatedAt, c.UpdatedAt = created, created
		if i == 2 {
			c.Status = domain.CaseStatusApproved
		}
		cases.cases = append(cases.cases, c)
		logs.entries[c.ID] = []domain.CaseLogEntry{
			{CaseID: c.ID, Note: "PERSONALINFO : Added field [First Name] as '" + name + "'", CreatedAt: created},
		}
	}
	return cases, logs
}

func TestWriteWorkbookPagesThroughCases(t *testing.T) {
	orgID := uuid.New()
	cases, logs := fixture(orgID)
	svc := NewService(cases, logs, WithPageSize(2))

	var buf bytes.Buffer
	summary, err := svc.WriteWorkbook(context.Background(), orgID, domain.CaseFilter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, Summary{Cases: 3, Entries: 3}, summary)
	assert.Equal(t, []int{2, 2}, cases.pageSizes)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(casesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Order Number", rows[0][0])
	assert.Equal(t, "Jane Doe", rows[1][1])
	assert.Equal(t, "2024-01-02 03:04:05", rows[1][5])
	assert.Equal(t, "approved", rows[3][4])

	logRows, err := f.GetRows(logsSheet)
	require.NoError(t, err)
	require.Len(t, logRows, 4)
	assert.Equal(t, cases.cases[1].OrderNumber, logRows[2][0])
	assert.Equal(t, "PERSONALINFO : Added field [First Name] as 'Ravi Kumar'", logRows[2][1])
}

func TestWriteWorkbookAppliesFilter(t *testing.T) {
	orgID := uuid.New()
	cases, logs := fixture(orgID)
	svc := NewService(cases, logs)

	var buf bytes.Buffer
	summary, err := svc.WriteWorkbook(context.Background(), orgID, domain.CaseFilter{Status: domain.CaseStatusApproved}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cases)
}

func TestWriteWorkbookRequiresOrganization(t *testing.T) {
	svc := NewService(&stubCases{}, &stubLogs{})
	_, err := svc.WriteWorkbook(context.Background(), uuid.Nil, domain.CaseFilter{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHTTPHandler(t *testing.T) {
	orgID := uuid.New()
	cases, logs := fixture(orgID)
	handler := NewHTTPHandler(NewService(cases, logs))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cases/export", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cases/export?status=bogus", nil)
	req = req.WithContext(auth.ContextWithOrganizationID(req.Context(), orgID))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cases/export", nil)
	req = req.WithContext(auth.ContextWithOrganizationID(req.Context(), orgID))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workbookContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cases-")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(casesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
