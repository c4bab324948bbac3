package passport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/visadesk/internal/domain"
	"github.com/rpattn/visadesk/internal/repository"
)

var fixedNow = time.Date(2024, 7, 4, 9, 30, 0, 0, time.UTC)

// memStore backs the stub repositories; stubTx rolls it back when the unit
// of work fails.
type memStore struct {
	cases     map[uuid.UUID]domain.Case
	forms     map[uuid.UUID]domain.PassportForm
	logs      []domain.CaseLogEntry
	appendErr error
	// events records lock and append calls in order.
	events []string
}

func newMemStore() *memStore {
	return &memStore{cases: map[uuid.UUID]domain.Case{}, forms: map[uuid.UUID]domain.PassportForm{}}
}

func (m *memStore) clone() *memStore {
	c := &memStore{cases: map[uuid.UUID]domain.Case{}, forms: map[uuid.UUID]domain.PassportForm{}, appendErr: m.appendErr}
	for k, v := range m.cases {
		c.cases[k] = v
	}
	for k, v := range m.forms {
		c.forms[k] = v
	}
	c.logs = append(c.logs, m.logs...)
	c.events = append(c.events, m.events...)
	return c
}

func (m *memStore) repositories() repository.Repositories {
	return repository.Repositories{
		Cases:         &stubCaseRepo{store: m},
		CaseLogs:      &stubLogRepo{store: m},
		PassportForms: &stubFormRepo{store: m},
	}
}

type stubTx struct {
	store *memStore
	calls int
}

func (t *stubTx) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	t.calls++
	snapshot := t.store.clone()
	if err := fn(t.store.repositories()); err != nil {
		*t.store = *snapshot
		return err
	}
	return nil
}

type stubCaseRepo struct {
	repository.CaseRepository
	store *memStore
}

func (r *stubCaseRepo) GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	c, ok := r.store.cases[id]
	if !ok || c.OrganizationID != organizationID {
		return domain.Case{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *stubCaseRepo) GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.Case, error) {
	r.store.events = append(r.store.events, "lock case")
	return r.GetByID(ctx, organizationID, id)
}

type stubLogRepo struct {
	store *memStore
}

func (r *stubLogRepo) Append(ctx context.Context, organizationID, caseID uuid.UUID, records []domain.ChangeRecord) error {
	r.store.events = append(r.store.events, "append")
	if r.store.appendErr != nil {
		return r.store.appendErr
	}
	for _, record := range records {
		r.store.logs = append(r.store.logs, domain.CaseLogEntry{
			ID: uuid.New(), CaseID: caseID, OrganizationID: organizationID, Note: record.Note, CreatedAt: record.CreatedAt,
		})
	}
	return nil
}

func (r *stubLogRepo) List(ctx context.Context, organizationID, caseID uuid.UUID) ([]domain.CaseLogEntry, error) {
	out := []domain.CaseLogEntry{}
	for _, entry := range r.store.logs {
		if entry.CaseID == caseID && entry.OrganizationID == organizationID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubFormRepo struct {
	store *memStore
}

func (r *stubFormRepo) Create(ctx context.Context, form domain.PassportForm) (domain.PassportForm, error) {
	r.store.forms[form.ID] = form
	return form, nil
}

func (r *stubFormRepo) GetByID(ctx context.Context, organizationID, id uuid.UUID) (domain.PassportForm, error) {
	form, ok := r.store.forms[id]
	if !ok || form.OrganizationID != organizationID {
		return domain.PassportForm{}, domain.ErrNotFound
	}
	return form, nil
}

func (r *stubFormRepo) GetByCaseID(ctx context.Context, organizationID, caseID uuid.UUID) (domain.PassportForm, error) {
	for _, form := range r.store.forms {
		if form.CaseID == caseID && form.OrganizationID == organizationID {
			return form, nil
		}
	}
	return domain.PassportForm{}, domain.ErrNotFound
}

func (r *stubFormRepo) GetForUpdate(ctx context.Context, organizationID, id uuid.UUID) (domain.PassportForm, error) {
	r.store.events = append(r.store.events, "lock form")
	return r.GetByID(ctx, organizationID, id)
}

func (r *stubFormRepo) Save(ctx context.Context, form domain.PassportForm) (domain.PassportForm, error) {
	if _, ok := r.store.forms[form.ID]; !ok {
		return domain.PassportForm{}, domain.ErrNotFound
	}
	r.store.forms[form.ID] = form
	return form, nil
}

func setup(t *testing.T) (*Service, *memStore, *stubTx, domain.Case) {
	t.Helper()
	store := newMemStore()
	c := domain.NewCase(uuid.New(), "Jane Doe", "jane@example.com", "IN")
	store.cases[c.ID] = c

	tx := &stubTx{store: store}
	svc := NewService(store.repositories(), tx, WithClock(func() time.Time { return fixedNow }))
	return svc, store, tx, c
}

func TestCreateForm(t *testing.T) {
	svc, _, _, c := setup(t)
	ctx := context.Background()

	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, form.CaseID)
	assert.Equal(t, fixedNow, form.CreatedAt)
	assert.Empty(t, form.Sections)

	_, err = svc.CreateForm(ctx, c.OrganizationID, c.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateForm(ctx, uuid.New(), c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateSectionAppendsNotes(t *testing.T) {
	svc, store, _, c := setup(t)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	first, err := svc.UpdateSection(ctx, c.OrganizationID, form.ID, "personalInfo", domain.Snapshot{
		"firstName":   "Jane",
		"dateOfBirth": "1990-01-01T00:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.ChangeRecord{
		{Note: "PERSONALINFO : Added field [Date Of Birth] as '1990-01-01'", CreatedAt: fixedNow},
		{Note: "PERSONALINFO : Added field [First Name] as 'Jane'", CreatedAt: fixedNow},
	}, first.Records)
	assert.Equal(t, "Jane", first.Form.Section("personalInfo")["firstName"])

	second, err := svc.UpdateSection(ctx, c.OrganizationID, form.ID, "personalInfo", domain.Snapshot{
		"firstName":   "Janet",
		"dateOfBirth": "1990-01-01",
	})
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	assert.Equal(t, "PERSONALINFO : Changed field [First Name] from 'Jane' to 'Janet'", second.Records[0].Note)

	logs, err := svc.ListLogs(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, second.Records[0].Note, logs[2].Note)
	assert.Len(t, store.logs, 3)
}

func TestUpdateSectionWithoutChangesSavesOnly(t *testing.T) {
	svc, store, _, c := setup(t)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	data := domain.Snapshot{"phone": "+1 555 0100"}
	_, err = svc.UpdateSection(ctx, c.OrganizationID, form.ID, "contactInfo", data)
	require.NoError(t, err)

	again, err := svc.UpdateSection(ctx, c.OrganizationID, form.ID, "contactInfo", data)
	require.NoError(t, err)
	assert.Empty(t, again.Records)
	assert.Len(t, store.logs, 1)
}

func TestUpdateSectionLocksCaseBeforeAppending(t *testing.T) {
	svc, store, _, c := setup(t)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	store.events = nil
	_, err = svc.UpdateSection(ctx, c.OrganizationID, form.ID, "personalInfo", domain.Snapshot{"firstName": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lock case", "lock form", "append"}, store.events)
}

func TestUpdateSectionWithStoredNumbersIsIdempotent(t *testing.T) {
	svc, store, _, c := setup(t)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	_, err = svc.UpdateSection(ctx, c.OrganizationID, form.ID, "travelPlans", domain.Snapshot{
		"previousFees": []any{json.Number("1.50"), json.Number("20")},
		"nights":       json.Number("1e3"),
	})
	require.NoError(t, err)
	require.Len(t, store.logs, 2)

	// Reload the section the way the JSONB column hands it back.
	raw, err := store.forms[form.ID].SectionsJSON()
	require.NoError(t, err)
	sections, err := domain.DecodeSections(raw)
	require.NoError(t, err)
	stored := store.forms[form.ID]
	stored.Sections = sections
	store.forms[form.ID] = stored

	again, err := svc.UpdateSection(ctx, c.OrganizationID, form.ID, "travelPlans", domain.Snapshot{
		"previousFees": []any{json.Number("1.5"), json.Number("20.0")},
		"nights":       json.Number("1000"),
	})
	require.NoError(t, err)
	assert.Empty(t, again.Records)
	assert.Len(t, store.logs, 2)
}

func TestUpdateSectionIsAtomic(t *testing.T) {
	svc, store, _, c := setup(t)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	store.appendErr = errors.New("log table unavailable")
	_, err = svc.UpdateSection(ctx, c.OrganizationID, form.ID, "travelPlans", domain.Snapshot{"travelDate": "2025-06-01"})
	require.Error(t, err)

	saved := store.forms[form.ID]
	assert.Nil(t, saved.Section("travelPlans"), "form must not change when the log write fails")
	assert.Empty(t, store.logs)
}

func TestUpdateSectionRejectsUnknownSection(t *testing.T) {
	svc, _, tx, c := setup(t)
	_, err := svc.UpdateSection(context.Background(), c.OrganizationID, uuid.New(), "billing", domain.Snapshot{})
	assert.ErrorIs(t, err, domain.ErrInvalidSection)
	assert.Zero(t, tx.calls)
}

func TestUpdateSectionIsScopedToOrganization(t *testing.T) {
	svc, _, _, c := setup(t)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	_, err = svc.UpdateSection(ctx, uuid.New(), form.ID, "personalInfo", domain.Snapshot{"firstName": "Eve"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetForm(ctx, uuid.New(), form.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCustomDateFields(t *testing.T) {
	store := newMemStore()
	c := domain.NewCase(uuid.New(), "Jane Doe", "", "IN")
	store.cases[c.ID] = c
	svc := NewService(store.repositories(), &stubTx{store: store},
		WithClock(func() time.Time { return fixedNow }),
		WithDateFields("expiryDate"),
	)
	ctx := context.Background()
	form, err := svc.CreateForm(ctx, c.OrganizationID, c.ID)
	require.NoError(t, err)

	result, err := svc.UpdateSection(ctx, c.OrganizationID, form.ID, "passportHistory", domain.Snapshot{"expiryDate": "2031-02-03T12:00:00Z"})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "PASSPORTHISTORY : Added field [Expiry Date] as '2031-02-03'", result.Records[0].Note)
	assert.Equal(t, fixedNow, result.Records[0].CreatedAt)
}
