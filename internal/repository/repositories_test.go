package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/visadesk/internal/domain"
)

// recordingDB captures Exec calls and fails every query.
type recordingDB struct {
	execSQL  []string
	execArgs [][]any
	querySQL []string
}

func (d *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execSQL = append(d.execSQL, sql)
	d.execArgs = append(d.execArgs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (d *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("query not expected")
}

func (d *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.querySQL = append(d.querySQL, sql)
	return errRow{err: pgx.ErrNoRows}
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

func TestQueryErrorMapsNoRows(t *testing.T) {
	err := queryError("get case", pgx.ErrNoRows)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.EqualError(t, err, "failed to get case: not found")

	other := queryError("get case", errors.New("boom"))
	assert.NotErrorIs(t, other, domain.ErrNotFound)
}

func TestExpectAffected(t *testing.T) {
	assert.NoError(t, expectAffected("delete case", 1))
	assert.ErrorIs(t, expectAffected("delete case", 0), domain.ErrNotFound)
}

func TestCaseLogAppendSkipsEmptyBatch(t *testing.T) {
	db := &recordingDB{}
	repo := NewCaseLogRepository(db)

	require.NoError(t, repo.Append(context.Background(), uuid.New(), uuid.New(), nil))
	assert.Empty(t, db.execSQL)
}

func TestCaseLogAppendSendsRecordsInOrder(t *testing.T) {
	db := &recordingDB{}
	repo := NewCaseLogRepository(db)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	records := []domain.ChangeRecord{
		{Note: "PERSONALINFO : Added field [First Name] as 'Jane'", CreatedAt: now},
		{Note: "PERSONALINFO : Added field [Last Name] as 'Doe'", CreatedAt: now},
	}
	require.NoError(t, repo.Append(context.Background(), uuid.New(), uuid.New(), records))

	require.Len(t, db.execArgs, 1)
	assert.Contains(t, db.execSQL[0], "WITH ORDINALITY")
	assert.Equal(t, []string{records[0].Note, records[1].Note}, db.execArgs[0][2])
	assert.Equal(t, []time.Time{now, now}, db.execArgs[0][3])
}

func TestMissingRowsBecomeNotFound(t *testing.T) {
	repos := New(&recordingDB{})
	ctx := context.Background()
	orgID := uuid.New()

	_, err := repos.Cases.GetByID(ctx, orgID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repos.PassportForms.GetForUpdate(ctx, orgID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repos.ServiceTypes.GetByID(ctx, orgID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repos.Pricing.GetServiceLevel(ctx, orgID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestServiceTypeGetByIDsWithoutKeys(t *testing.T) {
	types, err := NewServiceTypeRepository(&recordingDB{}).GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestShiftSortOrderBindsRange(t *testing.T) {
	db := &recordingDB{}
	exclude := uuid.New()
	err := NewServiceTypeRepository(db).ShiftSortOrder(context.Background(), uuid.New(), "in",
		domain.SortShift{From: 2, To: 4, Delta: 1}, exclude)
	require.NoError(t, err)

	require.Len(t, db.execArgs, 1)
	args := db.execArgs[0]
	assert.Equal(t, "IN", args[1])
	assert.Equal(t, 2, args[2])
	assert.Equal(t, 4, args[3])
	assert.Equal(t, 1, args[4])
	assert.Equal(t, exclude, args[5])
}

func TestCaseGetForUpdateLocksRow(t *testing.T) {
	db := &recordingDB{}
	repo := NewCaseRepository(db)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetForUpdate(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.Len(t, db.querySQL, 2)
	assert.NotContains(t, db.querySQL[0], "FOR UPDATE")
	assert.True(t, strings.HasSuffix(db.querySQL[1], "FOR UPDATE"), db.querySQL[1])
}
